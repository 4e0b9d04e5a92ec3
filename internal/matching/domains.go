package matching

import (
	"sort"
	"strings"
)

// Domain is the professional area a job title belongs to.
type Domain string

const (
	DomainGeneral   Domain = "general"
	DomainFrontend  Domain = "frontend"
	DomainBackend   Domain = "backend"
	DomainMobile    Domain = "mobile"
	DomainDevOps    Domain = "devops"
	DomainData      Domain = "data"
	DomainFullstack Domain = "fullstack"
)

const (
	defaultDomainPenalty = 0.4
	relatedDomainBase    = 0.3
	defaultGeneralWeight = 0.2
	minDomainSimilarity  = 0.3
)

var generalPatterns = []string{
	"software engineer", "software developer", "programmer",
	"entwickler", "softwareentwickler", "programmierer",
	"软件工程师", "ソフトウェアエンジニア",
	"engineer", "developer",
}

var specificTerms = []string{
	"frontend", "front-end", "backend", "back-end", "mobile", "ios", "android",
	"data", "devops", "fullstack", "ui", "ux", "database", "ml", "ai",
}

type keywordRule struct {
	domain   Domain
	keywords []string
}

// Evaluated in order, first hit wins.
var keywordRules = []keywordRule{
	{DomainFrontend, []string{"ui", "ux", "frontend", "front-end", "front end", "前端", "frontend-entwickler", "ui-entwickler"}},
	{DomainBackend, []string{"backend", "back-end", "back end", "database", "server", "后端", "backend-entwickler", "datenbankentwickler"}},
	{DomainMobile, []string{"mobile", "ios", "android", "flutter", "react native", "app developer", "mobile-app", "app-entwickler", "android-entwickler", "ios-entwickler"}},
}

// domainPrototypes are example phrases whose mean embedding represents a domain.
var domainPrototypes = map[Domain][]string{
	DomainFrontend: {
		"Frontend web development", "UI development", "Client-side programming",
		"Web interface design", "Browser application development",
		"HTML CSS JavaScript development", "React Vue Angular development",
		"User interface engineering", "Frontend-Entwicklung", "Webentwicklung Benutzeroberfläche",
	},
	DomainBackend: {
		"Backend server development", "Database management", "Server-side programming",
		"API development", "System architecture", "Database design",
		"Server infrastructure", "Microservices development", "Backend-Entwicklung",
	},
	DomainMobile: {
		"Mobile app development", "iOS development", "Android development",
		"React Native development", "Flutter development", "Mobile application engineering",
		"App-Entwicklung",
	},
	DomainDevOps: {
		"DevOps Engineer managing infrastructure", "Site Reliability Engineer",
		"Cloud Infrastructure Engineer", "Platform Engineer", "Systems Operations Engineer",
		"Release and deployment automation", "Kubernetes and CI/CD pipelines",
	},
	DomainData: {
		"Data Scientist working on ML models", "Machine Learning Engineer",
		"AI Research Engineer", "Data Engineer", "Analytics Engineer",
		"Big data pipeline development", "Statistical modelling and analysis",
	},
	DomainFullstack: {
		"Full Stack Developer", "Full Stack Web Engineer", "End-to-end Developer",
		"Full Stack Application Engineer", "Web Development Generalist",
		"Frontend and backend development",
	},
}

type domainPair struct{ a, b Domain }

func pairOf(a, b Domain) domainPair {
	if a > b {
		a, b = b, a
	}
	return domainPair{a, b}
}

var domainRelationships = map[domainPair]float64{
	pairOf(DomainFrontend, DomainFullstack): 0.3,
	pairOf(DomainBackend, DomainFullstack):  0.3,
	pairOf(DomainBackend, DomainDevOps):     0.2,
	pairOf(DomainData, DomainBackend):       0.2,
	pairOf(DomainMobile, DomainFrontend):    0.3,
	pairOf(DomainMobile, DomainFullstack):   0.2,
	pairOf(DomainGeneral, DomainFrontend):   0.2,
	pairOf(DomainGeneral, DomainBackend):    0.2,
	pairOf(DomainGeneral, DomainMobile):     0.2,
	pairOf(DomainGeneral, DomainDevOps):     0.2,
	pairOf(DomainGeneral, DomainFullstack):  0.3,
	pairOf(DomainGeneral, DomainData):       0.1,
}

// DomainPenalty returns the score deduction for comparing titles of domains a
// and b. The lookup is symmetric.
func DomainPenalty(a, b Domain) float64 {
	if a == b {
		return 0
	}
	rel, ok := domainRelationships[pairOf(a, b)]
	if a == DomainGeneral || b == DomainGeneral {
		if !ok {
			rel = defaultGeneralWeight
		}
		return relatedDomainBase - rel
	}
	if ok {
		return relatedDomainBase - rel
	}
	return defaultDomainPenalty
}

var seniorityLevels = map[string]int{
	"junior":    1,
	"associate": 1,
	"mid":       2,
	"senior":    3,
	"staff":     4,
	"lead":      4,
	"principal": 5,
	"architect": 5,
	"head":      5,
	"director":  5,
}

// SeniorityLevel returns the highest level whose keyword appears in title.
func SeniorityLevel(title string) int {
	lower := strings.ToLower(title)
	level := 0
	for keyword, l := range seniorityLevels {
		if l > level && strings.Contains(lower, keyword) {
			level = l
		}
	}
	return level
}

// SeniorityPenalty is 0.1 per level of difference, capped at 0.2.
func SeniorityPenalty(a, b int) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	penalty := 0.1 * float64(diff)
	if penalty > 0.2 {
		return 0.2
	}
	return penalty
}

func isGeneralRole(lower string) bool {
	general := false
	for _, p := range generalPatterns {
		if strings.Contains(lower, p) {
			general = true
			break
		}
	}
	if !general {
		return false
	}
	for _, term := range specificTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

func keywordDomain(lower string) (Domain, bool) {
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.domain, true
			}
		}
	}
	return "", false
}

func prototypeDomains() []Domain {
	domains := make([]Domain, 0, len(domainPrototypes))
	for d := range domainPrototypes {
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i] < domains[j] })
	return domains
}
