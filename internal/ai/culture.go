package ai

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/vettavista/internal/models"
)

var employeeCountRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})*`)

// ParseEmployeeCount parses "201-500 employees" or "10,001+ employees" into a
// min/max range. Unparseable input yields 0, 0.
func ParseEmployeeCount(size string) (int, int) {
	matches := employeeCountRe.FindAllString(size, -1)
	numbers := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
		if err != nil {
			return 0, 0
		}
		numbers = append(numbers, n)
	}

	switch len(numbers) {
	case 1:
		if strings.Contains(size, "+") {
			return numbers[0], math.MaxInt32
		}
		return numbers[0], numbers[0]
	case 2:
		return numbers[0], numbers[1]
	}
	return 0, 0
}

// CompanyType buckets a company by its lower employee bound.
func CompanyType(employees int) string {
	switch {
	case employees >= 1 && employees <= 50:
		return "Early-stage Startup"
	case employees >= 51 && employees <= 200:
		return "Growing Startup"
	case employees >= 201 && employees <= 1000:
		return "Mid-size Company"
	case employees >= 1001 && employees <= 5000:
		return "Large Company"
	case employees >= 5001:
		return "Enterprise"
	}
	return "Unknown Size"
}

type culture struct {
	language string
	work     []string
	business []string
}

var defaultCulture = culture{
	language: "English",
	work:     []string{"Professional environment", "Team collaboration", "Clear communication", "Result-oriented approach"},
	business: []string{"International standards", "Quality focus", "Customer orientation", "Professional development"},
}

var cultures = map[string]culture{
	"Germany": {
		language: "German",
		work:     []string{"Structured processes", "Thorough documentation", "Direct communication", "Work-life balance"},
		business: []string{"Quality engineering", "Long-term planning", "Formal hierarchy", "Data protection awareness"},
	},
	"Netherlands": {
		language: "Dutch and English",
		work:     []string{"Flat hierarchy", "Consensus decision making", "Direct feedback", "Work-life balance"},
		business: []string{"International orientation", "Pragmatism", "Sustainability", "Open communication"},
	},
	"United States": {
		language: "English",
		work:     []string{"Ownership and initiative", "Fast pace", "Measurable impact", "Self-promotion of results"},
		business: []string{"Customer focus", "Growth orientation", "Competitive markets", "Innovation"},
	},
	"United Kingdom": {
		language: "English",
		work:     []string{"Polite understatement", "Team collaboration", "Professional courtesy", "Structured delivery"},
		business: []string{"Regulatory awareness", "Stakeholder management", "Quality focus", "International standards"},
	},
}

// CulturalContext describes the working culture of the job's country and the
// company size, for the resume customization conversation.
func CulturalContext(job models.JobDetailedInfo) string {
	country := job.Country()
	employees, _ := ParseEmployeeCount(job.CompanySize)
	companyType := CompanyType(employees)

	c, ok := cultures[country]
	if !ok {
		c = defaultCulture
	}

	size := job.CompanySize
	if size == "" {
		size = "Unknown"
	}

	small := employees < 200
	pick := func(smallText, largeText string) string {
		if small {
			return smallText
		}
		return largeText
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Location: %s\n", country)
	fmt.Fprintf(&b, "Company type: %s (%s)\n", companyType, size)
	fmt.Fprintf(&b, "Working language: %s\n", c.language)
	b.WriteString("Work culture:\n")
	for _, item := range c.work {
		fmt.Fprintf(&b, "   - %s\n", item)
	}
	b.WriteString("Business context:\n")
	for _, item := range c.business {
		fmt.Fprintf(&b, "   - %s\n", item)
	}
	b.WriteString("Company size context:\n")
	fmt.Fprintf(&b, "   - %s environment\n", companyType)
	fmt.Fprintf(&b, "   - %s\n", pick("Rapid growth and adaptation", "Established processes"))
	fmt.Fprintf(&b, "   - %s\n", pick("Flexible roles and responsibilities", "Specialized roles"))
	fmt.Fprintf(&b, "   - %s\n", pick("Direct access to leadership", "Structured hierarchy"))
	return b.String()
}
