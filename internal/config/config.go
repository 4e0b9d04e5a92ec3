// Package config loads vettavista settings with viper and notifies observers
// when they are reloaded.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/vettavista/internal/models"
)

const App = "vettavista"

type Settings struct {
	Server    ServerConfig  `mapstructure:"server"`
	Storage   StorageConfig `mapstructure:"storage"`
	OutputDir string        `mapstructure:"output-dir" validate:"required"`
	WorkDir   string        `mapstructure:"work-dir" validate:"required"`
	Filter    FilterConfig  `mapstructure:"filter"`
	Search    SearchConfig  `mapstructure:"search"`
	Profile   ProfileConfig `mapstructure:"profile"`
	AI        AIConfig      `mapstructure:"ai"`
	Redis     RedisConfig   `mapstructure:"redis"`
	Latex     LatexConfig   `mapstructure:"latex"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type StorageConfig struct {
	Dir            string        `mapstructure:"dir" validate:"required"`
	HistoryFile    string        `mapstructure:"history-file" validate:"required"`
	BlacklistFile  string        `mapstructure:"blacklist-file" validate:"required"`
	BackupInterval time.Duration `mapstructure:"backup-interval"`
}

type FilterConfig struct {
	HighThreshold    float64       `mapstructure:"high-threshold" validate:"gte=0,lte=1,gtefield=LowThreshold"`
	LowThreshold     float64       `mapstructure:"low-threshold" validate:"gte=0,lte=1"`
	TitleCacheSize   int           `mapstructure:"title-cache-size" validate:"gte=0"`
	ExperienceMargin float64       `mapstructure:"experience-margin" validate:"gte=0"`
	SkillMatchRatio  float64       `mapstructure:"skill-match-ratio" validate:"gt=0,lte=1"`
	TitleSimilarity  float64       `mapstructure:"relevant-title-similarity" validate:"gt=0,lte=1"`
	CacheTTL         time.Duration `mapstructure:"cache-ttl" validate:"gt=0"`
}

type SearchConfig struct {
	PreferredTitles       []string `mapstructure:"preferred-titles"`
	BadWords              []string `mapstructure:"bad-words"`
	SkipRequiredSkills    []string `mapstructure:"skip-required-skills"`
	LangDetectRemoveWords []string `mapstructure:"lang-detect-remove-words"`
}

type ProfileConfig struct {
	Personals models.Personals `mapstructure:"personals"`
	Resume    models.Resume    `mapstructure:"resume"`
}

type AIConfig struct {
	Provider    string       `mapstructure:"provider" validate:"oneof=gemini"`
	Concurrency int64        `mapstructure:"concurrency" validate:"gte=1"`
	Gemini      GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key" json:"-"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries" validate:"gte=1"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

type LatexConfig struct {
	ResumeEngine      string `mapstructure:"resume-engine"`
	CoverLetterEngine string `mapstructure:"cover-letter-engine"`
}

// Languages returns the candidate's spoken languages, upper-cased.
func (s *Settings) Languages() []string {
	if s == nil {
		return nil
	}
	return s.Profile.Resume.SpokenLanguages()
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	dataDir := filepath.Join(".", App)
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, "Documents", App)
	}

	v.SetDefault("server.addr", "127.0.0.1:8000")
	v.SetDefault("server.shutdown-timeout", 10*time.Second)

	v.SetDefault("storage.dir", dataDir)
	v.SetDefault("storage.history-file", "job_history.csv")
	v.SetDefault("storage.blacklist-file", "blacklist.csv")
	v.SetDefault("storage.backup-interval", 24*time.Hour)

	v.SetDefault("output-dir", filepath.Join(dataDir, "applications"))
	v.SetDefault("work-dir", filepath.Join(os.TempDir(), App))

	v.SetDefault("filter.high-threshold", 0.8)
	v.SetDefault("filter.low-threshold", 0.45)
	v.SetDefault("filter.title-cache-size", 1000)
	v.SetDefault("filter.experience-margin", 1.0)
	v.SetDefault("filter.skill-match-ratio", 0.5)
	v.SetDefault("filter.relevant-title-similarity", 0.85)
	v.SetDefault("filter.cache-ttl", 7*24*time.Hour)

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.concurrency", 2)
	v.SetDefault("ai.gemini.model", "gemini-2.5-pro")
	v.SetDefault("ai.gemini.embedding-model", "text-embedding-004")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)

	v.SetDefault("redis.prefix", App+":embedding:")

	v.SetDefault("latex.resume-engine", "pdflatex")
	v.SetDefault("latex.cover-letter-engine", "xelatex")
}

// Default returns settings built from defaults only.
func Default() *Settings {
	v := viper.New()
	SetDefaults(v)
	var s Settings
	_ = v.Unmarshal(&s)
	return &s
}
