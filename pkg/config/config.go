package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:briefwire.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Schedule ScheduleConfig `yaml:"schedule" json:"schedule" jsonschema:"description=Poller and batch scheduling"`

	Fetch FetchConfig `yaml:"fetch" json:"fetch" jsonschema:"description=Feed fetching configuration"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for brief generation"`

	Brief BriefConfig `yaml:"brief" json:"brief" jsonschema:"description=Brief policy configuration"`

	Quota QuotaConfig `yaml:"quota" json:"quota" jsonschema:"description=Daily quota configuration"`

	Extraction ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Full-text enrichment configuration"`

	Sources []SourceConfig `yaml:"sources" json:"sources" jsonschema:"description=Feed sources to poll"`
}

// ScheduleConfig holds poller cadences and batch limits
type ScheduleConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval" jsonschema:"default=30s,description=Interval between feed sweeps"`
	BatchInterval time.Duration `yaml:"batch_interval" json:"batch_interval" jsonschema:"default=30m,description=Interval between processing batches"`
	StartupDelay  time.Duration `yaml:"startup_delay" json:"startup_delay" jsonschema:"default=5s,description=Delay before the first sweep"`
	BatchDeadline time.Duration `yaml:"batch_deadline" json:"batch_deadline" jsonschema:"default=10m,description=Wall-clock deadline for one batch"`
	MaxWorkers    int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=8,description=Maximum concurrent feed fetches per sweep"`
}

// FetchConfig holds per-source fetch settings
type FetchConfig struct {
	Timeout         time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=15s,description=Hard timeout for a single feed fetch"`
	MaxAttempts     int           `yaml:"max_attempts" json:"max_attempts" jsonschema:"default=3,description=Retry attempts per fetch invocation"`
	RetryDelay      time.Duration `yaml:"retry_delay" json:"retry_delay" jsonschema:"default=2s,description=Initial inter-attempt delay"`
	RetryMultiplier float64       `yaml:"retry_multiplier" json:"retry_multiplier" jsonschema:"default=1.5,description=Delay multiplier per failed attempt"`
	MaxArticles     int           `yaml:"max_articles" json:"max_articles" jsonschema:"default=50,description=Maximum items taken from a single feed"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=briefwire/1.0 rss-collector,description=User agent for feed requests"`
}

// LLMConfig holds LLM configuration for brief generation
type LLMConfig struct {
	Endpoint      string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey        string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model         string        `yaml:"model" json:"model" jsonschema:"required,description=Model name (e.g. gpt-4o-mini)"`
	Temperature   float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.2,description=Temperature for response generation"`
	MaxTokens     int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=1200,minimum=900,maximum=1400,description=Maximum tokens in response"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=60s,description=Hard timeout per LLM call"`
	PromptVersion string        `yaml:"prompt_version" json:"prompt_version" jsonschema:"default=v2,description=Prompt version recorded in brief metadata"`
	InputRate     float64       `yaml:"input_rate" json:"input_rate" jsonschema:"default=0.15,description=Cost per 1M input tokens in USD"`
	OutputRate    float64       `yaml:"output_rate" json:"output_rate" jsonschema:"default=0.6,description=Cost per 1M output tokens in USD"`
}

// BriefConfig holds editorial policy for generated briefs. Two canonical
// profiles exist: standard (180-260 words) and extended (400-500 words).
// Explicit min/max words override the profile band.
type BriefConfig struct {
	Profile       string `yaml:"profile" json:"profile" jsonschema:"default=standard,enum=standard,enum=extended,description=Word band profile"`
	MinWords      int    `yaml:"min_words" json:"min_words" jsonschema:"description=Lower word bound (overrides profile)"`
	MaxWords      int    `yaml:"max_words" json:"max_words" jsonschema:"description=Upper word bound (overrides profile)"`
	MinSources    int    `yaml:"min_sources" json:"min_sources" jsonschema:"default=1,description=Minimum sources per brief"`
	InitialStatus string `yaml:"initial_status" json:"initial_status" jsonschema:"default=pending,description=Status assigned to freshly generated briefs"`
	MaxExpansions int    `yaml:"max_expansions" json:"max_expansions" jsonschema:"default=3,description=Expansion attempts before deterministic filler"`
}

// QuotaConfig holds daily article quotas
type QuotaConfig struct {
	DailyLimit     int `yaml:"daily_limit" json:"daily_limit" jsonschema:"default=150,description=Total articles stored per local day"`
	PerCategoryMax int `yaml:"per_category_max" json:"per_category_max" jsonschema:"default=50,description=Maximum articles per category per day"`
}

// ExtractionConfig holds full-text enrichment settings
type ExtractionConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable full-text enrichment before rewriting"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Extraction timeout per article"`
	MinTextLength int           `yaml:"min_text_length" json:"min_text_length" jsonschema:"default=400,description=Articles with shorter content get enriched"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=briefwire/1.0,description=User agent for article requests"`
}

// SourceConfig describes a single feed source
type SourceConfig struct {
	ID       string `yaml:"id" json:"id" jsonschema:"required,description=Stable source identifier"`
	Name     string `yaml:"name" json:"name" jsonschema:"description=Display name"`
	URL      string `yaml:"url" json:"url" jsonschema:"required,description=Feed URL"`
	Category string `yaml:"category" json:"category" jsonschema:"required,enum=US_NATIONAL,enum=INTERNATIONAL,enum=FINANCE_MACRO,description=Topical category"`
	Active   bool   `yaml:"active" json:"active" jsonschema:"default=true,description=Whether the source is polled"`
}

// word band profiles exposed through BriefConfig.Profile
var briefProfiles = map[string][2]int{
	"standard": {180, 260},
	"extended": {400, 500},
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// setDefaults fills zero values with spec defaults
func setDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:briefwire.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	if cfg.Schedule.SweepInterval == 0 {
		cfg.Schedule.SweepInterval = 30 * time.Second
	}
	if cfg.Schedule.BatchInterval == 0 {
		cfg.Schedule.BatchInterval = 30 * time.Minute
	}
	if cfg.Schedule.StartupDelay == 0 {
		cfg.Schedule.StartupDelay = 5 * time.Second
	}
	if cfg.Schedule.BatchDeadline == 0 {
		cfg.Schedule.BatchDeadline = 10 * time.Minute
	}
	if cfg.Schedule.MaxWorkers == 0 {
		cfg.Schedule.MaxWorkers = 8
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 15 * time.Second
	}
	if cfg.Fetch.MaxAttempts == 0 {
		cfg.Fetch.MaxAttempts = 3
	}
	if cfg.Fetch.RetryDelay == 0 {
		cfg.Fetch.RetryDelay = 2 * time.Second
	}
	if cfg.Fetch.RetryMultiplier == 0 {
		cfg.Fetch.RetryMultiplier = 1.5
	}
	if cfg.Fetch.MaxArticles == 0 {
		cfg.Fetch.MaxArticles = 50
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "briefwire/1.0 rss-collector"
	}

	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1200
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.LLM.PromptVersion == "" {
		cfg.LLM.PromptVersion = "v2"
	}
	if cfg.LLM.InputRate == 0 {
		cfg.LLM.InputRate = 0.15
	}
	if cfg.LLM.OutputRate == 0 {
		cfg.LLM.OutputRate = 0.60
	}

	if cfg.Brief.Profile == "" {
		cfg.Brief.Profile = "standard"
	}
	if band, ok := briefProfiles[cfg.Brief.Profile]; ok {
		if cfg.Brief.MinWords == 0 {
			cfg.Brief.MinWords = band[0]
		}
		if cfg.Brief.MaxWords == 0 {
			cfg.Brief.MaxWords = band[1]
		}
	}
	if cfg.Brief.MinSources == 0 {
		cfg.Brief.MinSources = 1
	}
	if cfg.Brief.InitialStatus == "" {
		cfg.Brief.InitialStatus = "pending"
	}
	if cfg.Brief.MaxExpansions == 0 {
		cfg.Brief.MaxExpansions = 3
	}

	if cfg.Quota.DailyLimit == 0 {
		cfg.Quota.DailyLimit = 150
	}
	if cfg.Quota.PerCategoryMax == 0 {
		cfg.Quota.PerCategoryMax = 50
	}

	if cfg.Extraction.Timeout == 0 {
		cfg.Extraction.Timeout = 30 * time.Second
	}
	if cfg.Extraction.MinTextLength == 0 {
		cfg.Extraction.MinTextLength = 400
	}
	if cfg.Extraction.UserAgent == "" {
		cfg.Extraction.UserAgent = "briefwire/1.0"
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}

	if _, ok := briefProfiles[cfg.Brief.Profile]; !ok {
		return fmt.Errorf("brief.profile must be one of standard, extended")
	}
	if cfg.Brief.MinWords >= cfg.Brief.MaxWords {
		return fmt.Errorf("brief.min_words must be below brief.max_words")
	}
	if cfg.Brief.MinSources < 1 {
		return fmt.Errorf("brief.min_sources must be at least 1")
	}
	switch cfg.Brief.InitialStatus {
	case "pending", "approved", "published":
	default:
		return fmt.Errorf("brief.initial_status must be one of pending, approved, published")
	}

	if cfg.Quota.DailyLimit < 1 {
		return fmt.Errorf("quota.daily_limit must be positive")
	}
	if cfg.Quota.PerCategoryMax < 1 {
		return fmt.Errorf("quota.per_category_max must be positive")
	}

	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	seen := make(map[string]bool)
	urls := make(map[string]bool)
	for _, src := range cfg.Sources {
		if src.ID == "" || src.URL == "" {
			return fmt.Errorf("source id and url are required")
		}
		if seen[src.ID] {
			return fmt.Errorf("duplicate source id %q", src.ID)
		}
		if urls[src.URL] {
			return fmt.Errorf("duplicate source url %q", src.URL)
		}
		seen[src.ID] = true
		urls[src.URL] = true
		switch src.Category {
		case "US_NATIONAL", "INTERNATIONAL", "FINANCE_MACRO":
		default:
			return fmt.Errorf("source %s: unknown category %q", src.ID, src.Category)
		}
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetLLMConfig returns LLM configuration
func (c *Config) GetLLMConfig() LLMConfig {
	return c.LLM
}

// GetBriefConfig returns brief policy configuration
func (c *Config) GetBriefConfig() BriefConfig {
	return c.Brief
}
