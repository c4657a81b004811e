package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LinkedIn struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"linkedin"`
	Search struct {
		Locations []string `yaml:"locations"`
		JobTitles []string `yaml:"job_titles"`
		Companies []string `yaml:"companies"`
		// RelevanceKeywords gates discovered job titles; entries whose title
		// matches none of these are discarded as off-target.
		RelevanceKeywords []string `yaml:"relevance_keywords"`
		LiveVerification  bool     `yaml:"live_verification"`
	} `yaml:"search"`
	Limits struct {
		MaxProspectsPerRun int `yaml:"max_prospects_per_run"`
		MaxSearchesPerRun  int `yaml:"max_searches_per_run"`
		MaxRequestsPerRun  int `yaml:"max_requests_per_run"`
	} `yaml:"limits"`
	Cooldowns struct {
		// All values in seconds; each pair is a uniform random range.
		SearchMin    int `yaml:"search_min"`
		SearchMax    int `yaml:"search_max"`
		RequestMin   int `yaml:"request_min"`
		RequestMax   int `yaml:"request_max"`
		RateLimitMin int `yaml:"rate_limit_min"`
		RateLimitMax int `yaml:"rate_limit_max"`
	} `yaml:"cooldowns"`
	Locator struct {
		Path string `yaml:"path"`
	} `yaml:"locator"`
	AI struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		TimeoutSec  int     `yaml:"timeout_sec"`
	} `yaml:"ai"`
	Stealth struct {
		Headless          bool   `yaml:"headless"`
		UserAgent         string `yaml:"user_agent"`
		ViewportWidthMin  int    `yaml:"viewport_width_min"`
		ViewportWidthMax  int    `yaml:"viewport_width_max"`
		ViewportHeightMin int    `yaml:"viewport_height_min"`
		ViewportHeightMax int    `yaml:"viewport_height_max"`
	} `yaml:"stealth"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional
	cfg := defaultConfig()
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	var cfg Config
	cfg.LinkedIn.BaseURL = "https://www.linkedin.com/"
	cfg.Search.Locations = []string{"United States", "Germany", "United Kingdom", "Belgium"}
	cfg.Search.JobTitles = []string{"Hiring Manager", "Talent Acquisition", "Recruiter"}
	cfg.Search.RelevanceKeywords = []string{"hiring", "talent", "recruit", "hr", "people", "human resources"}
	cfg.Search.LiveVerification = false
	cfg.Limits.MaxProspectsPerRun = 50
	cfg.Limits.MaxSearchesPerRun = 10
	cfg.Limits.MaxRequestsPerRun = 9
	cfg.Cooldowns.SearchMin = 180
	cfg.Cooldowns.SearchMax = 600
	cfg.Cooldowns.RequestMin = 30
	cfg.Cooldowns.RequestMax = 120
	cfg.Cooldowns.RateLimitMin = 300
	cfg.Cooldowns.RateLimitMax = 900
	cfg.Locator.Path = "selectors.yaml"
	cfg.AI.BaseURL = "https://api.groq.com/openai/v1"
	cfg.AI.Model = "llama-3.1-8b-instant"
	cfg.AI.Temperature = 0.2
	cfg.AI.MaxTokens = 300
	cfg.AI.TimeoutSec = 30
	cfg.Stealth.Headless = false
	cfg.Stealth.ViewportWidthMin = 1280
	cfg.Stealth.ViewportWidthMax = 1680
	cfg.Stealth.ViewportHeightMin = 720
	cfg.Stealth.ViewportHeightMax = 1050
	cfg.Database.Path = "outreachbot.db"
	cfg.Logging.Level = "info"
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OUTREACHBOT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("OUTREACHBOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OUTREACHBOT_HEADLESS"); v == "1" || v == "true" {
		cfg.Stealth.Headless = true
	}
	if v := os.Getenv("OUTREACHBOT_SELECTORS"); v != "" {
		cfg.Locator.Path = v
	}
}

func validate(cfg *Config) error {
	if cfg.LinkedIn.BaseURL == "" {
		return errors.New("linkedin.base_url is required")
	}
	if cfg.Limits.MaxProspectsPerRun <= 0 {
		return errors.New("limits.max_prospects_per_run must be > 0")
	}
	if cfg.Limits.MaxSearchesPerRun <= 0 {
		return errors.New("limits.max_searches_per_run must be > 0")
	}
	if cfg.Limits.MaxRequestsPerRun <= 0 {
		return errors.New("limits.max_requests_per_run must be > 0")
	}
	if cfg.Cooldowns.SearchMax < cfg.Cooldowns.SearchMin ||
		cfg.Cooldowns.RequestMax < cfg.Cooldowns.RequestMin ||
		cfg.Cooldowns.RateLimitMax < cfg.Cooldowns.RateLimitMin {
		return errors.New("cooldown ranges must have max >= min")
	}
	return nil
}
