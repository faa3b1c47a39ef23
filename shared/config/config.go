package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"video-analytics/internal/models"
	"video-analytics/shared/logging"
	"video-analytics/shared/pipeline"
	"video-analytics/shared/scoring"
)

type Config struct {
	YouTube    YouTubeConfig         `yaml:"youtube"`
	Votes      VotesConfig           `yaml:"votes"`
	Enrichment pipeline.EnrichConfig `yaml:"enrichment"`
	Scoring    scoring.Params        `yaml:"scoring"`
	Ranking    RankingConfig         `yaml:"ranking"`
	AI         AIConfig              `yaml:"ai"`
	Logging    logging.Config        `yaml:"logging"`
	Monitoring MonitoringConfig      `yaml:"monitoring"`
	Email      EmailConfig           `yaml:"email"`
	Schedule   string                `yaml:"schedule"`
	Watchlist  []WatchlistEntry      `yaml:"watchlist"`
}

type YouTubeConfig struct {
	APIKey string `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	// Endpoint overrides the Data API base URL.
	Endpoint       string        `yaml:"endpoint"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SearchLimit    int           `yaml:"search_limit"`
}

type VotesConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

type RankingConfig struct {
	Weights scoring.Weights `yaml:"weights"`
	Top     int             `yaml:"top"`
}

type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string `yaml:"model"`
	Language     string `yaml:"language"`
	Comments     int    `yaml:"comments"`
}

// EmailConfig enables the watchlist digest when SMTPServer and ToEmail are set.
type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

func (e EmailConfig) Enabled() bool {
	return e.SMTPServer != "" && e.ToEmail != ""
}

type MonitoringConfig struct {
	HealthPort string `yaml:"health_port" env:"PORT"`
}

// WatchlistEntry is an input the scheduled agent analyzes on every tick.
type WatchlistEntry struct {
	Name  string           `yaml:"name"`
	Kind  models.InputKind `yaml:"kind"`
	Input string           `yaml:"input"`
	Limit int              `yaml:"limit"`
}

// Label names the entry in logs.
func (w WatchlistEntry) Label() string {
	if w.Name != "" {
		return w.Name
	}
	return w.Kind.String() + ":" + w.Input
}

// Load reads CONFIG_FILE (default config.yaml) and .env. A missing config file
// is not an error: defaults and environment variables are enough for one-off
// runs.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	return LoadFile(configFile)
}

// LoadFile is Load for an explicit path.
func LoadFile(configFile string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Monitoring.HealthPort == "" {
		c.Monitoring.HealthPort = os.Getenv("PORT")
	}
	if c.Email.Username == "" {
		c.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if c.Email.Password == "" {
		c.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func (c *Config) applyDefaults() {
	if c.YouTube.RequestTimeout <= 0 {
		c.YouTube.RequestTimeout = 15 * time.Second
	}
	c.YouTube.SearchLimit = pipeline.ClampSearchLimit(c.YouTube.SearchLimit)

	if c.Votes.BaseURL == "" {
		c.Votes.BaseURL = "https://returnyoutubedislikeapi.com"
	}
	if c.Votes.RequestTimeout <= 0 {
		c.Votes.RequestTimeout = 10 * time.Second
	}
	if c.Votes.CacheTTL == 0 {
		c.Votes.CacheTTL = 30 * time.Minute
	}

	if c.Enrichment.RequestTimeout <= 0 {
		c.Enrichment.RequestTimeout = c.Votes.RequestTimeout
	}
	c.Enrichment = c.Enrichment.WithDefaults()
	c.Scoring = c.Scoring.WithDefaults()

	if len(c.Ranking.Weights) == 0 {
		c.Ranking.Weights = scoring.DefaultWeights()
	}
	if c.Ranking.Top <= 0 {
		c.Ranking.Top = 10
	}

	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.AI.Language == "" {
		c.AI.Language = "English"
	}
	if c.AI.Comments <= 0 {
		c.AI.Comments = 100
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Monitoring.HealthPort == "" {
		c.Monitoring.HealthPort = "8080"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.FromEmail == "" {
		c.Email.FromEmail = c.Email.Username
	}
	if c.Schedule == "" {
		c.Schedule = "0 0 */6 * * *" // every 6 hours
	}
}

func (c *Config) validate() error {
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("YouTube API key is required (set YOUTUBE_API_KEY or youtube.api_key)")
	}
	for metric, weight := range c.Ranking.Weights {
		if _, err := scoring.ParseMetric(string(metric)); err != nil {
			return fmt.Errorf("ranking.weights: %w", err)
		}
		if weight < 0 {
			return fmt.Errorf("ranking.weights.%s must not be negative", metric)
		}
	}
	if c.Email.Enabled() && c.Email.FromEmail == "" {
		return fmt.Errorf("email.from_email or email.username is required to send the digest")
	}
	for i, entry := range c.Watchlist {
		if entry.Kind == 0 {
			return fmt.Errorf("watchlist[%d]: kind is required", i)
		}
		if entry.Input == "" {
			return fmt.Errorf("watchlist[%d] (%s): input is required", i, entry.Kind)
		}
	}
	return nil
}

// RequireAI checks the settings needed for comment analysis.
func (c *Config) RequireAI() error {
	if c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	return nil
}
