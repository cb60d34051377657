package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-quality/internal/models"
)

// Config captures the settings required to boot the quality orchestrator.
type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Thresholds   ThresholdsConfig   `yaml:"thresholds"`
	Server       ServerConfig       `yaml:"server"`
	Source       SourceConfig       `yaml:"source"`
	Logging      LoggingConfig      `yaml:"logging"`
	Rules        RulesConfig        `yaml:"rules"`
	Cache        CacheConfig        `yaml:"cache"`
	Alerts       AlertsConfig       `yaml:"alerts"`
}

// OrchestratorConfig controls the cycle schedule and enabled stages.
type OrchestratorConfig struct {
	Interval        time.Duration             `yaml:"interval" validate:"gt=0"`
	Dimensions      []string                  `yaml:"dimensions" validate:"dive,dimension"`
	HistoryWindow   time.Duration             `yaml:"historyWindow" validate:"gt=0"`
	HorizonDays     int                       `yaml:"horizonDays" validate:"gte=1,lte=365"`
	AutoRemediation bool                      `yaml:"autoRemediation"`
	Learning        bool                      `yaml:"learning"`
	FeedbackWindow  time.Duration             `yaml:"feedbackWindow" validate:"gte=0"`
	MaxAlerts       int                       `yaml:"maxAlerts" validate:"gte=0"`
	MaxActions      int                       `yaml:"maxActions" validate:"gte=0"`
	Remediation     models.RemediationContext `yaml:"remediation"`
}

// ThresholdsConfig holds the overall-score alert cutoffs.
type ThresholdsConfig struct {
	Critical float64 `yaml:"critical" validate:"gte=0,lte=100,ltefield=High"`
	High     float64 `yaml:"high" validate:"gte=0,lte=100,ltefield=Medium"`
	Medium   float64 `yaml:"medium" validate:"gte=0,lte=100"`
}

// ServerConfig controls the gRPC health listener and metrics endpoint.
type ServerConfig struct {
	Address         string        `yaml:"address" validate:"required"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout" validate:"gte=0"`
	Reflection      bool          `yaml:"reflection"`
}

// SourceConfig selects where quality metrics and feedback come from. A
// snapshot path takes precedence over the HTTP client.
type SourceConfig struct {
	BaseURL      string        `yaml:"baseURL" validate:"omitempty,url"`
	MetricsPath  string        `yaml:"metricsPath"`
	HistoryPath  string        `yaml:"historyPath"`
	FeedbackPath string        `yaml:"feedbackPath"`
	PatternsPath string        `yaml:"patternsPath"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	SnapshotPath string        `yaml:"snapshotPath"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig points at the remediation rule table.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls caching of historical metric windows.
type CacheConfig struct {
	Mode         string        `yaml:"mode" validate:"oneof=none memory redis"`
	URL          string        `yaml:"url"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db" validate:"gte=0"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries" validate:"gte=0"`
	TLS          bool          `yaml:"tls"`
	HistoryTTL   time.Duration `yaml:"historyTTL" validate:"gte=0"`
}

// AlertsConfig bounds how fast alerts are pushed to notification sinks.
type AlertsConfig struct {
	RatePerMinute float64 `yaml:"ratePerMinute" validate:"gte=0"`
	Burst         int     `yaml:"burst" validate:"gte=0"`
	WebhookURL    string  `yaml:"webhookURL" validate:"omitempty,url"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("dimension", func(fl validator.FieldLevel) bool {
		return models.Dimension(fl.Field().String()).Valid()
	})
	return v
}

// Load initialises Config from a YAML file and environment overrides, then
// validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_QUALITY_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints. Every failure wraps models.ErrConfiguration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config (%s): %w", strings.Join(msgs, "; "), models.ErrConfiguration)
		}
		return fmt.Errorf("invalid config: %v: %w", err, models.ErrConfiguration)
	}
	if c.Cache.Mode == "redis" && c.Cache.URL == "" && c.Cache.Addr == "" {
		return fmt.Errorf("redis cache requires url or addr: %w", models.ErrConfiguration)
	}
	if c.Orchestrator.Learning && c.Orchestrator.FeedbackWindow <= 0 {
		return fmt.Errorf("feedback window must be positive when learning is enabled: %w", models.ErrConfiguration)
	}
	return nil
}

// DimensionList converts configured dimension names into models values.
func (c *Config) DimensionList() []models.Dimension {
	out := make([]models.Dimension, 0, len(c.Orchestrator.Dimensions))
	for _, d := range c.Orchestrator.Dimensions {
		out = append(out, models.Dimension(d))
	}
	return out
}

func defaultConfig() Config {
	return Config{
		Orchestrator: OrchestratorConfig{
			Interval:       30 * time.Minute,
			HistoryWindow:  30 * 24 * time.Hour,
			HorizonDays:    30,
			Learning:       true,
			FeedbackWindow: 30 * 24 * time.Hour,
			MaxAlerts:      500,
			MaxActions:     1000,
			Remediation: models.RemediationContext{
				Environment:        "production",
				AvailableResources: []string{"ci-runner", "engineer", "reviewer"},
			},
		},
		Thresholds: ThresholdsConfig{Critical: 50, High: 70, Medium: 85},
		Server: ServerConfig{
			Address:         ":50052",
			MetricsAddress:  ":2113",
			GracefulTimeout: 10 * time.Second,
		},
		Source: SourceConfig{
			MetricsPath:  "/api/v1/quality/metrics",
			HistoryPath:  "/api/v1/quality/history",
			FeedbackPath: "/api/v1/quality/feedback",
			PatternsPath: "/api/v1/quality/patterns",
			Timeout:      5 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{Path: "configs/rules/remediation.yaml"},
		Cache: CacheConfig{
			Mode:         "memory",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			HistoryTTL:   5 * time.Minute,
		},
		Alerts: AlertsConfig{RatePerMinute: 30, Burst: 10},
	}
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = strings.EqualFold(v, "true") || v == "1"
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	dur("MIRADOR_QUALITY_INTERVAL", &cfg.Orchestrator.Interval)
	if v := os.Getenv("MIRADOR_QUALITY_DIMENSIONS"); v != "" {
		var dims []string
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dims = append(dims, d)
			}
		}
		cfg.Orchestrator.Dimensions = dims
	}
	flag("MIRADOR_QUALITY_AUTO_REMEDIATION", &cfg.Orchestrator.AutoRemediation)
	flag("MIRADOR_QUALITY_LEARNING", &cfg.Orchestrator.Learning)
	dur("MIRADOR_QUALITY_FEEDBACK_WINDOW", &cfg.Orchestrator.FeedbackWindow)
	integer("MIRADOR_QUALITY_MAX_ALERTS", &cfg.Orchestrator.MaxAlerts)
	str("MIRADOR_QUALITY_ENVIRONMENT", &cfg.Orchestrator.Remediation.Environment)

	float("MIRADOR_QUALITY_THRESHOLD_CRITICAL", &cfg.Thresholds.Critical)
	float("MIRADOR_QUALITY_THRESHOLD_HIGH", &cfg.Thresholds.High)
	float("MIRADOR_QUALITY_THRESHOLD_MEDIUM", &cfg.Thresholds.Medium)

	str("MIRADOR_QUALITY_SERVER_ADDRESS", &cfg.Server.Address)
	str("MIRADOR_QUALITY_METRICS_ADDRESS", &cfg.Server.MetricsAddress)
	flag("MIRADOR_QUALITY_REFLECTION", &cfg.Server.Reflection)

	str("MIRADOR_QUALITY_SOURCE_URL", &cfg.Source.BaseURL)
	str("MIRADOR_QUALITY_SNAPSHOT_PATH", &cfg.Source.SnapshotPath)
	dur("MIRADOR_QUALITY_SOURCE_TIMEOUT", &cfg.Source.Timeout)

	str("MIRADOR_QUALITY_LOG_LEVEL", &cfg.Logging.Level)
	if v := os.Getenv("MIRADOR_QUALITY_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = v == "json"
	}
	str("MIRADOR_QUALITY_RULES_PATH", &cfg.Rules.Path)

	str("MIRADOR_QUALITY_CACHE_MODE", &cfg.Cache.Mode)
	str("MIRADOR_QUALITY_CACHE_URL", &cfg.Cache.URL)
	str("MIRADOR_QUALITY_CACHE_ADDR", &cfg.Cache.Addr)
	str("MIRADOR_QUALITY_CACHE_USERNAME", &cfg.Cache.Username)
	str("MIRADOR_QUALITY_CACHE_PASSWORD", &cfg.Cache.Password)
	integer("MIRADOR_QUALITY_CACHE_DB", &cfg.Cache.DB)
	flag("MIRADOR_QUALITY_CACHE_TLS", &cfg.Cache.TLS)
	dur("MIRADOR_QUALITY_CACHE_HISTORY_TTL", &cfg.Cache.HistoryTTL)

	float("MIRADOR_QUALITY_ALERT_RATE", &cfg.Alerts.RatePerMinute)
	integer("MIRADOR_QUALITY_ALERT_BURST", &cfg.Alerts.Burst)
	str("MIRADOR_QUALITY_ALERT_WEBHOOK", &cfg.Alerts.WebhookURL)

	if len(errs) > 0 {
		return fmt.Errorf("env overrides: %w: %w", errors.Join(errs...), models.ErrConfiguration)
	}
	return nil
}
