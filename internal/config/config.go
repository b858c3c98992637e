// Package config loads visualgate settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kamilpajak/visualgate/pkg/models"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "visualgate.yaml"

// PathEnv names the environment variable that points at a config file.
const PathEnv = "VISUALGATE_CONFIG"

// Config is the full application configuration.
type Config struct {
	OutputDir  string          `yaml:"output_dir" validate:"required"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Judge      JudgeConfig     `yaml:"judge"`
	Browser    BrowserConfig   `yaml:"browser"`
	Store      StoreConfig     `yaml:"store"`
	Log        LogConfig       `yaml:"log"`
	Server     ServerConfig    `yaml:"server"`
}

// ThresholdConfig holds the escalation band, in percent.
type ThresholdConfig struct {
	Pass float64 `yaml:"pass" validate:"gte=0,ltfield=Fail"`
	Fail float64 `yaml:"fail" validate:"lte=100"`
}

// JudgeConfig selects the vision model used in the gray zone.
type JudgeConfig struct {
	Provider          string        `yaml:"provider" validate:"omitempty,oneof=google openai anthropic"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=0"`
	Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
}

// BrowserConfig selects the rendering backend.
type BrowserConfig struct {
	Engine     string          `yaml:"engine" validate:"oneof=playwright rod"`
	Headless   bool            `yaml:"headless"`
	ChromePath string          `yaml:"chrome_path"`
	Viewport   models.Viewport `yaml:"viewport"`
}

// StoreConfig selects where results are persisted. An empty driver disables
// persistence.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"omitempty,oneof=postgres sqlite"`
	DSN    string `yaml:"dsn" validate:"required_with=Driver"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level      string `yaml:"level" validate:"loglevel"`
	Format     string `yaml:"format" validate:"logformat"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

// ServerConfig configures the HTTP API. AllowedOrigins lists the browser
// origins, besides the server's own, that may call it.
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gt=0,lte=65535"`
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir: "./visual-diffs",
		Thresholds: ThresholdConfig{
			Pass: models.DefaultPassThreshold,
			Fail: models.DefaultFailThreshold,
		},
		Judge: JudgeConfig{
			Provider:          "google",
			RequestsPerMinute: 30,
			Timeout:           60 * time.Second,
		},
		Browser: BrowserConfig{
			Engine:   "playwright",
			Headless: true,
			Viewport: models.Viewport{Width: 1280, Height: 800},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Server: ServerConfig{Port: 8080},
	}
}

// ResolvePath picks the config file: the explicit flag, then PathEnv, then
// DefaultFile in the working directory. It returns "" when none exists.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	if info, err := os.Stat(DefaultFile); err == nil && !info.IsDir() {
		return DefaultFile
	}
	return ""
}

// Load reads the config at ResolvePath(flag) over the defaults, applies
// environment overrides and validates the result. An explicitly named file
// that does not exist is an error.
func Load(flag string) (*Config, error) {
	cfg := Default()

	if path := ResolvePath(flag); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var apiKeyEnv = map[string]string{
	"google":    "GOOGLE_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

func (c *Config) applyEnv() error {
	if c.Judge.APIKey == "" {
		if env, ok := apiKeyEnv[c.Judge.Provider]; ok {
			c.Judge.APIKey = os.Getenv(env)
		}
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Store.DSN = dsn
		if c.Store.Driver == "" {
			c.Store.Driver = "postgres"
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Server.Port = p
	}
	return nil
}

// HasJudge reports whether a judge can be constructed.
func (c *Config) HasJudge() bool {
	return c.Judge.Provider != "" && c.Judge.APIKey != ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
			return true
		}
		return false
	})
	_ = v.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "console", "json":
			return true
		}
		return false
	})
	return v
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
