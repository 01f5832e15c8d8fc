package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

const (
	defaultPort   = 8080
	defaultRegion = "europe-west1"
	defaultModel  = "gemini-2.5-flash"
)

// Config holds everything the server and the solve command need.
//
// Values come from defaults, then an optional HCL file, then the
// environment; later sources win.
type Config struct {
	Port         int    `hcl:"port,optional"`
	LogLevel     string `hcl:"log_level,optional"`
	LogFormat    string `hcl:"log_format,optional"`
	SolveWorkers int    `hcl:"solve_workers,optional"`

	Gemini *GeminiConfig `hcl:"gemini,block"`
	Limits *LimitsConfig `hcl:"limits,block"`
}

// GeminiConfig configures puzzle photo analysis. An empty ProjectID
// disables it.
type GeminiConfig struct {
	ProjectID string `hcl:"project_id,optional"`
	Region    string `hcl:"region,optional"`
	Model     string `hcl:"model,optional"`
}

// LimitsConfig sets per-IP request budgets.
type LimitsConfig struct {
	UploadsPerMinute int `hcl:"uploads_per_minute,optional"`
	ClaimsPerSecond  int `hcl:"claims_per_second,optional"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Port:         defaultPort,
		LogLevel:     "info",
		LogFormat:    "text",
		SolveWorkers: 4,
		Gemini: &GeminiConfig{
			Region: defaultRegion,
			Model:  defaultModel,
		},
		Limits: &LimitsConfig{
			UploadsPerMinute: 5,
			ClaimsPerSecond:  30,
		},
	}
}

// LoadConfig builds a Config from defaults, the HCL file at path (skipped
// when path is empty) and the environment, then validates it.
func LoadConfig(path string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile overlays attributes from an HCL file. Absent attributes and
// blocks leave the defaults in place.
func (c *Config) decodeFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	var parsed Config
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	if parsed.Port != 0 {
		c.Port = parsed.Port
	}
	if parsed.LogLevel != "" {
		c.LogLevel = parsed.LogLevel
	}
	if parsed.LogFormat != "" {
		c.LogFormat = parsed.LogFormat
	}
	if parsed.SolveWorkers != 0 {
		c.SolveWorkers = parsed.SolveWorkers
	}
	if g := parsed.Gemini; g != nil {
		if g.ProjectID != "" {
			c.Gemini.ProjectID = g.ProjectID
		}
		if g.Region != "" {
			c.Gemini.Region = g.Region
		}
		if g.Model != "" {
			c.Gemini.Model = g.Model
		}
	}
	if l := parsed.Limits; l != nil {
		if l.UploadsPerMinute != 0 {
			c.Limits.UploadsPerMinute = l.UploadsPerMinute
		}
		if l.ClaimsPerSecond != 0 {
			c.Limits.ClaimsPerSecond = l.ClaimsPerSecond
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	if v := getenv("GCP_PROJECT_ID"); v != "" {
		c.Gemini.ProjectID = v
	}
	if v := getenv("GCP_REGION"); v != "" {
		c.Gemini.Region = v
	}
	if v := getenv("GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	return nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log_level %q: must be 'debug', 'info', 'warn', or 'error'", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log_format %q: must be 'text' or 'json'", c.LogFormat))
	}
	if c.SolveWorkers < 1 {
		errs = append(errs, errors.New("solve_workers must be positive"))
	}
	if c.Limits.UploadsPerMinute < 1 || c.Limits.ClaimsPerSecond < 1 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// uploadWindow and claimWindow are the refill intervals matching the
// per-minute and per-second budgets in LimitsConfig.
const (
	uploadWindow = time.Minute
	claimWindow  = time.Second
)
