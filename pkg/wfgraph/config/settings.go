package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Settings are the engine and capability settings read by the wfgraph
// command and by embedders that prefer file configuration.
type Settings struct {
	// MaxConcurrency bounds how many nodes of one stage run at once.
	// Zero means unbounded.
	MaxConcurrency int

	LogLevel  slog.Level
	LogFormat string // "text" or "json"

	Metrics bool
	Tracing bool

	// StorePath is the SQLite file run results are saved to. Empty keeps
	// results in memory only.
	StorePath string

	HTTPTimeout     time.Duration
	HTTPRateLimit   float64 // requests per second, 0 = unlimited
	HTTPBurst       int
	HTTPMaxAttempts int

	LLMClaudePath  string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMMaxAttempts int
}

// DefaultSettings returns the settings used for missing keys.
func DefaultSettings() Settings {
	return Settings{
		MaxConcurrency:  0,
		LogLevel:        slog.LevelInfo,
		LogFormat:       "text",
		HTTPTimeout:     30 * time.Second,
		HTTPBurst:       1,
		HTTPMaxAttempts: 1,
		LLMClaudePath:   "claude",
		LLMTimeout:      5 * time.Minute,
		LLMMaxAttempts:  3,
	}
}

// LoadSettings reads Settings from c, falling back to DefaultSettings for
// missing keys, and validates them.
func LoadSettings(c Config) (Settings, error) {
	d := DefaultSettings()
	s := Settings{
		MaxConcurrency:  c.Int("max_concurrency", d.MaxConcurrency),
		LogFormat:       strings.ToLower(c.String("log.format", d.LogFormat)),
		Metrics:         c.Bool("metrics", d.Metrics),
		Tracing:         c.Bool("tracing", d.Tracing),
		StorePath:       c.String("store.path", d.StorePath),
		HTTPTimeout:     c.Duration("http.timeout", d.HTTPTimeout),
		HTTPRateLimit:   c.Float("http.rate_limit", d.HTTPRateLimit),
		HTTPBurst:       c.Int("http.burst", d.HTTPBurst),
		HTTPMaxAttempts: c.Int("http.max_attempts", d.HTTPMaxAttempts),
		LLMClaudePath:   c.String("llm.claude_path", d.LLMClaudePath),
		LLMModel:        c.String("llm.model", d.LLMModel),
		LLMTimeout:      c.Duration("llm.timeout", d.LLMTimeout),
		LLMMaxAttempts:  c.Int("llm.max_attempts", d.LLMMaxAttempts),
	}

	var errs []string
	if err := s.LogLevel.UnmarshalText([]byte(c.String("log.level", d.LogLevel.String()))); err != nil {
		errs = append(errs, fmt.Sprintf("log.level: %v", err))
	}
	if s.LogFormat != "text" && s.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("log.format: want text or json, got %q", s.LogFormat))
	}
	if s.MaxConcurrency < 0 {
		errs = append(errs, "max_concurrency: must not be negative")
	}
	if s.HTTPRateLimit < 0 {
		errs = append(errs, "http.rate_limit: must not be negative")
	}
	if s.HTTPMaxAttempts < 1 {
		errs = append(errs, "http.max_attempts: must be at least 1")
	}
	if s.LLMMaxAttempts < 1 {
		errs = append(errs, "llm.max_attempts: must be at least 1")
	}
	if len(errs) > 0 {
		return Settings{}, fmt.Errorf("invalid settings: %s", strings.Join(errs, "; "))
	}
	return s, nil
}
