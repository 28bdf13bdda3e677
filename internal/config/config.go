package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Env var overrides for values that should not live in a checked-in file.
const (
	EnvJWTSecret = "COACHD_JWT_SECRET"
	EnvRedisAddr = "COACHD_REDIS_ADDR"
	EnvNLPURL    = "COACHD_NLP_URL"
)

type Server struct {
	ListenAddr string `yaml:"listen_addr"`
	AdminAddr  string `yaml:"admin_addr"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type NLP struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Analysis holds analyzer configuration shared by every session unless
// the session overrides it.
type Analysis struct {
	Enabled            []string `yaml:"enabled"`
	Competitors        []string `yaml:"competitors"`
	ObjectionKeywords  []string `yaml:"objection_keywords"`
	MonologueThreshold int      `yaml:"monologue_threshold"`
	DominancePercent   int      `yaml:"dominance_percent"`
	DebounceMs         int      `yaml:"debounce_ms"`
	WindowSize         int      `yaml:"window_size"`
}

type Sessions struct {
	GraceSeconds  int    `yaml:"grace_seconds"`
	TTLMinutes    int    `yaml:"ttl_minutes"`
	SweepSchedule string `yaml:"sweep_schedule"`
}

type Root struct {
	LogLevel string   `yaml:"log_level"`
	Server   Server   `yaml:"server"`
	Redis    Redis    `yaml:"redis"`
	Auth     Auth     `yaml:"auth"`
	NLP      NLP      `yaml:"nlp"`
	Analysis Analysis `yaml:"analysis"`
	Sessions Sessions `yaml:"sessions"`
}

// Load reads the config file at path, fills defaults, and applies env
// overrides. An empty path skips the file and uses defaults + env only.
func Load(path string) (*Root, error) {
	cfg := defaults()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %s: %w", path, err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvJWTSecret); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv(EnvNLPURL); v != "" {
		cfg.NLP.URL = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Root {
	return &Root{
		LogLevel: "info",
		Server: Server{
			ListenAddr: ":8080",
			AdminAddr:  ":8081",
		},
		Redis: Redis{Addr: "localhost:6379"},
		NLP:   NLP{TimeoutSeconds: 5},
		Analysis: Analysis{
			Enabled:            []string{"talk_time", "patterns", "keywords", "sentiment"},
			ObjectionKeywords:  []string{"budget", "concerns", "worried", "expensive", "too much"},
			MonologueThreshold: 7,
			DominancePercent:   70,
			DebounceMs:         75,
			WindowSize:         200,
		},
		Sessions: Sessions{
			GraceSeconds:  30,
			TTLMinutes:    240,
			SweepSchedule: "@every 1m",
		},
	}
}

func (c *Root) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: jwt secret is required (set auth.jwt_secret or %s)", EnvJWTSecret)
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis addr is required")
	}
	if c.Analysis.MonologueThreshold < 2 {
		return fmt.Errorf("config: monologue_threshold must be at least 2")
	}
	if c.Analysis.WindowSize < 1 {
		return fmt.Errorf("config: window_size must be positive")
	}
	return nil
}

func (c *Root) NLPTimeout() time.Duration {
	return time.Duration(c.NLP.TimeoutSeconds) * time.Second
}

func (c *Root) Debounce() time.Duration {
	return time.Duration(c.Analysis.DebounceMs) * time.Millisecond
}

func (c *Root) GraceWindow() time.Duration {
	return time.Duration(c.Sessions.GraceSeconds) * time.Second
}

func (c *Root) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}
