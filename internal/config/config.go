// Package config loads runtime configuration for the board binaries.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/limiter"
	"github.com/and161185/sorryboard/internal/validation"
)

// Config captures all runtime configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	HTTP       HTTPConfig       `yaml:"http"`
	Validation ValidationConfig `yaml:"validation"`
	Limiter    LimiterConfig    `yaml:"limiter"`
}

// StoreConfig holds the table store endpoint and credentials.
type StoreConfig struct {
	URL        string        `yaml:"url"`
	AnonKey    string        `yaml:"anon_key"`
	ServiceKey string        `yaml:"service_key"`
	Timeout    time.Duration `yaml:"timeout"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ValidationConfig mirrors validation.Rules in serialisable form.
type ValidationConfig struct {
	MaxMessageLength  int      `yaml:"max_message_length"`
	MaxNameLength     int      `yaml:"max_name_length"`
	Profanity         []string `yaml:"profanity"`
	InjectionPatterns []string `yaml:"injection_patterns"`
}

// LimiterConfig selects and tunes the server-side submission limiter.
type LimiterConfig struct {
	Backend       string        `yaml:"backend"`
	Window        time.Duration `yaml:"window"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	DSN           string        `yaml:"dsn"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Timeout: 10 * time.Second},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Validation: ValidationConfig{
			MaxMessageLength: validation.DefaultMaxMessageLength,
			MaxNameLength:    validation.DefaultMaxNameLength,
		},
		Limiter: LimiterConfig{
			Backend:   limiter.BackendMemory,
			Window:    time.Minute,
			RedisAddr: "localhost:6379",
		},
	}
}

// Load is Parse followed by Validate.
func Load(args []string) (*Config, error) {
	cfg, err := Parse(args)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse builds configuration from defaults, an optional YAML file, a .env file,
// the environment and finally command line flags, later sources winning.
// Store credentials are not checked, so callers that only need the
// validation rules can use it without them.
func Parse(args []string) (*Config, error) {
	fset := flag.NewFlagSet("sorryboard", flag.ContinueOnError)
	cfgPath := fset.String("config", "", "path to YAML config file")
	envFile := fset.String("env-file", ".env", "path to .env file")
	addr := fset.String("addr", "", "HTTP listen address")
	backend := fset.String("limiter", "", "limiter backend: memory, redis, postgres, none")
	window := fset.Duration("window", 0, "submission cooldown window")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if *cfgPath != "" {
		if err := cfg.mergeFile(*cfgPath); err != nil {
			return nil, err
		}
	}

	dotenv, err := readDotenv(*envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.mergeEnv(lookup(dotenv)); err != nil {
		return nil, err
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.HTTP.Addr = *addr
		case "limiter":
			cfg.Limiter.Backend = *backend
		case "window":
			cfg.Limiter.Window = *window
		}
	})
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	m, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}

// lookup resolves a key from the process environment first, then the .env file.
func lookup(dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}
}

func (c *Config) mergeEnv(get func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := get(k); ok {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, key string) error {
		v, ok := get(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}
	dur := func(dst *time.Duration, key string) error {
		v, ok := get(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str(&c.Store.URL, "SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL")
	str(&c.Store.AnonKey, "NEXT_PUBLIC_SUPABASE_ANON_KEY")
	str(&c.Store.ServiceKey, "SUPABASE_SERVICE_ROLE_KEY")
	str(&c.HTTP.Addr, "HTTP_ADDR")
	str(&c.Limiter.Backend, "LIMITER_BACKEND")
	str(&c.Limiter.RedisAddr, "REDIS_ADDR")
	str(&c.Limiter.RedisPassword, "REDIS_PASSWORD")
	str(&c.Limiter.DSN, "LIMITER_DSN")

	if err := num(&c.Validation.MaxMessageLength, "MAX_MESSAGE_LENGTH"); err != nil {
		return err
	}
	if err := num(&c.Validation.MaxNameLength, "MAX_NAME_LENGTH"); err != nil {
		return err
	}
	if err := dur(&c.Limiter.Window, "RATE_LIMIT_WINDOW"); err != nil {
		return err
	}
	if err := dur(&c.Store.Timeout, "STORE_TIMEOUT"); err != nil {
		return err
	}
	return dur(&c.HTTP.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
}

// Validate reports configuration that makes the process unable to run.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Store.URL) == "" {
		problems = append(problems, "store url is required (SUPABASE_URL)")
	}
	if strings.TrimSpace(c.Store.AnonKey) == "" {
		problems = append(problems, "store anon key is required (NEXT_PUBLIC_SUPABASE_ANON_KEY)")
	}
	switch c.Limiter.Backend {
	case limiter.BackendMemory, limiter.BackendRedis, limiter.BackendNone:
	case limiter.BackendPostgres:
		if c.Limiter.DSN == "" {
			problems = append(problems, "limiter dsn is required for the postgres backend (LIMITER_DSN)")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown limiter backend %q", c.Limiter.Backend))
	}
	if c.Limiter.Window <= 0 {
		problems = append(problems, "limiter window must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", errs.ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Rules compiles the validation section into validator rules. Empty lists
// keep the built-in defaults.
func (c *Config) Rules() (validation.Rules, error) {
	r := validation.DefaultRules()
	r.MaxMessageLength = c.Validation.MaxMessageLength
	r.MaxNameLength = c.Validation.MaxNameLength
	if len(c.Validation.Profanity) > 0 {
		r.Profanity = append([]string(nil), c.Validation.Profanity...)
	}
	if len(c.Validation.InjectionPatterns) > 0 {
		re, err := validation.Compile(c.Validation.InjectionPatterns)
		if err != nil {
			return validation.Rules{}, fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
		r.InjectionPatterns = re
	}
	return r, nil
}
