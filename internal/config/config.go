// Package config assembles studylit settings from defaults, an optional YAML
// file, a .env file, STUDYLIT_* environment variables and the OS keyring, in
// that order of increasing precedence (the keyring only fills secrets that are
// still empty).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/keyring"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/utils"
)

// Rate-limit policy names.
const (
	PolicyChat    = "chat"
	PolicyPlan    = "plan"
	PolicyReport  = "report"
	PolicyDefault = "default"
)

// Rate-limit backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	// ConfigDir holds the config file, logs, backups and the default SQLite database.
	ConfigDir string `yaml:"-"`
	// Database is a SQLite file path or a postgres:// URL.
	Database  string          `yaml:"database"`
	Debug     bool            `yaml:"debug"`
	Timezone  string          `yaml:"timezone"`
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Chat      ChatConfig      `yaml:"chat"`
	Supporter SupporterConfig `yaml:"supporter"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

type ServerConfig struct {
	Addr      string        `yaml:"addr"`
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}

type LLMConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

type ChatConfig struct {
	// Retention is the number of messages kept per user.
	Retention int `yaml:"retention"`
	// PromptHistory is the number of recent messages sent with each question.
	PromptHistory int `yaml:"promptHistory"`
}

type SupporterConfig struct {
	WebhookURL string `yaml:"webhookURL"`
	Secret     string `yaml:"secret"`
}

type RateLimitConfig struct {
	Backend  string                  `yaml:"backend"`
	RedisURL string                  `yaml:"redisURL"`
	Policies map[string]PolicyConfig `yaml:"policies"`
}

type PolicyConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// Options controls where Load looks. Zero values use the real environment.
type Options struct {
	// Path is an explicit YAML file; it must exist when set.
	Path string
	// ConfigDir overrides the default config directory.
	ConfigDir string
	// EnvFile is the .env path; a missing file is ignored.
	EnvFile string
	// Environ returns the process environment as KEY=VALUE pairs.
	Environ func() []string
	// Secret looks up a keyring entry.
	Secret func(name string) (string, error)
}

// Default returns the built-in configuration rooted at configDir.
func Default(configDir string) *Config {
	return &Config{
		ConfigDir: configDir,
		Database:  filepath.Join(configDir, constants.DefaultDBName),
		Timezone:  "Local",
		Server: ServerConfig{
			Addr:     constants.DefaultServerAddr,
			TokenTTL: constants.DefaultTokenTTL,
		},
		LLM: LLMConfig{
			BaseURL: constants.DefaultLLMBaseURL,
			Model:   constants.DefaultLLMModel,
			Timeout: constants.DefaultLLMTimeout,
		},
		Chat: ChatConfig{
			Retention:     constants.DefaultChatRetention,
			PromptHistory: constants.ChatHistoryForPrompt,
		},
		RateLimit: RateLimitConfig{
			Backend: BackendMemory,
			Policies: map[string]PolicyConfig{
				PolicyChat:    {Limit: 20, Window: time.Minute},
				PolicyPlan:    {Limit: 5, Window: time.Minute},
				PolicyReport:  {Limit: 3, Window: time.Minute},
				PolicyDefault: {Limit: 120, Window: time.Minute},
			},
		},
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Load builds the effective configuration.
func Load(opts Options) (*Config, error) {
	dir := opts.ConfigDir
	if dir == "" {
		dir = constants.DefaultConfigDir
	}
	dir, err := ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	cfg := Default(dir)

	if err := cfg.loadFile(opts.Path); err != nil {
		return nil, err
	}

	env, err := environment(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	secret := opts.Secret
	if secret == nil {
		secret = keyring.Get
	}
	cfg.fillSecrets(secret)

	if cfg.Database, err = ExpandHome(cfg.Database); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(c.ConfigDir, constants.DefaultConfigFile)
	}
	path, err := ExpandHome(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Decode over the defaults so omitted keys keep their values; policies
	// named in the file replace the default of the same name.
	defaults := c.RateLimit.Policies
	c.RateLimit.Policies = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	for name, p := range defaults {
		if _, ok := c.RateLimit.Policies[name]; !ok {
			if c.RateLimit.Policies == nil {
				c.RateLimit.Policies = map[string]PolicyConfig{}
			}
			c.RateLimit.Policies[name] = p
		}
	}
	logger.Debug("Loaded config file", "path", path)
	return nil
}

// environment merges the .env file under the process environment.
func environment(opts Options) (map[string]string, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	env, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
		env = map[string]string{}
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, constants.EnvPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

func (c *Config) applyEnv(env map[string]string) error {
	get := func(key string) (string, bool) {
		v, ok := env[constants.EnvPrefix+key]
		return v, ok && v != ""
	}

	strs := map[string]*string{
		"DB":                    &c.Database,
		"TIMEZONE":              &c.Timezone,
		"SERVER_ADDR":           &c.Server.Addr,
		"JWT_SECRET":            &c.Server.JWTSecret,
		"LLM_BASE_URL":          &c.LLM.BaseURL,
		"LLM_MODEL":             &c.LLM.Model,
		"LLM_API_KEY":           &c.LLM.APIKey,
		"SUPPORTER_WEBHOOK_URL": &c.Supporter.WebhookURL,
		"SUPPORTER_SECRET":      &c.Supporter.Secret,
		"RATELIMIT_BACKEND":     &c.RateLimit.Backend,
		"REDIS_URL":             &c.RateLimit.RedisURL,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TOKEN_TTL":   &c.Server.TokenTTL,
		"LLM_TIMEOUT": &c.LLM.Timeout,
	}
	for key, dst := range durations {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", constants.EnvPrefix, key, err)
			}
			*dst = d
		}
	}

	if v, ok := get("CHAT_RETENTION"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sCHAT_RETENTION: %w", constants.EnvPrefix, err)
		}
		c.Chat.Retention = n
	}
	if v, ok := get("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sDEBUG: %w", constants.EnvPrefix, err)
		}
		c.Debug = b
	}
	return nil
}

func (c *Config) fillSecrets(secret func(string) (string, error)) {
	fill := func(dst *string, name string) {
		if *dst != "" {
			return
		}
		v, err := secret(name)
		if err != nil {
			if !errors.Is(err, keyring.ErrNotFound) {
				logger.Debug("Keyring lookup failed", "secret", name, "error", err)
			}
			return
		}
		*dst = v
	}
	fill(&c.Server.JWTSecret, constants.KeyringJWTSecret)
	fill(&c.LLM.APIKey, constants.KeyringLLMAPIKey)

	// The keyring connection string only replaces the built-in default path.
	if c.Database == filepath.Join(c.ConfigDir, constants.DefaultDBName) {
		if v, err := secret(constants.DefaultKeyringUser); err == nil && v != "" {
			c.Database = v
		}
	}
}

// Validate checks values that would otherwise fail far from where they were set.
func (c *Config) Validate() error {
	if c.Database == "" {
		return errors.New("database must not be empty")
	}
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	if c.Chat.Retention < 2 {
		return fmt.Errorf("chat retention must be at least 2, got %d", c.Chat.Retention)
	}
	if c.Chat.PromptHistory < 0 {
		return fmt.Errorf("chat prompt history must not be negative")
	}
	if c.Server.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	switch c.RateLimit.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.RateLimit.RedisURL == "" {
			return errors.New("redis rate limiting needs redisURL")
		}
	default:
		return fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend)
	}
	for name, p := range c.RateLimit.Policies {
		if p.Limit <= 0 || p.Window <= 0 {
			return fmt.Errorf("rate limit policy %q needs a positive limit and window", name)
		}
	}
	return nil
}

// IsPostgres reports whether Database names a PostgreSQL server.
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.Database, "postgres://") || strings.HasPrefix(c.Database, "postgresql://")
}

// Location returns the timezone used to read dates typed at the CLI.
func (c *Config) Location() *time.Location {
	loc, err := utils.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Policy returns the named rate-limit policy, falling back to the default one.
func (c *Config) Policy(name string) PolicyConfig {
	if p, ok := c.RateLimit.Policies[name]; ok {
		return p
	}
	return c.RateLimit.Policies[PolicyDefault]
}
