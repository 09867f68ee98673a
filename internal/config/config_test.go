package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/keyring"
)

func noSecrets(string) (string, error) { return "", keyring.ErrNotFound }

func secretsFrom(m map[string]string) func(string) (string, error) {
	return func(name string) (string, error) {
		if v, ok := m[name]; ok {
			return v, nil
		}
		return "", keyring.ErrNotFound
	}
}

func environ(pairs ...string) func() []string {
	return func() []string { return pairs }
}

func baseOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		ConfigDir: dir,
		EnvFile:   filepath.Join(dir, "missing.env"),
		Environ:   environ(),
		Secret:    noSecrets,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	opts := baseOptions(t)
	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database != filepath.Join(opts.ConfigDir, constants.DefaultDBName) {
		t.Errorf("Database = %q", cfg.Database)
	}
	if cfg.Server.Addr != constants.DefaultServerAddr || cfg.Server.TokenTTL != constants.DefaultTokenTTL {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Chat.Retention != constants.DefaultChatRetention {
		t.Errorf("Chat.Retention = %d", cfg.Chat.Retention)
	}
	if cfg.RateLimit.Backend != BackendMemory {
		t.Errorf("RateLimit.Backend = %q", cfg.RateLimit.Backend)
	}
	if p := cfg.Policy(PolicyChat); p.Limit != 20 || p.Window != time.Minute {
		t.Errorf("Policy(chat) = %+v", p)
	}
	if cfg.IsPostgres() {
		t.Error("IsPostgres() = true for default SQLite path")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	opts := baseOptions(t)
	writeFile(t, filepath.Join(opts.ConfigDir, constants.DefaultConfigFile), `
database: postgres://studylit@localhost:5432/studylit
timezone: UTC
server:
  addr: 0.0.0.0:9000
  tokenTTL: 24h
llm:
  model: local-model
  timeout: 15s
chat:
  retention: 40
ratelimit:
  policies:
    chat:
      limit: 2
      window: 30s
`)

	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.IsPostgres() {
		t.Errorf("Database = %q, want postgres URL", cfg.Database)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" || cfg.Server.TokenTTL != 24*time.Hour {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.LLM.Model != "local-model" || cfg.LLM.Timeout != 15*time.Second {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.LLM.BaseURL != constants.DefaultLLMBaseURL {
		t.Errorf("LLM.BaseURL = %q, want default kept", cfg.LLM.BaseURL)
	}
	if cfg.Chat.Retention != 40 || cfg.Chat.PromptHistory != constants.ChatHistoryForPrompt {
		t.Errorf("Chat = %+v", cfg.Chat)
	}
	if p := cfg.Policy(PolicyChat); p.Limit != 2 || p.Window != 30*time.Second {
		t.Errorf("Policy(chat) = %+v", p)
	}
	if p := cfg.Policy(PolicyReport); p.Limit != 3 {
		t.Errorf("Policy(report) = %+v, want default kept", p)
	}
	if p := cfg.Policy("unknown"); p != cfg.Policy(PolicyDefault) {
		t.Errorf("Policy(unknown) = %+v, want default policy", p)
	}
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	opts := baseOptions(t)
	opts.Path = filepath.Join(opts.ConfigDir, "nope.yaml")
	if _, err := Load(opts); err == nil {
		t.Error("Load() with missing explicit file should fail")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	opts := baseOptions(t)
	opts.Path = filepath.Join(opts.ConfigDir, "bad.yaml")
	writeFile(t, opts.Path, "server: [not, a, map")
	if _, err := Load(opts); err == nil {
		t.Error("Load() with invalid YAML should fail")
	}
}

func TestLoad_Precedence(t *testing.T) {
	opts := baseOptions(t)
	writeFile(t, filepath.Join(opts.ConfigDir, constants.DefaultConfigFile), `
server:
  addr: file:1
llm:
  model: from-file
chat:
  retention: 10
`)
	opts.EnvFile = filepath.Join(opts.ConfigDir, ".env")
	writeFile(t, opts.EnvFile, "STUDYLIT_SERVER_ADDR=dotenv:2\nSTUDYLIT_LLM_MODEL=from-dotenv\n")
	opts.Environ = environ(
		"STUDYLIT_SERVER_ADDR=env:3",
		"STUDYLIT_TOKEN_TTL=2h",
		"STUDYLIT_DEBUG=true",
		"HOME=/ignored",
	)

	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != "env:3" {
		t.Errorf("Server.Addr = %q, want process env to win", cfg.Server.Addr)
	}
	if cfg.LLM.Model != "from-dotenv" {
		t.Errorf("LLM.Model = %q, want .env over file", cfg.LLM.Model)
	}
	if cfg.Chat.Retention != 10 {
		t.Errorf("Chat.Retention = %d, want file value", cfg.Chat.Retention)
	}
	if cfg.Server.TokenTTL != 2*time.Hour || !cfg.Debug {
		t.Errorf("TokenTTL = %v, Debug = %v", cfg.Server.TokenTTL, cfg.Debug)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []string{
		"STUDYLIT_TOKEN_TTL=forever",
		"STUDYLIT_CHAT_RETENTION=lots",
		"STUDYLIT_DEBUG=maybe",
		"STUDYLIT_CHAT_RETENTION=1",
		"STUDYLIT_TIMEZONE=Mars/Olympus",
		"STUDYLIT_RATELIMIT_BACKEND=etcd",
		"STUDYLIT_RATELIMIT_BACKEND=redis",
	}
	for _, kv := range tests {
		t.Run(kv, func(t *testing.T) {
			opts := baseOptions(t)
			opts.Environ = environ(kv)
			if _, err := Load(opts); err == nil {
				t.Errorf("Load() with %s should fail", kv)
			}
		})
	}
}

func TestLoad_KeyringSecrets(t *testing.T) {
	opts := baseOptions(t)
	opts.Secret = secretsFrom(map[string]string{
		constants.KeyringJWTSecret:   "from-keyring",
		constants.KeyringLLMAPIKey:   "sk-keyring",
		constants.DefaultKeyringUser: "postgres://studylit@db:5432/studylit",
	})
	opts.Environ = environ("STUDYLIT_LLM_API_KEY=sk-env")

	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.JWTSecret != "from-keyring" {
		t.Errorf("JWTSecret = %q, want keyring value", cfg.Server.JWTSecret)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("LLM.APIKey = %q, want env to win over keyring", cfg.LLM.APIKey)
	}
	if cfg.Database != "postgres://studylit@db:5432/studylit" {
		t.Errorf("Database = %q, want keyring connection string", cfg.Database)
	}
}

func TestLoad_KeyringUnavailable(t *testing.T) {
	opts := baseOptions(t)
	opts.Secret = func(string) (string, error) { return "", errors.New("no dbus") }

	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() error = %v, want keyring failures ignored", err)
	}
	if cfg.Server.JWTSecret != "" {
		t.Errorf("JWTSecret = %q, want empty", cfg.Server.JWTSecret)
	}
}

func TestLoad_ExplicitDatabaseBeatsKeyring(t *testing.T) {
	opts := baseOptions(t)
	opts.Environ = environ("STUDYLIT_DB=/tmp/other.db")
	opts.Secret = secretsFrom(map[string]string{
		constants.DefaultKeyringUser: "postgres://studylit@db:5432/studylit",
	})

	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database != "/tmp/other.db" {
		t.Errorf("Database = %q, want env value", cfg.Database)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/.config/studylit", filepath.Join(home, ".config/studylit")},
		{"/var/lib/studylit.db", "/var/lib/studylit.db"},
		{"~other/file", "~other/file"},
	}
	for _, tt := range tests {
		got, err := ExpandHome(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}
