package constants

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SessionState represents the current state of the TUI application
type SessionState int

// ConfirmationMsg is a message to trigger a confirmation dialog
type ConfirmationMsg struct {
	Message string
	Action  func() tea.Cmd
}

const (
	AppName            = "studylit"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/studylit"
	DefaultDBName      = "studylit.db"
	DefaultConfigFile  = "config.yaml"
	Version            = "v0.1.0"

	// EnvPrefix prefixes every environment override (STUDYLIT_DB, STUDYLIT_JWT_SECRET, ...)
	EnvPrefix = "STUDYLIT_"

	// Keyring entries besides the connection string
	KeyringJWTSecret = "jwt-secret"
	KeyringLLMAPIKey = "llm-api-key"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "studylit-"
	BackupFileSuffix = ".db"

	// Server constants
	DefaultServerAddr      = "127.0.0.1:8080"
	DefaultTokenTTL        = 7 * 24 * time.Hour
	ServerShutdownTimeout  = 10 * time.Second
	ServerLockfileName     = "studylit-server.lock"
	DefaultChatRetention   = 100
	ChatHistoryForPrompt   = 20
	DefaultLLMBaseURL      = "https://api.openai.com/v1"
	DefaultLLMModel        = "gpt-4o-mini"
	DefaultLLMTimeout      = 60 * time.Second
	SupporterWebhookHeader = "X-Studylit-Secret"
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
)

// Session States. The first three are the tabs, in tab order.
const (
	StateTasks SessionState = iota
	StateWeek
	StateCredo
	StateCredoForm
	StateAddTask
	StateConfirmDelete
)
