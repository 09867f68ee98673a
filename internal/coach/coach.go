// Package coach answers study questions and drafts study plans with the
// configured LLM, grounded on the user's own tasks and credo practice.
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/llm"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
)

// MaxMessageLength bounds a single chat message.
const MaxMessageLength = 4000

var (
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", MaxMessageLength)
)

// Store is the slice of storage the coach reads and writes.
type Store interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	AddTask(ctx context.Context, task models.Task) error
	GetTasksInRange(ctx context.Context, userID string, from, until time.Time) ([]models.Task, error)
	GetCredoLogs(ctx context.Context, userID, startDay, endDay string) ([]models.CredoLog, error)
	AppendChatPair(ctx context.Context, userID string, question, reply models.ChatMessage, retention int) error
	GetChatHistory(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error)
}

type Options struct {
	// Retention is the per-user ceiling on stored chat messages.
	Retention int
	// History is how many past messages are replayed to the model.
	History int
}

type Coach struct {
	store     Store
	client    llm.Client
	retention int
	history   int
	now       func() time.Time
}

func New(store Store, client llm.Client, opts Options) *Coach {
	if opts.Retention <= 0 {
		opts.Retention = constants.DefaultChatRetention
	}
	if opts.History <= 0 {
		opts.History = constants.ChatHistoryForPrompt
	}
	return &Coach{
		store:     store,
		client:    client,
		retention: opts.Retention,
		history:   opts.History,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (c *Coach) WithClock(now func() time.Time) *Coach {
	c.now = now
	return c
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Reply    string               `json:"reply"`
	Messages []models.ChatMessage `json:"messages"`
}

// Chat sends message to the model along with the user's recent history and
// study context. The question and answer are stored only if the model answers.
func (c *Coach) Chat(ctx context.Context, userID, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}
	if len([]rune(message)) > MaxMessageLength {
		return Reply{}, ErrMessageTooLong
	}

	now := c.now().UTC()
	system, err := c.BuildContext(ctx, userID, now)
	if err != nil {
		return Reply{}, err
	}
	history, err := c.store.GetChatHistory(ctx, userID, c.history)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to load chat history: %w", err)
	}

	prompt := make([]llm.Message, 0, len(history)+2)
	prompt = append(prompt, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range history {
		prompt = append(prompt, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	prompt = append(prompt, llm.Message{Role: llm.RoleUser, Content: message})

	answer, err := c.client.Chat(ctx, prompt)
	if err != nil {
		logger.Warn("coach reply failed", "user", userID, "err", err)
		return Reply{}, fmt.Errorf("failed to get coach reply: %w", err)
	}
	answer = strings.TrimSpace(answer)

	question := models.ChatMessage{ID: uuid.New().String(), UserID: userID, Role: models.RoleUser, Content: message, CreatedAt: now}
	reply := models.ChatMessage{ID: uuid.New().String(), UserID: userID, Role: models.RoleAssistant, Content: answer, CreatedAt: now}
	if err := c.store.AppendChatPair(ctx, userID, question, reply, c.retention); err != nil {
		return Reply{}, fmt.Errorf("failed to save chat: %w", err)
	}

	messages, err := c.store.GetChatHistory(ctx, userID, c.retention)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to load chat history: %w", err)
	}
	return Reply{Reply: answer, Messages: messages}, nil
}

// History returns the stored conversation, oldest first.
func (c *Coach) History(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	messages, err := c.store.GetChatHistory(ctx, userID, c.retention)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	return messages, nil
}
