package models

import "time"

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a coaching conversation. Seq is assigned by the
// store and orders messages within a user's history.
type ChatMessage struct {
	Seq       int64     `json:"-"`
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
