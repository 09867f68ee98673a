package models

import "time"

// Note is a free-form study note. Canvas holds the drawing document as
// produced by the client and is stored without interpretation.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Canvas    string    `json:"canvas,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
