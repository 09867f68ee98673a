package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/studylit/internal/accrual"
	"github.com/julianstephens/studylit/internal/auth"
	"github.com/julianstephens/studylit/internal/coach"
	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/notifier"
	"github.com/julianstephens/studylit/internal/ratelimit"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/tasks"
)

// statusFor maps a service error to its HTTP status. Anything unknown is an
// upstream failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tasks.ErrCycle),
		errors.Is(err, storage.ErrConflict),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, notifier.ErrNotConfigured):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ratelimit.ErrLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, coach.ErrEmptyMessage),
		errors.Is(err, coach.ErrMessageTooLong),
		errors.Is(err, coach.ErrEmptyGoal),
		errors.Is(err, coach.ErrInvalidDays):
		return http.StatusBadRequest
	}
	return http.StatusServiceUnavailable
}

// abort writes the error body for err and stops the handler chain.
func (s *Server) abort(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusNotFound:
		msg = "not found"
	case http.StatusTooManyRequests:
		if secs, ok := retryAfterSeconds(err); ok {
			c.Header("Retry-After", secs)
		}
		msg = ratelimit.ErrLimited.Error()
	case http.StatusServiceUnavailable:
		logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		msg = apperrors.UserMessage(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
}

type taskJSON struct {
	ID               string     `json:"id"`
	ParentID         *string    `json:"parentId,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Due              *time.Time `json:"due,omitempty"`
	Status           string     `json:"status"`
	WorkedSeconds    int64      `json:"workedSeconds"`
	EffectiveSeconds int64      `json:"effectiveSeconds"`
	LastStartedAt    *time.Time `json:"lastStartedAt,omitempty"`
	Source           string     `json:"source,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type taskNode struct {
	taskJSON
	Children []taskNode `json:"children"`
}

func toTaskJSON(t models.Task, now time.Time) taskJSON {
	return taskJSON{
		ID:               t.ID,
		ParentID:         t.ParentID,
		Title:            t.Title,
		Description:      t.Description,
		Due:              t.Due,
		Status:           string(t.Status()),
		WorkedSeconds:    t.WorkedSeconds,
		EffectiveSeconds: accrual.EffectiveSeconds(t, now),
		LastStartedAt:    t.LastStartedAt(),
		Source:           string(t.Source),
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func toTaskNodes(forest []*tasks.Node, now time.Time) []taskNode {
	out := make([]taskNode, 0, len(forest))
	for _, n := range forest {
		out = append(out, taskNode{
			taskJSON: toTaskJSON(n.Task, now),
			Children: toTaskNodes(n.Children, now),
		})
	}
	return out
}
