// Package notifier delivers weekly supporter messages to a configured webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/logger"
)

// ErrNotConfigured is returned when no webhook URL is set
var ErrNotConfigured = errors.New("supporter webhook is not configured")

// SupporterPayload is the JSON body posted to the webhook.
type SupporterPayload struct {
	Text        string `json:"text"`
	WeekStart   string `json:"weekStart"`
	DisplayName string `json:"displayName"`
}

// StatusError is a non-2xx webhook answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("notification failed with status %d: %s", e.StatusCode, e.Body)
}

type Notifier struct {
	url     string
	secret  string
	client  *http.Client
	retries int
	delay   time.Duration
}

func New(url, secret string) *Notifier {
	return &Notifier{
		url:     url,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
		retries: constants.NotifyMaxRetries,
		delay:   constants.NotifyRetryDelay,
	}
}

// Configured reports whether a webhook URL is set.
func (n *Notifier) Configured() bool {
	return n != nil && n.url != ""
}

// Notify posts payload, retrying network failures and 5xx answers.
func (n *Notifier) Notify(ctx context.Context, payload SupporterPayload) error {
	if !n.Configured() {
		return ErrNotConfigured
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= n.retries; attempt++ {
		lastErr = n.send(ctx, jsonData)
		if lastErr == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && statusErr.StatusCode < 500 {
			return lastErr
		}
		logger.Warn("Supporter notification failed", "attempt", attempt, "error", lastErr)
		if attempt == n.retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.delay * time.Duration(attempt)):
		}
	}
	return lastErr
}

func (n *Notifier) send(ctx context.Context, jsonData []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set(constants.SupporterWebhookHeader, n.secret)
	}

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return &StatusError{StatusCode: res.StatusCode, Body: string(body)}
}
