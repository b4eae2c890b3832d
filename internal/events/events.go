// Package events publishes interview session updates to a message broker.
package events

import (
	"context"
	"time"

	"careercoach/internal/errors"
	"careercoach/internal/interview"
)

// SessionUpdate is the message published on every interview state change
type SessionUpdate struct {
	SessionID  string    `json:"sessionId"`
	UserID     string    `json:"userId"`
	Status     string    `json:"status"`
	Question   string    `json:"question,omitempty"`
	HistoryLen int       `json:"historyLen"`
	LastScore  int       `json:"lastScore"` // -1 before the first critique
	Closed     bool      `json:"closed,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// FromSnapshot builds the update for s
func FromSnapshot(s interview.Snapshot) SessionUpdate {
	return SessionUpdate{
		SessionID:  s.ID,
		UserID:     s.UserID,
		Status:     string(s.Status),
		Question:   s.CurrentQuestion,
		HistoryLen: len(s.History),
		LastScore:  s.LastScore(),
		Closed:     s.Closed,
		Timestamp:  s.UpdatedAt,
	}
}

// Publisher delivers session updates
type Publisher interface {
	Publish(ctx context.Context, u SessionUpdate) error
	Close() error
}

// Noop drops every update
type Noop struct{}

func (Noop) Publish(context.Context, SessionUpdate) error { return nil }
func (Noop) Close() error                                 { return nil }

// Observer returns an interview observer that publishes every snapshot.
// Failures are logged and never affect the session.
func Observer(p Publisher, logger *errors.Logger) interview.Observer {
	if logger == nil {
		logger = errors.Discard()
	}
	return func(s interview.Snapshot) {
		u := FromSnapshot(s)
		if err := p.Publish(context.Background(), u); err != nil {
			logger.Warn("Failed to publish session update", "session_id", u.SessionID, "error", err.Error())
		}
	}
}
