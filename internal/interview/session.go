// Package interview drives mock interview sessions: configuration, question
// fetch, answer capture, critique and the next question.
package interview

import (
	"time"

	"careercoach/internal/types"
)

// Status of a session
type Status string

const (
	StatusConfiguring      Status = "configuring"
	StatusAwaitingQuestion Status = "awaiting_question"
	StatusAwaitingAnswer   Status = "awaiting_answer"
	StatusAwaitingFeedback Status = "awaiting_feedback"
	StatusShowingFeedback  Status = "showing_feedback"
)

// transitional statuses have an invocation in flight
func (s Status) transitional() bool {
	return s == StatusAwaitingQuestion || s == StatusAwaitingFeedback
}

// hasQuestion reports whether currentQuestion may be set in s
func (s Status) hasQuestion() bool {
	return s == StatusAwaitingAnswer || s == StatusAwaitingFeedback || s == StatusShowingFeedback
}

// Mode selects the auxiliary media of a session
type Mode string

const (
	ModeVideo Mode = "video"
	ModeAudio Mode = "audio"
	ModeText  Mode = "text"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	switch m {
	case ModeVideo, ModeAudio, ModeText:
		return true
	}
	return false
}

// offersSpeech reports whether speech capture is offered in m
func (m Mode) offersSpeech() bool {
	return m == ModeVideo || m == ModeAudio
}

// QAPair is one answered question. It is appended to history with its
// feedback and never changed afterwards.
type QAPair struct {
	Question string          `json:"question"`
	Answer   string          `json:"answer"`
	Feedback *types.Feedback `json:"feedback,omitempty"`
}

// Settings is what the user submits to start a session
type Settings struct {
	Domain          string                `json:"domain"`
	Mode            Mode                  `json:"mode"`
	ExperienceLevel types.ExperienceLevel `json:"experienceLevel,omitempty"`
}

// Snapshot is an immutable copy of a session for rendering
type Snapshot struct {
	// Seq grows with every snapshot of the session; a higher Seq is newer
	Seq                uint64                `json:"seq"`
	ID                 string                `json:"id"`
	UserID             string                `json:"userId"`
	Domain             string                `json:"domain,omitempty"`
	Mode               Mode                  `json:"mode,omitempty"`
	ExperienceLevel    types.ExperienceLevel `json:"experienceLevel,omitempty"`
	Status             Status                `json:"status"`
	CurrentQuestion    string                `json:"currentQuestion,omitempty"`
	CurrentAnswerDraft string                `json:"currentAnswerDraft"`
	Recording          bool                  `json:"recording"`
	History            []QAPair              `json:"history"`
	LastFeedback       *types.Feedback       `json:"lastFeedback,omitempty"`
	Warnings           []string              `json:"warnings,omitempty"`
	Closed             bool                  `json:"closed,omitempty"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

// LastScore returns the score of the most recent answer, or -1
func (s Snapshot) LastScore() int {
	if s.LastFeedback != nil {
		return s.LastFeedback.Score
	}
	for i := len(s.History) - 1; i >= 0; i-- {
		if fb := s.History[i].Feedback; fb != nil {
			return fb.Score
		}
	}
	return -1
}
