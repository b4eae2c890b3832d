package interview

import (
	"context"
	"strings"
)

// SpeechEvent is one transcript increment. Interim text is the recognizer's
// current hypothesis for the phrase in progress and replaces the previous
// interim; final text is committed.
type SpeechEvent struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// SpeechCapture turns spoken audio into transcript events. After Stop returns
// the implementation delivers any remaining final events and closes the
// channel returned by Events for that capture.
type SpeechCapture interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan SpeechEvent
}

// MediaPreview shows the camera or microphone indicator for a mode
type MediaPreview interface {
	Start(ctx context.Context, mode Mode) error
	Stop() error
}

// transcript merges speech events into an answer draft. base holds the text
// typed before capture started.
type transcript struct {
	base    string
	finals  []string
	interim string
}

func (t *transcript) apply(ev SpeechEvent) {
	text := strings.TrimSpace(ev.Text)
	if !ev.IsFinal {
		t.interim = text
		return
	}
	// A final supersedes the interim hypothesis of the same phrase
	t.interim = ""
	if text != "" {
		t.finals = append(t.finals, text)
	}
}

// text returns the draft including the pending interim, so nothing spoken is
// lost when capture stops before the recognizer finalizes.
func (t *transcript) text() string {
	parts := make([]string, 0, len(t.finals)+2)
	if b := strings.TrimSpace(t.base); b != "" {
		parts = append(parts, b)
	}
	parts = append(parts, t.finals...)
	if t.interim != "" {
		parts = append(parts, t.interim)
	}
	return strings.Join(parts, " ")
}
