package interview

import (
	"context"
	"testing"
)

func TestTranscriptApply(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		events []SpeechEvent
		want   string
	}{
		{"empty", "", nil, ""},
		{"interim only", "", []SpeechEvent{{Text: "hel"}}, "hel"},
		{"interim replaces interim", "", []SpeechEvent{{Text: "hel"}, {Text: "hello"}}, "hello"},
		{"final supersedes interim", "", []SpeechEvent{{Text: "foo"}, {Text: "foo bar", IsFinal: true}}, "foo bar"},
		{
			name:   "finals concatenated",
			events: []SpeechEvent{{Text: "one", IsFinal: true}, {Text: "two", IsFinal: true}},
			want:   "one two",
		},
		{
			name:   "blank final clears interim",
			events: []SpeechEvent{{Text: "noise"}, {Text: "  ", IsFinal: true}},
			want:   "",
		},
		{
			name:   "base kept first",
			base:   "typed",
			events: []SpeechEvent{{Text: "spoken", IsFinal: true}, {Text: "more"}},
			want:   "typed spoken more",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &transcript{base: tt.base}
			for _, ev := range tt.events {
				tr.apply(ev)
			}
			if got := tr.text(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStreamCapture(t *testing.T) {
	c := NewStreamCapture(2)

	if c.Feed(SpeechEvent{Text: "ignored"}) {
		t.Error("Feed before Start should be rejected")
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !c.Active() {
		t.Error("Expected active capture")
	}
	events := c.Events()
	c.Feed(SpeechEvent{Text: "a", IsFinal: true})
	c.Feed(SpeechEvent{Text: "b"})

	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	var got []string
	for ev := range events {
		got = append(got, ev.Text)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Buffered events lost: %v", got)
	}
	if c.Feed(SpeechEvent{Text: "late"}) {
		t.Error("Feed after Stop should be rejected")
	}

	// Restart opens a fresh channel
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Events() == events {
		t.Error("Expected a new channel after restart")
	}
	_ = c.Stop()
}

func TestStreamCaptureCanceledContext(t *testing.T) {
	c := NewStreamCapture(1)
	ctx, cancel := context.WithCancel(context.Background())
	_ = c.Start(ctx)
	c.Feed(SpeechEvent{Text: "fills buffer"})

	cancel()
	if c.Feed(SpeechEvent{Text: "blocked"}) {
		t.Error("Feed on a full buffer with a canceled context should fail")
	}
}
