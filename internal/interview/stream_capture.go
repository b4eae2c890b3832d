package interview

import (
	"context"
	"sync"
)

// StreamCapture is a SpeechCapture fed from outside, for example by transcript
// frames a browser sends over a WebSocket. Feed is ignored unless a capture
// is running.
type StreamCapture struct {
	mu     sync.Mutex
	ch     chan SpeechEvent
	ctx    context.Context
	active bool
	buffer int
}

var _ SpeechCapture = (*StreamCapture)(nil)

// NewStreamCapture creates a capture whose event channel holds buffer events
func NewStreamCapture(buffer int) *StreamCapture {
	if buffer <= 0 {
		buffer = 64
	}
	return &StreamCapture{buffer: buffer}
}

// Start opens a new event channel
func (s *StreamCapture) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil
	}
	s.ch = make(chan SpeechEvent, s.buffer)
	s.ctx = ctx
	s.active = true
	return nil
}

// Stop closes the event channel of the running capture
func (s *StreamCapture) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.active = false
		close(s.ch)
	}
	return nil
}

// Events returns the channel of the current capture
func (s *StreamCapture) Events() <-chan SpeechEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// Active reports whether a capture is running
func (s *StreamCapture) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Feed delivers one event. It blocks while the buffer is full and reports
// false if no capture is running or the capture's context ended.
func (s *StreamCapture) Feed(ev SpeechEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}
