package interview

import (
	"context"
	"sync"
	"time"

	"careercoach/internal/errors"

	"github.com/google/uuid"
)

// Session is a registered controller with its stream-fed speech capture
type Session struct {
	*Controller
	Capture *StreamCapture
}

// RegistryOptions configures a Registry
type RegistryOptions struct {
	IdleTimeout time.Duration
	MaxSessions int
	// Session is the template for new controllers; Speech and Observer are
	// replaced per session.
	Session Options
	// Observer receives the snapshots of every session
	Observer Observer
}

// Registry holds the live sessions of the HTTP API keyed by id, and closes
// sessions that stay idle longer than IdleTimeout.
type Registry struct {
	invoker Invoker
	resumes ResumeSource
	opts    RegistryOptions
	logger  *errors.Logger

	mu          sync.Mutex
	sessions    map[string]*Session
	subscribers map[string]map[chan Snapshot]struct{}
	done        chan struct{}
	stopOnce    sync.Once
}

// NewRegistry creates a registry and starts its idle janitor
func NewRegistry(invoker Invoker, resumes ResumeSource, opts RegistryOptions) *Registry {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	logger := opts.Session.Logger
	if logger == nil {
		logger = errors.Discard()
	}

	r := &Registry{
		invoker:     invoker,
		resumes:     resumes,
		opts:        opts,
		logger:      logger,
		sessions:    make(map[string]*Session),
		subscribers: make(map[string]map[chan Snapshot]struct{}),
		done:        make(chan struct{}),
	}

	interval := max(opts.IdleTimeout/4, time.Second)
	go r.janitor(interval)
	return r
}

// Create registers a new session for userID
func (r *Registry) Create(userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opts.MaxSessions > 0 && len(r.sessions) >= r.opts.MaxSessions {
		return nil, errors.NewSessionError(errors.ErrCodeSessionBusy, "too many active interview sessions", nil).
			WithContext("max_sessions", r.opts.MaxSessions)
	}

	id := uuid.NewString()
	capture := NewStreamCapture(0)
	opts := r.opts.Session
	opts.Speech = capture
	opts.Observer = func(s Snapshot) { r.dispatch(s) }

	s := &Session{
		Controller: NewController(id, userID, r.invoker, r.resumes, opts),
		Capture:    capture,
	}
	r.sessions[id] = s

	r.logger.Info("Interview session created", "session_id", id, "user_id", userID, "active", len(r.sessions))
	return s, nil
}

// Get returns the session with id
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeNotFound, "interview session not found", nil).
			WithContext("session_id", id)
	}
	return s, nil
}

// Remove closes and unregisters the session with id
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return errors.NewValidationError(errors.ErrCodeNotFound, "interview session not found", nil).
			WithContext("session_id", id)
	}
	err := s.Close()
	r.closeSubscribers(id)
	return err
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Subscribe returns a channel of snapshots of one session. Slow subscribers
// miss intermediate snapshots. The channel is closed when the session is
// removed or cancel is called.
func (r *Registry) Subscribe(id string) (<-chan Snapshot, func(), error) {
	ch := make(chan Snapshot, 16)
	r.mu.Lock()
	if _, ok := r.sessions[id]; !ok {
		r.mu.Unlock()
		return nil, nil, errors.NewValidationError(errors.ErrCodeNotFound, "interview session not found", nil).
			WithContext("session_id", id)
	}
	subs := r.subscribers[id]
	if subs == nil {
		subs = make(map[chan Snapshot]struct{})
		r.subscribers[id] = subs
	}
	subs[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if subs, ok := r.subscribers[id]; ok {
				if _, ok := subs[ch]; ok {
					delete(subs, ch)
					close(ch)
				}
			}
		})
	}
	return ch, cancel, nil
}

func (r *Registry) dispatch(s Snapshot) {
	if r.opts.Observer != nil {
		r.opts.Observer(s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subscribers[s.ID] {
		select {
		case ch <- s:
		default:
		}
	}
}

func (r *Registry) closeSubscribers(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subscribers[id] {
		close(ch)
	}
	delete(r.subscribers, id)
}

func (r *Registry) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.expire(time.Now())
		case <-r.done:
			return
		}
	}
}

// expire removes sessions idle since before now-IdleTimeout
func (r *Registry) expire(now time.Time) int {
	r.mu.Lock()
	var idle []string
	for id, s := range r.sessions {
		if now.Sub(s.LastActivity()) > r.opts.IdleTimeout {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	for _, id := range idle {
		if err := r.Remove(id); err == nil {
			r.logger.Info("Interview session expired", "session_id", id)
		}
	}
	return len(idle)
}

// Close stops the janitor and closes every session
func (r *Registry) Close(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.done) })

	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = r.Remove(id)
	}
	return nil
}
