package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"careercoach/internal/errors"
	"careercoach/internal/interview"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Speech stream frame types
const (
	frameStart      = "start"
	frameStop       = "stop"
	frameTranscript = "transcript"
	frameDraft      = "draft"
	frameSnapshot   = "snapshot"
	frameError      = "error"
)

// speechFrame is one message of the speech stream. The browser sends start,
// stop, transcript and draft frames; the server answers with snapshot and
// error frames.
type speechFrame struct {
	Type    string           `json:"type"`
	Text    string           `json:"text,omitempty"`
	IsFinal bool             `json:"isFinal,omitempty"`
	Session *SessionResponse `json:"session,omitempty"`
	Error   string           `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
}

const speechWriteTimeout = 5 * time.Second

var (
	errSessionGone  = errors.NewSessionError(errors.ErrCodeSessionClosed, "session has been closed", nil)
	errNotRecording = errors.NewSessionError(errors.ErrCodeInvalidTransition, "transcript received while not recording", nil)
	errUnknownFrame = errors.NewValidationError(errors.ErrCodeInvalidRequest, "unknown frame type", nil)
)

// speechHandler upgrades to a WebSocket that carries the browser's speech
// recognition results into the session and pushes every session change back.
func (s *Server) speechHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	updates, unsubscribe, err := s.deps.Sessions.Subscribe(sess.ID())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.LogError(err, "Failed to accept speech WebSocket", "session_id", sess.ID())
		return
	}
	defer conn.CloseNow()

	logger := s.Logger.With("session_id", sess.ID())
	logger.Info("Speech stream connected", "client_ip", getClientIP(r))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := func(f speechFrame) error {
		wctx, wcancel := context.WithTimeout(ctx, speechWriteTimeout)
		defer wcancel()
		return wsjson.Write(wctx, conn, f)
	}

	snap := sessionResponse(sess.Snapshot())
	if err := send(speechFrame{Type: frameSnapshot, Session: &snap}); err != nil {
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		for {
			select {
			case u, ok := <-updates:
				if !ok {
					_ = send(speechFrame{Type: frameError, Error: "Session closed", Message: messageFor(errSessionGone)})
					_ = conn.Close(websocket.StatusNormalClosure, "session closed")
					return
				}
				resp := sessionResponse(u)
				if err := send(speechFrame{Type: frameSnapshot, Session: &resp}); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	s.readSpeech(ctx, conn, sess, send)
	cancel()
	<-writerDone

	// A dropped stream must not leave the session recording
	if sess.Snapshot().Recording {
		if err := sess.StopRecording(); err != nil {
			logger.Debug("Stopping capture after disconnect failed", "error", err.Error())
		}
	}
	logger.Info("Speech stream disconnected")
}

func (s *Server) readSpeech(ctx context.Context, conn *websocket.Conn, sess *interview.Session, send func(speechFrame) error) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.Logger.Debug("Speech stream read error", "session_id", sess.ID(), "error", err.Error())
			}
			return
		}

		var frame speechFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = send(speechFrame{Type: frameError, Error: "Invalid frame", Message: err.Error()})
			continue
		}

		if err := applySpeechFrame(sess, frame); err != nil {
			_, title := statusFor(err)
			_ = send(speechFrame{Type: frameError, Error: title, Message: messageFor(err)})
		}
	}
}

func applySpeechFrame(sess *interview.Session, f speechFrame) error {
	switch f.Type {
	case frameStart:
		return sess.StartRecording()
	case frameStop:
		return sess.StopRecording()
	case frameTranscript:
		if !sess.Capture.Feed(interview.SpeechEvent{Text: f.Text, IsFinal: f.IsFinal}) {
			return errNotRecording
		}
		return nil
	case frameDraft:
		return sess.SetDraft(f.Text)
	default:
		return errUnknownFrame
	}
}
