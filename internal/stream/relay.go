package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session states. A session reaches exactly one of the terminal states.
const (
	StateOpen      = "OPEN"
	StateStreaming = "STREAMING"
	StateCompleted = "COMPLETED"
	StateTimedOut  = "TIMED_OUT"
	StateFailed    = "FAILED"
)

// Event is the SSE payload shape. A stream is a sequence of content events
// followed by exactly one done or error event.
type Event struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Producer generates chunks for one stream. It runs in its own goroutine and
// reports each chunk through emit; a non-nil return resolves the session as
// failed. Producers must respect ctx cancellation.
type Producer func(ctx context.Context, emit func(chunk string) error) error

// Observer receives stream lifecycle notifications, e.g. for metrics.
type Observer interface {
	ObserveStreamSession(state string)
	ObserveStreamChunk()
}

// Relay supervises one server-sent event stream per call: it forwards
// producer chunks to the client and guarantees a single terminal event
// whether generation completes, errors, or goes idle past the timeout.
type Relay struct {
	idleTimeout time.Duration
	logger      *zap.Logger
	observer    Observer
}

// NewRelay constructs a relay with the given idle timeout. The observer may
// be nil.
func NewRelay(idleTimeout time.Duration, logger *zap.Logger, observer Observer) *Relay {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{idleTimeout: idleTimeout, logger: logger, observer: observer}
}

// Reject writes a single error event and closes without allocating a
// session. Used for pre-stream failures such as missing authentication;
// the error rides the event payload, not the HTTP status, because the
// channel content type is already committed.
func (r *Relay) Reject(c *gin.Context, message string) {
	writeSSEHeaders(c)
	_ = sse.Encode(c.Writer, sse.Event{
		Event: "message",
		Data:  Event{Type: "error", Error: message},
	})
	c.Writer.Flush()
}

// Serve runs the producer and relays its chunks to the client until a
// terminal condition is reached.
func (r *Relay) Serve(c *gin.Context, userID string, produce Producer) string {
	writeSSEHeaders(c)

	session := &session{
		id:        uuid.NewString(),
		userID:    userID,
		state:     StateOpen,
		startedAt: time.Now(),
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	chunks := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		errs <- produce(ctx, func(chunk string) error {
			select {
			case chunks <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	idle := time.NewTimer(r.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				// Producer finished; its result decides the terminal event.
				if err := <-errs; err != nil {
					r.finish(c, session, StateFailed, err.Error())
				} else {
					r.finish(c, session, StateCompleted, "")
				}
				return session.terminalState()
			}
			session.setState(StateStreaming)
			if r.observer != nil {
				r.observer.ObserveStreamChunk()
			}
			if err := r.writeEvent(c, Event{Type: "content", Content: chunk}); err != nil {
				// Transport is gone: stop the producer, best-effort terminal.
				cancel()
				r.finish(c, session, StateFailed, "stream transport error")
				return session.terminalState()
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.idleTimeout)

		case <-idle.C:
			cancel()
			r.finish(c, session, StateTimedOut, "stream timed out")
			return session.terminalState()

		case <-ctx.Done():
			r.finish(c, session, StateFailed, "client disconnected")
			return session.terminalState()
		}
	}
}

type session struct {
	id        string
	userID    string
	startedAt time.Time

	mu    sync.Mutex
	state string
	done  sync.Once
}

func (s *session) setState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateOpen || s.state == StateStreaming {
		s.state = state
	}
}

func (s *session) terminalState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// finish delivers the terminal event exactly once. Every exit path of Serve
// funnels through here.
func (r *Relay) finish(c *gin.Context, s *session, state, message string) {
	s.done.Do(func() {
		s.mu.Lock()
		s.state = state
		s.mu.Unlock()

		var event Event
		switch state {
		case StateCompleted:
			event = Event{Type: "done"}
		case StateTimedOut:
			event = Event{Type: "error", Error: message}
		default:
			event = Event{Type: "error", Error: message}
		}

		if err := r.writeEvent(c, event); err != nil {
			r.logger.Debug("terminal event delivery failed",
				zap.String("session_id", s.id),
				zap.String("state", state),
				zap.Error(err))
		}
		r.logger.Info("stream session closed",
			zap.String("session_id", s.id),
			zap.String("user_id", s.userID),
			zap.String("state", state),
			zap.Duration("duration", time.Since(s.startedAt)))
		if r.observer != nil {
			r.observer.ObserveStreamSession(state)
		}
	})
}

func (r *Relay) writeEvent(c *gin.Context, event Event) error {
	if err := sse.Encode(c.Writer, sse.Event{Event: "message", Data: event}); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

func writeSSEHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}
