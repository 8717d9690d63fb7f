package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"minisaas.app/cloud/internal/logger"
	"minisaas.app/cloud/internal/retry"
)

// Event kinds pushed to the automation endpoint.
const (
	KindLogin  = "user_login"
	KindSignup = "user_signup"
)

const sourceName = "mini-saas-platform"

// Event is one queued notification.
type Event struct {
	ID        string
	Kind      string
	UserID    string
	Email     string
	Name      string
	Timestamp time.Time
}

// Payload is the JSON body posted to the automation URL.
type Payload struct {
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	EventType string `json:"event_type"`
	Source    string `json:"source"`
}

// Queue is what callers that only push events depend on.
type Queue interface {
	Enqueue(event Event) bool
}

type Config struct {
	URL       string
	Secret    string
	QueueSize int
	Attempts  int
	BaseDelay time.Duration
	Client    *http.Client
}

// Sink delivers notifications to the automation endpoint from a background
// worker. Enqueue never blocks a request; a full queue drops the event and
// the drop is counted instead of silently vanishing.
type Sink struct {
	url       string
	secret    string
	client    *http.Client
	attempts  int
	baseDelay time.Duration

	queue chan Event
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool

	delivered *atomic.Int64
	failed    *atomic.Int64
	dropped   *atomic.Int64
}

func NewSink(cfg Config) *Sink {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}

	s := &Sink{
		url:       cfg.URL,
		secret:    cfg.Secret,
		client:    cfg.Client,
		attempts:  cfg.Attempts,
		baseDelay: cfg.BaseDelay,
		queue:     make(chan Event, cfg.QueueSize),
		delivered: atomic.NewInt64(0),
		failed:    atomic.NewInt64(0),
		dropped:   atomic.NewInt64(0),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

// Enqueue queues an event for delivery. It reports whether the event was
// accepted; a false return means the event was dropped, either because the
// queue was full or the sink was already closed.
func (s *Sink) Enqueue(event Event) bool {
	if event.ID == "" {
		event.ID = uuid.Must(uuid.NewRandom()).String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.dropped.Inc()
		logger.Warn("Notification sink closed, event dropped", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Kind,
		})
		return false
	}

	select {
	case s.queue <- event:
		return true
	default:
		s.dropped.Inc()
		logger.Warn("Notification queue full, event dropped", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Kind,
		})
		return false
	}
}

func (s *Sink) run() {
	defer s.wg.Done()

	for event := range s.queue {
		if err := s.deliver(event); err != nil {
			s.failed.Inc()
			logger.Error("Notification delivery failed", map[string]interface{}{
				"event_id":   event.ID,
				"event_type": event.Kind,
				"error":      err.Error(),
			})
			continue
		}

		s.delivered.Inc()
		logger.Info("Notification delivered", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Kind,
		})
	}
}

func (s *Sink) deliver(event Event) error {
	p := Payload{
		Email:     event.Email,
		EventType: event.Kind,
		Source:    sourceName,
	}
	// Login notifications carry the user id and timestamp; signup carries
	// the email only.
	if event.Kind == KindLogin {
		p.UserID = event.UserID
		p.Name = event.Name
		p.Timestamp = event.Timestamp.Format(time.RFC3339)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return retry.Do(ctx, s.attempts, s.baseDelay, func() error {
		return s.post(ctx, p)
	})
}

// Forward sends one payload synchronously, bypassing the queue. Used by the
// relay endpoint, which must report delivery failure to its caller.
func (s *Sink) Forward(ctx context.Context, p Payload) error {
	if p.Source == "" {
		p.Source = sourceName
	}
	return s.post(ctx, p)
}

func (s *Sink) post(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", s.secret)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("automation endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Stats reports delivered, failed, and dropped event counts.
func (s *Sink) Stats() (delivered, failed, dropped int64) {
	return s.delivered.Load(), s.failed.Load(), s.dropped.Load()
}

// Close stops accepting events and waits for the worker to drain the queue.
// Enqueue after Close drops the event instead of panicking. Close is
// idempotent.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}
