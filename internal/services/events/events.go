// Package events publishes completion events for analyses and simulations.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subjects
const (
	SubjectDocumentAnalyzed    = "civicsim.document.analyzed"
	SubjectProcurementAssessed = "civicsim.procurement.assessed"
	SubjectSimulationCompleted = "civicsim.simulation.completed"
	eventSource                = "civicsim-api"
)

// Event is the envelope every message is published in.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Source      string          `json:"source"`
	Data        json.RawMessage `json:"data"`
}

// NewEvent creates a new event
func NewEvent(subject string, aggregateID, userID uuid.UUID, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return &Event{
		ID:          uuid.New(),
		Type:        subject,
		AggregateID: aggregateID,
		UserID:      userID,
		Timestamp:   time.Now().UTC(),
		Source:      eventSource,
		Data:        payload,
	}, nil
}

// Publisher sends events to subscribers outside the process.
type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
}

// Config holds NATS configuration
type Config struct {
	URL            string
	Name           string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

// NATSPublisher publishes events on core NATS subjects named by Event.Type.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// Connect opens a NATS connection.
func Connect(cfg Config, logger *slog.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// Publish publishes a message to a subject
func (p *NATSPublisher) Publish(ctx context.Context, ev *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(ev.Type, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Nop drops every event. Used when NATS is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, *Event) error { return nil }

// Memory keeps published events in memory for inspection.
type Memory struct {
	mu     sync.Mutex
	events []*Event
}

func (m *Memory) Publish(_ context.Context, ev *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Event(nil), m.events...)
}
