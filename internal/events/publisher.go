// Package events publishes run lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/retry"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "sitepipe.runs"

// Message is the JSON body of every published event.
type Message struct {
	Type      string                 `json:"type"`
	RunID     string                 `json:"run_id"`
	Timestamp time.Time              `json:"timestamp"`
	Pipeline  *engine.PipelineResult `json:"pipeline,omitempty"`
	Report    *engine.Report         `json:"report,omitempty"`
}

// Event types, also the last subject token.
const (
	TypeRunStarted        = "started"
	TypePipelineCompleted = "pipeline"
	TypeRunCompleted      = "completed"
)

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

// Publisher is an engine observer publishing JSON messages to
// "<subject>.started", "<subject>.pipeline" and "<subject>.completed".
// Publish failures are logged and never fail the run.
type Publisher struct {
	engine.NoopObserver

	conn    Conn
	subject string
	logger  *slog.Logger
	now     func() time.Time
	closer  func()
}

// NewPublisher publishes on conn under subject.
func NewPublisher(conn Conn, subject string, logger *slog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, subject: subject, logger: logger, now: time.Now}
}

// Connect dials the NATS server at url and returns a publisher owning the
// connection. The initial dial is retried with retry.DefaultPolicy.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	var nc *nats.Conn
	err := retry.DefaultPolicy().Do(context.Background(), func() error {
		var dialErr error
		nc, dialErr = nats.Connect(url,
			nats.Name("sitepipe"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		return dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p := NewPublisher(nc, subject, logger)
	p.closer = nc.Close
	p.logger.Info("NATS event publisher connected", "url", url, "subject", p.subject)
	return p, nil
}

func (p *Publisher) OnRunStart(runID string) {
	p.publish(TypeRunStarted, Message{RunID: runID})
}

func (p *Publisher) OnPipelineComplete(runID string, res engine.PipelineResult) {
	p.publish(TypePipelineCompleted, Message{RunID: runID, Pipeline: &res})
}

func (p *Publisher) OnRunComplete(report *engine.Report) {
	p.publish(TypeRunCompleted, Message{RunID: report.RunID, Report: report})
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		p.logger.Warn("Failed to flush NATS events", logfields.Error(err))
	}
}

func (p *Publisher) publish(eventType string, msg Message) {
	msg.Type = eventType
	msg.Timestamp = p.now().UTC()
	data, err := json.Marshal(msg)
	if err != nil {
		p.logger.Warn("Failed to encode run event", logfields.Error(err))
		return
	}
	subject := p.subject + "." + eventType
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish run event",
			logfields.RunID(msg.RunID),
			slog.String("subject", subject),
			logfields.Error(err))
		return
	}
	p.logger.Debug("Published run event", logfields.RunID(msg.RunID), slog.String("subject", subject))
}

// Close closes the connection when the publisher owns it.
func (p *Publisher) Close() error {
	if p.closer != nil {
		p.closer()
	}
	return nil
}
