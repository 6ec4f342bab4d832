// Package natsreport publishes pipeline events to a NATS subject so external
// systems (dashboards, notifiers) can observe builds without polling.
package natsreport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/distbuilder/internal/pipeline"
)

// wireEvent is the published JSON shape. Field names are a stable contract
// for consumers and should only be appended to.
type wireEvent struct {
	Kind        string    `json:"kind"`
	RunID       string    `json:"run_id"`
	Stage       string    `json:"stage,omitempty"`
	Attempt     int       `json:"attempt,omitempty"`
	MaxAttempts int       `json:"max_attempts,omitempty"`
	ExitCode    int       `json:"exit_code,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Reporter publishes pipeline events to NATS. It implements
// pipeline.Reporter and is purely observational: publish failures are
// logged, never propagated into the build.
type Reporter struct {
	conn    *nats.Conn
	subject string
	runID   string
}

var _ pipeline.Reporter = (*Reporter)(nil)

// New connects to the NATS server at url and publishes to subject.
func New(url, subject string) (*Reporter, error) {
	conn, err := nats.Connect(url, nats.Name("distbuilder"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("event publishing enabled", "url", url, "subject", subject)
	return &Reporter{conn: conn, subject: subject}, nil
}

// BindRun associates subsequent events with a run ID.
func (r *Reporter) BindRun(runID string) { r.runID = runID }

// Emit publishes the event. Errors are swallowed after logging.
func (r *Reporter) Emit(ev pipeline.Event) {
	payload, err := r.encode(ev)
	if err != nil {
		slog.Warn("marshal event", "error", err)
		return
	}
	if err := r.conn.Publish(r.subject, payload); err != nil {
		slog.Warn("publish event", "subject", r.subject, "error", err)
	}
}

func (r *Reporter) encode(ev pipeline.Event) ([]byte, error) {
	return json.Marshal(wireEvent{
		Kind:        string(ev.Kind),
		RunID:       r.runID,
		Stage:       ev.Stage,
		Attempt:     ev.Attempt,
		MaxAttempts: ev.MaxAttempts,
		ExitCode:    ev.ExitCode,
		Timestamp:   time.Now().UTC(),
	})
}

// Close flushes pending publishes and closes the connection.
func (r *Reporter) Close() error {
	if err := r.conn.Drain(); err != nil {
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}
