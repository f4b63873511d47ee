// Package discoverypub optionally publishes property-violation discoveries
// over NATS as they're found, so other systems (dashboards, alerting, CI
// gates) can react to a counterexample without polling a run's final report.
package discoverypub

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Discovery is the wire payload published for one violation.
type Discovery struct {
	Property    string `json:"property"`
	Expectation string `json:"expectation"`
	Depth       int    `json:"depth"`
}

// Publisher publishes Discoveries to a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect dials url and returns a Publisher bound to subject.
func Connect(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("discoverypub: connect: %w", err)
	}
	return &Publisher{conn: conn, subject: subject}, nil
}

// Publish sends one discovery. Delivery is best-effort: NATS core messages
// are fire-and-forget, matching the "reactive notification, not an audit
// log" role this package plays (RecordRun in runstore is the audit log).
func (p *Publisher) Publish(d Discovery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("discoverypub: marshal: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("discoverypub: publish: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("discoverypub: flush: %w", err)
	}
	p.conn.Close()
	return nil
}
