// Package notify implements secondary.Notifier: a NATS publisher for
// deployments with a message bus and a log-only notifier for the CLI.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// DefaultSubjectPrefix is the subject root transitions are published under.
const DefaultSubjectPrefix = "doclife.transitions"

// publisher is the subset of *nats.Conn the notifier needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the JSON body of a transition notification.
type Message struct {
	EventID      string            `json:"event_id"`
	TenantID     string            `json:"tenant_id"`
	DocumentType string            `json:"document_type"`
	DocumentID   string            `json:"document_id"`
	Seq          int64             `json:"seq"`
	FromState    string            `json:"from_state"`
	ToState      string            `json:"to_state"`
	Edge         string            `json:"edge"`
	ActorID      string            `json:"actor_id"`
	Version      int64             `json:"version"`
	OccurredAt   time.Time         `json:"occurred_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// NewMessage flattens a notification into its wire form.
func NewMessage(n secondary.TransitionNotification) Message {
	ev := n.Event
	return Message{
		EventID:      ev.ID,
		TenantID:     ev.TenantID,
		DocumentType: string(ev.DocumentType),
		DocumentID:   ev.DocumentID,
		Seq:          ev.Seq,
		FromState:    string(ev.FromState),
		ToState:      string(ev.ToState),
		Edge:         ev.Edge,
		ActorID:      ev.ActorID,
		Version:      n.Version,
		OccurredAt:   ev.Timestamp,
		Metadata:     ev.Metadata,
	}
}

// NATS publishes each committed transition on
// <prefix>.<tenant>.<document type>.<edge>.
type NATS struct {
	conn   publisher
	prefix string
}

var _ secondary.Notifier = (*NATS)(nil)

// NewNATS wraps an open connection.
func NewNATS(conn publisher, prefix string) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{conn: conn, prefix: prefix}
}

// DialNATS connects to natsURL.
func DialNATS(natsURL, prefix string) (*NATS, *nats.Conn, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("doclife"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewNATS(nc, prefix), nc, nil
}

// Subject returns the subject a notification is published on.
func (n *NATS) Subject(msg Message) string {
	return fmt.Sprintf("%s.%s.%s.%s", n.prefix, msg.TenantID, msg.DocumentType, msg.Edge)
}

// Publish sends the notification. The connection buffers while reconnecting.
func (n *NATS) Publish(ctx context.Context, notification secondary.TransitionNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := NewMessage(notification)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := n.conn.Publish(n.Subject(msg), data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
