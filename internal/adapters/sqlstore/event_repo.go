package sqlstore

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// EventRepository implements secondary.EventRepository. Rows are never
// updated or deleted; the schema enforces this with triggers as well.
type EventRepository struct {
	repoBase
}

var _ secondary.EventRepository = (*EventRepository)(nil)

// Append assigns the next sequence number of the document and persists the event.
func (r *EventRepository) Append(ctx context.Context, event *lifecycle.TransitionEvent) error {
	row, err := r.queryRow(ctx, r.sb.
		Select("COALESCE(MAX(seq), 0)").
		From("transition_events").
		Where(sq.Eq{"tenant_id": event.TenantID, "document_id": event.DocumentID}))
	if err != nil {
		return err
	}
	var last int64
	if err := row.Scan(&last); err != nil {
		return fmt.Errorf("failed to read last event sequence: %w", err)
	}
	event.Seq = last + 1

	metadata, err := encodeJSON(event.Metadata, "{}")
	if err != nil {
		return err
	}
	q := r.sb.Insert("transition_events").
		Columns("id", "tenant_id", "doc_type", "document_id", "seq", "from_state", "to_state", "edge", "actor_id", "occurred_at", "reason", "metadata_json").
		Values(event.ID, event.TenantID, string(event.DocumentType), event.DocumentID, event.Seq,
			string(event.FromState), string(event.ToState), event.Edge, event.ActorID, utc(event.Timestamp), event.Reason, metadata)
	if _, err := r.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to append transition event: %w", err)
	}
	return nil
}

// History returns events with Seq > query.AfterSeq ordered by Seq.
func (r *EventRepository) History(ctx context.Context, tenantID, documentID string, query secondary.HistoryQuery) ([]*lifecycle.TransitionEvent, error) {
	q := r.sb.
		Select("id", "tenant_id", "doc_type", "document_id", "seq", "from_state", "to_state", "edge", "actor_id", "occurred_at", "reason", "metadata_json").
		From("transition_events").
		Where(sq.Eq{"tenant_id": tenantID, "document_id": documentID}).
		Where(sq.Gt{"seq": query.AfterSeq}).
		OrderBy("seq")
	if query.Limit > 0 {
		q = q.Limit(uint64(query.Limit))
	}

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var events []*lifecycle.TransitionEvent
	for rows.Next() {
		var (
			ev                        lifecycle.TransitionEvent
			docType, from, to, rawMet string
			occurredAt                time.Time
		)
		if err := rows.Scan(&ev.ID, &ev.TenantID, &docType, &ev.DocumentID, &ev.Seq, &from, &to, &ev.Edge, &ev.ActorID, &occurredAt, &ev.Reason, &rawMet); err != nil {
			return nil, fmt.Errorf("failed to scan transition event: %w", err)
		}
		ev.DocumentType = lifecycle.DocumentType(docType)
		ev.FromState = lifecycle.State(from)
		ev.ToState = lifecycle.State(to)
		ev.Timestamp = occurredAt.UTC()
		if err := decodeJSON(rawMet, &ev.Metadata); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return events, nil
}
