package sqlstore_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

func TestEventRepository_AppendAssignsSequence(t *testing.T) {
	store := setupTestStore(t)
	seedDocument(t, store, &lifecycle.Document{ID: "WO-1"})
	seedDocument(t, store, &lifecycle.Document{ID: "WO-2"})
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	inTx(t, store, func(ctx context.Context, tx secondary.Tx) error {
		for i, docID := range []string{"WO-1", "WO-1", "WO-2", "WO-1"} {
			ev := &lifecycle.TransitionEvent{
				ID:           fmt.Sprintf("EV-%d", i),
				TenantID:     "t1",
				DocumentType: lifecycle.TypeWorkOrder,
				DocumentID:   docID,
				FromState:    "ABIERTA",
				ToState:      "ASIGNADA",
				Edge:         "assign",
				ActorID:      "ana",
				Timestamp:    at.Add(time.Duration(i) * time.Minute),
				Metadata:     map[string]string{"registry_version": "1.3.0"},
			}
			if err := tx.Events().Append(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})

	inTx(t, store, func(ctx context.Context, tx secondary.Tx) error {
		events, err := tx.Events().History(ctx, "t1", "WO-1", secondary.HistoryQuery{})
		if err != nil {
			return err
		}
		if len(events) != 3 {
			t.Fatalf("History = %d events, want 3", len(events))
		}
		for i, ev := range events {
			if ev.Seq != int64(i+1) {
				t.Errorf("events[%d].Seq = %d, want %d", i, ev.Seq, i+1)
			}
		}
		if events[0].Metadata["registry_version"] != "1.3.0" {
			t.Errorf("Metadata = %v", events[0].Metadata)
		}

		page, err := tx.Events().History(ctx, "t1", "WO-1", secondary.HistoryQuery{AfterSeq: 1, Limit: 1})
		if err != nil {
			return err
		}
		if len(page) != 1 || page[0].Seq != 2 {
			t.Errorf("paged History = %+v, want seq 2", page)
		}
		return nil
	})
}

func TestEventRepository_EventsCannotBeRewritten(t *testing.T) {
	testDB := setupTestDB(t)
	now := time.Now().UTC()

	if _, err := testDB.Exec(`INSERT INTO documents (id, tenant_id, doc_type, state, visibility_scope, version, effective_date, created_by, created_at, updated_at)
		VALUES ('WO-1', 't1', 'WORK_ORDER', 'ABIERTA', 'STANDARD', 1, ?, 'ana', ?, ?)`, now, now, now); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	if _, err := testDB.Exec(`INSERT INTO transition_events (id, tenant_id, doc_type, document_id, seq, from_state, to_state, edge, actor_id, occurred_at)
		VALUES ('EV-1', 't1', 'WORK_ORDER', 'WO-1', 1, '', 'ABIERTA', 'create', 'ana', ?)`, now); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	_, err := testDB.Exec("UPDATE transition_events SET actor_id = 'mallory'")
	if err == nil || !strings.Contains(err.Error(), "append-only") {
		t.Errorf("UPDATE err = %v, want append-only rejection", err)
	}
}
