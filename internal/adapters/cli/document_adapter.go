// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting but delegate
// business logic to services.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
)

const timeLayout = "2006-01-02 15:04:05"

// DocumentAdapter is a thin adapter that translates CLI operations to the
// transition, document and audit services.
type DocumentAdapter struct {
	transitions primary.TransitionService
	documents   primary.DocumentService
	audit       primary.AuditService
	out         io.Writer
}

// NewDocumentAdapter creates a new DocumentAdapter.
func NewDocumentAdapter(transitions primary.TransitionService, documents primary.DocumentService, audit primary.AuditService, out io.Writer) *DocumentAdapter {
	return &DocumentAdapter{
		transitions: transitions,
		documents:   documents,
		audit:       audit,
		out:         out,
	}
}

// Create creates a document through its creation edge.
func (a *DocumentAdapter) Create(ctx context.Context, req primary.CreateRequest) (*primary.TransitionResult, error) {
	res, err := a.transitions.Create(ctx, req)
	if err != nil {
		a.describeFailure(err)
		return nil, err
	}

	fmt.Fprintf(a.out, "✓ Created %s %s in %s (v%d)\n", res.Document.Type, res.Document.ID, res.Document.State, res.Document.Version)
	a.printOutcome(res)
	return res, nil
}

// Apply traverses an edge and reports the documents it changed.
func (a *DocumentAdapter) Apply(ctx context.Context, req primary.ApplyRequest) (*primary.TransitionResult, error) {
	res, err := a.transitions.Apply(ctx, req)
	if err != nil {
		a.describeFailure(err)
		return nil, err
	}

	fmt.Fprintf(a.out, "✓ %s %s: %s → %s (v%d)\n",
		res.Document.Type, res.Document.ID, res.Event.FromState, res.Event.ToState, res.Document.Version)
	a.printOutcome(res)
	return res, nil
}

func (a *DocumentAdapter) printOutcome(res *primary.TransitionResult) {
	if res.Routed {
		fmt.Fprintf(a.out, "  %s %s\n", color.New(color.FgYellow).Sprint("routed to approval:"), res.RouteReason)
	}
	if res.DuplicateOverride {
		fmt.Fprintf(a.out, "  %s\n", color.New(color.FgYellow).Sprint("duplicate check overridden"))
	}
	versions := make(map[string]int64, len(res.LinkedDocuments))
	for _, d := range res.LinkedDocuments {
		versions[d.ID] = d.Version
	}
	for _, ev := range res.LinkedEvents {
		fmt.Fprintf(a.out, "  ↳ %s %s: %s → %s (v%d)\n",
			ev.DocumentType, ev.DocumentID, ev.FromState, ev.ToState, versions[ev.DocumentID])
	}
}

// describeFailure prints the structured part of an engine error the plain
// error string does not carry.
func (a *DocumentAdapter) describeFailure(err error) {
	var lerr *lifecycle.Error
	if !errors.As(err, &lerr) || len(lerr.Candidates) == 0 {
		return
	}
	fmt.Fprintln(a.out, color.New(color.FgRed).Sprint("Possible duplicates:"))
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  DOCUMENT\tSCORE")
	for _, c := range lerr.Candidates {
		fmt.Fprintf(w, "  %s\t%.2f\n", c.DocumentID, c.Score)
	}
	w.Flush()
	fmt.Fprintln(a.out, "Re-run with --not-duplicate to confirm it is a new document.")
}

// Show displays details for a single document.
func (a *DocumentAdapter) Show(ctx context.Context, tenantID string, actor lifecycle.Actor, id string) (*lifecycle.Document, error) {
	doc, err := a.documents.GetDocument(ctx, tenantID, actor, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	fmt.Fprintf(a.out, "\nDocument: %s\n", doc.ID)
	fmt.Fprintf(a.out, "Type:     %s\n", doc.Type)
	fmt.Fprintf(a.out, "State:    %s\n", color.New(color.FgCyan).Sprint(doc.State))
	fmt.Fprintf(a.out, "Version:  %d\n", doc.Version)
	fmt.Fprintf(a.out, "Scope:    %s\n", doc.Scope)
	if doc.Title != "" {
		fmt.Fprintf(a.out, "Title:    %s\n", doc.Title)
	}
	if doc.Amount != 0 {
		fmt.Fprintf(a.out, "Amount:   %d\n", doc.Amount)
	}
	if doc.Urgency != "" {
		fmt.Fprintf(a.out, "Urgency:  %s\n", doc.Urgency)
	}
	fmt.Fprintf(a.out, "Date:     %s\n", doc.EffectiveDate.Format("2006-01-02"))
	printMap(a.out, "Links", doc.Links)
	printMap(a.out, "Entities", doc.EntityRefs)
	printMap(a.out, "Attributes", doc.Attributes)
	if len(doc.Lines) > 0 {
		fmt.Fprintln(a.out, "Lines:")
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		for _, line := range doc.Lines {
			fmt.Fprintf(w, "  %s\t%d\t%s\n", line.ItemID, line.Quantity, line.CatalogRef)
		}
		w.Flush()
	}
	fmt.Fprintf(a.out, "Created:  %s by %s\n", doc.CreatedAt.Format(timeLayout), doc.CreatedBy)
	if doc.ConfirmedAt != nil {
		fmt.Fprintf(a.out, "Confirmed: %s\n", doc.ConfirmedAt.Format(timeLayout))
	}
	fmt.Fprintln(a.out)

	return doc, nil
}

func printMap(out io.Writer, label string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", label)
	for _, k := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(out, "  %s: %s\n", k, m[k])
	}
}

// List lists the documents the actor can see.
func (a *DocumentAdapter) List(ctx context.Context, actor lifecycle.Actor, filters primary.DocumentFilters) ([]*lifecycle.Document, error) {
	docs, err := a.documents.ListDocuments(ctx, actor, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		fmt.Fprintln(a.out, "No documents found")
		return docs, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATE\tVERSION\tSCOPE\tTITLE")
	fmt.Fprintln(w, "--\t----\t-----\t-------\t-----\t-----")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", d.ID, d.Type, d.State, d.Version, d.Scope, d.Title)
	}
	w.Flush()
	return docs, nil
}

// History prints one page of a document's audit trail.
func (a *DocumentAdapter) History(ctx context.Context, req primary.HistoryRequest) (*primary.HistoryPage, error) {
	page, err := a.audit.History(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	if len(page.Events) == 0 {
		fmt.Fprintf(a.out, "No events for %s\n", req.DocumentID)
		return page, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tTIME\tEDGE\tFROM\tTO\tACTOR\tREASON")
	for _, ev := range page.Events {
		from := string(ev.FromState)
		if from == "" {
			from = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.Seq, ev.Timestamp.Format(timeLayout), ev.Edge, from, ev.ToState, ev.ActorID, ev.Reason)
	}
	w.Flush()
	if page.HasMore {
		fmt.Fprintf(a.out, "\nMore events: --after %d\n", page.NextAfterSeq)
	}
	return page, nil
}

// Records lists the records side effects appended for a document.
func (a *DocumentAdapter) Records(ctx context.Context, tenantID string, actor lifecycle.Actor, id string) ([]*lifecycle.DerivedRecord, error) {
	records, err := a.documents.DerivedRecords(ctx, tenantID, actor, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintf(a.out, "No records for %s\n", id)
		return records, nil
	}

	for _, r := range records {
		fmt.Fprintf(a.out, "%s  %s  %s\n", r.CreatedAt.Format(timeLayout), r.Kind, r.ID)
		for _, k := range slices.Sorted(maps.Keys(r.Data)) {
			fmt.Fprintf(a.out, "    %s: %s\n", k, r.Data[k])
		}
	}
	return records, nil
}
