package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/visibility"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

var documentColumns = []string{
	"id", "tenant_id", "doc_type", "state", "visibility_scope", "version",
	"title", "amount", "urgency", "links_json", "entity_refs_json", "lines_json",
	"attributes_json", "effective_date", "confirmed_at", "created_by", "created_at", "updated_at",
}

// documentInsertColumns adds the derived entity_key, which is written but never read back.
var documentInsertColumns = append(slices.Clone(documentColumns), "entity_key")

// DocumentRepository implements secondary.DocumentRepository.
type DocumentRepository struct {
	repoBase
}

var _ secondary.DocumentRepository = (*DocumentRepository)(nil)

type documentColumnsJSON struct {
	links, entityRefs, lines, attributes string
}

func encodeDocument(doc *lifecycle.Document) (documentColumnsJSON, error) {
	var (
		out documentColumnsJSON
		err error
	)
	if out.links, err = encodeJSON(doc.Links, "{}"); err != nil {
		return out, err
	}
	if out.entityRefs, err = encodeJSON(doc.EntityRefs, "{}"); err != nil {
		return out, err
	}
	if out.lines, err = encodeJSON(doc.Lines, "[]"); err != nil {
		return out, err
	}
	if out.attributes, err = encodeJSON(doc.Attributes, "{}"); err != nil {
		return out, err
	}
	return out, nil
}

// Insert persists a new document.
func (r *DocumentRepository) Insert(ctx context.Context, doc *lifecycle.Document) error {
	cols, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	q := r.sb.Insert("documents").
		Columns(documentInsertColumns...).
		Values(
			doc.ID, doc.TenantID, string(doc.Type), string(doc.State), string(doc.Scope), doc.Version,
			doc.Title, doc.Amount, doc.Urgency, cols.links, cols.entityRefs, cols.lines,
			cols.attributes, utc(doc.EffectiveDate), nullTime(doc.ConfirmedAt), doc.CreatedBy, utc(doc.CreatedAt), utc(doc.UpdatedAt),
			doc.EntityKey(),
		)
	if _, err := r.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// Get retrieves a document visible in one of scopes.
func (r *DocumentRepository) Get(ctx context.Context, tenantID, id string, scopes []lifecycle.Scope) (*lifecycle.Document, error) {
	q := r.sb.Select(documentColumns...).
		From("documents").
		Where(sq.Eq{"tenant_id": tenantID, "id": id})
	q = visibility.Filter(q, "visibility_scope", scopes)

	row, err := r.queryRow(ctx, q)
	if err != nil {
		return nil, err
	}
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lifecycle.NotFound("document", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// Update writes the mutable fields of doc if the stored version is expectedVersion.
func (r *DocumentRepository) Update(ctx context.Context, doc *lifecycle.Document, expectedVersion int64) error {
	cols, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	q := r.sb.Update("documents").
		SetMap(map[string]any{
			"state":            string(doc.State),
			"version":          doc.Version,
			"title":            doc.Title,
			"amount":           doc.Amount,
			"urgency":          doc.Urgency,
			"entity_key":       doc.EntityKey(),
			"links_json":       cols.links,
			"entity_refs_json": cols.entityRefs,
			"lines_json":       cols.lines,
			"attributes_json":  cols.attributes,
			"confirmed_at":     nullTime(doc.ConfirmedAt),
			"updated_at":       utc(doc.UpdatedAt),
		}).
		Where(sq.Eq{"tenant_id": doc.TenantID, "id": doc.ID, "version": expectedVersion})

	res, err := r.exec(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return lifecycle.ConcurrentModification(
			fmt.Sprintf("document %s is no longer at version %d", doc.ID, expectedVersion), nil)
	}
	return nil
}

// List retrieves documents matching the filters, newest first.
func (r *DocumentRepository) List(ctx context.Context, filters secondary.DocumentFilters) ([]*lifecycle.Document, error) {
	q := r.sb.Select(documentColumns...).
		From("documents").
		Where(sq.Eq{"tenant_id": filters.TenantID})
	if filters.Type != "" {
		q = q.Where(sq.Eq{"doc_type": string(filters.Type)})
	}
	if filters.State != "" {
		q = q.Where(sq.Eq{"state": string(filters.State)})
	}
	q = visibility.Filter(q, "visibility_scope", filters.Scopes).
		OrderBy("created_at DESC", "id")
	if filters.Limit > 0 {
		q = q.Limit(uint64(filters.Limit))
	}
	return r.list(ctx, q)
}

// OpenCandidates lists the open documents the uniqueness guard compares against.
func (r *DocumentRepository) OpenCandidates(ctx context.Context, query secondary.CandidateQuery) ([]*lifecycle.Document, error) {
	if len(query.OpenStates) == 0 {
		return nil, nil
	}
	states := make([]string, len(query.OpenStates))
	for i, s := range query.OpenStates {
		states[i] = string(s)
	}
	q := r.sb.Select(documentColumns...).
		From("documents").
		Where(sq.Eq{
			"tenant_id":  query.TenantID,
			"doc_type":   string(query.Type),
			"entity_key": query.EntityKey,
			"state":      states,
		}).
		Where(sq.GtOrEq{"created_at": utc(query.Since)})
	q = visibility.Filter(q, "visibility_scope", query.Scopes).
		OrderBy("created_at DESC", "id")
	return r.list(ctx, q)
}

func (r *DocumentRepository) list(ctx context.Context, q sq.SelectBuilder) ([]*lifecycle.Document, error) {
	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*lifecycle.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*lifecycle.Document, error) {
	var (
		doc                                  lifecycle.Document
		docType, state, scope                string
		links, entityRefs, lines, attributes string
		effectiveDate, createdAt, updatedAt  time.Time
		confirmedAt                          sql.NullTime
	)
	err := row.Scan(
		&doc.ID, &doc.TenantID, &docType, &state, &scope, &doc.Version,
		&doc.Title, &doc.Amount, &doc.Urgency, &links, &entityRefs, &lines,
		&attributes, &effectiveDate, &confirmedAt, &doc.CreatedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Type = lifecycle.DocumentType(docType)
	doc.State = lifecycle.State(state)
	doc.Scope = lifecycle.Scope(scope)
	doc.EffectiveDate = effectiveDate.UTC()
	doc.ConfirmedAt = timePtr(confirmedAt)
	doc.CreatedAt = createdAt.UTC()
	doc.UpdatedAt = updatedAt.UTC()

	if err := decodeJSON(links, &doc.Links); err != nil {
		return nil, err
	}
	if err := decodeJSON(entityRefs, &doc.EntityRefs); err != nil {
		return nil, err
	}
	if err := decodeJSON(lines, &doc.Lines); err != nil {
		return nil, err
	}
	if err := decodeJSON(attributes, &doc.Attributes); err != nil {
		return nil, err
	}
	return &doc, nil
}
