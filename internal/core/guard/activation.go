package guard

import (
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// Activation builds the variables precondition expressions are evaluated
// against. Maps are never nil so that `"k" in doc.links` is always valid.
func Activation(doc *lifecycle.Document, payload lifecycle.Payload, actor lifecycle.Actor) map[string]any {
	return map[string]any{
		"doc":     documentVars(doc),
		"payload": payloadVars(payload),
		"actor":   actorVars(actor),
	}
}

func documentVars(d *lifecycle.Document) map[string]any {
	if d == nil {
		d = &lifecycle.Document{}
	}
	return map[string]any{
		"id":          d.ID,
		"type":        string(d.Type),
		"state":       string(d.State),
		"scope":       string(d.Scope),
		"version":     d.Version,
		"title":       d.Title,
		"amount":      d.Amount,
		"urgency":     d.Urgency,
		"links":       stringMap(d.Links),
		"entity_refs": stringMap(d.EntityRefs),
		"attributes":  stringMap(d.Attributes),
		"lines":       lineVars(d.Lines),
		"confirmed":   d.ConfirmedAt != nil,
		"created_by":  d.CreatedBy,
	}
}

func payloadVars(p lifecycle.Payload) map[string]any {
	return map[string]any{
		"title":      p.Title,
		"amount":     p.Amount,
		"urgency":    p.Urgency,
		"links":      stringMap(p.Links),
		"attributes": stringMap(p.Attributes),
		"lines":      lineVars(p.Lines),
	}
}

func actorVars(a lifecycle.Actor) map[string]any {
	perms := make([]any, len(a.Permissions))
	for i, p := range a.Permissions {
		perms[i] = p
	}
	return map[string]any{
		"id":          a.ID,
		"permissions": perms,
		"scope":       string(a.Scope),
	}
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func lineVars(lines []lifecycle.LineItem) []any {
	out := make([]any, len(lines))
	for i, l := range lines {
		out[i] = map[string]any{
			"item_id":     l.ItemID,
			"quantity":    l.Quantity,
			"catalog_ref": l.CatalogRef,
		}
	}
	return out
}
