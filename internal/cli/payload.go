package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// payloadFlags holds the flags that fill a transition payload.
type payloadFlags struct {
	title        string
	amount       int64
	urgency      string
	lines        []string
	entities     map[string]string
	links        map[string]string
	attrs        map[string]string
	date         string
	visibility   string
	notDuplicate bool
}

func (p *payloadFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&p.title, "title", "", "Document title")
	flags.Int64Var(&p.amount, "amount", 0, "Amount in minor currency units")
	flags.StringVar(&p.urgency, "urgency", "", "Urgency label")
	flags.StringArrayVar(&p.lines, "line", nil, "Line item as ITEM:QTY[:CATALOG_REF] (repeatable)")
	flags.StringToStringVar(&p.entities, "entity", nil, "Entity reference as kind=ID (e.g. machine=M-01)")
	flags.StringToStringVar(&p.links, "link", nil, "Linked document as role=ID (e.g. delivery=DEL-0001)")
	flags.StringToStringVar(&p.attrs, "attr", nil, "Attribute as key=value")
	flags.StringVar(&p.date, "date", "", "Effective date (YYYY-MM-DD, default today)")
	flags.StringVar(&p.visibility, "visibility", "", "Document scope: STANDARD or EXTENDED")
	flags.BoolVar(&p.notDuplicate, "not-duplicate", false, "Confirm the document is not a duplicate of a similar open one")
}

func (p *payloadFlags) payload() (lifecycle.Payload, error) {
	payload := lifecycle.Payload{
		Title:                 p.title,
		Amount:                p.amount,
		Urgency:               p.urgency,
		EntityRefs:            p.entities,
		Links:                 p.links,
		Attributes:            p.attrs,
		ConfirmedNotDuplicate: p.notDuplicate,
	}
	for _, raw := range p.lines {
		line, err := parseLine(raw)
		if err != nil {
			return payload, err
		}
		payload.Lines = append(payload.Lines, line)
	}
	if p.date != "" {
		date, err := time.Parse("2006-01-02", p.date)
		if err != nil {
			return payload, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", p.date)
		}
		payload.EffectiveDate = &date
	}
	if p.visibility != "" {
		scope, err := lifecycle.ParseScope(p.visibility)
		if err != nil {
			return payload, err
		}
		payload.Scope = scope
	}
	return payload, nil
}

// parseLine parses ITEM:QTY[:CATALOG_REF].
func parseLine(raw string) (lifecycle.LineItem, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
		return lifecycle.LineItem{}, fmt.Errorf("invalid --line %q: want ITEM:QTY[:CATALOG_REF]", raw)
	}
	qty, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || qty <= 0 {
		return lifecycle.LineItem{}, fmt.Errorf("invalid --line %q: quantity must be a positive integer", raw)
	}
	line := lifecycle.LineItem{ItemID: strings.TrimSpace(parts[0]), Quantity: qty}
	if len(parts) == 3 {
		line.CatalogRef = strings.TrimSpace(parts[2])
	}
	return line, nil
}
