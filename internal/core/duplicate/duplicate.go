// Package duplicate computes duplicate-candidate signatures and similarity
// scores for the uniqueness guard. Pure functions only.
package duplicate

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// Signature identifies what a document is about, for duplicate detection.
type Signature struct {
	TenantID        string
	EntityKey       string
	NormalizedTitle string
}

// SignatureOf computes the signature of a document.
func SignatureOf(doc *lifecycle.Document) Signature {
	return Signature{
		TenantID:        doc.TenantID,
		EntityKey:       doc.EntityKey(),
		NormalizedTitle: Normalize(doc.Title),
	}
}

var folder = cases.Fold()

// Normalize lowercases, strips accents and punctuation, and collapses
// whitespace, so "Fuga de aceite – Bomba #2" and "fuga de aceite bomba 2"
// normalize identically.
func Normalize(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, title)
	if err != nil {
		stripped = title
	}
	stripped = folder.String(stripped)

	var b strings.Builder
	space := true
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteRune(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Score returns the similarity of two signatures in [0, 1]. Signatures for
// different tenants or different entities never match. Titles are compared
// with the Sørensen–Dice coefficient over character bigrams.
func Score(a, b Signature) float64 {
	if a.TenantID != b.TenantID || a.EntityKey != b.EntityKey {
		return 0
	}
	return dice(a.NormalizedTitle, b.NormalizedTitle)
}

func dice(a, b string) float64 {
	if a == b {
		return 1
	}
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	counts := make(map[string]int, len(ba))
	for _, g := range ba {
		counts[g]++
	}
	shared := 0
	for _, g := range bb {
		if counts[g] > 0 {
			counts[g]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ba)+len(bb))
}

func bigrams(s string) []string {
	r := []rune(s)
	if len(r) < 2 {
		if len(r) == 1 {
			return []string{string(r)}
		}
		return nil
	}
	out := make([]string, 0, len(r)-1)
	for i := 0; i < len(r)-1; i++ {
		out = append(out, string(r[i:i+2]))
	}
	return out
}

// Existing is an open document the candidate is compared against.
type Existing struct {
	DocumentID string
	Signature  Signature
	CreatedAt  time.Time
}

// Matches returns the existing documents created at or after since whose
// score reaches cutoff, best match first.
func Matches(candidate Signature, existing []Existing, since time.Time, cutoff float64) []lifecycle.Candidate {
	var out []lifecycle.Candidate
	for _, e := range existing {
		if e.CreatedAt.Before(since) {
			continue
		}
		score := Score(candidate, e.Signature)
		if score > 0 && score >= cutoff {
			out = append(out, lifecycle.Candidate{DocumentID: e.DocumentID, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out
}
