// Package period derives accounting periods from effective dates.
// Periods are calendar months keyed as YYYY-MM in UTC.
package period

import (
	"fmt"
	"time"
)

const keyLayout = "2006-01"

// Key returns the period key of t.
func Key(t time.Time) string {
	return t.UTC().Format(keyLayout)
}

// ParseKey validates a period key and returns the first instant of the period.
func ParseKey(key string) (time.Time, error) {
	t, err := time.Parse(keyLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period %q (want YYYY-MM): %w", key, err)
	}
	return t, nil
}

// EffectiveDate returns the date a mutation belongs to: the explicit date
// supplied with the request when present, otherwise now.
func EffectiveDate(explicit *time.Time, now time.Time) time.Time {
	if explicit != nil && !explicit.IsZero() {
		return explicit.UTC()
	}
	return now.UTC()
}

// Keys returns the periods a mutation of a document touches: the period of
// the document's effective date (now when the document has none) and, when
// the request carries its own date, that period too. A request date adds a
// period to check; it never replaces the document's own.
func Keys(stored time.Time, explicit *time.Time, now time.Time) []string {
	base := stored
	if base.IsZero() {
		base = now
	}
	keys := []string{Key(base)}
	if explicit != nil && !explicit.IsZero() {
		if k := Key(*explicit); k != keys[0] {
			keys = append(keys, k)
		}
	}
	return keys
}

// Bounds returns the half-open interval [start, end) covered by the period.
func Bounds(key string) (time.Time, time.Time, error) {
	start, err := ParseKey(key)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}
