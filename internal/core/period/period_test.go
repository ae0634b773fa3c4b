package period

import (
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "mid month", at: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC), want: "2026-03"},
		{name: "last instant of month", at: time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC), want: "2026-03"},
		{name: "non-UTC input is normalized", at: time.Date(2026, 4, 1, 1, 0, 0, 0, time.FixedZone("ART", 3*3600)), want: "2026-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.at); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseKey(t *testing.T) {
	if _, err := ParseKey("2026-13"); err == nil {
		t.Error("ParseKey(2026-13) = nil error, want error")
	}
	start, end, err := Bounds("2026-02")
	if err != nil {
		t.Fatalf("Bounds failed: %v", err)
	}
	if !start.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Bounds(2026-02) = [%v, %v)", start, end)
	}
}

func TestEffectiveDate(t *testing.T) {
	now := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	explicit := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)

	if got := EffectiveDate(&explicit, now); !got.Equal(explicit) {
		t.Errorf("EffectiveDate(explicit) = %v, want %v", got, explicit)
	}
	if got := EffectiveDate(nil, now); !got.Equal(now) {
		t.Errorf("EffectiveDate(nil) = %v, want %v", got, now)
	}
}

func TestKeys(t *testing.T) {
	now := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	march := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	lateMarch := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		stored   time.Time
		explicit *time.Time
		want     []string
	}{
		{name: "undated document falls back to now", want: []string{"2026-05"}},
		{name: "stored date", stored: march, want: []string{"2026-03"}},
		{name: "request date in the same period", stored: march, explicit: &lateMarch, want: []string{"2026-03"}},
		{name: "request date adds its period", stored: march, explicit: &april, want: []string{"2026-03", "2026-04"}},
		{name: "request date on an undated document", explicit: &april, want: []string{"2026-05", "2026-04"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Keys(tt.stored, tt.explicit, now)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Keys() = %v, want %v", got, tt.want)
			}
		})
	}
}
