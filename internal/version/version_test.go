package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	oldCommit, oldBuild := Commit, BuildTime
	t.Cleanup(func() { Commit, BuildTime = oldCommit, oldBuild })

	Commit = "0123456789abcdef"
	BuildTime = "2026-03-10T09:00:00Z"

	got := String()
	if !strings.HasPrefix(got, "doclife dev") {
		t.Errorf("unexpected prefix: %s", got)
	}
	if !strings.Contains(got, "commit: 0123456") || strings.Contains(got, "89abcdef") {
		t.Errorf("expected short commit, got %s", got)
	}
	if !strings.Contains(got, "built: 2026-03-10T09:00:00Z") {
		t.Errorf("expected build time, got %s", got)
	}
}
