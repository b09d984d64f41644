package ui

import (
	"strings"
	"testing"

	"cflow/internal/driver"
)

func TestProgressModel_AppliesFunctionEvents(t *testing.T) {
	m := NewProgressModel("lower m.cfir", []string{"count", "classify"}, nil).(*progressModel)

	m.Update(eventMsg(driver.Event{Func: "count", Stage: driver.StageGenerator, Status: driver.StatusWorking}))
	m.Update(eventMsg(driver.Event{Func: "classify", Status: driver.StatusCached}))
	m.Update(eventMsg(driver.Event{Func: "unknown", Status: driver.StatusError}))

	if m.items[0].status != "rewriting" || m.items[1].status != "cached" {
		t.Fatalf("statuses = %q, %q", m.items[0].status, m.items[1].status)
	}
	view := m.View()
	for _, want := range []string{"lower m.cfir", "count", "rewriting", "cached"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("generator_with_a_long_name", 10); got != "generat..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
