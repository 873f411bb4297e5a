package findings

import (
	"testing"
	"time"
)

var findingBase = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func TestHasLine(t *testing.T) {
	var f Finding
	if f.HasLine() {
		t.Fatal("a finding without a line must not report one")
	}
	if f.LineValue() != 0 {
		t.Fatalf("expected 0 for a missing line, got %d", f.LineValue())
	}

	zero := 0
	f.Line = &zero
	if !f.HasLine() {
		t.Fatal("line zero is still an anchored line")
	}

	line := 42
	f.Line = &line
	if f.LineValue() != 42 {
		t.Fatalf("expected 42, got %d", f.LineValue())
	}
}

func TestEventsAfter(t *testing.T) {
	f := Finding{Changelog: []ChangeEvent{
		{At: findingBase, Actor: "alice", Kind: ChangeComment},
		{At: findingBase.Add(10 * time.Minute), Actor: "alice", Kind: ChangeTransition},
		{At: findingBase.Add(20 * time.Minute), Actor: "bob", Kind: ChangeComment},
	}}

	after := f.EventsAfter(findingBase)
	if len(after) != 2 {
		t.Fatalf("expected the cutoff to be exclusive, got %d events", len(after))
	}
	if after[0].Kind != ChangeTransition || after[1].Actor != "bob" {
		t.Fatalf("expected order preserved, got %+v", after)
	}

	if got := f.EventsAfter(findingBase.Add(time.Hour)); len(got) != 0 {
		t.Fatalf("expected no events past the newest, got %d", len(got))
	}
	if got := f.EventsAfter(time.Time{}); len(got) != 3 {
		t.Fatalf("expected all events after the zero time, got %d", len(got))
	}
}

func TestNewestEventBy(t *testing.T) {
	f := Finding{Changelog: []ChangeEvent{
		{At: findingBase.Add(30 * time.Minute), Actor: "svc-sync", Kind: ChangeComment},
		{At: findingBase, Actor: "svc-sync", Kind: ChangeTransition},
		{At: findingBase.Add(time.Hour), Actor: "alice", Kind: ChangeComment},
	}}

	newest, ok := f.NewestEventBy("svc-sync")
	if !ok {
		t.Fatal("expected an event for the actor")
	}
	if !newest.Equal(findingBase.Add(30 * time.Minute)) {
		t.Fatalf("expected the newest of the actor's events, got %v", newest)
	}

	if _, ok := f.NewestEventBy("nobody"); ok {
		t.Fatal("expected no event for an unknown actor")
	}
}

func TestHasForeignManualChanges(t *testing.T) {
	clean := Finding{}
	if clean.HasForeignManualChanges("svc-sync") {
		t.Fatal("a finding without history has no foreign changes")
	}

	owned := Finding{Changelog: []ChangeEvent{
		{At: findingBase, Actor: "svc-sync", Kind: ChangeComment},
	}}
	if owned.HasForeignManualChanges("svc-sync") {
		t.Fatal("the service account's own events are not foreign")
	}

	touched := Finding{Changelog: []ChangeEvent{
		{At: findingBase, Actor: "svc-sync", Kind: ChangeComment},
		{At: findingBase.Add(time.Minute), Actor: "alice", Kind: ChangeTransition},
	}}
	if !touched.HasForeignManualChanges("svc-sync") {
		t.Fatal("expected the human event to count as foreign")
	}
}
