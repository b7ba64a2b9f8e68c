package cluster

import (
	"log/slog"
	"os"
	"testing"
)

func testRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestObserveAndLookup(t *testing.T) {
	r := testRegistry()
	r.Observe(Ref{Name: "c1", Scheduler: SchedulerNodeManager, Version: "3.9.1"})

	k, ok := r.Lookup("c1")
	if !ok {
		t.Fatal("expected lookup to succeed")
	}
	if k.Ref.Scheduler != SchedulerNodeManager {
		t.Errorf("scheduler = %q", k.Ref.Scheduler)
	}
	if k.LastSeenAt.IsZero() {
		t.Error("last seen should be set")
	}
}

func TestLookupMissing(t *testing.T) {
	r := testRegistry()
	if _, ok := r.Lookup("nope"); ok {
		t.Error("expected lookup to fail")
	}
}

func TestForget(t *testing.T) {
	r := testRegistry()
	r.Observe(Ref{Name: "c1", Scheduler: SchedulerBatch})
	r.Forget("c1")
	if _, ok := r.Lookup("c1"); ok {
		t.Error("expected lookup to fail after forget")
	}
	r.Forget("c1") // absent forget is a no-op
}

func TestListSorted(t *testing.T) {
	r := testRegistry()
	r.Observe(Ref{Name: "zeta", Scheduler: SchedulerBatch})
	r.Observe(Ref{Name: "alpha", Scheduler: SchedulerNodeManager})
	r.Observe(Ref{Name: "mid", Scheduler: SchedulerNodeManager})

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("list len = %d, want 3", len(list))
	}
	if list[0].Ref.Name != "alpha" || list[2].Ref.Name != "zeta" {
		t.Errorf("list not sorted: %v, %v, %v", list[0].Ref.Name, list[1].Ref.Name, list[2].Ref.Name)
	}
}

func TestReobserveUpdates(t *testing.T) {
	r := testRegistry()
	r.Observe(Ref{Name: "c1", Scheduler: SchedulerNodeManager, Version: "3.8.0"})
	r.Observe(Ref{Name: "c1", Scheduler: SchedulerNodeManager, Version: "3.9.1"})

	k, _ := r.Lookup("c1")
	if k.Ref.Version != "3.9.1" {
		t.Errorf("version = %q, want 3.9.1", k.Ref.Version)
	}
	if len(r.List()) != 1 {
		t.Errorf("list len = %d, want 1", len(r.List()))
	}
}
