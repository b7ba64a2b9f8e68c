package cluster

import "testing"

func TestGateCheck(t *testing.T) {
	g := NewGate("3.9.1")

	cases := []struct {
		version string
		want    bool
	}{
		{"3.9.1", true},
		{"3.0.0", true},
		{"3.11.4", true},
		{"3", true},
		{"2.11.1", false},
		{"4.0.0", false},
		{"", false},
	}
	for _, c := range cases {
		got := g.Check(Ref{Name: "c1", Version: c.version})
		if got != c.want {
			t.Errorf("Check(version=%q) = %v, want %v", c.version, got, c.want)
		}
	}
}

func TestGateFromBareMajor(t *testing.T) {
	g := NewGate("3")
	if !g.Check(Ref{Version: "3.2.0"}) {
		t.Error("3.2.0 should pass a major-3 gate")
	}
}

func TestSchedulerKindValid(t *testing.T) {
	if !SchedulerNodeManager.Valid() || !SchedulerBatch.Valid() {
		t.Error("known kinds should be valid")
	}
	if SchedulerKind("").Valid() || SchedulerKind("cron").Valid() {
		t.Error("unknown kinds should be invalid")
	}
}
