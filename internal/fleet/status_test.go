package fleet

import "testing"

func TestTransitional(t *testing.T) {
	if got := TransitionStart.Transitional(); got != StatusStarting {
		t.Errorf("start transitional = %q, want STARTING", got)
	}
	if got := TransitionStop.Transitional(); got != StatusStopping {
		t.Errorf("stop transitional = %q, want STOPPING", got)
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusProtected, StatusUnknown} {
		if !s.Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	for _, s := range []Status{StatusStopped, StatusStopping, StatusStarting, StatusRunning} {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}

func TestAllStatusesComplete(t *testing.T) {
	all := AllStatuses()
	if len(all) != 8 {
		t.Fatalf("len = %d, want 8", len(all))
	}
	seen := make(map[string]bool)
	for _, s := range all {
		if seen[s] {
			t.Errorf("duplicate status %q", s)
		}
		seen[s] = true
	}
}
