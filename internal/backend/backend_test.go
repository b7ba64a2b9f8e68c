package backend

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"corral/internal/fleet"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNodeManagerVocabulary(t *testing.T) {
	n := NewNodeManager(nil, testLogger())

	if tr, err := n.Validate(fleet.RequestedStart); err != nil || tr != fleet.TransitionStart {
		t.Errorf("START_REQUESTED: transition = %q, err = %v", tr, err)
	}
	if tr, err := n.Validate(fleet.RequestedStop); err != nil || tr != fleet.TransitionStop {
		t.Errorf("STOP_REQUESTED: transition = %q, err = %v", tr, err)
	}

	for _, bad := range []fleet.RequestedStatus{fleet.RequestedEnabled, fleet.RequestedDisabled, "RUNNING", ""} {
		_, err := n.Validate(bad)
		var fe *fleet.Error
		if !errors.As(err, &fe) || fe.Kind != fleet.KindInvalidRequest {
			t.Fatalf("Validate(%q): err = %v, want InvalidTransitionRequest", bad, err)
		}
		if !strings.Contains(fe.Message, "START_REQUESTED") || !strings.Contains(fe.Message, "STOP_REQUESTED") {
			t.Errorf("Validate(%q): message should name the accepted values: %q", bad, fe.Message)
		}
	}
}

func TestBatchVocabulary(t *testing.T) {
	b := NewBatch(nil, "test", 0, testLogger())

	if tr, err := b.Validate(fleet.RequestedEnabled); err != nil || tr != fleet.TransitionStart {
		t.Errorf("ENABLED: transition = %q, err = %v", tr, err)
	}
	if tr, err := b.Validate(fleet.RequestedDisabled); err != nil || tr != fleet.TransitionStop {
		t.Errorf("DISABLED: transition = %q, err = %v", tr, err)
	}

	for _, bad := range []fleet.RequestedStatus{fleet.RequestedStart, fleet.RequestedStop, "on", ""} {
		_, err := b.Validate(bad)
		var fe *fleet.Error
		if !errors.As(err, &fe) || fe.Kind != fleet.KindInvalidRequest {
			t.Fatalf("Validate(%q): err = %v, want InvalidTransitionRequest", bad, err)
		}
		if !strings.Contains(fe.Message, "ENABLED") || !strings.Contains(fe.Message, "DISABLED") {
			t.Errorf("Validate(%q): message should name the accepted values: %q", bad, fe.Message)
		}
	}
}

func TestAdapterKinds(t *testing.T) {
	if NewNodeManager(nil, testLogger()).Kind() != "nodemgr" {
		t.Error("node manager kind mismatch")
	}
	if NewBatch(nil, "test", 0, testLogger()).Kind() != "batch" {
		t.Error("batch kind mismatch")
	}
}
