package metadata_test

import (
	"testing"
	"time"

	"github.com/jade/eventcore/pkg/metadata"
)

func TestNewEnvelope(t *testing.T) {
	t.Run("DefaultsCorrelationIDToOwnID", func(t *testing.T) {
		e := metadata.NewEnvelope("", "", "user-1")
		if e.ID == "" {
			t.Fatal("expected a generated id")
		}
		if e.CorrelationID != e.ID {
			t.Fatalf("expected correlation id to default to own id, got %q vs %q", e.CorrelationID, e.ID)
		}
	})

	t.Run("PreservesGivenCorrelationID", func(t *testing.T) {
		e := metadata.NewEnvelope("corr-1", "cause-1", "user-1")
		if e.CorrelationID != "corr-1" {
			t.Fatalf("expected correlation id corr-1, got %q", e.CorrelationID)
		}
		if e.CausationID != "cause-1" {
			t.Fatalf("expected causation id cause-1, got %q", e.CausationID)
		}
	})
}

func TestEnvelopeWithServerTimestamp(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("FillsZeroTimestamp", func(t *testing.T) {
		e := metadata.Envelope{}
		stamped := e.WithServerTimestamp(now)
		if !stamped.Timestamp.Equal(now) {
			t.Fatalf("expected timestamp %v, got %v", now, stamped.Timestamp)
		}
	})

	t.Run("PreservesExplicitTimestamp", func(t *testing.T) {
		explicit := now.Add(-time.Hour)
		e := metadata.Envelope{Timestamp: explicit}
		stamped := e.WithServerTimestamp(now)
		if !stamped.Timestamp.Equal(explicit) {
			t.Fatalf("expected explicit timestamp preserved, got %v", stamped.Timestamp)
		}
	})
}

func TestEnvelopeDerive(t *testing.T) {
	parent := metadata.NewEnvelope("corr-1", "", "user-1")
	child := parent.Derive()

	if child.ID == parent.ID {
		t.Fatal("expected a fresh id for the derived envelope")
	}
	if child.CorrelationID != parent.CorrelationID {
		t.Fatalf("expected correlation id to propagate, got %q", child.CorrelationID)
	}
	if child.CausationID != parent.ID {
		t.Fatalf("expected causation id to point at parent id, got %q", child.CausationID)
	}
	if child.UserID != parent.UserID {
		t.Fatalf("expected user id to propagate, got %q", child.UserID)
	}
}
