package observability

import (
	"testing"
	"time"
)

func TestTurnWindowSnapshot(t *testing.T) {
	w := NewTurnWindow(8)
	w.Observe("handle_text", 500*time.Millisecond)
	w.Observe("handle_text", 700*time.Millisecond)
	w.Observe("handle_text", 900*time.Millisecond)

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "handle_text" || s.Samples != 3 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
}

func TestTurnWindowWrapsRing(t *testing.T) {
	w := NewTurnWindow(2)
	for i := 1; i <= 5; i++ {
		w.Observe("render_document", time.Duration(i*100)*time.Millisecond)
	}
	snap := w.Snapshot()
	if snap.Stages[0].Samples != 2 {
		t.Fatalf("Samples = %d, want window size 2", snap.Stages[0].Samples)
	}
	if snap.Stages[0].LastMS != 500 {
		t.Fatalf("LastMS = %.2f, want 500", snap.Stages[0].LastMS)
	}
}
