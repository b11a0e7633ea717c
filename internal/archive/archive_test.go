package archive

import (
	"context"
	"testing"
)

func TestInMemoryStoreStats(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, workflow := range []string{"policy", "policy", "checklist"} {
		if err := store.Record(ctx, DocumentRecord{Workflow: workflow, FileName: "doc.md"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("total = %d, want 3", stats.Total)
	}
	if stats.ByWorkflow["policy"] != 2 || stats.ByWorkflow["checklist"] != 1 {
		t.Fatalf("by workflow = %v", stats.ByWorkflow)
	}
}

func TestInMemoryStoreFillsDefaults(t *testing.T) {
	store := NewInMemoryStore()
	if err := store.Record(context.Background(), DocumentRecord{Workflow: "dpia", FileName: "d.md"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	store.mu.Lock()
	rec := store.records[0]
	store.mu.Unlock()
	if rec.ID == "" {
		t.Fatalf("record id should be generated")
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("created_at should be stamped")
	}
}

func TestFactoryDefaultsToInMemory(t *testing.T) {
	store, err := NewStore(context.Background(), "  ")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, ok := store.(*InMemoryStore); !ok {
		t.Fatalf("empty DATABASE_URL should yield the in-memory store, got %T", store)
	}
}
