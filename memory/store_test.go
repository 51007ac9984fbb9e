package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mnemosyneos/mnemo/memory"
	"github.com/mnemosyneos/mnemo/memory/embedder/mock"
	"github.com/mnemosyneos/mnemo/memory/index/chromem"
)

func newSemantic(t *testing.T) *memory.SemanticStore {
	t.Helper()
	backend, err := chromem.New()
	if err != nil {
		t.Fatalf("create backend: %v", err)
	}
	return memory.NewSemanticStore(backend, mock.New(), nil)
}

func TestStoreAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSemantic(t)

	rec, err := store.Store(ctx, "Go interfaces are satisfied implicitly", []string{"go", "types"}, map[string]string{"topic": "language"}, "test")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected generated id")
	}
	if !rec.CreatedAt.Equal(rec.UpdatedAt) {
		t.Errorf("created_at != updated_at on fresh record: %v vs %v", rec.CreatedAt, rec.UpdatedAt)
	}

	got, ok, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("stored record not found")
	}
	if got.Content != rec.Content {
		t.Errorf("content changed: %q vs %q", got.Content, rec.Content)
	}
	if got.Metadata["topic"] != "language" {
		t.Errorf("caller metadata lost: %v", got.Metadata)
	}
	if len(got.Tags) != 2 || !got.HasTag("go") || !got.HasTag("types") {
		t.Errorf("tags changed: %v", got.Tags)
	}
}

func TestStoreRejectsEmptyContent(t *testing.T) {
	store := newSemantic(t)
	_, err := store.Store(context.Background(), "   ", nil, nil, "test")
	if !errors.Is(err, memory.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReservedMetadataWinsOverCaller(t *testing.T) {
	ctx := context.Background()
	store := newSemantic(t)

	rec, err := store.Store(ctx, "fact", nil, map[string]string{"layer": "episodic", "tags": "x"}, "test")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	got, _, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Layer != memory.LayerSemantic {
		t.Errorf("caller overrode layer: %v", got.Layer)
	}
	if len(got.Tags) != 0 {
		t.Errorf("caller injected tags: %v", got.Tags)
	}
}

func TestUpdatePartial(t *testing.T) {
	ctx := context.Background()
	store := newSemantic(t)

	rec, err := store.Store(ctx, "original", []string{"keep"}, map[string]string{"a": "1"}, "test")
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	newContent := "revised"
	updated, ok, err := store.Update(ctx, rec.ID, memory.UpdateRequest{
		Content:  &newContent,
		Metadata: map[string]string{"b": "2"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !ok {
		t.Fatal("update reported not found")
	}
	if updated.Content != "revised" {
		t.Errorf("content not updated: %q", updated.Content)
	}
	if !updated.HasTag("keep") {
		t.Errorf("unspecified tags changed: %v", updated.Tags)
	}
	if updated.Metadata["a"] != "1" || updated.Metadata["b"] != "2" {
		t.Errorf("metadata merge wrong: %v", updated.Metadata)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("updated_at did not increase: %v vs %v", updated.UpdatedAt, updated.CreatedAt)
	}

	if _, ok, _ := store.Update(ctx, "no-such-id", memory.UpdateRequest{}); ok {
		t.Error("update of missing id should report not found")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newSemantic(t)

	rec, err := store.Store(ctx, "ephemeral", nil, nil, "test")
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	deleted, err := store.Delete(ctx, rec.ID)
	if err != nil || !deleted {
		t.Fatalf("first delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = store.Delete(ctx, rec.ID)
	if err != nil {
		t.Fatalf("second delete errored: %v", err)
	}
	if deleted {
		t.Error("second delete should report nothing removed")
	}
	if _, ok, _ := store.Get(ctx, rec.ID); ok {
		t.Error("record still retrievable after delete")
	}
}

func TestRetrieveRelevanceBoundsAndOrder(t *testing.T) {
	ctx := context.Background()
	store := newSemantic(t)

	contents := []string{
		"the cache invalidation strategy",
		"a note about gardening",
		"vector databases and embeddings",
		"tuesday standup summary",
	}
	for _, c := range contents {
		if _, err := store.Store(ctx, c, nil, nil, "test"); err != nil {
			t.Fatalf("store %q: %v", c, err)
		}
	}

	hits, err := store.Retrieve(ctx, "embeddings in vector databases", 3, nil)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected results")
	}
	for i, h := range hits {
		if h.Relevance < 0 || h.Relevance > 1 {
			t.Errorf("relevance out of range: %v", h.Relevance)
		}
		if i > 0 && hits[i-1].Relevance < h.Relevance {
			t.Errorf("relevance not non-increasing at %d: %v then %v", i, hits[i-1].Relevance, h.Relevance)
		}
	}
}

func TestRetrieveTagFilterIsConjunctive(t *testing.T) {
	ctx := context.Background()
	store := newSemantic(t)

	if _, err := store.Store(ctx, "both tags present", []string{"alpha", "beta"}, nil, "test"); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := store.Store(ctx, "only one tag", []string{"alpha"}, nil, "test"); err != nil {
		t.Fatalf("store: %v", err)
	}

	hits, err := store.Retrieve(ctx, "tags", 10, &memory.RetrieveOptions{Tags: []string{"alpha", "beta"}})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected exactly the record with both tags, got %d", len(hits))
	}
	if hits[0].Record.Content != "both tags present" {
		t.Errorf("wrong record matched: %q", hits[0].Record.Content)
	}
}

func TestStatsScan(t *testing.T) {
	ctx := context.Background()
	store := newSemantic(t)

	for i := 0; i < 3; i++ {
		if _, err := store.Store(ctx, "fact", []string{"common"}, nil, "test"); err != nil {
			t.Fatalf("store: %v", err)
		}
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 3 {
		t.Errorf("count = %d", stats.Count)
	}
	if stats.TagCounts["common"] != 3 {
		t.Errorf("tag histogram = %v", stats.TagCounts)
	}
	if stats.Oldest.IsZero() || stats.Newest.Before(stats.Oldest) {
		t.Errorf("time span wrong: %v .. %v", stats.Oldest, stats.Newest)
	}
}
