package memory_test

import (
	"context"
	"testing"

	"github.com/mnemosyneos/mnemo/memory"
)

func TestFilterTagMembershipIsExact(t *testing.T) {
	meta := map[string]string{
		memory.MetaTags:     "golang, testing",
		memory.MetaEmotions: "enjoyment",
		"title":             "Deploy the web service",
	}

	f := &memory.Filter{Contains: map[string][]string{memory.MetaTags: {"go"}}}
	if f.Match(meta) {
		t.Error("tag filter 'go' must not match a record tagged only 'golang'")
	}

	f = &memory.Filter{Contains: map[string][]string{memory.MetaTags: {"golang", "testing"}}}
	if !f.Match(meta) {
		t.Error("exact tag elements should match")
	}

	f = &memory.Filter{Contains: map[string][]string{memory.MetaEmotions: {"joy"}}}
	if f.Match(meta) {
		t.Error("emotion filter 'joy' must not match 'enjoyment'")
	}

	// Non-set fields keep substring semantics for fragment search.
	f = &memory.Filter{Contains: map[string][]string{"title": {"Deploy"}}}
	if !f.Match(meta) {
		t.Error("title fragments should still match by substring")
	}
}

func TestRetrieveTagFilterRejectsSubstrings(t *testing.T) {
	ctx := context.Background()
	store := newSemantic(t)

	if _, err := store.Store(ctx, "generics landed in the language", []string{"golang"}, nil, "test"); err != nil {
		t.Fatalf("store: %v", err)
	}

	hits, err := store.Retrieve(ctx, "language features", 10, &memory.RetrieveOptions{Tags: []string{"go"}})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("tag 'go' matched %d record(s) tagged only 'golang'", len(hits))
	}

	recs, err := store.Find(ctx, &memory.Filter{
		Contains: map[string][]string{memory.MetaTags: {"go"}},
	}, 0, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("find with tag 'go' matched %d record(s) tagged only 'golang'", len(recs))
	}

	exact, err := store.Retrieve(ctx, "language features", 10, &memory.RetrieveOptions{Tags: []string{"golang"}})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(exact) != 1 {
		t.Fatalf("exact tag should still match, got %d", len(exact))
	}
}
