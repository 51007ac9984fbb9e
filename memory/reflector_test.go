package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mnemosyneos/mnemo/memory"
	"github.com/mnemosyneos/mnemo/memory/embedder/mock"
	"github.com/mnemosyneos/mnemo/memory/index/chromem"
)

type reflectorFixture struct {
	semantic   *memory.SemanticStore
	episodic   *memory.EpisodicStore
	procedural *memory.ProceduralStore
	reflective *memory.ReflectiveStore
}

func newReflectorFixture(t *testing.T) *reflectorFixture {
	t.Helper()
	backend, err := chromem.New()
	if err != nil {
		t.Fatalf("create backend: %v", err)
	}
	emb := mock.New()
	return &reflectorFixture{
		semantic:   memory.NewSemanticStore(backend, emb, nil),
		episodic:   memory.NewEpisodicStore(backend, emb, nil),
		procedural: memory.NewProceduralStore(backend, emb, nil),
		reflective: memory.NewReflectiveStore(backend, emb, nil),
	}
}

func (f *reflectorFixture) reflector(completer memory.Completer) *memory.Reflector {
	return memory.NewReflector(f.semantic, f.episodic, f.procedural, f.reflective, completer)
}

func (f *reflectorFixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.semantic.Store(ctx, "The user prefers morning meetings", []string{"scheduling"}, nil, "test"); err != nil {
		t.Fatalf("seed semantic: %v", err)
	}
	if _, err := f.episodic.StoreEvent(ctx, "Rescheduled the sync to 9am", time.Now().UTC().Add(-time.Hour), []string{"scheduling"}, nil, "test"); err != nil {
		t.Fatalf("seed episodic: %v", err)
	}
	proc := memory.Procedure{Title: "Book a meeting", Steps: []string{"check calendars", "send invite"}}
	if _, err := f.procedural.StoreProcedure(ctx, proc, []string{"scheduling"}, "test"); err != nil {
		t.Fatalf("seed procedural: %v", err)
	}
}

func TestGenerateEmptyCandidateSetSkipsCompletion(t *testing.T) {
	ctx := context.Background()
	f := newReflectorFixture(t)
	stub := &stubCompleter{}

	recs, err := f.reflector(stub).Generate(ctx, memory.ReflectOptions{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no reflections, got %d", len(recs))
	}
	if stub.calls != 0 {
		t.Errorf("completion capability should not be called, got %d calls", stub.calls)
	}
	if n, _ := f.reflective.Count(ctx); n != 0 {
		t.Errorf("no records should be stored, got %d", n)
	}
}

func TestGenerateStoresOneRecordPerChunk(t *testing.T) {
	ctx := context.Background()
	f := newReflectorFixture(t)
	f.seed(t)

	stub := &stubCompleter{responses: []string{`REFLECTION:
Scheduling keeps coming up.
EVIDENCE:
Both the preference and the reschedule point at mornings.
TAGS:
scheduling
---
REFLECTION:
Meeting logistics are well proceduralized.
TAGS:
process`}}

	recs, err := f.reflector(stub).Generate(ctx, memory.ReflectOptions{Query: "meetings"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 reflections, got %d", len(recs))
	}
	if stub.calls != 1 {
		t.Errorf("expected one completion call, got %d", stub.calls)
	}

	sources := memory.SourceMemories(recs[0])
	if len(sources) != 3 {
		t.Fatalf("each reflection should carry all sampled sources, got %d", len(sources))
	}
	otherSources := memory.SourceMemories(recs[1])
	if len(otherSources) != len(sources) {
		t.Errorf("both reflections should share the full source list")
	}
	for _, rec := range recs {
		if rec.Metadata[memory.MetaSourceType] != "query" {
			t.Errorf("source_type = %q, want query", rec.Metadata[memory.MetaSourceType])
		}
		if !rec.HasTag("reflection") {
			t.Errorf("reflection tag missing: %v", rec.Tags)
		}
	}
	if !recs[0].HasTag("scheduling") || !recs[1].HasTag("process") {
		t.Errorf("parsed tags not applied: %v / %v", recs[0].Tags, recs[1].Tags)
	}
	if !strings.Contains(recs[0].Content, "Evidence:") {
		t.Errorf("evidence section missing from content: %q", recs[0].Content)
	}
}

func TestGenerateFallbackOnUnparseableResponse(t *testing.T) {
	ctx := context.Background()
	f := newReflectorFixture(t)
	f.seed(t)

	stub := &stubCompleter{responses: []string{"The model decided to chat instead of following the format."}}
	recs, err := f.reflector(stub).Generate(ctx, memory.ReflectOptions{Query: "meetings"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one fallback record, got %d", len(recs))
	}
	rec := recs[0]
	if !strings.Contains(rec.Content, "No specific patterns identified") {
		t.Errorf("unexpected fallback content: %q", rec.Content)
	}
	if !rec.HasTag("general") || !rec.HasTag("reflection") {
		t.Errorf("fallback tags wrong: %v", rec.Tags)
	}
	if len(memory.SourceMemories(rec)) != 3 {
		t.Errorf("fallback should still carry sources: %v", rec.Metadata)
	}
}

func TestGenerateFallbackOnCompletionError(t *testing.T) {
	ctx := context.Background()
	f := newReflectorFixture(t)
	f.seed(t)

	stub := &stubCompleter{err: errors.New("model offline")}
	recs, err := f.reflector(stub).Generate(ctx, memory.ReflectOptions{Query: "meetings"})
	if err != nil {
		t.Fatalf("generate should degrade, not fail: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one error record, got %d", len(recs))
	}
	rec := recs[0]
	if !strings.Contains(rec.Content, "Error generating reflections") || !strings.Contains(rec.Content, "model offline") {
		t.Errorf("error record content: %q", rec.Content)
	}
	if !rec.HasTag("error") || !rec.HasTag("reflection_generation") {
		t.Errorf("error record tags: %v", rec.Tags)
	}
}

func TestGenerateTagBranch(t *testing.T) {
	ctx := context.Background()
	f := newReflectorFixture(t)
	f.seed(t)

	// A record without the tag must not be sampled.
	if _, err := f.semantic.Store(ctx, "Unrelated trivia", []string{"misc"}, nil, "test"); err != nil {
		t.Fatalf("store: %v", err)
	}

	stub := &stubCompleter{responses: []string{"REFLECTION:\ntag-driven insight\nTAGS:\nscheduling"}}
	recs, err := f.reflector(stub).Generate(ctx, memory.ReflectOptions{Tags: []string{"scheduling"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 reflection, got %d", len(recs))
	}
	if recs[0].Metadata[memory.MetaSourceType] != "tags" {
		t.Errorf("source_type = %q, want tags", recs[0].Metadata[memory.MetaSourceType])
	}
	if len(memory.SourceMemories(recs[0])) != 3 {
		t.Errorf("tag branch should sample only tagged records, got %v", memory.SourceMemories(recs[0]))
	}
}

func TestGenerateRecencyBranchWindow(t *testing.T) {
	ctx := context.Background()
	f := newReflectorFixture(t)

	// Only events inside the 7 day window qualify for the recency branch.
	if _, err := f.episodic.StoreEvent(ctx, "stale event", time.Now().UTC().Add(-10*24*time.Hour), nil, nil, "test"); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := f.episodic.StoreEvent(ctx, "fresh event", time.Now().UTC().Add(-24*time.Hour), nil, nil, "test"); err != nil {
		t.Fatalf("store: %v", err)
	}

	stub := &stubCompleter{responses: []string{"REFLECTION:\nrecent activity insight"}}
	recs, err := f.reflector(stub).Generate(ctx, memory.ReflectOptions{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 reflection, got %d", len(recs))
	}
	if recs[0].Metadata[memory.MetaSourceType] != "recent" {
		t.Errorf("source_type = %q, want recent", recs[0].Metadata[memory.MetaSourceType])
	}
	if got := memory.SourceMemories(recs[0]); len(got) != 1 {
		t.Errorf("only the fresh event should be sampled, got %d sources", len(got))
	}
}

func TestGenerateHonorsMaxSources(t *testing.T) {
	ctx := context.Background()
	f := newReflectorFixture(t)

	for i := 0; i < 5; i++ {
		if _, err := f.episodic.StoreEvent(ctx, "event", time.Now().UTC().Add(-time.Hour), nil, nil, "test"); err != nil {
			t.Fatalf("store: %v", err)
		}
	}

	stub := &stubCompleter{responses: []string{"REFLECTION:\nbounded sampling"}}
	recs, err := f.reflector(stub).Generate(ctx, memory.ReflectOptions{MaxSources: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 reflection, got %d", len(recs))
	}
	if got := memory.SourceMemories(recs[0]); len(got) > 2 {
		t.Errorf("budget exceeded: %d sources", len(got))
	}
}
