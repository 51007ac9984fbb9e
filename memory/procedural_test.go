package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mnemosyneos/mnemo/memory"
	"github.com/mnemosyneos/mnemo/memory/embedder/mock"
	"github.com/mnemosyneos/mnemo/memory/index/chromem"
)

func newProcedural(t *testing.T) *memory.ProceduralStore {
	t.Helper()
	backend, err := chromem.New()
	if err != nil {
		t.Fatalf("create backend: %v", err)
	}
	return memory.NewProceduralStore(backend, mock.New(), nil)
}

func TestStoreProcedureRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newProcedural(t)

	proc := memory.Procedure{
		Title:        "Rotate API keys",
		Description:  "Quarterly key rotation",
		Steps:        []string{"generate new key", "deploy", "revoke old key"},
		Requirements: []string{"admin access"},
	}
	rec, err := store.StoreProcedure(ctx, proc, []string{"security"}, "runbook")
	if err != nil {
		t.Fatalf("store procedure: %v", err)
	}
	if rec.Metadata[memory.MetaTitle] != proc.Title {
		t.Errorf("title not mirrored to metadata: %v", rec.Metadata)
	}
	if rec.Metadata[memory.MetaStepCount] != "3" {
		t.Errorf("step count wrong: %v", rec.Metadata[memory.MetaStepCount])
	}
	if !rec.HasTag("procedural") || !rec.HasTag("how-to") || !rec.HasTag("security") {
		t.Errorf("implicit tags missing: %v", rec.Tags)
	}

	back, ok := memory.ParseProcedure(rec)
	if !ok {
		t.Fatal("stored procedure did not parse back")
	}
	if back.Title != proc.Title || len(back.Steps) != 3 || back.Requirements[0] != "admin access" {
		t.Errorf("procedure changed in round trip: %+v", back)
	}
}

func TestStoreProcedureValidation(t *testing.T) {
	ctx := context.Background()
	store := newProcedural(t)

	if _, err := store.StoreProcedure(ctx, memory.Procedure{Steps: []string{"x"}}, nil, ""); !errors.Is(err, memory.ErrValidation) {
		t.Errorf("missing title should fail validation, got %v", err)
	}
	if _, err := store.StoreProcedure(ctx, memory.Procedure{Title: "empty"}, nil, ""); !errors.Is(err, memory.ErrValidation) {
		t.Errorf("missing steps should fail validation, got %v", err)
	}
}

func TestRetrieveByTitle(t *testing.T) {
	ctx := context.Background()
	store := newProcedural(t)

	for _, title := range []string{"Deploy the web service", "Deploy the batch job", "Restore a backup"} {
		proc := memory.Procedure{Title: title, Steps: []string{"step one"}}
		if _, err := store.StoreProcedure(ctx, proc, nil, "runbook"); err != nil {
			t.Fatalf("store %q: %v", title, err)
		}
	}
	// Free-form note with a matching word must not surface.
	if _, err := store.Store(ctx, "notes about Deploy", nil, nil, "note"); err != nil {
		t.Fatalf("store note: %v", err)
	}

	recs, err := store.RetrieveByTitle(ctx, "Deploy", 0)
	if err != nil {
		t.Fatalf("retrieve by title: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 structured matches, got %d", len(recs))
	}
	for _, rec := range recs {
		if _, ok := memory.ParseProcedure(rec); !ok {
			t.Errorf("unstructured record matched: %q", rec.Content)
		}
	}

	n, err := store.StructuredCount(ctx)
	if err != nil || n != 3 {
		t.Errorf("structured count = %d, %v", n, err)
	}
}

func TestParseProcedureRejectsFreeForm(t *testing.T) {
	rec := &memory.Record{Content: `{"title":"looks structured","steps":["x"]}`}
	if _, ok := memory.ParseProcedure(rec); ok {
		t.Error("record without is_structured metadata should not parse")
	}
}
