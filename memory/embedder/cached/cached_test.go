package cached_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mnemosyneos/mnemo/memory/embedder/cached"
	"github.com/mnemosyneos/mnemo/memory/embedder/mock"
)

// countingEmbedder records how many texts reach the wrapped provider.
type countingEmbedder struct {
	inner *mock.MockEmbedder
	seen  int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.seen += len(texts)
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Embed(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }

func TestEmbedMatchesInner(t *testing.T) {
	ctx := context.Background()
	inner := mock.New()
	emb, err := cached.New(inner, cached.Config{})
	if err != nil {
		t.Fatalf("create cached embedder: %v", err)
	}
	defer emb.Close()

	texts := []string{"alpha", "beta", "gamma"}
	got, err := emb.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	want, err := inner.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d vectors, want %d", len(got), len(want))
	}
	for i := range got {
		if len(got[i]) != inner.Dimensions() {
			t.Fatalf("vector %d has %d dims", i, len(got[i]))
		}
		for j := range got[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("vector %d differs from the wrapped embedder at %d", i, j)
			}
		}
	}

	if emb.Dimensions() != inner.Dimensions() {
		t.Errorf("dimensions passthrough wrong: %d", emb.Dimensions())
	}
}

func TestEmbedOnlyMissesReachProvider(t *testing.T) {
	ctx := context.Background()
	counting := &countingEmbedder{inner: mock.New()}
	emb, err := cached.New(counting, cached.Config{})
	if err != nil {
		t.Fatalf("create cached embedder: %v", err)
	}
	defer emb.Close()

	if _, err := emb.Embed(ctx, []string{"repeated", "fresh"}); err != nil {
		t.Fatalf("embed: %v", err)
	}
	first := counting.seen
	if first != 2 {
		t.Fatalf("cold cache should forward everything, got %d", first)
	}

	// Admission is probabilistic, so the second round may still forward
	// some texts. It must never exceed the miss count of a cold cache.
	if _, err := emb.Embed(ctx, []string{"repeated", "fresh"}); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if counting.seen > 2*first {
		t.Errorf("cache forwarded more texts than a cold run would: %d", counting.seen)
	}
}

func TestEmbedPropagatesProviderErrors(t *testing.T) {
	counting := &countingEmbedder{inner: mock.New(), err: errors.New("provider down")}
	emb, err := cached.New(counting, cached.Config{})
	if err != nil {
		t.Fatalf("create cached embedder: %v", err)
	}
	defer emb.Close()

	if _, err := emb.Embed(context.Background(), []string{"anything"}); err == nil {
		t.Fatal("provider errors must propagate")
	}
}
