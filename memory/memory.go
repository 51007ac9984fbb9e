package memory

import (
	"context"
	"strings"
)

// Embedder converts text batches to vector embeddings.
// Implementations: mock (testing), openai (hosted), onnx (local),
// cached (ristretto front for any of the above).
type Embedder interface {
	// Embed converts texts to embedding vectors, one per input, in
	// input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns embedding vector size.
	Dimensions() int
}

// GenerateOptions tunes a single completion call. Zero values mean
// provider defaults.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

// Completer generates free-form text from a prompt.
// Implementations: llm/anthropic, llm/openai.
type Completer interface {
	Generate(ctx context.Context, prompt string, opts *GenerateOptions) (string, error)
}

// Document is the flat, indexable form of a record.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// QueryResult pairs a document with its relevance to the query,
// normalized to [0, 1] where 1 is a perfect match.
type QueryResult struct {
	Document
	Relevance float64
}

// Filter restricts scans and queries over document metadata.
// All populated clauses must hold (conjunction).
type Filter struct {
	// Equals requires exact metadata values.
	Equals map[string]string

	// Contains requires every listed value to occur in the field. For
	// comma-joined set fields (tags, emotions) each value must be an
	// exact element of the set; for other fields it is a substring.
	Contains map[string][]string

	// After and Before bound fields lexicographically, inclusive.
	// Valid for canonical timestamps, which sort chronologically.
	After  map[string]string
	Before map[string]string
}

// Match reports whether metadata satisfies every clause of f.
// A nil filter matches everything.
func (f *Filter) Match(meta map[string]string) bool {
	if f == nil {
		return true
	}
	for k, v := range f.Equals {
		if meta[k] != v {
			return false
		}
	}
	for k, subs := range f.Contains {
		val := meta[k]
		if setFields[k] {
			elems := SplitTags(val)
			for _, want := range subs {
				if !containsElement(elems, strings.TrimSpace(want)) {
					return false
				}
			}
			continue
		}
		for _, sub := range subs {
			if !strings.Contains(val, sub) {
				return false
			}
		}
	}
	for k, lo := range f.After {
		if v, ok := meta[k]; !ok || v < lo {
			return false
		}
	}
	for k, hi := range f.Before {
		if v, ok := meta[k]; !ok || v > hi {
			return false
		}
	}
	return true
}

// setFields holds metadata keys whose values are comma-joined sets.
// Contains clauses on them test element membership, so "go" does not
// match a record tagged only "golang".
var setFields = map[string]bool{
	MetaTags:     true,
	MetaEmotions: true,
}

func containsElement(elems []string, want string) bool {
	for _, e := range elems {
		if e == want {
			return true
		}
	}
	return false
}

// Empty reports whether the filter has no clauses.
func (f *Filter) Empty() bool {
	return f == nil ||
		(len(f.Equals) == 0 && len(f.Contains) == 0 && len(f.After) == 0 && len(f.Before) == 0)
}

// Index is the vector index contract over named collections.
// Implementations: index/chromem.
type Index interface {
	// Upsert writes documents in chunks and returns how many were
	// committed. On failure the count reports the durable prefix.
	Upsert(ctx context.Context, collection string, docs []Document) (int, error)

	// Query returns up to limit documents nearest to embedding that
	// pass the filter, ordered by descending relevance.
	Query(ctx context.Context, collection string, embedding []float32, limit int, filter *Filter) ([]QueryResult, error)

	// GetByID fetches one document. The boolean is false when the id
	// is not present; that is not an error.
	GetByID(ctx context.Context, collection, id string) (Document, bool, error)

	// GetByFilter scans the collection in insertion order, applying
	// the filter, then offset and limit. limit <= 0 means no cap.
	GetByFilter(ctx context.Context, collection string, filter *Filter, offset, limit int) ([]Document, error)

	// Delete removes documents by id, returning how many existed.
	Delete(ctx context.Context, collection string, ids ...string) (int, error)

	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int, error)
}

// Backend extends Index with collection lifecycle and health, the
// surface the aggregation service needs for reindex and stats.
type Backend interface {
	Index

	// DropCollection removes a collection and all its documents.
	// Dropping a missing collection is a no-op.
	DropCollection(ctx context.Context, collection string) error

	// Collections lists known collection names.
	Collections(ctx context.Context) ([]string, error)

	// Healthy returns nil when the backend is reachable and sane.
	Healthy(ctx context.Context) error
}

// Compactor is optionally implemented by backends that support
// physical compaction. Probed by the aggregation service; backends
// without it are reported as skipped, not failed.
type Compactor interface {
	Compact(ctx context.Context, collection string) error
}
