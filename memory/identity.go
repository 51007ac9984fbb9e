package memory

import (
	"context"
	"strings"
)

// IdentityAspects enumerates the recognized identity facets. Records
// stored under any other aspect are coerced to "other".
var IdentityAspects = []string{
	"core_values",
	"personality_traits",
	"preferences",
	"rules_of_conduct",
	"self_description",
	"relationships",
	"capabilities",
	"limitations",
	"background",
	"goals",
}

// AspectOther is the catch-all aspect for unrecognized values.
const AspectOther = "other"

// NormalizeAspect maps an aspect name onto the recognized set.
func NormalizeAspect(aspect string) string {
	aspect = strings.ToLower(strings.TrimSpace(aspect))
	for _, a := range IdentityAspects {
		if aspect == a {
			return a
		}
	}
	return AspectOther
}

// IdentityStore holds self-model records grouped by aspect.
type IdentityStore struct {
	*LayerStore
}

// NewIdentityStore creates the identity layer store.
func NewIdentityStore(backend Backend, embedder Embedder, config *StoreConfig) *IdentityStore {
	return &IdentityStore{LayerStore: NewLayerStore(LayerIdentity, backend, embedder, config)}
}

// StoreAspect persists an identity record under a normalized aspect.
// The aspect is also added as a tag.
func (s *IdentityStore) StoreAspect(ctx context.Context, aspect, content string, tags []string, metadata map[string]string, source string) (*Record, error) {
	aspect = NormalizeAspect(aspect)
	meta := copyMeta(metadata)
	meta[MetaAspect] = aspect
	return s.Store(ctx, content, append(tags, "identity", aspect), meta, source)
}

// RetrieveByAspect returns records for one aspect in insertion order.
func (s *IdentityStore) RetrieveByAspect(ctx context.Context, aspect string, limit int) ([]*Record, error) {
	filter := &Filter{Equals: map[string]string{MetaAspect: NormalizeAspect(aspect)}}
	return s.Find(ctx, filter, 0, limit)
}

// Profile collects records for every recognized aspect plus the
// catch-all, keyed by aspect. Empty aspects are omitted.
func (s *IdentityStore) Profile(ctx context.Context, perAspect int) (map[string][]*Record, error) {
	profile := make(map[string][]*Record)
	for _, aspect := range append(IdentityAspects, AspectOther) {
		recs, err := s.RetrieveByAspect(ctx, aspect, perAspect)
		if err != nil {
			return nil, err
		}
		if len(recs) > 0 {
			profile[aspect] = recs
		}
	}
	return profile, nil
}

// Search runs a similarity query over identity records, optionally
// restricted to one aspect.
func (s *IdentityStore) Search(ctx context.Context, query, aspect string, limit int) ([]Scored, error) {
	opts := &RetrieveOptions{}
	if strings.TrimSpace(aspect) != "" {
		opts.Filter = &Filter{Equals: map[string]string{MetaAspect: NormalizeAspect(aspect)}}
	}
	return s.Retrieve(ctx, query, limit, opts)
}

// AspectCounts returns a histogram of records per aspect.
func (s *IdentityStore) AspectCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := s.Scan(ctx, nil, func(rec *Record) bool {
		aspect := rec.Metadata[MetaAspect]
		if aspect == "" {
			aspect = AspectOther
		}
		counts[aspect]++
		return true
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
