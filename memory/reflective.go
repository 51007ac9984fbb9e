package memory

import (
	"context"
	"strings"
	"time"
)

// ReflectiveStore holds synthesized reflections. Each record carries
// the full list of memory ids it was derived from; provenance is never
// pruned when sources are deleted, so dangling ids are expected.
type ReflectiveStore struct {
	*LayerStore
}

// NewReflectiveStore creates the reflective layer store.
func NewReflectiveStore(backend Backend, embedder Embedder, config *StoreConfig) *ReflectiveStore {
	return &ReflectiveStore{LayerStore: NewLayerStore(LayerReflective, backend, embedder, config)}
}

// StoreReflection persists a reflection with its provenance.
func (s *ReflectiveStore) StoreReflection(ctx context.Context, content string, sourceIDs []string, tags []string, sourceType string) (*Record, error) {
	meta := map[string]string{
		MetaSourceMemories: strings.Join(sourceIDs, ","),
	}
	if sourceType != "" {
		meta[MetaSourceType] = sourceType
	}
	return s.Store(ctx, content, append(tags, "reflection"), meta, "reflection")
}

// SourceMemories reads a reflection's provenance id list.
func SourceMemories(rec *Record) []string {
	raw := rec.Metadata[MetaSourceMemories]
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// RetrieveRecent returns reflections created within the given range
// expression ("7d", "24h"; unparseable input means 30 days), newest
// first.
func (s *ReflectiveStore) RetrieveRecent(ctx context.Context, timeRange string, limit int) ([]*Record, error) {
	cutoff := time.Now().UTC().Add(-ParseTimeRange(timeRange))
	filter := &Filter{After: map[string]string{MetaCreatedAt: FormatTime(cutoff)}}
	recs, err := s.Find(ctx, filter, 0, 0)
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// RetrieveByTags returns reflections carrying all of the given tags,
// newest first.
func (s *ReflectiveStore) RetrieveByTags(ctx context.Context, tags []string, limit int) ([]*Record, error) {
	tags = NormalizeTags(tags)
	filter := &Filter{Contains: map[string][]string{MetaTags: tags}}
	recs, err := s.Find(ctx, filter, 0, 0)
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// SourceTypeCounts returns a histogram of reflections per source type.
func (s *ReflectiveStore) SourceTypeCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := s.Scan(ctx, nil, func(rec *Record) bool {
		st := rec.Metadata[MetaSourceType]
		if st == "" {
			st = "unknown"
		}
		counts[st]++
		return true
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
