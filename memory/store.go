package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// StoreConfig holds LayerStore tuning knobs.
type StoreConfig struct {
	// ScanBatchSize is the page size for metadata scans (stats,
	// histograms). Default: 100.
	ScanBatchSize int
}

// DefaultStoreConfig returns sensible defaults.
var DefaultStoreConfig = &StoreConfig{
	ScanBatchSize: 100,
}

// LayerStore implements the common record contract for one layer:
// store, retrieve by similarity, get, update, delete, stats. The
// per-layer stores embed it and add their reserved-metadata semantics.
type LayerStore struct {
	layer    Layer
	backend  Backend
	embedder Embedder
	config   *StoreConfig
}

// NewLayerStore creates a store bound to one layer's collection.
func NewLayerStore(layer Layer, backend Backend, embedder Embedder, config *StoreConfig) *LayerStore {
	if config == nil {
		config = DefaultStoreConfig
	}
	return &LayerStore{
		layer:    layer,
		backend:  backend,
		embedder: embedder,
		config:   config,
	}
}

// Layer returns the layer this store writes to.
func (s *LayerStore) Layer() Layer { return s.layer }

// Collection returns the backend collection name.
func (s *LayerStore) Collection() string { return s.layer.Collection() }

// Backend exposes the underlying backend for aggregation fan-out.
func (s *LayerStore) Backend() Backend { return s.backend }

// Scored pairs a record with its query relevance in [0, 1].
type Scored struct {
	Record    *Record
	Relevance float64
}

// RetrieveOptions restricts a similarity retrieval.
type RetrieveOptions struct {
	// Tags must all be present on a record for it to match.
	Tags []string

	// Filter adds metadata constraints beyond tags.
	Filter *Filter
}

// Store validates, embeds and persists a new record. Reserved metadata
// keys in the caller map are overwritten with store-owned values.
func (s *LayerStore) Store(ctx context.Context, content string, tags []string, metadata map[string]string, source string) (*Record, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty content", ErrValidation)
	}

	vecs, err := s.embedder.Embed(ctx, []string{content})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	now := time.Now().UTC()
	rec := &Record{
		ID:        NewID(),
		Content:   content,
		Layer:     s.layer,
		Tags:      NormalizeTags(tags),
		Metadata:  copyMeta(metadata),
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}

	doc := recordToDocument(rec, vecs[0])
	if _, err := s.backend.Upsert(ctx, s.Collection(), []Document{doc}); err != nil {
		return nil, fmt.Errorf("store %s record: %w", s.layer, err)
	}

	log.Printf("[%s] stored %s (%d tags)", s.logTag(), rec.ID, len(rec.Tags))
	return rec, nil
}

// Retrieve embeds the query and returns up to limit records ordered by
// descending relevance. Tag constraints are AND-composed.
func (s *LayerStore) Retrieve(ctx context.Context, query string, limit int, opts *RetrieveOptions) ([]Scored, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrValidation)
	}
	if limit <= 0 {
		limit = 5
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filter := s.retrieveFilter(opts)
	results, err := s.backend.Query(ctx, s.Collection(), vecs[0], limit, filter)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.layer, err)
	}

	scored := make([]Scored, 0, len(results))
	for i := range results {
		scored = append(scored, Scored{
			Record:    documentToRecord(&results[i].Document),
			Relevance: results[i].Relevance,
		})
	}
	log.Printf("[%s] retrieved %d/%d for %q", s.logTag(), len(scored), limit, truncate(query, 50))
	return scored, nil
}

// Get fetches one record. Missing ids return (nil, false, nil).
func (s *LayerStore) Get(ctx context.Context, id string) (*Record, bool, error) {
	doc, ok, err := s.backend.GetByID(ctx, s.Collection(), id)
	if err != nil {
		return nil, false, fmt.Errorf("get %s record: %w", s.layer, err)
	}
	if !ok {
		return nil, false, nil
	}
	return documentToRecord(&doc), true, nil
}

// UpdateRequest describes a partial update. Nil fields are unchanged;
// Metadata entries merge over the existing map.
type UpdateRequest struct {
	Content  *string
	Tags     []string
	Metadata map[string]string
}

// Update applies a partial update and bumps updated_at. Content changes
// re-embed; other changes reuse the stored embedding. The boolean is
// false when the id does not exist.
func (s *LayerStore) Update(ctx context.Context, id string, req UpdateRequest) (*Record, bool, error) {
	doc, ok, err := s.backend.GetByID(ctx, s.Collection(), id)
	if err != nil {
		return nil, false, fmt.Errorf("load %s record: %w", s.layer, err)
	}
	if !ok {
		return nil, false, nil
	}
	rec := documentToRecord(&doc)
	embedding := doc.Embedding

	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, false, fmt.Errorf("%w: empty content", ErrValidation)
		}
		rec.Content = *req.Content
		vecs, err := s.embedder.Embed(ctx, []string{rec.Content})
		if err != nil {
			return nil, false, fmt.Errorf("re-embed content: %w", err)
		}
		embedding = vecs[0]
	}
	if req.Tags != nil {
		rec.Tags = NormalizeTags(req.Tags)
	}
	for k, v := range req.Metadata {
		rec.Metadata[k] = v
	}

	rec.UpdatedAt = time.Now().UTC()
	if rec.UpdatedAt.Before(rec.CreatedAt) {
		rec.UpdatedAt = rec.CreatedAt
	}

	out := recordToDocument(rec, embedding)
	if _, err := s.backend.Upsert(ctx, s.Collection(), []Document{out}); err != nil {
		return nil, false, fmt.Errorf("update %s record: %w", s.layer, err)
	}
	log.Printf("[%s] updated %s", s.logTag(), id)
	return rec, true, nil
}

// Delete removes a record. Deleting a missing id is not an error; the
// boolean reports whether anything was removed.
func (s *LayerStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.backend.Delete(ctx, s.Collection(), id)
	if err != nil {
		return false, fmt.Errorf("delete %s record: %w", s.layer, err)
	}
	return n > 0, nil
}

// List pages through the collection in insertion order.
func (s *LayerStore) List(ctx context.Context, offset, limit int) ([]*Record, error) {
	docs, err := s.backend.GetByFilter(ctx, s.Collection(), nil, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.layer, err)
	}
	return docsToRecords(docs), nil
}

// Find pages through records matching a filter, in insertion order.
func (s *LayerStore) Find(ctx context.Context, filter *Filter, offset, limit int) ([]*Record, error) {
	docs, err := s.backend.GetByFilter(ctx, s.Collection(), filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", s.layer, err)
	}
	return docsToRecords(docs), nil
}

// Count returns the number of records in this layer.
func (s *LayerStore) Count(ctx context.Context) (int, error) {
	return s.backend.Count(ctx, s.Collection())
}

// LayerStats summarizes a layer from a full metadata scan.
type LayerStats struct {
	Layer     Layer          `json:"layer"`
	Count     int            `json:"count"`
	Oldest    time.Time      `json:"oldest,omitzero"`
	Newest    time.Time      `json:"newest,omitzero"`
	TagCounts map[string]int `json:"tag_counts"`
}

// Stats scans the collection in pages and aggregates count, time span
// and a tag histogram.
func (s *LayerStore) Stats(ctx context.Context) (*LayerStats, error) {
	stats := &LayerStats{
		Layer:     s.layer,
		TagCounts: make(map[string]int),
	}
	err := s.Scan(ctx, nil, func(rec *Record) bool {
		stats.Count++
		if !rec.CreatedAt.IsZero() {
			if stats.Oldest.IsZero() || rec.CreatedAt.Before(stats.Oldest) {
				stats.Oldest = rec.CreatedAt
			}
			if rec.CreatedAt.After(stats.Newest) {
				stats.Newest = rec.CreatedAt
			}
		}
		for _, tag := range rec.Tags {
			stats.TagCounts[tag]++
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Scan visits matching records page by page until fn returns false or
// the collection is exhausted.
func (s *LayerStore) Scan(ctx context.Context, filter *Filter, fn func(*Record) bool) error {
	batch := s.config.ScanBatchSize
	if batch <= 0 {
		batch = 100
	}
	for offset := 0; ; offset += batch {
		docs, err := s.backend.GetByFilter(ctx, s.Collection(), filter, offset, batch)
		if err != nil {
			return fmt.Errorf("scan %s: %w", s.layer, err)
		}
		for i := range docs {
			if !fn(documentToRecord(&docs[i])) {
				return nil
			}
		}
		if len(docs) < batch {
			return nil
		}
	}
}

func (s *LayerStore) retrieveFilter(opts *RetrieveOptions) *Filter {
	if opts == nil {
		return nil
	}
	var f Filter
	if opts.Filter != nil {
		f = *opts.Filter
	}
	if tags := NormalizeTags(opts.Tags); len(tags) > 0 {
		if f.Contains == nil {
			f.Contains = make(map[string][]string)
		}
		f.Contains[MetaTags] = append(f.Contains[MetaTags], tags...)
	}
	if f.Empty() {
		return nil
	}
	return &f
}

func (s *LayerStore) logTag() string {
	return strings.ToUpper(string(s.layer))
}

func docsToRecords(docs []Document) []*Record {
	recs := make([]*Record, 0, len(docs))
	for i := range docs {
		recs = append(recs, documentToRecord(&docs[i]))
	}
	return recs
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
