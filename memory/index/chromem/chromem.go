package chromem

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mnemosyneos/mnemo/memory"
)

// Store implements memory.Backend on chromem-go, a pure Go embedded
// vector database. chromem exposes similarity search and equality
// where-filters but no enumeration, so the store keeps a sidecar
// registry per collection (documents in insertion order) to serve
// get-by-id, filtered scans and reindex reads.
type Store struct {
	db          *chromem.DB
	collections map[string]*collection
	mu          sync.RWMutex
	config      Config
}

// Config tunes batching behavior.
type Config struct {
	// BatchSize chunks large upserts. Default: 64.
	BatchSize int

	// BatchPause is the pause between chunks to bound backend load.
	// Default: 100ms.
	BatchPause time.Duration
}

type collection struct {
	col   *chromem.Collection
	dims  int
	order []string
	docs  map[string]memory.Document
}

// New creates an in-memory store.
func New() (*Store, error) {
	return newStore(chromem.NewDB()), nil
}

// NewPersistent creates a store backed by an on-disk chromem database.
func NewPersistent(path string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	return newStore(db), nil
}

func newStore(db *chromem.DB) *Store {
	return &Store{
		db:          db,
		collections: make(map[string]*collection),
		config: Config{
			BatchSize:  64,
			BatchPause: 100 * time.Millisecond,
		},
	}
}

// SetConfig overrides batching defaults. Zero fields keep defaults.
func (s *Store) SetConfig(cfg Config) {
	if cfg.BatchSize > 0 {
		s.config.BatchSize = cfg.BatchSize
	}
	if cfg.BatchPause > 0 {
		s.config.BatchPause = cfg.BatchPause
	}
}

func (s *Store) getOrCreateCollection(name string) (*collection, error) {
	s.mu.RLock()
	c, exists := s.collections[name]
	s.mu.RUnlock()
	if exists {
		return c, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if c, exists := s.collections[name]; exists {
		return c, nil
	}

	col, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create collection %s: %v", memory.ErrVectorStoreUnavailable, name, err)
	}
	c = &collection{
		col:  col,
		docs: make(map[string]memory.Document),
	}
	s.collections[name] = c
	return c, nil
}

// getCollection returns an existing collection without creating one.
func (s *Store) getCollection(name string) (*collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	return c, ok
}

// Upsert writes documents in chunks and returns how many were
// committed. A dimensionality mismatch against the collection's first
// write is rejected as an embedding provider fault, not truncated.
func (s *Store) Upsert(ctx context.Context, name string, docs []memory.Document) (int, error) {
	c, err := s.getOrCreateCollection(name)
	if err != nil {
		return 0, err
	}

	committed := 0
	batch := s.config.BatchSize
	for start := 0; start < len(docs); start += batch {
		end := start + batch
		if end > len(docs) {
			end = len(docs)
		}
		for _, doc := range docs[start:end] {
			if err := s.addDocument(ctx, c, name, doc); err != nil {
				return committed, err
			}
			committed++
		}
		if end < len(docs) {
			time.Sleep(s.config.BatchPause)
		}
	}
	return committed, nil
}

func (s *Store) addDocument(ctx context.Context, c *collection, name string, doc memory.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.dims == 0 {
		c.dims = len(doc.Embedding)
	} else if len(doc.Embedding) != c.dims {
		return fmt.Errorf("%w: embedding dimensionality %d does not match collection %s (%d)",
			memory.ErrEmbeddingUnavailable, len(doc.Embedding), name, c.dims)
	}

	err := c.col.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: doc.Embedding,
		Metadata:  doc.Metadata,
	})
	if err != nil {
		return fmt.Errorf("%w: add document: %v", memory.ErrVectorStoreUnavailable, err)
	}

	if _, exists := c.docs[doc.ID]; !exists {
		c.order = append(c.order, doc.ID)
	}
	c.docs[doc.ID] = doc
	return nil
}

// Query runs a nearest-neighbor search. Equality clauses translate to
// chromem where-filters; contains and range clauses are applied as a
// local post-filter after over-fetching.
func (s *Store) Query(ctx context.Context, name string, embedding []float32, limit int, filter *memory.Filter) ([]memory.QueryResult, error) {
	c, ok := s.getCollection(name)
	if !ok {
		return nil, nil
	}

	s.mu.RLock()
	total := len(c.order)
	s.mu.RUnlock()
	if total == 0 || limit <= 0 {
		return nil, nil
	}

	fetch := limit
	postFilter := needsPostFilter(filter)
	if postFilter {
		// Over-fetch so local filtering still fills the limit.
		fetch = limit * 4
	}
	if fetch > total {
		fetch = total
	}

	var where map[string]string
	if filter != nil && len(filter.Equals) > 0 {
		where = filter.Equals
	}

	// chromem requires nResults <= matching documents; shrink until
	// the query succeeds.
	var results []chromem.Result
	for n := fetch; n >= 1; n-- {
		var err error
		results, err = c.col.QueryEmbedding(ctx, embedding, n, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				log.Printf("[CHROMEM] %s: no matching documents", name)
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("%w: query %s: %v", memory.ErrVectorStoreUnavailable, name, err)
	}

	out := make([]memory.QueryResult, 0, limit)
	for _, res := range results {
		if postFilter && !filter.Match(res.Metadata) {
			continue
		}
		out = append(out, memory.QueryResult{
			Document: memory.Document{
				ID:        res.ID,
				Content:   res.Content,
				Embedding: res.Embedding,
				Metadata:  res.Metadata,
			},
			Relevance: relevanceFromSimilarity(res.Similarity),
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetByID serves exact lookups from the registry.
func (s *Store) GetByID(ctx context.Context, name, id string) (memory.Document, bool, error) {
	c, ok := s.getCollection(name)
	if !ok {
		return memory.Document{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := c.docs[id]
	return doc, ok, nil
}

// GetByFilter scans the registry in insertion order.
func (s *Store) GetByFilter(ctx context.Context, name string, filter *memory.Filter, offset, limit int) ([]memory.Document, error) {
	c, ok := s.getCollection(name)
	if !ok {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []memory.Document
	skipped := 0
	for _, id := range c.order {
		doc := c.docs[id]
		if !filter.Match(doc.Metadata) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, doc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Delete removes documents by id and reports how many existed.
func (s *Store) Delete(ctx context.Context, name string, ids ...string) (int, error) {
	c, ok := s.getCollection(name)
	if !ok {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var present []string
	for _, id := range ids {
		if _, ok := c.docs[id]; ok {
			present = append(present, id)
		}
	}
	if len(present) == 0 {
		return 0, nil
	}

	if err := c.col.Delete(ctx, nil, nil, present...); err != nil {
		return 0, fmt.Errorf("%w: delete from %s: %v", memory.ErrVectorStoreUnavailable, name, err)
	}
	for _, id := range present {
		delete(c.docs, id)
	}
	c.order = compactOrder(c.order, c.docs)
	return len(present), nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	c, ok := s.getCollection(name)
	if !ok {
		return 0, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(c.order), nil
}

// DropCollection removes a collection entirely. Dropping a missing
// collection is a no-op.
func (s *Store) DropCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return nil
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("%w: drop collection %s: %v", memory.ErrVectorStoreUnavailable, name, err)
	}
	delete(s.collections, name)
	log.Printf("[CHROMEM] dropped collection %s", name)
	return nil
}

// Collections lists known collection names, sorted.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Healthy reports backend reachability.
func (s *Store) Healthy(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("%w: database not initialized", memory.ErrVectorStoreUnavailable)
	}
	return nil
}

// relevanceFromSimilarity maps cosine similarity onto [0, 1] relevance
// via distance = clamp(1 - similarity, 0, 1), relevance = 1 - distance.
func relevanceFromSimilarity(sim float32) float64 {
	distance := 1 - float64(sim)
	if distance < 0 {
		distance = 0
	}
	if distance > 1 {
		distance = 1
	}
	return 1 - distance
}

func needsPostFilter(f *memory.Filter) bool {
	return f != nil && (len(f.Contains) > 0 || len(f.After) > 0 || len(f.Before) > 0)
}

func compactOrder(order []string, docs map[string]memory.Document) []string {
	out := order[:0]
	for _, id := range order {
		if _, ok := docs[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// isInsufficientDocsError checks if error is due to insufficient documents.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
