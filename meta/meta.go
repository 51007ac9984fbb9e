// Package meta implements the aggregation service: cross-layer stats,
// maintenance (compact, reindex, prune), the memory graph and
// export/backup tooling.
package meta

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mnemosyneos/mnemo/memory"
)

// Stores bundles the six layer stores for fan-out operations.
type Stores struct {
	Semantic   *memory.SemanticStore
	Episodic   *memory.EpisodicStore
	Procedural *memory.ProceduralStore
	Affective  *memory.AffectiveStore
	Identity   *memory.IdentityStore
	Reflective *memory.ReflectiveStore
}

// All returns the layer stores in canonical layer order.
func (s Stores) All() []*memory.LayerStore {
	return []*memory.LayerStore{
		s.Semantic.LayerStore,
		s.Episodic.LayerStore,
		s.Procedural.LayerStore,
		s.Affective.LayerStore,
		s.Identity.LayerStore,
		s.Reflective.LayerStore,
	}
}

// Service runs aggregation and maintenance over all layers.
type Service struct {
	backend memory.Backend
	stores  Stores

	// dataDir is probed for disk usage; empty means in-memory.
	dataDir string
}

// New creates the aggregation service. dataDir may be empty for
// in-memory backends.
func New(backend memory.Backend, stores Stores, dataDir string) *Service {
	return &Service{backend: backend, stores: stores, dataDir: dataDir}
}

// SystemStats is the get-stats fan-out result.
type SystemStats struct {
	Layers        map[memory.Layer]*memory.LayerStats `json:"layers"`
	TotalCount    int                                 `json:"total_count"`
	DiskUsage     int64                               `json:"disk_usage_bytes"`
	Healthy       bool                                `json:"healthy"`
	HealthMessage string                              `json:"health_message,omitempty"`

	// Layer extras.
	SessionCount   int            `json:"session_count"`
	Structured     int            `json:"structured_procedures"`
	AspectCounts   map[string]int `json:"identity_aspects,omitempty"`
	ReflectSources map[string]int `json:"reflection_sources,omitempty"`
}

// Stats fans out stats() per layer and adds disk usage and a backend
// health probe. Per-layer failures fail the whole call; health
// problems do not.
func (s *Service) Stats(ctx context.Context) (*SystemStats, error) {
	out := &SystemStats{
		Layers:  make(map[memory.Layer]*memory.LayerStats, len(memory.Layers)),
		Healthy: true,
	}
	for _, store := range s.stores.All() {
		stats, err := store.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", store.Layer(), err)
		}
		out.Layers[store.Layer()] = stats
		out.TotalCount += stats.Count
	}

	var err error
	if out.SessionCount, err = s.stores.Episodic.SessionCount(ctx); err != nil {
		return nil, err
	}
	if out.Structured, err = s.stores.Procedural.StructuredCount(ctx); err != nil {
		return nil, err
	}
	if out.AspectCounts, err = s.stores.Identity.AspectCounts(ctx); err != nil {
		return nil, err
	}
	if out.ReflectSources, err = s.stores.Reflective.SourceTypeCounts(ctx); err != nil {
		return nil, err
	}

	out.DiskUsage = s.diskUsage()
	if err := s.backend.Healthy(ctx); err != nil {
		out.Healthy = false
		out.HealthMessage = err.Error()
	}
	return out, nil
}

func (s *Service) diskUsage() int64 {
	if s.dataDir == "" {
		return 0
	}
	var total int64
	filepath.Walk(s.dataDir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// CollectionStatus reports one collection's outcome in a maintenance
// fan-out.
type CollectionStatus struct {
	Collection string `json:"collection"`
	Status     string `json:"status"`
	Before     int    `json:"count_before"`
	After      int    `json:"count_after"`
	Error      string `json:"error,omitempty"`
}

// Compact probes the backend for compaction support. Backends without
// it get per-collection "skipped" statuses, matching the read-only
// nature of the probe.
func (s *Service) Compact(ctx context.Context) ([]CollectionStatus, error) {
	compactor, supported := s.backend.(memory.Compactor)
	var out []CollectionStatus
	for _, store := range s.stores.All() {
		name := store.Collection()
		count, err := store.Count(ctx)
		if err != nil {
			return out, err
		}
		st := CollectionStatus{Collection: name, Before: count, After: count}
		if !supported {
			st.Status = "skipped"
			out = append(out, st)
			continue
		}
		if err := compactor.Compact(ctx, name); err != nil {
			st.Status = "failed"
			st.Error = err.Error()
		} else {
			st.Status = "compacted"
			if after, err := store.Count(ctx); err == nil {
				st.After = after
			}
		}
		out = append(out, st)
	}
	if !supported {
		log.Printf("[META] backend does not support compaction, all collections skipped")
	}
	return out, nil
}

// reindexBatch bounds how many records a reindex reads at once.
const reindexBatch = 1000

// Reindex rebuilds every collection: read all records in batches
// (including embeddings), drop, recreate by reinserting. There is no
// atomic swap; an interruption mid-collection loses data, so each
// collection's status reports how far it got.
func (s *Service) Reindex(ctx context.Context) ([]CollectionStatus, error) {
	var out []CollectionStatus
	for _, store := range s.stores.All() {
		out = append(out, s.reindexCollection(ctx, store))
	}
	return out, nil
}

func (s *Service) reindexCollection(ctx context.Context, store *memory.LayerStore) CollectionStatus {
	name := store.Collection()
	st := CollectionStatus{Collection: name, Status: "reindexed"}

	var docs []memory.Document
	for offset := 0; ; offset += reindexBatch {
		page, err := s.backend.GetByFilter(ctx, name, nil, offset, reindexBatch)
		if err != nil {
			st.Status = "failed"
			st.Error = fmt.Sprintf("read: %v", err)
			return st
		}
		docs = append(docs, page...)
		if len(page) < reindexBatch {
			break
		}
	}
	st.Before = len(docs)

	if err := s.backend.DropCollection(ctx, name); err != nil {
		st.Status = "failed"
		st.Error = fmt.Sprintf("drop: %v", err)
		return st
	}

	committed, err := s.backend.Upsert(ctx, name, docs)
	st.After = committed
	if err != nil {
		st.Status = "partial"
		st.Error = fmt.Sprintf("reinsert stopped after %d/%d: %v", committed, len(docs), err)
		return st
	}
	log.Printf("[META] reindexed %s (%d records)", name, committed)
	return st
}

// PruneReport summarizes a prune run.
type PruneReport struct {
	Cutoff  time.Time                 `json:"cutoff"`
	DryRun  bool                      `json:"dry_run"`
	Total   int                       `json:"total"`
	Deleted map[memory.Layer]int      `json:"deleted"`
	IDs     map[memory.Layer][]string `json:"-"`
}

// Prune removes records with created_at older than now minus the
// given number of days. With dryRun set it only reports what would be
// deleted; the same call without dryRun deletes exactly that set.
func (s *Service) Prune(ctx context.Context, days int, dryRun bool) (*PruneReport, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", memory.ErrValidation)
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	report := &PruneReport{
		Cutoff:  cutoff,
		DryRun:  dryRun,
		Deleted: make(map[memory.Layer]int),
		IDs:     make(map[memory.Layer][]string),
	}
	filter := &memory.Filter{
		Before: map[string]string{memory.MetaCreatedAt: memory.FormatTime(cutoff)},
	}

	for _, store := range s.stores.All() {
		recs, err := store.Find(ctx, filter, 0, 0)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(recs))
		for _, rec := range recs {
			ids = append(ids, rec.ID)
		}
		report.IDs[store.Layer()] = ids
		report.Deleted[store.Layer()] = len(ids)
		report.Total += len(ids)

		if dryRun || len(ids) == 0 {
			continue
		}
		if _, err := s.backend.Delete(ctx, store.Collection(), ids...); err != nil {
			return nil, fmt.Errorf("prune %s: %w", store.Layer(), err)
		}
	}
	log.Printf("[META] prune cutoff=%s dry_run=%v total=%d", cutoff.Format(time.RFC3339), dryRun, report.Total)
	return report, nil
}
