package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/mnemosyneos/mnemo/memory"
)

// ExportedRecord is the portable form of one record.
type ExportedRecord struct {
	ID        string            `json:"id"`
	Layer     memory.Layer      `json:"layer"`
	Content   string            `json:"content"`
	Tags      []string          `json:"tags,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Source    string            `json:"source,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Export writes all records of the requested layers as a JSON array,
// without embeddings. An empty layer list means all layers.
func (s *Service) Export(ctx context.Context, w io.Writer, layers ...memory.Layer) (int, error) {
	if len(layers) == 0 {
		layers = memory.Layers
	}
	include := make(map[memory.Layer]bool, len(layers))
	for _, l := range layers {
		include[l] = true
	}

	var out []ExportedRecord
	for _, store := range s.stores.All() {
		if !include[store.Layer()] {
			continue
		}
		err := store.Scan(ctx, nil, func(rec *memory.Record) bool {
			out = append(out, ExportedRecord{
				ID:        rec.ID,
				Layer:     store.Layer(),
				Content:   rec.Content,
				Tags:      rec.Tags,
				Metadata:  rec.Metadata,
				Source:    rec.Source,
				CreatedAt: rec.CreatedAt,
				UpdatedAt: rec.UpdatedAt,
			})
			return true
		})
		if err != nil {
			return 0, err
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 0, fmt.Errorf("encode export: %w", err)
	}
	return len(out), nil
}

// snapshot is the on-disk backup format: full documents including
// embeddings, keyed by collection, so a restore needs no re-embedding.
type snapshot struct {
	CreatedAt   time.Time                `json:"created_at"`
	Collections map[string][]snapshotDoc `json:"collections"`
}

type snapshotDoc struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding"`
	Metadata  map[string]string `json:"metadata"`
}

// Backup writes a full snapshot of every collection to path.
func (s *Service) Backup(ctx context.Context, path string) error {
	snap := snapshot{
		CreatedAt:   time.Now().UTC(),
		Collections: make(map[string][]snapshotDoc),
	}
	for _, store := range s.stores.All() {
		name := store.Collection()
		docs, err := s.backend.GetByFilter(ctx, name, nil, 0, 0)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		out := make([]snapshotDoc, 0, len(docs))
		for _, doc := range docs {
			out = append(out, snapshotDoc{
				ID:        doc.ID,
				Content:   doc.Content,
				Embedding: doc.Embedding,
				Metadata:  doc.Metadata,
			})
		}
		snap.Collections[name] = out
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(snap); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	log.Printf("[META] backup written to %s (%d collections)", path, len(snap.Collections))
	return nil
}

// Restore loads a snapshot into the backend, replacing each collection
// present in the file. Collections absent from the snapshot are left
// untouched.
func (s *Service) Restore(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decode backup: %w", err)
	}

	for name, docs := range snap.Collections {
		if err := s.backend.DropCollection(ctx, name); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
		in := make([]memory.Document, 0, len(docs))
		for _, doc := range docs {
			in = append(in, memory.Document{
				ID:        doc.ID,
				Content:   doc.Content,
				Embedding: doc.Embedding,
				Metadata:  doc.Metadata,
			})
		}
		if _, err := s.backend.Upsert(ctx, name, in); err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
		log.Printf("[META] restored %s (%d records)", name, len(in))
	}
	return nil
}
