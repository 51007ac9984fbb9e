package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Procedure is a structured how-to stored in the procedural layer.
// Stored as JSON content with title/is_structured/step_count mirrored
// into metadata so they are filterable without parsing.
type Procedure struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Steps        []string `json:"steps"`
	Requirements []string `json:"requirements,omitempty"`
}

// ProceduralStore holds skills and how-to knowledge, both free-form
// notes and structured procedures.
type ProceduralStore struct {
	*LayerStore
}

// NewProceduralStore creates the procedural layer store.
func NewProceduralStore(backend Backend, embedder Embedder, config *StoreConfig) *ProceduralStore {
	return &ProceduralStore{LayerStore: NewLayerStore(LayerProcedural, backend, embedder, config)}
}

// StoreProcedure persists a structured procedure. Tags always include
// "procedural" and "how-to".
func (s *ProceduralStore) StoreProcedure(ctx context.Context, proc Procedure, tags []string, source string) (*Record, error) {
	if strings.TrimSpace(proc.Title) == "" {
		return nil, fmt.Errorf("%w: procedure title required", ErrValidation)
	}
	if len(proc.Steps) == 0 {
		return nil, fmt.Errorf("%w: procedure needs at least one step", ErrValidation)
	}
	content, err := json.MarshalIndent(proc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode procedure: %w", err)
	}
	meta := map[string]string{
		MetaTitle:        proc.Title,
		MetaIsStructured: "true",
		MetaStepCount:    strconv.Itoa(len(proc.Steps)),
	}
	return s.Store(ctx, string(content), append(tags, "procedural", "how-to"), meta, source)
}

// ParseProcedure decodes a structured procedure from a record. The
// boolean is false for free-form procedural notes.
func ParseProcedure(rec *Record) (Procedure, bool) {
	if rec.Metadata[MetaIsStructured] != "true" {
		return Procedure{}, false
	}
	var proc Procedure
	if err := json.Unmarshal([]byte(rec.Content), &proc); err != nil {
		return Procedure{}, false
	}
	return proc, true
}

// RetrieveByTitle returns structured procedures whose title contains
// the given fragment.
func (s *ProceduralStore) RetrieveByTitle(ctx context.Context, fragment string, limit int) ([]*Record, error) {
	filter := &Filter{
		Equals:   map[string]string{MetaIsStructured: "true"},
		Contains: map[string][]string{MetaTitle: {fragment}},
	}
	return s.Find(ctx, filter, 0, limit)
}

// StructuredCount counts structured procedures.
func (s *ProceduralStore) StructuredCount(ctx context.Context) (int, error) {
	n := 0
	filter := &Filter{Equals: map[string]string{MetaIsStructured: "true"}}
	err := s.Scan(ctx, filter, func(*Record) bool {
		n++
		return true
	})
	return n, err
}
