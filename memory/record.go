package memory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Layer identifies one of the six memory layers. Each layer maps to its
// own backend collection named "<layer>_memory".
type Layer string

const (
	LayerSemantic   Layer = "semantic"
	LayerEpisodic   Layer = "episodic"
	LayerProcedural Layer = "procedural"
	LayerAffective  Layer = "affective"
	LayerIdentity   Layer = "identity"
	LayerReflective Layer = "reflective"
)

// Layers lists all layers in canonical order.
var Layers = []Layer{
	LayerSemantic,
	LayerEpisodic,
	LayerProcedural,
	LayerAffective,
	LayerIdentity,
	LayerReflective,
}

// Collection returns the backend collection name for this layer.
func (l Layer) Collection() string {
	return string(l) + "_memory"
}

// Valid reports whether l is one of the six known layers.
func (l Layer) Valid() bool {
	switch l {
	case LayerSemantic, LayerEpisodic, LayerProcedural, LayerAffective, LayerIdentity, LayerReflective:
		return true
	}
	return false
}

// ParseLayer resolves a layer name, case-insensitively.
func ParseLayer(s string) (Layer, bool) {
	l := Layer(strings.ToLower(strings.TrimSpace(s)))
	return l, l.Valid()
}

// Reserved metadata keys. Layer stores own these; caller-supplied values
// under the same keys are overwritten at write time.
const (
	MetaLayer     = "layer"
	MetaCreatedAt = "created_at"
	MetaUpdatedAt = "updated_at"
	MetaSource    = "source"
	MetaTags      = "tags"

	// Episodic
	MetaEventTime   = "event_time"
	MetaSessionID   = "session_id"
	MetaSessionName = "session_name"
	MetaIsSession   = "is_session"

	// Procedural
	MetaTitle        = "title"
	MetaIsStructured = "is_structured"
	MetaStepCount    = "step_count"

	// Affective
	MetaValence   = "valence"
	MetaIntensity = "intensity"
	MetaEmotions  = "emotions"

	// Identity
	MetaAspect = "aspect"

	// Reflective
	MetaSourceMemories = "source_memories"
	MetaSourceType     = "source_type"
)

// TimeLayout is the metadata timestamp format. Fixed-width UTC so that
// lexicographic comparison of stored strings equals chronological order
// (RFC3339Nano trims trailing zeros and breaks that property).
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in the canonical metadata layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a canonical metadata timestamp. It also accepts plain
// RFC3339 values so records written by older tooling still load.
func ParseTime(s string) (time.Time, bool) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Record is a single memory entry. Tags are a set; Metadata holds both
// reserved layer fields and caller extensions as flat strings, which is
// what the vector backend can index.
type Record struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Layer     Layer             `json:"layer"`
	Tags      []string          `json:"tags,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Source    string            `json:"source,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// JoinTags normalizes a tag list into its stored form: trimmed, empties
// dropped, duplicates removed (first occurrence wins), comma-joined.
func JoinTags(tags []string) string {
	return strings.Join(NormalizeTags(tags), ", ")
}

// SplitTags is the inverse of JoinTags.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return NormalizeTags(strings.Split(s, ","))
}

// NormalizeTags trims, drops empties and dedupes while keeping order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// HasTag reports whether the normalized tag set contains tag.
func (r *Record) HasTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// recordToDocument flattens a record into its indexable form.
func recordToDocument(r *Record, embedding []float32) Document {
	meta := make(map[string]string, len(r.Metadata)+5)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	// Reserved keys win over caller metadata.
	meta[MetaLayer] = string(r.Layer)
	meta[MetaCreatedAt] = FormatTime(r.CreatedAt)
	meta[MetaUpdatedAt] = FormatTime(r.UpdatedAt)
	meta[MetaTags] = JoinTags(r.Tags)
	if r.Source != "" {
		meta[MetaSource] = r.Source
	}
	return Document{
		ID:        r.ID,
		Content:   r.Content,
		Embedding: embedding,
		Metadata:  meta,
	}
}

// documentToRecord rebuilds a record from its indexed form.
func documentToRecord(d *Document) *Record {
	r := &Record{
		ID:       d.ID,
		Content:  d.Content,
		Metadata: make(map[string]string, len(d.Metadata)),
	}
	for k, v := range d.Metadata {
		switch k {
		case MetaLayer:
			r.Layer = Layer(v)
		case MetaCreatedAt:
			if t, ok := ParseTime(v); ok {
				r.CreatedAt = t
			}
		case MetaUpdatedAt:
			if t, ok := ParseTime(v); ok {
				r.UpdatedAt = t
			}
		case MetaTags:
			r.Tags = SplitTags(v)
		case MetaSource:
			r.Source = v
		default:
			r.Metadata[k] = v
		}
	}
	return r
}
