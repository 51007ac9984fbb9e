package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
)

// Affect describes the emotional coloring of a record. Valence is
// clamped to [-1, 1], intensity to [1, 10].
type Affect struct {
	Valence   float64  `json:"valence"`
	Intensity int      `json:"intensity"`
	Emotions  []string `json:"emotions"`
}

// ClampValence bounds v to [-1, 1].
func ClampValence(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampIntensity bounds i to [1, 10].
func ClampIntensity(i int) int {
	if i < 1 {
		return 1
	}
	if i > 10 {
		return 10
	}
	return i
}

// AffectiveStore holds emotionally colored records. A Completer is
// optional; without one, Analyze degrades to a neutral reading.
type AffectiveStore struct {
	*LayerStore
	completer Completer
}

// NewAffectiveStore creates the affective layer store. completer may
// be nil when automatic analysis is not needed.
func NewAffectiveStore(backend Backend, embedder Embedder, completer Completer, config *StoreConfig) *AffectiveStore {
	return &AffectiveStore{
		LayerStore: NewLayerStore(LayerAffective, backend, embedder, config),
		completer:  completer,
	}
}

// StoreAffect persists a record with explicit emotional metadata.
// Out-of-range valence and intensity are clamped, not rejected.
func (s *AffectiveStore) StoreAffect(ctx context.Context, content string, affect Affect, tags []string, metadata map[string]string, source string) (*Record, error) {
	meta := copyMeta(metadata)
	meta[MetaValence] = strconv.FormatFloat(ClampValence(affect.Valence), 'f', 2, 64)
	meta[MetaIntensity] = strconv.Itoa(ClampIntensity(affect.Intensity))
	meta[MetaEmotions] = strings.Join(NormalizeTags(affect.Emotions), ", ")
	return s.Store(ctx, content, tags, meta, source)
}

const affectPrompt = `Analyze the emotional content of the following text.
Respond with only a JSON object in this exact form:
{"valence": <float from -1.0 (negative) to 1.0 (positive)>, "intensity": <integer from 1 to 10>, "emotions": [<up to 5 emotion words>]}

Text:
%s`

// Analyze asks the completion capability to rate content emotionally.
// Any failure, including unparseable output, yields a neutral reading
// (valence 0, intensity 5, no emotions) rather than an error.
func (s *AffectiveStore) Analyze(ctx context.Context, content string) Affect {
	neutral := Affect{Valence: 0, Intensity: 5}
	if s.completer == nil {
		return neutral
	}
	raw, err := s.completer.Generate(ctx, fmt.Sprintf(affectPrompt, content), &GenerateOptions{
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		log.Printf("[AFFECTIVE] analysis failed, using neutral: %v", err)
		return neutral
	}
	var affect Affect
	if err := json.Unmarshal([]byte(extractJSON(raw)), &affect); err != nil {
		log.Printf("[AFFECTIVE] unparseable analysis, using neutral: %v", err)
		return neutral
	}
	affect.Valence = ClampValence(affect.Valence)
	affect.Intensity = ClampIntensity(affect.Intensity)
	affect.Emotions = NormalizeTags(affect.Emotions)
	return affect
}

// StoreAnalyzed analyzes content and stores it with the result.
// Detected emotions are added as tags.
func (s *AffectiveStore) StoreAnalyzed(ctx context.Context, content string, tags []string, metadata map[string]string, source string) (*Record, error) {
	affect := s.Analyze(ctx, content)
	return s.StoreAffect(ctx, content, affect, append(tags, affect.Emotions...), metadata, source)
}

// RetrieveByEmotion returns records whose emotion list contains the
// given emotion, most recent first.
func (s *AffectiveStore) RetrieveByEmotion(ctx context.Context, emotion string, limit int) ([]*Record, error) {
	filter := &Filter{Contains: map[string][]string{MetaEmotions: {emotion}}}
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

// RetrieveByValence returns records with valence in [min, max], most
// recent first. Valence needs numeric comparison, so this is a scan.
func (s *AffectiveStore) RetrieveByValence(ctx context.Context, min, max float64, limit int) ([]*Record, error) {
	var recs []*Record
	err := s.Scan(ctx, nil, func(rec *Record) bool {
		v, err := strconv.ParseFloat(rec.Metadata[MetaValence], 64)
		if err == nil && v >= min && v <= max {
			recs = append(recs, rec)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Feed returns the most recent affective records.
func (s *AffectiveStore) Feed(ctx context.Context, limit int) ([]*Record, error) {
	recs, err := s.Find(ctx, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func sortByCreatedDesc(recs []*Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}

// extractJSON pulls the first top-level JSON object out of model
// output that may wrap it in prose or code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
