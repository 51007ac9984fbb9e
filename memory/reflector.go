package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// ReflectOptions controls one reflection generation run. Query takes
// priority over Tags; with neither set the engine samples by recency.
type ReflectOptions struct {
	Query      string
	Tags       []string
	TimeRange  string
	MaxSources int
}

// DefaultMaxSources is the sampling budget when none is given.
const DefaultMaxSources = 10

// Reflector synthesizes reflective records from the semantic, episodic
// and procedural layers via the completion capability. Generation
// never fails past sampling: capability and parsing problems degrade
// to a single informative fallback record.
type Reflector struct {
	semantic   *SemanticStore
	episodic   *EpisodicStore
	procedural *ProceduralStore
	reflective *ReflectiveStore
	completer  Completer
}

// NewReflector wires the synthesis engine.
func NewReflector(sem *SemanticStore, epi *EpisodicStore, proc *ProceduralStore, refl *ReflectiveStore, completer Completer) *Reflector {
	return &Reflector{
		semantic:   sem,
		episodic:   epi,
		procedural: proc,
		reflective: refl,
		completer:  completer,
	}
}

// sampled carries a candidate with its origin layer.
type sampled struct {
	rec   *Record
	layer Layer
}

// Generate samples candidates, prompts the completion capability and
// stores 1-3 reflections. An empty candidate set returns an empty
// slice without calling the capability.
func (r *Reflector) Generate(ctx context.Context, opts ReflectOptions) ([]*Record, error) {
	if opts.MaxSources <= 0 {
		opts.MaxSources = DefaultMaxSources
	}

	candidates, branch, err := r.sample(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sample candidates: %w", err)
	}
	if len(candidates) > opts.MaxSources {
		candidates = candidates[:opts.MaxSources]
	}
	if len(candidates) == 0 {
		log.Printf("[REFLECT] no candidates, skipping generation")
		return []*Record{}, nil
	}

	sourceIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		sourceIDs = append(sourceIDs, c.rec.ID)
	}
	log.Printf("[REFLECT] sampled %d candidates via %s branch", len(candidates), branch)

	raw, err := r.completer.Generate(ctx, buildReflectionPrompt(candidates), &GenerateOptions{
		MaxTokens:   1500,
		Temperature: 0.7,
	})
	if err != nil {
		log.Printf("[REFLECT] completion failed: %v", err)
		rec, serr := r.reflective.StoreReflection(ctx,
			fmt.Sprintf("Error generating reflections: %v", err),
			sourceIDs,
			append([]string{"error", "reflection_generation"}, opts.Tags...),
			branch)
		if serr != nil {
			return nil, fmt.Errorf("store fallback reflection: %w", serr)
		}
		return []*Record{rec}, nil
	}

	parsed := ParseReflections(raw)
	if len(parsed) == 0 {
		log.Printf("[REFLECT] no parseable reflections in response")
		rec, serr := r.reflective.StoreReflection(ctx,
			"Reflection generated from analyzing recent memories. No specific patterns identified.",
			sourceIDs,
			append([]string{"general", "reflection"}, opts.Tags...),
			branch)
		if serr != nil {
			return nil, fmt.Errorf("store fallback reflection: %w", serr)
		}
		return []*Record{rec}, nil
	}

	out := make([]*Record, 0, len(parsed))
	for _, p := range parsed {
		rec, err := r.reflective.StoreReflection(ctx, p.Content(), sourceIDs,
			append(append([]string{}, p.Tags...), opts.Tags...), branch)
		if err != nil {
			return out, fmt.Errorf("store reflection: %w", err)
		}
		out = append(out, rec)
	}
	log.Printf("[REFLECT] stored %d reflections from %d sources", len(out), len(sourceIDs))
	return out, nil
}

func (r *Reflector) sample(ctx context.Context, opts ReflectOptions) ([]sampled, string, error) {
	switch {
	case strings.TrimSpace(opts.Query) != "":
		c, err := r.sampleByQuery(ctx, opts)
		return c, "query", err
	case len(NormalizeTags(opts.Tags)) > 0:
		c, err := r.sampleByTags(ctx, opts)
		return c, "tags", err
	default:
		c, err := r.sampleByRecency(ctx, opts)
		return c, "recent", err
	}
}

// sampleByQuery splits the budget evenly across the three source
// layers and retrieves top matches per layer. Episodic results are
// additionally bound by the time range when one is given.
func (r *Reflector) sampleByQuery(ctx context.Context, opts ReflectOptions) ([]sampled, error) {
	share := opts.MaxSources / 3
	if share < 1 {
		share = 1
	}

	var out []sampled
	semHits, err := r.semantic.Retrieve(ctx, opts.Query, share, nil)
	if err != nil {
		return nil, err
	}
	out = appendScored(out, semHits, LayerSemantic)

	var epiOpts *RetrieveOptions
	if strings.TrimSpace(opts.TimeRange) != "" {
		cutoff := time.Now().UTC().Add(-ParseTimeRange(opts.TimeRange))
		epiOpts = &RetrieveOptions{Filter: &Filter{
			After: map[string]string{MetaEventTime: FormatTime(cutoff)},
		}}
	}
	epiHits, err := r.episodic.Retrieve(ctx, opts.Query, share, epiOpts)
	if err != nil {
		return nil, err
	}
	out = appendScored(out, epiHits, LayerEpisodic)

	procHits, err := r.procedural.Retrieve(ctx, opts.Query, share, nil)
	if err != nil {
		return nil, err
	}
	return appendScored(out, procHits, LayerProcedural), nil
}

// sampleByTags fetches records carrying all requested tags from each
// source layer, optionally bounded by the time range against the
// layer's temporal field.
func (r *Reflector) sampleByTags(ctx context.Context, opts ReflectOptions) ([]sampled, error) {
	tags := NormalizeTags(opts.Tags)
	share := opts.MaxSources / 3
	if share < 1 {
		share = 1
	}

	var cutoff string
	if strings.TrimSpace(opts.TimeRange) != "" {
		cutoff = FormatTime(time.Now().UTC().Add(-ParseTimeRange(opts.TimeRange)))
	}

	tagFilter := func(timeField string) *Filter {
		f := &Filter{Contains: map[string][]string{MetaTags: tags}}
		if cutoff != "" {
			f.After = map[string]string{timeField: cutoff}
		}
		return f
	}

	var out []sampled
	for _, src := range []struct {
		store     *LayerStore
		layer     Layer
		timeField string
	}{
		{r.semantic.LayerStore, LayerSemantic, MetaCreatedAt},
		{r.episodic.LayerStore, LayerEpisodic, MetaEventTime},
		{r.procedural.LayerStore, LayerProcedural, MetaCreatedAt},
	} {
		recs, err := src.store.Find(ctx, tagFilter(src.timeField), 0, share)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			out = append(out, sampled{rec: rec, layer: src.layer})
		}
	}
	return out, nil
}

// sampleByRecency takes the last 7 days of episodic records plus an
// unordered fill from the semantic and procedural layers.
func (r *Reflector) sampleByRecency(ctx context.Context, opts ReflectOptions) ([]sampled, error) {
	now := time.Now().UTC()
	epiShare := opts.MaxSources / 2
	fillShare := opts.MaxSources / 4
	if epiShare < 1 {
		epiShare = 1
	}
	if fillShare < 1 {
		fillShare = 1
	}

	var out []sampled
	epi, err := r.episodic.RetrieveByTimeframe(ctx, now.Add(-7*24*time.Hour), now, epiShare)
	if err != nil {
		return nil, err
	}
	for _, rec := range epi {
		out = append(out, sampled{rec: rec, layer: LayerEpisodic})
	}

	sem, err := r.semantic.List(ctx, 0, fillShare)
	if err != nil {
		return nil, err
	}
	for _, rec := range sem {
		out = append(out, sampled{rec: rec, layer: LayerSemantic})
	}

	proc, err := r.procedural.List(ctx, 0, fillShare)
	if err != nil {
		return nil, err
	}
	for _, rec := range proc {
		out = append(out, sampled{rec: rec, layer: LayerProcedural})
	}
	return out, nil
}

func appendScored(out []sampled, hits []Scored, layer Layer) []sampled {
	for _, h := range hits {
		out = append(out, sampled{rec: h.Record, layer: layer})
	}
	return out
}

const previewLen = 200

// buildReflectionPrompt groups candidates by layer with bounded
// previews and layer-specific context lines.
func buildReflectionPrompt(candidates []sampled) string {
	groups := map[Layer][]sampled{}
	for _, c := range candidates {
		groups[c.layer] = append(groups[c.layer], c)
	}

	var b strings.Builder
	b.WriteString("You are reviewing memories from an AI agent's memory system.\n\n")
	for _, layer := range []Layer{LayerSemantic, LayerEpisodic, LayerProcedural} {
		items := groups[layer]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s MEMORIES:\n", strings.ToUpper(string(layer)))
		for i, c := range items {
			prefix := ""
			switch layer {
			case LayerEpisodic:
				prefix = fmt.Sprintf("[%s] ", c.rec.Metadata[MetaEventTime])
			case LayerProcedural:
				if title := c.rec.Metadata[MetaTitle]; title != "" {
					prefix = fmt.Sprintf("(%s) ", title)
				}
			}
			fmt.Fprintf(&b, "%d. %s%s\n", i+1, prefix, truncate(c.rec.Content, previewLen))
		}
		b.WriteString("\n")
	}

	b.WriteString(`Based on these memories, generate 1-3 thoughtful reflections that identify patterns, insights, or implications.

Format each reflection exactly as:

REFLECTION:
<the core insight>
EVIDENCE:
<which memories support it>
IMPLICATIONS:
<what this suggests going forward>
TAGS:
<comma-separated topic tags>

Separate reflections with a line containing only ---.`)
	return b.String()
}
