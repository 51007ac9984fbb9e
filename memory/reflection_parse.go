package memory

import (
	"strings"
)

// ParsedReflection is one reflection pulled out of model output.
type ParsedReflection struct {
	Reflection   string
	Evidence     string
	Implications string
	Tags         []string
}

// Content renders the stored form: the reflection followed by its
// optional evidence and implications blocks.
func (p ParsedReflection) Content() string {
	var b strings.Builder
	b.WriteString(p.Reflection)
	if p.Evidence != "" {
		b.WriteString("\n\nEvidence:\n")
		b.WriteString(p.Evidence)
	}
	if p.Implications != "" {
		b.WriteString("\n\nImplications:\n")
		b.WriteString(p.Implications)
	}
	return b.String()
}

// Section keywords of the reflection micro-format.
const (
	secReflection   = "REFLECTION:"
	secEvidence     = "EVIDENCE:"
	secImplications = "IMPLICATIONS:"
	secTags         = "TAGS:"
)

// ParseReflections scans model output for reflections. Chunks are
// separated by lines containing only "---"; within a chunk, a line
// beginning with one of the section keywords opens that section and
// following lines accumulate into it. Chunks without a REFLECTION
// section are discarded. The parser never fails; worst case it
// returns an empty slice.
func ParseReflections(text string) []ParsedReflection {
	var out []ParsedReflection
	for _, chunk := range splitChunks(text) {
		if p, ok := parseChunk(chunk); ok {
			out = append(out, p)
		}
	}
	return out
}

func splitChunks(text string) []string {
	var chunks []string
	var cur []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "---" {
			chunks = append(chunks, strings.Join(cur, "\n"))
			cur = cur[:0]
			continue
		}
		cur = append(cur, line)
	}
	chunks = append(chunks, strings.Join(cur, "\n"))
	return chunks
}

func parseChunk(chunk string) (ParsedReflection, bool) {
	sections := map[string][]string{}
	current := ""
	for _, line := range strings.Split(chunk, "\n") {
		trimmed := strings.TrimSpace(line)
		matched := false
		for _, key := range []string{secReflection, secEvidence, secImplications, secTags} {
			if strings.HasPrefix(trimmed, key) {
				current = key
				if rest := strings.TrimSpace(trimmed[len(key):]); rest != "" {
					sections[key] = append(sections[key], rest)
				}
				matched = true
				break
			}
		}
		if matched || current == "" || trimmed == "" {
			continue
		}
		sections[current] = append(sections[current], trimmed)
	}

	reflection := strings.Join(sections[secReflection], "\n")
	if strings.TrimSpace(reflection) == "" {
		return ParsedReflection{}, false
	}
	return ParsedReflection{
		Reflection:   reflection,
		Evidence:     strings.Join(sections[secEvidence], "\n"),
		Implications: strings.Join(sections[secImplications], "\n"),
		Tags:         SplitTags(strings.Join(sections[secTags], ", ")),
	}, true
}
