package synthesis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"design-analysis-be/internal/entity"
	"design-analysis-be/pkg/rag/prompt"

	"github.com/cespare/xxhash/v2"
)

const (
	DefaultBucketSize     = 0.05
	DefaultFeedbackPrefix = 80
)

// Engine merges persona critiques into a single result.
type Engine struct {
	BucketSize     float64
	FeedbackPrefix int
}

func NewEngine() *Engine {
	return &Engine{
		BucketSize:     DefaultBucketSize,
		FeedbackPrefix: DefaultFeedbackPrefix,
	}
}

// NormalizeSeverity folds model vocabulary into the three buckets.
func NormalizeSeverity(raw entity.Severity) entity.Severity {
	switch strings.ToLower(strings.TrimSpace(string(raw))) {
	case "critical", "high", "major", "blocker":
		return entity.SeverityCritical
	case "suggested", "medium", "moderate", "suggestion":
		return entity.SeveritySuggested
	default:
		return entity.SeverityEnhancement
	}
}

type merged struct {
	annotation entity.Annotation
	first      int
}

// Synthesize is deterministic in its input order. Annotations sharing image,
// coordinate bucket, category and feedback prefix are merged; the merged
// annotation keeps the highest severity and every persona that raised it.
func (e *Engine) Synthesize(critiques []PersonaCritique) *entity.SynthesisResult {
	result := &entity.SynthesisResult{
		PersonaFeedback: make([]entity.PersonaFeedback, 0, len(critiques)),
		Annotations:     []entity.Annotation{},
		PriorityMatrix: entity.PriorityMatrix{
			Critical:    []entity.Annotation{},
			Suggested:   []entity.Annotation{},
			Enhancement: []entity.Annotation{},
		},
		Citations: []entity.Citation{},
	}

	byKey := make(map[uint64]*merged)
	var order []*merged
	seq := 0

	for _, c := range critiques {
		feedback := entity.PersonaFeedback{
			Persona:     c.Persona,
			Summary:     c.Summary,
			Annotations: make([]entity.Annotation, 0, len(c.Annotations)),
		}

		for _, a := range c.Annotations {
			a.Severity = NormalizeSeverity(a.Severity)
			a.Personas = []string{c.Persona}
			feedback.Annotations = append(feedback.Annotations, a)

			key := e.key(a)
			if m, ok := byKey[key]; ok {
				if a.Severity.Rank() < m.annotation.Severity.Rank() {
					m.annotation.Severity = a.Severity
				}
				if !contains(m.annotation.Personas, c.Persona) {
					m.annotation.Personas = append(m.annotation.Personas, c.Persona)
				}
				continue
			}
			m := &merged{annotation: a, first: seq}
			seq++
			byKey[key] = m
			order = append(order, m)
		}
		result.PersonaFeedback = append(result.PersonaFeedback, feedback)
	}

	sort.SliceStable(order, func(i, j int) bool {
		ri, rj := order[i].annotation.Severity.Rank(), order[j].annotation.Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return order[i].first < order[j].first
	})

	for _, m := range order {
		a := m.annotation
		result.Annotations = append(result.Annotations, a)
		switch a.Severity {
		case entity.SeverityCritical:
			result.PriorityMatrix.Critical = append(result.PriorityMatrix.Critical, a)
		case entity.SeveritySuggested:
			result.PriorityMatrix.Suggested = append(result.PriorityMatrix.Suggested, a)
		default:
			result.PriorityMatrix.Enhancement = append(result.PriorityMatrix.Enhancement, a)
		}
	}

	result.Summary = summarize(result)
	return result
}

func (e *Engine) key(a entity.Annotation) uint64 {
	image := -1
	if a.ImageIndex != nil {
		image = *a.ImageIndex
	}

	h := xxhash.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|", image, e.bucket(a.X), e.bucket(a.Y), strings.ToLower(strings.TrimSpace(a.Category)))
	_, _ = h.WriteString(feedbackPrefix(a.Feedback, e.FeedbackPrefix))
	return h.Sum64()
}

func (e *Engine) bucket(v *float64) string {
	if v == nil {
		return "-"
	}
	size := e.BucketSize
	if size <= 0 {
		size = DefaultBucketSize
	}
	return fmt.Sprintf("%d", int(math.Round(*v/size)))
}

func feedbackPrefix(feedback string, n int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(feedback)), " ")
	runes := []rune(normalized)
	if n > 0 && len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func summarize(r *entity.SynthesisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s reviewed the design and raised %d %s: %d critical, %d suggested, %d enhancement.",
		len(r.PersonaFeedback), plural(len(r.PersonaFeedback), "persona", "personas"),
		len(r.Annotations), plural(len(r.Annotations), "finding", "findings"),
		len(r.PriorityMatrix.Critical), len(r.PriorityMatrix.Suggested), len(r.PriorityMatrix.Enhancement))

	for _, f := range r.PersonaFeedback {
		if f.Summary == "" {
			continue
		}
		name := f.Persona
		if p, ok := prompt.LookupPersona(f.Persona); ok {
			name = p.DisplayName
		}
		fmt.Fprintf(&b, "\n\n%s: %s", name, f.Summary)
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
