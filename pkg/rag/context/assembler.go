package context

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"design-analysis-be/internal/entity"
	"design-analysis-be/pkg/rag/retriever"

	"github.com/google/uuid"
)

const (
	DefaultMaxEntryChars = 1200
	blockSeparator       = "\n\n"
)

// Entry is one knowledge block included in the context, in rank order.
type Entry struct {
	Index       int
	KnowledgeId uuid.UUID
	Title       string
	Category    string
	Source      string
	Similarity  float64
}

// RAGContext is the bounded research context handed to the prompt builder.
// It lives for a single request; only Citations are carried into results.
// Text holds the knowledge blocks and SignalText the session signals; both
// draw on one budget.
type RAGContext struct {
	Entries              []Entry
	Signals              []entity.Signal
	Text                 string
	SignalText           string
	TotalRelevant        int
	CategoryHistogram    map[string]int
	KnowledgeSourcesUsed int
	Citations            []entity.Citation
}

func (c *RAGContext) IsEmpty() bool {
	return c == nil || (len(c.Entries) == 0 && len(c.Signals) == 0)
}

type Assembler struct {
	MaxEntryChars int
}

func NewAssembler(maxEntryChars int) *Assembler {
	if maxEntryChars <= 0 {
		maxEntryChars = DefaultMaxEntryChars
	}
	return &Assembler{MaxEntryChars: maxEntryChars}
}

// Build formats matches into citation blocks in rank order until the next
// block no longer fits maxContextChars. Blocks are never split. Signals take
// what budget the knowledge blocks leave, under the same rule.
func (a *Assembler) Build(matches []retriever.Match, maxContextChars int, signals ...entity.Signal) *RAGContext {
	out := &RAGContext{
		Entries:           []Entry{},
		Signals:           []entity.Signal{},
		CategoryHistogram: map[string]int{},
		Citations:         []entity.Citation{},
	}

	var text, signalText strings.Builder
	used := 0
	fits := func(block string) bool {
		cost := utf8.RuneCountInString(block)
		if used > 0 {
			cost += utf8.RuneCountInString(blockSeparator)
		}
		return used+cost <= maxContextChars
	}
	write := func(dst *strings.Builder, block string) {
		if used > 0 {
			used += utf8.RuneCountInString(blockSeparator)
		}
		if dst.Len() > 0 {
			dst.WriteString(blockSeparator)
		}
		dst.WriteString(block)
		used += utf8.RuneCountInString(block)
	}

	exhausted := false
	seenIds := make(map[uuid.UUID]struct{}, len(matches))
	seenContent := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if m.Entry == nil {
			continue
		}
		content := strings.TrimSpace(m.Entry.Content)
		if _, dup := seenIds[m.Entry.Id]; dup {
			continue
		}
		if _, dup := seenContent[content]; dup {
			continue
		}
		seenIds[m.Entry.Id] = struct{}{}
		seenContent[content] = struct{}{}
		out.TotalRelevant++

		if exhausted {
			continue
		}

		index := len(out.Entries) + 1
		category := categoryOf(m.Entry)
		block := fmt.Sprintf("[%d] %s (%s, similarity %.3f)\n%s",
			index, m.Entry.Title, category, m.Similarity, truncate(content, a.MaxEntryChars))
		if !fits(block) {
			exhausted = true
			continue
		}
		write(&text, block)

		out.Entries = append(out.Entries, Entry{
			Index:       index,
			KnowledgeId: m.Entry.Id,
			Title:       m.Entry.Title,
			Category:    category,
			Source:      m.Entry.Source,
			Similarity:  m.Similarity,
		})
		out.CategoryHistogram[category]++
		out.Citations = append(out.Citations, entity.Citation{
			KnowledgeId: m.Entry.Id,
			Title:       m.Entry.Title,
			Category:    category,
			Source:      m.Entry.Source,
			Similarity:  m.Similarity,
		})
	}

	for _, s := range signals {
		body := strings.TrimSpace(s.Text)
		if body == "" {
			continue
		}
		block := fmt.Sprintf("[signal:%s] %s", s.Kind, truncate(body, a.MaxEntryChars))
		if !fits(block) {
			break
		}
		write(&signalText, block)
		out.Signals = append(out.Signals, s)
	}

	out.KnowledgeSourcesUsed = len(out.Entries)
	out.Text = text.String()
	out.SignalText = signalText.String()
	return out
}

func categoryOf(e *entity.KnowledgeEntry) string {
	if strings.TrimSpace(e.Category) == "" {
		return "general"
	}
	return e.Category
}

func truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	if maxRunes <= 3 {
		return string([]rune(text)[:maxRunes])
	}
	return string([]rune(text)[:maxRunes-3]) + "..."
}
