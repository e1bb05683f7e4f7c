package prompt

import (
	"context"
	"strings"
	"testing"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/internal/repository/memory"
	"design-analysis-be/pkg/embedding"
	ragcontext "design-analysis-be/pkg/rag/context"
	"design-analysis-be/pkg/rag/retriever"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRAG() *ragcontext.RAGContext {
	matches := []retriever.Match{{
		Entry: &entity.KnowledgeEntry{
			Id:       uuid.MustParse("00000000-0000-0000-0000-000000000001"),
			Title:    "Primary actions",
			Category: "conversion",
			Content:  "One primary action per screen.",
		},
		Similarity: 0.75,
	}}
	return ragcontext.NewAssembler(0).Build(matches, 4000)
}

func TestBuild_Snapshot(t *testing.T) {
	usability, ok := LookupPersona("usability")
	require.True(t, ok)

	got := Build(Input{
		BasePrompt:    "Review the design.",
		RAG:           sampleRAG(),
		Persona:       usability,
		Goal:          "Increase sign-ups",
		ImageCount:    2,
		IsComparative: true,
	})

	want := "<task>\nReview the design.\n</task>\n\n" +
		"<research_context>\n" +
		"The following research findings are relevant. Cite them by their [n] marker when a finding relies on them.\n\n" +
		"[1] Primary actions (conversion, similarity 0.750)\nOne primary action per screen.\n" +
		"</research_context>\n\n" +
		"<persona>\nYou are the UX Researcher.\n" + usability.Stance + "\n</persona>\n\n" +
		"<goal>\nIncrease sign-ups\n</goal>\n\n" +
		"<images>\n2 screens are attached as alternative versions of the same design. " +
		"Compare them directly, state which version better serves the goal and why, " +
		"and attach each annotation to the version it concerns.\n" +
		"Coordinates x and y are fractions of the image width and height, from 0 to 1.\n</images>\n\n" +
		"<response_format>\nRespond with a single JSON object and nothing else:\n" +
		`{"summary": string, "annotations": [{"category": string, "severity": "critical" | "suggested" | "enhancement", "feedback": string, "imageIndex": number, "x": number, "y": number}]}` +
		"\n</response_format>"
	assert.Equal(t, want, got)
}

func TestBuild_ByteIdentical(t *testing.T) {
	visual, _ := LookupPersona("visual")
	in := Input{RAG: sampleRAG(), Persona: visual, Goal: "Clean up the dashboard", ImageCount: 3}

	first := Build(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Build(in))
	}
}

func TestBuild_ModeInstructions(t *testing.T) {
	single := Build(Input{ImageCount: 1})
	assert.Contains(t, single, "One screen is attached")
	assert.Contains(t, single, DefaultBasePrompt)

	flow := Build(Input{ImageCount: 3})
	assert.Contains(t, flow, "consecutive steps of one flow")
	assert.NotContains(t, flow, "<persona>")
	assert.NotContains(t, flow, "<goal>")
}

func TestEmptyCorpusOmitsResearchContext(t *testing.T) {
	store := memory.NewStore()
	r := retriever.NewRetriever(embedding.NewStaticProvider("test", 4), memory.NewRepositoryFactory(store), logger.NewNopLogger())

	matches, err := r.Search(context.Background(), []float32{1, 0, 0, 0}, retriever.DefaultQuery())
	require.NoError(t, err)
	assert.Empty(t, matches)

	rag := ragcontext.NewAssembler(0).Build(matches, 4000)
	assert.True(t, rag.IsEmpty())
	assert.Equal(t, "", rag.Text)

	out := Build(Input{RAG: rag, Goal: "Audit onboarding", ImageCount: 1})
	assert.False(t, strings.Contains(out, "research_context"))
}

func TestBuild_SignalsWithoutResearch(t *testing.T) {
	signals := []entity.Signal{{Kind: "competitor", Text: "COMPETITOR_USES_ONE_CLICK"}}
	rag := ragcontext.NewAssembler(0).Build(nil, 4000, signals...)

	out := Build(Input{RAG: rag, Goal: "Shorten checkout", ImageCount: 1})
	assert.NotContains(t, out, "<research_context>")
	assert.Contains(t, out, "<signals>\nTake these notes from the team into account:\n\n[signal:competitor] COMPETITOR_USES_ONE_CLICK\n</signals>")
	assert.Less(t, strings.Index(out, "<signals>"), strings.Index(out, "<goal>"))
}

func TestBuild_ResearchThenSignals(t *testing.T) {
	matches := []retriever.Match{{
		Entry:      &entity.KnowledgeEntry{Id: uuid.New(), Title: "Primary actions", Content: "One primary action per screen."},
		Similarity: 0.75,
	}}
	rag := ragcontext.NewAssembler(0).Build(matches, 4000, entity.Signal{Kind: "vision", Text: "Hero image dominates"})

	out := Build(Input{RAG: rag, ImageCount: 1})
	research := strings.Index(out, "<research_context>")
	signals := strings.Index(out, "<signals>")
	require.GreaterOrEqual(t, research, 0)
	require.GreaterOrEqual(t, signals, 0)
	assert.Less(t, research, signals)
	assert.NotContains(t, out[research:signals], "Hero image dominates")
}

func TestPersonas(t *testing.T) {
	for _, id := range DefaultPersonaIDs() {
		p, ok := LookupPersona(id)
		require.True(t, ok, id)
		assert.Greater(t, p.Strictness, 0.0)
	}
	_, ok := LookupPersona("astrologer")
	assert.False(t, ok)
	assert.Equal(t, 1.0, Strictness("astrologer"))
}
