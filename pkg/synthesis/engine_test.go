package synthesis

import (
	"testing"

	"design-analysis-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrInt(i int) *int           { return &i }
func ptrFloat(f float64) *float64 { return &f }

func TestParseCritique(t *testing.T) {
	t.Run("fenced json", func(t *testing.T) {
		raw := "```json\n{\"summary\":\"Too busy\",\"annotations\":[{\"category\":\"layout\",\"severity\":\"High\",\"feedback\":\"Hero is crowded\",\"imageIndex\":0,\"x\":0.5,\"y\":0.2},{\"category\":\"copy\",\"severity\":\"low\",\"feedback\":\"  \"}]}\n```"
		c := ParseCritique("visual", raw)
		assert.False(t, c.Unparsed)
		assert.Equal(t, "Too busy", c.Summary)
		require.Len(t, c.Annotations, 1)
		assert.Equal(t, 0, *c.Annotations[0].ImageIndex)
		assert.Equal(t, entity.Severity("High"), c.Annotations[0].Severity)
	})

	t.Run("json inside prose", func(t *testing.T) {
		c := ParseCritique("usability", "Here you go: {\"summary\":\"ok\",\"annotations\":[]} hope it helps")
		assert.False(t, c.Unparsed)
		assert.Equal(t, "ok", c.Summary)
	})

	t.Run("plain text", func(t *testing.T) {
		c := ParseCritique("usability", "The layout works well overall.")
		assert.True(t, c.Unparsed)
		assert.Equal(t, "The layout works well overall.", c.Summary)
		assert.Empty(t, c.Annotations)
	})
}

func TestNormalizeSeverity(t *testing.T) {
	cases := map[string]entity.Severity{
		"Critical":  entity.SeverityCritical,
		"major":     entity.SeverityCritical,
		"medium":    entity.SeveritySuggested,
		"suggested": entity.SeveritySuggested,
		"low":       entity.SeverityEnhancement,
		"":          entity.SeverityEnhancement,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSeverity(entity.Severity(in)), in)
	}
}

func critiques() []PersonaCritique {
	return []PersonaCritique{
		{
			Persona: "usability",
			Summary: "Navigation is unclear.",
			Annotations: []entity.Annotation{
				{Category: "navigation", Severity: "medium", Feedback: "Menu labels are vague", ImageIndex: ptrInt(0), X: ptrFloat(0.11), Y: ptrFloat(0.05)},
				{Category: "copy", Severity: "low", Feedback: "Tone is inconsistent"},
			},
		},
		{
			Persona: "accessibility",
			Summary: "Contrast fails in places.",
			Annotations: []entity.Annotation{
				// same finding, nearby coordinates, different casing and spacing
				{Category: "Navigation", Severity: "critical", Feedback: "menu  labels are VAGUE", ImageIndex: ptrInt(0), X: ptrFloat(0.1), Y: ptrFloat(0.06)},
				{Category: "contrast", Severity: "high", Feedback: "Grey on white fails AA", ImageIndex: ptrInt(0), X: ptrFloat(0.4), Y: ptrFloat(0.8)},
			},
		},
	}
}

func TestSynthesize_DedupAndBuckets(t *testing.T) {
	res := NewEngine().Synthesize(critiques())

	require.Len(t, res.Annotations, 3)
	assert.Len(t, res.PriorityMatrix.Critical, 2)
	assert.Len(t, res.PriorityMatrix.Suggested, 0)
	assert.Len(t, res.PriorityMatrix.Enhancement, 1)

	merged := res.Annotations[0]
	assert.Equal(t, "Menu labels are vague", merged.Feedback)
	assert.Equal(t, entity.SeverityCritical, merged.Severity)
	assert.Equal(t, []string{"usability", "accessibility"}, merged.Personas)

	assert.Equal(t, "Grey on white fails AA", res.Annotations[1].Feedback)
	assert.Equal(t, entity.SeverityEnhancement, res.Annotations[2].Severity)

	require.Len(t, res.PersonaFeedback, 2)
	assert.Len(t, res.PersonaFeedback[1].Annotations, 2)
	assert.Equal(t, entity.SeverityCritical, res.PersonaFeedback[1].Annotations[1].Severity)
}

func TestSynthesize_DifferentPositionsStaySeparate(t *testing.T) {
	c := []PersonaCritique{{
		Persona: "visual",
		Annotations: []entity.Annotation{
			{Category: "spacing", Severity: "suggested", Feedback: "Tight padding", ImageIndex: ptrInt(0), X: ptrFloat(0.1), Y: ptrFloat(0.1)},
			{Category: "spacing", Severity: "suggested", Feedback: "Tight padding", ImageIndex: ptrInt(1), X: ptrFloat(0.1), Y: ptrFloat(0.1)},
			{Category: "spacing", Severity: "suggested", Feedback: "Tight padding", ImageIndex: ptrInt(0), X: ptrFloat(0.7), Y: ptrFloat(0.1)},
		},
	}}
	res := NewEngine().Synthesize(c)
	assert.Len(t, res.Annotations, 3)
}

func TestSynthesize_Deterministic(t *testing.T) {
	e := NewEngine()
	first := e.Synthesize(critiques())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Synthesize(critiques()))
	}
	assert.Equal(t,
		"2 personas reviewed the design and raised 3 findings: 2 critical, 0 suggested, 1 enhancement.\n\n"+
			"UX Researcher: Navigation is unclear.\n\nAccessibility Specialist: Contrast fails in places.",
		first.Summary)
}

func TestSynthesize_Empty(t *testing.T) {
	res := NewEngine().Synthesize(nil)
	assert.Empty(t, res.Annotations)
	assert.NotNil(t, res.PriorityMatrix.Critical)
	assert.Equal(t, "0 personas reviewed the design and raised 0 findings: 0 critical, 0 suggested, 0 enhancement.", res.Summary)
}
