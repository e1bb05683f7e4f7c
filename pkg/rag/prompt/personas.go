package prompt

// Persona is a named critique profile. Strictness scales how heavily its
// findings weigh on the maturity score.
type Persona struct {
	ID          string
	DisplayName string
	Stance      string
	Strictness  float64
}

var personas = map[string]Persona{
	"usability": {
		ID:          "usability",
		DisplayName: "UX Researcher",
		Stance:      "Evaluate task flow, information hierarchy, affordances and cognitive load. Call out anything that would make a first-time user hesitate.",
		Strictness:  1.0,
	},
	"visual": {
		ID:          "visual",
		DisplayName: "Visual Designer",
		Stance:      "Evaluate layout, spacing rhythm, alignment, typography and color. Judge consistency and polish.",
		Strictness:  0.9,
	},
	"accessibility": {
		ID:          "accessibility",
		DisplayName: "Accessibility Specialist",
		Stance:      "Evaluate contrast, target sizes, text legibility, focus order and reliance on color alone, against WCAG 2.2 AA.",
		Strictness:  1.2,
	},
	"conversion": {
		ID:          "conversion",
		DisplayName: "Growth Strategist",
		Stance:      "Evaluate calls to action, value proposition clarity, friction and trust signals along the path to conversion.",
		Strictness:  1.1,
	},
	"brand": {
		ID:          "brand",
		DisplayName: "Brand Director",
		Stance:      "Evaluate tone, visual identity, differentiation and emotional impact.",
		Strictness:  0.8,
	},
}

var defaultPersonaIDs = []string{"usability", "visual", "accessibility"}

func LookupPersona(id string) (Persona, bool) {
	p, ok := personas[id]
	return p, ok
}

// DefaultPersonaIDs is used when a session does not select personas.
func DefaultPersonaIDs() []string {
	return append([]string(nil), defaultPersonaIDs...)
}

// Strictness returns the modifier for id, 1.0 when unknown.
func Strictness(id string) float64 {
	if p, ok := personas[id]; ok {
		return p.Strictness
	}
	return 1.0
}
