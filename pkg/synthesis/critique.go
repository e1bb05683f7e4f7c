package synthesis

import (
	"encoding/json"
	"strings"

	"design-analysis-be/internal/entity"
)

// PersonaCritique is one persona's parsed model output.
type PersonaCritique struct {
	Persona     string              `json:"persona"`
	Backend     string              `json:"backend,omitempty"`
	Summary     string              `json:"summary"`
	Annotations []entity.Annotation `json:"annotations"`
	Unparsed    bool                `json:"unparsed,omitempty"`
}

type critiqueWire struct {
	Summary     string `json:"summary"`
	Annotations []struct {
		Category   string   `json:"category"`
		Severity   string   `json:"severity"`
		Feedback   string   `json:"feedback"`
		ImageIndex *int     `json:"imageIndex"`
		X          *float64 `json:"x"`
		Y          *float64 `json:"y"`
	} `json:"annotations"`
}

// ParseCritique extracts the critique object from model text, fenced or bare.
// Output that holds no JSON object becomes a critique whose summary is the raw text.
func ParseCritique(persona, raw string) PersonaCritique {
	var wire critiqueWire
	if err := unmarshalModelJSON(raw, &wire); err != nil {
		return PersonaCritique{Persona: persona, Summary: strings.TrimSpace(raw), Annotations: []entity.Annotation{}, Unparsed: true}
	}

	out := PersonaCritique{
		Persona:     persona,
		Summary:     strings.TrimSpace(wire.Summary),
		Annotations: make([]entity.Annotation, 0, len(wire.Annotations)),
	}
	for _, a := range wire.Annotations {
		if strings.TrimSpace(a.Feedback) == "" {
			continue
		}
		out.Annotations = append(out.Annotations, entity.Annotation{
			Category:   strings.TrimSpace(a.Category),
			Severity:   entity.Severity(a.Severity),
			Feedback:   strings.TrimSpace(a.Feedback),
			ImageIndex: a.ImageIndex,
			X:          a.X,
			Y:          a.Y,
		})
	}
	return out
}

func unmarshalModelJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	err := json.Unmarshal([]byte(cleaned), out)
	if err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		return json.Unmarshal([]byte(cleaned[start:end+1]), out)
	}
	return err
}
