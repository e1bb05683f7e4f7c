package prompt

import (
	"fmt"
	"strings"

	ragcontext "design-analysis-be/pkg/rag/context"
)

const DefaultBasePrompt = "You are reviewing a product design. Critique the provided screens honestly and specifically, " +
	"grounding each finding in what is visible in the images."

// Input holds everything a critique prompt depends on.
type Input struct {
	BasePrompt    string
	RAG           *ragcontext.RAGContext
	Persona       Persona
	Goal          string
	ImageCount    int
	IsComparative bool
}

// Build assembles the critique instruction. It performs no I/O and the same
// Input always yields the same string.
func Build(in Input) string {
	var prompt strings.Builder

	writeBase(&prompt, in.BasePrompt)
	if !in.RAG.IsEmpty() {
		writeResearchContext(&prompt, in.RAG)
		writeSignals(&prompt, in.RAG)
	}
	writePersona(&prompt, in.Persona)
	writeGoal(&prompt, in.Goal)
	writeImages(&prompt, in.ImageCount, in.IsComparative)
	writeResponseContract(&prompt)

	return prompt.String()
}

func writeBase(prompt *strings.Builder, base string) {
	if strings.TrimSpace(base) == "" {
		base = DefaultBasePrompt
	}
	prompt.WriteString("<task>\n")
	prompt.WriteString(strings.TrimSpace(base))
	prompt.WriteString("\n</task>\n\n")
}

func writeResearchContext(prompt *strings.Builder, rag *ragcontext.RAGContext) {
	if len(rag.Entries) == 0 {
		return
	}
	prompt.WriteString("<research_context>\n")
	prompt.WriteString("The following research findings are relevant. Cite them by their [n] marker when a finding relies on them.\n\n")
	prompt.WriteString(rag.Text)
	prompt.WriteString("\n</research_context>\n\n")
}

// writeSignals is independent of retrieval: signals come from the session.
func writeSignals(prompt *strings.Builder, rag *ragcontext.RAGContext) {
	if len(rag.Signals) == 0 {
		return
	}
	prompt.WriteString("<signals>\n")
	prompt.WriteString("Take these notes from the team into account:\n\n")
	prompt.WriteString(rag.SignalText)
	prompt.WriteString("\n</signals>\n\n")
}

func writePersona(prompt *strings.Builder, p Persona) {
	if p.ID == "" {
		return
	}
	prompt.WriteString("<persona>\n")
	fmt.Fprintf(prompt, "You are the %s.\n", p.DisplayName)
	prompt.WriteString(p.Stance)
	prompt.WriteString("\n</persona>\n\n")
}

func writeGoal(prompt *strings.Builder, goal string) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return
	}
	prompt.WriteString("<goal>\n")
	prompt.WriteString(goal)
	prompt.WriteString("\n</goal>\n\n")
}

func writeImages(prompt *strings.Builder, count int, comparative bool) {
	prompt.WriteString("<images>\n")
	switch {
	case count <= 1:
		prompt.WriteString("One screen is attached. Use imageIndex 0 for every annotation.\n")
	case comparative:
		fmt.Fprintf(prompt, "%d screens are attached as alternative versions of the same design. ", count)
		prompt.WriteString("Compare them directly, state which version better serves the goal and why, ")
		prompt.WriteString("and attach each annotation to the version it concerns.\n")
	default:
		fmt.Fprintf(prompt, "%d screens are attached as consecutive steps of one flow. ", count)
		prompt.WriteString("Review each screen and the transitions between them.\n")
	}
	prompt.WriteString("Coordinates x and y are fractions of the image width and height, from 0 to 1.\n")
	prompt.WriteString("</images>\n\n")
}

func writeResponseContract(prompt *strings.Builder) {
	prompt.WriteString("<response_format>\n")
	prompt.WriteString("Respond with a single JSON object and nothing else:\n")
	prompt.WriteString(`{"summary": string, "annotations": [{"category": string, "severity": "critical" | "suggested" | "enhancement", "feedback": string, "imageIndex": number, "x": number, "y": number}]}`)
	prompt.WriteString("\n</response_format>")
}
