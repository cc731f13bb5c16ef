package assistant

import (
	"fmt"
	"strings"
)

// Mode selects the prompt template for text-only requests.
type Mode string

const (
	ModeSummary Mode = "summary"
	ModeChat    Mode = "chat"
	ModeGeneral Mode = "general"
)

const (
	sectorRestriction = "CRITICAL: Provide only agriculture-related information."
	imageInstruction  = "You are CropCare. Analyze this agricultural image in %s: identification, problems, solutions, and prevention."
)

var personas = map[Mode]string{
	ModeSummary: "You are CropCare 🌾, an agricultural document explainer. ONLY analyze agricultural documents.",
	ModeChat:    "You are CropCare 🌾, an agricultural assistant. ONLY answer agriculture questions.",
	ModeGeneral: "You are CropCare 🌾, an agricultural guide. ONLY provide farming information.",
}

// persona returns the role line for a mode. Unknown modes use the summary persona.
func persona(mode Mode) string {
	if p, ok := personas[mode]; ok {
		return p
	}
	return personas[ModeSummary]
}

// BuildPrompt assembles the instruction for a text-only request. Any mode
// other than summary or chat is answered as a general question.
func BuildPrompt(mode Mode, language, document, query string) string {
	var b strings.Builder
	b.WriteString(persona(mode))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Respond ONLY in %s.\n", language)
	b.WriteString(sectorRestriction)
	b.WriteByte('\n')

	switch mode {
	case ModeSummary:
		fmt.Fprintf(&b, "Analyze this document in %s:\n", language)
		b.WriteString("- Summary, Key findings, Important recommendations, and Risks\n")
		b.WriteString("Document:\n")
		b.WriteString(document)
		b.WriteByte('\n')
	case ModeChat:
		b.WriteString("Document context:\n")
		b.WriteString(document)
		b.WriteByte('\n')
		fmt.Fprintf(&b, "User question: %s\n", query)
	default:
		fmt.Fprintf(&b, "User question: %s\n", query)
	}
	return b.String()
}

// ImageInstruction returns the image analysis instruction for a language.
func ImageInstruction(language string) string {
	return fmt.Sprintf(imageInstruction, language)
}
