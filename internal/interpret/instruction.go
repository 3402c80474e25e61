package interpret

import (
	"fmt"
	"strings"
)

var (
	upscaleCues    = []string{"upscale", "enhance", "increase resolution", "make bigger", "improve quality"}
	removeBGCues   = []string{"remove background", "transparent", "cut out", "isolate subject"}
	analyzeCues    = []string{"analyze", "describe", "what is", "tell me about", "extract text"}
	magnitudeCues  = []string{`"double" (2x)`, `"triple"`, `"quadruple" (4x)`, `"six times" (6x)`, `"eight times" (8x)`}
	responseSchema = `{
  "action": "GENERATE" | "ANALYZE" | "UPSCALE" | "REMOVE_BG",
  "reasoning": "brief explanation",
  "parameters": {
    "upscaleFactor": "2" | "4" | "6" | "8",
    "format": "JPG" | "PNG",
    "query": "any specific analysis query or generation prompt"
  }
}`
)

// BuildInstruction renders the routing policy handed to the text-completion
// model. The image flag is stated explicitly so the model can apply the
// no-image rule itself; the interpreter still enforces it afterwards.
func BuildInstruction(hasImage bool) string {
	sb := &strings.Builder{}
	sb.WriteString("You are an AI assistant that interprets user prompts for an image processing application.\n")
	sb.WriteString("The application has these capabilities:\n")
	sb.WriteString("1. GENERATE: Create a new image from a text description\n")
	sb.WriteString("2. ANALYZE: Extract information or describe an uploaded image\n")
	sb.WriteString("3. UPSCALE: Enhance image resolution (2x, 4x, 6x, or 8x)\n")
	sb.WriteString("4. REMOVE_BG: Remove background from an image\n\n")

	sb.WriteString("User context:\n")
	fmt.Fprintf(sb, "- Has image uploaded: %t\n\n", hasImage)

	sb.WriteString("Based on the user's prompt, determine:\n")
	sb.WriteString("1. Which action to perform (GENERATE, ANALYZE, UPSCALE, REMOVE_BG)\n")
	sb.WriteString("2. Any specific parameters (for upscale: factor 2/4/6/8, format JPG/PNG)\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("- If NO image is uploaded, the ONLY valid action is GENERATE\n")
	sb.WriteString("- If image is uploaded without specific instruction, default to ANALYZE\n")
	fmt.Fprintf(sb, "- Keywords for UPSCALE: %s\n", quoteAll(upscaleCues))
	fmt.Fprintf(sb, "- Keywords for REMOVE_BG: %s\n", quoteAll(removeBGCues))
	fmt.Fprintf(sb, "- Keywords for ANALYZE: %s\n", quoteAll(analyzeCues))
	fmt.Fprintf(sb, "- For UPSCALE, detect factor from words like %s\n\n", strings.Join(magnitudeCues, ", "))

	sb.WriteString("Respond ONLY with a valid JSON object in this exact format:\n")
	sb.WriteString(responseSchema)
	return sb.String()
}

// BuildUserPrompt wraps the raw prompt the way the instruction refers to it.
func BuildUserPrompt(prompt string) string {
	return fmt.Sprintf("User prompt: %q", prompt)
}

func quoteAll(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, ", ")
}
