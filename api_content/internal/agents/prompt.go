package agents

import (
	"fmt"
	"strings"
)

const defaultTone = "professional"

func toneOrDefault(tone string) string {
	if tone = strings.TrimSpace(tone); tone != "" {
		return tone
	}
	return defaultTone
}

// writeRequestContext writes the task line, the optional steering fields and
// the quoted source text.
func writeRequestContext(b *strings.Builder, task string, req Request) {
	b.WriteString(task)
	b.WriteString("\n\n")
	fmt.Fprintf(b, "Tone: %s\n", toneOrDefault(req.Tone))
	if a := strings.TrimSpace(req.TargetAudience); a != "" {
		fmt.Fprintf(b, "Target audience: %s\n", a)
	}
	if ci := strings.TrimSpace(req.CustomInstructions); ci != "" {
		fmt.Fprintf(b, "Additional instructions: %s\n", ci)
	}
	fmt.Fprintf(b, "\nContent:\n\"\"\"\n%s\n\"\"\"\n\n", strings.TrimSpace(req.SourceText))
}
