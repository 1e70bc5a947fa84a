package llm

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// ExtractReasoning separates embedded chain-of-thought blocks from an
// assistant text. Every well-formed <think>...</think> pair is removed from
// the content; the interiors are joined by newlines into the trace.
// Unbalanced markers are left in place as literal text.
func ExtractReasoning(text string) (trace string, content string) {
	if !strings.Contains(text, thinkOpen) {
		return "", text
	}

	var traces []string
	var builder strings.Builder
	rest := text

	for {
		start := strings.Index(rest, thinkOpen)
		if start < 0 {
			builder.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+len(thinkOpen):], thinkClose)
		if end < 0 {
			builder.WriteString(rest)
			break
		}

		builder.WriteString(rest[:start])
		interior := rest[start+len(thinkOpen) : start+len(thinkOpen)+end]
		if trimmed := strings.TrimSpace(interior); trimmed != "" {
			traces = append(traces, trimmed)
		}
		rest = rest[start+len(thinkOpen)+end+len(thinkClose):]
	}

	return strings.Join(traces, "\n"), strings.TrimSpace(builder.String())
}
