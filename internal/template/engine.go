// Package template renders scoring prompts from rubric templates and
// per-trace variables. Placeholders use {{name}} syntax; the transcript
// variable is mandatory and templates lacking it are auto-repaired rather
// than failed, a deliberate leniency policy surfaced as a warning event.
package template

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// TranscriptVar is the mandatory placeholder every rubric must reference.
const TranscriptVar = "transcript"

// transcriptSection is appended to templates that never reference
// {{transcript}}, so the judge always sees the conversation.
const transcriptSection = "\n\nConversation Transcript:\n{{transcript}}\n\nPlease evaluate the above."

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Engine renders scoring prompts. It is stateless apart from its logger and
// safe for concurrent use.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a template engine. A nil logger falls back to the
// default slog logger.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// EnsureTranscript checks that the template references {{transcript}} and
// repairs it when missing by appending a synthesized transcript section.
// The repair is returned explicitly so callers and tests can observe it
// without diffing strings.
func (e *Engine) EnsureTranscript(templateText string) (final string, repaired bool) {
	for _, name := range placeholderPattern.FindAllStringSubmatch(templateText, -1) {
		if name[1] == TranscriptVar {
			return templateText, false
		}
	}
	return templateText + transcriptSection, true
}

// Render substitutes {{name}} placeholders with string-coerced variable
// values. Unknown placeholders are left verbatim. Variables must include
// the transcript; Render applies EnsureTranscript first and logs a warning
// when a repair fires.
func (e *Engine) Render(templateText string, variables map[string]any) (string, bool) {
	final, repaired := e.EnsureTranscript(templateText)
	if repaired {
		e.logger.Warn("template does not reference the transcript, appending transcript section",
			"placeholder", TranscriptVar)
	}

	rendered := placeholderPattern.ReplaceAllStringFunc(final, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := variables[name]
		if !ok {
			return match
		}
		return coerce(value)
	})

	return rendered, repaired
}

// HasConversationMarkers reports whether the rendered prompt contains
// user/agent line prefixes, catching accidentally empty transcripts
// upstream of the LLM call.
func HasConversationMarkers(rendered string) bool {
	return strings.Contains(rendered, "User: ") || strings.Contains(rendered, "Agent: ")
}

// coerce converts a variable value to its string form.
func coerce(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", x), "0"), ".")
	default:
		return fmt.Sprintf("%v", x)
	}
}
