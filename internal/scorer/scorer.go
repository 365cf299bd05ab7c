// Package scorer extracts structured scores from free-form judge output.
// Parsing is best-effort and never fails: structured JSON is preferred, a
// regex score pattern is the fallback, and unparsable text degrades to a
// raw-response wrap with no numeric score. Job liveness must not depend on
// LLM output discipline, so malformed input lowers confidence instead of
// failing the evaluation unit.
package scorer

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Strategy tags which extraction path produced a ParseOutcome, so callers
// and tests can assert on it instead of inferring from the payload shape.
type Strategy string

const (
	// StrategyStructuredJSON means a JSON object was found and parsed.
	StrategyStructuredJSON Strategy = "structured_json"

	// StrategyRegexScore means a "score: <number>" pattern was matched.
	StrategyRegexScore Strategy = "regex_score"

	// StrategyRawFallback means nothing usable was found; the raw text is
	// wrapped and the overall score is zero.
	StrategyRawFallback Strategy = "raw_fallback"
)

// RawResponseKey is the field name the raw fallback wraps the input under.
const RawResponseKey = "raw_response"

// overallScoreFields is probed in order when extracting the overall score.
var overallScoreFields = []string{"score", "overall_score", "quality_score", "rating", "evaluation_score"}

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	scorePattern      = regexp.MustCompile(`(?i)\bscore\b\s*[:=]?\s*(-?\d+(?:\.\d+)?)`)
	reasoningPattern  = regexp.MustCompile(`(?im)^\s*(?:\*\*)?(?:reasoning|explanation|analysis)(?:\*\*)?\s*[:=]\s*(.+)$`)
	sentenceEnd       = regexp.MustCompile(`[.!?]`)
)

const reasoningFallbackLimit = 200

// ParseOutcome is the structured result of parsing one judge response.
type ParseOutcome struct {
	// Scores holds every extracted field keyed by name. Under the raw
	// fallback it contains a single RawResponseKey entry.
	Scores map[string]any `json:"scores"`

	// OverallScore is the primary numeric score, zero when absent.
	OverallScore float64 `json:"overall_score"`

	// Reasoning is the judge's explanation, best-effort extracted.
	Reasoning string `json:"reasoning"`

	// Strategy records which extraction path fired.
	Strategy Strategy `json:"strategy"`
}

// Parse extracts a structured score from raw judge output. It never
// returns an error; the Strategy field records how far extraction got.
func Parse(raw string) ParseOutcome {
	if scores, ok := parseStructured(raw); ok {
		return ParseOutcome{
			Scores:       scores,
			OverallScore: extractOverall(scores),
			Reasoning:    extractReasoning(raw, scores),
			Strategy:     StrategyStructuredJSON,
		}
	}

	if m := scorePattern.FindStringSubmatch(raw); m != nil {
		score, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return ParseOutcome{
				Scores:       map[string]any{"score": score},
				OverallScore: score,
				Reasoning:    extractReasoning(raw, nil),
				Strategy:     StrategyRegexScore,
			}
		}
	}

	return ParseOutcome{
		Scores:    map[string]any{RawResponseKey: raw},
		Reasoning: extractReasoning(raw, nil),
		Strategy:  StrategyRawFallback,
	}
}

// parseStructured looks for a fenced JSON block first, then the first
// balanced top-level object, and parses it into a score map. An object
// that parses but contains nothing is not considered usable.
func parseStructured(raw string) (map[string]any, bool) {
	candidates := []string{}

	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	if obj := firstJSONObject(raw); obj != "" {
		candidates = append(candidates, obj)
	}

	for _, candidate := range candidates {
		var scores map[string]any
		if err := json.Unmarshal([]byte(candidate), &scores); err != nil {
			continue
		}
		if len(scores) == 0 {
			continue
		}
		return scores, true
	}

	return nil, false
}

// firstJSONObject returns the first balanced top-level {...} in the text,
// or empty when none closes. Brace tracking is string-aware so braces
// inside JSON string values do not break the balance.
func firstJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

// extractOverall probes the known score field names in order. Numeric
// strings and booleans are coerced; absence of every field yields zero.
func extractOverall(scores map[string]any) float64 {
	for _, field := range overallScoreFields {
		value, ok := scores[field]
		if !ok {
			continue
		}
		if score, ok := toFloat(value); ok {
			return score
		}
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// extractReasoning pulls the judge's explanation. A structured "reasoning"
// field wins; otherwise a reasoning/explanation/analysis prefixed line;
// otherwise the first sentence, capped at 200 characters.
func extractReasoning(raw string, scores map[string]any) string {
	if scores != nil {
		if r, ok := scores["reasoning"].(string); ok && r != "" {
			return r
		}
		if r, ok := scores["explanation"].(string); ok && r != "" {
			return r
		}
	}

	if m := reasoningPattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	if loc := sentenceEnd.FindStringIndex(text); loc != nil {
		sentence := strings.TrimSpace(text[:loc[1]])
		if len(sentence) <= reasoningFallbackLimit {
			return sentence
		}
	}

	if len(text) > reasoningFallbackLimit {
		return text[:reasoningFallbackLimit]
	}
	return text
}
