package domain

import (
	"strings"
	"time"
)

// Default successful-status set used by filtered selection when no explicit
// status filter is supplied.
var successfulStatuses = map[string]struct{}{
	"completed": {},
	"success":   {},
	"ended":     {},
}

// IsSuccessfulStatus reports whether a call status belongs to the default
// successful-status set.
func IsSuccessfulStatus(status string) bool {
	_, ok := successfulStatuses[strings.ToLower(status)]
	return ok
}

// TranscriptTurn is one utterance turn of a recorded conversation. Either
// side of the turn may be empty.
type TranscriptTurn struct {
	TurnID    int       `json:"turn_id"`
	UserText  string    `json:"user_text,omitempty"`
	AgentText string    `json:"agent_text,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// IsEmpty reports whether the turn carries no usable text on either side.
func (t TranscriptTurn) IsEmpty() bool {
	return strings.TrimSpace(t.UserText) == "" && strings.TrimSpace(t.AgentText) == ""
}

// Trace is a recorded conversation session with its transcript and metadata.
// The processor only ever reads traces; it never mutates them.
type Trace struct {
	ID      string `json:"id" validate:"required"`
	AgentID string `json:"agent_id" validate:"required"`

	// CallerID identifies the remote party, when known.
	CallerID string `json:"caller_id,omitempty"`

	// Transcript is the ordered list of utterance turns.
	Transcript []TranscriptTurn `json:"transcript"`

	// DurationSeconds is the recorded call duration.
	DurationSeconds float64 `json:"duration_seconds" validate:"min=0"`

	// Status is the call completion/status label, e.g. "completed".
	Status string `json:"status"`

	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// HasUsableTranscript reports whether at least one turn carries non-empty
// user or agent text. Traces failing this check are excluded from
// evaluation rather than failed.
func (t *Trace) HasUsableTranscript() bool {
	for _, turn := range t.Transcript {
		if !turn.IsEmpty() {
			return true
		}
	}
	return false
}

// FlattenTranscript renders the transcript as conversation text with
// "User:" and "Agent:" line prefixes, skipping empty turns. The result is
// what the template engine substitutes for {{transcript}}.
func (t *Trace) FlattenTranscript() string {
	var b strings.Builder
	for _, turn := range t.Transcript {
		if user := strings.TrimSpace(turn.UserText); user != "" {
			b.WriteString("User: ")
			b.WriteString(user)
			b.WriteByte('\n')
		}
		if agent := strings.TrimSpace(turn.AgentText); agent != "" {
			b.WriteString("Agent: ")
			b.WriteString(agent)
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Validate checks the trace against its structural constraints.
func (t *Trace) Validate() error { return validate.Struct(t) }
