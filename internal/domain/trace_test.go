package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrace_HasUsableTranscript(t *testing.T) {
	tests := []struct {
		name   string
		turns  []TranscriptTurn
		usable bool
	}{
		{
			name:   "no_turns",
			turns:  nil,
			usable: false,
		},
		{
			name: "whitespace_only_turns",
			turns: []TranscriptTurn{
				{TurnID: 1, UserText: "   ", AgentText: "\n"},
			},
			usable: false,
		},
		{
			name: "user_text_only",
			turns: []TranscriptTurn{
				{TurnID: 1, UserText: "hello"},
			},
			usable: true,
		},
		{
			name: "agent_text_in_later_turn",
			turns: []TranscriptTurn{
				{TurnID: 1},
				{TurnID: 2, AgentText: "how can I help?"},
			},
			usable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trace := &Trace{ID: "t1", AgentID: "a1", Transcript: tt.turns, CreatedAt: time.Now()}
			assert.Equal(t, tt.usable, trace.HasUsableTranscript())
		})
	}
}

func TestTrace_FlattenTranscript(t *testing.T) {
	trace := &Trace{
		ID:      "t1",
		AgentID: "a1",
		Transcript: []TranscriptTurn{
			{TurnID: 1, UserText: "hi there"},
			{TurnID: 2, AgentText: "hello, how can I help?"},
			{TurnID: 3}, // empty turn dropped
			{TurnID: 4, UserText: "cancel my order", AgentText: "done"},
		},
		CreatedAt: time.Now(),
	}

	want := "User: hi there\n" +
		"Agent: hello, how can I help?\n" +
		"User: cancel my order\n" +
		"Agent: done"
	assert.Equal(t, want, trace.FlattenTranscript())
}

func TestIsSuccessfulStatus(t *testing.T) {
	assert.True(t, IsSuccessfulStatus("completed"))
	assert.True(t, IsSuccessfulStatus("Success"))
	assert.True(t, IsSuccessfulStatus("ended"))
	assert.False(t, IsSuccessfulStatus("failed"))
	assert.False(t, IsSuccessfulStatus(""))
}
