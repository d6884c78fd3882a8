package client

import (
	"strings"

	"GoToolCall/pkg/types"
)

// maxToolCalls bounds the slot index a fragment may address. A larger index
// would force the slot slice to grow to that size before any id arrives.
const maxToolCalls = 128

// Accumulator merges streamed deltas into a single assistant message.
//
// Tool-call fragments are addressed by their index, not their id: the id can
// arrive after the first fragment for that index. Slots are grown with empty
// placeholders up to maxToolCalls, and placeholders that never received an
// id are dropped when the message is built.
type Accumulator struct {
	content   strings.Builder
	toolCalls []types.ToolCall
	rejected  int
	onContent func(string)
}

// NewAccumulator returns an accumulator that forwards each content fragment
// to onContent, which may be nil.
func NewAccumulator(onContent func(string)) *Accumulator {
	return &Accumulator{onContent: onContent}
}

// Add merges the first choice of chunk.
func (a *Accumulator) Add(chunk types.StreamChunk) {
	if len(chunk.Choices) == 0 {
		return
	}
	a.AddDelta(chunk.Choices[0].Delta)
}

// AddDelta appends content and merges tool-call fragments into their slots.
// Fragments with an index outside [0, maxToolCalls) are counted and ignored.
func (a *Accumulator) AddDelta(delta types.Delta) {
	if delta.Content != "" {
		a.content.WriteString(delta.Content)
		if a.onContent != nil {
			a.onContent(delta.Content)
		}
	}
	for _, fragment := range delta.ToolCalls {
		if fragment.Index < 0 || fragment.Index >= maxToolCalls {
			a.rejected++
			continue
		}
		for len(a.toolCalls) <= fragment.Index {
			a.toolCalls = append(a.toolCalls, types.ToolCall{})
		}
		call := &a.toolCalls[fragment.Index]
		// Some servers repeat the full id on every fragment, so a fragment
		// equal to the id so far is treated as a repeat rather than a piece.
		// An id genuinely split into identical halves ("ab", "ab") collapses
		// to one half; no server is known to split ids that way.
		if fragment.ID != "" && fragment.ID != call.ID {
			call.ID += fragment.ID
		}
		call.Function.Name += fragment.Function.Name
		call.Function.Arguments += fragment.Function.Arguments
	}
}

// Content returns the text accumulated so far
func (a *Accumulator) Content() string {
	return a.content.String()
}

// Message builds the assistant message. ToolCalls is nil when no slot
// received an id.
func (a *Accumulator) Message() types.Message {
	msg := types.Message{
		Role:    types.RoleAssistant,
		Content: a.content.String(),
	}
	var calls []types.ToolCall
	for _, call := range a.toolCalls {
		if call.ID == "" {
			continue
		}
		call.Type = types.ToolTypeFunction
		calls = append(calls, call)
	}
	msg.ToolCalls = calls
	return msg
}

// Dropped reports how many slots have no id and would be discarded
func (a *Accumulator) Dropped() int {
	n := 0
	for _, call := range a.toolCalls {
		if call.ID == "" {
			n++
		}
	}
	return n
}

// Rejected reports how many fragments carried an out-of-range index
func (a *Accumulator) Rejected() int {
	return a.rejected
}
