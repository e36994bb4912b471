package transcript

import (
	"github.com/killallgit/strand/pkg/chat"
	"github.com/killallgit/strand/pkg/events"
	"github.com/killallgit/strand/pkg/logger"
)

// ToolCall is the client-only, stream-scoped record of one tool
// invocation. Its ToolID lives in a different identity space than the
// server's persisted ToolUsage id; the two are never merged.
type ToolCall struct {
	ToolID          string
	ToolName        string
	Status          string
	Input           string
	Output          string
	Error           string
	ExecutionTimeMs int64
	InsertPosition  *int
}

// Tracker maintains the in-flight tool calls for one stream session,
// keyed by the transient tool id. Start transitions are idempotent and
// an end for an unknown id is a logged no-op, so a noisy or replaying
// transport cannot make the transcript unrenderable.
type Tracker struct {
	calls map[string]*ToolCall
	order []string
	log   *logger.Logger
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		calls: make(map[string]*ToolCall),
		log:   logger.WithComponent("tracker"),
	}
}

// OnStart records a tool_start event. A duplicate start for a known
// tool id refreshes name, input, and status without creating a second
// entry or moving the insert position. For a new entry the insert
// position comes from the event when the backend supplies one, else
// from fallbackOffset (the accumulator's current length).
func (t *Tracker) OnStart(ev events.StreamEvent, fallbackOffset int) {
	if existing, ok := t.calls[ev.ToolID]; ok {
		t.log.Debug("Duplicate tool_start", "tool_id", ev.ToolID, "tool_name", ev.ToolName)
		existing.ToolName = ev.ToolName
		existing.Input = ev.Input
		existing.Status = chat.ToolStatusRunning
		return
	}

	call := &ToolCall{
		ToolID:   ev.ToolID,
		ToolName: ev.ToolName,
		Status:   chat.ToolStatusRunning,
		Input:    ev.Input,
	}
	if ev.InsertPosition != nil {
		pos := *ev.InsertPosition
		call.InsertPosition = &pos
	} else {
		pos := fallbackOffset
		call.InsertPosition = &pos
	}

	t.calls[ev.ToolID] = call
	t.order = append(t.order, ev.ToolID)
}

// OnEnd records a tool_end event. Unknown tool ids are ignored. The
// insert position captured at start never changes here.
func (t *Tracker) OnEnd(ev events.StreamEvent) {
	call, ok := t.calls[ev.ToolID]
	if !ok {
		t.log.Warn("tool_end for unknown tool", "tool_id", ev.ToolID)
		return
	}

	if ev.Failed() {
		call.Status = chat.ToolStatusFailed
	} else {
		call.Status = chat.ToolStatusCompleted
	}
	call.Output = ev.Output
	call.Error = ev.Error
	call.ExecutionTimeMs = ev.ExecutionTimeMs
}

// Calls returns copies of the tracked calls in arrival order
func (t *Tracker) Calls() []ToolCall {
	result := make([]ToolCall, 0, len(t.order))
	for _, id := range t.order {
		result = append(result, *t.calls[id])
	}
	return result
}

// Len returns the number of tracked calls
func (t *Tracker) Len() int {
	return len(t.order)
}

// PositionsByName builds the tool_name to insert position map used to
// correlate transient calls with persisted tool usages. When several
// calls share a name the last arrival wins.
func (t *Tracker) PositionsByName() map[string]int {
	positions := make(map[string]int)
	for _, id := range t.order {
		call := t.calls[id]
		if call.InsertPosition != nil {
			positions[call.ToolName] = *call.InsertPosition
		}
	}
	return positions
}

// Reset discards all tracked calls for a new stream session
func (t *Tracker) Reset() {
	t.calls = make(map[string]*ToolCall)
	t.order = t.order[:0]
}
