package events

// EventType discriminates the stream event union
type EventType string

const (
	EventToken     EventType = "token"
	EventToolStart EventType = "tool_start"
	EventToolEnd   EventType = "tool_end"
	EventDone      EventType = "done"
	EventError     EventType = "error"
)

// StreamEvent is one decoded frame from the backend's event stream.
// Which fields are meaningful depends on Type:
//
//	token:      Content
//	tool_start: ToolID, ToolName, Input, InsertPosition (optional)
//	tool_end:   ToolID, Status, Output, Error, ExecutionTimeMs
//	done:       no payload
//	error:      Message
type StreamEvent struct {
	Type            EventType `json:"type"`
	Content         string    `json:"content,omitempty"`
	ToolID          string    `json:"tool_id,omitempty"`
	ToolName        string    `json:"tool_name,omitempty"`
	Input           string    `json:"input,omitempty"`
	InsertPosition  *int      `json:"insert_position,omitempty"`
	Status          string    `json:"status,omitempty"`
	Output          string    `json:"output,omitempty"`
	Error           string    `json:"error,omitempty"`
	ExecutionTimeMs int64     `json:"execution_time_ms,omitempty"`
	Message         string    `json:"message,omitempty"`
}

// IsTerminal reports whether this event ends the stream session
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// Failed reports whether a tool_end event carries an explicit failure
func (e StreamEvent) Failed() bool {
	return e.Status == "failed" || e.Error != ""
}
