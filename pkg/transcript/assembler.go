package transcript

import (
	"sort"

	"github.com/killallgit/strand/pkg/chat"
)

// SegmentKind discriminates renderable transcript segments
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentTool
)

// Segment is one renderable unit of an assembled transcript: either a
// run of message text or a tool indicator.
type Segment struct {
	Kind SegmentKind
	Text string
	Tool ToolCall
}

// Assemble interleaves message content with tool indicators at their
// insert positions. Calls are ordered by position ascending with ties
// keeping arrival order. Positions outside the content are clamped to
// its boundaries. When no call carries a position the content renders
// as a single text segment followed by all indicators in arrival order.
func Assemble(content string, calls []ToolCall) []Segment {
	if len(calls) == 0 {
		if content == "" {
			return nil
		}
		return []Segment{{Kind: SegmentText, Text: content}}
	}

	positioned := false
	for _, call := range calls {
		if call.InsertPosition != nil {
			positioned = true
			break
		}
	}
	if !positioned {
		segments := make([]Segment, 0, len(calls)+1)
		if content != "" {
			segments = append(segments, Segment{Kind: SegmentText, Text: content})
		}
		for _, call := range calls {
			segments = append(segments, Segment{Kind: SegmentTool, Tool: call})
		}
		return segments
	}

	sorted := make([]ToolCall, len(calls))
	copy(sorted, calls)
	sort.SliceStable(sorted, func(i, j int) bool {
		return effectivePosition(sorted[i], len(content)) < effectivePosition(sorted[j], len(content))
	})

	segments := make([]Segment, 0, 2*len(sorted)+1)
	lastCut := 0
	for _, call := range sorted {
		pos := effectivePosition(call, len(content))
		if pos > lastCut {
			segments = append(segments, Segment{Kind: SegmentText, Text: content[lastCut:pos]})
			lastCut = pos
		}
		segments = append(segments, Segment{Kind: SegmentTool, Tool: call})
	}
	if lastCut < len(content) {
		segments = append(segments, Segment{Kind: SegmentText, Text: content[lastCut:]})
	}

	return segments
}

// effectivePosition clamps a call's insert position into the content.
// Calls without a position among positioned ones sort to the end.
func effectivePosition(call ToolCall, contentLen int) int {
	if call.InsertPosition == nil {
		return contentLen
	}
	pos := *call.InsertPosition
	if pos < 0 {
		return 0
	}
	if pos > contentLen {
		return contentLen
	}
	return pos
}

// FromUsages converts persisted tool usages into assembler input so
// canonical messages render through the same path as streamed ones.
func FromUsages(usages []chat.ToolUsage) []ToolCall {
	calls := make([]ToolCall, 0, len(usages))
	for _, u := range usages {
		call := ToolCall{
			ToolID:          u.ID,
			ToolName:        u.ToolName,
			Status:          u.Status,
			Input:           u.Input,
			Output:          u.Output,
			Error:           u.Error,
			ExecutionTimeMs: u.ExecutionTimeMs,
		}
		if u.InsertPosition != nil {
			pos := *u.InsertPosition
			call.InsertPosition = &pos
		}
		calls = append(calls, call)
	}
	return calls
}
