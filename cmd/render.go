package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/killallgit/strand/pkg/chat"
	"github.com/killallgit/strand/pkg/transcript"
)

var (
	userPrefixStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	aiPrefixStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	toolStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	toolFailedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

// renderTranscript writes the full visible message list
func renderTranscript(w io.Writer, messages []chat.Message, userLabel string) {
	for _, msg := range messages {
		renderMessage(w, msg, userLabel)
	}
}

// renderMessage writes one message, interleaving tool indicators at
// their insert positions
func renderMessage(w io.Writer, msg chat.Message, userLabel string) {
	prefix := aiPrefixStyle.Render("ai")
	if msg.IsUser() {
		label := userLabel
		if label == "" {
			label = "you"
		}
		prefix = userPrefixStyle.Render(label)
	}

	segments := transcript.Assemble(msg.Content, transcript.FromUsages(msg.ToolUsages))
	fmt.Fprintf(w, "%s: %s\n", prefix, renderSegments(segments))
}

// renderSegments flattens assembled segments into a single line-safe
// string with styled tool indicators
func renderSegments(segments []transcript.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		switch seg.Kind {
		case transcript.SegmentText:
			sb.WriteString(seg.Text)
		case transcript.SegmentTool:
			sb.WriteString(renderToolIndicator(seg.Tool))
		}
	}
	return sb.String()
}

// renderToolIndicator formats one tool call widget
func renderToolIndicator(call transcript.ToolCall) string {
	style := toolStyle
	if call.Status == chat.ToolStatusFailed {
		style = toolFailedStyle
	}
	return style.Render(fmt.Sprintf("[%s: %s]", call.ToolName, call.Status))
}

// renderNotice writes a dim informational line
func renderNotice(w io.Writer, text string) {
	fmt.Fprintln(w, noticeStyle.Render(text))
}
