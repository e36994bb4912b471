package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/killallgit/strand/pkg/logger"
)

// Parser decodes a raw newline-delimited JSON event stream into an
// ordered sequence of StreamEvents. Events are delivered in arrival
// order, never coalesced or reordered. A malformed frame produces a
// synthetic error event and terminates the sequence; the parser never
// panics across the consumer boundary.
type Parser struct {
	log *logger.Logger
}

// NewParser creates a stream parser
func NewParser() *Parser {
	return &Parser{
		log: logger.WithComponent("events"),
	}
}

// Parse consumes the body until a terminal event, a decode failure, or
// context cancellation, closing the returned channel afterwards. The
// body is closed when parsing finishes.
func (p *Parser) Parse(ctx context.Context, body io.ReadCloser) <-chan StreamEvent {
	out := make(chan StreamEvent, 64)
	go p.readStream(ctx, body, out)
	return out
}

func (p *Parser) readStream(ctx context.Context, body io.ReadCloser, out chan<- StreamEvent) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	frameIndex := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			p.emit(ctx, out, StreamEvent{
				Type:    EventError,
				Message: ctx.Err().Error(),
			})
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event StreamEvent
		if err := json.Unmarshal(line, &event); err != nil {
			p.log.Error("Failed to parse stream frame", "frame", frameIndex, "error", err)
			p.emit(ctx, out, StreamEvent{
				Type:    EventError,
				Message: fmt.Sprintf("malformed stream frame: %v", err),
			})
			return
		}

		if event.Type == "" {
			// Frames without a type are undecodable as events
			p.log.Error("Stream frame missing type", "frame", frameIndex)
			p.emit(ctx, out, StreamEvent{
				Type:    EventError,
				Message: "malformed stream frame: missing type",
			})
			return
		}

		if !p.emit(ctx, out, event) {
			return
		}
		frameIndex++

		if event.IsTerminal() {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		p.log.Error("Stream read error", "error", err)
		p.emit(ctx, out, StreamEvent{
			Type:    EventError,
			Message: fmt.Sprintf("stream reading error: %v", err),
		})
	}
}

// emit delivers an event unless the context is cancelled first
func (p *Parser) emit(ctx context.Context, out chan<- StreamEvent, event StreamEvent) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
