package session

import (
	"context"
	"fmt"
	"time"

	"github.com/killallgit/strand/pkg/api"
	"github.com/killallgit/strand/pkg/chat"
	"github.com/killallgit/strand/pkg/logger"
)

// reconciler maps client-observed tool positions onto the server's
// durable tool usage records after a stream completes. The whole pass
// is best-effort: a patch failure is swallowed and never blocks the
// canonical message from replacing the streamed one.
type reconciler struct {
	client     *api.Client
	delay      time.Duration
	attempts   int
	fetchLimit int
	log        *logger.Logger
}

func newReconciler(client *api.Client) *reconciler {
	return &reconciler{
		client:     client,
		delay:      500 * time.Millisecond,
		attempts:   3,
		fetchLimit: 50,
		log:        logger.WithComponent("reconcile"),
	}
}

// run fetches the canonical message list, patches tool positions onto
// the newest AI message carrying tool usages, and replaces the visible
// list. Returns an error only when no fetch attempt succeeded, in which
// case the caller keeps the streamed transcript.
func (r *reconciler) run(ctx context.Context, conversationID string, positions map[string]int, store *chat.Store) error {
	canonical, err := r.awaitCanonical(ctx, conversationID)
	if err != nil {
		return err
	}

	if target, ok := latestAIWithTools(canonical); ok && len(positions) > 0 {
		patch := stagePatch(target, positions)
		if len(patch) > 0 {
			if err := r.client.PatchToolPositions(ctx, conversationID, target.ID, patch); err != nil {
				// Best-effort: the user already has a usable transcript
				r.log.Warn("Tool position patch failed", "conversation", conversationID,
					"message", target.ID, "error", err)
			} else {
				r.log.Debug("Tool positions patched", "conversation", conversationID,
					"message", target.ID, "count", len(patch))
			}
		}
	}

	store.ReplaceAll(canonical)
	return nil
}

// awaitCanonical polls until the just-completed AI message shows up in
// the canonical list. The backend's persistence may lag the done event,
// so the first read waits out a short grace period; a bounded number of
// attempts keeps this from blocking forever.
func (r *reconciler) awaitCanonical(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var lastErr error
	var lastFetch []chat.Message
	fetched := false

	for attempt := 0; attempt < r.attempts; attempt++ {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			if fetched {
				return lastFetch, nil
			}
			return nil, ctx.Err()
		}

		messages, err := r.client.GetMessages(ctx, conversationID, r.fetchLimit)
		if err != nil {
			r.log.Warn("Canonical fetch failed", "conversation", conversationID,
				"attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		fetched = true
		lastFetch = messages

		if len(messages) > 0 && messages[len(messages)-1].IsAI() {
			return messages, nil
		}
		r.log.Debug("Canonical AI message not yet persisted", "conversation", conversationID,
			"attempt", attempt+1)
	}

	if fetched {
		// The persisted message never appeared; the freshest list we
		// saw is still better than nothing
		return lastFetch, nil
	}
	return nil, fmt.Errorf("canonical fetch never succeeded: %w", lastErr)
}

// latestAIWithTools finds the most recent AI message carrying tool
// usages
func latestAIWithTools(messages []chat.Message) (chat.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsAI() && messages[i].HasToolUsages() {
			return messages[i], true
		}
	}
	return chat.Message{}, false
}

// stagePatch correlates persisted tool usages with transient positions
// by tool name. Known weakness: a tool invoked twice in one response
// collapses to a single position (last writer wins).
func stagePatch(target chat.Message, positions map[string]int) map[string]int {
	patch := make(map[string]int)
	for _, usage := range target.ToolUsages {
		if pos, ok := positions[usage.ToolName]; ok {
			patch[usage.ID] = pos
		}
	}
	return patch
}
