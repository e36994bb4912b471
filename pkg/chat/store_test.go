package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemporaryUserMessage(t *testing.T) {
	t.Run("should create a temporary user message with trimmed content", func(t *testing.T) {
		msg := NewTemporaryUserMessage("alice", "  Hello World  ")

		assert.Equal(t, SenderUser, msg.SenderType)
		assert.Equal(t, "alice", msg.SenderID)
		assert.Equal(t, "Hello World", msg.Content)
		assert.True(t, msg.IsTemporary())
		assert.True(t, msg.IsUser())
		assert.False(t, msg.IsAI())
		assert.WithinDuration(t, time.Now(), msg.CreatedAt, time.Second)
	})

	t.Run("should generate unique temporary ids", func(t *testing.T) {
		a := NewTemporaryUserMessage("alice", "one")
		b := NewTemporaryUserMessage("alice", "two")
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestStore(t *testing.T) {
	t.Run("should append and snapshot messages", func(t *testing.T) {
		store := NewStore()
		assert.Equal(t, 0, store.Len())

		msg := store.AppendLocal("alice", "hi")
		assert.Equal(t, 1, store.Len())

		snapshot := store.Messages()
		require.Len(t, snapshot, 1)
		assert.Equal(t, msg.ID, snapshot[0].ID)
	})

	t.Run("snapshot should be a copy", func(t *testing.T) {
		store := NewStore()
		store.AppendLocal("alice", "hi")

		snapshot := store.Messages()
		snapshot[0].Content = "mutated"

		fresh := store.Messages()
		assert.Equal(t, "hi", fresh[0].Content)
	})

	t.Run("should roll back a temporary message by id", func(t *testing.T) {
		store := NewStore()
		msg := store.AppendLocal("alice", "oops")
		store.Append(Message{ID: "m-1", Content: "kept", SenderType: SenderAI})

		assert.True(t, store.Rollback(msg.ID))
		assert.Equal(t, 1, store.Len())

		last, ok := store.Last()
		require.True(t, ok)
		assert.Equal(t, "m-1", last.ID)
	})

	t.Run("rollback of unknown id should be a no-op", func(t *testing.T) {
		store := NewStore()
		store.AppendLocal("alice", "hi")

		assert.False(t, store.Rollback("missing"))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("ReplaceAll should discard temporary echoes wholesale", func(t *testing.T) {
		store := NewStore()
		store.AppendLocal("alice", "hi")

		canonical := []Message{
			{ID: "m-1", Content: "hi", SenderType: SenderUser},
			{ID: "m-2", Content: "hello", SenderType: SenderAI},
		}
		store.ReplaceAll(canonical)

		snapshot := store.Messages()
		require.Len(t, snapshot, 2)
		assert.Equal(t, "m-1", snapshot[0].ID)
		assert.Equal(t, "m-2", snapshot[1].ID)
		for _, msg := range snapshot {
			assert.False(t, msg.IsTemporary())
		}
	})

	t.Run("Last on empty store", func(t *testing.T) {
		store := NewStore()
		_, ok := store.Last()
		assert.False(t, ok)
	})
}
