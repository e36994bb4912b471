package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/strand/pkg/chat"
)

func TestGetMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/conversations/c1/messages", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"messages": []chat.Message{
				{ID: "m1", Content: "hi", SenderType: chat.SenderUser},
				{ID: "m2", Content: "hello", SenderType: chat.SenderAI},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	messages, err := client.GetMessages(context.Background(), "c1", 25)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m2", messages[1].ID)
	assert.True(t, messages[1].IsAI())
}

func TestPatchToolPositions(t *testing.T) {
	var captured map[string]map[string]int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/conversations/c1/messages/m2/tools/positions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	err := client.PatchToolPositions(context.Background(), "c1", "m2", map[string]int{
		"usage-1": 12,
		"usage-2": 0,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"usage-1": 12, "usage-2": 0}, captured["positions"])
}

func TestRetryOn401(t *testing.T) {
	t.Run("refreshes the token and retries once", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(Profile{Username: "alice"})
		}))
		defer server.Close()

		refreshed := false
		client := NewClient(server.URL, "stale", WithTokenRefresher(func(ctx context.Context) (string, error) {
			refreshed = true
			return "fresh", nil
		}))

		profile, err := client.GetProfile(context.Background())
		require.NoError(t, err)
		assert.True(t, refreshed)
		assert.Equal(t, 2, calls)
		assert.Equal(t, "alice", profile.Username)
	})

	t.Run("without a refresher the 401 surfaces as an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := NewClient(server.URL, "stale")
		_, err := client.GetProfile(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})
}

func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ping", body["content"])

		json.NewEncoder(w).Encode(chat.Message{ID: "m9", Content: "pong", SenderType: chat.SenderAI})
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	msg, err := client.SendMessage(context.Background(), "c1", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", msg.Content)
}

func TestGetOrCreateConversation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "agent-7", body["agent_id"])

		json.NewEncoder(w).Encode(Conversation{ID: "c42"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	conv, err := client.GetOrCreateConversation(context.Background(), "agent-7")
	require.NoError(t, err)
	assert.Equal(t, "c42", conv.ID)
}

func TestErrorBodyDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown agent"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	_, err := client.GetOrCreateConversation(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent")
}

func TestOpenStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/c1/stream", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hi", body["message"])

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte("{\"type\":\"done\"}\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	body, err := client.OpenStream(context.Background(), "c1", "Hi")
	require.NoError(t, err)
	defer body.Close()
}
