package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamHandler writes raw chunks to the response exactly as given, so a
// test can split frames across transport reads on purpose.
func streamHandler(t *testing.T, chunks []string, gotBody *string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if gotBody != nil {
			var req struct {
				Prompt       string `json:"prompt"`
				ClearContext bool   `json:"clearContext"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			*gotBody = req.Prompt
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range chunks {
			_, err := w.Write([]byte(chunk))
			require.NoError(t, err)
			flusher.Flush()
		}
	}
}

func TestStreamChatReassemblesDeltas(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(streamHandler(t, []string{
		"data: {\"text\":\"Hel\",\"isStreaming\":true}\n\n",
		"data: {\"text\":\"lo\",\"isStreaming\":true}\n\n",
		"event: done\ndata: {\"message\":\"stream_end\",\"fullResponse\":\"Hello\",\"historyLength\":2}\n\n",
	}, &prompt))
	defer srv.Close()

	c := &AssistantClient{BaseURL: srv.URL, UserID: "carol"}
	var deltas []string
	full, err := c.StreamChat(context.Background(), "say hello", false, func(text string) {
		deltas = append(deltas, text)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", full)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Equal(t, "say hello", prompt)
}

func TestStreamChatHandlesSplitFrames(t *testing.T) {
	// one logical frame split mid-delimiter across two writes
	srv := httptest.NewServer(streamHandler(t, []string{
		"data: {\"text\":\"Hello\",\"isStreaming\":true}\n",
		"\nevent: done\ndata: {\"fullResponse\":\"Hello\"}\n\n",
	}, nil))
	defer srv.Close()

	c := &AssistantClient{BaseURL: srv.URL, UserID: "carol"}
	full, err := c.StreamChat(context.Background(), "hi", false, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello", full)
}

func TestStreamChatDoneWithoutFullResponseUsesWorking(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, []string{
		"data: {\"text\":\"partial\",\"isStreaming\":true}\n\n",
		"event: done\ndata: {\"message\":\"stream_end\"}\n\n",
	}, nil))
	defer srv.Close()

	c := &AssistantClient{BaseURL: srv.URL, UserID: "carol"}
	full, err := c.StreamChat(context.Background(), "hi", false, nil)
	require.NoError(t, err)
	assert.Equal(t, "partial", full)
}

func TestStreamChatUnparsablePayloadKeptAsText(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, []string{
		"data: just words\n\n",
		"event: done\ndata: {}\n\n",
	}, nil))
	defer srv.Close()

	c := &AssistantClient{BaseURL: srv.URL, UserID: "carol"}
	full, err := c.StreamChat(context.Background(), "hi", false, nil)
	require.NoError(t, err)
	assert.Equal(t, "just words", full)
}

func TestStreamChatErrorFrame(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, []string{
		"data: {\"text\":\"par\",\"isStreaming\":true}\n\n",
		"event: error\ndata: {\"message\":\"model unavailable\",\"errorCode\":\"UPSTREAM\"}\n\n",
	}, nil))
	defer srv.Close()

	c := &AssistantClient{BaseURL: srv.URL, UserID: "carol"}
	_, err := c.StreamChat(context.Background(), "hi", false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPSTREAM")
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestStreamChatTruncatedStreamIsError(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, []string{
		"data: {\"text\":\"par\",\"isStreaming\":true}\n\n",
	}, nil))
	defer srv.Close()

	c := &AssistantClient{BaseURL: srv.URL, UserID: "carol"}
	_, err := c.StreamChat(context.Background(), "hi", false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal frame")
}

func TestStreamChatRejectedRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"prompt is required"}`))
	}))
	defer srv.Close()

	c := &AssistantClient{BaseURL: srv.URL, UserID: "carol"}
	_, err := c.StreamChat(context.Background(), "", false, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "prompt is required"))
}
