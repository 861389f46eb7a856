package httpadapter_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shobhit-2204/PingUp/internal/adapters/directory"
	httpadapter "github.com/Shobhit-2204/PingUp/internal/adapters/http"
	"github.com/Shobhit-2204/PingUp/internal/adapters/llm"
	"github.com/Shobhit-2204/PingUp/internal/adapters/media"
	"github.com/Shobhit-2204/PingUp/internal/adapters/storage/memory"
	"github.com/Shobhit-2204/PingUp/internal/app/assistant"
	"github.com/Shobhit-2204/PingUp/internal/app/delivery"
	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/internal/realtime"
	apperrors "github.com/Shobhit-2204/PingUp/pkg/errors"
)

func newTestHandler(t *testing.T, gen *llm.MockGenerator) http.Handler {
	t.Helper()

	dir := directory.NewMemoryDirectory()
	dir.Put(domain.Profile{ID: "alice", Username: "alice", FullName: "Alice A"})
	dir.Put(domain.Profile{ID: "bob", Username: "bob", FullName: "Bob B"})

	registry := realtime.NewRegistry()
	deliverySvc := delivery.NewService(memory.NewMessageStore(), registry, media.NewMemoryUploader(), dir)
	assistantSvc := assistant.NewService(gen)

	return httpadapter.NewServer(deliverySvc, assistantSvc, registry,
		httpadapter.HeaderAuthenticator{}, httpadapter.Options{})
}

func postJSON(t *testing.T, handler http.Handler, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t, llm.NewMockGenerator())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSendRequiresAuth(t *testing.T) {
	handler := newTestHandler(t, llm.NewMockGenerator())
	w := postJSON(t, handler, "/api/message/send", "", `{"to_user_id":"bob","text":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSendValidationError(t *testing.T) {
	handler := newTestHandler(t, llm.NewMockGenerator())
	w := postJSON(t, handler, "/api/message/send", "alice", `{"to_user_id":"bob"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Message)
}

func TestSendThenFetchMarksSeen(t *testing.T) {
	handler := newTestHandler(t, llm.NewMockGenerator())

	w := postJSON(t, handler, "/api/message/send", "alice", `{"to_user_id":"bob","text":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var sendResp struct {
		Success bool                 `json:"success"`
		Message delivery.MessageView `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sendResp))
	assert.True(t, sendResp.Success)
	assert.Equal(t, "hi", sendResp.Message.Text)
	assert.False(t, sendResp.Message.Seen)
	assert.Equal(t, "Alice A", sendResp.Message.FromUser.FullName)

	w = postJSON(t, handler, "/api/message/get", "bob", `{"to_user_id":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var getResp struct {
		Success  bool                    `json:"success"`
		Messages []*delivery.MessageView `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &getResp))
	require.Len(t, getResp.Messages, 1)
	assert.Equal(t, sendResp.Message.ID, getResp.Messages[0].ID)
	assert.True(t, getResp.Messages[0].Seen)
}

func TestSendMultipartWithImage(t *testing.T) {
	handler := newTestHandler(t, llm.NewMockGenerator())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("to_user_id", "bob"))
	part, err := mw.CreateFormFile("image", "cat.png")
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/message/send", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", "alice")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message delivery.MessageView `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "image", resp.Message.MessageType)
	assert.Contains(t, resp.Message.MediaURL, "cat.png")
}

func TestRecentEndpoint(t *testing.T) {
	handler := newTestHandler(t, llm.NewMockGenerator())

	for _, text := range []string{"one", "two"} {
		w := postJSON(t, handler, "/api/message/send", "alice", `{"to_user_id":"bob","text":"`+text+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/message/recent", nil)
	req.Header.Set("X-User-ID", "bob")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []*delivery.MessageView `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "two", resp.Messages[0].Text)
}

func TestSubscribeReceivesLivePush(t *testing.T) {
	handler := newTestHandler(t, llm.NewMockGenerator())
	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/message/events/bob", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readFrame := func() []string {
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			if line == "" {
				return lines
			}
			lines = append(lines, line)
		}
	}

	// handshake first
	handshake := readFrame()
	require.Len(t, handshake, 1)
	assert.Contains(t, handshake[0], "Connected to SSE stream")

	w := postJSON(t, handler, "/api/message/send", "alice", `{"to_user_id":"bob","text":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)

	frame := readFrame()
	require.Len(t, frame, 1)
	require.True(t, strings.HasPrefix(frame[0], "data: "))

	var view delivery.MessageView
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame[0], "data: ")), &view))
	assert.Equal(t, "hi", view.Text)
	assert.False(t, view.Seen)
	assert.Equal(t, "alice", view.FromUser.ID)
}

func TestAssistantChatStreamsFrames(t *testing.T) {
	gen := &llm.MockGenerator{Chunks: []string{"Hel", "lo"}}
	handler := newTestHandler(t, gen)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/message/assistant/chat",
		strings.NewReader(`{"prompt":"hi"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "carol")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw bytes.Buffer
	_, err = raw.ReadFrom(resp.Body)
	require.NoError(t, err)
	body := raw.String()

	assert.Contains(t, body, `"text":"Hel"`)
	assert.Contains(t, body, `"isStreaming":true`)
	assert.Contains(t, body, "event: done")
	assert.Contains(t, body, `"fullResponse":"Hello"`)
	assert.Contains(t, body, `"historyLength":2`)
}

func TestAssistantChatMissingPrompt(t *testing.T) {
	handler := newTestHandler(t, llm.NewMockGenerator())
	w := postJSON(t, handler, "/api/message/assistant/chat", "carol", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssistantUpstreamErrorBecomesErrorFrame(t *testing.T) {
	gen := &llm.MockGenerator{
		Chunks:    []string{"partial"},
		Err:       apperrors.Upstream("model stream failed"),
		FailAfter: 1,
	}
	handler := newTestHandler(t, gen)

	w := postJSON(t, handler, "/api/message/assistant/chat", "carol", `{"prompt":"hi"}`)
	// the stream committed to 200 before the failure
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, `"errorCode":"UPSTREAM"`)
}

func TestAssistantClearEndpoint(t *testing.T) {
	gen := &llm.MockGenerator{Chunks: []string{"reply"}}
	handler := newTestHandler(t, gen)

	w := postJSON(t, handler, "/api/message/assistant/chat", "carol", `{"prompt":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, handler, "/api/message/assistant/clear", "carol", `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	// next exchange starts from an empty history
	w = postJSON(t, handler, "/api/message/assistant/chat", "carol", `{"prompt":"again"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"historyLength":2`)
}
