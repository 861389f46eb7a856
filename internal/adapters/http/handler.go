// Package httpadapter exposes the messaging core over HTTP: JSON
// endpoints for sends and fetches, event-stream endpoints for the push
// subscription and the assistant relay.
package httpadapter

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/Shobhit-2204/PingUp/internal/app/assistant"
	"github.com/Shobhit-2204/PingUp/internal/app/delivery"
	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/internal/observability"
	"github.com/Shobhit-2204/PingUp/internal/realtime"
	"github.com/Shobhit-2204/PingUp/internal/stream"
	"github.com/Shobhit-2204/PingUp/pkg/errors"
)

// maxUploadBytes bounds a single media attachment.
const maxUploadBytes = 50 << 20

type Server struct {
	delivery  *delivery.Service
	assistant *assistant.Service
	registry  *realtime.Registry
	auth      Authenticator
}

type Options struct {
	AllowedOrigin string
}

func NewServer(
	deliverySvc *delivery.Service,
	assistantSvc *assistant.Service,
	registry *realtime.Registry,
	auth Authenticator,
	opts Options,
) http.Handler {
	s := &Server{
		delivery:  deliverySvc,
		assistant: assistantSvc,
		registry:  registry,
		auth:      auth,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)

	// /api/message/events/{userId} → push subscription
	mux.HandleFunc("/api/message/events/", s.handleSubscribe)
	mux.HandleFunc("/api/message/send", s.handleSend)
	mux.HandleFunc("/api/message/get", s.handleGetConversation)
	mux.HandleFunc("/api/message/recent", s.handleRecent)
	mux.HandleFunc("/api/message/assistant/chat", s.handleAssistantChat)
	mux.HandleFunc("/api/message/assistant/clear", s.handleAssistantClear)

	origin := opts.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return chainMiddlewares(mux, withLogging, withCORS(origin), withRequestID)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ─────────────────────────────────────────────
// Push subscription
// ─────────────────────────────────────────────

const handshakePayload = `{"message":"Connected to SSE stream"}`

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	userID := domain.UserID(strings.TrimPrefix(r.URL.Path, "/api/message/events/"))
	if userID == "" || strings.Contains(string(userID), "/") {
		http.NotFound(w, r)
		return
	}

	sw, err := stream.NewWriter(w)
	if err != nil {
		writeError(w, errors.Internal("streaming unsupported"))
		return
	}

	ch := s.registry.Register(userID)
	defer s.registry.Unregister(userID, ch)

	log := observability.LoggerFromContext(r.Context()).With("user_id", userID)
	log.Info("push subscription opened")
	defer log.Info("push subscription closed")

	if err := sw.Send(stream.Event{Data: []byte(handshakePayload)}); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch.Done():
			// replaced by a newer registration
			return
		case ev := <-ch.Events():
			if err := sw.Send(ev); err != nil {
				return
			}
		}
	}
}

// ─────────────────────────────────────────────
// Send / fetch endpoints
// ─────────────────────────────────────────────

type sendRequest struct {
	ToUserID string `json:"to_user_id"`
	Text     string `json:"text"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	caller, err := s.auth.UserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	in := delivery.SendInput{From: caller}
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, errors.InvalidArg("invalid multipart form"))
			return
		}
		in.To = domain.UserID(r.FormValue("to_user_id"))
		in.Text = r.FormValue("text")

		file, header, err := r.FormFile("image")
		switch err {
		case nil:
			defer file.Close()
			content, readErr := readLimited(file, maxUploadBytes)
			if readErr != nil {
				if errors.CodeOf(readErr) == errors.CodeUnknown {
					readErr = errors.InvalidArg("unreadable image attachment")
				}
				writeError(w, readErr)
				return
			}
			in.Media = &domain.MediaFile{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Content:     content,
			}
		case http.ErrMissingFile:
			// text-only send
		default:
			writeError(w, errors.InvalidArg("invalid image attachment"))
			return
		}
	} else {
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.InvalidArg("invalid JSON body"))
			return
		}
		in.To = domain.UserID(req.ToUserID)
		in.Text = req.Text
	}

	view, err := s.delivery.Send(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": view})
}

type getConversationRequest struct {
	ToUserID string `json:"to_user_id"`
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	caller, err := s.auth.UserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req getConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidArg("invalid JSON body"))
		return
	}

	msgs, err := s.delivery.Conversation(r.Context(), caller, domain.UserID(req.ToUserID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "messages": msgs})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	caller, err := s.auth.UserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	msgs, err := s.delivery.Recent(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "messages": msgs})
}

// ─────────────────────────────────────────────
// Assistant relay
// ─────────────────────────────────────────────

type assistantChatRequest struct {
	Prompt       string `json:"prompt"`
	ClearContext bool   `json:"clearContext"`
}

type deltaFrame struct {
	Text        string    `json:"text"`
	IsStreaming bool      `json:"isStreaming"`
	Timestamp   time.Time `json:"timestamp"`
}

type doneFrame struct {
	Message       string    `json:"message"`
	FullResponse  string    `json:"fullResponse"`
	HistoryLength int       `json:"historyLength"`
	Timestamp     time.Time `json:"timestamp"`
}

type errorFrame struct {
	Message   string    `json:"message"`
	ErrorCode string    `json:"errorCode"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleAssistantChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	caller, err := s.auth.UserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req assistantChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidArg("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, errors.InvalidArg("Missing prompt"))
		return
	}

	// from here on the response is committed to stream framing; failures
	// become error frames, never a late status change
	sw, err := stream.NewWriter(w)
	if err != nil {
		writeError(w, errors.Internal("streaming unsupported"))
		return
	}

	res, err := s.assistant.Chat(r.Context(), assistant.ChatInput{
		UserID:       caller,
		Prompt:       req.Prompt,
		ClearContext: req.ClearContext,
	}, func(text string) error {
		return sendFrame(sw, "", deltaFrame{
			Text:        text,
			IsStreaming: true,
			Timestamp:   time.Now().UTC(),
		})
	})
	if err != nil {
		// best effort: the client may already be gone
		_ = sendFrame(sw, "error", errorFrame{
			Message:   errors.MessageOf(err),
			ErrorCode: string(errors.CodeOf(err)),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	_ = sendFrame(sw, "done", doneFrame{
		Message:       "stream_end",
		FullResponse:  res.FullText,
		HistoryLength: res.HistoryLength,
		Timestamp:     time.Now().UTC(),
	})
}

func (s *Server) handleAssistantClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	caller, err := s.auth.UserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	s.assistant.Reset(caller)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Conversation history cleared",
	})
}

func sendFrame(sw *stream.Writer, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return sw.Send(stream.Event{Name: name, Data: data})
}

// ─────────────────────────────────────────────
// HTTP helpers
// ─────────────────────────────────────────────

// readLimited reads at most limit bytes and rejects a longer stream
// instead of silently truncating it.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errors.InvalidArg("image attachment exceeds the upload size limit")
	}
	return data, nil
}

func isMultipart(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "multipart/form-data"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.CodeInvalidArgument:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeUnauthenticated:
		status = http.StatusUnauthorized
	case errors.CodeUnavailable:
		status = http.StatusServiceUnavailable
	case errors.CodeUpstream:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{"success": false, "message": errors.MessageOf(err)})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
		"success": false,
		"message": "method not allowed",
	})
}
