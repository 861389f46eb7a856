package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/internal/stream"
)

// AssistantClient drives the assistant chat endpoint and reassembles the
// streamed reply into one logical message.
type AssistantClient struct {
	BaseURL    string
	UserID     domain.UserID
	HTTPClient *http.Client
}

type assistantDelta struct {
	Text        string `json:"text"`
	IsStreaming bool   `json:"isStreaming"`
}

type assistantDone struct {
	Message       string `json:"message"`
	FullResponse  string `json:"fullResponse"`
	HistoryLength int    `json:"historyLength"`
}

type assistantError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// StreamChat sends a prompt and consumes the reply stream. onDelta (when
// non-nil) observes each delta as it arrives. The returned text is the
// concatenation of all deltas, overridden by the terminal frame's
// fullResponse when present: the terminal value is authoritative and
// corrects any transport-level splitting artifacts.
//
// A stream that ends without a terminal frame is an error; a partial
// reply is never silently returned as complete.
func (c *AssistantClient) StreamChat(
	ctx context.Context,
	prompt string,
	clearContext bool,
	onDelta func(text string),
) (string, error) {
	body, err := json.Marshal(map[string]any{
		"prompt":       prompt,
		"clearContext": clearContext,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/message/assistant/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", string(c.UserID))

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return "", fmt.Errorf("assistant chat rejected: %s", envelope.Message)
	}

	var working strings.Builder
	var parser stream.Parser
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, ev := range parser.Feed(buf[:n]) {
				switch ev.Name {
				case "error":
					var f assistantError
					_ = json.Unmarshal(ev.Data, &f)
					return "", fmt.Errorf("assistant error %s: %s", f.ErrorCode, f.Message)
				case "done":
					var f assistantDone
					if err := json.Unmarshal(ev.Data, &f); err == nil && f.FullResponse != "" {
						return f.FullResponse, nil
					}
					return working.String(), nil
				default:
					var d assistantDelta
					if err := json.Unmarshal(ev.Data, &d); err != nil {
						// unparsable payloads are still text, never dropped
						working.Write(ev.Data)
						if onDelta != nil {
							onDelta(string(ev.Data))
						}
						continue
					}
					working.WriteString(d.Text)
					if onDelta != nil {
						onDelta(d.Text)
					}
				}
			}
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("reply stream ended without a terminal frame")
		}
	}
}
