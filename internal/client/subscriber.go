// Package client consumes the push subscription and the assistant reply
// stream on behalf of a connected user: it demultiplexes inbound frames
// into live conversation updates and passive notifications, and
// reassembles streamed assistant replies into single messages.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/internal/stream"
)

// Message is the client-side view of one direct message as it appears on
// the wire.
type Message struct {
	ID          string    `json:"id"`
	FromUser    Profile   `json:"from_user"`
	ToUser      Profile   `json:"to_user"`
	Text        string    `json:"text"`
	MediaURL    string    `json:"media_url"`
	MessageType string    `json:"message_type"`
	Seen        bool      `json:"seen"`
	CreatedAt   time.Time `json:"created_at"`
}

type Profile struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	ProfilePicture string `json:"profile_picture"`
}

// Notification is a passive, dismissible surfacing of a message that does
// not belong to the open conversation. Link deep-links to the sender's
// conversation.
type Notification struct {
	Message Message
	Link    string
}

// Subscriber maintains one push subscription for a user and routes every
// inbound message either into the active conversation or out as a
// notification.
type Subscriber struct {
	baseURL    string
	userID     domain.UserID
	httpClient *http.Client

	// OnConversation receives messages for the currently open
	// conversation; OnNotification everything else.
	OnConversation func(Message)
	OnNotification func(Notification)

	mu           sync.Mutex
	active       domain.UserID
	seen         map[string]struct{}
	conversation []Message
}

func NewSubscriber(baseURL string, userID domain.UserID) *Subscriber {
	return &Subscriber{
		baseURL:    baseURL,
		userID:     userID,
		httpClient: &http.Client{},
		seen:       make(map[string]struct{}),
	}
}

// Listen opens the push subscription and dispatches frames until the
// context is cancelled or the server closes the stream. A named error
// frame terminates the subscription with an error.
func (s *Subscriber) Listen(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/message/events/%s", s.baseURL, s.userID), nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push subscription rejected: %s", resp.Status)
	}

	var parser stream.Parser
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			for _, ev := range parser.Feed(buf[:n]) {
				if err := s.handle(ev); err != nil {
					return err
				}
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil // server closed the stream
		}
	}
}

func (s *Subscriber) handle(ev stream.Event) error {
	if ev.Name == "error" {
		var f struct {
			Message   string `json:"message"`
			ErrorCode string `json:"errorCode"`
		}
		_ = json.Unmarshal(ev.Data, &f)
		return fmt.Errorf("push channel error %s: %s", f.ErrorCode, f.Message)
	}

	var msg Message
	if err := json.Unmarshal(ev.Data, &msg); err != nil {
		return nil // not a message frame; ignore
	}
	// the handshake and other control payloads have no participants
	if msg.FromUser.ID == "" || msg.ToUser.ID == "" {
		return nil
	}

	s.route(msg)
	return nil
}

func (s *Subscriber) route(msg Message) {
	s.mu.Lock()
	if _, dup := s.seen[msg.ID]; dup {
		s.mu.Unlock()
		return
	}
	s.seen[msg.ID] = struct{}{}

	live := s.active != "" && domain.UserID(msg.FromUser.ID) == s.active
	if live {
		s.conversation = append(s.conversation, msg)
		sortOldestFirst(s.conversation)
	}
	onConv, onNotify := s.OnConversation, s.OnNotification
	s.mu.Unlock()

	if live {
		if onConv != nil {
			onConv(msg)
		}
		return
	}
	if onNotify != nil {
		onNotify(Notification{
			Message: msg,
			Link:    "/messages/" + msg.FromUser.ID,
		})
	}
}

// OpenConversation switches the active conversation and resets its local
// state. Messages from other senders go back to being notifications.
func (s *Subscriber) OpenConversation(other domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = other
	s.conversation = nil
	s.seen = make(map[string]struct{})
}

// MergeHistory folds a fetched history page into the active conversation,
// de-duplicating by message id against anything already live-pushed. The
// store returns newest-first; display order is oldest-first, so the
// merged result is re-sorted.
func (s *Subscriber) MergeHistory(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range msgs {
		if _, dup := s.seen[m.ID]; dup {
			continue
		}
		s.seen[m.ID] = struct{}{}
		s.conversation = append(s.conversation, m)
	}
	sortOldestFirst(s.conversation)
}

// Conversation returns the active conversation, oldest-first.
func (s *Subscriber) Conversation() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.conversation))
	copy(out, s.conversation)
	return out
}

func sortOldestFirst(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
