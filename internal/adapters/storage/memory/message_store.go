// Package memory provides the in-memory MessageStore. It is NOT
// persistent and is only suitable for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/pkg/errors"
)

type MessageStore struct {
	mu       sync.RWMutex
	messages []*domain.Message
	lastAt   time.Time
	now      func() time.Time
}

func NewMessageStore() *MessageStore {
	return &MessageStore{now: time.Now}
}

// Save assigns id and timestamp. Timestamps are strictly increasing per
// store so conversation order is stable even for same-instant sends.
func (s *MessageStore) Save(_ context.Context, draft domain.MessageDraft) (*domain.Message, error) {
	if draft.FromUser == "" || draft.ToUser == "" {
		return nil, errors.InvalidArg("message requires both participants")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now()
	if !at.After(s.lastAt) {
		at = s.lastAt.Add(time.Nanosecond)
	}
	s.lastAt = at

	msg := &domain.Message{
		ID:          domain.MessageID(uuid.NewString()),
		FromUser:    draft.FromUser,
		ToUser:      draft.ToUser,
		Text:        draft.Text,
		MediaURL:    draft.MediaURL,
		MessageType: draft.MessageType,
		CreatedAt:   at,
	}
	s.messages = append(s.messages, msg)

	out := *msg
	return &out, nil
}

func (s *MessageStore) FindConversation(_ context.Context, a, b domain.UserID) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Message
	for _, m := range s.messages {
		if (m.FromUser == a && m.ToUser == b) || (m.FromUser == b && m.ToUser == a) {
			c := *m
			out = append(out, &c)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MessageStore) MarkSeen(_ context.Context, from, to domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.FromUser == from && m.ToUser == to {
			m.Seen = true
		}
	}
	return nil
}

func (s *MessageStore) FindRecentPerCounterparty(_ context.Context, userID domain.UserID) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[domain.UserID]*domain.Message)
	for _, m := range s.messages {
		partner := m.Counterparty(userID)
		if partner == "" {
			continue
		}
		if prev, ok := latest[partner]; !ok || m.CreatedAt.After(prev.CreatedAt) {
			c := *m
			latest[partner] = &c
		}
	}

	out := make([]*domain.Message, 0, len(latest))
	for _, m := range latest {
		out = append(out, m)
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(msgs []*domain.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
}
