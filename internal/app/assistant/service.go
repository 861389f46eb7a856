// Package assistant relays streamed AI replies and owns the per-user
// exchange history. History lives for the life of the process only,
// matching the upstream provider's stateless sessions.
package assistant

import (
	"context"
	"strings"
	"sync"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/internal/observability"
	"github.com/Shobhit-2204/PingUp/pkg/errors"
)

// maxHistoryTurns caps each user's history at 10 exchanges. Eviction is
// FIFO, one full exchange (user turn + model turn) at a time.
const maxHistoryTurns = 20

type Service struct {
	gen domain.ReplyGenerator

	mu        sync.Mutex
	histories map[domain.UserID][]domain.Turn
}

func NewService(gen domain.ReplyGenerator) *Service {
	return &Service{
		gen:       gen,
		histories: make(map[domain.UserID][]domain.Turn),
	}
}

type ChatInput struct {
	UserID       domain.UserID
	Prompt       string
	ClearContext bool
}

type ChatResult struct {
	FullText      string
	HistoryLength int
}

// Chat drives one prompt through the generator. onDelta is invoked for
// every upstream chunk as it arrives; returning an error from it aborts
// the generation (typically because the client went away).
//
// The user turn and the accumulated reply are committed to history only
// after a clean completion. Any failure or cancellation mid-stream leaves
// history exactly as it was, so it only ever contains whole exchanges.
func (s *Service) Chat(ctx context.Context, in ChatInput, onDelta func(text string) error) (*ChatResult, error) {
	if in.Prompt == "" {
		return nil, errors.InvalidArg("prompt is required")
	}
	if in.UserID == "" {
		return nil, errors.InvalidArg("user id is required")
	}

	log := observability.LoggerFromContext(ctx).With("user_id", in.UserID)

	if in.ClearContext {
		s.Reset(in.UserID)
		log.Info("conversation context cleared before prompt")
	}

	history := s.snapshot(in.UserID)

	var full strings.Builder
	err := s.gen.StreamReply(ctx, in.Prompt, history, func(text string) error {
		full.WriteString(text)
		return onDelta(text)
	})
	if err != nil {
		log.Error("reply stream aborted", "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	length := s.commit(in.UserID, in.Prompt, full.String())
	log.Info("reply stream completed", "history_length", length)

	return &ChatResult{FullText: full.String(), HistoryLength: length}, nil
}

// Reset drops the user's entire exchange history.
func (s *Service) Reset(userID domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, userID)
}

// HistoryLength reports the committed turn count for a user.
func (s *Service) HistoryLength(userID domain.UserID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.histories[userID])
}

// History returns a copy of the committed turns for a user.
func (s *Service) History(userID domain.UserID) []domain.Turn {
	return s.snapshot(userID)
}

func (s *Service) snapshot(userID domain.UserID) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.histories[userID]
	out := make([]domain.Turn, len(h))
	copy(out, h)
	return out
}

func (s *Service) commit(userID domain.UserID, prompt, reply string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.histories[userID],
		domain.Turn{Role: domain.RoleUser, Text: prompt},
		domain.Turn{Role: domain.RoleModel, Text: reply},
	)
	for len(h) > maxHistoryTurns {
		h = h[2:]
	}
	s.histories[userID] = h
	return len(h)
}
