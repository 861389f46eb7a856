package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shobhit-2204/PingUp/internal/domain"
)

// MockGenerator is a scripted ReplyGenerator for local mode and tests.
// With no script it echoes the prompt split into a few chunks.
type MockGenerator struct {
	// Chunks, when set, is emitted verbatim for every call.
	Chunks []string
	// Err, when set, is returned after FailAfter chunks have been emitted.
	Err       error
	FailAfter int

	Calls int
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) StreamReply(
	ctx context.Context,
	prompt string,
	history []domain.Turn,
	onChunk func(text string) error,
) error {
	m.Calls++

	chunks := m.Chunks
	if chunks == nil {
		reply := fmt.Sprintf("You said %q. Tell me more. (history: %d turns)", prompt, len(history))
		for _, word := range strings.SplitAfter(reply, " ") {
			chunks = append(chunks, word)
		}
	}

	for i, chunk := range chunks {
		if m.Err != nil && i >= m.FailAfter {
			return m.Err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	if m.Err != nil && m.FailAfter >= len(chunks) {
		return m.Err
	}
	return nil
}
