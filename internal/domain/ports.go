package domain

import "context"

// MessageStore defines direct-message persistence.
type MessageStore interface {
	// Save assigns an id and a per-store monotonic timestamp to the draft.
	Save(ctx context.Context, draft MessageDraft) (*Message, error)
	// FindConversation returns all messages between a and b, both
	// directions, newest-first.
	FindConversation(ctx context.Context, a, b UserID) ([]*Message, error)
	// MarkSeen marks every message from→to as seen. Idempotent.
	MarkSeen(ctx context.Context, from, to UserID) error
	// FindRecentPerCounterparty returns the newest message per distinct
	// conversation partner of userID, newest-first. Records whose partner
	// cannot be resolved are skipped.
	FindRecentPerCounterparty(ctx context.Context, userID UserID) ([]*Message, error)
}

// MediaFile is an uploaded attachment before it has a public URL.
type MediaFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// MediaUploader hands a file to the external media/CDN collaborator and
// returns a resolvable public URL.
type MediaUploader interface {
	Upload(ctx context.Context, file MediaFile) (string, error)
}

// UserDirectory resolves user ids to display profiles. Backed by the
// external identity collaborator.
type UserDirectory interface {
	GetProfile(ctx context.Context, id UserID) (*Profile, error)
}

// ReplyGenerator drives the generative-text backend. Implementations call
// onChunk for every piece of text as it arrives; returning an error from
// onChunk aborts the generation.
type ReplyGenerator interface {
	StreamReply(ctx context.Context, prompt string, history []Turn, onChunk func(text string) error) error
}
