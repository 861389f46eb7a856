// Package delivery coordinates direct-message sends: persist first, then
// best-effort live push to the recipient's channel.
package delivery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/internal/observability"
	"github.com/Shobhit-2204/PingUp/internal/realtime"
	"github.com/Shobhit-2204/PingUp/internal/stream"
	"github.com/Shobhit-2204/PingUp/pkg/errors"
)

type Service struct {
	store     domain.MessageStore
	registry  *realtime.Registry
	uploader  domain.MediaUploader
	directory domain.UserDirectory
}

func NewService(
	store domain.MessageStore,
	registry *realtime.Registry,
	uploader domain.MediaUploader,
	directory domain.UserDirectory,
) *Service {
	return &Service{
		store:     store,
		registry:  registry,
		uploader:  uploader,
		directory: directory,
	}
}

// ProfileView is the wire form of a denormalized user snapshot.
type ProfileView struct {
	ID             string `json:"id"`
	Username       string `json:"username,omitempty"`
	FullName       string `json:"full_name,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// MessageView is the wire form of a message, with sender and recipient
// resolved to profiles. Used for HTTP responses and push frames alike.
type MessageView struct {
	ID          string      `json:"id"`
	FromUser    ProfileView `json:"from_user"`
	ToUser      ProfileView `json:"to_user"`
	Text        string      `json:"text,omitempty"`
	MediaURL    string      `json:"media_url,omitempty"`
	MessageType string      `json:"message_type"`
	Seen        bool        `json:"seen"`
	CreatedAt   time.Time   `json:"created_at"`
}

type SendInput struct {
	From  domain.UserID
	To    domain.UserID
	Text  string
	Media *domain.MediaFile
}

// Send validates, uploads media if present, persists, and finally offers
// the message to the recipient's live channel. The push is
// fire-and-forget: once the store accepted the message, Send succeeds no
// matter what happens on the live path.
func (s *Service) Send(ctx context.Context, in SendInput) (*MessageView, error) {
	log := observability.LoggerFromContext(ctx).With(
		"from_user", in.From,
		"to_user", in.To,
	)

	if in.To == "" {
		return nil, errors.InvalidArg("to_user_id is required")
	}
	if in.Text == "" && in.Media == nil {
		return nil, errors.InvalidArg("either text or an image is required")
	}

	draft := domain.MessageDraft{
		FromUser:    in.From,
		ToUser:      in.To,
		Text:        in.Text,
		MessageType: domain.MessageTypeText,
	}
	if in.Media != nil {
		url, err := s.uploader.Upload(ctx, *in.Media)
		if err != nil {
			log.Error("media upload failed", "error", err)
			return nil, err
		}
		draft.MediaURL = url
		draft.MessageType = domain.MessageTypeImage
	}

	msg, err := s.store.Save(ctx, draft)
	if err != nil {
		log.Error("failed to persist message", "error", err)
		if errors.CodeOf(err) == errors.CodeUnknown {
			return nil, errors.Wrap(errors.CodeUnavailable, "message store unavailable", err)
		}
		return nil, err
	}

	view := s.toView(ctx, msg, nil)

	if frame, err := json.Marshal(view); err == nil {
		delivered := s.registry.TryPush(in.To, stream.Event{Data: frame})
		log.Info("message sent", "message_id", msg.ID, "live_delivered", delivered)
	}

	return view, nil
}

// Conversation returns every message between caller and other,
// newest-first, and marks the counterparty's messages to the caller as
// seen.
func (s *Service) Conversation(ctx context.Context, caller, other domain.UserID) ([]*MessageView, error) {
	if other == "" {
		return nil, errors.InvalidArg("to_user_id is required")
	}

	// mark before fetching so the returned page reflects the transition
	if err := s.store.MarkSeen(ctx, other, caller); err != nil {
		observability.LoggerFromContext(ctx).Error("mark seen failed", "error", err)
		return nil, err
	}

	msgs, err := s.store.FindConversation(ctx, caller, other)
	if err != nil {
		return nil, err
	}

	return s.toViews(ctx, msgs), nil
}

// Recent returns the newest message per distinct counterparty of caller.
func (s *Service) Recent(ctx context.Context, caller domain.UserID) ([]*MessageView, error) {
	msgs, err := s.store.FindRecentPerCounterparty(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, msgs), nil
}

// toView resolves participant profiles best-effort: a missing directory
// entry degrades to an id-only profile rather than failing the call.
func (s *Service) toView(ctx context.Context, m *domain.Message, cache map[domain.UserID]ProfileView) *MessageView {
	return &MessageView{
		ID:          string(m.ID),
		FromUser:    s.profile(ctx, m.FromUser, cache),
		ToUser:      s.profile(ctx, m.ToUser, cache),
		Text:        m.Text,
		MediaURL:    m.MediaURL,
		MessageType: string(m.MessageType),
		Seen:        m.Seen,
		CreatedAt:   m.CreatedAt,
	}
}

func (s *Service) toViews(ctx context.Context, msgs []*domain.Message) []*MessageView {
	cache := make(map[domain.UserID]ProfileView)
	out := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.toView(ctx, m, cache))
	}
	return out
}

func (s *Service) profile(ctx context.Context, id domain.UserID, cache map[domain.UserID]ProfileView) ProfileView {
	if id == "" {
		return ProfileView{}
	}
	if cache != nil {
		if v, ok := cache[id]; ok {
			return v
		}
	}

	view := ProfileView{ID: string(id)}
	if p, err := s.directory.GetProfile(ctx, id); err == nil {
		view.Username = p.Username
		view.FullName = p.FullName
		view.ProfilePicture = p.ProfilePicture
	}

	if cache != nil {
		cache[id] = view
	}
	return view
}
