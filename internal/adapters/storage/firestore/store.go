// Package firestore implements the durable MessageStore on Cloud
// Firestore.
package firestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/uuid"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/pkg/errors"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore-backed message store for the given project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) messagesCol() *firestore.CollectionRef {
	return s.client.Collection("messages")
}

// messageDoc mirrors domain.Message. Participants holds both user ids so
// recent-per-counterparty resolves with a single array-contains query.
type messageDoc struct {
	FromUser     string    `firestore:"from_user"`
	ToUser       string    `firestore:"to_user"`
	Text         string    `firestore:"text"`
	MediaURL     string    `firestore:"media_url"`
	MessageType  string    `firestore:"message_type"`
	Seen         bool      `firestore:"seen"`
	CreatedAt    time.Time `firestore:"created_at"`
	Participants []string  `firestore:"participants"`
}

func (d *messageDoc) toDomain(id string) *domain.Message {
	return &domain.Message{
		ID:          domain.MessageID(id),
		FromUser:    domain.UserID(d.FromUser),
		ToUser:      domain.UserID(d.ToUser),
		Text:        d.Text,
		MediaURL:    d.MediaURL,
		MessageType: domain.MessageType(d.MessageType),
		Seen:        d.Seen,
		CreatedAt:   d.CreatedAt,
	}
}

func (s *Store) Save(ctx context.Context, draft domain.MessageDraft) (*domain.Message, error) {
	if draft.FromUser == "" || draft.ToUser == "" {
		return nil, errors.InvalidArg("message requires both participants")
	}

	id := uuid.NewString()
	doc := messageDoc{
		FromUser:     string(draft.FromUser),
		ToUser:       string(draft.ToUser),
		Text:         draft.Text,
		MediaURL:     draft.MediaURL,
		MessageType:  string(draft.MessageType),
		CreatedAt:    time.Now().UTC(),
		Participants: []string{string(draft.FromUser), string(draft.ToUser)},
	}

	if _, err := s.messagesCol().Doc(id).Create(ctx, doc); err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "firestore Save", err)
	}
	return doc.toDomain(id), nil
}

func (s *Store) FindConversation(ctx context.Context, a, b domain.UserID) ([]*domain.Message, error) {
	var out []*domain.Message

	// both directions; Firestore cannot OR across field pairs in one query
	for _, pair := range [][2]domain.UserID{{a, b}, {b, a}} {
		q := s.messagesCol().
			Where("from_user", "==", string(pair[0])).
			Where("to_user", "==", string(pair[1]))

		msgs, err := s.collect(ctx, q, 0)
		if err != nil {
			return nil, errors.Wrap(errors.CodeUnavailable, "firestore FindConversation", err)
		}
		out = append(out, msgs...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkSeen(ctx context.Context, from, to domain.UserID) error {
	iter := s.messagesCol().
		Where("from_user", "==", string(from)).
		Where("to_user", "==", string(to)).
		Where("seen", "==", false).
		Documents(ctx)
	defer iter.Stop()

	bw := s.client.BulkWriter(ctx)
	var jobs []bulkJob
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Wrap(errors.CodeUnavailable, "firestore MarkSeen query", err)
		}
		job, err := bw.Update(snap.Ref, []firestore.Update{{Path: "seen", Value: true}})
		if err != nil {
			return errors.Wrap(errors.CodeUnavailable, "firestore MarkSeen update", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	if err := awaitJobs(jobs); err != nil {
		return errors.Wrap(errors.CodeUnavailable, "firestore MarkSeen write", err)
	}
	return nil
}

// bulkJob is the result handle of one queued BulkWriter write.
type bulkJob interface {
	Results() (*firestore.WriteResult, error)
}

// awaitJobs blocks on every queued write and surfaces the first failure,
// so a partially failed bulk transition is never reported as success.
func awaitJobs(jobs []bulkJob) error {
	for _, j := range jobs {
		if _, err := j.Results(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) FindRecentPerCounterparty(ctx context.Context, userID domain.UserID) ([]*domain.Message, error) {
	q := s.messagesCol().
		Where("participants", "array-contains", string(userID)).
		OrderBy("created_at", firestore.Desc)

	msgs, err := s.collect(ctx, q, 0)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "firestore FindRecentPerCounterparty", err)
	}

	// newest-first input, so the first hit per partner wins
	seen := make(map[domain.UserID]bool)
	var out []*domain.Message
	for _, m := range msgs {
		partner := m.Counterparty(userID)
		if partner == "" || seen[partner] {
			continue
		}
		seen[partner] = true
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) collect(ctx context.Context, q firestore.Query, limit int) ([]*domain.Message, error) {
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, errors.NotFound("messages collection not found")
			}
			return nil, err
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}
		out = append(out, doc.toDomain(snap.Ref.ID))
	}
	return out, nil
}
