// Package realtime tracks live push channels, one per connected user.
package realtime

import (
	"sync"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/internal/stream"
)

// channelBuffer bounds how many frames may queue for a slow consumer
// before pushes start dropping.
const channelBuffer = 16

// Channel is the server-side handle of one subscriber's push stream.
type Channel struct {
	user   domain.UserID
	events chan stream.Event
	done   chan struct{}
	once   sync.Once
}

func newChannel(user domain.UserID) *Channel {
	return &Channel{
		user:   user,
		events: make(chan stream.Event, channelBuffer),
		done:   make(chan struct{}),
	}
}

// Events yields frames pushed to this channel.
func (c *Channel) Events() <-chan stream.Event { return c.events }

// Done is closed when the channel is terminated, either by an explicit
// unregister or by a newer registration for the same user.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Close terminates the channel. Safe to call more than once.
func (c *Channel) Close() {
	c.once.Do(func() { close(c.done) })
}

// Closed reports whether the channel has been terminated.
func (c *Channel) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Registry maps each user id to at most one live channel. All methods are
// safe for concurrent use; lookups take a read lock so unrelated senders
// never serialize on each other's pushes.
type Registry struct {
	mu       sync.RWMutex
	channels map[domain.UserID]*Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[domain.UserID]*Channel)}
}

// Register creates the channel for user. An existing channel for the same
// id is closed and replaced, so a reconnect never leaks a handle into a
// dead stream (last-writer-wins).
func (r *Registry) Register(user domain.UserID) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.channels[user]; ok {
		old.Close()
	}
	ch := newChannel(user)
	r.channels[user] = ch
	return ch
}

// Unregister closes ch and removes the entry only while it still refers
// to ch, so a slow disconnect cannot tear down a newer registration.
func (r *Registry) Unregister(user domain.UserID, ch *Channel) {
	if ch == nil {
		return
	}
	ch.Close()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[user] == ch {
		delete(r.channels, user)
	}
}

// TryPush offers one frame to the user's live channel without blocking.
// Returns false when no channel exists, the channel is terminated, or its
// buffer is full; the frame is dropped in all three cases. Durability is
// the store's job, so a dropped live frame is not an error.
func (r *Registry) TryPush(user domain.UserID, ev stream.Event) bool {
	r.mu.RLock()
	ch := r.channels[user]
	r.mu.RUnlock()

	// check termination before offering the frame: a combined select
	// would pick at random between the closed done channel and a ready
	// buffer, reporting success on a dead stream
	if ch == nil || ch.Closed() {
		return false
	}
	select {
	case ch.events <- ev:
		return true
	default:
		return false
	}
}

// Connected reports whether user currently has a live channel.
func (r *Registry) Connected(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[user]
	return ok && !ch.Closed()
}
