// Package directory adapts the external identity service's profile data.
// The in-memory implementation stands in for it in local mode and tests.
package directory

import (
	"context"
	"sync"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/pkg/errors"
)

type MemoryDirectory struct {
	mu       sync.RWMutex
	profiles map[domain.UserID]*domain.Profile
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{profiles: make(map[domain.UserID]*domain.Profile)}
}

func (d *MemoryDirectory) Put(p domain.Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.ID] = &p
}

func (d *MemoryDirectory) GetProfile(_ context.Context, id domain.UserID) (*domain.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[id]
	if !ok {
		return nil, errors.NotFound("user profile not found")
	}
	out := *p
	return &out, nil
}
