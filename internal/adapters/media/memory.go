package media

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/pkg/errors"
)

// MemoryUploader fakes the media collaborator for local mode and tests.
type MemoryUploader struct {
	seq atomic.Int64
}

func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{}
}

func (u *MemoryUploader) Upload(_ context.Context, file domain.MediaFile) (string, error) {
	if len(file.Content) == 0 {
		return "", errors.InvalidArg("media file is empty")
	}
	n := u.seq.Add(1)
	return fmt.Sprintf("https://media.local/%d/%s", n, file.Name), nil
}
