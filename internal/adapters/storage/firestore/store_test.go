package firestore

import (
	"fmt"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct{ err error }

func (f fakeJob) Results() (*firestore.WriteResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &firestore.WriteResult{}, nil
}

func TestAwaitJobsAllSucceed(t *testing.T) {
	jobs := []bulkJob{fakeJob{}, fakeJob{}, fakeJob{}}
	assert.NoError(t, awaitJobs(jobs))
}

func TestAwaitJobsSurfacesFailure(t *testing.T) {
	boom := fmt.Errorf("deadline exceeded")
	jobs := []bulkJob{fakeJob{}, fakeJob{err: boom}, fakeJob{}}

	err := awaitJobs(jobs)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestAwaitJobsEmpty(t *testing.T) {
	assert.NoError(t, awaitJobs(nil))
}
