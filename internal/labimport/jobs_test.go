package labimport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu   sync.Mutex
	runs []models.ImportRun
}

func (f *fakeRecorder) RecordRun(ctx context.Context, run *models.ImportRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, *run)
	return nil
}

func testSheet() *Sheet {
	return &Sheet{
		Name:    "Sheet1",
		Headers: []string{"MRN", "Hb"},
		Rows:    []Row{{"MRN": "MRN-001", "Hb": "1"}, {"Hb": "2"}, {"MRN": "MRN-002", "Hb": "3"}},
	}
}

func TestRegistryLifecycle(t *testing.T) {
	rec := &fakeRecorder{}
	reg := NewRegistry(RegistryOptions{PreviewRows: 2, Recorder: rec})

	snap := reg.Stage("user-1", "labs.csv", testSheet())
	assert.Equal(t, StateStaged, snap.State)
	assert.Equal(t, 3, snap.RowCount)
	assert.Len(t, snap.Preview, 2)
	assert.True(t, snap.Startable())

	_, ok := reg.Get("user-2", snap.ID)
	assert.False(t, ok, "jobs are private to their owner")
	assert.ErrorIs(t, reg.Start("user-2", snap.ID, "mallory", newFake()), ErrJobNotFound)

	require.NoError(t, reg.Start("user-1", snap.ID, "dr.ada", newFake()))
	assert.ErrorIs(t, reg.Start("user-1", snap.ID, "dr.ada", newFake()), ErrJobStarted)
	reg.Wait()

	done, ok := reg.Get("user-1", snap.ID)
	require.True(t, ok)
	assert.Equal(t, StateCompleted, done.State)
	assert.Equal(t, Progress{Total: 3, Current: 3, Success: 2, Fail: 1}, done.Progress)
	assert.True(t, done.Finished())
	assert.False(t, done.FinishedAt.IsZero())

	require.Len(t, rec.runs, 1)
	assert.Equal(t, "dr.ada", rec.runs[0].Actor)
	assert.Equal(t, "labs.csv", rec.runs[0].FileName)
	assert.Equal(t, 2, rec.runs[0].Success)
	assert.Equal(t, 1, rec.runs[0].Fail)
}

func TestRegistrySweepsOldJobs(t *testing.T) {
	reg := NewRegistry(RegistryOptions{TTL: time.Minute})
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	old := reg.Stage("u", "a.csv", testSheet())
	now = now.Add(2 * time.Minute)
	fresh := reg.Stage("u", "b.csv", testSheet())

	_, ok := reg.Get("u", old.ID)
	assert.False(t, ok)
	_, ok = reg.Get("u", fresh.ID)
	assert.True(t, ok)
}

func TestRegistryShutdown(t *testing.T) {
	reg := NewRegistry(RegistryOptions{})
	snap := reg.Stage("u", "a.csv", testSheet())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	assert.ErrorIs(t, reg.Start("u", snap.ID, "x", newFake()), ErrShutdown)
}
