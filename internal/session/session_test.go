package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/feed"
	"github.com/jwulff/sensorviz/internal/storage"
	"github.com/jwulff/sensorviz/internal/storage/memory"
)

type fakeCleaner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCleaner) Clean(_ context.Context, id, _ string, csv io.Reader) (*dataset.Dataset, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(csv)
	rows := []dataset.Record{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		rows = append(rows, dataset.Record{"v": dataset.Text(line)})
	}
	return dataset.New(id, dataset.Schema{{Name: "v", Type: dataset.TypeString}}, rows), nil
}

func newTestSession(t *testing.T, cleaner Cleaner) (*Session, storage.Store) {
	t.Helper()
	store := memory.NewStore()
	s := New(store, cleaner, feed.NewGenerator(1), Options{FeedInterval: 5 * time.Millisecond, FeedWindow: 50})
	ids := 0
	s.newID = func() string {
		ids++
		return "upload-" + string(rune('0'+ids))
	}
	t.Cleanup(s.Close)
	return s, store
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode(" Realtime ")
	assert.True(t, ok)
	assert.Equal(t, ModeRealtime, m)

	_, ok = ParseMode("stream")
	assert.False(t, ok)
}

func TestNewSessionStartsEmpty(t *testing.T) {
	s, _ := newTestSession(t, &fakeCleaner{})

	assert.Equal(t, ModeCSV, s.Mode())
	_, err := s.Current(context.Background())
	assert.True(t, storage.IsNotFound(err))
}

func TestUploadLoadsDataset(t *testing.T) {
	s, store := newTestSession(t, &fakeCleaner{})
	ctx := context.Background()

	ds, err := s.Upload(ctx, "a.csv", strings.NewReader("1\n2\n3"))
	require.NoError(t, err)

	assert.Equal(t, "upload-1", ds.ID)
	assert.Equal(t, "upload-1", s.CurrentID())
	stored, err := store.GetDataset(ctx, "upload-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Len())
}

type staticCleaner struct {
	ds *dataset.Dataset
}

func (c staticCleaner) Clean(context.Context, string, string, io.Reader) (*dataset.Dataset, error) {
	return c.ds, nil
}

func TestUploadDoesNotMutateCleanerDataset(t *testing.T) {
	shared := dataset.New("cached", dataset.Schema{{Name: "v", Type: dataset.TypeNumber}},
		[]dataset.Record{{"v": dataset.Number(1)}})
	s, _ := newTestSession(t, staticCleaner{ds: shared})

	ds, err := s.Upload(context.Background(), "a.csv", strings.NewReader("1"))
	require.NoError(t, err)

	assert.Equal(t, "upload-1", ds.ID)
	assert.Equal(t, "cached", shared.ID)
}

func TestUploadFailureKeepsPreviousDataset(t *testing.T) {
	cleaner := &fakeCleaner{}
	s, _ := newTestSession(t, cleaner)
	ctx := context.Background()
	_, err := s.Upload(ctx, "a.csv", strings.NewReader("1\n2"))
	require.NoError(t, err)

	cleaner.err = errors.New("service down")
	_, err = s.Upload(ctx, "b.csv", strings.NewReader("9"))
	require.Error(t, err)

	current, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "upload-1", current.ID)
	assert.Equal(t, 2, current.Len())
}

func TestUploadRequiresCSVMode(t *testing.T) {
	cleaner := &fakeCleaner{}
	s, _ := newTestSession(t, cleaner)
	require.NoError(t, s.SetMode(context.Background(), ModeRealtime))

	_, err := s.Upload(context.Background(), "a.csv", strings.NewReader("1"))

	assert.ErrorIs(t, err, ErrWrongMode)
	assert.Zero(t, cleaner.calls.Load())
}

func TestSetModeClearsDataset(t *testing.T) {
	s, _ := newTestSession(t, &fakeCleaner{})
	ctx := context.Background()
	_, err := s.Upload(ctx, "a.csv", strings.NewReader("1"))
	require.NoError(t, err)

	require.NoError(t, s.SetMode(ctx, ModeHistorical))

	assert.Equal(t, ModeHistorical, s.Mode())
	assert.Empty(t, s.CurrentID())
}

func TestModeIsPersisted(t *testing.T) {
	s, store := newTestSession(t, &fakeCleaner{})
	ctx := context.Background()
	require.NoError(t, s.SetMode(ctx, ModeHistorical))

	restored := New(store, nil, feed.NewGenerator(2), Options{})
	defer restored.Close()
	require.NoError(t, restored.Restore(ctx))

	assert.Equal(t, ModeHistorical, restored.Mode())
}

func TestRestoreWithoutSavedMode(t *testing.T) {
	s, _ := newTestSession(t, nil)

	require.NoError(t, s.Restore(context.Background()))

	assert.Equal(t, ModeCSV, s.Mode())
}

func TestRealtimeFeed(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, s.SetFeedRunning(ctx, true), ErrWrongMode)

	require.NoError(t, s.SetMode(ctx, ModeRealtime))
	require.NoError(t, s.SetFeedRunning(ctx, true))
	assert.True(t, s.FeedRunning())

	require.Eventually(t, func() bool {
		ds, err := s.Current(ctx)
		return err == nil && ds.Len() >= 3
	}, time.Second, time.Millisecond)

	require.NoError(t, s.SetFeedRunning(ctx, false))
	assert.False(t, s.FeedRunning())
	ds, err := s.Current(ctx)
	require.NoError(t, err)
	n := ds.Len()
	time.Sleep(30 * time.Millisecond)
	ds, err = s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, ds.Len(), "no rows after stop")
}

func TestSwitchingModeStopsFeed(t *testing.T) {
	s, store := newTestSession(t, nil)
	ctx := context.Background()
	require.NoError(t, s.SetMode(ctx, ModeRealtime))
	require.NoError(t, s.SetFeedRunning(ctx, true))
	require.Eventually(t, func() bool {
		_, err := store.GetDataset(ctx, RealtimeID)
		return err == nil
	}, time.Second, time.Millisecond)

	require.NoError(t, s.SetMode(ctx, ModeCSV))

	assert.False(t, s.FeedRunning())
	time.Sleep(30 * time.Millisecond)
	_, err := store.GetDataset(ctx, RealtimeID)
	assert.True(t, storage.IsNotFound(err), "feed must not publish after the switch")
}

func TestTick(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()
	require.NoError(t, s.SetMode(ctx, ModeRealtime))

	ds, err := s.Tick()
	require.NoError(t, err)

	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, RealtimeID, s.CurrentID())
}

func TestBackfill(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	_, err := s.Backfill(ctx, start, end)
	assert.ErrorIs(t, err, ErrWrongMode)

	require.NoError(t, s.SetMode(ctx, ModeHistorical))
	_, err = s.Backfill(ctx, end, start)
	assert.ErrorIs(t, err, ErrInvalidRange)

	ds, err := s.Backfill(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, feed.BackfillRows, ds.Len())

	current, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, HistoricalID, current.ID)
}
