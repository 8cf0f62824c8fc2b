// Package session tracks which data source is active and which dataset is
// loaded. Switching source replaces the dataset wholesale.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/feed"
	"github.com/jwulff/sensorviz/internal/logging"
	"github.com/jwulff/sensorviz/internal/storage"
)

// Mode is the active data source.
type Mode string

const (
	ModeCSV        Mode = "csv"
	ModeRealtime   Mode = "realtime"
	ModeHistorical Mode = "historical"
)

// Dataset ids used for generated data.
const (
	RealtimeID   = "realtime"
	HistoricalID = "historical"
)

// modeKey is the config key the active mode is persisted under.
const modeKey = "session.mode"

var (
	// ErrWrongMode is returned when an action does not apply to the active mode.
	ErrWrongMode = errors.New("action not available in current mode")
	// ErrInvalidRange is returned for a backfill whose end precedes its start.
	ErrInvalidRange = errors.New("end is before start")
)

// ParseMode reads a mode name.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeCSV, ModeRealtime, ModeHistorical:
		return m, true
	}
	return "", false
}

// Cleaner turns an uploaded CSV into a dataset.
type Cleaner interface {
	Clean(ctx context.Context, datasetID, filename string, csv io.Reader) (*dataset.Dataset, error)
}

// Options tune the realtime feed.
type Options struct {
	FeedInterval time.Duration
	FeedWindow   int
}

// Session is the mode state machine. It is safe for concurrent use.
type Session struct {
	store   storage.Store
	cleaner Cleaner
	gen     *feed.Generator
	feed    *feed.Feed
	newID   func() string

	mu      sync.Mutex
	mode    Mode
	current string
}

// New creates a session in CSV mode with nothing loaded.
func New(store storage.Store, cleaner Cleaner, gen *feed.Generator, opts Options) *Session {
	s := &Session{
		store:   store,
		cleaner: cleaner,
		gen:     gen,
		newID:   uuid.NewString,
		mode:    ModeCSV,
	}
	s.feed = feed.New(RealtimeID, gen, s.publish)
	s.feed.Interval = opts.FeedInterval
	s.feed.Window = opts.FeedWindow
	s.feed.ApplyDefaults()
	return s
}

// publish runs on the feed goroutine. It must not take s.mu: SetMode holds
// it while waiting for the feed to stop.
func (s *Session) publish(ds *dataset.Dataset) {
	if err := s.store.PutDataset(context.Background(), ds); err != nil {
		logging.For("session").Error("failed to store feed snapshot", "error", err)
	}
}

// Restore reloads the persisted mode. A missing entry keeps CSV mode.
func (s *Session) Restore(ctx context.Context) error {
	v, err := s.store.GetConfig(ctx, modeKey)
	if storage.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load mode: %w", err)
	}
	m, ok := ParseMode(v)
	if !ok {
		return fmt.Errorf("failed to load mode: unknown mode %q", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
	return nil
}

// Mode returns the active mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches source. The feed is stopped before SetMode returns and
// the loaded dataset is cleared, even when the mode is unchanged.
func (s *Session) SetMode(ctx context.Context, m Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feed.Stop()
	s.feed.Reset()
	for _, id := range []string{RealtimeID, HistoricalID} {
		if err := s.store.DeleteDataset(ctx, id); err != nil {
			return fmt.Errorf("failed to clear %s dataset: %w", id, err)
		}
	}
	s.current = ""
	s.mode = m
	if err := s.store.SetConfig(ctx, modeKey, string(m)); err != nil {
		return fmt.Errorf("failed to save mode: %w", err)
	}
	logging.For("session").Info("mode changed", "mode", m)
	return nil
}

// Current returns the loaded dataset, or storage.ErrNotFound when nothing is
// loaded yet.
func (s *Session) Current(ctx context.Context) (*dataset.Dataset, error) {
	s.mu.Lock()
	id := s.current
	s.mu.Unlock()
	if id == "" {
		return nil, storage.ErrNotFound{Resource: "dataset", ID: "current"}
	}
	return s.store.GetDataset(ctx, id)
}

// CurrentID returns the id of the loaded dataset, or "".
func (s *Session) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// FeedRunning reports whether the realtime feed is ticking.
func (s *Session) FeedRunning() bool {
	return s.feed.Running()
}

// SetFeedRunning starts or stops the realtime feed. Stopping is synchronous.
func (s *Session) SetFeedRunning(ctx context.Context, running bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeRealtime {
		return ErrWrongMode
	}
	if !running {
		s.feed.Stop()
		return nil
	}
	s.current = RealtimeID
	// The feed outlives the request that started it.
	s.feed.Start(context.WithoutCancel(ctx))
	return nil
}

// Tick advances the realtime feed by one reading without waiting for the
// timer.
func (s *Session) Tick() (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeRealtime {
		return nil, ErrWrongMode
	}
	s.current = RealtimeID
	return s.feed.Tick(), nil
}

// Backfill loads generated historical readings for [start, end].
func (s *Session) Backfill(ctx context.Context, start, end time.Time) (*dataset.Dataset, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeHistorical {
		return nil, ErrWrongMode
	}
	ds := feed.NewDataset(HistoricalID, s.gen.Backfill(start, end))
	if err := s.store.PutDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to store backfill: %w", err)
	}
	s.current = HistoricalID
	return ds, nil
}

// Upload sends a CSV to the cleaning service and loads the result under a
// fresh id. On failure the previously loaded dataset stays loaded.
func (s *Session) Upload(ctx context.Context, filename string, csv io.Reader) (*dataset.Dataset, error) {
	if s.Mode() != ModeCSV {
		return nil, ErrWrongMode
	}
	if s.cleaner == nil {
		return nil, fmt.Errorf("failed to upload: no cleaning service")
	}

	// The cleaning call may be slow; it runs without holding the lock.
	id := s.newID()
	ds, err := s.cleaner.Clean(ctx, id, filename, csv)
	if err != nil {
		logging.For("session").Warn("upload failed", "file", filename, "error", err)
		return nil, fmt.Errorf("failed to upload: %w", err)
	}
	// The cleaner's dataset may be shared; store a copy under the upload id.
	ds = ds.WithID(id)
	if err := s.store.PutDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeCSV {
		// The mode changed while cleaning; the upload no longer applies.
		return nil, ErrWrongMode
	}
	s.current = id
	return ds, nil
}

// Close stops the feed.
func (s *Session) Close() {
	s.feed.Stop()
}
