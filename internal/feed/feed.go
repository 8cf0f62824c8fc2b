package feed

import (
	"context"
	"sync"
	"time"

	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/logging"
)

// Defaults for a live feed.
const (
	DefaultInterval = 2 * time.Second
	DefaultWindow   = 50
)

// Feed appends one generated reading per interval and keeps the most recent
// window of them. Each tick publishes a new dataset snapshot.
type Feed struct {
	ID       string
	Interval time.Duration
	Window   int
	Now      func() time.Time

	gen     *Generator
	publish func(*dataset.Dataset)

	mu      sync.Mutex
	rows    []dataset.Record
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a stopped feed. publish receives every snapshot and must not
// call back into the feed.
func New(id string, gen *Generator, publish func(*dataset.Dataset)) *Feed {
	return &Feed{
		ID:       id,
		Interval: DefaultInterval,
		Window:   DefaultWindow,
		Now:      time.Now,
		gen:      gen,
		publish:  publish,
	}
}

// ApplyDefaults fills zero settings.
func (f *Feed) ApplyDefaults() {
	if f.Interval <= 0 {
		f.Interval = DefaultInterval
	}
	if f.Window <= 0 {
		f.Window = DefaultWindow
	}
	if f.Now == nil {
		f.Now = time.Now
	}
}

// Start begins ticking. Starting a running feed does nothing.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return
	}
	f.ApplyDefaults()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.cancel, f.done, f.running = cancel, done, true

	go f.loop(ctx, done)
	logging.For("feed").Info("feed started", "id", f.ID, "interval", f.Interval)
}

func (f *Feed) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Stop may have raced the tick.
			if ctx.Err() != nil {
				return
			}
			f.Tick()
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the timer and waits for the loop to exit. No snapshot is
// published after Stop returns.
func (f *Feed) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	cancel, done := f.cancel, f.done
	f.running = false
	f.mu.Unlock()

	cancel()
	<-done
	logging.For("feed").Info("feed stopped", "id", f.ID)
}

// Running reports whether the feed is ticking.
func (f *Feed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Tick appends one reading, trims to the window and publishes the snapshot.
func (f *Feed) Tick() *dataset.Dataset {
	f.mu.Lock()
	f.ApplyDefaults()
	rows := append(f.rows, f.gen.Row(f.Now()))
	if len(rows) > f.Window {
		rows = rows[len(rows)-f.Window:]
	}
	// A fresh backing array keeps published snapshots immutable.
	f.rows = append([]dataset.Record(nil), rows...)
	ds := NewDataset(f.ID, f.rows)
	f.mu.Unlock()

	logging.For("feed").Debug("feed tick", "id", f.ID, "rows", ds.Len())
	if f.publish != nil {
		f.publish(ds)
	}
	return ds
}

// Snapshot returns the current window.
func (f *Feed) Snapshot() *dataset.Dataset {
	f.mu.Lock()
	defer f.mu.Unlock()
	return NewDataset(f.ID, f.rows)
}

// Reset drops every buffered reading.
func (f *Feed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = nil
}
