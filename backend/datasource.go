package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// RWBox guards a value with a read/write lock.
type RWBox[T any] struct {
	t    T
	lock sync.RWMutex
}

func (r *RWBox[T]) Read(f func(*T)) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	f(&r.t)
}

func (r *RWBox[T]) Write(f func(*T)) {
	r.lock.Lock()
	defer r.lock.Unlock()
	f(&r.t)
}

// Get returns a copy of the boxed value.
func (r *RWBox[T]) Get() T {
	var t T
	r.Read(func(v *T) { t = *v })
	return t
}

// Set replaces the boxed value.
func (r *RWBox[T]) Set(t T) {
	r.Write(func(v *T) { *v = t })
}

const DefaultInterval = 3 * time.Second

type Options struct {
	// Path of the mock document. Empty selects the built-in snapshot.
	Path string
	// Interval between live ticks and between replayed trace rows.
	Interval time.Duration
	// Seed for the live tick. Zero seeds from the clock.
	Seed int64
	// Record, if set, receives every live reading as a trace.
	Record io.WriteCloser
}

// Datasource owns the loaded snapshot and the live reading derived from it.
type Datasource struct {
	opts     Options
	snapshot RWBox[Snapshot]
	latest   RWBox[flow.Reading]
	paused   atomic.Bool

	rndLock sync.Mutex
	rnd     *rand.Rand

	traceLock sync.Mutex
	trace     *TraceWriter
}

func NewDatasource(opts Options) *Datasource {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	d := &Datasource{
		opts: opts,
		rnd:  rand.New(rand.NewSource(seed)),
	}
	if opts.Record != nil {
		d.trace = NewTraceWriter(opts.Record)
	}
	s := LoadOrFallback(opts.Path)
	d.snapshot.Set(s)
	d.latest.Set(s.Now.Reading)
	return d
}

func (d *Datasource) Interval() time.Duration {
	return d.opts.Interval
}

// Snapshot returns the most recently loaded snapshot.
func (d *Datasource) Snapshot() Snapshot {
	return d.snapshot.Get()
}

// Latest returns the most recent live reading.
func (d *Datasource) Latest() flow.Reading {
	return d.latest.Get()
}

// SetPaused stops or resumes the live tick. Paused ticks are skipped, not
// queued.
func (d *Datasource) SetPaused(paused bool) {
	d.paused.Store(paused)
}

func (d *Datasource) Paused() bool {
	return d.paused.Load()
}

// Close flushes and closes the trace recording, if any.
func (d *Datasource) Close() error {
	d.traceLock.Lock()
	defer d.traceLock.Unlock()
	if d.trace == nil {
		return nil
	}
	err := d.trace.Close()
	d.trace = nil
	return err
}

// Reload re-reads the mock document and restarts the live reading from its
// now values. On failure the previous snapshot is kept and the error
// returned.
func (d *Datasource) Reload() (Snapshot, error) {
	if d.opts.Path == "" {
		return d.Snapshot(), nil
	}
	s, err := Load(d.opts.Path)
	if err != nil {
		return d.Snapshot(), err
	}
	d.snapshot.Set(s)
	d.latest.Set(s.Now.Reading)
	return s, nil
}

// Snapshots emits the current snapshot and then a new one each time the mock
// document changes on disk.
func (d *Datasource) Snapshots(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	out <- d.Snapshot()
	if d.opts.Path == "" {
		close(out)
		return out
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warnf("failed creating file watcher, mock data will not reload: %v", err)
		close(out)
		return out
	}
	target := filepath.Clean(d.opts.Path)
	// Editors often replace files rather than write them, so watch the
	// directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		log.Warnf("failed watching %q: %v", target, err)
		watcher.Close()
		close(out)
		return out
	}
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("file watcher: %v", err)
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				s, err := d.Reload()
				if err != nil {
					log.Warnf("keeping previous snapshot: %v", err)
					continue
				}
				log.Debugf("reloaded %q", target)
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (d *Datasource) tick() flow.Reading {
	d.rndLock.Lock()
	defer d.rndLock.Unlock()
	var next flow.Reading
	d.latest.Write(func(r *flow.Reading) {
		*r = flow.Tick(*r, d.rnd)
		next = *r
	})
	return next
}

func (d *Datasource) record(ts time.Time, r flow.Reading) {
	d.traceLock.Lock()
	defer d.traceLock.Unlock()
	if d.trace == nil {
		return
	}
	if err := d.trace.Write(ts, r); err != nil {
		log.Errorf("failed recording reading, recording stopped: %v", err)
		d.trace.Close()
		d.trace = nil
	}
}

// Live emits the latest reading and then a new reading every interval until
// ctx is cancelled.
func (d *Datasource) Live(ctx context.Context) <-chan flow.Reading {
	out := make(chan flow.Reading, 1)
	out <- d.Latest()
	go func() {
		defer close(out)
		ticker := time.NewTicker(d.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if d.Paused() {
					continue
				}
				r := d.tick()
				d.record(now, r)
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Replay emits the readings of a recorded trace, one per interval. If source
// is a named file, reaching its end waits for it to grow instead of ending
// the stream. Replayed readings also become the latest reading.
func (d *Datasource) Replay(ctx context.Context, source io.ReadCloser) (<-chan flow.Reading, error) {
	trace, err := NewTraceReader(source)
	if err != nil {
		source.Close()
		return nil, err
	}
	var watcher *fsnotify.Watcher
	var target string
	if f, ok := source.(interface{ Name() string }); ok {
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			log.Warnf("failed creating file watcher, replay will not follow: %v", err)
			watcher = nil
		} else {
			target = filepath.Clean(f.Name())
			if err := watcher.Add(filepath.Dir(target)); err != nil {
				log.Warnf("failed watching %q, replay will not follow: %v", target, err)
				watcher.Close()
				watcher = nil
			}
		}
	}
	out := make(chan flow.Reading, 1)
	go func() {
		defer close(out)
		defer source.Close()
		if watcher != nil {
			defer watcher.Close()
		}
		ticker := time.NewTicker(d.opts.Interval)
		defer ticker.Stop()
		for {
			sample, err := trace.Next()
			if errors.Is(err, io.EOF) {
				if watcher == nil || !waitForWrite(ctx, watcher, target) {
					return
				}
				continue
			} else if err != nil {
				log.Warnf("skipping trace row: %v", err)
				continue
			}
			d.latest.Set(sample.Reading)
			select {
			case out <- sample.Reading:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// waitForWrite blocks until target is written to. It reports false if ctx
// ends or the watcher fails first.
func waitForWrite(ctx context.Context, watcher *fsnotify.Watcher, target string) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case err, ok := <-watcher.Errors:
			if !ok {
				return false
			}
			log.Warnf("file watcher: %v", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return false
			}
			if filepath.Clean(ev.Name) == target && ev.Has(fsnotify.Write) {
				return true
			}
		}
	}
}

// ReplayFile is a convenience wrapper that opens and replays the trace at
// path.
func (d *Datasource) ReplayFile(ctx context.Context, path string) (<-chan flow.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed opening trace: %w", err)
	}
	return d.Replay(ctx, f)
}

// CreateTrace opens a new trace file for Options.Record.
func CreateTrace(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed creating trace: %w", err)
	}
	return f, nil
}
