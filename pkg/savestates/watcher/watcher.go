// Zaparoo Statewatch
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Statewatch.
//
// Zaparoo Statewatch is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Statewatch is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Statewatch.  If not, see <http://www.gnu.org/licenses/>.

// Package watcher observes an emulator's save state directory while a game
// is running and writes a thumbnail for every state the emulator saves.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates/screenshot"
	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Method is how an emulator puts state files on disk.
type Method int

const (
	// MethodChanged is for emulators that write states in place. Write and
	// create events are both handled.
	MethodChanged Method = iota
	// MethodCreated is for emulators that write a temporary file and rename
	// it over the state, so only create events are meaningful.
	MethodCreated
)

func (m Method) String() string {
	if m == MethodCreated {
		return "created"
	}
	return "changed"
}

func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "", "changed":
		return MethodChanged, nil
	case "created", "renamed":
		return MethodCreated, nil
	default:
		return MethodChanged, fmt.Errorf("unknown watch method: %q", s)
	}
}

func (m Method) matches(op fsnotify.Op) bool {
	if m == MethodCreated {
		return op.Has(fsnotify.Create)
	}
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create)
}

const (
	DefaultLockRetries  = 3
	DefaultLockInterval = 20 * time.Millisecond
	DefaultSettle       = time.Duration(0)
	queueSize           = 32
)

// Result describes a thumbnail written for a state.
type Result struct {
	State     savestates.State
	Thumbnail string
}

type Options struct {
	// Fs must be the OS filesystem for New to deliver events, since fsnotify
	// watches real paths. Any other Fs gives an inert Watcher.
	Fs       afero.Fs
	Clock    clockwork.Clock
	Strategy screenshot.Strategy
	// LockCheck replaces the default busy-file probe.
	LockCheck   LockFunc
	OnExtracted func(Result)
	Naming      savestates.Naming
	ROMPath     string
	// EmulatorPath is watched when neither Dir nor SharedPath is set.
	EmulatorPath  string
	SharedPath    string
	Dir           string
	ThumbnailsDir string
	Method        Method
	LockRetries   int
	LockInterval  time.Duration
	// Settle coalesces bursts of events for one file into one extraction.
	Settle time.Duration
	// ProcessPID, when set, lets the busy-file probe ask whether the
	// emulator still has the state open.
	ProcessPID int32
}

type pendingEvent struct {
	timer clockwork.Timer
	path  string
	seq   uint64
}

// Watcher produces thumbnails for save states written during one emulator
// session. A Watcher that could not start is inert: it does nothing and
// Close is a no-op.
type Watcher struct {
	ctx          context.Context
	fs           afero.Fs
	clock        clockwork.Clock
	strategy     screenshot.Strategy
	lockCheck    LockFunc
	onExtracted  func(Result)
	fsw          *fsnotify.Watcher
	pending      map[string]*pendingEvent
	seen         map[string]fingerprint
	queue        chan string
	listenerDone chan struct{}
	workerDone   chan struct{}
	naming       savestates.Naming
	romPath      string
	dir          string
	thumbsDir    string
	lockInterval time.Duration
	settle       time.Duration
	closeErr     error
	seq          uint64
	lockRetries  int
	mu           syncutil.Mutex
	closeOnce    sync.Once
	pid          atomic.Int32
	method       Method
	closed       bool
	inert        bool
}

// New starts watching the state directory for opts.ROMPath. Invalid options
// return an error; an unusable directory or watcher backend returns an
// inert Watcher instead, since missing thumbnails never block a launch.
func New(ctx context.Context, opts Options) (*Watcher, error) {
	if opts.ROMPath == "" {
		return nil, errors.New("rom path is required")
	}
	if opts.ThumbnailsDir == "" {
		return nil, errors.New("thumbnails dir is required")
	}
	if opts.Strategy == nil {
		return nil, errors.New("screenshot strategy is required")
	}

	w := newWatcher(ctx, opts)

	switch {
	case opts.Dir != "":
		w.dir = opts.Dir
	case opts.SharedPath != "":
		w.dir = opts.SharedPath
	default:
		w.dir = opts.EmulatorPath
	}
	if w.dir == "" {
		log.Warn().Msg("no state directory to watch, thumbnails disabled")
		w.inert = true
		return w, nil
	}

	if err := w.fs.MkdirAll(w.dir, 0o750); err != nil {
		log.Warn().Err(err).Msgf("cannot create state directory %s, thumbnails disabled", w.dir)
		w.inert = true
		return w, nil
	}

	if !osBacked(w.fs) {
		log.Warn().Msgf("state directory %s is not on the OS filesystem, thumbnails disabled", w.dir)
		w.inert = true
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("failed to create state watcher, thumbnails disabled")
		w.inert = true
		return w, nil
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		log.Warn().Err(err).Msgf("failed to watch %s, thumbnails disabled", w.dir)
		w.inert = true
		return w, nil
	}

	w.fsw = fsw
	w.listenerDone = make(chan struct{})
	w.startWorker()
	go w.listen()

	log.Info().Msgf("watching %s for %s states (%s)", w.dir, savestates.RomBase(w.romPath), w.method)
	return w, nil
}

func newWatcher(ctx context.Context, opts Options) *Watcher {
	w := &Watcher{
		// Close is the only stop signal for the worker. States detected before
		// the session ends still get their thumbnails.
		ctx:          context.WithoutCancel(ctx),
		fs:           opts.Fs,
		clock:        opts.Clock,
		strategy:     opts.Strategy,
		lockCheck:    opts.LockCheck,
		onExtracted:  opts.OnExtracted,
		naming:       opts.Naming,
		romPath:      opts.ROMPath,
		thumbsDir:    opts.ThumbnailsDir,
		method:       opts.Method,
		lockRetries:  opts.LockRetries,
		lockInterval: opts.LockInterval,
		settle:       opts.Settle,
		pending:      make(map[string]*pendingEvent),
		seen:         make(map[string]fingerprint),
	}
	if w.fs == nil {
		w.fs = afero.NewOsFs()
	}
	if w.clock == nil {
		w.clock = clockwork.NewRealClock()
	}
	if w.lockRetries <= 0 {
		w.lockRetries = DefaultLockRetries
	}
	if w.lockInterval <= 0 {
		w.lockInterval = DefaultLockInterval
	}
	if w.settle < 0 {
		w.settle = 0
	}
	w.pid.Store(opts.ProcessPID)
	return w
}

func osBacked(afs afero.Fs) bool {
	_, ok := afs.(*afero.OsFs)
	return ok
}

func (w *Watcher) startWorker() {
	w.queue = make(chan string, queueSize)
	w.workerDone = make(chan struct{})
	go w.work()
}

// Disabled returns an inert Watcher, for callers that cannot build valid
// Options but still want something to Close.
func Disabled() *Watcher {
	return &Watcher{inert: true}
}

// SetProcessPID attaches the emulator process once it has started, so the
// busy-file probe can check its open files.
func (w *Watcher) SetProcessPID(pid int32) {
	w.pid.Store(pid)
}

// Inert reports whether the watcher failed to start.
func (w *Watcher) Inert() bool {
	return w.inert
}

// Dir is the directory being watched.
func (w *Watcher) Dir() string {
	return w.dir
}

// Close stops listening for new events, then waits for states that were
// already detected to finish extracting. It is safe to call more than once.
func (w *Watcher) Close() error {
	if w.inert {
		return nil
	}

	w.closeOnce.Do(func() {
		if w.fsw != nil {
			if err := w.fsw.Close(); err != nil {
				w.closeErr = fmt.Errorf("failed to close state watcher: %w", err)
			}
			<-w.listenerDone
		}

		w.mu.Lock()
		w.closed = true
		for _, p := range w.drainPending() {
			w.queue <- p.path
		}
		close(w.queue)
		w.mu.Unlock()

		<-w.workerDone
		log.Debug().Msgf("stopped watching %s", w.dir)
	})

	return w.closeErr
}

// drainPending stops all settle timers and returns their events in arrival
// order. Caller must hold mu.
func (w *Watcher) drainPending() []*pendingEvent {
	events := make([]*pendingEvent, 0, len(w.pending))
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
		events = append(events, p)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].seq < events[j].seq
	})
	return events
}

func (w *Watcher) listen() {
	defer close(w.listenerDone)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.method.matches(event.Op) {
				continue
			}
			if path, ok := w.statePathFor(event.Name); ok {
				w.schedule(path)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("error in state watcher")
		}
	}
}

// statePathFor maps an event path to the state file it concerns. Side-car
// images written after the state map back to their state, so a screenshot
// that lands late still gets picked up.
func (w *Watcher) statePathFor(name string) (string, bool) {
	dir, base := filepath.Split(name)
	if _, ok := w.naming.ParseSlot(w.romPath, base); ok {
		return name, true
	}

	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == base {
		return "", false
	}
	if _, ok := w.naming.ParseSlot(w.romPath, stem); ok {
		return filepath.Join(dir, stem), true
	}
	if _, ok := w.naming.ParseSlot(w.romPath, stem+w.naming.StateExt); ok {
		return filepath.Join(dir, stem+w.naming.StateExt), true
	}
	return "", false
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.settle == 0 {
		w.queue <- path
		return
	}

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
	}
	w.seq++
	p := &pendingEvent{path: path, seq: w.seq}
	w.pending[path] = p
	p.timer = w.clock.AfterFunc(w.settle, func() {
		w.fire(p)
	})
}

func (w *Watcher) fire(p *pendingEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.pending[p.path] != p {
		return
	}
	delete(w.pending, p.path)
	w.queue <- p.path
}

func (w *Watcher) work() {
	defer close(w.workerDone)
	for path := range w.queue {
		w.process(path)
	}
}

// process runs the whole extraction for one state file. Every failure is
// logged and dropped.
func (w *Watcher) process(path string) {
	slot, ok := w.naming.ParseSlot(w.romPath, filepath.Base(path))
	if !ok {
		return
	}

	info, err := w.fs.Stat(path)
	if err != nil {
		log.Debug().Err(err).Msgf("state file gone before extraction: %s", path)
		return
	}

	check := w.lockCheck
	if check == nil {
		p := &probe{
			fs:       w.fs,
			pid:      w.pid.Load(),
			prev:     fingerprintOf(info),
			writable: osBacked(w.fs),
		}
		check = p.locked
	}
	if err := waitUnlocked(w.ctx, check, path, w.lockRetries, w.lockInterval); err != nil {
		log.Warn().Err(err).Msgf("skipping state thumbnail: %s", path)
		return
	}

	info, err = w.fs.Stat(path)
	if err != nil {
		log.Debug().Err(err).Msgf("state file gone before extraction: %s", path)
		return
	}
	fp := fingerprintOf(info)
	if prev, ok := w.seen[path]; ok && prev == fp {
		log.Debug().Msgf("state already processed: %s", path)
		return
	}

	state := savestates.State{
		ROMPath: w.romPath,
		Path:    path,
		Slot:    slot,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}

	data, err := w.strategy.Extract(w.ctx, w.fs, state)
	if err != nil {
		if errors.Is(err, screenshot.ErrNoScreenshot) {
			log.Debug().Err(err).Msgf("no thumbnail for state: %s", path)
		} else {
			log.Warn().Err(err).Msgf("failed to extract thumbnail: %s", path)
		}
		return
	}

	dest := savestates.ThumbnailPath(w.thumbsDir, w.romPath, slot)
	if err := screenshot.Save(w.fs, dest, data); err != nil {
		log.Warn().Err(err).Msgf("failed to save thumbnail: %s", dest)
		return
	}
	w.seen[path] = fp

	log.Info().Msgf("saved state thumbnail: %s", dest)
	if w.onExtracted != nil {
		w.onExtracted(Result{State: state, Thumbnail: dest})
	}
}
