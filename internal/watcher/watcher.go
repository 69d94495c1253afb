// Package watcher polls tab locations and triggers augmentation attempts
// when a tab navigates. The console is a single-page app, so navigation is
// detected by comparing location.href between polls rather than by page
// load events.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/ecs_exec_agent/internal/cdpbridge"
)

// Bridge is the subset of the CDP client the watcher needs.
type Bridge interface {
	ListTabs(ctx context.Context) ([]cdpbridge.TabInfo, error)
	CurrentLocation(ctx context.Context, tabID string) (string, error)
}

// AttemptFunc runs one augmentation attempt against a tab. It reports done
// when the attempt either succeeded or established that the page will never
// qualify, and not-done when the page is still rendering and another attempt
// is worth making.
type AttemptFunc func(ctx context.Context, tabID, url string) (done bool, err error)

type Config struct {
	// NavPollInterval is the outer location poll cadence.
	NavPollInterval time.Duration
	// TablePollInterval is the delay between attempts while waiting for a
	// table to render after a navigation.
	TablePollInterval time.Duration
	// TableMaxAttempts bounds the attempts per navigation.
	TableMaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.NavPollInterval <= 0 {
		c.NavPollInterval = 1 * time.Second
	}
	if c.TablePollInterval <= 0 {
		c.TablePollInterval = 500 * time.Millisecond
	}
	if c.TableMaxAttempts <= 0 {
		c.TableMaxAttempts = 20
	}
	return c
}

type tabState struct {
	previousLocation string
	cancelAttempt    context.CancelFunc
}

// Status is a snapshot of the watcher for the API surface.
type Status struct {
	Running     bool              `json:"running"`
	TabCount    int               `json:"tab_count"`
	TabLocation map[string]string `json:"tab_location,omitempty"`
}

type Watcher struct {
	bridge  Bridge
	attempt AttemptFunc
	cfg     Config
	log     *slog.Logger

	// sleep is swapped out by tests so attempt retries run without timers.
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	tabs    map[string]*tabState
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup
}

func New(bridge Bridge, attempt AttemptFunc, cfg Config, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		bridge:  bridge,
		attempt: attempt,
		cfg:     cfg.withDefaults(),
		log:     log,
		sleep:   sleepCtx,
		tabs:    make(map[string]*tabState),
	}
}

// Start launches the poll loop. Starting a running watcher is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.running = true
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx)
	w.log.Info("watcher started", "nav_poll_interval", w.cfg.NavPollInterval)
}

// Stop cancels the poll loop and any in-flight attempts, then waits for them.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	w.wg.Wait()
	w.log.Info("watcher stopped")
}

func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := Status{Running: w.running, TabCount: len(w.tabs)}
	if len(w.tabs) > 0 {
		st.TabLocation = make(map[string]string, len(w.tabs))
		for id, ts := range w.tabs {
			st.TabLocation[id] = ts.previousLocation
		}
	}
	return st
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	// The first poll happens immediately so a page that is already open
	// gets augmented without waiting out a full interval.
	w.pollOnce(ctx)

	ticker := time.NewTicker(w.cfg.NavPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

// pollOnce reads every matching tab's location and kicks off an attempt for
// each tab whose location changed since the previous poll. Read failures are
// soft: the tab keeps its previous state and the next tick tries again.
func (w *Watcher) pollOnce(ctx context.Context) {
	tabs, err := w.bridge.ListTabs(ctx)
	if err != nil {
		w.log.Debug("watcher tab listing failed", "error", err)
		return
	}

	seen := make(map[string]bool, len(tabs))
	for _, tab := range tabs {
		seen[tab.TabID] = true
		loc, err := w.bridge.CurrentLocation(ctx, tab.TabID)
		if err != nil {
			w.log.Debug("watcher location read failed", "tab_id", tab.TabID, "error", err)
			continue
		}
		w.noteLocation(ctx, tab.TabID, loc)
	}
	w.pruneClosed(seen)
}

// noteLocation records a tab's location and, on change, cancels any attempt
// still running for the tab before starting a fresh one. A navigation always
// supersedes the attempt it interrupted.
func (w *Watcher) noteLocation(ctx context.Context, tabID, loc string) {
	w.mu.Lock()
	ts, ok := w.tabs[tabID]
	if ok && ts.previousLocation == loc {
		w.mu.Unlock()
		return
	}
	if ok && ts.cancelAttempt != nil {
		ts.cancelAttempt()
	}
	if !ok {
		ts = &tabState{}
		w.tabs[tabID] = ts
	}
	ts.previousLocation = loc

	attemptCtx, cancel := context.WithCancel(ctx)
	ts.cancelAttempt = cancel
	w.mu.Unlock()

	w.log.Info("navigation detected", "tab_id", tabID, "url", loc)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()
		w.runAttempts(attemptCtx, tabID, loc)
	}()
}

func (w *Watcher) pruneClosed(seen map[string]bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, ts := range w.tabs {
		if seen[id] {
			continue
		}
		if ts.cancelAttempt != nil {
			ts.cancelAttempt()
		}
		delete(w.tabs, id)
	}
}

// runAttempts retries the attempt until it reports done, the attempt budget
// runs out, or the context is canceled by a newer navigation.
func (w *Watcher) runAttempts(ctx context.Context, tabID, url string) {
	for n := 1; n <= w.cfg.TableMaxAttempts; n++ {
		done, err := w.attempt(ctx, tabID, url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Debug("augmentation attempt failed", "tab_id", tabID, "attempt", n, "error", err)
		}
		if done {
			return
		}
		if n == w.cfg.TableMaxAttempts {
			w.log.Debug("augmentation attempts exhausted", "tab_id", tabID, "url", url, "attempts", n)
			return
		}
		if err := w.sleep(ctx, w.cfg.TablePollInterval); err != nil {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
