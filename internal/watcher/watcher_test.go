package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/ecs_exec_agent/internal/cdpbridge"
)

type fakeBridge struct {
	mu        sync.Mutex
	tabs      []cdpbridge.TabInfo
	locations map[string]string
	locErr    error
}

func (f *fakeBridge) ListTabs(ctx context.Context) ([]cdpbridge.TabInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cdpbridge.TabInfo(nil), f.tabs...), nil
}

func (f *fakeBridge) CurrentLocation(ctx context.Context, tabID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locErr != nil {
		return "", f.locErr
	}
	return f.locations[tabID], nil
}

func (f *fakeBridge) setLocation(tabID, loc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locations[tabID] = loc
}

type attemptRecorder struct {
	mu    sync.Mutex
	calls []string
	done  bool
	err   error
}

func (a *attemptRecorder) attempt(ctx context.Context, tabID, url string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, tabID+" "+url)
	return a.done, a.err
}

func (a *attemptRecorder) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func newTestWatcher(b Bridge, fn AttemptFunc, cfg Config) *Watcher {
	w := New(b, fn, cfg, nil)
	w.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return w
}

func TestFirstPollTriggersAttempt(t *testing.T) {
	bridge := &fakeBridge{
		tabs:      []cdpbridge.TabInfo{{TabID: "aa11bb22", URL: "https://us-east-1.console.aws.amazon.com/ecs/v2/clusters"}},
		locations: map[string]string{"aa11bb22": "https://us-east-1.console.aws.amazon.com/ecs/v2/clusters"},
	}
	rec := &attemptRecorder{done: true}
	w := newTestWatcher(bridge, rec.attempt, Config{})

	w.pollOnce(context.Background())
	w.wg.Wait()

	if got := rec.callCount(); got != 1 {
		t.Fatalf("attempts after first poll = %d; want 1", got)
	}
}

func TestUnchangedLocationDoesNotRetrigger(t *testing.T) {
	bridge := &fakeBridge{
		tabs:      []cdpbridge.TabInfo{{TabID: "aa11bb22"}},
		locations: map[string]string{"aa11bb22": "https://example/one"},
	}
	rec := &attemptRecorder{done: true}
	w := newTestWatcher(bridge, rec.attempt, Config{})

	w.pollOnce(context.Background())
	w.pollOnce(context.Background())
	w.wg.Wait()

	if got := rec.callCount(); got != 1 {
		t.Fatalf("attempts after repeat poll = %d; want 1", got)
	}
}

func TestNavigationTriggersNewAttempt(t *testing.T) {
	bridge := &fakeBridge{
		tabs:      []cdpbridge.TabInfo{{TabID: "aa11bb22"}},
		locations: map[string]string{"aa11bb22": "https://example/one"},
	}
	rec := &attemptRecorder{done: true}
	w := newTestWatcher(bridge, rec.attempt, Config{})

	w.pollOnce(context.Background())
	bridge.setLocation("aa11bb22", "https://example/two")
	w.pollOnce(context.Background())
	w.wg.Wait()

	if got := rec.callCount(); got != 2 {
		t.Fatalf("attempts after navigation = %d; want 2", got)
	}
}

func TestNavigationCancelsInFlightAttempt(t *testing.T) {
	bridge := &fakeBridge{
		tabs:      []cdpbridge.TabInfo{{TabID: "aa11bb22"}},
		locations: map[string]string{"aa11bb22": "https://example/one"},
	}

	started := make(chan struct{})
	canceled := make(chan struct{})
	var once sync.Once
	attempt := func(ctx context.Context, tabID, url string) (bool, error) {
		if url == "https://example/one" {
			once.Do(func() { close(started) })
			<-ctx.Done()
			close(canceled)
			return false, ctx.Err()
		}
		return true, nil
	}
	w := newTestWatcher(bridge, attempt, Config{})

	w.pollOnce(context.Background())
	<-started

	bridge.setLocation("aa11bb22", "https://example/two")
	w.pollOnce(context.Background())

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatalf("in-flight attempt was not canceled by new navigation")
	}
	w.wg.Wait()
}

func TestAttemptsBoundedByBudget(t *testing.T) {
	bridge := &fakeBridge{
		tabs:      []cdpbridge.TabInfo{{TabID: "aa11bb22"}},
		locations: map[string]string{"aa11bb22": "https://example/one"},
	}
	rec := &attemptRecorder{done: false}
	w := New(bridge, rec.attempt, Config{TableMaxAttempts: 3}, nil)
	w.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	w.pollOnce(context.Background())
	w.wg.Wait()

	if got := rec.callCount(); got != 3 {
		t.Fatalf("attempts = %d; want 3", got)
	}
}

func TestAttemptErrorDoesNotStopRetries(t *testing.T) {
	bridge := &fakeBridge{
		tabs:      []cdpbridge.TabInfo{{TabID: "aa11bb22"}},
		locations: map[string]string{"aa11bb22": "https://example/one"},
	}
	rec := &attemptRecorder{done: false, err: errors.New("table not rendered")}
	w := New(bridge, rec.attempt, Config{TableMaxAttempts: 2}, nil)
	w.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	w.pollOnce(context.Background())
	w.wg.Wait()

	if got := rec.callCount(); got != 2 {
		t.Fatalf("attempts = %d; want 2", got)
	}
}

func TestClosedTabIsPruned(t *testing.T) {
	bridge := &fakeBridge{
		tabs:      []cdpbridge.TabInfo{{TabID: "aa11bb22"}},
		locations: map[string]string{"aa11bb22": "https://example/one"},
	}
	rec := &attemptRecorder{done: true}
	w := newTestWatcher(bridge, rec.attempt, Config{})

	w.pollOnce(context.Background())
	if st := w.Status(); st.TabCount != 1 {
		t.Fatalf("tab count = %d; want 1", st.TabCount)
	}

	bridge.mu.Lock()
	bridge.tabs = nil
	bridge.mu.Unlock()

	w.pollOnce(context.Background())
	w.wg.Wait()
	if st := w.Status(); st.TabCount != 0 {
		t.Fatalf("tab count after close = %d; want 0", st.TabCount)
	}
}

func TestStartStop(t *testing.T) {
	bridge := &fakeBridge{locations: map[string]string{}}
	rec := &attemptRecorder{done: true}
	w := New(bridge, rec.attempt, Config{NavPollInterval: 10 * time.Millisecond}, nil)

	w.Start()
	if !w.Status().Running {
		t.Fatalf("watcher not running after Start")
	}
	w.Start() // second Start is a no-op

	w.Stop()
	if w.Status().Running {
		t.Fatalf("watcher still running after Stop")
	}
	w.Stop() // second Stop is a no-op
}
