// Package recorder is an optional diagnostic sidecar. It attaches to console
// tabs over chromedp, records navigation events to JSONL, and receives
// augmentation outcomes from the augmenter. Recording failures never affect
// the augmentation path.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/ecs_exec_agent/internal/augment"
	"github.com/dgnsrekt/ecs_exec_agent/internal/cdpbridge"
	"github.com/dgnsrekt/ecs_exec_agent/internal/storage"
	"github.com/google/uuid"
)

const (
	dataTypeNavigation   = "navigation"
	dataTypeAugmentation = "augmentation"
)

// Recorder manages chromedp attachments to browser tabs and the JSONL
// writers behind them.
type Recorder struct {
	cdpURL       string
	tabURLFilter string
	runID        string
	registry     *storage.WriterRegistry

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabs        map[target.ID]*tabContext
	tabsMu      sync.RWMutex
}

type tabContext struct {
	id     target.ID
	url    string
	cancel context.CancelFunc
}

func New(cdpURL, tabURLFilter string, registry *storage.WriterRegistry) *Recorder {
	return &Recorder{
		cdpURL:       cdpURL,
		tabURLFilter: tabURLFilter,
		runID:        uuid.New().String(),
		registry:     registry,
		tabs:         make(map[target.ID]*tabContext),
	}
}

// RunID identifies this recorder session in every record it writes.
func (r *Recorder) RunID() string {
	return r.runID
}

// Connect attaches to every matching page target. Unlike the augmentation
// bridge, finding zero tabs is not an error: the recorder picks up whatever
// is open and the console may not be yet.
func (r *Recorder) Connect(ctx context.Context) error {
	_ = ctx
	slog.Info("recorder connecting", "cdp_url", r.cdpURL, "run_id", r.runID)

	r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), r.cdpURL)

	tempCtx, tempCancel := chromedp.NewContext(r.allocCtx)
	defer tempCancel()

	if err := chromedp.Run(tempCtx); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return fmt.Errorf("failed to enumerate targets: %w", err)
	}

	attached := 0
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if !r.matchesTabURL(t.URL) {
			slog.Debug("recorder skipping tab (url filter)", "url", t.URL)
			continue
		}
		if err := r.attachToTab(t.TargetID, t.URL); err != nil {
			slog.Error("recorder failed to attach to tab", "target_id", t.TargetID, "url", t.URL, "error", err)
			continue
		}
		attached++
	}

	slog.Info("recorder attached", "count", attached, "tab_url_filter", r.tabURLFilter)
	return nil
}

func (r *Recorder) attachToTab(targetID target.ID, url string) error {
	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx, chromedp.WithTargetID(targetID))

	r.tabsMu.Lock()
	r.tabs[targetID] = &tabContext{id: targetID, url: url, cancel: tabCancel}
	r.tabsMu.Unlock()

	if err := chromedp.Run(tabCtx, page.Enable()); err != nil {
		tabCancel()
		r.tabsMu.Lock()
		delete(r.tabs, targetID)
		r.tabsMu.Unlock()
		return fmt.Errorf("failed to enable page domain: %w", err)
	}

	tabID := cdpbridge.TabIDFromTargetID(string(targetID))
	slog.Info("recorder attached to tab", "tab_id", tabID, "url", truncateURL(url))
	chromedp.ListenTarget(tabCtx, r.createEventHandler(tabID))

	return nil
}

func (r *Recorder) createEventHandler(tabID string) func(ev interface{}) {
	return func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame.ParentID == "" {
				r.writeNavigation(tabID, e.Frame.URL, string(e.Frame.ID), false)
			}
		case *page.EventNavigatedWithinDocument:
			r.writeNavigation(tabID, e.URL, string(e.FrameID), true)
		}
	}
}

func (r *Recorder) writeNavigation(tabID, url, frameID string, inPage bool) {
	record := storage.NavigationRecord{
		Timestamp: time.Now().UTC(),
		TabID:     tabID,
		RunID:     r.runID,
		URL:       url,
		FrameID:   frameID,
		InPage:    inPage,
	}
	if err := r.registry.GetWriter(dataTypeNavigation, tabID).Write(record); err != nil {
		slog.Debug("navigation record dropped", "tab_id", tabID, "error", err)
	}
}

// RecordAugmentation implements augment.Sink.
func (r *Recorder) RecordAugmentation(o augment.Outcome) {
	record := storage.AugmentationRecord{
		Timestamp:   o.Timestamp,
		TabID:       o.TabID,
		RunID:       r.runID,
		URL:         o.URL,
		TableIndex:  o.TableIndex,
		RowsBound:   o.RowsBound,
		RowsMissing: o.RowsMissing,
		RowsSkipped: o.RowsSkipped,
	}
	if err := r.registry.GetWriter(dataTypeAugmentation, o.TabID).Write(record); err != nil {
		slog.Debug("augmentation record dropped", "tab_id", o.TabID, "error", err)
	}
}

func (r *Recorder) Close() error {
	r.tabsMu.Lock()
	for _, tab := range r.tabs {
		tab.cancel()
	}
	r.tabs = make(map[target.ID]*tabContext)
	r.tabsMu.Unlock()

	if r.allocCancel != nil {
		r.allocCancel()
	}

	slog.Info("recorder closed", "run_id", r.runID)
	return nil
}

func (r *Recorder) GetTabCount() int {
	r.tabsMu.RLock()
	defer r.tabsMu.RUnlock()
	return len(r.tabs)
}

func (r *Recorder) matchesTabURL(url string) bool {
	if r.tabURLFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(r.tabURLFilter))
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
