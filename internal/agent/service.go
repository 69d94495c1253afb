// Package agent composes the CDP bridge, the augmenter, and the navigation
// watcher behind one service the HTTP API calls into.
package agent

import (
	"context"
	"strings"

	"github.com/dgnsrekt/ecs_exec_agent/internal/augment"
	"github.com/dgnsrekt/ecs_exec_agent/internal/cdpbridge"
	"github.com/dgnsrekt/ecs_exec_agent/internal/table"
	"github.com/dgnsrekt/ecs_exec_agent/internal/taskctx"
	"github.com/dgnsrekt/ecs_exec_agent/internal/watcher"
)

// ControlBridge is the subset of the CDP client the service drives.
type ControlBridge interface {
	ListTabs(ctx context.Context) ([]cdpbridge.TabInfo, error)
	CurrentLocation(ctx context.Context, tabID string) (string, error)
	Tables(ctx context.Context, tabID string) ([]table.RawTable, error)
	DetailField(ctx context.Context, tabID, label string) (string, bool, error)
	Heading(ctx context.Context, tabID, prefix string) (string, bool, error)
	BindRowLinks(ctx context.Context, tabID string, tokens []string, destinationHost string) (cdpbridge.BindResult, error)
}

// ContextResult reports a context resolution attempt. Resolved is false when
// the page does not qualify or its fields have not rendered yet.
type ContextResult struct {
	PageKind string           `json:"page_kind"`
	Resolved bool             `json:"resolved"`
	Context  *taskctx.Context `json:"context,omitempty"`
}

// TableSummary reports a containers table lookup on a tab.
type TableSummary struct {
	Found      bool     `json:"found"`
	TableIndex int      `json:"table_index"`
	Headers    []string `json:"headers,omitempty"`
	RowCount   int      `json:"row_count"`
}

// AugmentResult reports one on-demand augmentation pass.
type AugmentResult struct {
	Augmented   bool   `json:"augmented"`
	URL         string `json:"url"`
	TableIndex  int    `json:"table_index"`
	RowsBound   int    `json:"rows_bound"`
	RowsMissing int    `json:"rows_missing"`
	RowsSkipped int    `json:"rows_skipped"`
}

// Service wraps active console augmentation operations.
type Service struct {
	bridge          ControlBridge
	augmenter       *augment.Augmenter
	watch           *watcher.Watcher
	destinationHost string
}

func NewService(bridge ControlBridge, augmenter *augment.Augmenter, watch *watcher.Watcher, destinationHost string) *Service {
	if destinationHost == "" {
		destinationHost = augment.DefaultDestinationHost
	}
	return &Service{bridge: bridge, augmenter: augmenter, watch: watch, destinationHost: destinationHost}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &cdpbridge.CodedError{Code: cdpbridge.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

func (s *Service) ListTabs(ctx context.Context) ([]cdpbridge.TabInfo, error) {
	return s.bridge.ListTabs(ctx)
}

func (s *Service) GetLocation(ctx context.Context, tabID string) (string, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return "", err
	}
	return s.bridge.CurrentLocation(ctx, strings.TrimSpace(tabID))
}

// GetContext resolves the (region, cluster, task) context for a tab from
// whatever the page shows right now. An unresolved context is a normal
// answer, not an error; errors mean the tab could not be reached.
func (s *Service) GetContext(ctx context.Context, tabID string) (ContextResult, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return ContextResult{}, err
	}
	tabID = strings.TrimSpace(tabID)

	loc, err := s.bridge.CurrentLocation(ctx, tabID)
	if err != nil {
		return ContextResult{}, err
	}

	result := ContextResult{PageKind: string(taskctx.PageKind(loc))}
	tc, ok, err := taskctx.Resolve(ctx, loc, tabPage{bridge: s.bridge, tabID: tabID})
	if err != nil {
		return ContextResult{}, err
	}
	if ok {
		result.Resolved = true
		result.Context = &tc
	}
	return result, nil
}

// LocateTable looks for a containers table on the tab. Not finding one is a
// normal answer.
func (s *Service) LocateTable(ctx context.Context, tabID string) (TableSummary, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return TableSummary{}, err
	}

	raw, err := s.bridge.Tables(ctx, strings.TrimSpace(tabID))
	if err != nil {
		return TableSummary{}, err
	}

	parsed, ok := table.Locate(table.ParseAll(raw), augment.RequiredHeaders())
	if !ok {
		return TableSummary{}, nil
	}
	return TableSummary{
		Found:      true,
		TableIndex: parsed.Index,
		Headers:    parsed.Headers,
		RowCount:   len(parsed.Rows),
	}, nil
}

// Augment runs one augmentation pass against the tab immediately, outside
// the watcher's poll cycle.
func (s *Service) Augment(ctx context.Context, tabID string) (AugmentResult, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return AugmentResult{}, err
	}
	tabID = strings.TrimSpace(tabID)

	loc, err := s.bridge.CurrentLocation(ctx, tabID)
	if err != nil {
		return AugmentResult{}, err
	}

	outcome, done, err := s.augmenter.Run(ctx, tabID, loc)
	if err != nil {
		return AugmentResult{}, err
	}
	if !done {
		return AugmentResult{URL: loc}, nil
	}
	return AugmentResult{
		Augmented:   true,
		URL:         loc,
		TableIndex:  outcome.TableIndex,
		RowsBound:   outcome.RowsBound,
		RowsMissing: outcome.RowsMissing,
		RowsSkipped: outcome.RowsSkipped,
	}, nil
}

// ComposeLink builds a Session Manager deep link from explicit parts.
func (s *Service) ComposeLink(region, cluster, taskID, runtimeID string) (string, error) {
	if err := s.requireNonEmpty(region, "region"); err != nil {
		return "", err
	}
	if err := s.requireNonEmpty(cluster, "cluster"); err != nil {
		return "", err
	}
	if err := s.requireNonEmpty(taskID, "task_id"); err != nil {
		return "", err
	}
	if err := s.requireNonEmpty(runtimeID, "runtime_id"); err != nil {
		return "", err
	}
	tc := taskctx.Context{
		Region:  strings.TrimSpace(region),
		Cluster: strings.TrimSpace(cluster),
		TaskID:  strings.TrimSpace(taskID),
	}
	return augment.SessionURL(tc, strings.TrimSpace(runtimeID), s.destinationHost), nil
}

func (s *Service) WatcherStatus() watcher.Status {
	return s.watch.Status()
}

func (s *Service) StartWatcher() watcher.Status {
	s.watch.Start()
	return s.watch.Status()
}

func (s *Service) StopWatcher() watcher.Status {
	s.watch.Stop()
	return s.watch.Status()
}

// tabPage binds a tab ID onto the bridge's page reads so the resolver can
// stay transport-agnostic.
type tabPage struct {
	bridge ControlBridge
	tabID  string
}

func (p tabPage) DetailFieldValue(ctx context.Context, label string) (string, bool, error) {
	return p.bridge.DetailField(ctx, p.tabID, label)
}

func (p tabPage) HeadingText(ctx context.Context, prefix string) (string, bool, error) {
	return p.bridge.Heading(ctx, p.tabID, prefix)
}
