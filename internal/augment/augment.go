// Package augment turns container table rows into Session Manager links.
// It locates the containers table on a tab, collects the runtime ID cells,
// and installs click handlers on them through the CDP bridge.
package augment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgnsrekt/ecs_exec_agent/internal/cdpbridge"
	"github.com/dgnsrekt/ecs_exec_agent/internal/table"
	"github.com/dgnsrekt/ecs_exec_agent/internal/taskctx"
)

const (
	// HeaderContainerName and HeaderRuntimeID identify the containers
	// table. A table qualifies only when both headers are present.
	HeaderContainerName = "Container name"
	HeaderRuntimeID     = "Container runtime ID"

	// DefaultDestinationHost is the console host session links point at.
	DefaultDestinationHost = "console.aws.amazon.com"
)

// RequiredHeaders returns the headers a table must carry to qualify.
func RequiredHeaders() []string {
	return []string{HeaderContainerName, HeaderRuntimeID}
}

// Bridge is the subset of the CDP client the augmenter needs.
type Bridge interface {
	Tables(ctx context.Context, tabID string) ([]table.RawTable, error)
	BindRowLinks(ctx context.Context, tabID string, tokens []string, destinationHost string) (cdpbridge.BindResult, error)
}

// Outcome describes one completed augmentation pass over a tab.
type Outcome struct {
	TabID       string    `json:"tab_id"`
	URL         string    `json:"url"`
	TableIndex  int       `json:"table_index"`
	RowsBound   int       `json:"rows_bound"`
	RowsMissing int       `json:"rows_missing"`
	RowsSkipped int       `json:"rows_skipped"`
	Timestamp   time.Time `json:"timestamp"`
}

// Sink receives augmentation outcomes. Implementations must not block.
type Sink interface {
	RecordAugmentation(outcome Outcome)
}

type Augmenter struct {
	bridge          Bridge
	destinationHost string
	sink            Sink
	log             *slog.Logger
}

func New(bridge Bridge, destinationHost string, sink Sink, log *slog.Logger) *Augmenter {
	if destinationHost == "" {
		destinationHost = DefaultDestinationHost
	}
	if log == nil {
		log = slog.Default()
	}
	return &Augmenter{bridge: bridge, destinationHost: destinationHost, sink: sink, log: log}
}

// Attempt runs one augmentation pass against a tab. It reports done=false
// with a nil error when no qualifying table is on the page yet, so the
// caller can retry while the console finishes rendering. Transport errors
// are returned for the caller's retry policy.
func (a *Augmenter) Attempt(ctx context.Context, tabID, url string) (bool, error) {
	_, done, err := a.Run(ctx, tabID, url)
	return done, err
}

// Run is Attempt with the pass outcome exposed for callers that report it.
func (a *Augmenter) Run(ctx context.Context, tabID, url string) (Outcome, bool, error) {
	raw, err := a.bridge.Tables(ctx, tabID)
	if err != nil {
		return Outcome{}, false, err
	}

	parsed, ok := table.Locate(table.ParseAll(raw), RequiredHeaders())
	if !ok {
		return Outcome{}, false, nil
	}

	tokens, skipped := runtimeIDTokens(parsed)
	if len(tokens) == 0 {
		// Headers matched but no row carries a runtime ID yet. The rows
		// may still be streaming in.
		return Outcome{}, false, nil
	}

	res, err := a.bridge.BindRowLinks(ctx, tabID, tokens, a.destinationHost)
	if err != nil {
		return Outcome{}, false, err
	}

	outcome := Outcome{
		TabID:       tabID,
		URL:         url,
		TableIndex:  parsed.Index,
		RowsBound:   res.RowsBound,
		RowsMissing: res.RowsMissing,
		RowsSkipped: skipped,
		Timestamp:   time.Now().UTC(),
	}
	a.log.Info("table augmented",
		"tab_id", tabID,
		"url", url,
		"table_index", parsed.Index,
		"rows_bound", res.RowsBound,
		"rows_missing", res.RowsMissing,
		"rows_skipped", skipped,
	)
	if a.sink != nil {
		a.sink.RecordAugmentation(outcome)
	}
	return outcome, true, nil
}

// runtimeIDTokens collects the node tokens of every runtime ID cell with a
// non-empty value. Rows too short to reach the column, and rows with a blank
// runtime ID, are counted as skipped.
func runtimeIDTokens(t table.ParsedTable) (tokens []string, skipped int) {
	for _, row := range t.Rows {
		cell, ok := row[HeaderRuntimeID]
		if !ok || cell.Text == "" {
			skipped++
			continue
		}
		tokens = append(tokens, cell.NodeToken)
	}
	return tokens, skipped
}

// SessionURL composes the Session Manager deep link for an ECS Exec target.
func SessionURL(c taskctx.Context, runtimeID, destinationHost string) string {
	if destinationHost == "" {
		destinationHost = DefaultDestinationHost
	}
	return fmt.Sprintf("https://%s.%s/systems-manager/session-manager/ecs:%s_%s_%s",
		c.Region, destinationHost, c.Cluster, c.TaskID, runtimeID)
}
