package augment

import (
	"context"
	"errors"
	"testing"

	"github.com/dgnsrekt/ecs_exec_agent/internal/cdpbridge"
	"github.com/dgnsrekt/ecs_exec_agent/internal/table"
	"github.com/dgnsrekt/ecs_exec_agent/internal/taskctx"
)

type fakeBridge struct {
	tables    []table.RawTable
	tablesErr error

	bindTokens []string
	bindHost   string
	bindResult cdpbridge.BindResult
	bindErr    error
	bindCalls  int
}

func (f *fakeBridge) Tables(ctx context.Context, tabID string) ([]table.RawTable, error) {
	return f.tables, f.tablesErr
}

func (f *fakeBridge) BindRowLinks(ctx context.Context, tabID string, tokens []string, host string) (cdpbridge.BindResult, error) {
	f.bindCalls++
	f.bindTokens = tokens
	f.bindHost = host
	return f.bindResult, f.bindErr
}

type sinkRecorder struct {
	outcomes []Outcome
}

func (s *sinkRecorder) RecordAugmentation(o Outcome) { s.outcomes = append(s.outcomes, o) }

func containersTable(index int) table.RawTable {
	return table.RawTable{
		Index:   index,
		Headers: []string{HeaderContainerName, "Status", HeaderRuntimeID},
		Rows: [][]table.Cell{
			{{NodeToken: "t0r0c0", Text: "web"}, {NodeToken: "t0r0c1", Text: "RUNNING"}, {NodeToken: "t0r0c2", Text: "runtime-a"}},
			{{NodeToken: "t0r1c0", Text: "sidecar"}, {NodeToken: "t0r1c1", Text: "RUNNING"}, {NodeToken: "t0r1c2", Text: "runtime-b"}},
		},
	}
}

func TestAttemptBindsRuntimeIDCells(t *testing.T) {
	bridge := &fakeBridge{
		tables:     []table.RawTable{containersTable(0)},
		bindResult: cdpbridge.BindResult{RowsBound: 2},
	}
	sink := &sinkRecorder{}
	a := New(bridge, "", sink, nil)

	done, err := a.Attempt(context.Background(), "aa11bb22", "https://example/tasks/abc")
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}
	if !done {
		t.Fatalf("Attempt() done = false; want true")
	}
	if len(bridge.bindTokens) != 2 || bridge.bindTokens[0] != "t0r0c2" || bridge.bindTokens[1] != "t0r1c2" {
		t.Fatalf("bound tokens = %v; want runtime ID column tokens", bridge.bindTokens)
	}
	if bridge.bindHost != DefaultDestinationHost {
		t.Fatalf("destination host = %q; want %q", bridge.bindHost, DefaultDestinationHost)
	}
	if len(sink.outcomes) != 1 || sink.outcomes[0].RowsBound != 2 {
		t.Fatalf("sink outcomes = %+v; want one outcome with 2 rows bound", sink.outcomes)
	}
}

func TestAttemptNoQualifyingTableIsNotDone(t *testing.T) {
	bridge := &fakeBridge{
		tables: []table.RawTable{{
			Index:   0,
			Headers: []string{"Name", "Status"},
			Rows:    [][]table.Cell{{{NodeToken: "t0r0c0", Text: "web"}, {NodeToken: "t0r0c1", Text: "RUNNING"}}},
		}},
	}
	a := New(bridge, "", nil, nil)

	done, err := a.Attempt(context.Background(), "aa11bb22", "https://example")
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}
	if done {
		t.Fatalf("Attempt() done = true without a qualifying table")
	}
	if bridge.bindCalls != 0 {
		t.Fatalf("bind called %d times; want 0", bridge.bindCalls)
	}
}

func TestAttemptSkipsRowsWithoutRuntimeID(t *testing.T) {
	tbl := containersTable(0)
	tbl.Rows = append(tbl.Rows,
		[]table.Cell{{NodeToken: "t0r2c0", Text: "init"}, {NodeToken: "t0r2c1", Text: "STOPPED"}, {NodeToken: "t0r2c2", Text: ""}},
		[]table.Cell{{NodeToken: "t0r3c0", Text: "short"}},
	)
	bridge := &fakeBridge{tables: []table.RawTable{tbl}, bindResult: cdpbridge.BindResult{RowsBound: 2}}
	sink := &sinkRecorder{}
	a := New(bridge, "", sink, nil)

	done, err := a.Attempt(context.Background(), "aa11bb22", "https://example")
	if err != nil || !done {
		t.Fatalf("Attempt() = (%v, %v); want (true, nil)", done, err)
	}
	if len(bridge.bindTokens) != 2 {
		t.Fatalf("bound tokens = %v; want only rows with runtime IDs", bridge.bindTokens)
	}
	if sink.outcomes[0].RowsSkipped != 2 {
		t.Fatalf("rows skipped = %d; want 2", sink.outcomes[0].RowsSkipped)
	}
}

func TestAttemptEmptyRuntimeColumnIsNotDone(t *testing.T) {
	tbl := table.RawTable{
		Index:   0,
		Headers: []string{HeaderContainerName, HeaderRuntimeID},
		Rows:    [][]table.Cell{{{NodeToken: "t0r0c0", Text: "web"}, {NodeToken: "t0r0c1", Text: ""}}},
	}
	bridge := &fakeBridge{tables: []table.RawTable{tbl}}
	a := New(bridge, "", nil, nil)

	done, err := a.Attempt(context.Background(), "aa11bb22", "https://example")
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}
	if done || bridge.bindCalls != 0 {
		t.Fatalf("Attempt() = done=%v bindCalls=%d; want retryable no-op", done, bridge.bindCalls)
	}
}

func TestAttemptPropagatesTransportErrors(t *testing.T) {
	wantErr := errors.New("tab gone")
	bridge := &fakeBridge{tablesErr: wantErr}
	a := New(bridge, "", nil, nil)

	done, err := a.Attempt(context.Background(), "aa11bb22", "https://example")
	if done || !errors.Is(err, wantErr) {
		t.Fatalf("Attempt() = (%v, %v); want (false, %v)", done, err, wantErr)
	}
}

func TestSessionURL(t *testing.T) {
	ctx := taskctx.Context{Region: "us-west-2", Cluster: "prod", TaskID: "abc123"}

	got := SessionURL(ctx, "runtime-a", "")
	want := "https://us-west-2.console.aws.amazon.com/systems-manager/session-manager/ecs:prod_abc123_runtime-a"
	if got != want {
		t.Fatalf("SessionURL() = %q; want %q", got, want)
	}

	got = SessionURL(ctx, "runtime-a", "console.amazonaws.cn")
	want = "https://us-west-2.console.amazonaws.cn/systems-manager/session-manager/ecs:prod_abc123_runtime-a"
	if got != want {
		t.Fatalf("SessionURL() with host override = %q; want %q", got, want)
	}

	ctx = taskctx.Context{Region: "us-east-1", Cluster: "my-cluster", TaskID: "abc123"}
	got = SessionURL(ctx, "def456", DefaultDestinationHost)
	want = "https://us-east-1.console.aws.amazon.com/systems-manager/session-manager/ecs:my-cluster_abc123_def456"
	if got != want {
		t.Fatalf("SessionURL() = %q; want %q", got, want)
	}
}
