package table

import "testing"

func cell(token, text string) Cell {
	return Cell{NodeToken: token, Text: text}
}

func TestParseMapsCellsByPosition(t *testing.T) {
	raw := RawTable{
		Index:   2,
		Headers: []string{"Container name", "Container runtime ID", "Status"},
		Rows: [][]Cell{
			{cell("t2r0c0", "web"), cell("t2r0c1", "def456"), cell("t2r0c2", "RUNNING")},
		},
	}

	parsed := Parse(raw)
	if parsed.Index != 2 {
		t.Fatalf("Parse() index = %d; want 2", parsed.Index)
	}
	if len(parsed.Rows) != 1 {
		t.Fatalf("Parse() rows = %d; want 1", len(parsed.Rows))
	}
	row := parsed.Rows[0]
	if got := row["Container name"].Text; got != "web" {
		t.Fatalf(`row["Container name"].Text = %q; want "web"`, got)
	}
	if got := row["Container runtime ID"].NodeToken; got != "t2r0c1" {
		t.Fatalf(`row["Container runtime ID"].NodeToken = %q; want "t2r0c1"`, got)
	}
	if got := row["Status"].Text; got != "RUNNING" {
		t.Fatalf(`row["Status"].Text = %q; want "RUNNING"`, got)
	}
}

func TestParseShortRowLeavesTrailingHeadersUnmapped(t *testing.T) {
	raw := RawTable{
		Headers: []string{"Container name", "Container runtime ID", "Status"},
		Rows: [][]Cell{
			{cell("c0", "web"), cell("c1", "def456")},
		},
	}

	row := Parse(raw).Rows[0]
	if _, ok := row["Status"]; ok {
		t.Fatalf("short row mapped trailing header %q; want absent", "Status")
	}
	if got := row["Container runtime ID"].Text; got != "def456" {
		t.Fatalf(`row["Container runtime ID"].Text = %q; want "def456"`, got)
	}
}

func TestParseLongRowDropsExtraCells(t *testing.T) {
	raw := RawTable{
		Headers: []string{"Container name"},
		Rows: [][]Cell{
			{cell("c0", "web"), cell("c1", "spurious")},
		},
	}

	row := Parse(raw).Rows[0]
	if len(row) != 1 {
		t.Fatalf("Parse() row size = %d; want 1", len(row))
	}
	if got := row["Container name"].Text; got != "web" {
		t.Fatalf(`row["Container name"].Text = %q; want "web"`, got)
	}
}

func TestParseDuplicateHeadersLastColumnWins(t *testing.T) {
	raw := RawTable{
		Headers: []string{"Name", "Name"},
		Rows: [][]Cell{
			{cell("c0", "first"), cell("c1", "second")},
		},
	}

	row := Parse(raw).Rows[0]
	if got := row["Name"].Text; got != "second" {
		t.Fatalf(`row["Name"].Text = %q; want "second"`, got)
	}
}

func TestParseEmptyTable(t *testing.T) {
	parsed := Parse(RawTable{Headers: []string{"A"}})
	if len(parsed.Rows) != 0 {
		t.Fatalf("Parse() rows = %d; want 0", len(parsed.Rows))
	}
}

func TestLocateReturnsFirstMatchingTable(t *testing.T) {
	required := []string{"Container name", "Container runtime ID"}
	tables := ParseAll([]RawTable{
		{Index: 0, Headers: []string{"Task", "Status"}},
		{Index: 1, Headers: []string{"Container runtime ID", "Container name", "Status"}},
		{Index: 2, Headers: []string{"Container name", "Container runtime ID"}},
	})

	got, ok := Locate(tables, required)
	if !ok {
		t.Fatalf("Locate() = not found; want table index 1")
	}
	if got.Index != 1 {
		t.Fatalf("Locate() index = %d; want 1", got.Index)
	}
}

func TestLocateSkipsTablesMissingRequiredHeaders(t *testing.T) {
	tables := ParseAll([]RawTable{
		{Headers: []string{"Container name"}},
		{Headers: []string{"Container runtime ID"}},
	})

	if _, ok := Locate(tables, []string{"Container name", "Container runtime ID"}); ok {
		t.Fatalf("Locate() found a table; want not found")
	}
}

func TestLocateNoTables(t *testing.T) {
	if _, ok := Locate(nil, []string{"Container name"}); ok {
		t.Fatalf("Locate(nil) found a table; want not found")
	}
}
