// Package table converts raw table grids scraped from the console DOM into
// header-keyed records and locates the containers table among them.
package table

// Cell is a single table cell: its text at scan time plus the node token the
// scan script stamped onto the live element. The token, not the text, is what
// later mutations (styling, handler binding) address, so the text may go stale
// without invalidating the cell.
type Cell struct {
	NodeToken string `json:"node_token"`
	Text      string `json:"text"`
}

// Row maps a header name to the cell under it. Headers with no cell in a
// short row are simply absent.
type Row map[string]Cell

// RawTable is the scan script's view of one table: header texts in document
// order and body rows as positional cell grids.
type RawTable struct {
	Index   int      `json:"index"`
	Headers []string `json:"headers"`
	Rows    [][]Cell `json:"rows"`
}

// ParsedTable is a RawTable with rows keyed by header name.
type ParsedTable struct {
	Index   int
	Headers []string
	Rows    []Row
}

// Parse maps each body row's cells to header names by position. Rows shorter
// than the header count leave trailing headers unmapped; rows longer than the
// header count drop the extras. Duplicate header names are not rejected; the
// last column with a given name wins. Malformed input degrades to partial
// records rather than failing, because the console markup is not ours and
// partial renders are routine.
func Parse(raw RawTable) ParsedTable {
	parsed := ParsedTable{
		Index:   raw.Index,
		Headers: raw.Headers,
		Rows:    make([]Row, 0, len(raw.Rows)),
	}
	for _, cells := range raw.Rows {
		row := make(Row, len(raw.Headers))
		for i, header := range raw.Headers {
			if i >= len(cells) {
				break
			}
			row[header] = cells[i]
		}
		parsed.Rows = append(parsed.Rows, row)
	}
	return parsed
}

// ParseAll parses every scanned table in order.
func ParseAll(raws []RawTable) []ParsedTable {
	out := make([]ParsedTable, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Parse(raw))
	}
	return out
}

// Locate returns the first table whose headers contain every name in
// required. A miss is not an error: while the console is still rendering, no
// table matching is the expected state, so callers re-scan and retry.
func Locate(tables []ParsedTable, required []string) (ParsedTable, bool) {
	for _, t := range tables {
		if hasAllHeaders(t.Headers, required) {
			return t, true
		}
	}
	return ParsedTable{}, false
}

func hasAllHeaders(headers, required []string) bool {
	for _, want := range required {
		found := false
		for _, h := range headers {
			if h == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
