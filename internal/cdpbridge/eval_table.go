package cdpbridge

import "fmt"

// jsScanTables reads every table in document order. Header cells come from
// the thead row, falling back to the first row for headerless markup; that
// row then sits in the implicit tbody and must be skipped by the body scan.
// Each body cell is stamped with a token attribute so the binding pass can
// find the exact node again.
func jsScanTables() string {
	return wrapJSEval(`
var tables = document.querySelectorAll("table");
var out = [];
for (var ti = 0; ti < tables.length; ti++) {
  var t = tables[ti];
  var headers = [];
  var headerRow = null;
  var headerCells = t.querySelectorAll("thead th");
  if (headerCells.length === 0 && t.rows.length > 0) {
    headerRow = t.rows[0];
    headerCells = headerRow.cells;
  }
  for (var hi = 0; hi < headerCells.length; hi++) {
    headers.push((headerCells[hi].textContent || "").trim());
  }
  var rows = [];
  var bodyRows = t.querySelectorAll("tbody tr");
  for (var ri = 0; ri < bodyRows.length; ri++) {
    if (bodyRows[ri] === headerRow) continue;
    var cells = bodyRows[ri].cells;
    var row = [];
    for (var ci = 0; ci < cells.length; ci++) {
      var token = "t" + ti + "r" + ri + "c" + ci;
      cells[ci].setAttribute("`+cellTokenAttr+`", token);
      row.push({node_token: token, text: (cells[ci].textContent || "").trim()});
    }
    rows.push(row);
  }
  out.push({index: ti, headers: headers, rows: rows});
}
return JSON.stringify({ok:true,data:{tables:out}});
`)
}

// jsBindRowLinks styles each addressed cell as clickable and assigns its
// click handler. The handler re-resolves the task context and re-reads the
// cell text when the click happens; nothing about the page is captured at
// bind time. Assignment to the onclick slot (rather than addEventListener)
// makes repeat binding idempotent: the new handler replaces the old one.
func jsBindRowLinks(tokens []string, destinationHost string) string {
	return wrapJSEval(fmt.Sprintf(jsContextHelpers+`
var tokens = %s;
var host = %s;
var bound = 0;
var missing = 0;
for (var i = 0; i < tokens.length; i++) {
  var cell = document.querySelector('[`+cellTokenAttr+`="' + tokens[i] + '"]');
  if (!cell) { missing++; continue; }
  cell.style.cursor = "pointer";
  cell.style.textDecoration = "underline";
  cell.onclick = function() {
    var ctx = _taskContext();
    if (!ctx) return;
    var runtimeId = (this.textContent || "").trim();
    if (!runtimeId) return;
    window.open(_sessionUrl(ctx, runtimeId, host), "_blank");
  };
  bound++;
}
return JSON.stringify({ok:true,data:{rows_bound:bound,rows_missing:missing}});
`, jsJSON(tokens), jsString(destinationHost)))
}
