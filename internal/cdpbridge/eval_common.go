package cdpbridge

import "encoding/json"

// cellTokenAttr is the attribute the table scan stamps onto every cell so a
// later binding pass can address the same node without re-walking the table.
const cellTokenAttr = "data-eea-cell"

// jsContextHelpers provides _fieldValue, _headingText, _taskContext, and
// _sessionUrl, the in-page mirror of the Go-side context resolution. The
// click handlers installed by jsBindRowLinks call _taskContext at click time,
// not at bind time: the console re-renders in place without navigating, and a
// link must reflect whatever the page says at the moment of interaction.
const jsContextHelpers = `
function _fieldValue(label) {
  var nodes = document.querySelectorAll("div, dt, span, label, th");
  for (var i = 0; i < nodes.length; i++) {
    if ((nodes[i].textContent || "").trim() !== label) continue;
    var sib = nodes[i].nextElementSibling;
    if (sib) {
      var v = (sib.textContent || "").trim();
      if (v) return v;
    }
  }
  return null;
}
function _headingText(prefix) {
  var hs = document.querySelectorAll("h1, h2, h3, h4");
  for (var i = 0; i < hs.length; i++) {
    var t = (hs[i].textContent || "").trim();
    if (t.indexOf(prefix) === 0) return t;
  }
  return null;
}
function _taskContext() {
  var path = location.pathname;
  if (/\/ecs\/v2\/clusters\/[^\/]+\/tasks\/[^\/?#]+/.test(path)) {
    var arn = _fieldValue("ARN");
    if (!arn) return null;
    var fields = arn.split(":");
    if (fields.length < 6 || !fields[3]) return null;
    var segs = fields[5].split("/");
    if (segs.length < 3 || !segs[1] || !segs[2]) return null;
    return {region: fields[3], cluster: segs[1], task: segs[2]};
  }
  var m = path.match(/\/ecs\/v2\/clusters\/([^\/]+)\/tasks\/?$/);
  if (m) {
    var region = location.hostname.split(".")[0];
    if (!region) return null;
    var h = _headingText("Containers for task ");
    if (!h) return null;
    var tm = h.match(/^Containers for task\s+(\S+)/);
    if (!tm) return null;
    return {region: region, cluster: m[1], task: tm[1]};
  }
  return null;
}
function _sessionUrl(ctx, runtimeId, host) {
  return "https://" + ctx.region + "." + host + "/systems-manager/session-manager/" +
    "ecs:" + ctx.cluster + "_" + ctx.task + "_" + runtimeId;
}
`

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func jsJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// wrapJSEval wraps an eval body in an IIFE that converts any thrown error
// into the standard failure envelope.
func wrapJSEval(body string) string {
	return `(function(){
try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}
