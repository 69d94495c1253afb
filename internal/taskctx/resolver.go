// Package taskctx derives the (region, cluster, task) triple the session
// deep link needs from whichever ECS console page is currently showing.
package taskctx

import (
	"context"
	"net/url"
	"regexp"
	"strings"
)

// Context identifies one running task. Immutable once computed; callers
// recompute it per navigation and again at click time rather than caching it,
// since the console re-renders in place without navigating.
type Context struct {
	Region  string `json:"region"`
	Cluster string `json:"cluster"`
	TaskID  string `json:"task_id"`
}

// Kind classifies which console page variant a URL points at.
type Kind string

const (
	KindDetail  Kind = "detail"
	KindList    Kind = "list"
	KindUnknown Kind = "unknown"
)

const (
	// arnFieldLabel is the label of the detail-page field holding the task ARN.
	arnFieldLabel = "ARN"
	// headingPrefix marks the free-text heading above the containers table on
	// the task list variant. English-only; other console locales are out of scope.
	headingPrefix = "Containers for task "
)

var (
	detailPathPattern = regexp.MustCompile(`/ecs/v2/clusters/[^/]+/tasks/[^/?#]+`)
	listPathPattern   = regexp.MustCompile(`/ecs/v2/clusters/([^/]+)/tasks/?$`)
	headingTaskID     = regexp.MustCompile(`^Containers for task\s+(\S+)`)
)

// PageReader reads labeled values out of the live console page. The CDP
// bridge implements it; tests substitute fixtures. A (value, false, nil)
// result means the node is not present, which is an expected transient state
// and never an error.
type PageReader interface {
	DetailFieldValue(ctx context.Context, label string) (string, bool, error)
	HeadingText(ctx context.Context, prefix string) (string, bool, error)
}

// PageKind classifies a console URL. Detail wins over list: the detail path
// extends the list path, and the two strategies must stay mutually exclusive.
func PageKind(rawURL string) Kind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return KindUnknown
	}
	switch {
	case detailPathPattern.MatchString(u.Path):
		return KindDetail
	case listPathPattern.MatchString(u.Path):
		return KindList
	default:
		return KindUnknown
	}
}

// Resolve derives the task context for the page at rawURL. The bool result is
// false whenever the page shape does not yield a context: unknown URL,
// missing ARN field, missing heading, malformed identifier. Those are all
// "retry later" states for the watcher, not failures. The error is reserved
// for the transport underneath the PageReader.
func Resolve(ctx context.Context, rawURL string, page PageReader) (Context, bool, error) {
	switch PageKind(rawURL) {
	case KindDetail:
		return resolveDetail(ctx, page)
	case KindList:
		return resolveList(ctx, rawURL, page)
	default:
		return Context{}, false, nil
	}
}

func resolveDetail(ctx context.Context, page PageReader) (Context, bool, error) {
	value, found, err := page.DetailFieldValue(ctx, arnFieldLabel)
	if err != nil {
		return Context{}, false, err
	}
	if !found {
		return Context{}, false, nil
	}
	tc, ok := ParseTaskARN(value)
	if !ok {
		return Context{}, false, nil
	}
	return tc, true, nil
}

func resolveList(ctx context.Context, rawURL string, page PageReader) (Context, bool, error) {
	region, cluster, ok := splitListURL(rawURL)
	if !ok {
		return Context{}, false, nil
	}

	heading, found, err := page.HeadingText(ctx, headingPrefix)
	if err != nil {
		return Context{}, false, err
	}
	if !found {
		return Context{}, false, nil
	}
	taskID, ok := TaskIDFromHeading(heading)
	if !ok {
		return Context{}, false, nil
	}
	return Context{Region: region, Cluster: cluster, TaskID: taskID}, true, nil
}

// ParseTaskARN extracts region, cluster, and task id from a task ARN of the
// form arn:aws:ecs:<region>:<account>:task/<cluster>/<task-id>. Every other
// field is opaque and passed over unparsed.
func ParseTaskARN(arn string) (Context, bool) {
	fields := strings.Split(strings.TrimSpace(arn), ":")
	if len(fields) < 6 {
		return Context{}, false
	}
	region := fields[3]
	segments := strings.Split(fields[5], "/")
	if region == "" || len(segments) < 3 || segments[1] == "" || segments[2] == "" {
		return Context{}, false
	}
	return Context{Region: region, Cluster: segments[1], TaskID: segments[2]}, true
}

// TaskIDFromHeading isolates the task id from a containers heading.
func TaskIDFromHeading(heading string) (string, bool) {
	m := headingTaskID.FindStringSubmatch(strings.TrimSpace(heading))
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// splitListURL pulls region and cluster out of a list-page URL. The region is
// the console host's leading label; the cluster sits in the path.
func splitListURL(rawURL string) (region, cluster string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}
	host := u.Hostname()
	dot := strings.Index(host, ".")
	if dot <= 0 {
		return "", "", false
	}
	m := listPathPattern.FindStringSubmatch(u.Path)
	if len(m) < 2 {
		return "", "", false
	}
	return host[:dot], m[1], true
}
