package taskctx

import (
	"context"
	"errors"
	"testing"
)

// fakePage is a PageReader backed by canned values.
type fakePage struct {
	detailValue string
	detailFound bool
	heading     string
	headingOK   bool
	err         error
}

func (f *fakePage) DetailFieldValue(_ context.Context, label string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	if label != "ARN" {
		return "", false, nil
	}
	return f.detailValue, f.detailFound, nil
}

func (f *fakePage) HeadingText(_ context.Context, _ string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	return f.heading, f.headingOK, nil
}

func TestParseTaskARN(t *testing.T) {
	tests := []struct {
		name string
		arn  string
		want Context
		ok   bool
	}{
		{
			name: "canonical task arn",
			arn:  "arn:aws:ecs:us-east-1:123456789012:task/my-cluster/abc123",
			want: Context{Region: "us-east-1", Cluster: "my-cluster", TaskID: "abc123"},
			ok:   true,
		},
		{
			name: "surrounding whitespace",
			arn:  "  arn:aws:ecs:eu-west-1:123456789012:task/prod/deadbeef\n",
			want: Context{Region: "eu-west-1", Cluster: "prod", TaskID: "deadbeef"},
			ok:   true,
		},
		{name: "too few fields", arn: "arn:aws:ecs:us-east-1", ok: false},
		{name: "legacy two-segment resource", arn: "arn:aws:ecs:us-east-1:123456789012:task/abc123", ok: false},
		{name: "empty region", arn: "arn:aws:ecs::123456789012:task/my-cluster/abc123", ok: false},
		{name: "empty string", arn: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTaskARN(tt.arn)
			if ok != tt.ok {
				t.Fatalf("ParseTaskARN(%q) ok = %v; want %v", tt.arn, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("ParseTaskARN(%q) = %+v; want %+v", tt.arn, got, tt.want)
			}
		})
	}
}

func TestPageKind(t *testing.T) {
	tests := []struct {
		url  string
		want Kind
	}{
		{"https://us-east-1.console.aws.amazon.com/ecs/v2/clusters/prod/tasks/abc123", KindDetail},
		{"https://us-east-1.console.aws.amazon.com/ecs/v2/clusters/prod/tasks/abc123/configuration", KindDetail},
		{"https://us-west-2.console.example.com/ecs/v2/clusters/prod/tasks", KindList},
		{"https://us-west-2.console.example.com/ecs/v2/clusters/prod/tasks/", KindList},
		{"https://us-east-1.console.aws.amazon.com/ecs/v2/clusters", KindUnknown},
		{"https://example.com/totally/elsewhere", KindUnknown},
		{"://not a url", KindUnknown},
	}

	for _, tt := range tests {
		if got := PageKind(tt.url); got != tt.want {
			t.Fatalf("PageKind(%q) = %q; want %q", tt.url, got, tt.want)
		}
	}
}

func TestResolveDetailPage(t *testing.T) {
	page := &fakePage{
		detailValue: "arn:aws:ecs:us-east-1:123456789012:task/my-cluster/abc123",
		detailFound: true,
	}
	got, ok, err := Resolve(context.Background(), "https://us-east-1.console.aws.amazon.com/ecs/v2/clusters/my-cluster/tasks/abc123", page)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !ok {
		t.Fatalf("Resolve() = unavailable; want context")
	}
	want := Context{Region: "us-east-1", Cluster: "my-cluster", TaskID: "abc123"}
	if got != want {
		t.Fatalf("Resolve() = %+v; want %+v", got, want)
	}
}

func TestResolveDetailPageMissingARNFieldIsSoft(t *testing.T) {
	page := &fakePage{detailFound: false}
	_, ok, err := Resolve(context.Background(), "https://us-east-1.console.aws.amazon.com/ecs/v2/clusters/c/tasks/t1", page)
	if err != nil {
		t.Fatalf("Resolve() error = %v; want nil", err)
	}
	if ok {
		t.Fatalf("Resolve() = available; want unavailable")
	}
}

func TestResolveListPage(t *testing.T) {
	page := &fakePage{heading: "Containers for task abc123", headingOK: true}
	got, ok, err := Resolve(context.Background(), "https://us-west-2.console.example.com/ecs/v2/clusters/prod/tasks", page)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !ok {
		t.Fatalf("Resolve() = unavailable; want context")
	}
	want := Context{Region: "us-west-2", Cluster: "prod", TaskID: "abc123"}
	if got != want {
		t.Fatalf("Resolve() = %+v; want %+v", got, want)
	}
}

func TestResolveListPageMissingHeadingIsSoft(t *testing.T) {
	page := &fakePage{headingOK: false}
	_, ok, err := Resolve(context.Background(), "https://us-west-2.console.example.com/ecs/v2/clusters/prod/tasks", page)
	if err != nil {
		t.Fatalf("Resolve() error = %v; want nil", err)
	}
	if ok {
		t.Fatalf("Resolve() = available; want unavailable")
	}
}

func TestResolveUnknownPageIsSoft(t *testing.T) {
	_, ok, err := Resolve(context.Background(), "https://example.com/elsewhere", &fakePage{})
	if err != nil {
		t.Fatalf("Resolve() error = %v; want nil", err)
	}
	if ok {
		t.Fatalf("Resolve() = available; want unavailable")
	}
}

func TestResolvePropagatesTransportError(t *testing.T) {
	wantErr := errors.New("cdp down")
	page := &fakePage{err: wantErr}
	_, _, err := Resolve(context.Background(), "https://us-east-1.console.aws.amazon.com/ecs/v2/clusters/c/tasks/t1", page)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Resolve() error = %v; want %v", err, wantErr)
	}
}

func TestTaskIDFromHeading(t *testing.T) {
	tests := []struct {
		heading string
		want    string
		ok      bool
	}{
		{"Containers for task abc123", "abc123", true},
		{"  Containers for task abc123  ", "abc123", true},
		{"Containers for task abc123 (3)", "abc123", true},
		{"Containers", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := TaskIDFromHeading(tt.heading)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("TaskIDFromHeading(%q) = %q, %v; want %q, %v", tt.heading, got, ok, tt.want, tt.ok)
		}
	}
}
