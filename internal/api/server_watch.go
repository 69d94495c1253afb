package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/ecs_exec_agent/internal/watcher"
)

func registerWatchHandlers(api huma.API, svc Service) {
	type statusOutput struct {
		Body watcher.Status
	}

	huma.Register(api, huma.Operation{OperationID: "watcher-status", Method: http.MethodGet, Path: "/api/v1/watcher", Summary: "Get watcher status", Tags: []string{"Watcher"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			out := &statusOutput{}
			out.Body = svc.WatcherStatus()
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "watcher-start", Method: http.MethodPost, Path: "/api/v1/watcher/start", Summary: "Start the navigation watcher", Tags: []string{"Watcher"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			out := &statusOutput{}
			out.Body = svc.StartWatcher()
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "watcher-stop", Method: http.MethodPost, Path: "/api/v1/watcher/stop", Summary: "Stop the navigation watcher", Tags: []string{"Watcher"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			out := &statusOutput{}
			out.Body = svc.StopWatcher()
			return out, nil
		})
}
