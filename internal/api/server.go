package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/ecs_exec_agent/internal/agent"
	"github.com/dgnsrekt/ecs_exec_agent/internal/cdpbridge"
	"github.com/dgnsrekt/ecs_exec_agent/internal/watcher"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	ListTabs(ctx context.Context) ([]cdpbridge.TabInfo, error)
	GetLocation(ctx context.Context, tabID string) (string, error)
	GetContext(ctx context.Context, tabID string) (agent.ContextResult, error)
	LocateTable(ctx context.Context, tabID string) (agent.TableSummary, error)
	Augment(ctx context.Context, tabID string) (agent.AugmentResult, error)
	ComposeLink(region, cluster, taskID, runtimeID string) (string, error)
	WatcherStatus() watcher.Status
	StartWatcher() watcher.Status
	StopWatcher() watcher.Status
}

type tabIDInput struct {
	TabID string `path:"tab_id"`
}

func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("ECS Exec Agent API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerTabHandlers(api, svc)
	registerWatchHandlers(api, svc)
	registerLinkHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *cdpbridge.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case cdpbridge.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case cdpbridge.CodeTabNotFound:
			return huma.Error404NotFound(coded.Message)
		case cdpbridge.CodeEvalTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case cdpbridge.CodeCDPUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
