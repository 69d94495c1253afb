package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func registerLinkHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type composeLinkInput struct {
		Body struct {
			Region    string `json:"region" doc:"AWS region, e.g. us-east-1"`
			Cluster   string `json:"cluster" doc:"ECS cluster name"`
			TaskID    string `json:"task_id" doc:"ECS task ID"`
			RuntimeID string `json:"runtime_id" doc:"Container runtime ID"`
		}
	}
	type composeLinkOutput struct {
		Body struct {
			URL string `json:"url"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "compose-link", Method: http.MethodPost, Path: "/api/v1/link", Summary: "Compose a Session Manager deep link", Tags: []string{"Links"}},
		func(ctx context.Context, input *composeLinkInput) (*composeLinkOutput, error) {
			url, err := svc.ComposeLink(input.Body.Region, input.Body.Cluster, input.Body.TaskID, input.Body.RuntimeID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &composeLinkOutput{}
			out.Body.URL = url
			return out, nil
		})
}
