package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/ecs_exec_agent/internal/agent"
	"github.com/dgnsrekt/ecs_exec_agent/internal/cdpbridge"
)

func registerTabHandlers(api huma.API, svc Service) {
	type listTabsOutput struct {
		Body struct {
			Tabs []cdpbridge.TabInfo `json:"tabs"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List console tabs", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*listTabsOutput, error) {
			tabs, err := svc.ListTabs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listTabsOutput{}
			out.Body.Tabs = tabs
			if out.Body.Tabs == nil {
				out.Body.Tabs = []cdpbridge.TabInfo{}
			}
			return out, nil
		})

	type locationOutput struct {
		Body struct {
			TabID    string `json:"tab_id"`
			Location string `json:"location"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-location", Method: http.MethodGet, Path: "/api/v1/tabs/{tab_id}/location", Summary: "Get tab location", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIDInput) (*locationOutput, error) {
			loc, err := svc.GetLocation(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &locationOutput{}
			out.Body.TabID = input.TabID
			out.Body.Location = loc
			return out, nil
		})

	type contextOutput struct {
		Body agent.ContextResult
	}
	huma.Register(api, huma.Operation{OperationID: "get-task-context", Method: http.MethodGet, Path: "/api/v1/tabs/{tab_id}/context", Summary: "Resolve task context from the page", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIDInput) (*contextOutput, error) {
			result, err := svc.GetContext(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &contextOutput{}
			out.Body = result
			return out, nil
		})

	type tableOutput struct {
		Body agent.TableSummary
	}
	huma.Register(api, huma.Operation{OperationID: "locate-table", Method: http.MethodGet, Path: "/api/v1/tabs/{tab_id}/table", Summary: "Locate the containers table", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIDInput) (*tableOutput, error) {
			summary, err := svc.LocateTable(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &tableOutput{}
			out.Body = summary
			return out, nil
		})

	type augmentOutput struct {
		Body agent.AugmentResult
	}
	huma.Register(api, huma.Operation{OperationID: "augment-tab", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/augment", Summary: "Run one augmentation pass now", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIDInput) (*augmentOutput, error) {
			result, err := svc.Augment(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &augmentOutput{}
			out.Body = result
			return out, nil
		})
}
