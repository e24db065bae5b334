package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/escrow-admin/internal/domain"
)

type EntityPath struct {
	Kind string    `path:"kind" doc:"Entity kind: profiles, transactions, escrow_transactions, disputes, audit_logs or verification_queue"`
	ID   uuid.UUID `path:"id" doc:"Entity ID"`
}

type GetEntityInput struct {
	EntityPath
}

type GetEntityOutput struct {
	Body domain.Snapshot
}

type UpdateEntityInput struct {
	EntityPath
	Body map[string]any `doc:"Columns to change; id, created_at and updated_at are ignored"`
}

type DeleteEntityInput struct {
	EntityPath
}

// parseKind validates the kind before anything is looked up.
func parseKind(p EntityPath) (domain.EntityKind, error) {
	kind, err := domain.ParseEntityKind(p.Kind)
	if err != nil {
		return "", actionError(err)
	}
	return kind, nil
}

func RegisterEntityRoutes(api huma.API, svc AdminService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-entity",
		Method:      http.MethodGet,
		Path:        "/entities/{kind}/{id}",
		Summary:     "Get an entity",
		Tags:        []string{"Entities"},
	}, func(ctx context.Context, input *GetEntityInput) (*GetEntityOutput, error) {
		kind, err := parseKind(input.EntityPath)
		if err != nil {
			return nil, err
		}
		req, err := actorRequest(ctx, kind, input.ID)
		if err != nil {
			return nil, err
		}

		snap, err := svc.GetEntity(ctx, req)
		if err != nil {
			return nil, actionError(err)
		}
		return &GetEntityOutput{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-entity",
		Method:      http.MethodPatch,
		Path:        "/entities/{kind}/{id}",
		Summary:     "Update entity columns",
		Tags:        []string{"Entities"},
	}, func(ctx context.Context, input *UpdateEntityInput) (*ActionOutput, error) {
		kind, err := parseKind(input.EntityPath)
		if err != nil {
			return nil, err
		}
		req, err := actorRequest(ctx, kind, input.ID)
		if err != nil {
			return nil, err
		}

		res, err := svc.UpdateEntity(ctx, req, domain.Fields(input.Body))
		if err != nil {
			return nil, actionError(err)
		}
		return actionOutput(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-entity",
		Method:      http.MethodDelete,
		Path:        "/entities/{kind}/{id}",
		Summary:     "Delete an entity",
		Description: "Profiles are deactivated rather than removed. Audit records cannot be deleted.",
		Tags:        []string{"Entities"},
	}, func(ctx context.Context, input *DeleteEntityInput) (*ActionOutput, error) {
		kind, err := parseKind(input.EntityPath)
		if err != nil {
			return nil, err
		}
		req, err := actorRequest(ctx, kind, input.ID)
		if err != nil {
			return nil, err
		}

		res, err := svc.DeleteEntity(ctx, req)
		if err != nil {
			return nil, actionError(err)
		}
		return actionOutput(res), nil
	})
}
