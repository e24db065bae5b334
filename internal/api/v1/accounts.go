package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/escrow-admin/internal/domain"
)

type SetRoleInput struct {
	ID   uuid.UUID `path:"id" doc:"Profile ID"`
	Body struct {
		Role string `json:"role" doc:"New role: admin, moderator or user"`
	}
}

type DeactivateInput struct {
	ID uuid.UUID `path:"id" doc:"Profile ID"`
}

func RegisterAccountRoutes(api huma.API, svc AdminService) {
	huma.Register(api, huma.Operation{
		OperationID: "set-account-role",
		Method:      http.MethodPut,
		Path:        "/accounts/{id}/role",
		Summary:     "Change an account's role",
		Tags:        []string{"Accounts"},
	}, func(ctx context.Context, input *SetRoleInput) (*ActionOutput, error) {
		req, err := actorRequest(ctx, domain.KindProfiles, input.ID)
		if err != nil {
			return nil, err
		}

		role, err := domain.ParseAssignableRole(input.Body.Role)
		if err != nil {
			return nil, actionError(err)
		}

		res, err := svc.SetAccountRole(ctx, req, role)
		if err != nil {
			return nil, actionError(err)
		}
		return actionOutput(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-account",
		Method:      http.MethodPost,
		Path:        "/accounts/{id}/deactivate",
		Summary:     "Deactivate an account",
		Tags:        []string{"Accounts"},
	}, func(ctx context.Context, input *DeactivateInput) (*ActionOutput, error) {
		req, err := actorRequest(ctx, domain.KindProfiles, input.ID)
		if err != nil {
			return nil, err
		}

		res, err := svc.DeactivateAccount(ctx, req)
		if err != nil {
			return nil, actionError(err)
		}
		return actionOutput(res), nil
	})
}
