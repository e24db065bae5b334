package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/escrow-admin/internal/audit"
	"github.com/gosuda/escrow-admin/internal/domain"
)

// AuditEntry is an audit record with the result of re-checking its digest.
type AuditEntry struct {
	domain.AuditRecord
	Verified bool `json:"verified" doc:"Whether the stored digest still matches the record"`
}

type ListAuditInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Records to skip"`
}

type ListAuditOutput struct {
	Body []AuditEntry
}

type GetAuditInput struct {
	ID uuid.UUID `path:"id" doc:"Audit record ID"`
}

type GetAuditOutput struct {
	Body AuditEntry
}

type EntityHistoryInput struct {
	EntityPath
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Page size"`
}

func entries(recs []*domain.AuditRecord) []AuditEntry {
	out := make([]AuditEntry, 0, len(recs))
	for _, r := range recs {
		out = append(out, AuditEntry{AuditRecord: *r, Verified: audit.Verify(r)})
	}
	return out
}

func RegisterAuditRoutes(api huma.API, guard PermissionChecker, reader AuditReader) {
	authorize := func(ctx context.Context) error {
		req, err := actorRequest(ctx, domain.KindAuditLogs, uuid.Nil)
		if err != nil {
			return err
		}
		if _, err := guard.RequirePermission(ctx, req.ActorID, domain.PermViewAuditLogs); err != nil {
			return actionError(err)
		}
		return nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-audit",
		Method:      http.MethodGet,
		Path:        "/audit",
		Summary:     "List audit records, newest first",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *ListAuditInput) (*ListAuditOutput, error) {
		if err := authorize(ctx); err != nil {
			return nil, err
		}

		recs, err := reader.List(ctx, input.Limit, input.Offset)
		if err != nil {
			return nil, actionError(err)
		}
		return &ListAuditOutput{Body: entries(recs)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-audit",
		Method:      http.MethodGet,
		Path:        "/audit/{id}",
		Summary:     "Get an audit record",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *GetAuditInput) (*GetAuditOutput, error) {
		if err := authorize(ctx); err != nil {
			return nil, err
		}

		rec, err := reader.Get(ctx, input.ID)
		if err != nil {
			return nil, actionError(err)
		}
		return &GetAuditOutput{Body: AuditEntry{AuditRecord: *rec, Verified: audit.Verify(rec)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "entity-history",
		Method:      http.MethodGet,
		Path:        "/audit/entities/{kind}/{id}",
		Summary:     "List audit records for one entity",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *EntityHistoryInput) (*ListAuditOutput, error) {
		kind, err := parseKind(input.EntityPath)
		if err != nil {
			return nil, err
		}
		if err := authorize(ctx); err != nil {
			return nil, err
		}

		recs, err := reader.ListByEntity(ctx, kind, input.ID, input.Limit)
		if err != nil {
			return nil, actionError(err)
		}
		return &ListAuditOutput{Body: entries(recs)}, nil
	})
}

// RegisterRoutes mounts every v1 operation.
func RegisterRoutes(api huma.API, svc AdminService, guard PermissionChecker, reader AuditReader) {
	RegisterEntityRoutes(api, svc)
	RegisterTransactionRoutes(api, svc)
	RegisterAccountRoutes(api, svc)
	RegisterAuditRoutes(api, guard, reader)
}
