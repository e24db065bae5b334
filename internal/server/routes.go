package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/escrow-admin/internal/api/v1"
	"github.com/gosuda/escrow-admin/internal/api/ws"
	"github.com/gosuda/escrow-admin/internal/domain"
	"github.com/gosuda/escrow-admin/internal/server/middleware"
)

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterRoutes(api, deps.Service, deps.Guard, deps.Audit)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub, guard middleware.PermissionChecker) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(guard, domain.PermViewAuditLogs))
		r.Get("/audit", hub.ServeAudit)
		r.Get("/audit/{kind}", hub.ServeKind)
		r.Get("/audit/{kind}/{id}", hub.ServeEntity)
	})
}
