package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"attestor/internal/audit"
	"attestor/internal/permission/models"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/httputil"
	"attestor/pkg/requestcontext"
)

// Service defines the permission manager operations exposed over HTTP.
type Service interface {
	Set(ctx context.Context, req *models.SetRequest) (*models.Permission, error)
	GetByDID(ctx context.Context, did string) ([]*models.Permission, error)
	Audit(ctx context.Context, filter audit.Filter) (*audit.Page, error)
	Revoke(ctx context.Context, pid id.PermissionID, by string) (*models.Permission, error)
	Update(ctx context.Context, req *models.UpdateRequest) (*models.Permission, error)
	Access(ctx context.Context, req *models.AccessRequest) (*models.AccessResult, error)
}

type Handler struct {
	permissions Service
	logger      *slog.Logger
}

func New(permissions Service, logger *slog.Logger) *Handler {
	return &Handler{permissions: permissions, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/permissions", h.handleSet)
	r.Get("/permissions/did/{did}", h.handleGetByDID)
	r.Get("/permissions/audit", h.handleAudit)
	r.Post("/permissions/{id}/revoke", h.handleRevoke)
	r.Patch("/permissions/{id}", h.handleUpdate)
	r.Post("/permissions/{id}/access", h.handleAccess)
}

type listResponse struct {
	Permissions []*models.Permission `json:"permissions"`
	Total       int                  `json:"total"`
}

type revokeRequest struct {
	RevokedBy string `json:"revoked_by"`
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.SetRequest
	if !httputil.DecodeJSON(w, r, h.logger, &req) {
		return
	}
	p, err := h.permissions.Set(ctx, &req)
	if err != nil {
		h.fail(ctx, w, "set permission failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGetByDID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, err := url.PathUnescape(chi.URLParam(r, "did"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid DID format"))
		return
	}
	list, err := h.permissions.GetByDID(ctx, did)
	if err != nil {
		h.fail(ctx, w, "permission lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Permissions: list, Total: len(list)})
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseAuditFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.permissions.Audit(ctx, filter)
	if err != nil {
		h.fail(ctx, w, "audit query failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pid, err := id.ParsePermissionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req revokeRequest
	if !httputil.DecodeJSON(w, r, h.logger, &req) {
		return
	}
	p, err := h.permissions.Revoke(ctx, pid, req.RevokedBy)
	if err != nil {
		h.fail(ctx, w, "permission revocation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pid, err := id.ParsePermissionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateRequest
	if !httputil.DecodeJSON(w, r, h.logger, &req) {
		return
	}
	req.PermissionID = pid
	p, err := h.permissions.Update(ctx, &req)
	if err != nil {
		h.fail(ctx, w, "permission update failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pid, err := id.ParsePermissionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.AccessRequest
	if !httputil.DecodeJSON(w, r, h.logger, &req) {
		return
	}
	req.PermissionID = pid
	res, err := h.permissions.Access(ctx, &req)
	if err != nil {
		h.fail(ctx, w, "permission access failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
