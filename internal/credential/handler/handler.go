package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attestor/internal/credential/models"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/httputil"
	"attestor/pkg/requestcontext"
)

// Service defines the credential operations exposed over HTTP.
type Service interface {
	Issue(ctx context.Context, req *models.IssueRequest) (*models.Credential, error)
	Get(ctx context.Context, cid id.CredentialID) (*models.Credential, error)
	Revoke(ctx context.Context, req *models.RevokeRequest) (*models.RevocationReceipt, error)
	Share(ctx context.Context, cid id.CredentialID) (*models.ShareDescriptor, error)
	ResolveShare(ctx context.Context, token string) (*models.Credential, error)
}

type Handler struct {
	credentials Service
	logger      *slog.Logger
}

func New(credentials Service, logger *slog.Logger) *Handler {
	return &Handler{credentials: credentials, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials", h.handleIssue)
	r.Get("/credentials/{id}", h.handleGet)
	r.Post("/credentials/{id}/revoke", h.handleRevoke)
	r.Post("/credentials/{id}/share", h.handleShare)
	r.Get("/share/{token}", h.handleResolveShare)
}

// summaryResponse is the issuance response: the credential without its claims.
type summaryResponse struct {
	ID        id.CredentialID `json:"id"`
	Type      string          `json:"type"`
	Issuer    id.DID          `json:"issuer"`
	Subject   id.DID          `json:"subject"`
	IssuedAt  time.Time       `json:"issued_at"`
	ExpiresAt *time.Time      `json:"expiration_date,omitempty"`
	Status    models.Status   `json:"status"`
	Proof     models.Proof    `json:"proof"`
	AnchorRef string          `json:"anchor_ref,omitempty"`
}

func toSummary(c *models.Credential) summaryResponse {
	return summaryResponse{
		ID:        c.ID,
		Type:      c.Type,
		Issuer:    c.Issuer,
		Subject:   c.Subject,
		IssuedAt:  c.IssuedAt,
		ExpiresAt: c.ExpiresAt,
		Status:    c.Status,
		Proof:     c.Proof,
		AnchorRef: c.AnchorRef,
	}
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.IssueRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.credentials.Issue(ctx, req)
	if err != nil {
		h.fail(ctx, w, "credential issuance failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSummary(c))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cid, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.credentials.Get(ctx, cid)
	if err != nil {
		h.fail(ctx, w, "credential lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cid, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.RevokeRequest
	if !httputil.DecodeJSON(w, r, h.logger, &req) {
		return
	}
	req.CredentialID = cid
	receipt, err := h.credentials.Revoke(ctx, &req)
	if err != nil {
		h.fail(ctx, w, "credential revocation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cid, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	desc, err := h.credentials.Share(ctx, cid)
	if err != nil {
		h.fail(ctx, w, "credential share failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, desc)
}

func (h *Handler) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.credentials.ResolveShare(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.fail(ctx, w, "share resolution failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
