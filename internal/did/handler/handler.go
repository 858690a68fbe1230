package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"attestor/internal/did/models"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/httputil"
	"attestor/pkg/requestcontext"
)

// Service defines the registry operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Record, error)
	Recover(ctx context.Context, req *models.RecoverRequest) (*models.Record, error)
	PublicInfo(ctx context.Context, did id.DID) (*models.PublicInfo, *models.Document, error)
	RotateKey(ctx context.Context, did id.DID) (*models.Document, error)
}

// Handler serves the DID registry routes.
type Handler struct {
	registry Service
	logger   *slog.Logger
}

func New(registry Service, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// Register adds the routes under r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/did/register", h.handleRegister)
	r.Post("/did/recover", h.handleRecover)
	r.Get("/did/{did}", h.handleInfo)
	r.Post("/did/{did}/rotate", h.handleRotate)
}

type documentResponse struct {
	DID      id.DID           `json:"did"`
	Document *models.Document `json:"did_document"`
}

type infoResponse struct {
	Info     *models.PublicInfo `json:"did_info"`
	Document *models.Document   `json:"did_document"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.registry.Register(ctx, req)
	if err != nil {
		h.fail(ctx, w, "did registration failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, documentResponse{DID: rec.Info.DID, Document: rec.Document})
}

func (h *Handler) handleRecover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RecoverRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.registry.Recover(ctx, req)
	if err != nil {
		h.fail(ctx, w, "did recovery failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, documentResponse{DID: rec.Info.DID, Document: rec.Document})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, err := didParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	info, doc, err := h.registry.PublicInfo(ctx, did)
	if err != nil {
		h.fail(ctx, w, "did lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, infoResponse{Info: info, Document: doc})
}

func (h *Handler) handleRotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, err := didParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.registry.RotateKey(ctx, did)
	if err != nil {
		h.fail(ctx, w, "did key rotation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, documentResponse{DID: did, Document: doc})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}

// didParam reads the {did} path segment. Clients may percent-encode the colons.
func didParam(r *http.Request) (id.DID, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "did"))
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid DID format")
	}
	return id.ParseDIDSyntax(raw)
}
