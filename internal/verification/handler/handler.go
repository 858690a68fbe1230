package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attestor/internal/verification"
	"attestor/pkg/platform/httputil"
)

// Service runs verifications. Failures are reported in the result, never as errors.
type Service interface {
	VerifyDID(ctx context.Context, req *verification.DIDRequest) *verification.DIDResult
	VerifyCredential(ctx context.Context, req *verification.CredentialRequest) *verification.CredentialResult
}

type Handler struct {
	verifier Service
	logger   *slog.Logger
}

func New(verifier Service, logger *slog.Logger) *Handler {
	return &Handler{verifier: verifier, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/verification/did", h.handleVerifyDID)
	r.Post("/verification/credential", h.handleVerifyCredential)
}

// A failed verification is still a successful request: the result carries the status.
func (h *Handler) handleVerifyDID(w http.ResponseWriter, r *http.Request) {
	var req verification.DIDRequest
	if !httputil.DecodeJSON(w, r, h.logger, &req) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.verifier.VerifyDID(r.Context(), &req))
}

func (h *Handler) handleVerifyCredential(w http.ResponseWriter, r *http.Request) {
	var req verification.CredentialRequest
	if !httputil.DecodeJSON(w, r, h.logger, &req) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.verifier.VerifyCredential(r.Context(), &req))
}
