package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"attestor/internal/credential/handler/mocks"
	"attestor/internal/credential/models"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), method, path, body))
}

func credential() *models.Credential {
	return &models.Credential{
		ID:       id.NewCredentialID(),
		Type:     models.DefaultType,
		Issuer:   "did:email:issuer",
		Subject:  "did:email:subject",
		Claims:   map[string]any{"degree": "BSc"},
		IssuedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:   models.StatusActive,
	}
}

func (s *HandlerSuite) TestIssue() {
	s.Run("returns a summary without claims", func() {
		c := credential()
		s.service.EXPECT().Issue(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req *models.IssueRequest) (*models.Credential, error) {
				s.Equal("did:email:issuer", req.Issuer)
				s.Equal(models.DefaultType, req.Type)
				return c, nil
			})
		w := s.do(http.MethodPost, "/credentials", `{"issuer_did":"did:email:issuer","subject_did":"did:email:subject","claims":{"degree":"BSc"}}`)
		s.Equal(http.StatusCreated, w.Code)

		var body map[string]any
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
		s.Equal(c.ID.String(), body["id"])
		s.Equal("active", body["status"])
		s.NotContains(body, "claims")
	})

	s.Run("unresolvable issuer", func() {
		s.service.EXPECT().Issue(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidIssuer, "issuer DID could not be resolved"))
		w := s.do(http.MethodPost, "/credentials", `{"issuer_did":"did:email:issuer","subject_did":"did:email:subject"}`)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), "invalid_issuer")
	})
}

func (s *HandlerSuite) TestGet() {
	s.Run("returns the full credential", func() {
		c := credential()
		s.service.EXPECT().Get(gomock.Any(), c.ID).Return(c, nil)
		w := s.do(http.MethodGet, "/credentials/"+c.ID.String(), "")
		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"degree":"BSc"`)
	})

	s.Run("bad id", func() {
		w := s.do(http.MethodGet, "/credentials/not-a-uuid", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown id", func() {
		s.service.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeNotFound, "credential not found"))
		w := s.do(http.MethodGet, "/credentials/"+id.NewCredentialID().String(), "")
		testutil.AssertStatusAndError(s.T(), w, http.StatusNotFound, "not_found")
	})
}

func (s *HandlerSuite) TestRevoke() {
	s.Run("path id is used", func() {
		cid := id.NewCredentialID()
		s.service.EXPECT().Revoke(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req *models.RevokeRequest) (*models.RevocationReceipt, error) {
				s.Equal(cid, req.CredentialID)
				s.Equal("did:email:issuer", req.RevokedBy)
				return &models.RevocationReceipt{CredentialID: cid, Status: models.StatusRevoked}, nil
			})
		w := s.do(http.MethodPost, "/credentials/"+cid.String()+"/revoke", `{"revoked_by":"did:email:issuer"}`)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("non-issuer is forbidden", func() {
		s.service.EXPECT().Revoke(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "only the issuer can revoke a credential"))
		w := s.do(http.MethodPost, "/credentials/"+id.NewCredentialID().String()+"/revoke", `{"revoked_by":"did:email:other"}`)
		testutil.AssertStatusAndError(s.T(), w, http.StatusForbidden, "forbidden")
	})
}

func (s *HandlerSuite) TestShare() {
	cid := id.NewCredentialID()
	desc := &models.ShareDescriptor{CredentialID: cid, Token: "tok", URL: "http://x/v1/share/tok"}
	s.service.EXPECT().Share(gomock.Any(), cid).Return(desc, nil)
	w := s.do(http.MethodPost, "/credentials/"+cid.String()+"/share", "")
	s.Equal(http.StatusCreated, w.Code)
	s.Contains(w.Body.String(), "http://x/v1/share/tok")

	s.service.EXPECT().ResolveShare(gomock.Any(), "tok").Return(nil, dErrors.New(dErrors.CodeExpired, "share link has expired"))
	w = s.do(http.MethodGet, "/share/tok", "")
	s.Equal(dErrors.ToHTTPStatus(dErrors.CodeExpired), w.Code)
}
