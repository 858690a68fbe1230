package version

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "attestor/pkg/domain"
	"attestor/pkg/requestcontext"
)

func TestExtractVersion(t *testing.T) {
	var seen id.APIVersion
	h := ExtractVersion(id.APIVersionV1)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.APIVersion(r.Context())
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/did/x", nil))

	assert.Equal(t, id.APIVersionV1, seen)
	assert.Equal(t, "v1", w.Header().Get(Header))
}
