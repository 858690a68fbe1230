// Package version tags requests with the API version of the route that matched.
package version

import (
	"net/http"

	id "attestor/pkg/domain"
	"attestor/pkg/requestcontext"
)

const Header = "API-Version"

// ExtractVersion sets the route version in context and echoes it as a response header.
//
//	r.Route("/v1", func(v1 chi.Router) {
//	    v1.Use(version.ExtractVersion(id.APIVersionV1))
//	})
func ExtractVersion(version id.APIVersion) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(Header, version.String())
			ctx := requestcontext.WithAPIVersion(r.Context(), version)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
