package router

import (
	"net/http"

	httpmiddleware "github.com/sirahlabs/smartchat/internal/http/middleware"
)

// scopeToAdminBusiness pins the business query parameter to the one named
// in the admin token, so a business-scoped token only sees its own leads.
// Tokens without a business claim are unrestricted.
func scopeToAdminBusiness(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpmiddleware.AdminClaimsFromContext(r.Context())
		if !ok || claims.Business == "" {
			next.ServeHTTP(w, r)
			return
		}
		q := r.URL.Query()
		q.Set("business", claims.Business)
		r2 := r.Clone(r.Context())
		r2.URL.RawQuery = q.Encode()
		next.ServeHTTP(w, r2)
	})
}
