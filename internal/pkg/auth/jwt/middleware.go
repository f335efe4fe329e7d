package jwt

import (
	"context"
	"net/http"
	"strings"

	"plaza/internal/pkg/logx"
)

type contextKey string

// ContextResidentIDKey stores the authenticated resident id in a request context.
const ContextResidentIDKey contextKey = "resident_id"

// IdentityExtractorMiddleware decodes an optional "Authorization: Bearer" header and stores the
// resident id in the request context. Requests without a valid token pass through anonymously;
// handlers decide whether identity is required.
func IdentityExtractorMiddleware(decoder *Decoder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, tokenString, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || scheme != "Bearer" {
				next.ServeHTTP(w, r)
				return
			}

			residentID, err := decoder.Decode(tokenString)
			if err != nil {
				logx.Warn("Invalid bearer token, treating request as anonymous", "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextResidentIDKey, residentID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResidentIDFromContext returns the resident id stored by IdentityExtractorMiddleware.
func ResidentIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextResidentIDKey).(int64)
	return id, ok
}
