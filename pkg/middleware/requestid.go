package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/recordkit/recordkit/pkg/contextkeys"
)

// HeaderRequestID is the request ID header, honored when the caller
// supplies one and generated otherwise.
const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware assigns each request a UUID, echoes it in the
// response headers and stores it on the context for log correlation.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
