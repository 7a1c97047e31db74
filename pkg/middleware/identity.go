package middleware

import (
	"net/http"
	"strings"

	"github.com/recordkit/recordkit/pkg/contextkeys"
	"github.com/recordkit/recordkit/pkg/record"
)

// IdentityProvider resolves the acting identity for a request. Deployments
// sitting behind an authenticating gateway typically read trusted headers;
// standalone deployments can plug in their own token validation.
type IdentityProvider interface {
	Resolve(r *http.Request) (record.Actor, error)
}

const (
	// HeaderActor names the acting user.
	HeaderActor = "X-Actor"
	// HeaderActorPrivileges carries a comma-separated privilege list.
	HeaderActorPrivileges = "X-Actor-Privileges"
)

// HeaderIdentity reads the actor from trusted gateway headers. Requests
// without an actor header act as the anonymous system actor.
type HeaderIdentity struct{}

// Resolve extracts the actor from request headers.
func (HeaderIdentity) Resolve(r *http.Request) (record.Actor, error) {
	name := r.Header.Get(HeaderActor)
	if name == "" {
		return record.SystemActor(), nil
	}
	actor := record.Actor{Name: name}
	if raw := r.Header.Get(HeaderActorPrivileges); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				actor.Privileges = append(actor.Privileges, p)
			}
		}
	}
	return actor, nil
}

// IdentityMiddleware resolves the acting identity and stores it on the
// request context for handlers to pick up.
func IdentityMiddleware(provider IdentityProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := provider.Resolve(r)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"code":401,"success":false,"message":"invalid identity"}`))
				return
			}
			ctx := contextkeys.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
