package auth

import (
	"context"
	"net/http"
)

type contextKey struct{}

// UserFrom extracts the authenticated user injected by RequireUser.
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(contextKey{}).(User)
	return u, ok
}

// Authenticator resolves the user behind a request, if any.
type Authenticator struct {
	sessions *SessionStore
	// devUser, when non-empty, treats every request as this local identity.
	// For development without a configured identity provider.
	devUser string
}

// NewAuthenticator creates an Authenticator over the session store.
func NewAuthenticator(sessions *SessionStore, devUser string) *Authenticator {
	return &Authenticator{sessions: sessions, devUser: devUser}
}

// Lookup returns the user behind the request's session cookie.
func (a *Authenticator) Lookup(r *http.Request) (User, bool) {
	if a.devUser != "" {
		return User{ID: a.devUser, DisplayName: a.devUser}, true
	}
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return User{}, false
	}
	return a.sessions.Get(c.Value)
}

// RequireUser rejects unauthenticated requests with 401 and injects the
// user into the request context otherwise.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := a.Lookup(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, u)))
	})
}
