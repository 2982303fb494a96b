package api

import (
	"net/http"
	"time"

	"github.com/holdwatch/holdwatch/internal/auth"
)

// NewServer creates an HTTP server with all routes configured. google may
// be nil when no identity provider is configured; its routes then answer
// 503 so the client can tell login apart from a broken deployment.
func NewServer(port string, h *Handler, authn *auth.Authenticator, sessions *auth.SessionStore, google *auth.GoogleHandler, staticDir string) *http.Server {
	mux := http.NewServeMux()

	// Public price feeds and identity probe.
	mux.HandleFunc("GET /api/metals/{metal}", h.GetMetalPrice)
	mux.HandleFunc("GET /api/crypto/{symbol}", h.GetCryptoPrice)
	mux.HandleFunc("GET /api/user", h.GetUser)

	// Authenticated surface.
	mux.Handle("POST /api/save", authn.RequireUser(http.HandlerFunc(h.Save)))
	mux.Handle("POST /api/update", authn.RequireUser(http.HandlerFunc(h.Update)))
	mux.Handle("GET /api/data", authn.RequireUser(http.HandlerFunc(h.GetData)))
	mux.Handle("GET /api/data/{investmentName}", authn.RequireUser(http.HandlerFunc(h.GetData)))
	mux.Handle("GET /api/investments", authn.RequireUser(http.HandlerFunc(h.GetInvestments)))
	mux.Handle("GET /api/chart", authn.RequireUser(http.HandlerFunc(h.GetChart)))
	mux.Handle("GET /api/chart/{investmentName}", authn.RequireUser(http.HandlerFunc(h.GetChart)))
	mux.Handle("GET /api/export", authn.RequireUser(http.HandlerFunc(h.Export)))

	// Identity provider flow.
	if google != nil {
		mux.HandleFunc("GET /auth/google", google.Login)
		mux.HandleFunc("GET /auth/google/callback", google.Callback)
	} else {
		unavailable := func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusServiceUnavailable, "identity provider not configured")
		}
		mux.HandleFunc("GET /auth/google", unavailable)
		mux.HandleFunc("GET /auth/google/callback", unavailable)
	}
	mux.HandleFunc("GET /auth/logout", auth.Logout(sessions))

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
