package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const stateCookie = "hw_oauth_state"

// GoogleHandler runs the Google OAuth code flow and creates sessions for
// users the provider vouches for.
type GoogleHandler struct {
	cfg      *oauth2.Config
	sessions *SessionStore
}

// NewGoogleHandler configures the OAuth flow. Returns nil when the client
// ID is unset, in which case login endpoints answer 503.
func NewGoogleHandler(clientID, clientSecret, redirectURL string, sessions *SessionStore) *GoogleHandler {
	if clientID == "" {
		return nil
	}
	return &GoogleHandler{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		sessions: sessions,
	}
}

// Login handles GET /auth/google: sets a state cookie and redirects to the
// provider's consent page.
func (h *GoogleHandler) Login(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(buf)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   300,
	})
	http.Redirect(w, r, h.cfg.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /auth/google/callback: verifies state, exchanges the
// code, fetches the user's profile, and starts a session.
func (h *GoogleHandler) Callback(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	token, err := h.cfg.Exchange(ctx, code)
	if err != nil {
		slog.Error("oauth code exchange failed", "error", err)
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}

	user, err := h.fetchProfile(r, token)
	if err != nil {
		slog.Error("fetching user profile failed", "error", err)
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}

	sessionToken, err := h.sessions.Create(user)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("user logged in", "user", user.ID, "email", user.Email)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *GoogleHandler) fetchProfile(r *http.Request, token *oauth2.Token) (User, error) {
	ctx := r.Context()
	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(h.cfg.TokenSource(ctx, token)))
	if err != nil {
		return User{}, fmt.Errorf("creating userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return User{}, fmt.Errorf("fetching userinfo: %w", err)
	}
	if info.Id == "" {
		return User{}, fmt.Errorf("provider returned empty user id")
	}
	return User{
		ID:          info.Id,
		Email:       info.Email,
		DisplayName: info.Name,
		Photo:       info.Picture,
	}, nil
}

// Logout handles GET /auth/logout: drops the session and clears the cookie.
// It works whether or not an identity provider is configured.
func Logout(sessions *SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(SessionCookie); err == nil {
			sessions.Delete(c.Value)
		}
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
		http.Redirect(w, r, "/", http.StatusFound)
	}
}
