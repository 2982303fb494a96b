package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	store := NewSessionStore(time.Hour)
	u := User{ID: "123", Email: "a@example.com", DisplayName: "A"}

	token, err := store.Create(u)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	got, ok := store.Get(token)
	if !ok {
		t.Fatal("session not found")
	}
	if got != u {
		t.Errorf("user = %+v, want %+v", got, u)
	}

	store.Delete(token)
	if _, ok := store.Get(token); ok {
		t.Error("session survived delete")
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(time.Hour)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	token, err := store.Create(User{ID: "123"})
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := store.Get(token); ok {
		t.Error("expired session still valid")
	}
}

func TestTokensAreUnique(t *testing.T) {
	store := NewSessionStore(time.Hour)
	a, _ := store.Create(User{ID: "1"})
	b, _ := store.Create(User{ID: "2"})
	if a == b {
		t.Error("two sessions share a token")
	}
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	a := NewAuthenticator(NewSessionStore(time.Hour), "")
	handler := a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for anonymous request")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireUserInjectsUser(t *testing.T) {
	store := NewSessionStore(time.Hour)
	a := NewAuthenticator(store, "")
	token, _ := store.Create(User{ID: "42", DisplayName: "Tester"})

	var seen User
	handler := a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if seen.ID != "42" {
		t.Errorf("user ID = %q, want 42", seen.ID)
	}
}

func TestDevUserBypass(t *testing.T) {
	a := NewAuthenticator(NewSessionStore(time.Hour), "local")
	u, ok := a.Lookup(httptest.NewRequest(http.MethodGet, "/", nil))
	if !ok || u.ID != "local" {
		t.Errorf("dev user lookup = %+v %v, want local identity", u, ok)
	}
}
