package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func testHandler(t *testing.T) (http.Handler, *bool) {
	t.Helper()
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func newTestMiddleware() *Middleware {
	policy := NewDefaultPolicy([]string{"/healthz"}, []string{"/metrics"})
	return NewMiddleware(testSecret, policy)
}

func TestWrapRejectsMissingToken(t *testing.T) {
	next, called := testHandler(t)
	handler := newTestMiddleware().Wrap(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/debt", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if *called {
		t.Fatal("handler must not run without a token")
	}
}

func TestWrapAcceptsResidentToken(t *testing.T) {
	next, called := testHandler(t)
	handler := newTestMiddleware().Wrap(next)

	token, err := NewToken("1234 567890", RoleResident, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/debt", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !*called {
		t.Fatal("handler must run for a valid resident token")
	}
}

func TestWrapForbidsResidentOnAdminRoute(t *testing.T) {
	next, called := testHandler(t)
	handler := newTestMiddleware().Wrap(next)

	token, err := NewToken("1234 567890", RoleResident, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if *called {
		t.Fatal("handler must not run for an under-privileged token")
	}
}

func TestWrapAllowsAdminOnAdminRoute(t *testing.T) {
	next, called := testHandler(t)
	handler := newTestMiddleware().Wrap(next)

	token, err := NewToken("9999 999999", RoleAdmin, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !*called {
		t.Fatalf("expected admin to pass, got %d called=%v", rec.Code, *called)
	}
}

func TestWrapExemptAndOpenPaths(t *testing.T) {
	for _, path := range []string{"/healthz", "/metrics", "/api/v1/login"} {
		next, called := testHandler(t)
		handler := newTestMiddleware().Wrap(next)

		rec := httptest.NewRecorder()
		method := http.MethodGet
		if path == "/api/v1/login" {
			method = http.MethodPost
		}
		handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

		if rec.Code != http.StatusOK || !*called {
			t.Errorf("%s: expected pass-through, got %d called=%v", path, rec.Code, *called)
		}
	}
}

func TestWrapRejectsWrongSecret(t *testing.T) {
	next, called := testHandler(t)
	handler := newTestMiddleware().Wrap(next)

	token, err := NewToken("1234 567890", RoleResident, []byte("other-secret"), time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/debt", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a foreign signature, got %d", rec.Code)
	}
	if *called {
		t.Fatal("handler must not run for a foreign signature")
	}
}

func TestWrapIdentityInContext(t *testing.T) {
	var gotPassport string
	var gotRole Role
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPassport = PassportFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := newTestMiddleware().Wrap(next)

	token, err := NewToken("1234 567890", RoleResident, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotPassport != "1234 567890" || gotRole != RoleResident {
		t.Fatalf("identity not propagated: passport=%q role=%q", gotPassport, gotRole)
	}
}
