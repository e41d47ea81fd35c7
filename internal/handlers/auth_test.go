package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/khelmart/khelmart/internal/auth"
	"github.com/khelmart/khelmart/internal/config"
)

const testAuthSecret = "test-secret-at-least-16-chars"

func testHandlers(t *testing.T) *Handlers {
	t.Helper()

	verifier, err := auth.NewVerifier(testAuthSecret)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	return &Handlers{
		config: &config.Config{
			AdminEmails: []string{"admin@khelmart.example"},
		},
		authVerifier: verifier,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func signTestToken(t *testing.T, subject, email string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testAuthSecret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return signed
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	userID := uuid.NewString()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "valid bearer token",
			header:     "Bearer " + signTestToken(t, userID, "buyer@example.com"),
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer scheme",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			header:     "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := testHandlers(t)
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				identity, ok := auth.IdentityFromContext(r.Context())
				if !ok {
					t.Error("identity missing from context after RequireAuth")
				} else if identity.UserID.String() != userID {
					t.Errorf("identity user id = %s, want %s", identity.UserID, userID)
				}
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			h.RequireAuth(next).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if nextCalled != tc.wantNext {
				t.Fatalf("next called = %v, want %v", nextCalled, tc.wantNext)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		email      string
		identity   bool
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "admin email allowed",
			email:      "admin@khelmart.example",
			identity:   true,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "admin email match is case insensitive",
			email:      "Admin@KhelMart.example",
			identity:   true,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "non-admin rejected",
			email:      "buyer@example.com",
			identity:   true,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no identity rejected",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := testHandlers(t)
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/admin/products", nil)
			if tc.identity {
				ctx := auth.WithIdentity(req.Context(), auth.Identity{UserID: uuid.New(), Email: tc.email})
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()

			h.RequireAdmin(next).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if nextCalled != tc.wantNext {
				t.Fatalf("next called = %v, want %v", nextCalled, tc.wantNext)
			}
		})
	}
}
