package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/chess-escrow/models"
)

const testSecret = "test-secret"

func protected(t *testing.T, secret string) (http.Handler, *string) {
	t.Helper()
	var gotWallet string
	handler := Authenticate(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallet, err := GetWalletFromContext(r.Context())
		if err != nil {
			t.Errorf("GetWalletFromContext: %v", err)
		}
		gotWallet = wallet
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &gotWallet
}

func TestAuthenticateRoundTrip(t *testing.T) {
	user := &models.User{Wallet: "0xABC", Username: "alice"}
	token, err := GenerateToken(testSecret, user, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	handler, gotWallet := protected(t, testSecret)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if *gotWallet != "0xABC" {
		t.Errorf("wallet from context = %q, want 0xABC", *gotWallet)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	expired, err := GenerateToken(testSecret, &models.User{Wallet: "0xABC"}, -time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	wrongKey, err := GenerateToken("other-secret", &models.User{Wallet: "0xABC"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong signing key", "Bearer " + wrongKey},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := protected(t, testSecret)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}
