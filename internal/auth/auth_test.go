// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef-killfeed"

func TestNewJWTManager(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"valid secret", testSecret, false},
		{"empty secret", "", true},
		{"short secret", "too-short", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewJWTManager(tt.secret, "killfeed")
			if tt.wantErr {
				if err == nil {
					t.Error("NewJWTManager() expected error, got nil")
				}
				return
			}
			if err != nil || m == nil {
				t.Fatalf("NewJWTManager() = %v, %v", m, err)
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m, err := NewJWTManager(testSecret, "killfeed")
	if err != nil {
		t.Fatal(err)
	}
	token, err := m.GenerateToken("ops", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Operator != "ops" || claims.Subject != "ops" {
		t.Errorf("claims = %+v, want operator ops", claims)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	m, _ := NewJWTManager(testSecret, "killfeed")
	other, _ := NewJWTManager(testSecret+"-other", "killfeed")
	foreign, _ := NewJWTManager(testSecret, "someone-else")

	expired := func() string {
		m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		defer func() { m.now = time.Now }()
		tok, _ := m.GenerateToken("ops", time.Hour)
		return tok
	}()
	wrongKey, _ := other.GenerateToken("ops", time.Hour)
	wrongIssuer, _ := foreign.GenerateToken("ops", time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Operator: "ops"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"expired":      expired,
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"alg none":     none,
		"garbage":      "not.a.token",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := m.ValidateToken(tok); err == nil {
				t.Error("ValidateToken() expected error, got nil")
			}
		})
	}
}

func TestAPIKeyVerifier(t *testing.T) {
	// Minimum cost keeps the test fast.
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	v, err := NewAPIKeyVerifier(string(hash))
	if err != nil {
		t.Fatalf("NewAPIKeyVerifier() error = %v", err)
	}
	if !v.Verify("s3cret") {
		t.Error("Verify(correct) = false")
	}
	if v.Verify("wrong") || v.Verify("") {
		t.Error("Verify(wrong) = true")
	}

	if _, err := NewAPIKeyVerifier("plaintext"); err == nil {
		t.Error("NewAPIKeyVerifier(plaintext) expected error")
	}
	if _, err := NewAPIKeyVerifier(""); err == nil {
		t.Error("NewAPIKeyVerifier(\"\") expected error")
	}
}

func TestAuthenticate(t *testing.T) {
	m, _ := NewJWTManager(testSecret, "killfeed")
	token, _ := m.GenerateToken("ops", time.Hour)
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	keys, _ := NewAPIKeyVerifier(string(hash))
	a := NewAuthenticator(m, keys)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
		wantErr error
	}{
		{"bearer", map[string]string{AuthorizationHeader: "Bearer " + token}, "jwt", nil},
		{"api key", map[string]string{APIKeyHeader: "s3cret"}, "api_key", nil},
		{"no credentials", nil, "", ErrMissingCredentials},
		{"bad api key", map[string]string{APIKeyHeader: "nope"}, "", ErrInvalidCredentials},
		{"basic scheme", map[string]string{AuthorizationHeader: "Basic Zm9vOmJhcg=="}, "", ErrInvalidCredentials},
		{"bad token", map[string]string{AuthorizationHeader: "Bearer abc"}, "", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			p, err := a.Authenticate(r)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if p.Method != tt.want {
				t.Errorf("Method = %q, want %q", p.Method, tt.want)
			}
		})
	}
}

func TestDisabledAuthenticatorIsOpen(t *testing.T) {
	a := NewAuthenticator(nil, nil)
	if a.Enabled() {
		t.Fatal("Enabled() = true with no credentials configured")
	}
	p, err := a.Authenticate(httptest.NewRequest("GET", "/", nil))
	if err != nil || p.Method != "none" {
		t.Fatalf("Authenticate() = %+v, %v", p, err)
	}
}
