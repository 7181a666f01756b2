// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyCost is the bcrypt cost used by HashAPIKey.
const APIKeyCost = 12

// APIKeyVerifier checks a presented key against a stored bcrypt hash.
type APIKeyVerifier struct {
	hash []byte
}

// NewAPIKeyVerifier parses a bcrypt hash produced by HashAPIKey or htpasswd.
func NewAPIKeyVerifier(hash string) (*APIKeyVerifier, error) {
	if hash == "" {
		return nil, errors.New("api key hash is required")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid api key hash: %w", err)
	}
	return &APIKeyVerifier{hash: []byte(hash)}, nil
}

// Verify reports whether key matches the stored hash.
func (v *APIKeyVerifier) Verify(key string) bool {
	if key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(key)) == nil
}

// HashAPIKey returns the bcrypt hash to store in api.api_key_hash.
func HashAPIKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("api key is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), APIKeyCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return string(hash), nil
}
