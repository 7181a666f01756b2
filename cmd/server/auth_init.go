// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package main

import (
	"fmt"

	"github.com/tomtom215/killfeed/internal/auth"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/logging"
)

// tokenIssuer is the iss claim expected on API bearer tokens.
const tokenIssuer = "killfeed"

func newAuthenticator(cfg config.APIConfig) (*auth.Authenticator, error) {
	var (
		jwtManager *auth.JWTManager
		keys       *auth.APIKeyVerifier
		err        error
	)
	if cfg.JWTSecret != "" {
		if jwtManager, err = auth.NewJWTManager(cfg.JWTSecret, tokenIssuer); err != nil {
			return nil, fmt.Errorf("api.jwt_secret: %w", err)
		}
	}
	if cfg.APIKeyHash != "" {
		if keys, err = auth.NewAPIKeyVerifier(cfg.APIKeyHash); err != nil {
			return nil, fmt.Errorf("api.api_key_hash: %w", err)
		}
	}

	a := auth.NewAuthenticator(jwtManager, keys)
	if !a.Enabled() {
		logging.Warn().Msg("Command API authentication disabled; bind it to a private interface")
	}
	return a, nil
}
