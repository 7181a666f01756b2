// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// GatedService delays a service until ready is closed. Ingest sources use
// it to wait for the router's subscriptions, since the in-process transport
// drops messages published before anyone subscribes.
type GatedService struct {
	name  string
	ready <-chan struct{}
	svc   suture.Service
}

// NewGatedService wraps svc.
func NewGatedService(name string, ready <-chan struct{}, svc suture.Service) *GatedService {
	return &GatedService{name: name, ready: ready, svc: svc}
}

// Serve implements suture.Service.
func (g *GatedService) Serve(ctx context.Context) error {
	select {
	case <-g.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.svc.Serve(ctx)
}

func (g *GatedService) String() string {
	if s, ok := g.svc.(fmt.Stringer); ok && g.name == "" {
		return s.String()
	}
	return g.name
}
