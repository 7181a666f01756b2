// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// errRouterStopped is reported when the router returns while its context
// is still live.
var errRouterStopped = errors.New("event router stopped")

// RouterRunner matches *eventprocessor.Router.
type RouterRunner interface {
	Run(ctx context.Context) error
}

// RouterService runs the event router.
//
// A watermill router cannot be run twice, so an unexpected stop terminates
// the whole tree instead of asking suture for a restart. The process exits
// and is restarted by its init system with a fresh router.
type RouterService struct {
	router RouterRunner
}

// NewRouterService wraps router.
func NewRouterService(router RouterRunner) *RouterService {
	return &RouterService{router: router}
}

// Serve implements suture.Service.
func (s *RouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errRouterStopped
	} else {
		err = fmt.Errorf("%w: %w", errRouterStopped, err)
	}
	return fmt.Errorf("%w: %w", suture.ErrTerminateSupervisorTree, err)
}

func (s *RouterService) String() string {
	return "event-router"
}
