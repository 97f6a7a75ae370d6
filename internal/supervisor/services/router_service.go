// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package services

import (
	"context"
	"fmt"
)

// MessageRouter matches watermill's *message.Router lifecycle. Run
// blocks until the context is canceled and handles its own graceful
// handler shutdown.
type MessageRouter interface {
	Run(ctx context.Context) error
	Close() error
}

// RouterService wraps a watermill router as a supervised service.
type RouterService struct {
	router MessageRouter
	name   string
}

// NewRouterService creates a router service wrapper.
func NewRouterService(router MessageRouter) *RouterService {
	return &RouterService{router: router, name: "feedback-router"}
}

// Serve implements suture.Service. The router's Run already follows the
// blocking, context-aware contract suture expects, so this is a thin
// adapter that normalizes the return value.
func (r *RouterService) Serve(ctx context.Context) error {
	if err := r.router.Run(ctx); err != nil {
		return fmt.Errorf("feedback router failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// String implements fmt.Stringer so suture logs name the service.
func (r *RouterService) String() string {
	return r.name
}
