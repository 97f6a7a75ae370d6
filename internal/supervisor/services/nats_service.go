// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package services

import (
	"context"
	"fmt"
	"time"
)

// MessagingServer matches the embedded NATS server's lifecycle. The
// server is already running when handed to the service; the wrapper
// only supervises health and shutdown.
type MessagingServer interface {
	Running() bool
	Shutdown(ctx context.Context) error
}

// NATSServerService wraps an embedded NATS server as a supervised
// service. It polls Running so a dead server surfaces as a service
// failure and triggers a supervisor restart of the events layer.
type NATSServerService struct {
	server          MessagingServer
	shutdownTimeout time.Duration
	checkInterval   time.Duration
	name            string
}

// NewNATSServerService creates an embedded NATS service wrapper.
func NewNATSServerService(server MessagingServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		checkInterval:   5 * time.Second,
		name:            "nats-server",
	}
}

// Serve implements suture.Service.
func (n *NATSServerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(n.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !n.server.Running() {
				return fmt.Errorf("nats server stopped unexpectedly")
			}

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), n.shutdownTimeout)
			defer cancel()

			if err := n.server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("nats server shutdown failed: %w", err)
			}
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer so suture logs name the service.
func (n *NATSServerService) String() string {
	return n.name
}
