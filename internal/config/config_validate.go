// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for completeness and consistency.
// It is called by Load() after all layers are merged; required fields here
// are the same ones the platform has always demanded from the environment
// (DATABASE_URL, JWT_SECRET, GORSE_URL, ES_URL, OSS credentials).
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config field %s failed rule %q", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if c.Events.NATSEnabled && c.Events.URL == "" && !c.Events.Embedded {
		return fmt.Errorf("events: NATS enabled but no URL configured and embedded server disabled")
	}
	return nil
}
