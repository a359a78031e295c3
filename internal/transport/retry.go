// go-uwb
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uwb.
//
// go-uwb is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uwb is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uwb; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package transport provides internal transport utilities
package transport

import (
	"context"
	"fmt"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
)

// RetryOperation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	OnRetry       func() error
	OnRetryFailed func() error
	Description   string
	MaxRetries    int
	RetryDelay    time.Duration
}

// WithRetry executes an operation with retry logic.
// The context is checked between attempts.
func WithRetry[T any](ctx context.Context, config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		// If we should retry but we're at max attempts, break
		if attempt >= config.MaxRetries {
			break
		}

		if err := executeRetryCallback(config); err != nil {
			return zero, err
		}

		if err := sleep(ctx, config.RetryDelay); err != nil {
			return zero, err
		}
	}

	return handleRetriesExhausted[T](config)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// executeRetryCallback executes the retry callback if provided
func executeRetryCallback(config RetryConfig) error {
	if config.OnRetry != nil {
		return config.OnRetry()
	}
	return nil
}

// handleRetriesExhausted handles the case when all retries are exhausted
func handleRetriesExhausted[T any](config RetryConfig) (T, error) {
	var zero T

	if config.OnRetryFailed != nil {
		if failErr := config.OnRetryFailed(); failErr != nil {
			return zero, failErr
		}
	}

	op := config.Description
	if op == "" {
		op = "retry"
	}
	return zero, uwb.NewTransportError(op, "unknown", uwb.ErrCommunicationFailed, uwb.ErrorTypeTransient)
}

// TimeoutRetry polls an operation until it stops asking for a retry, the
// timeout expires or ctx is done. Used for waits such as device ready.
func TimeoutRetry[T any](ctx context.Context, timeout, interval time.Duration, operation RetryOperation[T]) (T, error) {
	var zero T
	if interval <= 0 {
		interval = time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		if err := sleep(ctx, interval); err != nil {
			return zero, err
		}
	}

	return zero, uwb.NewTimeoutError("timeoutRetry", "unknown")
}
