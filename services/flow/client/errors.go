// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package client talks to the remote workflow service.
//
// The client fetches and replaces whole workflow documents over the
// service's REST API. A replace is all-or-nothing on the remote side,
// so a push either lands the complete document or leaves the remote
// workflow as it was; there is no partial-update path.
//
// Transient failures (429, 503, 504, connection resets and timeouts)
// are retried with capped exponential backoff and jitter; every other
// failure is classified permanent and surfaces immediately as a
// *PushError. Context cancellation stops a retry loop mid-wait.
package client

import (
	"errors"
	"fmt"
)

// Sentinel errors for remote operations.
var (
	// ErrWorkflowNotFound is returned when the remote service has no
	// workflow under the requested id.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrUnauthorized is returned for authentication and authorization
	// failures. Never retried.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedResponse is returned when the remote payload cannot be
	// decoded.
	ErrMalformedResponse = errors.New("malformed remote response")
)

// PushState tracks where a push is in its lifecycle. A Receipt starts
// at pending, moves to retrying on the first backoff, and ends at
// succeeded or failed.
type PushState string

const (
	StatePending   PushState = "pending"
	StateRetrying  PushState = "retrying"
	StateSucceeded PushState = "succeeded"
	StateFailed    PushState = "failed"
)

// FailureKind classifies why a push ultimately failed.
type FailureKind string

const (
	// FailurePermanent marks errors that retrying cannot help: client
	// errors other than 429, auth failures, malformed payloads.
	FailurePermanent FailureKind = "permanent"

	// FailureExhausted marks transient errors that persisted past the
	// retry budget.
	FailureExhausted FailureKind = "retries_exhausted"
)

// PushError is the terminal error of a failed remote operation.
type PushError struct {
	Kind     FailureKind
	Status   int // last HTTP status, 0 for transport errors
	Attempts int
	Err      error
}

func (e *PushError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("push failed (%s) after %d attempt(s), status %d: %v",
			e.Kind, e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("push failed (%s) after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *PushError) Unwrap() error { return e.Err }
