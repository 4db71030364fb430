// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diff implements the batched, dependency-ordered diff engine.
//
// A diff is a batch of typed operations against a workflow graph. The
// engine clones the base graph, applies the batch in two passes (node
// operations first, then connection operations, so names introduced
// anywhere in the batch resolve regardless of submission order), runs
// the full validator over the result, and commits or discards the whole
// batch atomically. The caller's base graph is never mutated.
//
// Correctable input (missing typeVersion, unambiguous type prefixes,
// stray remote-owned fields, missing parameter objects) is fixed in
// place and reported via FixesApplied rather than rejected; Options.
// Strict turns every would-be fix into a blocking error instead.
package diff

import "errors"

// Sentinel errors for diff operations.
var (
	// ErrUnknownOperation is returned for an operation type outside the
	// supported set.
	ErrUnknownOperation = errors.New("unknown operation type")

	// ErrInvalidOperation is returned when an operation is missing the
	// fields its type requires.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidDocument is returned when a full-replace document cannot
	// be converted into an operation batch.
	ErrInvalidDocument = errors.New("invalid workflow document")
)
