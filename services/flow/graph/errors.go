// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the in-memory workflow graph model.
//
// A Workflow is a set of typed nodes plus a connection map in the wire
// shape used by n8n-style automation platforms: connections are keyed by
// the *name* of the source node, then by output port, then by output
// index. Nodes are addressed by name throughout; remote-assigned ids are
// carried but never used for addressing.
//
// # Mutation Contract
//
// All mutation methods operate on the receiver in place. Callers that
// need transactional semantics (the diff engine does) must work on a
// Clone() and swap it in only after validation passes. The model layer
// fails fast on references to missing nodes; batch-level semantic checks
// live in the validate package.
//
// # Thread Safety
//
// Workflow is a plain value container and is NOT safe for concurrent
// mutation. Concurrent diff sessions each mutate their own clone, so no
// locking is needed in this package.
package graph

import "errors"

// Sentinel errors for graph mutations.
var (
	// ErrNodeNotFound is returned when an operation references a node
	// name that does not exist in the workflow.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when adding a node whose name or id
	// already exists in the workflow.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrConnectionNotFound is returned when removing a connection that
	// does not exist.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrInvalidEndpoint is returned when a connection carries a negative
	// port index or an empty endpoint name.
	ErrInvalidEndpoint = errors.New("invalid connection endpoint")

	// ErrUnknownField is returned by UpdateNode for update keys it does
	// not recognize.
	ErrUnknownField = errors.New("unknown update field")
)
