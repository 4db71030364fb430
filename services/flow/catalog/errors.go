// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog provides the node-type catalog interface and the type
// normalizer that resolves variant type identifiers against it.
//
// The catalog itself is external data: this package defines the Provider
// contract plus a read-only Static implementation backed by an embedded
// YAML registry, which is enough for local tooling and tests. How a real
// deployment populates its catalog is out of scope here.
//
// Thread Safety:
//
//	Static and Normalizer are read-only after construction and safe for
//	concurrent use.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for catalog operations.
var (
	// ErrEntryNotFound is returned by Provider.Lookup for unknown keys.
	ErrEntryNotFound = errors.New("catalog entry not found")

	// ErrCatalogTooLarge is returned when an external catalog file
	// exceeds the size or entry-count caps.
	ErrCatalogTooLarge = errors.New("catalog file too large")

	// ErrInvalidCatalog is returned when catalog data fails to parse or
	// an entry is malformed.
	ErrInvalidCatalog = errors.New("invalid catalog data")
)

// NotFoundError is returned by Normalizer.Normalize when no variant of a
// raw type string resolves. Tried lists every variant attempted, in
// order, for diagnostics.
type NotFoundError struct {
	Raw   string
	Tried []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node type %q not found in catalog (tried: %s)",
		e.Raw, strings.Join(e.Tried, ", "))
}

// Unwrap returns ErrEntryNotFound for errors.Is support.
func (e *NotFoundError) Unwrap() error { return ErrEntryNotFound }
