// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import "context"

// Entry describes one node type known to the catalog.
type Entry struct {
	// Key is the canonical, fully prefixed type identifier.
	Key string `yaml:"key"`

	// DisplayName is the human-readable node name.
	DisplayName string `yaml:"displayName,omitempty"`

	// MinVersion and MaxVersion bound the supported typeVersion range,
	// inclusive on both ends.
	MinVersion float64 `yaml:"minVersion"`
	MaxVersion float64 `yaml:"maxVersion"`

	// RecommendedVersion is filled in when a caller omits typeVersion.
	RecommendedVersion float64 `yaml:"recommendedVersion"`

	// EscapeHatch marks arbitrary-script node types. Overuse of these
	// is an anti-pattern flagged by the semantic validation stage.
	EscapeHatch bool `yaml:"escapeHatch,omitempty"`

	// EntryPoint marks trigger-style types that legitimately have no
	// inbound connections.
	EntryPoint bool `yaml:"entryPoint,omitempty"`
}

// SupportsVersion reports whether v falls in the entry's version range.
func (e *Entry) SupportsVersion(v float64) bool {
	return v >= e.MinVersion && v <= e.MaxVersion
}

// Provider is the read-only catalog lookup contract. Implementations
// must be safe for concurrent reads; lookups may be I/O backed, hence
// the context.
type Provider interface {
	// Lookup returns the entry for an exact canonical key, or an error
	// wrapping ErrEntryNotFound.
	Lookup(ctx context.Context, key string) (*Entry, error)
}
