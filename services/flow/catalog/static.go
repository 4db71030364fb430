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

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	// MaxCatalogFileSize caps external catalog files at 1MB to prevent
	// memory issues from oversized files.
	MaxCatalogFileSize = 1024 * 1024

	// MaxCatalogEntries caps the number of entries in one catalog.
	MaxCatalogEntries = 1000
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// catalogFile is the root structure for YAML deserialization.
type catalogFile struct {
	Nodes []Entry `yaml:"nodes"`
}

// Static is an in-memory Provider built once from YAML data and
// read-only afterwards.
type Static struct {
	entries map[string]*Entry
}

// NewStatic builds a Static provider from raw YAML catalog data.
func NewStatic(data []byte) (*Static, error) {
	if len(data) > MaxCatalogFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrCatalogTooLarge, len(data), MaxCatalogFileSize)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(file.Nodes) > MaxCatalogEntries {
		return nil, fmt.Errorf("%w: %d entries (max %d)", ErrCatalogTooLarge, len(file.Nodes), MaxCatalogEntries)
	}

	entries := make(map[string]*Entry, len(file.Nodes))
	for i := range file.Nodes {
		e := file.Nodes[i]
		if e.Key == "" {
			return nil, fmt.Errorf("%w: entry %d has no key", ErrInvalidCatalog, i)
		}
		if e.MaxVersion < e.MinVersion {
			return nil, fmt.Errorf("%w: entry %q: maxVersion %v < minVersion %v",
				ErrInvalidCatalog, e.Key, e.MaxVersion, e.MinVersion)
		}
		if e.RecommendedVersion == 0 {
			e.RecommendedVersion = e.MaxVersion
		}
		if _, dup := entries[e.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidCatalog, e.Key)
		}
		entries[e.Key] = &e
	}
	return &Static{entries: entries}, nil
}

// NewStaticFromFile builds a Static provider from a YAML file on disk.
func NewStaticFromFile(path string) (*Static, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat catalog file: %w", err)
	}
	if info.Size() > MaxCatalogFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrCatalogTooLarge, info.Size(), MaxCatalogFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return NewStatic(data)
}

// Default returns the embedded catalog of common node types. It panics
// only if the embedded data is malformed, which is a build defect.
func Default() *Static {
	s, err := NewStatic(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return s
}

// Lookup implements Provider. Only exact canonical keys match; variant
// resolution is the Normalizer's job.
func (s *Static) Lookup(_ context.Context, key string) (*Entry, error) {
	if e, ok := s.entries[key]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, key)
}

// Keys returns every canonical key in sorted order.
func (s *Static) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (s *Static) Len() int { return len(s.entries) }
