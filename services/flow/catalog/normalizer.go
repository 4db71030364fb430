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
	"strings"
)

// scopeWrappers are organizational npm scopes that may wrap a package
// prefix. They are stripped, not rewritten, so casing inside the key is
// preserved.
var scopeWrappers = []string{"@n8n/"}

// packageAliases map alternate root package prefixes to canonical ones.
// Aliases are tried one variant at a time, in declaration order.
var packageAliases = []struct{ alias, canonical string }{
	{"nodes-base.", "n8n-nodes-base."},
	{"nodes-langchain.", "n8n-nodes-langchain."},
	{"n8n-nodes-langchain.", "@n8n/n8n-nodes-langchain."},
}

// barePrefix is applied to type strings with no package prefix at all.
const barePrefix = "n8n-nodes-base."

// Normalizer resolves raw node-type strings to canonical catalog keys.
//
// Lookup order: exact match first, then each rewritten variant in a
// fixed order, retrying the catalog after each rewrite. Only the prefix
// form is rewritten, never the casing of the node name itself. On
// exhaustion a *NotFoundError carries every variant attempted.
type Normalizer struct {
	catalog Provider
}

// NewNormalizer returns a Normalizer backed by the given catalog.
func NewNormalizer(catalog Provider) *Normalizer {
	return &Normalizer{catalog: catalog}
}

// Normalize resolves raw to its canonical catalog key and entry.
//
// The returned key differs from raw only when a prefix rewrite was
// needed; callers treat that as an auto-fix.
func (n *Normalizer) Normalize(ctx context.Context, raw string) (string, *Entry, error) {
	tried := make([]string, 0, 4)
	for _, candidate := range n.variants(raw) {
		tried = append(tried, candidate)
		entry, err := n.catalog.Lookup(ctx, candidate)
		if err == nil {
			return candidate, entry, nil
		}
	}
	return "", nil, &NotFoundError{Raw: raw, Tried: tried}
}

// variants generates the candidate keys for a raw type string, exact
// form first, deduplicated, order preserved.
func (n *Normalizer) variants(raw string) []string {
	candidates := []string{raw}
	add := func(c string) {
		for _, existing := range candidates {
			if existing == c {
				return
			}
		}
		candidates = append(candidates, c)
	}

	for _, scope := range scopeWrappers {
		if strings.HasPrefix(raw, scope) {
			add(strings.TrimPrefix(raw, scope))
		}
	}
	stripped := candidates[len(candidates)-1]

	for _, a := range packageAliases {
		if strings.HasPrefix(raw, a.alias) {
			add(a.canonical + strings.TrimPrefix(raw, a.alias))
		}
		if strings.HasPrefix(stripped, a.alias) {
			add(a.canonical + strings.TrimPrefix(stripped, a.alias))
		}
	}

	if !strings.Contains(raw, ".") {
		add(barePrefix + raw)
	}
	return candidates
}
