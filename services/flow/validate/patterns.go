// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"encoding/json"
	"regexp"

	"github.com/tidwall/gjson"
)

// scriptBodyFields are parameter paths that may hold a script body,
// across the script node type versions.
var scriptBodyFields = []string{"jsCode", "pythonCode", "functionCode", "code"}

// patternMatch is one recognized script-body shape with its replacement
// suggestion.
type patternMatch struct {
	Description string
	Suggestion  string
}

// scriptPatterns pairs a compiled body pattern with the advisory it
// produces. Order matters only for output stability.
var scriptPatterns = []struct {
	re    *regexp.Regexp
	match patternMatch
}{
	{
		re: regexp.MustCompile(`\bfetch\s*\(|\bhttp\.request\b|\baxios\b|XMLHttpRequest`),
		match: patternMatch{
			Description: "appears to make an HTTP call from a script body",
			Suggestion:  "use n8n-nodes-base.httpRequest instead of scripted HTTP calls",
		},
	},
	{
		re: regexp.MustCompile(`\bitems\s*\.\s*map\s*\(|\$input\.all\(\)\s*\.\s*map\s*\(`),
		match: patternMatch{
			Description: "appears to map over items in a script body",
			Suggestion:  "use n8n-nodes-base.set or n8n-nodes-base.itemLists for field mapping",
		},
	},
	{
		re: regexp.MustCompile(`\bitems\s*\.\s*filter\s*\(`),
		match: patternMatch{
			Description: "appears to filter items in a script body",
			Suggestion:  "use n8n-nodes-base.filter instead of scripted filtering",
		},
	},
}

// matchScriptPatterns inspects an open parameter payload for script
// bodies shaped like work a purpose-built node already does. The
// payload is treated as opaque JSON; only the known script-body fields
// are read, so per-type schema knowledge is never required.
func matchScriptPatterns(parameters map[string]any) []patternMatch {
	if len(parameters) == 0 {
		return nil
	}
	raw, err := json.Marshal(parameters)
	if err != nil {
		return nil
	}
	doc := gjson.ParseBytes(raw)

	var matches []patternMatch
	seen := make(map[string]bool)
	for _, field := range scriptBodyFields {
		body := doc.Get(field)
		if !body.Exists() || body.Type != gjson.String {
			continue
		}
		for _, p := range scriptPatterns {
			if p.re.MatchString(body.String()) && !seen[p.match.Suggestion] {
				seen[p.match.Suggestion] = true
				matches = append(matches, p.match)
			}
		}
	}
	return matches
}
