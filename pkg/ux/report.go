// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"strings"
)

// Header renders a section title.
func Header(text string) string {
	return Styles.Title.Render(text)
}

// Bullet renders one finding line: a colored marker, the message, and
// an optional dimmed location suffix.
func Bullet(marker, message, path string) string {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(marker)
	b.WriteString(" ")
	b.WriteString(message)
	if path != "" {
		b.WriteString(" ")
		b.WriteString(Styles.Muted.Render("(" + path + ")"))
	}
	return b.String()
}

// ErrorMarker, WarnMarker and InfoMarker are the bullet markers for the
// three finding classes.
func ErrorMarker() string { return Styles.Error.Render("✗") }
func WarnMarker() string  { return Styles.Warning.Render("!") }
func InfoMarker() string  { return Styles.Muted.Render("·") }

// StatusLine renders a pass/fail verdict with counts.
func StatusLine(ok bool, errors, warnings int) string {
	if ok {
		verdict := Styles.Success.Render("✓ valid")
		if warnings > 0 {
			return fmt.Sprintf("%s %s", verdict,
				Styles.Warning.Render(fmt.Sprintf("(%d warning(s))", warnings)))
		}
		return verdict
	}
	return Styles.Error.Render(fmt.Sprintf("✗ invalid: %d error(s)", errors))
}
