// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/AleutianAI/AleutianFlow/pkg/ux"
	"github.com/AleutianAI/AleutianFlow/services/flow/diff"
	"github.com/AleutianAI/AleutianFlow/services/flow/validate"
)

var jsonOutput bool

// renderValidation prints a styled validation report, or raw JSON when
// --json is set.
func renderValidation(result *validate.Result) {
	if jsonOutput {
		printJSON(result)
		return
	}

	if len(result.Errors) > 0 {
		fmt.Println(ux.Header("Errors"))
		for _, issue := range result.Errors {
			fmt.Println(ux.Bullet(ux.ErrorMarker(), issue.Message, issue.Path))
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Println(ux.Header("Warnings"))
		for _, issue := range result.Warnings {
			fmt.Println(ux.Bullet(ux.WarnMarker(), issue.Message, issue.Path))
		}
	}
	if len(result.Suggestions) > 0 {
		fmt.Println(ux.Header("Suggestions"))
		for _, issue := range result.Suggestions {
			msg := issue.Message
			if issue.Suggestion != "" {
				msg = msg + ": " + issue.Suggestion
			}
			fmt.Println(ux.Bullet(ux.InfoMarker(), msg, issue.Path))
		}
	}
	fmt.Println(ux.StatusLine(result.Valid, result.Summary.ErrorCount, result.Summary.WarningCount))
}

// renderDiffResult prints the fixes and validation outcome of an apply.
func renderDiffResult(result *diff.Result) {
	if jsonOutput {
		printJSON(result)
		return
	}

	if len(result.FixesApplied) > 0 {
		fmt.Println(ux.Header("Fixes applied"))
		for _, fix := range result.FixesApplied {
			fmt.Println(ux.Bullet(ux.InfoMarker(), fix.Message, fix.Path))
		}
	}
	renderValidation(result.Validation)
	if result.RemoteVersion != "" {
		fmt.Println(ux.Styles.Muted.Render("remote version: " + result.RemoteVersion))
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit raw JSON instead of styled output")
}
