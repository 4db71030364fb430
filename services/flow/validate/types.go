// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validate implements the multi-stage workflow validator.
//
// Validation runs five stages over a candidate graph, in order, with all
// results aggregated rather than short-circuited:
//
//	A  structural        unique names/ids, required fields, non-empty graph
//	B  catalog/type      every type resolves; typeVersion within range
//	C  connection        endpoints exist, non-negative indexes, orphans
//	D  best practice     escape-hatch ratio, parameter pattern matching
//	E  credential shape  credential records are well-formed objects
//
// Stages A, B, C and E can block a diff; stage D is advisory by policy
// and only ever contributes warnings and suggestions. A workflow is
// Valid exactly when no blocking stage produced an error.
package validate

import "github.com/AleutianAI/AleutianFlow/services/flow/graph"

// Severity classifies a validation issue.
type Severity string

const (
	// SeverityError marks issues that block a diff (stages A/B/C/E).
	SeverityError Severity = "error"

	// SeverityWarning marks issues worth fixing that do not block.
	SeverityWarning Severity = "warning"

	// SeverityInfo marks advisory notes and suggestions.
	SeverityInfo Severity = "info"
)

// Issue codes, stable across releases so callers can match on them.
const (
	CodeEmptyWorkflow       = "empty-workflow"
	CodeDuplicateNodeName   = "duplicate-node-name"
	CodeDuplicateNodeID     = "duplicate-node-id"
	CodeMissingNodeName     = "missing-node-name"
	CodeMissingNodeType     = "missing-node-type"
	CodeUnknownNodeType     = "unknown-node-type"
	CodeMissingTypeVersion  = "missing-type-version"
	CodeTypeVersionRange    = "type-version-out-of-range"
	CodeDanglingConnection  = "dangling-connection"
	CodeRemovedNodeRef      = "removed-node-reference"
	CodeNegativeIndex       = "negative-connection-index"
	CodeOrphanNode          = "orphan-node"
	CodeScriptRatioHigh     = "script-node-ratio-high"
	CodeScriptRatioElevated = "script-node-ratio-elevated"
	CodeReplaceScriptNode   = "replace-script-node"
	CodeFewPurposeBuilt     = "too-few-purpose-built-nodes"
	CodeCredentialShape     = "invalid-credential-shape"
	CodeOperationFailed     = "operation-failed"
	CodeStrictFixRequired   = "auto-fix-disabled"
)

// Issue is one validation finding.
type Issue struct {
	Severity   Severity `json:"severity"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Path       string   `json:"path,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Summary carries aggregate counts for quick display.
type Summary struct {
	ErrorCount      int `json:"errorCount"`
	WarningCount    int `json:"warningCount"`
	NodeCount       int `json:"nodeCount"`
	ConnectionCount int `json:"connectionCount"`
}

// Result is the aggregated output of all five stages.
//
// Errors holds blocking issues only; advisory stage D findings land in
// Warnings and Suggestions regardless of their nominal severity.
type Result struct {
	Valid       bool    `json:"valid"`
	Errors      []Issue `json:"errors"`
	Warnings    []Issue `json:"warnings"`
	Suggestions []Issue `json:"suggestions"`
	Summary     Summary `json:"summary"`
}

// Options tunes a single validation run.
type Options struct {
	// AllowEmpty permits a workflow with zero nodes. Set for
	// pure-connection edits where the base may legitimately be empty.
	AllowEmpty bool

	// RemovedNodes are names removed earlier in the same diff batch.
	// Connections referencing them get a more specific error than a
	// plain dangling reference.
	RemovedNodes []string
}

// AddBlockingIssue appends a blocking error after the fact and keeps
// Valid and the summary consistent. The diff engine uses this to fold
// operation-application failures into the aggregated result.
func (r *Result) AddBlockingIssue(issue Issue) {
	issue.Severity = SeverityError
	r.Errors = append(r.Errors, issue)
	r.Valid = false
	r.Summary.ErrorCount = len(r.Errors)
}

// finish computes Valid and the summary counts.
func (r *Result) finish(wf *graph.Workflow) *Result {
	r.Valid = len(r.Errors) == 0
	r.Summary = Summary{
		ErrorCount:      len(r.Errors),
		WarningCount:    len(r.Warnings),
		NodeCount:       wf.NodeCount(),
		ConnectionCount: wf.ConnectionCount(),
	}
	return r
}
