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
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/AleutianFlow/pkg/logging"
	"github.com/AleutianAI/AleutianFlow/services/flow/catalog"
	"github.com/AleutianAI/AleutianFlow/services/flow/graph"
)

// Escape-hatch ratio thresholds for the best-practice stage.
const (
	scriptRatioError   = 0.30
	scriptRatioWarning = 0.10
)

// Validator runs the five-stage pipeline over a candidate workflow.
//
// Validator is read-only after construction and safe for concurrent
// use; each Validate call works on its own Result.
type Validator struct {
	normalizer *catalog.Normalizer
	log        *logging.Logger
}

// New returns a Validator backed by the given catalog. A nil logger
// falls back to the package default.
func New(provider catalog.Provider, log *logging.Logger) *Validator {
	if log == nil {
		log = logging.Default()
	}
	return &Validator{
		normalizer: catalog.NewNormalizer(provider),
		log:        log,
	}
}

// Validate runs all five stages and aggregates their findings. Stages
// never short-circuit each other; a structural error does not suppress
// catalog or connection findings.
func (v *Validator) Validate(ctx context.Context, wf *graph.Workflow, opts Options) *Result {
	timer := prometheus.NewTimer(validationDuration)
	defer timer.ObserveDuration()

	r := &Result{}
	v.stageStructural(wf, opts, r)
	entries := v.stageCatalog(ctx, wf, r)
	v.stageConnections(wf, opts, entries, r)
	v.stageBestPractice(wf, entries, r)
	v.stageCredentials(wf, r)
	r.finish(wf)

	if r.Valid {
		validationRuns.WithLabelValues("valid").Inc()
	} else {
		validationRuns.WithLabelValues("invalid").Inc()
	}
	v.log.Debug("validation finished",
		"valid", r.Valid,
		"errors", len(r.Errors),
		"warnings", len(r.Warnings),
		"nodes", wf.NodeCount(),
	)
	return r
}

// =============================================================================
// Stage A: structural
// =============================================================================

func (v *Validator) stageStructural(wf *graph.Workflow, opts Options, r *Result) {
	if wf.NodeCount() == 0 && !opts.AllowEmpty {
		r.addError("structural", Issue{
			Severity: SeverityError,
			Code:     CodeEmptyWorkflow,
			Message:  "workflow has no nodes",
		})
	}

	names := make(map[string]int, len(wf.Nodes))
	ids := make(map[string]int, len(wf.Nodes))
	for i, n := range wf.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if n.Name == "" {
			r.addError("structural", Issue{
				Severity: SeverityError,
				Code:     CodeMissingNodeName,
				Message:  "node has no name",
				Path:     path,
			})
		} else if prev, dup := names[n.Name]; dup {
			r.addError("structural", Issue{
				Severity: SeverityError,
				Code:     CodeDuplicateNodeName,
				Message:  fmt.Sprintf("node name %q duplicates nodes[%d]", n.Name, prev),
				Path:     path + ".name",
			})
		} else {
			names[n.Name] = i
		}

		if n.Type == "" {
			r.addError("structural", Issue{
				Severity: SeverityError,
				Code:     CodeMissingNodeType,
				Message:  fmt.Sprintf("node %q has no type", n.Name),
				Path:     path + ".type",
			})
		}

		if n.ID != "" {
			if prev, dup := ids[n.ID]; dup {
				r.addError("structural", Issue{
					Severity: SeverityError,
					Code:     CodeDuplicateNodeID,
					Message:  fmt.Sprintf("node id %q duplicates nodes[%d]", n.ID, prev),
					Path:     path + ".id",
				})
			} else {
				ids[n.ID] = i
			}
		}
	}
}

// =============================================================================
// Stage B: catalog / type
// =============================================================================

// stageCatalog resolves every node type and returns the entries keyed
// by node name for use in later stages. Nodes whose type cannot be
// resolved are absent from the returned map.
func (v *Validator) stageCatalog(ctx context.Context, wf *graph.Workflow, r *Result) map[string]*catalog.Entry {
	entries := make(map[string]*catalog.Entry, len(wf.Nodes))
	for i, n := range wf.Nodes {
		if n.Type == "" {
			continue // already a structural error
		}
		path := fmt.Sprintf("nodes[%d].type", i)
		_, entry, err := v.normalizer.Normalize(ctx, n.Type)
		if err != nil {
			issue := Issue{
				Severity: SeverityError,
				Code:     CodeUnknownNodeType,
				Message:  fmt.Sprintf("node %q: %v", n.Name, err),
				Path:     path,
			}
			r.addError("catalog", issue)
			continue
		}
		entries[n.Name] = entry

		switch {
		case n.TypeVersion == 0:
			r.addWarning("catalog", Issue{
				Severity:   SeverityWarning,
				Code:       CodeMissingTypeVersion,
				Message:    fmt.Sprintf("node %q has no typeVersion", n.Name),
				Path:       fmt.Sprintf("nodes[%d].typeVersion", i),
				Suggestion: fmt.Sprintf("use version %v", entry.RecommendedVersion),
			})
		case !entry.SupportsVersion(n.TypeVersion):
			r.addWarning("catalog", Issue{
				Severity: SeverityWarning,
				Code:     CodeTypeVersionRange,
				Message: fmt.Sprintf("node %q typeVersion %v is outside the supported range [%v, %v]",
					n.Name, n.TypeVersion, entry.MinVersion, entry.MaxVersion),
				Path:       fmt.Sprintf("nodes[%d].typeVersion", i),
				Suggestion: fmt.Sprintf("use version %v", entry.RecommendedVersion),
			})
		}
	}
	return entries
}

// =============================================================================
// Stage C: connection integrity
// =============================================================================

func (v *Validator) stageConnections(wf *graph.Workflow, opts Options, entries map[string]*catalog.Entry, r *Result) {
	removed := make(map[string]bool, len(opts.RemovedNodes))
	for _, name := range opts.RemovedNodes {
		removed[name] = true
	}
	exists := make(map[string]bool, len(wf.Nodes))
	for _, n := range wf.Nodes {
		exists[n.Name] = true
	}

	checkEndpoint := func(name, path string) {
		if exists[name] {
			return
		}
		issue := Issue{
			Severity: SeverityError,
			Code:     CodeDanglingConnection,
			Message:  fmt.Sprintf("connection references missing node %q", name),
			Path:     path,
		}
		if removed[name] {
			issue.Code = CodeRemovedNodeRef
			issue.Message = fmt.Sprintf("connection references node %q removed in this batch", name)
		}
		r.addError("connection", issue)
	}

	for source, ports := range wf.Connections {
		checkEndpoint(source, fmt.Sprintf("connections.%s", source))
		for port, slots := range ports {
			for idx, conns := range slots {
				for ci, c := range conns {
					path := fmt.Sprintf("connections.%s.%s[%d][%d]", source, port, idx, ci)
					checkEndpoint(c.Node, path)
					if c.Index < 0 {
						r.addError("connection", Issue{
							Severity: SeverityError,
							Code:     CodeNegativeIndex,
							Message:  fmt.Sprintf("connection %s -> %s has negative input index %d", source, c.Node, c.Index),
							Path:     path + ".index",
						})
					}
				}
			}
		}
	}

	// Orphan detection: a non-entry-point node with no inbound
	// connections in a multi-node graph is probably miswired.
	if wf.NodeCount() > 1 {
		for i, n := range wf.Nodes {
			if n.Disabled {
				continue
			}
			if entry, ok := entries[n.Name]; ok && entry.EntryPoint {
				continue
			}
			if len(wf.InputsOf(n.Name)) == 0 {
				r.addWarning("connection", Issue{
					Severity:   SeverityWarning,
					Code:       CodeOrphanNode,
					Message:    fmt.Sprintf("node %q has no inbound connections and is not an entry point", n.Name),
					Path:       fmt.Sprintf("nodes[%d]", i),
					Suggestion: "connect the node or mark it disabled",
				})
			}
		}
	}
}

// =============================================================================
// Stage D: semantic best practice (advisory only)
// =============================================================================

// stageBestPractice never blocks: by policy its findings, whatever their
// nominal severity, land in Warnings and Suggestions only.
func (v *Validator) stageBestPractice(wf *graph.Workflow, entries map[string]*catalog.Entry, r *Result) {
	total := wf.NodeCount()
	if total == 0 {
		return
	}

	escapeHatch := 0
	for _, n := range wf.Nodes {
		if entry, ok := entries[n.Name]; ok && entry.EscapeHatch {
			escapeHatch++
		}
	}

	ratio := float64(escapeHatch) / float64(total)
	highRatio := ratio > scriptRatioError
	switch {
	case highRatio:
		r.addWarning("semantic", Issue{
			Severity: SeverityError,
			Code:     CodeScriptRatioHigh,
			Message: fmt.Sprintf("%d of %d nodes (%.0f%%) are arbitrary-script nodes",
				escapeHatch, total, ratio*100),
			Suggestion: "replace script nodes with purpose-built node types",
		})
	case ratio > scriptRatioWarning:
		r.addWarning("semantic", Issue{
			Severity: SeverityWarning,
			Code:     CodeScriptRatioElevated,
			Message: fmt.Sprintf("%d of %d nodes (%.0f%%) are arbitrary-script nodes",
				escapeHatch, total, ratio*100),
			Suggestion: "prefer purpose-built node types where one exists",
		})
	}

	for i, n := range wf.Nodes {
		entry, ok := entries[n.Name]
		if !ok || !entry.EscapeHatch {
			continue
		}
		matches := matchScriptPatterns(n.Parameters)
		for _, match := range matches {
			r.addSuggestion("semantic", Issue{
				Severity:   SeverityInfo,
				Code:       CodeReplaceScriptNode,
				Message:    fmt.Sprintf("node %q %s", n.Name, match.Description),
				Path:       fmt.Sprintf("nodes[%d].parameters", i),
				Suggestion: match.Suggestion,
			})
		}
		// A high ratio always carries replacement advice per script
		// node, even when the script body matched nothing concrete.
		if highRatio && len(matches) == 0 {
			r.addSuggestion("semantic", Issue{
				Severity:   SeverityInfo,
				Code:       CodeReplaceScriptNode,
				Message:    fmt.Sprintf("node %q is an arbitrary-script node in a script-heavy workflow", n.Name),
				Path:       fmt.Sprintf("nodes[%d]", i),
				Suggestion: "replace with a purpose-built node type",
			})
		}
	}

	if total > 1 && total-escapeHatch < 2 {
		r.addWarning("semantic", Issue{
			Severity:   SeverityWarning,
			Code:       CodeFewPurposeBuilt,
			Message:    "multi-node workflow has fewer than two purpose-built nodes",
			Suggestion: "move logic from script nodes into purpose-built node types",
		})
	}
}

// =============================================================================
// Stage E: credential shape
// =============================================================================

func (v *Validator) stageCredentials(wf *graph.Workflow, r *Result) {
	for i, n := range wf.Nodes {
		for credType, raw := range n.Credentials {
			path := fmt.Sprintf("nodes[%d].credentials.%s", i, credType)
			record, ok := raw.(map[string]any)
			if !ok {
				r.addError("credential", Issue{
					Severity: SeverityError,
					Code:     CodeCredentialShape,
					Message:  fmt.Sprintf("node %q credential %q must be an object", n.Name, credType),
					Path:     path,
				})
				continue
			}
			name, present := record["name"]
			if !present {
				r.addError("credential", Issue{
					Severity: SeverityError,
					Code:     CodeCredentialShape,
					Message:  fmt.Sprintf("node %q credential %q has no name", n.Name, credType),
					Path:     path,
				})
			} else if _, isString := name.(string); !isString {
				r.addError("credential", Issue{
					Severity: SeverityError,
					Code:     CodeCredentialShape,
					Message:  fmt.Sprintf("node %q credential %q: name must be a string", n.Name, credType),
					Path:     path + ".name",
				})
			}
			if typ, present := record["type"]; present {
				if _, isString := typ.(string); !isString {
					r.addError("credential", Issue{
						Severity: SeverityError,
						Code:     CodeCredentialShape,
						Message:  fmt.Sprintf("node %q credential %q: type must be a string", n.Name, credType),
						Path:     path + ".type",
					})
				}
			}
			if data, present := record["data"]; present {
				if _, isMap := data.(map[string]any); !isMap {
					r.addError("credential", Issue{
						Severity: SeverityError,
						Code:     CodeCredentialShape,
						Message:  fmt.Sprintf("node %q credential %q: data must be an object", n.Name, credType),
						Path:     path + ".data",
					})
				}
			}
		}
	}
}

// =============================================================================
// Result recording
// =============================================================================

func (r *Result) addError(stage string, issue Issue) {
	validationIssues.WithLabelValues(stage, string(issue.Severity)).Inc()
	r.Errors = append(r.Errors, issue)
}

func (r *Result) addWarning(stage string, issue Issue) {
	validationIssues.WithLabelValues(stage, string(issue.Severity)).Inc()
	r.Warnings = append(r.Warnings, issue)
}

func (r *Result) addSuggestion(stage string, issue Issue) {
	validationIssues.WithLabelValues(stage, string(issue.Severity)).Inc()
	r.Suggestions = append(r.Suggestions, issue)
}
