// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diff

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianFlow/pkg/logging"
	"github.com/AleutianAI/AleutianFlow/services/flow/catalog"
	"github.com/AleutianAI/AleutianFlow/services/flow/graph"
	"github.com/AleutianAI/AleutianFlow/services/flow/validate"
)

var tracer = otel.Tracer("flow.diff")

// nodeIDSpace is the fixed UUIDv5 namespace for name-derived node ids.
// Deriving ids from names keeps repeated applies of the same batch
// byte-identical.
var nodeIDSpace = uuid.MustParse("6f1c24b5-8d0a-4e97-b3c2-51a7e90d4f18")

// Options tunes engine behavior.
type Options struct {
	// Strict disables silent auto-fixing: every correction the lenient
	// mode would apply (type-prefix rewrites, default typeVersion,
	// missing parameter objects) becomes a blocking error instead.
	Strict bool
}

// Engine applies operation batches to workflow graphs.
//
// Engine is read-only after construction and safe for concurrent use;
// every Apply call works on its own clone, so concurrent sessions over
// the same base graph never interfere.
type Engine struct {
	normalizer *catalog.Normalizer
	validator  *validate.Validator
	log        *logging.Logger
	opts       Options
}

// NewEngine returns an Engine backed by the given catalog. A nil logger
// falls back to the package default.
func NewEngine(provider catalog.Provider, log *logging.Logger, opts Options) *Engine {
	if log == nil {
		log = logging.Default()
	}
	return &Engine{
		normalizer: catalog.NewNormalizer(provider),
		validator:  validate.New(provider, log),
		log:        log,
		opts:       opts,
	}
}

// Apply runs one diff batch against base and returns the committed or
// discarded result.
//
// The batch is applied to a clone in two passes (node operations, then
// connection operations), every auto-fix is recorded, and the full
// validator runs once over the fully-applied result. When any blocking
// error exists the clone is discarded and Result.Graph aliases the
// caller's base, untouched. Applying an identical batch to an identical
// base yields an identical result; an empty batch is a no-op.
//
// The only error returns are context cancellation; domain violations
// come back inside the Result.
func (e *Engine) Apply(ctx context.Context, base *graph.Workflow, ops []Operation) (*Result, error) {
	ctx, span := tracer.Start(ctx, "diff.apply",
		trace.WithAttributes(attribute.Int("diff.operations", len(ops))))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if base == nil {
		base = &graph.Workflow{}
	}

	clone := base.Clone()
	state := &applyState{}

	nodeOps, connOps := resolveOrder(ops)
	for _, op := range nodeOps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.applyNodeOp(ctx, clone, op, state)
	}
	for _, op := range connOps {
		e.applyConnOp(clone, op, state)
	}

	// Batches with no node operations may legitimately run against an
	// empty base (an empty batch, or connection edits staged ahead of
	// their nodes); the empty-workflow check would only punish them.
	validation := e.validator.Validate(ctx, clone, validate.Options{
		AllowEmpty:   len(nodeOps) == 0,
		RemovedNodes: state.removed,
	})
	for _, issue := range state.issues {
		validation.AddBlockingIssue(issue)
	}

	result := &Result{
		Validation:   validation,
		FixesApplied: state.fixes,
	}
	if validation.Valid {
		result.Success = true
		result.Graph = clone
		diffApplies.WithLabelValues("committed").Inc()
	} else {
		result.Graph = base
		diffApplies.WithLabelValues("discarded").Inc()
	}
	for _, fix := range state.fixes {
		diffFixes.WithLabelValues(fix.Code).Inc()
	}

	span.SetAttributes(attribute.Bool("diff.committed", result.Success))
	e.log.Info("diff applied",
		"operations", len(ops),
		"committed", result.Success,
		"fixes", len(state.fixes),
		"errors", len(validation.Errors),
	)
	return result, nil
}

// ApplyRequest validates a request envelope and runs it against base.
func (e *Engine) ApplyRequest(ctx context.Context, base *graph.Workflow, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return e.Apply(ctx, base, req.Operations)
}

// applyState accumulates fixes, blocking issues, and removed names
// across one Apply call.
type applyState struct {
	fixes   []Fix
	issues  []validate.Issue
	removed []string
}

func (s *applyState) fix(code, message, path string) {
	s.fixes = append(s.fixes, Fix{Code: code, Message: message, Path: path})
}

func (s *applyState) fail(message string) {
	s.issues = append(s.issues, validate.Issue{
		Code:    validate.CodeOperationFailed,
		Message: message,
	})
}

func (s *applyState) strictFail(message, path string) {
	s.issues = append(s.issues, validate.Issue{
		Code:    validate.CodeStrictFixRequired,
		Message: message,
		Path:    path,
	})
}

// =============================================================================
// Pass 1: node operations
// =============================================================================

func (e *Engine) applyNodeOp(ctx context.Context, wf *graph.Workflow, op Operation, state *applyState) {
	if err := op.check(); err != nil {
		state.fail(err.Error())
		return
	}
	switch op.Type {
	case OpAddNode:
		node := *op.Node
		e.prepareNode(ctx, &node, state)
		if err := wf.AddNode(node); err != nil {
			state.fail(fmt.Sprintf("addNode %q: %v", node.Name, err))
		}
	case OpRemoveNode:
		if err := wf.RemoveNode(op.Name); err != nil {
			state.fail(fmt.Sprintf("removeNode %q: %v", op.Name, err))
			return
		}
		state.removed = append(state.removed, op.Name)
	case OpUpdateNode:
		updates := op.Updates
		if raw, ok := updates["type"].(string); ok {
			if key, _, err := e.normalizer.Normalize(ctx, raw); err == nil && key != raw {
				if e.opts.Strict {
					state.strictFail(
						fmt.Sprintf("updateNode %q: type %q is not canonical (want %q)", op.Name, raw, key), "")
					return
				}
				updates = cloneUpdates(updates)
				updates["type"] = key
				state.fix(FixNormalizedType,
					fmt.Sprintf("normalized type %q to %q", raw, key), "")
			}
		}
		if err := wf.UpdateNode(op.Name, updates); err != nil {
			state.fail(fmt.Sprintf("updateNode %q: %v", op.Name, err))
		}
	}
}

// prepareNode applies the lenient corrections to a node about to be
// added: canonical type prefix, recommended typeVersion, an id, and a
// parameters object. In strict mode each correction becomes a blocking
// issue and the node is left as submitted.
func (e *Engine) prepareNode(ctx context.Context, node *graph.Node, state *applyState) {
	path := fmt.Sprintf("nodes[%s]", node.Name)

	var entry *catalog.Entry
	if node.Type != "" {
		key, found, err := e.normalizer.Normalize(ctx, node.Type)
		if err == nil {
			entry = found
			if key != node.Type {
				if e.opts.Strict {
					state.strictFail(
						fmt.Sprintf("node %q: type %q is not canonical (want %q)", node.Name, node.Type, key),
						path+".type")
				} else {
					state.fix(FixNormalizedType,
						fmt.Sprintf("normalized type %q to %q", node.Type, key), path+".type")
					node.Type = key
				}
			}
		}
		// Unresolvable types are left as-is for stage B to report.
	}

	if node.TypeVersion == 0 && entry != nil {
		if e.opts.Strict {
			state.strictFail(
				fmt.Sprintf("node %q: typeVersion is required", node.Name), path+".typeVersion")
		} else {
			node.TypeVersion = entry.RecommendedVersion
			state.fix(FixFilledVersion,
				fmt.Sprintf("node %q: filled typeVersion %v", node.Name, entry.RecommendedVersion),
				path+".typeVersion")
		}
	}

	if node.Parameters == nil {
		if e.opts.Strict {
			state.strictFail(
				fmt.Sprintf("node %q: parameters object is required", node.Name), path+".parameters")
		} else {
			node.Parameters = map[string]any{}
			state.fix(FixAddedParameters,
				fmt.Sprintf("node %q: added empty parameters object", node.Name), path+".parameters")
		}
	}

	if node.ID == "" {
		// Ids are remote-owned but the model wants local uniqueness;
		// assigning one locally is always safe, so strict mode does not
		// reject it. The id is derived from the node name so the same
		// batch against the same base always yields the same graph.
		node.ID = uuid.NewSHA1(nodeIDSpace, []byte(node.Name)).String()
		state.fix(FixAssignedNodeID,
			fmt.Sprintf("node %q: assigned id", node.Name), path+".id")
	}
}

// =============================================================================
// Pass 2: connection operations
// =============================================================================

func (e *Engine) applyConnOp(wf *graph.Workflow, op Operation, state *applyState) {
	if err := op.check(); err != nil {
		state.fail(err.Error())
		return
	}
	switch op.Type {
	case OpAddConnection:
		conn := graph.Connection{Node: op.Target, Type: op.TargetPort, Index: op.TargetIndex}
		err := wf.SetConnection(op.Source, op.SourcePort, op.SourceIndex, conn)
		if err == nil {
			return
		}
		// Missing endpoints are written through anyway so the validator
		// reports them as stage C findings naming the missing node;
		// anything else is an operation failure.
		if e.isMissingEndpoint(wf, op) {
			forceConnection(wf, op)
			return
		}
		state.fail(fmt.Sprintf("addConnection %s -> %s: %v", op.Source, op.Target, err))
	case OpRemoveConnection:
		err := wf.RemoveConnection(op.Source, op.SourcePort, op.Target, op.TargetPort, op.TargetIndex)
		if err != nil {
			state.fail(fmt.Sprintf("removeConnection %s -> %s: %v", op.Source, op.Target, err))
		}
	}
}

func (e *Engine) isMissingEndpoint(wf *graph.Workflow, op Operation) bool {
	if op.SourceIndex < 0 || op.TargetIndex < 0 {
		return false
	}
	_, sourceOK := wf.NodeByName(op.Source)
	_, targetOK := wf.NodeByName(op.Target)
	return !sourceOK || !targetOK
}

// forceConnection writes a connection into the raw map, bypassing the
// model's endpoint check. Only used to surface dangling references
// through stage C instead of a bare operation failure.
func forceConnection(wf *graph.Workflow, op Operation) {
	sourcePort := op.SourcePort
	if sourcePort == "" {
		sourcePort = graph.DefaultPort
	}
	targetPort := op.TargetPort
	if targetPort == "" {
		targetPort = graph.DefaultPort
	}
	if wf.Connections == nil {
		wf.Connections = graph.ConnectionMap{}
	}
	ports := wf.Connections[op.Source]
	if ports == nil {
		ports = graph.PortConnections{}
		wf.Connections[op.Source] = ports
	}
	slots := ports[sourcePort]
	for len(slots) <= op.SourceIndex {
		slots = append(slots, nil)
	}
	slots[op.SourceIndex] = append(slots[op.SourceIndex],
		graph.Connection{Node: op.Target, Type: targetPort, Index: op.TargetIndex})
	ports[sourcePort] = slots
}

func cloneUpdates(updates map[string]any) map[string]any {
	out := make(map[string]any, len(updates))
	for k, v := range updates {
		out[k] = v
	}
	return out
}
