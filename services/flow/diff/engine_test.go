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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFlow/pkg/logging"
	"github.com/AleutianAI/AleutianFlow/services/flow/catalog"
	"github.com/AleutianAI/AleutianFlow/services/flow/graph"
	"github.com/AleutianAI/AleutianFlow/services/flow/validate"
)

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	return NewEngine(catalog.Default(), logging.Discard(), opts)
}

// baseWorkflow returns a small valid graph: a webhook trigger feeding a
// set node.
func baseWorkflow() *graph.Workflow {
	return &graph.Workflow{
		Name: "orders",
		Nodes: []graph.Node{
			{
				ID:          "n1",
				Name:        "Start",
				Type:        "n8n-nodes-base.webhook",
				TypeVersion: 2,
				Parameters:  map[string]any{"path": "orders"},
			},
			{
				ID:          "n2",
				Name:        "Transform",
				Type:        "n8n-nodes-base.set",
				TypeVersion: 3.4,
				Parameters:  map[string]any{},
			},
		},
		Connections: graph.ConnectionMap{
			"Start": {
				"main": [][]graph.Connection{
					{{Node: "Transform", Type: "main", Index: 0}},
				},
			},
		},
	}
}

func hasFix(fixes []Fix, code string) bool {
	for _, f := range fixes {
		if f.Code == code {
			return true
		}
	}
	return false
}

func hasIssue(issues []validate.Issue, code string) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

func TestApply_EmptyBatchIsNoOp(t *testing.T) {
	e := newEngine(t, Options{})
	base := baseWorkflow()

	result, err := e.Apply(context.Background(), base, nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Empty(t, result.FixesApplied)
	assert.Equal(t, base.NodeCount(), result.Graph.NodeCount())
	assert.Equal(t, base.ConnectionCount(), result.Graph.ConnectionCount())
}

func TestApply_EmptyBatchOnEmptyBase(t *testing.T) {
	e := newEngine(t, Options{})

	result, err := e.Apply(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestApply_BaseNeverMutated(t *testing.T) {
	e := newEngine(t, Options{})
	base := baseWorkflow()

	_, err := e.Apply(context.Background(), base, []Operation{
		{Type: OpRemoveNode, Name: "Transform"},
		{Type: OpAddNode, Node: &graph.Node{
			Name: "Notify",
			Type: "n8n-nodes-base.slack",
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, base.NodeCount())
	_, ok := base.NodeByName("Transform")
	assert.True(t, ok, "removed node must survive in the caller's base")
	_, ok = base.NodeByName("Notify")
	assert.False(t, ok, "added node must not appear in the caller's base")
}

func TestApply_FailureReturnsBaseUntouched(t *testing.T) {
	e := newEngine(t, Options{})
	base := baseWorkflow()

	result, err := e.Apply(context.Background(), base, []Operation{
		{Type: OpAddNode, Node: &graph.Node{Name: "Bad", Type: "no.such.type"}},
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Same(t, base, result.Graph, "failed apply must hand back the original graph")
	assert.True(t, hasIssue(result.Validation.Errors, validate.CodeUnknownNodeType))
}

func TestApply_AutoFixesOnAdd(t *testing.T) {
	e := newEngine(t, Options{})
	base := baseWorkflow()

	result, err := e.Apply(context.Background(), base, []Operation{
		{Type: OpAddNode, Node: &graph.Node{Name: "Hook", Type: "webhook"}},
	})
	require.NoError(t, err)
	require.True(t, result.Success, "errors: %+v", result.Validation.Errors)

	node, ok := result.Graph.NodeByName("Hook")
	require.True(t, ok)
	assert.Equal(t, "n8n-nodes-base.webhook", node.Type)
	assert.NotZero(t, node.TypeVersion)
	assert.NotEmpty(t, node.ID)
	assert.NotNil(t, node.Parameters)

	assert.True(t, hasFix(result.FixesApplied, FixNormalizedType))
	assert.True(t, hasFix(result.FixesApplied, FixFilledVersion))
	assert.True(t, hasFix(result.FixesApplied, FixAssignedNodeID))
	assert.True(t, hasFix(result.FixesApplied, FixAddedParameters))
}

func TestApply_StrictModeRejectsFixableInput(t *testing.T) {
	e := newEngine(t, Options{Strict: true})
	base := baseWorkflow()

	result, err := e.Apply(context.Background(), base, []Operation{
		{Type: OpAddNode, Node: &graph.Node{Name: "Hook", Type: "webhook"}},
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.True(t, hasIssue(result.Validation.Errors, validate.CodeStrictFixRequired))
	assert.Same(t, base, result.Graph)
	assert.False(t, hasFix(result.FixesApplied, FixNormalizedType))
}

func TestApply_OrderIndependence(t *testing.T) {
	forward := []Operation{
		{Type: OpAddNode, Node: &graph.Node{
			Name:        "Notify",
			Type:        "n8n-nodes-base.slack",
			TypeVersion: 2.1,
			Parameters:  map[string]any{},
		}},
		{Type: OpAddConnection, Source: "Transform", Target: "Notify"},
	}
	reversed := []Operation{forward[1], forward[0]}

	e := newEngine(t, Options{})
	r1, err := e.Apply(context.Background(), baseWorkflow(), forward)
	require.NoError(t, err)
	r2, err := e.Apply(context.Background(), baseWorkflow(), reversed)
	require.NoError(t, err)

	require.True(t, r1.Success)
	require.True(t, r2.Success)
	assert.Equal(t, r1.Graph.Nodes, r2.Graph.Nodes)
	assert.Equal(t, r1.Graph.Connections, r2.Graph.Connections)
}

func TestApply_DanglingConnectionNamesMissingNode(t *testing.T) {
	e := newEngine(t, Options{})
	base := baseWorkflow()

	result, err := e.Apply(context.Background(), base, []Operation{
		{Type: OpAddConnection, Source: "Transform", Target: "Ghost"},
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Same(t, base, result.Graph)

	require.True(t, hasIssue(result.Validation.Errors, validate.CodeDanglingConnection))
	found := false
	for _, issue := range result.Validation.Errors {
		if issue.Code == validate.CodeDanglingConnection {
			assert.Contains(t, issue.Message, "Ghost")
			found = true
		}
	}
	assert.True(t, found)
}

func TestApply_RemovedNodeGetsSpecificError(t *testing.T) {
	e := newEngine(t, Options{})

	result, err := e.Apply(context.Background(), baseWorkflow(), []Operation{
		{Type: OpRemoveNode, Name: "Transform"},
		{Type: OpAddConnection, Source: "Start", Target: "Transform"},
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.True(t, hasIssue(result.Validation.Errors, validate.CodeRemovedNodeRef))
}

func TestApply_RemoveConnection(t *testing.T) {
	e := newEngine(t, Options{})

	result, err := e.Apply(context.Background(), baseWorkflow(), []Operation{
		{Type: OpRemoveConnection, Source: "Start", Target: "Transform"},
	})
	require.NoError(t, err)
	require.True(t, result.Success, "errors: %+v", result.Validation.Errors)
	assert.Zero(t, result.Graph.ConnectionCount())
}

func TestApply_RemoveMissingConnectionFails(t *testing.T) {
	e := newEngine(t, Options{})

	result, err := e.Apply(context.Background(), baseWorkflow(), []Operation{
		{Type: OpRemoveConnection, Source: "Transform", Target: "Start"},
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.True(t, hasIssue(result.Validation.Errors, validate.CodeOperationFailed))
}

func TestApply_UpdateNodeNormalizesType(t *testing.T) {
	e := newEngine(t, Options{})

	result, err := e.Apply(context.Background(), baseWorkflow(), []Operation{
		{Type: OpUpdateNode, Name: "Transform", Updates: map[string]any{
			"type": "nodes-base.if",
		}},
	})
	require.NoError(t, err)
	require.True(t, result.Success, "errors: %+v", result.Validation.Errors)

	node, ok := result.Graph.NodeByName("Transform")
	require.True(t, ok)
	assert.Equal(t, "n8n-nodes-base.if", node.Type)
	assert.True(t, hasFix(result.FixesApplied, FixNormalizedType))
}

func TestApply_UpdateMissingNodeFails(t *testing.T) {
	e := newEngine(t, Options{})
	base := baseWorkflow()

	result, err := e.Apply(context.Background(), base, []Operation{
		{Type: OpUpdateNode, Name: "Ghost", Updates: map[string]any{"disabled": true}},
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.True(t, hasIssue(result.Validation.Errors, validate.CodeOperationFailed))
	assert.Same(t, base, result.Graph)
}

func TestApply_RenameRewritesConnections(t *testing.T) {
	e := newEngine(t, Options{})

	result, err := e.Apply(context.Background(), baseWorkflow(), []Operation{
		{Type: OpUpdateNode, Name: "Transform", Updates: map[string]any{"name": "Reshape"}},
	})
	require.NoError(t, err)
	require.True(t, result.Success, "errors: %+v", result.Validation.Errors)

	inbound := result.Graph.InputsOf("Reshape")
	require.Len(t, inbound, 1)
	assert.Equal(t, "Start", inbound[0].Source)
}

func TestApply_CancelledContext(t *testing.T) {
	e := newEngine(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Apply(ctx, baseWorkflow(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyRequest_RejectsMalformedEnvelope(t *testing.T) {
	e := newEngine(t, Options{})

	_, err := e.ApplyRequest(context.Background(), baseWorkflow(), &Request{})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = e.ApplyRequest(context.Background(), baseWorkflow(), &Request{
		WorkflowID: "wf-1",
		Operations: []Operation{{Type: OpRemoveNode}},
	})
	assert.Error(t, err)
}

func TestApplyRequest_Valid(t *testing.T) {
	e := newEngine(t, Options{})

	result, err := e.ApplyRequest(context.Background(), baseWorkflow(), &Request{
		WorkflowID: "wf-1",
		Operations: []Operation{{Type: OpRemoveConnection, Source: "Start", Target: "Transform"}},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestFromDocument(t *testing.T) {
	doc := map[string]any{
		"id":        "remote-id",
		"updatedAt": "2026-01-01T00:00:00Z",
		"name":      "imported",
		"nodes": []any{
			map[string]any{
				"name":        "Start",
				"type":        "n8n-nodes-base.manualTrigger",
				"typeVersion": 1,
				"parameters":  map[string]any{},
			},
			map[string]any{
				"name":        "Fetch",
				"type":        "n8n-nodes-base.httpRequest",
				"typeVersion": 4.2,
				"parameters":  map[string]any{"url": "https://example.com"},
			},
		},
		"connections": map[string]any{
			"Start": map[string]any{
				"main": []any{
					[]any{map[string]any{"node": "Fetch", "type": "main", "index": 0}},
				},
			},
		},
	}

	ops, fixes, err := FromDocument(doc)
	require.NoError(t, err)
	require.True(t, hasFix(fixes, FixStrippedFields))
	require.Len(t, ops, 3)

	e := newEngine(t, Options{})
	result, err := e.Apply(context.Background(), nil, ops)
	require.NoError(t, err)
	require.True(t, result.Success, "errors: %+v", result.Validation.Errors)
	assert.Equal(t, 2, result.Graph.NodeCount())
	assert.Equal(t, 1, result.Graph.ConnectionCount())
}

func TestFromDocument_Malformed(t *testing.T) {
	_, _, err := FromDocument(map[string]any{"nodes": "not-a-list"})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestApply_RepeatedBatchIsDeterministic(t *testing.T) {
	ops := []Operation{
		{Type: OpAddNode, Node: &graph.Node{
			Name:        "Branch",
			Type:        "n8n-nodes-base.if",
			TypeVersion: 2.2,
			Parameters:  map[string]any{},
		}},
		{Type: OpAddConnection, Source: "Transform", Target: "Branch"},
	}

	e := newEngine(t, Options{})
	r1, err := e.Apply(context.Background(), baseWorkflow(), ops)
	require.NoError(t, err)
	r2, err := e.Apply(context.Background(), baseWorkflow(), ops)
	require.NoError(t, err)

	// The node carried no id, so both applies assigned one; the graphs
	// must still be identical, id included.
	require.True(t, hasFix(r1.FixesApplied, FixAssignedNodeID))
	assert.Equal(t, r1.Success, r2.Success)
	assert.Equal(t, r1.Graph.Nodes, r2.Graph.Nodes)
	assert.Equal(t, r1.Graph.Connections, r2.Graph.Connections)
	assert.Equal(t, r1.FixesApplied, r2.FixesApplied)
}

func TestApply_AssignedNodeIDIsStable(t *testing.T) {
	op := []Operation{
		{Type: OpAddNode, Node: &graph.Node{
			Name:        "Branch",
			Type:        "n8n-nodes-base.if",
			TypeVersion: 2.2,
			Parameters:  map[string]any{},
		}},
	}

	e := newEngine(t, Options{})
	r1, err := e.Apply(context.Background(), baseWorkflow(), op)
	require.NoError(t, err)
	r2, err := e.Apply(context.Background(), baseWorkflow(), op)
	require.NoError(t, err)

	n1, ok := r1.Graph.NodeByName("Branch")
	require.True(t, ok)
	n2, ok := r2.Graph.NodeByName("Branch")
	require.True(t, ok)
	require.NotEmpty(t, n1.ID)
	assert.Equal(t, n1.ID, n2.ID)
}
