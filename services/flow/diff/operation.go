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
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/AleutianFlow/services/flow/graph"
	"github.com/AleutianAI/AleutianFlow/services/flow/validate"
)

// OpType tags the operation union.
type OpType string

// Supported operation types. Operations reference nodes by name, never
// by remote-assigned id, so a batch can wire nodes it creates itself.
const (
	OpAddNode          OpType = "addNode"
	OpRemoveNode       OpType = "removeNode"
	OpUpdateNode       OpType = "updateNode"
	OpAddConnection    OpType = "addConnection"
	OpRemoveConnection OpType = "removeConnection"
)

// Operation is one typed instruction to mutate a workflow graph. Only
// the fields matching Type are read.
type Operation struct {
	Type OpType `json:"type" validate:"required,oneof=addNode removeNode updateNode addConnection removeConnection"`

	// Node is the node to create (addNode).
	Node *graph.Node `json:"node,omitempty"`

	// Name addresses an existing node (removeNode, updateNode).
	Name string `json:"name,omitempty"`

	// Updates holds partial node changes (updateNode); see
	// graph.Workflow.UpdateNode for the recognized keys.
	Updates map[string]any `json:"updates,omitempty"`

	// Connection coordinates (addConnection, removeConnection). Ports
	// default to "main" when empty.
	Source      string `json:"source,omitempty"`
	Target      string `json:"target,omitempty"`
	SourcePort  string `json:"sourcePort,omitempty"`
	TargetPort  string `json:"targetPort,omitempty"`
	SourceIndex int    `json:"sourceIndex,omitempty"`
	TargetIndex int    `json:"targetIndex,omitempty"`
}

// isNodeOp reports whether the operation belongs to the node-level pass.
func (op Operation) isNodeOp() bool {
	switch op.Type {
	case OpAddNode, OpRemoveNode, OpUpdateNode:
		return true
	default:
		return false
	}
}

// check verifies the operation carries the fields its type requires.
func (op Operation) check() error {
	switch op.Type {
	case OpAddNode:
		if op.Node == nil {
			return fmt.Errorf("%w: addNode requires a node", ErrInvalidOperation)
		}
		if op.Node.Name == "" {
			return fmt.Errorf("%w: addNode requires a node name", ErrInvalidOperation)
		}
	case OpRemoveNode:
		if op.Name == "" {
			return fmt.Errorf("%w: removeNode requires a name", ErrInvalidOperation)
		}
	case OpUpdateNode:
		if op.Name == "" {
			return fmt.Errorf("%w: updateNode requires a name", ErrInvalidOperation)
		}
		if len(op.Updates) == 0 {
			return fmt.Errorf("%w: updateNode requires updates", ErrInvalidOperation)
		}
	case OpAddConnection, OpRemoveConnection:
		if op.Source == "" || op.Target == "" {
			return fmt.Errorf("%w: %s requires source and target", ErrInvalidOperation, op.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
	}
	return nil
}

// Request is the transport-agnostic diff envelope: which remote
// workflow to mutate and how.
type Request struct {
	WorkflowID string      `json:"workflowId" validate:"required"`
	Operations []Operation `json:"operations" validate:"required,min=1,dive"`
}

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the envelope shape. Graph-level correctness is the
// engine's job; this only rejects requests no engine call could serve.
func (r *Request) Validate() error {
	if err := requestValidator.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	for i, op := range r.Operations {
		if err := op.check(); err != nil {
			return fmt.Errorf("operations[%d]: %w", i, err)
		}
	}
	return nil
}

// Fix codes reported in Result.FixesApplied.
const (
	FixNormalizedType  = "normalized-type-prefix"
	FixFilledVersion   = "filled-type-version"
	FixStrippedFields  = "stripped-remote-fields"
	FixAddedParameters = "added-parameters"
	FixAssignedNodeID  = "assigned-node-id"
)

// Fix records one silent correction the engine applied.
type Fix struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// Result is the outcome of one engine apply.
//
// On failure Graph aliases the caller's base graph, untouched; on
// success it is the validated clone. RemoteVersion is filled by the
// push layer, not the engine.
type Result struct {
	Success       bool             `json:"success"`
	Validation    *validate.Result `json:"validation"`
	FixesApplied  []Fix            `json:"fixesApplied,omitempty"`
	Graph         *graph.Workflow  `json:"resultingGraph,omitempty"`
	RemoteVersion string           `json:"remoteResourceVersion,omitempty"`
}

// FromDocument converts a full-replace workflow document into an
// operation batch against an empty base, so both input shapes share one
// validation path. Remote-owned fields are stripped and reported.
func FromDocument(doc map[string]any) ([]Operation, []Fix, error) {
	var fixes []Fix
	if stripped := graph.StripRemoteOwned(doc); len(stripped) > 0 {
		fixes = append(fixes, Fix{
			Code:    FixStrippedFields,
			Message: fmt.Sprintf("stripped remote-owned fields: %v", stripped),
		})
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var wf graph.Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	ops := make([]Operation, 0, len(wf.Nodes)+wf.ConnectionCount())
	for i := range wf.Nodes {
		node := wf.Nodes[i]
		ops = append(ops, Operation{Type: OpAddNode, Node: &node})
	}
	for source, ports := range wf.Connections {
		for port, slots := range ports {
			for idx, conns := range slots {
				for _, c := range conns {
					ops = append(ops, Operation{
						Type:        OpAddConnection,
						Source:      source,
						SourcePort:  port,
						SourceIndex: idx,
						Target:      c.Node,
						TargetPort:  c.Type,
						TargetIndex: c.Index,
					})
				}
			}
		}
	}
	return ops, fixes, nil
}
