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

// resolveOrder splits a batch into its two dependency passes.
//
// Pass 1 holds node-level operations in submission order, netted
// last-write-wins per node name: a later addNode for a name replaces an
// earlier addNode, and an addNode followed by a removeNode of the same
// name nets to the removal alone. Pass 2 holds connection-level
// operations in submission order; running them after pass 1 makes every
// name introduced anywhere in the batch resolvable. The domain has
// exactly these two dependency classes, so no general topological sort
// is needed.
func resolveOrder(ops []Operation) (nodeOps, connOps []Operation) {
	for _, op := range ops {
		if !op.isNodeOp() {
			connOps = append(connOps, op)
			continue
		}
		nodeOps = append(nodeOps, op)
		nodeOps = netNodeOps(nodeOps)
	}
	return nodeOps, connOps
}

// netNodeOps applies last-write-wins netting after appending the most
// recent node operation.
func netNodeOps(ops []Operation) []Operation {
	last := ops[len(ops)-1]
	name := nodeOpName(last)
	if name == "" {
		return ops
	}

	switch last.Type {
	case OpAddNode:
		// A later add supersedes an earlier add of the same name.
		for i := 0; i < len(ops)-1; i++ {
			if ops[i].Type == OpAddNode && nodeOpName(ops[i]) == name {
				ops = append(ops[:i], ops[i+1:]...)
				return ops
			}
		}
	case OpRemoveNode:
		// A removal cancels earlier adds and updates of the same name.
		kept := ops[:0]
		for i := 0; i < len(ops)-1; i++ {
			if nodeOpName(ops[i]) == name && (ops[i].Type == OpAddNode || ops[i].Type == OpUpdateNode) {
				continue
			}
			kept = append(kept, ops[i])
		}
		ops = append(kept, last)
	}
	return ops
}

// nodeOpName returns the node name a node-level operation targets.
func nodeOpName(op Operation) string {
	if op.Type == OpAddNode {
		if op.Node == nil {
			return ""
		}
		return op.Node.Name
	}
	return op.Name
}
