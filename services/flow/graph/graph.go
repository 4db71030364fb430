// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"strings"
)

// =============================================================================
// Cloning
// =============================================================================

// Clone returns a deep copy of the workflow. Open parameter payloads are
// copied recursively so mutations on the clone can never leak into the
// original. Scalar leaves are shared (they are immutable in Go).
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	out := &Workflow{
		ID:     w.ID,
		Name:   w.Name,
		Active: w.Active,
	}
	if w.Nodes != nil {
		out.Nodes = make([]Node, len(w.Nodes))
		for i, n := range w.Nodes {
			out.Nodes[i] = cloneNode(n)
		}
	}
	if w.Connections != nil {
		out.Connections = w.Connections.clone()
	}
	if w.Settings != nil {
		out.Settings = cloneMap(w.Settings)
	}
	return out
}

func cloneNode(n Node) Node {
	c := n
	if n.Parameters != nil {
		c.Parameters = cloneMap(n.Parameters)
	}
	if n.Credentials != nil {
		c.Credentials = cloneMap(n.Credentials)
	}
	return c
}

func (cm ConnectionMap) clone() ConnectionMap {
	out := make(ConnectionMap, len(cm))
	for source, ports := range cm {
		cp := make(PortConnections, len(ports))
		for port, slots := range ports {
			cs := make([][]Connection, len(slots))
			for i, conns := range slots {
				cs[i] = append([]Connection(nil), conns...)
			}
			cp[port] = cs
		}
		out[source] = cp
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// =============================================================================
// Queries
// =============================================================================

// NodeByName returns the node with the given name, or false when absent.
// The returned pointer aliases the workflow's backing slice; callers
// must not hold it across mutations.
func (w *Workflow) NodeByName(name string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].Name == name {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// OutputsOf returns the outgoing port map of a node, or nil when the
// node has no outgoing connections.
func (w *Workflow) OutputsOf(name string) PortConnections {
	return w.Connections[name]
}

// InputsOf returns every connection arriving at the named node.
func (w *Workflow) InputsOf(name string) []Inbound {
	var in []Inbound
	for source, ports := range w.Connections {
		for port, slots := range ports {
			for idx, conns := range slots {
				for _, c := range conns {
					if c.Node == name {
						in = append(in, Inbound{
							Source:      source,
							SourcePort:  port,
							OutputIndex: idx,
							TargetPort:  c.Type,
							TargetIndex: c.Index,
						})
					}
				}
			}
		}
	}
	return in
}

// NodeCount returns the number of nodes.
func (w *Workflow) NodeCount() int { return len(w.Nodes) }

// ConnectionCount returns the total number of directed edges.
func (w *Workflow) ConnectionCount() int {
	count := 0
	for _, ports := range w.Connections {
		for _, slots := range ports {
			for _, conns := range slots {
				count += len(conns)
			}
		}
	}
	return count
}

// =============================================================================
// Mutations
// =============================================================================

// AddNode appends a node. The name and, when set, the id must be unique.
func (w *Workflow) AddNode(n Node) error {
	for i := range w.Nodes {
		if w.Nodes[i].Name == n.Name {
			return fmt.Errorf("%w: name %q", ErrDuplicateNode, n.Name)
		}
		if n.ID != "" && w.Nodes[i].ID == n.ID {
			return fmt.Errorf("%w: id %q", ErrDuplicateNode, n.ID)
		}
	}
	w.Nodes = append(w.Nodes, n)
	return nil
}

// RemoveNode deletes a node and strips every connection that references
// it, on either side.
func (w *Workflow) RemoveNode(name string) error {
	idx := -1
	for i := range w.Nodes {
		if w.Nodes[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}
	w.Nodes = append(w.Nodes[:idx], w.Nodes[idx+1:]...)

	delete(w.Connections, name)
	for source, ports := range w.Connections {
		for port, slots := range ports {
			for i, conns := range slots {
				kept := conns[:0]
				for _, c := range conns {
					if c.Node != name {
						kept = append(kept, c)
					}
				}
				slots[i] = kept
			}
			ports[port] = slots
		}
		w.Connections[source] = ports
	}
	return nil
}

// UpdateNode applies a partial update to the named node.
//
// Recognized keys: "name", "type", "typeVersion", "position", "disabled",
// "parameters", "credentials", plus dotted paths under "parameters."
// (for example "parameters.url"). Renaming a node rewrites every
// connection reference so the graph stays consistent.
func (w *Workflow) UpdateNode(name string, changes map[string]any) error {
	node, ok := w.NodeByName(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}
	for key, value := range changes {
		if err := w.applyNodeChange(node, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workflow) applyNodeChange(node *Node, key string, value any) error {
	switch {
	case key == "name":
		newName, ok := value.(string)
		if !ok || newName == "" {
			return fmt.Errorf("%w: name must be a non-empty string", ErrUnknownField)
		}
		if newName == node.Name {
			return nil
		}
		if _, exists := w.NodeByName(newName); exists {
			return fmt.Errorf("%w: name %q", ErrDuplicateNode, newName)
		}
		w.renameReferences(node.Name, newName)
		node.Name = newName
	case key == "type":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: type must be a string", ErrUnknownField)
		}
		node.Type = s
	case key == "typeVersion":
		f, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("%w: typeVersion must be numeric", ErrUnknownField)
		}
		node.TypeVersion = f
	case key == "position":
		pos, ok := toPosition(value)
		if !ok {
			return fmt.Errorf("%w: position must be [x, y]", ErrUnknownField)
		}
		node.Position = pos
	case key == "disabled":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: disabled must be a bool", ErrUnknownField)
		}
		node.Disabled = b
	case key == "parameters":
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: parameters must be an object", ErrUnknownField)
		}
		node.Parameters = cloneMap(m)
	case key == "credentials":
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: credentials must be an object", ErrUnknownField)
		}
		node.Credentials = cloneMap(m)
	case strings.HasPrefix(key, "parameters."):
		if node.Parameters == nil {
			node.Parameters = make(map[string]any)
		}
		setPath(node.Parameters, strings.Split(key[len("parameters."):], "."), value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	return nil
}

// renameReferences rewrites the connection map after a node rename.
func (w *Workflow) renameReferences(oldName, newName string) {
	if ports, ok := w.Connections[oldName]; ok {
		delete(w.Connections, oldName)
		if w.Connections == nil {
			w.Connections = make(ConnectionMap)
		}
		w.Connections[newName] = ports
	}
	for _, ports := range w.Connections {
		for _, slots := range ports {
			for _, conns := range slots {
				for i := range conns {
					if conns[i].Node == oldName {
						conns[i].Node = newName
					}
				}
			}
		}
	}
}

// SetConnection adds a directed edge from an output slot of source to an
// input slot of the target. Both endpoints must already exist; adding an
// identical edge twice is a no-op.
func (w *Workflow) SetConnection(source, sourcePort string, sourceIndex int, conn Connection) error {
	if source == "" || conn.Node == "" || sourceIndex < 0 || conn.Index < 0 {
		return ErrInvalidEndpoint
	}
	if _, ok := w.NodeByName(source); !ok {
		return fmt.Errorf("%w: source %q", ErrNodeNotFound, source)
	}
	if _, ok := w.NodeByName(conn.Node); !ok {
		return fmt.Errorf("%w: target %q", ErrNodeNotFound, conn.Node)
	}
	if sourcePort == "" {
		sourcePort = DefaultPort
	}
	if conn.Type == "" {
		conn.Type = DefaultPort
	}

	if w.Connections == nil {
		w.Connections = make(ConnectionMap)
	}
	ports := w.Connections[source]
	if ports == nil {
		ports = make(PortConnections)
		w.Connections[source] = ports
	}
	slots := ports[sourcePort]
	for len(slots) <= sourceIndex {
		slots = append(slots, nil)
	}
	for _, existing := range slots[sourceIndex] {
		if existing == conn {
			ports[sourcePort] = slots
			return nil
		}
	}
	slots[sourceIndex] = append(slots[sourceIndex], conn)
	ports[sourcePort] = slots
	return nil
}

// RemoveConnection deletes the edge matching every coordinate. Port
// names default to DefaultPort when empty.
func (w *Workflow) RemoveConnection(source, sourcePort string, target, targetPort string, targetIndex int) error {
	if sourcePort == "" {
		sourcePort = DefaultPort
	}
	if targetPort == "" {
		targetPort = DefaultPort
	}
	ports, ok := w.Connections[source]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrConnectionNotFound, source, target)
	}
	slots := ports[sourcePort]
	removed := false
	for i, conns := range slots {
		kept := conns[:0]
		for _, c := range conns {
			if c.Node == target && c.Type == targetPort && (targetIndex < 0 || c.Index == targetIndex) {
				removed = true
				continue
			}
			kept = append(kept, c)
		}
		slots[i] = kept
	}
	if !removed {
		return fmt.Errorf("%w: %s -> %s", ErrConnectionNotFound, source, target)
	}
	ports[sourcePort] = slots
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func toPosition(v any) ([2]float64, bool) {
	switch t := v.(type) {
	case [2]float64:
		return t, true
	case []float64:
		if len(t) == 2 {
			return [2]float64{t[0], t[1]}, true
		}
	case []any:
		if len(t) == 2 {
			x, okX := toFloat(t[0])
			y, okY := toFloat(t[1])
			if okX && okY {
				return [2]float64{x, y}, true
			}
		}
	}
	return [2]float64{}, false
}

// setPath writes value at a dotted path, creating intermediate objects
// and overwriting non-object intermediates.
func setPath(m map[string]any, path []string, value any) {
	for i, key := range path {
		if i == len(path)-1 {
			m[key] = cloneValue(value)
			return
		}
		next, ok := m[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[key] = next
		}
		m = next
	}
}
