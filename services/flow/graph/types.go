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

// DefaultPort is the main data port used when a connection does not
// specify one.
const DefaultPort = "main"

// Node is a single typed step in a workflow.
//
// Name is the addressing key for connections and diff operations and
// must be unique within a workflow. Type is a catalog type key; the
// canonical prefixed form after normalization. Parameters is an open
// payload whose internal shape is owned by the node type, not by this
// core (per-type schema validation is a deliberate non-goal).
type Node struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	TypeVersion float64        `json:"typeVersion,omitempty"`
	Position    [2]float64     `json:"position"`
	Parameters  map[string]any `json:"parameters"`
	Credentials map[string]any `json:"credentials,omitempty"`
	Disabled    bool           `json:"disabled,omitempty"`
}

// Connection is the target half of a directed edge: which node, which
// input port, and which slot on that port.
type Connection struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// PortConnections maps an output port name to its output slots, each
// slot holding the connections fanning out from it.
type PortConnections map[string][][]Connection

// ConnectionMap maps a source node name to its outgoing ports.
type ConnectionMap map[string]PortConnections

// Workflow is the full in-memory workflow document.
type Workflow struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Active      bool           `json:"active,omitempty"`
	Nodes       []Node         `json:"nodes"`
	Connections ConnectionMap  `json:"connections"`
	Settings    map[string]any `json:"settings,omitempty"`
}

// Inbound describes one connection arriving at a node, seen from the
// target side.
type Inbound struct {
	Source      string
	SourcePort  string
	OutputIndex int
	TargetPort  string
	TargetIndex int
}

// RemoteOwnedFields are workflow document keys assigned by the remote
// store. They are stripped from caller-supplied payloads rather than
// rejected; the strip is reported as a fix by the diff engine.
var RemoteOwnedFields = []string{
	"id",
	"createdAt",
	"updatedAt",
	"versionId",
	"isArchived",
	"triggerCount",
	"usedCredentials",
	"sharedWithProjects",
	"meta",
	"shared",
}

// StripRemoteOwned removes remote-owned keys from a raw workflow
// document and returns the keys that were present, in RemoteOwnedFields
// order.
func StripRemoteOwned(doc map[string]any) []string {
	var stripped []string
	for _, key := range RemoteOwnedFields {
		if _, ok := doc[key]; ok {
			delete(doc, key)
			stripped = append(stripped, key)
		}
	}
	return stripped
}
