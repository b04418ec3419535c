// Package graph holds the workflow graph model consumed from the persistence
// layer and the compiler that turns it into an executable plan.
package graph

import (
	"fmt"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
)

// Position is a node's placement in the visual editor. Execution never
// consumes it; it is carried so definitions round-trip losslessly.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a placement of a node type inside one workflow.
type Node struct {
	// ID is unique within the workflow.
	ID string `json:"id" yaml:"id"`

	// Type references a registered node type name.
	Type string `json:"type" yaml:"type"`

	// Name is an optional display label; defaults to the type name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Position is editor-only placement data.
	Position Position `json:"position" yaml:"position"`

	// Parameters is the node's parameter-value map.
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Credentials is an optional reference into the credential store.
	Credentials string `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// Connection is a directed edge from one node's output port to another
// node's input port.
type Connection struct {
	ID       string `json:"id" yaml:"id"`
	FromNode string `json:"from_node" yaml:"fromNode"`
	FromPort string `json:"from_port" yaml:"fromPort"`
	ToNode   string `json:"to_node" yaml:"toNode"`
	ToPort   string `json:"to_port" yaml:"toPort"`
}

// Definition is the persisted shape of a workflow: the node list and the
// connection list, exactly as the persistence layer stores them.
type Definition struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Nodes       []Node       `json:"nodes" yaml:"nodes"`
	Connections []Connection `json:"connections" yaml:"connections"`
}

// GetNode returns the node with the given id, or nil.
func (d *Definition) GetNode(id string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// normalize fills in defaulted connection ports so the compiler and loader
// accept definitions that omit port names on simple main-to-main edges.
func (c *Connection) normalize() {
	if c.FromPort == "" {
		c.FromPort = node.PortMain
	}
	if c.ToPort == "" {
		c.ToPort = node.PortMain
	}
}

// GraphErrorCode identifies the class of a graph structure failure.
type GraphErrorCode string

const (
	GraphErrorNoNodes                        GraphErrorCode = "no_nodes"
	GraphErrorNoEntryPoint                   GraphErrorCode = "no_entry_point"
	GraphErrorMultipleOutgoingWithoutHandler GraphErrorCode = "multiple_outgoing_without_handler"
	GraphErrorCycleDetected                  GraphErrorCode = "cycle_detected"
	GraphErrorDanglingConnection             GraphErrorCode = "dangling_connection"
	GraphErrorDuplicateNode                  GraphErrorCode = "duplicate_node"
	GraphErrorSelfLoop                       GraphErrorCode = "self_loop"
	GraphErrorUnknownPort                    GraphErrorCode = "unknown_port"
	GraphErrorUnknownNodeType                GraphErrorCode = "unknown_node_type"
)

// GraphError is a fatal graph structure error, reported before any execution
// starts.
type GraphError struct {
	Code    GraphErrorCode `json:"code"`
	Message string         `json:"message"`
	NodeID  string         `json:"node_id,omitempty"`
	Cause   error          `json:"-"`
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s [node: %s]: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface.
func (e *GraphError) Unwrap() error { return e.Cause }
