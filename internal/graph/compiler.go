package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
)

// SuccessorKind classifies how execution proceeds after a node.
type SuccessorKind string

const (
	// SuccessorTerminal marks a node with no outgoing connections.
	SuccessorTerminal SuccessorKind = "terminal"

	// SuccessorDirect marks a node with exactly one outgoing connection.
	SuccessorDirect SuccessorKind = "direct"

	// SuccessorConditional marks a node whose successor is chosen at run
	// time by the output port the node actually produced.
	SuccessorConditional SuccessorKind = "conditional"
)

// Successor describes the outgoing edge(s) of one node in the compiled plan.
type Successor struct {
	Kind SuccessorKind `json:"kind"`

	// Target is the successor node id for direct edges.
	Target string `json:"target,omitempty"`

	// ByPort maps a source output port to the successor node id for
	// conditional edges. A produced port with no entry ends the walk.
	ByPort map[string]string `json:"by_port,omitempty"`
}

// InputWire records that an upstream node's output port feeds one of a
// node's input ports. Wires are ordered by connection input order.
type InputWire struct {
	FromNode string `json:"from_node"`
	FromPort string `json:"from_port"`
	ToPort   string `json:"to_port"`
}

// Plan is the compiled, directed form of a workflow graph. It is immutable
// once built; the execution engine walks it without modifying it.
type Plan struct {
	// WorkflowID identifies the definition the plan was compiled from.
	WorkflowID string `json:"workflow_id"`

	// Entry is the node id execution starts at.
	Entry string `json:"entry"`

	// Nodes holds the resolved node instances by id.
	Nodes map[string]*Node `json:"nodes"`

	// Successors maps node id to its outgoing edge description.
	Successors map[string]Successor `json:"successors"`

	// Inputs maps node id to the wires feeding its input ports.
	Inputs map[string][]InputWire `json:"inputs"`
}

// Compiler turns a workflow definition into an executable plan, consulting
// the node type registry for port and capability shape.
type Compiler struct {
	registry *node.Registry
}

// NewCompiler creates a compiler backed by the given node type registry.
func NewCompiler(registry *node.Registry) *Compiler {
	return &Compiler{registry: registry}
}

// Compile validates the definition and produces its execution plan.
//
// Validation order matters for error reporting: structural checks (empty
// graph, dangling connections, self-loops, undeclared ports) run first, then
// cycle rejection, then entry-point resolution. The entry point is the node
// with in-degree zero; with several candidates the first in input order wins,
// which keeps compilation deterministic and order-preserving.
func (c *Compiler) Compile(def *Definition) (*Plan, error) {
	if def == nil || len(def.Nodes) == 0 {
		return nil, &GraphError{
			Code:    GraphErrorNoNodes,
			Message: "workflow has no nodes",
		}
	}

	nodes := make(map[string]*Node, len(def.Nodes))
	descs := make(map[string]*node.Description, len(def.Nodes))
	for i := range def.Nodes {
		n := &def.Nodes[i]
		if _, dup := nodes[n.ID]; dup {
			return nil, &GraphError{
				Code:    GraphErrorDuplicateNode,
				Message: fmt.Sprintf("duplicate node id %q", n.ID),
				NodeID:  n.ID,
			}
		}
		desc, err := c.registry.Describe(n.Type)
		if err != nil {
			var unknown *node.UnknownNodeTypeError
			if errors.As(err, &unknown) {
				return nil, &GraphError{
					Code:    GraphErrorUnknownNodeType,
					Message: fmt.Sprintf("node %q references unknown type %q", n.ID, n.Type),
					NodeID:  n.ID,
					Cause:   err,
				}
			}
			return nil, err
		}
		nodes[n.ID] = n
		descs[n.ID] = desc
	}

	indegree := make(map[string]int, len(nodes))
	outgoing := make(map[string][]Connection)
	inputs := make(map[string][]InputWire)
	for id := range nodes {
		indegree[id] = 0
	}

	for i := range def.Connections {
		conn := def.Connections[i]
		conn.normalize()

		if err := c.validateConnection(&conn, nodes, descs); err != nil {
			return nil, err
		}

		indegree[conn.ToNode]++
		outgoing[conn.FromNode] = append(outgoing[conn.FromNode], conn)
		inputs[conn.ToNode] = append(inputs[conn.ToNode], InputWire{
			FromNode: conn.FromNode,
			FromPort: conn.FromPort,
			ToPort:   conn.ToPort,
		})
	}

	if cycle := detectCycle(nodes, outgoing); len(cycle) > 0 {
		return nil, &GraphError{
			Code:    GraphErrorCycleDetected,
			Message: fmt.Sprintf("cycle detected in workflow: %s", strings.Join(cycle, " -> ")),
		}
	}

	entry := ""
	for i := range def.Nodes {
		if indegree[def.Nodes[i].ID] == 0 {
			entry = def.Nodes[i].ID
			break
		}
	}
	if entry == "" {
		return nil, &GraphError{
			Code:    GraphErrorNoEntryPoint,
			Message: "workflow has no entry point",
		}
	}

	successors := make(map[string]Successor, len(nodes))
	for id := range nodes {
		succ, err := buildSuccessor(id, outgoing[id])
		if err != nil {
			return nil, err
		}
		successors[id] = succ
	}

	return &Plan{
		WorkflowID: def.ID,
		Entry:      entry,
		Nodes:      nodes,
		Successors: successors,
		Inputs:     inputs,
	}, nil
}

func (c *Compiler) validateConnection(conn *Connection, nodes map[string]*Node, descs map[string]*node.Description) error {
	src, ok := nodes[conn.FromNode]
	if !ok {
		return &GraphError{
			Code:    GraphErrorDanglingConnection,
			Message: fmt.Sprintf("connection %q references unknown source node %q", conn.ID, conn.FromNode),
		}
	}
	dst, ok := nodes[conn.ToNode]
	if !ok {
		return &GraphError{
			Code:    GraphErrorDanglingConnection,
			Message: fmt.Sprintf("connection %q references unknown destination node %q", conn.ID, conn.ToNode),
		}
	}
	if conn.FromNode == conn.ToNode {
		return &GraphError{
			Code:    GraphErrorSelfLoop,
			Message: fmt.Sprintf("connection %q is a self-loop on node %q", conn.ID, conn.FromNode),
			NodeID:  conn.FromNode,
		}
	}

	if !descs[src.ID].HasOutputPort(conn.FromPort) {
		return &GraphError{
			Code:    GraphErrorUnknownPort,
			Message: fmt.Sprintf("node %q (%s) declares no output port %q", src.ID, src.Type, conn.FromPort),
			NodeID:  src.ID,
		}
	}
	if !descs[dst.ID].HasInputPort(conn.ToPort) {
		return &GraphError{
			Code:    GraphErrorUnknownPort,
			Message: fmt.Sprintf("node %q (%s) declares no input port %q", dst.ID, dst.Type, conn.ToPort),
			NodeID:  dst.ID,
		}
	}
	return nil
}

// buildSuccessor partitions a node's outgoing connections by source port.
// One connection is a direct edge; several on distinct ports form a
// conditional edge; several on the same port have no way to pick a winner
// and are rejected.
func buildSuccessor(nodeID string, conns []Connection) (Successor, error) {
	switch len(conns) {
	case 0:
		return Successor{Kind: SuccessorTerminal}, nil
	case 1:
		return Successor{Kind: SuccessorDirect, Target: conns[0].ToNode}, nil
	}

	byPort := make(map[string]string, len(conns))
	for _, conn := range conns {
		if prior, dup := byPort[conn.FromPort]; dup {
			return Successor{}, &GraphError{
				Code: GraphErrorMultipleOutgoingWithoutHandler,
				Message: fmt.Sprintf("node %q has multiple outgoing connections on port %q (to %q and %q)",
					nodeID, conn.FromPort, prior, conn.ToNode),
				NodeID: nodeID,
			}
		}
		byPort[conn.FromPort] = conn.ToNode
	}

	return Successor{Kind: SuccessorConditional, ByPort: byPort}, nil
}

// detectCycle runs depth-first search with color marking over the connection
// adjacency. It returns the nodes of a cycle when one exists. Iteration is
// over sorted node ids so the reported cycle is stable.
func detectCycle(nodes map[string]*Node, outgoing map[string][]Connection) []string {
	const (
		white = 0 // unvisited
		gray  = 1 // in progress
		black = 2 // done
	)

	color := make(map[string]int, len(nodes))
	parent := make(map[string]string, len(nodes))

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var dfs func(id string) []string
	dfs = func(id string) []string {
		color[id] = gray

		for _, conn := range outgoing[id] {
			next := conn.ToNode
			switch color[next] {
			case white:
				parent[next] = id
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			case gray:
				// Back edge: reconstruct the cycle path.
				cycle := []string{next}
				for current := id; current != next; current = parent[current] {
					cycle = append([]string{current}, cycle...)
				}
				return append([]string{next}, cycle...)
			}
		}

		color[id] = black
		return nil
	}

	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
