package graph

import "errors"

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From node
	// does not exist in the graph.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")
)

// Attr is one ordered render hint attached to a node, e.g. {"fillcolor", "red"}.
type Attr struct {
	Key   string
	Value string
}

// Edge is a directed, optionally labeled connection between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
}

// Graph is a sparse directed graph keyed by opaque string identifiers.
// Nodes and edges keep insertion order, which makes serialization
// deterministic. Instances are cheap, built fresh per render, and hold no
// state across calls; they are not safe for concurrent mutation.
type Graph struct {
	nodes   []string
	present map[string]bool
	attrs   map[string][]Attr
	edges   []Edge
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		present: make(map[string]bool),
		attrs:   make(map[string][]Attr),
	}
}

// AddNode adds a node. Adding an existing node is a no-op, so callers can
// register endpoints without tracking what is already present.
func (g *Graph) AddNode(id string) error {
	if id == "" {
		return ErrInvalidNodeID
	}
	if g.present[id] {
		return nil
	}
	g.present[id] = true
	g.nodes = append(g.nodes, id)
	return nil
}

// SetAttrs attaches the ordered attribute list to a node, replacing any
// previous list.
func (g *Graph) SetAttrs(id string, attrs []Attr) {
	if len(attrs) == 0 {
		delete(g.attrs, id)
		return
	}
	g.attrs[id] = attrs
}

// AddEdge adds a directed edge between two existing nodes.
// Returns ErrUnknownSourceNode or ErrUnknownTargetNode when an endpoint has
// not been added first.
func (g *Graph) AddEdge(from, to, label string) error {
	if !g.present[from] {
		return ErrUnknownSourceNode
	}
	if !g.present[to] {
		return ErrUnknownTargetNode
	}
	g.edges = append(g.edges, Edge{From: from, To: to, Label: label})
	return nil
}

// Nodes returns the node ids in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Attrs returns the attribute list attached to the node, or nil.
func (g *Graph) Attrs(id string) []Attr {
	return g.attrs[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }
