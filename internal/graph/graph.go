// Package graph builds the directed account graph every detector reads.
// The graph is constructed once per analysis from the validated
// transactions and never mutated afterwards, which is what lets the
// detectors run concurrently without locks.
package graph

import (
	"sort"

	"github.com/ringsight/ringsight/internal/domain"
)

// Node is one account in the graph with its aggregate activity.
type Node struct {
	ID                string
	InDegree          int // distinct senders
	OutDegree         int // distinct receivers
	TotalTransactions int // transactions the account participates in, either side
	TotalAmount       float64
}

// Edge is the aggregate of all transfers from one account to another.
type Edge struct {
	From   string
	To     string
	Count  int
	Weight float64 // sum of amounts
}

// Graph is a directed multigraph collapsed to aggregated edges.
type Graph struct {
	nodes map[string]*Node
	out   map[string]map[string]*Edge
	in    map[string]map[string]*Edge

	// Node IDs in ascending order, fixed at build time so every
	// traversal is deterministic.
	order []string
}

// Build constructs the account graph from validated transactions.
func Build(txs []domain.Transaction) *Graph {
	g := &Graph{
		nodes: make(map[string]*Node),
		out:   make(map[string]map[string]*Edge),
		in:    make(map[string]map[string]*Edge),
	}

	for _, tx := range txs {
		from := g.node(tx.SenderID)
		to := g.node(tx.ReceiverID)

		from.TotalTransactions++
		from.TotalAmount += tx.Amount
		to.TotalTransactions++
		to.TotalAmount += tx.Amount

		e, ok := g.out[tx.SenderID][tx.ReceiverID]
		if !ok {
			e = &Edge{From: tx.SenderID, To: tx.ReceiverID}
			if g.out[tx.SenderID] == nil {
				g.out[tx.SenderID] = make(map[string]*Edge)
			}
			if g.in[tx.ReceiverID] == nil {
				g.in[tx.ReceiverID] = make(map[string]*Edge)
			}
			g.out[tx.SenderID][tx.ReceiverID] = e
			g.in[tx.ReceiverID][tx.SenderID] = e
			from.OutDegree++
			to.InDegree++
		}
		e.Count++
		e.Weight += tx.Amount
	}

	g.order = make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		g.order = append(g.order, id)
	}
	sort.Strings(g.order)

	return g
}

func (g *Graph) node(id string) *Node {
	n, ok := g.nodes[id]
	if !ok {
		n = &Node{ID: id}
		g.nodes[id] = n
	}
	return n
}

// Node returns the node for id, or nil if the account is unknown.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Nodes returns all node IDs in ascending order.
func (g *Graph) Nodes() []string {
	return g.order
}

// NodeCount returns the number of accounts in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of aggregated directed edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, m := range g.out {
		n += len(m)
	}
	return n
}

// Edge returns the aggregated edge from one account to another, or nil.
func (g *Graph) Edge(from, to string) *Edge {
	return g.out[from][to]
}

// Successors returns the accounts id sends to, in ascending order.
func (g *Graph) Successors(id string) []string {
	return sortedKeys(g.out[id])
}

// Predecessors returns the accounts that send to id, in ascending order.
func (g *Graph) Predecessors(id string) []string {
	return sortedKeys(g.in[id])
}

// OutEdges returns id's outgoing edges ordered by target account.
func (g *Graph) OutEdges(id string) []*Edge {
	targets := sortedKeys(g.out[id])
	edges := make([]*Edge, 0, len(targets))
	for _, t := range targets {
		edges = append(edges, g.out[id][t])
	}
	return edges
}

// Snapshot flattens the graph for caller-side rendering. Nodes and
// edges come out in ascending ID order.
func (g *Graph) Snapshot() *domain.GraphSnapshot {
	snap := &domain.GraphSnapshot{
		Nodes: make([]domain.GraphNode, 0, len(g.order)),
		Edges: make([]domain.GraphEdge, 0, g.EdgeCount()),
	}
	for _, id := range g.order {
		n := g.nodes[id]
		snap.Nodes = append(snap.Nodes, domain.GraphNode{
			ID:                n.ID,
			InDegree:          n.InDegree,
			OutDegree:         n.OutDegree,
			TotalTransactions: n.TotalTransactions,
			TotalAmount:       n.TotalAmount,
		})
	}
	for _, from := range g.order {
		for _, to := range sortedKeys(g.out[from]) {
			e := g.out[from][to]
			snap.Edges = append(snap.Edges, domain.GraphEdge{
				Source: e.From,
				Target: e.To,
				Weight: e.Weight,
				Count:  e.Count,
			})
		}
	}
	return snap
}

func sortedKeys(m map[string]*Edge) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
