// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import "errors"

// ErrPipelineInvalid means that a Pipeline's DAG contains a
// cycle or an edge referring to a node that is not part of
// the pipeline. It is fatal to the caller of SetPipeline;
// it is never raised during a frame.
var ErrPipelineInvalid = errors.New("frame: pipeline invalid")

// NodeID identifies a TaskNode within a Pipeline.
// IDs are assigned in AddTask call order starting at 0, and
// that order is the tie-breaker ScheduleBuilder uses for
// determinism.
type NodeID int

// Pipeline is a DAG of TaskNodes.
// Nodes are TaskNodes; edges express "B must start Execute
// only after A's command buffer has been appended to the
// submission stream".
//
// A Pipeline is only ever mutated by its owner before it is
// handed to a Scheduler via SetPipeline; once owned by a
// Scheduler it is read-only for the duration of a frame.
type Pipeline struct {
	nodes []TaskNode
	edges map[NodeID][]NodeID // A -> B for every edge A->B
}

// NewPipeline creates an empty Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{edges: make(map[NodeID][]NodeID)}
}

// AddTask adds t to the pipeline and returns its NodeID.
func (p *Pipeline) AddTask(t TaskNode) NodeID {
	id := NodeID(len(p.nodes))
	p.nodes = append(p.nodes, t)
	return id
}

// AddEdge records that b must start only after a completes.
// a and b must both have been returned by a previous call
// to AddTask on the same Pipeline.
func (p *Pipeline) AddEdge(a, b NodeID) {
	p.edges[a] = append(p.edges[a], b)
}

// NodeCount returns the number of TaskNodes in the pipeline.
func (p *Pipeline) NodeCount() int { return len(p.nodes) }

// Task returns the TaskNode identified by id.
func (p *Pipeline) Task(id NodeID) TaskNode { return p.nodes[id] }

// Successors returns the NodeIDs that depend directly on id.
// The returned slice aliases p's internal storage and must
// not be mutated by the caller.
func (p *Pipeline) Successors(id NodeID) []NodeID { return p.edges[id] }

// Validate checks that p is a well-formed DAG: every edge
// refers to a node that belongs to p, and there is no cycle.
// SetPipeline calls this automatically.
func (p *Pipeline) Validate() error {
	n := len(p.nodes)
	for a, bs := range p.edges {
		if int(a) < 0 || int(a) >= n {
			return ErrPipelineInvalid
		}
		for _, b := range bs {
			if int(b) < 0 || int(b) >= n {
				return ErrPipelineInvalid
			}
		}
	}

	const (
		white = iota
		gray
		black
	)
	color := make([]int, n)
	var visit func(NodeID) bool
	visit = func(id NodeID) bool {
		color[id] = gray
		for _, next := range p.edges[id] {
			switch color[next] {
			case gray:
				return false // back edge: cycle
			case white:
				if !visit(next) {
					return false
				}
			}
		}
		color[id] = black
		return true
	}
	for id := range p.nodes {
		if color[id] == white {
			if !visit(NodeID(id)) {
				return ErrPipelineInvalid
			}
		}
	}
	return nil
}

// indegree returns, for each NodeID, the number of edges
// that target it.
func (p *Pipeline) indegree() []int {
	deg := make([]int, len(p.nodes))
	for _, bs := range p.edges {
		for _, b := range bs {
			deg[b]++
		}
	}
	return deg
}

// predecessors returns, for each NodeID, the list of nodes
// that must complete Execute before it may start.
func (p *Pipeline) predecessors() [][]NodeID {
	pred := make([][]NodeID, len(p.nodes))
	for a, bs := range p.edges {
		for _, b := range bs {
			pred[b] = append(pred[b], a)
		}
	}
	return pred
}
