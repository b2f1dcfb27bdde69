// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import "container/heap"

// Schedule is a linear order of TaskNodes consistent with a
// Pipeline's DAG edges.
//
// Adjacent entries may be tagged parallel-compatible; a
// boundary between two entries that are not tagged compatible
// is where BarrierInjector must place a barrier batch.
type Schedule struct {
	Order []NodeID

	// Compatible[i] reports whether Order[i] is
	// parallel-compatible with Order[i-1]. Compatible[0] is
	// always false (there is nothing before the first task).
	Compatible []bool
}

// idHeap is a min-heap of NodeIDs, used to pick the
// lowest-ID ready node deterministically.
type idHeap []NodeID

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)         { *h = append(*h, x.(NodeID)) }
func (h *idHeap) Pop() (x any) {
	old := *h
	n := len(old)
	x = old[n-1]
	*h = old[:n-1]
	return
}

// ScheduleBuilder orders a Pipeline's DAG into a Schedule.
//
// It uses Kahn-style topological ordering, breaking ties
// with the lowest NodeID among the ready set for
// determinism, and - among tasks that are simultaneously
// ready - preferring whichever one is parallel-compatible
// with the task most recently placed into the schedule, so
// compatible siblings end up adjacent and BarrierInjector
// can elide the barrier between them.
type ScheduleBuilder struct {
	Oracle ParallelCompatibilityOracle
}

// Build computes a deterministic Schedule for p.
// p must already have passed Validate.
func (b ScheduleBuilder) Build(p *Pipeline) *Schedule {
	n := p.NodeCount()
	deg := p.indegree()

	ready := &idHeap{}
	heap.Init(ready)
	for id := 0; id < n; id++ {
		if deg[id] == 0 {
			heap.Push(ready, NodeID(id))
		}
	}

	sched := &Schedule{
		Order:      make([]NodeID, 0, n),
		Compatible: make([]bool, 0, n),
	}

	for ready.Len() > 0 {
		next := b.pick(p, ready, sched)
		sched.Order = append(sched.Order, next)
		sched.Compatible = append(sched.Compatible, b.compatibleWithPrev(p, sched, next))

		for _, succ := range p.Successors(next) {
			deg[succ]--
			if deg[succ] == 0 {
				heap.Push(ready, succ)
			}
		}
	}

	return sched
}

// pick removes and returns the node that Build should place
// next: the lowest-ID ready node, unless some other ready
// node is parallel-compatible with the previously scheduled
// task and the lowest-ID node is not - in which case the
// compatible one is preferred, to cluster compatible
// siblings together.
func (b ScheduleBuilder) pick(p *Pipeline, ready *idHeap, sched *Schedule) NodeID {
	if len(sched.Order) == 0 || ready.Len() == 1 {
		return heap.Pop(ready).(NodeID)
	}

	prev := sched.Order[len(sched.Order)-1]
	prevUsage := p.Task(prev).Usage()

	lowest := (*ready)[0]
	if b.Oracle.Compatible(prevUsage, p.Task(lowest).Usage()) {
		return popID(ready, lowest)
	}

	for _, id := range *ready {
		if id == lowest {
			continue
		}
		if b.Oracle.Compatible(prevUsage, p.Task(id).Usage()) {
			return popID(ready, id)
		}
	}
	return popID(ready, lowest)
}

// popID removes a specific id from the ready heap.
func popID(ready *idHeap, id NodeID) NodeID {
	for i, x := range *ready {
		if x == id {
			heap.Remove(ready, i)
			return id
		}
	}
	panic("frame: popID: id not in heap")
}

// compatibleWithPrev reports whether next is
// parallel-compatible with the task immediately preceding
// it in the schedule being built so far.
func (b ScheduleBuilder) compatibleWithPrev(p *Pipeline, sched *Schedule, next NodeID) bool {
	if len(sched.Order) == 0 {
		return false
	}
	prev := sched.Order[len(sched.Order)-1]
	return b.Oracle.Compatible(p.Task(prev).Usage(), p.Task(next).Usage())
}
