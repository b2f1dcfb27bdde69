// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

// ParallelCompatibilityOracle decides whether two scheduled
// tasks may record concurrently on independent command
// buffers without an intervening barrier batch.
//
// It holds no state of its own; it is a value type so that
// ScheduleBuilder and Scheduler can each use it without
// synchronization.
type ParallelCompatibilityOracle struct{}

// Compatible reports whether a and b - each a sorted usage
// list, as returned by TaskNode.Usage after Setup - may run
// concurrently. Both slices must already be sorted by
// sortUsage; Compatible does not sort them itself, since it
// is called once per candidate pair during scheduling and
// resorting repeatedly would be wasted work.
//
// A conflict, and therefore incompatibility, is:
//   - the same resource used by both with a different
//     FirstState, or
//   - the same resource used by both where either usage has
//     MultipleUse set.
func (ParallelCompatibilityOracle) Compatible(a, b []UsageRecord) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ua, ub := a[i], b[j]
		switch {
		case ua.Resource.ID < ub.Resource.ID:
			i++
		case ua.Resource.ID > ub.Resource.ID:
			j++
		default:
			if ua.MultipleUse || ub.MultipleUse || ua.FirstState != ub.FirstState {
				return false
			}
			i++
			j++
		}
	}
	return true
}
