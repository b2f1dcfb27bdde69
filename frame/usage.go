// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"sort"

	"gviegas/neo3/driver"
)

// UsageRecord describes a single TaskNode's declared use of
// one (resource, subresource) pair.
//
// FirstState is the state a preceding barrier must
// establish before the task's command buffer runs.
// LastState is the state the ResourceStateTable must show
// once the command buffer has been appended to the
// submission stream.
// MultipleUse must be true iff the task uses the resource in
// more than one distinct state internally, or writes to it.
// A task with MultipleUse set on a resource is never treated
// as parallel-compatible with any other user of that
// resource, regardless of what state the other user declares.
type UsageRecord struct {
	Resource    Resource
	Subresource int // index in [0, Resource.Nsub), or AllSubresources
	FirstState  ResourceState
	LastState   ResourceState
	MultipleUse bool

	// View is the driver.ImageView BarrierInjector uses to
	// lower a state change into a driver.Transition. It must
	// be set for image resources; buffer resources leave it
	// nil, and BarrierInjector falls back to a scope-only
	// driver.Barrier for those (driver.Buffer has no Layout).
	View driver.ImageView
}

// sortUsage sorts usage in place by resource identity and
// then subresource. ParallelCompatibilityOracle requires its
// two inputs sorted this way to run its merge walk in linear
// time.
func sortUsage(usage []UsageRecord) {
	sort.Slice(usage, func(i, j int) bool {
		a, b := usage[i], usage[j]
		if a.Resource.ID != b.Resource.ID {
			return a.Resource.ID < b.Resource.ID
		}
		return a.Subresource < b.Subresource
	})
}
