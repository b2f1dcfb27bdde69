// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"log/slog"

	"gviegas/neo3/driver"
)

// BarrierInjector computes the minimum set of transition
// barriers a TaskNode's usage list requires, given the
// current ResourceStateTable, and advances the table to
// reflect the task's declared post-conditions.
//
// It holds no state of its own between calls; all state
// lives in the ResourceStateTable passed to Inject.
type BarrierInjector struct{}

// Batch is the barrier set BarrierInjector computed for a
// single task, ready to be recorded immediately before that
// task's command buffer.
type Batch struct {
	Transitions []driver.Transition
	Barriers    []driver.Barrier
}

// Empty reports whether the batch carries no barriers at
// all, i.e. the task may run without anything preceding it.
func (b Batch) Empty() bool { return len(b.Transitions) == 0 && len(b.Barriers) == 0 }

// Inject returns the Batch that must precede the task's
// command buffer, and updates table so that it reflects the
// state the GPU will be in once that command buffer (plus
// the returned batch) has been appended to the submission
// stream.
//
// A usage for a (resource, subresource) the table has never
// seen is treated as if the current state already equals
// FirstState - no barrier is emitted - but a warning is
// logged, since it usually means a task forgot to declare a
// resource it reads or writes.
func (BarrierInjector) Inject(usage []UsageRecord, table *ResourceStateTable) Batch {
	var b Batch
	for _, u := range usage {
		if u.Subresource == AllSubresources {
			for sub := 0; sub < u.Resource.Nsub; sub++ {
				appendTransition(&b, table, u, sub)
			}
		} else {
			appendTransition(&b, table, u, u.Subresource)
		}
	}
	for _, u := range usage {
		if u.Subresource == AllSubresources {
			table.SetAll(u.Resource.ID, u.Resource.Nsub, u.LastState)
		} else {
			table.Set(u.Resource.ID, u.Subresource, u.LastState)
		}
	}
	return b
}

// appendTransition adds a barrier for (u.Resource, sub) to
// b if, and only if, the table's current state differs from
// u.FirstState. No barrier is ever emitted for a state that
// doesn't change.
func appendTransition(b *Batch, table *ResourceStateTable, u UsageRecord, sub int) {
	from, ok := table.Lookup(u.Resource.ID, sub)
	if !ok {
		slog.Warn("frame: resource state unknown, assuming first use",
			"resource", u.Resource.ID, "subresource", sub, "state", u.FirstState)
		from = u.FirstState
		table.Set(u.Resource.ID, sub, from)
	}
	if from == u.FirstState {
		return
	}
	syncBefore, accessBefore := from.syncAccess()
	syncAfter, accessAfter := u.FirstState.syncAccess()
	barrier := driver.Barrier{
		SyncBefore:   syncBefore,
		SyncAfter:    syncAfter,
		AccessBefore: accessBefore,
		AccessAfter:  accessAfter,
	}
	if u.View != nil {
		b.Transitions = append(b.Transitions, driver.Transition{
			Barrier:      barrier,
			LayoutBefore: from.layout(),
			LayoutAfter:  u.FirstState.layout(),
			IView:        u.View,
		})
	} else {
		b.Barriers = append(b.Barriers, barrier)
	}
}
