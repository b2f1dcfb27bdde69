// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import "reflect"

// AllSubresources selects every subresource of a Resource
// in a UsageRecord, rather than a single index.
const AllSubresources = -1

// Resource identifies a GPU resource tracked by the
// scheduler. ID is an opaque, pointer-equivalent identity -
// obtained from the resource's address via NewResource - so
// that two Resource values referring to the same underlying
// driver.Image or driver.Buffer always compare equal and
// sort consistently, without the scheduler needing to know
// anything about the resource's concrete type.
// Nsub is the number of addressable subresources (mip
// levels, array layers or planes; 1 for a buffer).
type Resource struct {
	ID   uintptr
	Nsub int
}

// NewResource identifies the GPU resource pointed to by ptr
// (typically a driver.Image or driver.Buffer obtained from
// a resource heap) and returns a Resource with nsub
// subresources. ptr must be a pointer, channel, map, slice
// or func value; it panics otherwise.
func NewResource(ptr any, nsub int) Resource {
	return Resource{ID: reflect.ValueOf(ptr).Pointer(), Nsub: nsub}
}

// resourceKey identifies a single (resource, subresource)
// pair in a ResourceStateTable.
type resourceKey struct {
	id  uintptr
	sub int
}

// ResourceStateTable is the CPU-side shadow of the state
// that every tracked subresource will be in once every
// currently-recorded (but not necessarily yet executed)
// command buffer finishes on the GPU.
//
// The table advances with CPU recording, not with GPU
// execution: it is intentionally ahead of whatever the GPU
// has actually completed so far, and that is safe only
// because barriers are always emitted in submission order.
// It is owned by a single goroutine at a time - the
// scheduler's orchestrator - and carries no internal
// synchronization.
type ResourceStateTable struct {
	m map[resourceKey]ResourceState
}

// NewResourceStateTable creates an empty table.
func NewResourceStateTable() *ResourceStateTable {
	return &ResourceStateTable{m: make(map[resourceKey]ResourceState)}
}

// Lookup returns the recorded state of (id, sub) and
// whether it was present. sub must be a specific index,
// never AllSubresources.
func (t *ResourceStateTable) Lookup(id uintptr, sub int) (ResourceState, bool) {
	s, ok := t.m[resourceKey{id, sub}]
	return s, ok
}

// Set records the state of (id, sub).
func (t *ResourceStateTable) Set(id uintptr, sub int, s ResourceState) {
	t.m[resourceKey{id, sub}] = s
}

// SetAll records the state of every subresource in
// [0, nsub) of id.
func (t *ResourceStateTable) SetAll(id uintptr, nsub int, s ResourceState) {
	for i := 0; i < nsub; i++ {
		t.Set(id, i, s)
	}
}

// Clone returns a deep copy of t.
// Used to snapshot the table before a frame begins so it
// can be restored verbatim if the frame aborts.
func (t *ResourceStateTable) Clone() *ResourceStateTable {
	c := &ResourceStateTable{m: make(map[resourceKey]ResourceState, len(t.m))}
	for k, v := range t.m {
		c.m[k] = v
	}
	return c
}

// Restore replaces t's contents with those of snap.
// snap is left usable (it is cloned internally), matching
// the semantics one would expect of a restore-from-checkpoint
// operation that may be called more than once.
func (t *ResourceStateTable) Restore(snap *ResourceStateTable) {
	t.m = make(map[resourceKey]ResourceState, len(snap.m))
	for k, v := range snap.m {
		t.m[k] = v
	}
}
