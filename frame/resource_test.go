// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import "testing"

func TestResourceStateTableSetLookup(t *testing.T) {
	tab := NewResourceStateTable()
	res := fakeResource(4)

	if _, ok := tab.Lookup(res.ID, 0); ok {
		t.Fatalf("Lookup: got ok=true for unset resource, want false")
	}

	tab.Set(res.ID, 0, StateRenderTarget)
	s, ok := tab.Lookup(res.ID, 0)
	if !ok || s != StateRenderTarget {
		t.Fatalf("Lookup: got (%v, %v), want (%v, true)", s, ok, StateRenderTarget)
	}
	if _, ok := tab.Lookup(res.ID, 1); ok {
		t.Fatalf("Lookup: subresource 1 must be unaffected by Set on subresource 0")
	}
}

func TestResourceStateTableSetAll(t *testing.T) {
	tab := NewResourceStateTable()
	res := fakeResource(3)

	tab.SetAll(res.ID, res.Nsub, StateShaderResource)
	for i := 0; i < res.Nsub; i++ {
		s, ok := tab.Lookup(res.ID, i)
		if !ok || s != StateShaderResource {
			t.Fatalf("Lookup(%d): got (%v, %v), want (%v, true)", i, s, ok, StateShaderResource)
		}
	}
}

func TestResourceStateTableCloneRestore(t *testing.T) {
	tab := NewResourceStateTable()
	res := fakeResource(1)
	tab.Set(res.ID, 0, StateCopyDst)

	snap := tab.Clone()

	tab.Set(res.ID, 0, StateShaderResource)
	s, _ := tab.Lookup(res.ID, 0)
	if s != StateShaderResource {
		t.Fatalf("Lookup after mutation: got %v, want %v", s, StateShaderResource)
	}

	tab.Restore(snap)
	s, _ = tab.Lookup(res.ID, 0)
	if s != StateCopyDst {
		t.Fatalf("Lookup after Restore: got %v, want %v", s, StateCopyDst)
	}

	// Mutating tab again must not affect the snapshot, since
	// Restore deep-copies snap's contents.
	tab.Set(res.ID, 0, StateCommon)
	s, _ = snap.Lookup(res.ID, 0)
	if s != StateCopyDst {
		t.Fatalf("snapshot was mutated by a later Set on the restored table")
	}
}

func TestNewResourceIdentity(t *testing.T) {
	p := new(int)
	a := NewResource(p, 1)
	b := NewResource(p, 1)
	if a.ID != b.ID {
		t.Fatalf("NewResource: same pointer produced different IDs: %v != %v", a.ID, b.ID)
	}

	q := new(int)
	c := NewResource(q, 1)
	if a.ID == c.ID {
		t.Fatalf("NewResource: distinct pointers produced the same ID")
	}
}
