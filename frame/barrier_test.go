// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import "testing"

func TestInjectNoBarrierWhenStateUnchanged(t *testing.T) {
	tab := NewResourceStateTable()
	res := fakeResource(1)
	tab.Set(res.ID, 0, StateShaderResource)

	var inj BarrierInjector
	usage := []UsageRecord{{Resource: res, FirstState: StateShaderResource, LastState: StateShaderResource}}
	batch := inj.Inject(usage, tab)

	if !batch.Empty() {
		t.Fatalf("Inject: got non-empty batch for a usage matching the current state")
	}
}

func TestInjectEmitsBarrierOnStateChange(t *testing.T) {
	tab := NewResourceStateTable()
	res := fakeResource(1)
	tab.Set(res.ID, 0, StateCopyDst)

	var inj BarrierInjector
	usage := []UsageRecord{{Resource: res, FirstState: StateShaderResource, LastState: StateShaderResource}}
	batch := inj.Inject(usage, tab)

	if batch.Empty() {
		t.Fatalf("Inject: expected a barrier when FirstState differs from the table's current state")
	}
	if len(batch.Barriers) != 1 || len(batch.Transitions) != 0 {
		t.Fatalf("Inject: got %d barriers and %d transitions, want 1 barrier and 0 transitions for a nil-View usage",
			len(batch.Barriers), len(batch.Transitions))
	}

	s, ok := tab.Lookup(res.ID, 0)
	if !ok || s != StateShaderResource {
		t.Fatalf("Inject: table was not advanced to LastState, got (%v, %v)", s, ok)
	}
}

func TestInjectEmitsTransitionForImageView(t *testing.T) {
	tab := NewResourceStateTable()
	res := fakeResource(1)
	tab.Set(res.ID, 0, StateCopyDst)

	var inj BarrierInjector
	view := &fakeImageView{}
	usage := []UsageRecord{{
		Resource: res, FirstState: StateShaderResource, LastState: StateShaderResource, View: view,
	}}
	batch := inj.Inject(usage, tab)

	if len(batch.Transitions) != 1 || len(batch.Barriers) != 0 {
		t.Fatalf("Inject: got %d transitions and %d barriers, want 1 transition and 0 barriers for a View usage",
			len(batch.Transitions), len(batch.Barriers))
	}
	tr := batch.Transitions[0]
	if tr.LayoutBefore != StateCopyDst.layout() || tr.LayoutAfter != StateShaderResource.layout() {
		t.Fatalf("Inject: got transition %+v, want before=%v after=%v",
			tr, StateCopyDst.layout(), StateShaderResource.layout())
	}
}

func TestInjectUnknownResourceAssumesFirstState(t *testing.T) {
	tab := NewResourceStateTable()
	res := fakeResource(1)

	var inj BarrierInjector
	usage := []UsageRecord{{Resource: res, FirstState: StateRenderTarget, LastState: StateRenderTarget}}
	batch := inj.Inject(usage, tab)

	if !batch.Empty() {
		t.Fatalf("Inject: got non-empty batch for a never-seen resource, want no barrier on first use")
	}
	s, ok := tab.Lookup(res.ID, 0)
	if !ok || s != StateRenderTarget {
		t.Fatalf("Inject: table must record LastState even on first use, got (%v, %v)", s, ok)
	}
}

func TestInjectAllSubresources(t *testing.T) {
	tab := NewResourceStateTable()
	res := fakeResource(3)
	tab.SetAll(res.ID, res.Nsub, StateCopyDst)

	var inj BarrierInjector
	usage := []UsageRecord{{
		Resource: res, Subresource: AllSubresources,
		FirstState: StateShaderResource, LastState: StateShaderResource,
	}}
	batch := inj.Inject(usage, tab)

	if len(batch.Barriers) != res.Nsub {
		t.Fatalf("Inject: got %d barriers, want one per subresource (%d)", len(batch.Barriers), res.Nsub)
	}
	for i := 0; i < res.Nsub; i++ {
		s, _ := tab.Lookup(res.ID, i)
		if s != StateShaderResource {
			t.Fatalf("Inject: subresource %d not advanced, got %v", i, s)
		}
	}
}
