// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package bitm

import (
	"testing"
	"unsafe"
)

func TestNbit(t *testing.T) {
	for _, x := range [...][2]int{
		{int(unsafe.Sizeof(uint(0))) * 8, (&Bitm[uint]{}).nbit()},
		{int(unsafe.Sizeof(uint8(0))) * 8, (&Bitm[uint8]{}).nbit()},
		{int(unsafe.Sizeof(uint16(0))) * 8, (&Bitm[uint16]{}).nbit()},
		{int(unsafe.Sizeof(uint32(0))) * 8, (&Bitm[uint32]{}).nbit()},
		{int(unsafe.Sizeof(uint64(0))) * 8, (&Bitm[uint64]{}).nbit()},
		{int(unsafe.Sizeof(uintptr(0))) * 8, (&Bitm[uintptr]{}).nbit()},
	} {
		if x[0] != x[1] {
			t.Fatalf("Bitm[T].nbit:\nhave %v\nwant %v", x[0], x[1])
		}
	}
}

func TestZero(t *testing.T) {
	var bitm16 Bitm[uint16]
	if bitm16.m != nil {
		t.Fatalf("bitm16.m:\nhave %v\nwant nil", bitm16.m)
	}
	if bitm16.rem != 0 {
		t.Fatalf("bitm16.rem:\nhave %v\nwant 0", bitm16.rem)
	}
	if n := bitm16.Len(); n != 0 {
		t.Fatalf("bitm16.Len:\nhave %v\nwant 0", n)
	}
	if n := bitm16.Cap(); n != 0 {
		t.Fatalf("bitm16.Cap:\nhave %v\nwant 0", n)
	}
}

func TestGrowShrink(t *testing.T) {
	var m Bitm[uint8]
	idx := m.Grow(2)
	if idx != 0 {
		t.Fatalf("Bitm.Grow:\nhave %v\nwant 0", idx)
	}
	if n := m.Cap(); n != 16 {
		t.Fatalf("Bitm.Cap:\nhave %v\nwant 16", n)
	}
	if n := m.Rem(); n != 16 {
		t.Fatalf("Bitm.Rem:\nhave %v\nwant 16", n)
	}
	idx = m.Grow(1)
	if idx != 16 {
		t.Fatalf("Bitm.Grow:\nhave %v\nwant 16", idx)
	}
	m.Shrink(1)
	if n := m.Cap(); n != 16 {
		t.Fatalf("Bitm.Cap:\nhave %v\nwant 16", n)
	}
}

func TestSetUnset(t *testing.T) {
	var m Bitm[uint8]
	m.Grow(1)
	m.Set(3)
	if !m.IsSet(3) {
		t.Fatal("Bitm.IsSet: have false, want true")
	}
	if n := m.Len(); n != 1 {
		t.Fatalf("Bitm.Len:\nhave %v\nwant 1", n)
	}
	if n := m.Rem(); n != 7 {
		t.Fatalf("Bitm.Rem:\nhave %v\nwant 7", n)
	}
	m.Unset(3)
	if m.IsSet(3) {
		t.Fatal("Bitm.IsSet: have true, want false")
	}
	if n := m.Rem(); n != 8 {
		t.Fatalf("Bitm.Rem:\nhave %v\nwant 8", n)
	}
}

func TestSearch(t *testing.T) {
	var m Bitm[uint8]
	m.Grow(1)
	for i := 0; i < 8; i++ {
		idx, ok := m.Search()
		if !ok {
			t.Fatalf("Bitm.Search: unexpected failure at i=%d", i)
		}
		if idx != i {
			t.Fatalf("Bitm.Search:\nhave %v\nwant %v", idx, i)
		}
		m.Set(idx)
	}
	if _, ok := m.Search(); ok {
		t.Fatal("Bitm.Search: have true, want false (map is full)")
	}
}

func TestSearchRange(t *testing.T) {
	var m Bitm[uint8]
	m.Grow(2)
	idx, ok := m.SearchRange(5)
	if !ok || idx != 0 {
		t.Fatalf("Bitm.SearchRange:\nhave (%v, %v)\nwant (0, true)", idx, ok)
	}
	for i := idx; i < idx+5; i++ {
		m.Set(i)
	}
	idx, ok = m.SearchRange(3)
	if !ok || idx != 5 {
		t.Fatalf("Bitm.SearchRange:\nhave (%v, %v)\nwant (5, true)", idx, ok)
	}
}

func TestClear(t *testing.T) {
	var m Bitm[uint8]
	m.Grow(1)
	m.Set(0)
	m.Set(7)
	m.Clear()
	if n := m.Len(); n != 0 {
		t.Fatalf("Bitm.Len:\nhave %v\nwant 0", n)
	}
	if n := m.Rem(); n != 8 {
		t.Fatalf("Bitm.Rem:\nhave %v\nwant 8", n)
	}
}
