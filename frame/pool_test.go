// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"testing"

	"gviegas/neo3/driver"
)

func TestCmdBufferPoolAcquireAndRelease(t *testing.T) {
	gpu := newFakeGPU()
	pool := NewCmdBufferPool(gpu)

	cb1, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: got %v, want nil", err)
	}
	if len(gpu.commits) != 0 {
		t.Fatalf("Acquire must not itself commit anything")
	}

	pool.Release([]driver.CmdBuffer{cb1})
	fcb := cb1.(*fakeCmdBuffer)
	if fcb.reset != 1 {
		t.Fatalf("Release: got %d Reset calls, want 1", fcb.reset)
	}

	cb2, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: got %v, want nil", err)
	}
	if cb2 != cb1 {
		t.Fatalf("Acquire: got a fresh command buffer, want the released one reused")
	}
}

func TestCmdBufferPoolAcquireCreatesWhenEmpty(t *testing.T) {
	gpu := newFakeGPU()
	pool := NewCmdBufferPool(gpu)

	cb1, _ := pool.Acquire()
	cb2, _ := pool.Acquire()
	if cb1 == cb2 {
		t.Fatalf("Acquire: got the same command buffer twice with nothing released in between")
	}
}

func TestScratchPoolReserveRelease(t *testing.T) {
	buf := newFakeBuffer(1024)
	pool := NewScratchPool(buf, 256)

	off1, err := pool.Reserve(1)
	if err != nil {
		t.Fatalf("Reserve: got %v, want nil", err)
	}
	off2, err := pool.Reserve(1)
	if err != nil {
		t.Fatalf("Reserve: got %v, want nil", err)
	}
	if off1 == off2 {
		t.Fatalf("Reserve: got the same offset twice, want distinct blocks")
	}

	pool.Release(off1, 1)
	off3, err := pool.Reserve(1)
	if err != nil {
		t.Fatalf("Reserve: got %v, want nil", err)
	}
	if off3 != off1 {
		t.Fatalf("Reserve: got offset %d after releasing %d, want the freed block reused", off3, off1)
	}
}

func TestScratchPoolExhausted(t *testing.T) {
	buf := newFakeBuffer(256)
	pool := NewScratchPool(buf, 256)

	if _, err := pool.Reserve(1); err != nil {
		t.Fatalf("Reserve: got %v, want nil for the only block", err)
	}
	if _, err := pool.Reserve(1); err == nil {
		t.Fatalf("Reserve: got nil, want an error when the pool has no free blocks left")
	}
}
