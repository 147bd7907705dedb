package pfa

import (
	"testing"
	"unsafe"

	"sv39kernel/kernel/kfmt/early"
	"sv39kernel/kernel/mem"
)

// backingRegion allocates a Go-managed byte slice to stand in for the
// physical region the allocator would otherwise manage via linker-provided
// bounds; its address is used as regionStart. It also discards Init's
// diagnostics output, which would otherwise be stored to the UART register
// address.
func backingRegion(t *testing.T, size mem.Size) uintptr {
	t.Helper()
	early.SetOutput(func(byte) {})
	buf := make([]byte, size)
	return uintptr(unsafe.Pointer(&buf[0]))
}

func TestInitBringUpSmoke(t *testing.T) {
	// Scenario 1: HEAP_SIZE = 2MiB -> 512 frames, 1 reserved for
	// descriptors, 511 allocatable, head just past the descriptor frame.
	const heapSize = mem.Size(0x0020_0000)

	var a Allocator
	region := backingRegion(t, heapSize)
	if err := a.Init(region, heapSize); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, exp := a.NumAllocations(), 511; got != exp {
		t.Fatalf("expected %d allocatable frames; got %d", exp, got)
	}
	if got, exp := a.Head(), region+uintptr(mem.PageSize); got != exp {
		t.Fatalf("expected head 0x%x; got 0x%x", exp, got)
	}
}

func TestAllocContiguityAndDealloc(t *testing.T) {
	const heapSize = mem.Size(0x0020_0000)

	var a Allocator
	region := backingRegion(t, heapSize)
	if err := a.Init(region, heapSize); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p1, ok := a.Alloc(3)
	if !ok {
		t.Fatal("expected first alloc to succeed")
	}

	i1 := a.indexForAddr(p1)
	for off := 0; off < 3; off++ {
		d := a.descriptors[i1+off]
		if !d.taken() {
			t.Fatalf("frame %d: expected taken", i1+off)
		}
		wantLast := off == 2
		if d.last() != wantLast {
			t.Fatalf("frame %d: expected last=%v, got %v", i1+off, wantLast, d.last())
		}
	}

	p2, ok := a.Alloc(2)
	if !ok {
		t.Fatal("expected second alloc to succeed")
	}
	if p2 <= p1 {
		t.Fatalf("expected second allocation to start after the first: p1=0x%x p2=0x%x", p1, p2)
	}

	a.Dealloc(p1)
	for off := 0; off < 3; off++ {
		d := a.descriptors[i1+off]
		if d.taken() || d.last() {
			t.Fatalf("frame %d: expected fully cleared after dealloc, got taken=%v last=%v", i1+off, d.taken(), d.last())
		}
	}

	// The freed run should be reusable.
	p3, ok := a.Alloc(3)
	if !ok {
		t.Fatal("expected third alloc to succeed")
	}
	if p3 != p1 {
		t.Fatalf("expected allocator to reuse freed run at 0x%x; got 0x%x", p1, p3)
	}
}

func TestDeallocNilIsNoop(t *testing.T) {
	const heapSize = mem.Size(0x0020_0000)
	var a Allocator
	region := backingRegion(t, heapSize)
	if err := a.Init(region, heapSize); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.Dealloc(0)
}

func TestZallocZeroesMemory(t *testing.T) {
	const heapSize = mem.Size(0x0020_0000)
	var a Allocator
	region := backingRegion(t, heapSize)
	if err := a.Init(region, heapSize); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Poison the allocatable range first.
	head := a.Head()
	poison := (*[2]byte)(unsafe.Pointer(head))
	poison[0], poison[1] = 0xAB, 0xCD

	addr, ok := a.Zalloc(1)
	if !ok {
		t.Fatal("expected zalloc to succeed")
	}
	if addr != head {
		t.Fatalf("expected zalloc to return head 0x%x; got 0x%x", head, addr)
	}

	buf := (*[1 << 12]byte)(unsafe.Pointer(addr))
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d: expected zero, got 0x%x", i, b)
		}
	}
}

func TestFrameExhaustion(t *testing.T) {
	const heapSize = mem.Size(0x0020_0000) // 512 frames, 511 allocatable

	var a Allocator
	region := backingRegion(t, heapSize)
	if err := a.Init(region, heapSize); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count := 0
	for {
		if _, ok := a.Alloc(1); !ok {
			break
		}
		count++
	}

	if got, exp := count, a.NumAllocations(); got != exp {
		t.Fatalf("expected %d successful allocations before exhaustion; got %d", exp, got)
	}
}
