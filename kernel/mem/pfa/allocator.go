// Package pfa implements the frame allocator described in §4.1 of the core
// spec: it carves a contiguous physical region into 4 KiB frames and tracks
// their allocation state with one descriptor byte per frame, stored at the
// base of the managed region itself.
//
// This mirrors the shape of the teacher's bootstrap allocators
// (kernel/mem/pfn.BootMemAllocator, kernel/mem/pmm/allocator.BitmapAllocator)
// but trades their bitmap/region-list designs for the simpler linear
// descriptor-byte scan the spec calls for: single contiguous region, no
// bootloader memory map to parse, first-fit with forward scan only.
package pfa

import (
	"reflect"
	"unsafe"

	"sv39kernel/kernel"
	"sv39kernel/kernel/kfmt/early"
	"sv39kernel/kernel/mem"
)

var (
	errOutOfMemory = &kernel.Error{Module: "pfa", Message: "out of physical memory"}
)

// Allocator manages a contiguous physical region as 4 KiB frames.
//
// It is not safe for concurrent use. Per §5 of the spec, the frame
// allocator is process-wide mutable state touched only by hart 0 during
// kinit; an SMP-aware kernel must wrap it in a mutex before letting other
// harts call into it.
type Allocator struct {
	// descriptors overlays the descriptor byte array that lives at the
	// very start of the managed region: descriptors[i] describes the
	// frame at regionStart + i*PageSize, for every frame in the region
	// (including the frames the descriptor array itself occupies).
	descriptors []descriptor

	// regionStart is the physical address of the first frame in the
	// managed region (i.e. HEAP_START).
	regionStart uintptr

	// descFrames is the number of frames reserved, at the start of the
	// region, to hold the descriptor byte array.
	descFrames int

	// allocFrames is the number of frames available for allocation,
	// i.e. len(descriptors) - descFrames.
	allocFrames int
}

// Default is the kernel's single frame allocator instance, initialized once
// by kinit.
var Default Allocator

// Init carves [regionStart, regionStart+regionSize) into 4 KiB frames,
// reserving the first ceil(N/PageSize) frames -- N = regionSize/PageSize --
// for the descriptor array, and zeroing every descriptor so the whole
// allocatable range starts out free.
func (a *Allocator) Init(regionStart uintptr, regionSize mem.Size) *kernel.Error {
	totalFrames := int(regionSize.Pages())
	descFrames := int(mem.Size(totalFrames).Pages())

	mem.Memset(regionStart, 0, mem.Size(totalFrames))

	hdr := reflect.SliceHeader{Data: regionStart, Len: totalFrames, Cap: totalFrames}
	a.descriptors = *(*[]descriptor)(unsafe.Pointer(&hdr))
	a.regionStart = regionStart
	a.descFrames = descFrames
	a.allocFrames = totalFrames - descFrames

	early.Printf("[pfa] region 0x%x, %d frames total, %d reserved for descriptors, %d allocatable\n",
		regionStart, totalFrames, descFrames, a.allocFrames)

	return nil
}

// frameAddr returns the physical address of the frame at descriptor index i.
func (a *Allocator) frameAddr(i int) uintptr {
	return a.regionStart + uintptr(i)*uintptr(mem.PageSize)
}

// indexForAddr returns the descriptor index for the frame containing addr.
func (a *Allocator) indexForAddr(addr uintptr) int {
	return int((addr - a.regionStart) / uintptr(mem.PageSize))
}

// Alloc reserves a contiguous run of pages frames and returns the physical
// address of the first frame. It returns false if no run of that size is
// free. The scan only considers the allocatable frames past the descriptor
// reservation -- see Init.
func (a *Allocator) Alloc(pages int) (uintptr, bool) {
	if pages <= 0 {
		return 0, false
	}

	run := 0
	for i := a.descFrames; i < len(a.descriptors); i++ {
		if a.descriptors[i].taken() {
			run = 0
			continue
		}

		run++
		if run != pages {
			continue
		}

		start := i - pages + 1
		for j := start; j < i; j++ {
			a.descriptors[j] = flagTaken
		}
		a.descriptors[i] = flagTaken | flagLast

		return a.frameAddr(start), true
	}

	return 0, false
}

// Zalloc behaves like Alloc but additionally zeroes every byte of the
// returned run using 64-bit stores.
func (a *Allocator) Zalloc(pages int) (uintptr, bool) {
	addr, ok := a.Alloc(pages)
	if !ok {
		return 0, false
	}

	size := uintptr(pages) * uintptr(mem.PageSize)
	for off := uintptr(0); off < size; off += 8 {
		*(*uint64)(unsafe.Pointer(addr + off)) = 0
	}

	return addr, true
}

// Dealloc releases the allocation that starts at ptr. ptr must be the first
// frame's address as returned by Alloc/Zalloc; passing any other address
// (including one in the middle of an allocation) is undefined -- the core
// does not validate this, per §4.1 and §7. A nil pointer is a silent no-op.
func (a *Allocator) Dealloc(ptr uintptr) {
	if ptr == 0 {
		return
	}

	i := a.indexForAddr(ptr)
	if i < a.descFrames || i >= len(a.descriptors) {
		return
	}

	for {
		d := a.descriptors[i]
		last := d.last()
		a.descriptors[i] = 0
		if last {
			return
		}
		i++
		if i >= len(a.descriptors) {
			return
		}
	}
}

// Head returns the physical address of the first allocatable frame, i.e.
// the frame immediately following the descriptor array.
func (a *Allocator) Head() uintptr {
	return a.frameAddr(a.descFrames)
}

// NumAllocations returns the number of frames managed for allocation, after
// the descriptor reservation.
func (a *Allocator) NumAllocations() int {
	return a.allocFrames
}

// AllocOrPanic allocates pages frames or panics with errOutOfMemory, for
// allocations that must succeed for bring-up to proceed (§4.1's "upper
// layers convert this to panic at the kernel level").
func (a *Allocator) AllocOrPanic(pages int) uintptr {
	addr, ok := a.Alloc(pages)
	if !ok {
		kernel.Panic(errOutOfMemory)
	}
	return addr
}

// ZallocOrPanic is the zeroing counterpart of AllocOrPanic. kinit uses it
// for the root page table and the trap stack.
func (a *Allocator) ZallocOrPanic(pages int) uintptr {
	addr, ok := a.Zalloc(pages)
	if !ok {
		kernel.Panic(errOutOfMemory)
	}
	return addr
}
