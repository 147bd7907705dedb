// Package kheap implements the kernel heap described in §4.3 of the core
// spec: a fixed frame reservation, obtained once from mem/pfa at init,
// arranged as an implicit singly-linked free list of byte-granular chunks
// and serviced with first-fit allocation, splitting and forward-only
// coalescing.
//
// The free-list shape -- a tagged size header immediately preceding each
// chunk's payload, with the next chunk found by pointer arithmetic rather
// than an explicit next pointer -- is the same idea used (at a much larger
// scale, with size classes) by the Go runtime's own allocator; see
// cloudfly-readgo/runtime/mspan.go and msize.go for that relative of this
// design.
package kheap

import (
	"unsafe"

	"sv39kernel/kernel"
	"sv39kernel/kernel/kfmt/early"
	"sv39kernel/kernel/mem"
)

var errOutOfMemory = &kernel.Error{Module: "kheap", Message: "kernel heap exhausted"}

// headerSize is the width of a chunk header: one 64-bit tagged size field.
const headerSize = uintptr(unsafe.Sizeof(uint64(0)))

// takenBit is the high bit of a chunk header; the remaining 63 bits are the
// chunk's byte length, header included.
const takenBit = uint64(1) << 63

// FrameAllocatorFn allocates pages contiguous, zeroed frames and returns
// the physical address of the first one. Init uses it exactly once.
type FrameAllocatorFn func(pages int) (uintptr, bool)

// Heap manages a single contiguous run of frames as an implicit free list
// of chunk headers. It is not safe for concurrent use; per §5 of the spec
// it is process-wide state touched only by hart 0 during kinit.
type Heap struct {
	base uintptr
	size uintptr
}

// Default is the kernel's single heap instance, initialized once by kinit.
var Default Heap

func readHeader(addr uintptr) uint64 { return *(*uint64)(unsafe.Pointer(addr)) }

func writeHeader(addr uintptr, length uintptr, taken bool) {
	v := uint64(length)
	if taken {
		v |= takenBit
	}
	*(*uint64)(unsafe.Pointer(addr)) = v
}

func headerTaken(v uint64) bool   { return v&takenBit != 0 }
func headerLength(v uint64) uintptr { return uintptr(v &^ takenBit) }

func align8(n uintptr) uintptr { return (n + 7) &^ 7 }

// Init acquires frames pages-worth of frames from allocFn and marks the
// entire range as a single free chunk spanning it, per §4.3.
func (h *Heap) Init(frames int, allocFn FrameAllocatorFn) *kernel.Error {
	base, ok := allocFn(frames)
	if !ok {
		return errOutOfMemory
	}

	size := uintptr(frames) * uintptr(mem.PageSize)
	h.base = base
	h.size = size
	writeHeader(base, size, false)

	early.Printf("[kheap] region 0x%x, %d bytes (%d frames)\n", base, size, frames)
	return nil
}

// end returns the address one past the last byte of the managed region.
func (h *Heap) end() uintptr { return h.base + h.size }

// Alloc services a request for size bytes using first-fit traversal of the
// implicit free list. The returned pointer is 8-byte aligned and points
// past the chunk's header. Returns false on exhaustion.
func (h *Heap) Alloc(size uintptr) (uintptr, bool) {
	if h.base == 0 || size == 0 {
		return 0, false
	}

	required := align8(size) + headerSize
	end := h.end()

	for cur := h.base; cur < end; {
		v := readHeader(cur)
		chunkLen := headerLength(v)

		if headerTaken(v) || chunkLen < required {
			cur += chunkLen
			continue
		}

		remainder := chunkLen - required
		if remainder < headerSize {
			// Remainder is too small to host another header; hand
			// out the whole chunk instead of fragmenting it.
			writeHeader(cur, chunkLen, true)
		} else {
			writeHeader(cur, required, true)
			writeHeader(cur+required, remainder, false)
		}

		return cur + headerSize, true
	}

	return 0, false
}

// Free releases the allocation at ptr, which must be a pointer previously
// returned by Alloc. Coalesces forward with the next chunk if it exists and
// is free; backward coalescing is not performed (§4.3, §9 documented gap).
// A nil pointer is a silent no-op.
func (h *Heap) Free(ptr uintptr) {
	if ptr == 0 {
		return
	}

	hdr := ptr - headerSize
	v := readHeader(hdr)
	length := headerLength(v)
	writeHeader(hdr, length, false)

	next := hdr + length
	if next < h.end() {
		nv := readHeader(next)
		if !headerTaken(nv) {
			writeHeader(hdr, length+headerLength(nv), false)
		}
	}
}

// PrintTable walks the free list and prints each chunk's address, size and
// taken/free state, followed by a summary. Used by the kinit self-test in
// §9's supplemented kmain smoke sequence.
func (h *Heap) PrintTable() {
	early.Printf("kernel heap table (base 0x%x, %d bytes):\n", h.base, h.size)

	count, free, taken := 0, uintptr(0), uintptr(0)
	for cur := h.base; cur < h.end(); {
		v := readHeader(cur)
		length := headerLength(v)

		state := "free"
		if headerTaken(v) {
			state = "taken"
			taken += length
		} else {
			free += length
		}

		early.Printf("  0x%x: %d bytes (%s)\n", cur, length, state)
		cur += length
		count++
	}

	early.Printf("%d chunk(s); %d bytes taken, %d bytes free\n", count, taken, free)
}
