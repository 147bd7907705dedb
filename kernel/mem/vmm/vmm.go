package vmm

import (
	"sv39kernel/kernel"
	"sv39kernel/kernel/mem"
)

var (
	errOutOfMemory = &kernel.Error{Module: "vmm", Message: "out of physical memory while allocating a page-table frame"}
	errLeafBits    = &kernel.Error{Module: "vmm", Message: "map requires at least one of R/W/X in bits"}
)

// FrameAllocatorFn allocates pages contiguous, zeroed 4 KiB frames and
// returns the physical address of the first one, mirroring mem/pfa's
// Zalloc. Map uses it to materialize missing intermediate tables.
type FrameAllocatorFn func(pages int) (uintptr, bool)

// DeallocFn returns a single frame, previously handed out by a
// FrameAllocatorFn, to the frame allocator. Unmap uses it to release
// branch frames.
type DeallocFn func(uintptr)

// RootTable overlays a Table on the frame at phys, which must have been
// obtained zeroed from mem/pfa. kinit calls this once, on the frame it
// reserves for KMEMPageTable; every level-1/level-0 table below the root
// is instead materialized on demand by Map.
func RootTable(phys uintptr) *Table {
	return tableAt(phys)
}

// Map installs a translation for vaddr in the tree rooted at root, walking
// down from level 2 and allocating (via allocFn) any intermediate table
// that doesn't exist yet. level is the depth at which the leaf entry is
// written: 0 for an ordinary 4 KiB page, 1 or 2 for a superpage (the core
// itself only ever calls with level 0 -- see spec.md §1 Non-goals -- but
// Map does not assume that).
//
// bits must carry at least one of Read/Write/Execute; a bits value with
// none set would produce a branch entry at the target level, which is a
// misuse this function rejects rather than silently mis-encoding.
func Map(root *Table, vaddr, paddr uintptr, bits EntryBits, level int, allocFn FrameAllocatorFn) *kernel.Error {
	if bits&rwxMask == 0 {
		return errLeafBits
	}

	table := root
	for l := levels - 1; l > level; l-- {
		idx := vpn(vaddr, l)
		e := &table.entries[idx]

		if !e.valid() {
			framePhys, ok := allocFn(1)
			if !ok {
				return errOutOfMemory
			}
			mem.Memset(framePhys, 0, mem.PageSize)
			*e = makeEntry(framePhys, Valid)
		}

		table = tableAt(e.frameAddr())
	}

	idx := vpn(vaddr, level)
	table.entries[idx] = makeEntry(paddr, bits|Valid)
	return nil
}

// Unmap walks every valid level-2 branch in root, frees the level-0 branch
// frames it finds below each level-1 table and then frees that level-1
// frame itself, returning every intermediate table this tree owns to
// deallocFn. Leaf entries are left untouched at every level: the frames
// they point to belong to whoever called Map, not to the tree. The root
// frame itself is never freed; it is owned by the caller of RootTable.
func Unmap(root *Table, deallocFn DeallocFn) {
	for i := range root.entries {
		l2e := &root.entries[i]
		if !l2e.branch() {
			continue
		}

		l1 := tableAt(l2e.frameAddr())
		for j := range l1.entries {
			l1e := &l1.entries[j]
			if !l1e.branch() {
				continue
			}
			deallocFn(l1e.frameAddr())
		}

		deallocFn(l2e.frameAddr())
	}
}

// Translate returns the physical address vaddr currently maps to, or false
// if no translation exists at any level. Superpage leaves (level 1 or 2)
// are resolved by combining the leaf's PPN with the VPN bits of vaddr that
// the superpage's level skips, plus the page offset.
func Translate(root *Table, vaddr uintptr) (uintptr, bool) {
	table := root

	for l := levels - 1; l >= 0; l-- {
		idx := vpn(vaddr, l)
		e := table.entries[idx]

		if !e.valid() {
			return 0, false
		}

		if e.leaf() {
			lowBits := uintptr(12 + 9*l)
			mask := (uintptr(1) << lowBits) - 1
			return e.frameAddr() | (vaddr & mask), true
		}

		table = tableAt(e.frameAddr())
	}

	return 0, false
}

// IDMapRange identity-maps every 4 KiB page that overlaps the half-open
// byte range [start, end), always installing level-0 leaves. The range is
// first snapped outward to page boundaries: addr starts at start rounded
// down, and the page count runs through end rounded up. A range with
// start == end maps zero pages only when start is page-aligned; an empty
// range with an unaligned start still maps the page containing start, since
// the rounding is not special-cased for emptiness (per spec.md §4.2).
func IDMapRange(root *Table, start, end uintptr, bits EntryBits, allocFn FrameAllocatorFn) *kernel.Error {
	addr := start &^ (uintptr(mem.PageSize) - 1)
	count := (mem.AlignUp(end) - addr) / uintptr(mem.PageSize)

	for i := uintptr(0); i < count; i++ {
		if err := Map(root, addr, addr, bits, 0, allocFn); err != nil {
			return err
		}
		addr += uintptr(mem.PageSize)
	}

	return nil
}
