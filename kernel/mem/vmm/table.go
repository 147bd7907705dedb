package vmm

import "unsafe"

// entriesPerTable is the number of 64-bit entries in a single Sv39 page
// table: one 4 KiB frame divided into 8-byte slots.
const entriesPerTable = 512

// levels is the number of Sv39 page-table levels: 2 (root), 1, 0 (leaf by
// default).
const levels = 3

// Table is a single Sv39 page-table page: 512 64-bit entries occupying one
// 4 KiB, 4 KiB-aligned frame.
type Table struct {
	entries [entriesPerTable]entry
}

// tableAt overlays a Table on top of the frame at the given physical
// address. The frame must have been obtained from mem/pfa (4 KiB-aligned).
func tableAt(phys uintptr) *Table {
	return (*Table)(unsafe.Pointer(phys))
}

// vpn extracts VPN[level] from a virtual address: VPN[2] = bits 38..30,
// VPN[1] = bits 29..21, VPN[0] = bits 20..12.
func vpn(vaddr uintptr, level int) uint64 {
	shift := 12 + 9*level
	return (uint64(vaddr) >> shift) & 0x1ff
}

// pageOffset returns the low 12 bits of a virtual/physical address.
func pageOffset(addr uintptr) uintptr {
	return addr & 0xfff
}
