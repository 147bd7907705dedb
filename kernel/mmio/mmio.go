// Package mmio provides the low-level primitives used to read and write
// memory-mapped device registers. It has no knowledge of any particular
// device; it is the leaf dependency that the UART diagnostics writer, the
// PLIC driver and the trap dispatcher are built on top of.
package mmio

import "unsafe"

// WriteByte stores value at the given physical/identity-mapped address with
// a single byte store through unsafe.Pointer. Go has no volatile access, so
// this is an ordinary pointer store with no ordering guarantee beyond that;
// the package keeps the device-register accesses of the UART writer, the
// PLIC and the CLINT helper in one place.
func WriteByte(addr uintptr, value uint8) {
	*(*uint8)(unsafe.Pointer(addr)) = value
}

// ReadByte loads a single byte from addr.
func ReadByte(addr uintptr) uint8 {
	return *(*uint8)(unsafe.Pointer(addr))
}

// Write32 stores a 32-bit value at addr. Used by the PLIC, whose priority,
// enable and claim/complete registers are 32 bits wide.
func Write32(addr uintptr, value uint32) {
	*(*uint32)(unsafe.Pointer(addr)) = value
}

// Read32 loads a 32-bit value from addr.
func Read32(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr))
}

// Write64 stores a 64-bit value at addr, used for the CLINT mtimecmp
// register.
func Write64(addr uintptr, value uint64) {
	*(*uint64)(unsafe.Pointer(addr)) = value
}

// Read64 loads a 64-bit value from addr.
func Read64(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr))
}
