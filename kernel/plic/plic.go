// Package plic is the thin PLIC (Platform-Level Interrupt Controller)
// collaborator described in spec.md §4.4/§6: it exposes the claim/complete
// contract the trap dispatcher needs and nothing more. It is grounded on
// original_source/src/main.rs's plic::set_threshold/enable/set_priority
// calls and src/trap.rs's plic::next/complete claim loop, promoted here
// from prose into a real package per SPEC_FULL.md's MODULE LAYOUT.
package plic

import "sv39kernel/kernel/mmio"

// Base addresses of the PLIC's two MMIO windows on the virtualized generic
// RISC-V board (§6): priority/pending/enable registers at 0x0c00_0000,
// threshold/claim/complete (context 0, machine mode for hart 0) at
// 0x0c20_0000.
const (
	priorityBase  uintptr = 0x0c00_0000
	enableBase    uintptr = 0x0c00_2000
	thresholdBase uintptr = 0x0c20_0000
	claimBase     uintptr = 0x0c20_0004
)

// UART0IRQ is the PLIC interrupt source number wired to the 16550 UART on
// this board. IRQ 0 is reserved by the PLIC hardware as "no interrupt".
const UART0IRQ = 10

// SetThreshold sets the minimum priority an interrupt must have to be
// delivered to this hart's claim register; a threshold of 0 masks nothing.
func SetThreshold(threshold uint32) {
	mmio.Write32(thresholdBase, threshold)
}

// SetPriority assigns irq's interrupt priority. A priority of 0 disables
// the source regardless of its enable bit.
func SetPriority(irq uint32, priority uint32) {
	mmio.Write32(priorityBase+uintptr(irq)*4, priority)
}

// Enable sets irq's enable bit for this hart's machine-mode context.
func Enable(irq uint32) {
	reg := enableBase + uintptr(irq/32)*4
	bit := uint32(1) << (irq % 32)
	mmio.Write32(reg, mmio.Read32(reg)|bit)
}

// Disable clears irq's enable bit.
func Disable(irq uint32) {
	reg := enableBase + uintptr(irq/32)*4
	bit := uint32(1) << (irq % 32)
	mmio.Write32(reg, mmio.Read32(reg)&^bit)
}

// Next claims the highest-priority pending interrupt and returns its IRQ
// number, or false if none is pending (a claim of 0 -- the reserved
// "no interrupt" source).
func Next() (uint32, bool) {
	irq := mmio.Read32(claimBase)
	if irq == 0 {
		return 0, false
	}
	return irq, true
}

// Complete signals the PLIC that irq has been serviced, allowing it to be
// claimed again.
func Complete(irq uint32) {
	mmio.Write32(claimBase, irq)
}
