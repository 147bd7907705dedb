// Package cpu is the thin CPU-state collaborator described by the core: it
// holds the per-hart trap frames and wraps the supervisor/machine control
// registers the Sv39 bring-up sequence needs (satp, mscratch, sscratch, and
// the translation fence). It does not implement the trap vector itself --
// that is the assembly trampoline's job -- only the register plumbing kinit
// and the trap dispatcher need.
package cpu

// SatpMode selects the MMU translation scheme encoded in the top 4 bits of
// the satp register.
type SatpMode uint64

const (
	// SatpBare disables translation.
	SatpBare SatpMode = 0
	// SatpSv39 selects the three-level, 39-bit virtual address scheme
	// this kernel's page-table layer implements.
	SatpSv39 SatpMode = 8
	// SatpSv48 is recognized but unsupported by mem/vmm.
	SatpSv48 SatpMode = 9
)

// BuildSatp composes the value to be written to satp for the given mode,
// address-space id and physical root page-table address. Per spec: mode<<60
// | asid<<44 | (root_paddr>>12).
func BuildSatp(mode SatpMode, asid uint64, rootPhysAddr uintptr) uint64 {
	return uint64(mode)<<60 | (asid&0xffff)<<44 | uint64(rootPhysAddr>>12)
}

// EnableInterrupts enables interrupt handling on the current hart.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling on the current hart.
func DisableInterrupts()

// Halt stops instruction execution on the current hart (wfi loop).
func Halt()

// SatpWrite installs value into the satp register, switching the active
// Sv39 page table. Callers must have identity-mapped every byte of
// currently-executing code and its working set before calling this, since
// the switch takes effect immediately for subsequent fetches.
func SatpWrite(value uint64)

// SatpFenceASID flushes cached translations for the given address-space id.
// This is the single ordering barrier that makes a newly-installed page
// table visible to later instruction fetches and data accesses on this hart.
func SatpFenceASID(asid uint64)

// MscratchWrite installs value into mscratch. kinit uses this to publish the
// physical address of this hart's TrapFrame so the machine-mode trap vector
// can locate it without clobbering any general-purpose register.
func MscratchWrite(value uintptr)

// MscratchRead returns the current value of mscratch.
func MscratchRead() uintptr

// SscratchWrite installs value into sscratch, mirroring mscratch so that
// supervisor-mode traps can find the same trap frame.
func SscratchWrite(value uintptr)
