package cpu

// MaxHarts bounds the number of hardware threads this kernel statically
// provisions trap frames for. The spec's concurrency model (§5) only
// exercises hart 0 during kinit; secondary harts get their own slot here so
// kinit_hart has somewhere to install a scratch pointer.
const MaxHarts = 8

// TrapFrame is a fixed-layout, per-hart record holding a hart's saved
// register state at a trap boundary. Its address is installed into
// mscratch/sscratch so the assembly trap trampoline can save registers by
// indexing fixed immediate offsets from it -- the layout below must not be
// reordered without updating that trampoline.
type TrapFrame struct {
	// Regs holds the 32 general-purpose integer registers, x0-x31, saved
	// in register-number order (x0 is always zero but a slot is kept so
	// the trampoline can use a flat, unconditional store sequence).
	Regs [32]uint64

	// Fregs holds the 32 floating-point registers, f0-f31.
	Fregs [32]uint64

	// Satp is this hart's saved satp value, restored after servicing a
	// trap that switched page tables (e.g. to handle a user fault).
	Satp uint64

	// TrapStack points at the top of this hart's dedicated trap stack.
	// The assembly trampoline switches onto it before calling MTrap.
	TrapStack uintptr

	// HartID is the hart this frame belongs to.
	HartID uint64
}

// KernelTrapFrame is the statically allocated array of trap frames, one per
// hart, that backs mscratch/sscratch for the lifetime of the kernel.
var KernelTrapFrame [MaxHarts]TrapFrame
