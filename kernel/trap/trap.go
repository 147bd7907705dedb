// Package trap is the thin trap-dispatch collaborator described in
// spec.md §6: the machine-mode assembly trampoline (out of scope here)
// saves registers into the trap frame pointed to by mscratch and calls
// MTrap, which decodes the cause, services what the core needs serviced,
// and returns the program counter to resume at.
//
// MTrap's shape -- the sync/async split on the top bit of cause, the
// switch over cause numbers, the PLIC claim/complete loop for UART0, the
// timer rearm, and the epc+=4 advance on a recoverable page fault -- is
// restored from original_source/src/trap.rs's m_trap, which the distilled
// spec.md stopped short of including verbatim (see SPEC_FULL.md
// "SUPPLEMENTED FEATURES").
package trap

import (
	"sv39kernel/kernel"
	"sv39kernel/kernel/cpu"
	"sv39kernel/kernel/kfmt/early"
	"sv39kernel/kernel/plic"
)

// Asynchronous cause numbers (top bit of cause set).
const (
	causeMachineSoftware = 3
	causeMachineTimer    = 7
	causeMachineExternal = 11
)

// Synchronous cause numbers (top bit of cause clear).
const (
	causeIllegalInstruction = 2
	causeEcallFromUMode     = 8
	causeEcallFromSMode     = 9
	causeEcallFromMMode     = 11
	causeInstructionPF      = 12
	causeLoadPF             = 13
	causeStorePF            = 15
)

const causeAsyncBit = uint64(1) << 63

var (
	// The following are mocked by tests and are automatically inlined by
	// the compiler in production builds.
	panicFn        = kernel.Panic
	armTimerTickFn = cpu.ArmTimerTick
	plicNextFn     = plic.Next
	plicCompleteFn = plic.Complete
)

var (
	errUnhandledAsync     = &kernel.Error{Module: "trap", Message: "unhandled asynchronous trap"}
	errIllegalInstruction = &kernel.Error{Module: "trap", Message: "illegal instruction"}
	errEcallFromMMode     = &kernel.Error{Module: "trap", Message: "ecall from M-mode"}
	errUnhandledSync      = &kernel.Error{Module: "trap", Message: "unhandled synchronous trap"}
)

// MTrap is the C-ABI trap handler whose address the assembly trampoline
// calls after saving registers: m_trap(epc, tval, cause, hart, status,
// &frame) -> usize, per spec.md §6. It returns the program counter the
// trampoline should resume execution at.
func MTrap(epc, tval, cause uintptr, hart uint64, status uintptr, frame *cpu.TrapFrame) uintptr {
	returnPC := epc
	causeNum := uint64(cause) & 0xfff

	if uint64(cause)&causeAsyncBit != 0 {
		returnPC = handleAsync(causeNum, hart, epc)
	} else {
		returnPC = handleSync(causeNum, hart, epc, tval)
	}

	return returnPC
}

func handleAsync(causeNum, hart uint64, epc uintptr) uintptr {
	switch causeNum {
	case causeMachineSoftware:
		early.Printf("machine software interrupt CPU#%d\n", hart)
	case causeMachineTimer:
		armTimerTickFn()
		early.Printf("timer interrupt CPU#%d\n", hart)
	case causeMachineExternal:
		handleExternalInterrupt(hart)
	default:
		panicFn(errUnhandledAsync)
	}
	return epc
}

func handleExternalInterrupt(hart uint64) {
	irq, ok := plicNextFn()
	if !ok {
		return
	}

	switch irq {
	case plic.UART0IRQ:
		early.Printf("UART0 interrupt CPU#%d\n", hart)
	default:
		early.Printf("non-UART external interrupt %d, CPU#%d\n", irq, hart)
	}

	plicCompleteFn(irq)
}

func handleSync(causeNum, hart uint64, epc, tval uintptr) uintptr {
	switch causeNum {
	case causeIllegalInstruction:
		panicFn(errIllegalInstruction)
		return epc
	case causeEcallFromUMode:
		early.Printf("ecall from U-mode CPU#%d -> 0x%x\n", hart, epc)
		return epc + 4
	case causeEcallFromSMode:
		early.Printf("ecall from S-mode CPU#%d -> 0x%x\n", hart, epc)
		return epc + 4
	case causeEcallFromMMode:
		panicFn(errEcallFromMMode)
		return epc
	case causeInstructionPF, causeLoadPF, causeStorePF:
		early.Printf("page fault CPU#%d -> epc 0x%x, tval 0x%x\n", hart, epc, tval)
		return epc + 4
	default:
		panicFn(errUnhandledSync)
		return epc
	}
}
