package trap

import (
	"testing"

	"sv39kernel/kernel/cpu"
	"sv39kernel/kernel/kfmt/early"
	"sv39kernel/kernel/plic"
)

func withMocks(t *testing.T, panicCalled *bool, timerArmed *bool) {
	t.Helper()
	early.SetOutput(func(byte) {})

	origPanic, origTimer, origNext, origComplete := panicFn, armTimerTickFn, plicNextFn, plicCompleteFn
	t.Cleanup(func() {
		panicFn, armTimerTickFn, plicNextFn, plicCompleteFn = origPanic, origTimer, origNext, origComplete
	})

	panicFn = func(e interface{}) {
		if panicCalled != nil {
			*panicCalled = true
		}
	}
	armTimerTickFn = func() {
		if timerArmed != nil {
			*timerArmed = true
		}
	}
	plicNextFn = func() (uint32, bool) { return 0, false }
	plicCompleteFn = func(uint32) {}
}

func TestMTrapEcallAdvancesPC(t *testing.T) {
	withMocks(t, nil, nil)

	var frame cpu.TrapFrame
	const epc = 0x8000_1000
	got := MTrap(epc, 0, causeEcallFromSMode, 0, 0, &frame)
	if got != epc+4 {
		t.Fatalf("expected pc 0x%x; got 0x%x", epc+4, got)
	}
}

func TestMTrapPageFaultAdvancesPC(t *testing.T) {
	withMocks(t, nil, nil)

	var frame cpu.TrapFrame
	const epc = 0x8000_2000
	for _, cause := range []uintptr{causeInstructionPF, causeLoadPF, causeStorePF} {
		got := MTrap(epc, 0xdead, cause, 0, 0, &frame)
		if got != epc+4 {
			t.Fatalf("cause %d: expected pc 0x%x; got 0x%x", cause, epc+4, got)
		}
	}
}

func TestMTrapIllegalInstructionPanics(t *testing.T) {
	var panicked bool
	withMocks(t, &panicked, nil)

	var frame cpu.TrapFrame
	MTrap(0x8000_3000, 0, causeIllegalInstruction, 0, 0, &frame)

	if !panicked {
		t.Fatal("expected illegal instruction to panic")
	}
}

func TestMTrapTimerInterruptRearmsAndReturnsEpc(t *testing.T) {
	var armed bool
	withMocks(t, nil, &armed)

	var frame cpu.TrapFrame
	const epc = 0x8000_4000
	got := MTrap(epc, 0, causeMachineTimer|uintptr(causeAsyncBit), 0, 0, &frame)

	if !armed {
		t.Fatal("expected the timer to be rearmed")
	}
	if got != epc {
		t.Fatalf("expected timer interrupt to resume at epc 0x%x; got 0x%x", epc, got)
	}
}

func TestMTrapExternalInterruptClaimsUART(t *testing.T) {
	origNext, origComplete := plicNextFn, plicCompleteFn
	defer func() { plicNextFn, plicCompleteFn = origNext, origComplete }()
	early.SetOutput(func(byte) {})

	var completed uint32
	plicNextFn = func() (uint32, bool) { return plic.UART0IRQ, true }
	plicCompleteFn = func(irq uint32) { completed = irq }

	var frame cpu.TrapFrame
	MTrap(0x8000_5000, 0, causeMachineExternal|uintptr(causeAsyncBit), 0, 0, &frame)

	if completed != plic.UART0IRQ {
		t.Fatalf("expected UART0 irq (%d) to be completed; got %d", plic.UART0IRQ, completed)
	}
}

func TestMTrapUnhandledAsyncPanics(t *testing.T) {
	var panicked bool
	withMocks(t, &panicked, nil)

	var frame cpu.TrapFrame
	MTrap(0x8000_6000, 0, 99|uintptr(causeAsyncBit), 0, 0, &frame)

	if !panicked {
		t.Fatal("expected an unrecognized asynchronous cause to panic")
	}
}
