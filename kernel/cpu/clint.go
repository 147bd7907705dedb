package cpu

import "sv39kernel/kernel/mmio"

// CLINT register addresses on the virtualized generic RISC-V board (§6).
const (
	clintMtimecmp uintptr = 0x0200_4000
	clintMtime    uintptr = 0x0200_bff8

	// timerHz is the frequency QEMU drives the CLINT's mtime counter at.
	timerHz uint64 = 10_000_000
)

// ArmTimerTick schedules the next timer interrupt one second from now,
// matching the Timer contract in §6: mtimecmp := mtime + 10_000_000.
func ArmTimerTick() {
	mmio.Write64(clintMtimecmp, mmio.Read64(clintMtime)+timerHz)
}
