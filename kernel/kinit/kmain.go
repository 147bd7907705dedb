package kinit

import (
	"unsafe"

	"sv39kernel/kernel/cpu"
	"sv39kernel/kernel/kfmt/early"
	"sv39kernel/kernel/mem/kheap"
	"sv39kernel/kernel/plic"
)

// KMain runs after Kinit has switched the MMU on. It restores the
// original's smoke-test sequence (SPEC_FULL.md "SUPPLEMENTED FEATURES"
// #1): allocate a couple of values through the kernel heap, print the
// free-list table, free everything, and print the table again to show
// it's fully reclaimed. It then arms the timer and enables the UART
// interrupt on the PLIC before handing off to whatever scheduling loop a
// higher layer provides -- this core stops at "interrupts are ready".
func KMain() {
	runHeapSelfTest()

	cpu.ArmTimerTick()

	early.Printf("setting up interrupts and PLIC\n")
	plic.SetThreshold(0)
	plic.Enable(plic.UART0IRQ)
	plic.SetPriority(plic.UART0IRQ, 1)
	early.Printf("UART interrupts enabled\n")
}

// runHeapSelfTest exercises kheap.Default.Alloc/Free the way the original
// used Box<u32> and a String: one small typed allocation and one byte
// buffer, both freed before returning.
func runHeapSelfTest() {
	boxed, ok := kheap.Default.Alloc(unsafe.Sizeof(uint32(0)))
	if !ok {
		early.Printf("heap self-test: boxed alloc failed\n")
		return
	}
	*(*uint32)(unsafe.Pointer(boxed)) = 100
	early.Printf("boxed value = %d\n", *(*uint32)(unsafe.Pointer(boxed)))

	sparkleHeart := []byte{0xf0, 0x9f, 0x92, 0x96}
	str, ok := kheap.Default.Alloc(uintptr(len(sparkleHeart)))
	if !ok {
		early.Printf("heap self-test: string alloc failed\n")
		kheap.Default.Free(boxed)
		return
	}
	strBytes := (*[4]byte)(unsafe.Pointer(str))
	copy(strBytes[:], sparkleHeart)

	early.Printf("\nallocations of a boxed value and a buffer:\n")
	kheap.Default.PrintTable()

	kheap.Default.Free(boxed)
	kheap.Default.Free(str)

	early.Printf("\neverything should now be free:\n")
	kheap.Default.PrintTable()
}
