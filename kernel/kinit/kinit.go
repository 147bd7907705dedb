// Package kinit orchestrates the bring-up sequence described in spec.md
// §4.5: it wires together mem/pfa, mem/vmm and mem/kheap in the fixed
// order bring-up requires, identity-maps every kernel section and device
// MMIO window the platform needs, installs the trap frame pointer, and
// finally switches on the MMU.
//
// It is grounded directly on original_source/src/main.rs's kinit/
// kinit_hart/kmain trio, translated into the Go shape the rest of this
// repo already uses (kernel.Error returns instead of panics, the mem/pfa,
// mem/vmm and mem/kheap packages instead of page/kmem modules).
package kinit

import (
	"unsafe"

	"sv39kernel/kernel"
	"sv39kernel/kernel/cpu"
	"sv39kernel/kernel/kfmt/early"
	"sv39kernel/kernel/link"
	"sv39kernel/kernel/mem"
	"sv39kernel/kernel/mem/kheap"
	"sv39kernel/kernel/mem/pfa"
	"sv39kernel/kernel/mem/vmm"
)

// kheapFrames is the default number of frames (256 KiB) reserved for the
// kernel heap at init, per spec.md §4.3.
const kheapFrames = 64

// KMEMPageTable is the kernel's root Sv39 page table, installed by Kinit
// and never torn down. Per spec.md §9, this is one of the core's three
// process-wide mutable singletons (frame allocator, this root, and the
// kernel heap).
var KMEMPageTable *vmm.Table

// Kinit runs hart 0's bring-up sequence. Interrupts are not yet enabled on
// entry (spec.md §5: "all three subsystems run with machine-mode
// interrupts disabled during kinit"); Kinit does not enable them --
// that is left to the caller, once trap.MTrap and plic are ready to
// service them.
func Kinit(bounds link.Bounds) {
	// Step 1: diagnostics. kfmt/early talks directly to the UART MMIO
	// register; there is no separate UART driver to initialize (that
	// driver is out of scope per spec.md §1).
	early.Printf("\n\nsv39kernel: starting bring-up\n")

	// Step 2: frame allocator.
	if err := pfa.Default.Init(bounds.HeapStart, mem.Size(bounds.HeapSize)); err != nil {
		kernel.Panic(err)
	}

	// Step 3: kernel heap, backed by the frame allocator.
	if err := kheap.Default.Init(kheapFrames, pfa.Default.Zalloc); err != nil {
		kernel.Panic(err)
	}

	printMemoryLayout(bounds)

	// Step 4: root page table.
	rootPhys := pfa.Default.ZallocOrPanic(1)
	root := vmm.RootTable(rootPhys)
	KMEMPageTable = root

	// Step 5: identity-map everything the kernel touches before the MMU
	// is switched on.
	mapBringUpRegions(root, bounds)

	// Step 6: trap stack for hart 0.
	trapStackBase := pfa.Default.ZallocOrPanic(1)
	cpu.KernelTrapFrame[0].TrapStack = trapStackBase + uintptr(mem.PageSize)
	idMapOrPanic(root, trapStackBase, trapStackBase+uintptr(mem.PageSize), vmm.ReadWrite)

	// Step 7: publish the trap frame pointer and identity-map it.
	frame0 := &cpu.KernelTrapFrame[0]
	frame0.HartID = 0
	cpu.MscratchWrite(uintptr(unsafe.Pointer(frame0)))
	cpu.SscratchWrite(cpu.MscratchRead())

	frameAddr := cpu.MscratchRead()
	frameEnd := frameAddr + uintptr(unsafe.Sizeof(cpu.TrapFrame{}))
	idMapOrPanic(root, frameAddr, frameEnd, vmm.ReadWrite)

	// Step 8: build and install satp, then fence.
	satp := cpu.BuildSatp(cpu.SatpSv39, 0, rootPhys)
	frame0.Satp = satp

	early.Printf("sv39kernel: installing satp 0x%x\n", satp)
	cpu.SatpWrite(satp)
	cpu.SatpFenceASID(0)

	early.Printf("sv39kernel: bring-up complete\n")
}

// KinitHart runs the bring-up steps a non-zero hart is allowed to perform
// on its own: installing its own trap frame pointer. Per spec.md §5, it
// must not touch the frame allocator, page tables or heap -- those are
// hart 0's singletons until this core grows locking. It also does not
// install its own satp or trap stack yet; spec.md §9 documents this as a
// deferred step pending that locking.
func KinitHart(hartID uint64) {
	frame := &cpu.KernelTrapFrame[hartID]
	frame.HartID = hartID

	cpu.MscratchWrite(uintptr(unsafe.Pointer(frame)))
	cpu.SscratchWrite(cpu.MscratchRead())
}

func idMapOrPanic(root *vmm.Table, start, end uintptr, bits vmm.EntryBits) {
	if err := vmm.IDMapRange(root, start, end, bits, pfa.Default.Zalloc); err != nil {
		kernel.Panic(err)
	}
}

func mapBringUpRegions(root *vmm.Table, bounds link.Bounds) {
	kheapHead := pfa.Default.Head()
	kheapBytes := uintptr(kheapFrames) * uintptr(mem.PageSize)
	idMapOrPanic(root, kheapHead, kheapHead+kheapBytes, vmm.ReadWrite)

	// spec.md §9's Open Question: the source maps
	// HEAP_START..HEAP_START+HEAP_SIZE/PAGE_SIZE, which covers one page
	// per descriptor *byte* rather than the descriptor region's actual
	// span. We map the corrected, full [HeapStart, HeapStart+HeapSize)
	// region instead (see DESIGN.md).
	idMapOrPanic(root, bounds.HeapStart, bounds.HeapStart+bounds.HeapSize, vmm.ReadWrite)

	idMapOrPanic(root, bounds.TextStart, bounds.TextEnd, vmm.ReadExecute)
	// .rodata is folded into the text section's permissions, per
	// spec.md §4.5 and §9 (a stricter implementation would use a
	// read-only-no-execute flag set here instead).
	idMapOrPanic(root, bounds.RodataStart, bounds.RodataEnd, vmm.ReadExecute)
	idMapOrPanic(root, bounds.DataStart, bounds.DataEnd, vmm.ReadWrite)
	idMapOrPanic(root, bounds.BSSStart, bounds.BSSEnd, vmm.ReadWrite)
	idMapOrPanic(root, bounds.KernelStackStart, bounds.KernelStackEnd, vmm.ReadWrite)

	const uartBase = 0x1000_0000
	if err := vmm.Map(root, uartBase, uartBase, vmm.ReadWrite, 0, pfa.Default.Zalloc); err != nil {
		kernel.Panic(err)
	}

	const clintStart, clintEnd = 0x0200_0000, 0x0200_ffff
	idMapOrPanic(root, clintStart, clintEnd, vmm.ReadWrite)

	const plicPriorityStart, plicPriorityEnd = 0x0c00_0000, 0x0c00_2001
	idMapOrPanic(root, plicPriorityStart, plicPriorityEnd, vmm.ReadWrite)

	const plicContextStart, plicContextEnd = 0x0c20_0000, 0x0c20_8001
	idMapOrPanic(root, plicContextStart, plicContextEnd, vmm.ReadWrite)
}

func printMemoryLayout(bounds link.Bounds) {
	early.Printf("TEXT:   0x%x -> 0x%x\n", bounds.TextStart, bounds.TextEnd)
	early.Printf("RODATA: 0x%x -> 0x%x\n", bounds.RodataStart, bounds.RodataEnd)
	early.Printf("DATA:   0x%x -> 0x%x\n", bounds.DataStart, bounds.DataEnd)
	early.Printf("BSS:    0x%x -> 0x%x\n", bounds.BSSStart, bounds.BSSEnd)
	early.Printf("STACK:  0x%x -> 0x%x\n", bounds.KernelStackStart, bounds.KernelStackEnd)

	head := pfa.Default.Head()
	total := pfa.Default.NumAllocations()
	early.Printf("HEAP:   0x%x -> 0x%x\n", head, head+uintptr(total)*uintptr(mem.PageSize))
}
