//go:build riscv64

package mem

const (
	// PageShift is equal to log2(PageSize). Used to convert a physical or
	// virtual address to a frame/page number (shift right by PageShift)
	// and vice versa.
	PageShift = 12

	// PageSize defines the system's page size in bytes, fixed at 4 KiB by
	// the Sv39 translation scheme (§3 of the spec this kernel implements;
	// superpages are deliberately out of scope -- see mem/vmm).
	PageSize = Size(1 << PageShift)
)
