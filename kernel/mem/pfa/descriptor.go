package pfa

// descriptor is the one-byte-per-frame metadata record described in §3 of
// the spec this allocator implements. Only two bits are defined; the
// remaining six are reserved and always zero.
type descriptor uint8

const (
	// flagTaken marks a frame as allocated.
	flagTaken descriptor = 1 << 0
	// flagLast marks a frame as the final frame of a contiguous
	// allocation. A descriptor with flagLast set always has flagTaken
	// set; the converse does not hold (a non-final frame of a multi-page
	// allocation is flagTaken without flagLast).
	flagLast descriptor = 1 << 1
)

func (d descriptor) taken() bool { return d&flagTaken != 0 }
func (d descriptor) last() bool  { return d&flagLast != 0 }
