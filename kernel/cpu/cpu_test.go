package cpu

import "testing"

func TestBuildSatp(t *testing.T) {
	specs := []struct {
		mode  SatpMode
		asid  uint64
		root  uintptr
		exp   uint64
	}{
		{SatpSv39, 0, 0x8010_0000, uint64(SatpSv39)<<60 | 0x8010_0000>>12},
		{SatpSv39, 3, 0x8020_1000, uint64(SatpSv39)<<60 | 3<<44 | 0x8020_1000>>12},
		{SatpBare, 0, 0, 0},
	}

	for specIndex, spec := range specs {
		if got := BuildSatp(spec.mode, spec.asid, spec.root); got != spec.exp {
			t.Errorf("[spec %d] expected satp 0x%x; got 0x%x", specIndex, spec.exp, got)
		}
	}
}
