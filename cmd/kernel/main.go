// Command kernel is the rt0 trampoline: the only Go symbol the (out of
// scope) boot assembly calls after it has parked the hart in machine mode
// with a minimal stack. It exists, rather than calling kinit.Kinit
// directly from assembly, to keep the Go compiler from treating kinit as
// dead code -- the same reason the teacher's own boot.go called
// kernel.Kmain instead of letting rt0 reference it directly.
package main

import (
	"sv39kernel/kernel/kinit"
	"sv39kernel/kernel/link"
)

// main is not expected to return. If it does, the boot assembly halts the
// hart.
func main() {
	kinit.Kinit(link.Default)
	kinit.KMain()
}
