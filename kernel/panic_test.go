package kernel

import (
	"testing"

	"sv39kernel/kernel/cpu"
	"sv39kernel/kernel/kfmt/early"
)

func TestPanic(t *testing.T) {
	defer func() {
		cpuHaltFn = cpu.Halt
	}()

	var cpuHaltCalled bool
	cpuHaltFn = func() {
		cpuHaltCalled = true
	}

	t.Run("with error", func(t *testing.T) {
		cpuHaltCalled = false
		var buf []byte
		early.SetOutput(func(b byte) { buf = append(buf, b) })

		err := &Error{Module: "test", Message: "panic test"}
		Panic(err)

		exp := "\n-----------------------------------\n[test] unrecoverable error: panic test\n*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := string(buf); got != exp {
			t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
		}

		if !cpuHaltCalled {
			t.Fatal("expected cpu.Halt() to be called by Panic")
		}
	})

	t.Run("without error", func(t *testing.T) {
		cpuHaltCalled = false
		var buf []byte
		early.SetOutput(func(b byte) { buf = append(buf, b) })

		Panic(nil)

		exp := "\n-----------------------------------\n*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := string(buf); got != exp {
			t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
		}

		if !cpuHaltCalled {
			t.Fatal("expected cpu.Halt() to be called by Panic")
		}
	})

	t.Run("string cause", func(t *testing.T) {
		cpuHaltCalled = false
		var buf []byte
		early.SetOutput(func(b byte) { buf = append(buf, b) })

		Panic("boom")

		exp := "\n-----------------------------------\n[rt] unrecoverable error: boom\n*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := string(buf); got != exp {
			t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
		}
	})
}
