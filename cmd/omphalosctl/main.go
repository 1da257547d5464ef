// Command omphalosctl drives the RV32IM emulator outside the kernel:
// load a binary, step it a fixed number of cycles or until it halts,
// and report register/heap state for debugging.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"omphalos/internal/heap"
	"omphalos/internal/riscv"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "omphalosctl",
		Short: "Inspect and drive the OmphalOS RV32IM emulator",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newHeapCmd())
	root.AddCommand(newDecodeCmd())
	return root
}

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <hex-instruction>",
		Short: "Break a raw instruction word down into its R-type fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var inst uint32
			if _, err := fmt.Sscanf(args[0], "0x%x", &inst); err != nil {
				if _, err := fmt.Sscanf(args[0], "%x", &inst); err != nil {
					return fmt.Errorf("parsing instruction word %q: %w", args[0], err)
				}
			}

			f, err := riscv.DecodeRFields(inst)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"opcode=%#02x rd=%d funct3=%#x rs1=%d rs2=%d funct7=%#02x\n",
				f.Opcode, f.Rd, f.Funct3, f.Rs1, f.Rs2, f.Funct7)
			return nil
		},
	}
	return cmd
}

func newRunCmd() *cobra.Command {
	var steps int
	var dumpRegs bool

	cmd := &cobra.Command{
		Use:   "run <binary>",
		Short: "Load a flat RV32 binary into DRAM and step it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading binary: %w", err)
			}

			cpu := riscv.NewCpu()
			cpu.Bus.InitializeDram(data)
			cpu.PC = riscv.DRAMBase

			for i := 0; i < steps; i++ {
				if _, err := cpu.Execute(); err != nil {
					exc, ok := err.(*riscv.Exception)
					if !ok {
						return fmt.Errorf("step %d: %w", i, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "step %d: trapped: %v\n", i, exc)
					disp := cpu.TakeException(exc)
					if disp == riscv.TrapFatal {
						return fmt.Errorf("step %d: fatal trap: %w", i, exc)
					}
				}
			}

			if dumpRegs {
				dumpRegisters(cmd, cpu)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1000, "maximum number of instructions to execute")
	cmd.Flags().BoolVar(&dumpRegs, "dump-regs", false, "print register contents after stepping")
	return cmd
}

func newHeapCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "heap",
		Short: "Exercise the free-list allocator against a scratch region and report its layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			region := heap.NewRegion(make([]byte, size))
			region.AddFreeRegion(0, uint32(size))

			a := region.Alloc(128, heap.NodeAlign)
			b := region.Alloc(256, heap.NodeAlign)
			fmt.Fprintf(cmd.OutOrStdout(), "region size=%d alloc(128)=%#x alloc(256)=%#x\n", size, a, b)
			region.Free(a, 128)
			fmt.Fprintf(cmd.OutOrStdout(), "freed first allocation\n")
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 4096, "scratch region size in bytes")
	return cmd
}

func dumpRegisters(cmd *cobra.Command, cpu *riscv.Cpu) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pc=%#08x mode=%d idle=%v\n", cpu.PC, cpu.Mode, cpu.Idle)
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(out, "x%-2d=%#08x x%-2d=%#08x x%-2d=%#08x x%-2d=%#08x\n",
			i, cpu.Xregs[i], i+1, cpu.Xregs[i+1], i+2, cpu.Xregs[i+2], i+3, cpu.Xregs[i+3])
	}
}
