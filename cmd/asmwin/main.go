package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/go-asmwin/asmwin/pkg/config"
	"github.com/go-asmwin/asmwin/pkg/logflags"
	"github.com/go-asmwin/asmwin/pkg/proc"
)

const version string = "0.1.0"

var (
	logEnabled bool
	logOutput  string

	archName string
	ptrSize  int
	big      bool
	flavour  string
	baseStr  string
	addrStr  string
	count    int
	emulate  bool
)

func main() {
	conf := config.LoadConfig()

	rootCommand := &cobra.Command{
		Use:   "asmwin",
		Short: "Resolve a window of instructions around an address in a code image.",
	}
	rootCommand.PersistentFlags().BoolVarP(&logEnabled, "log", "", false, "Enable debug logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output (disasm, emu).")

	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("asmwin version: " + version)
		},
	}
	rootCommand.AddCommand(versionCommand)

	windowCommand := &cobra.Command{
		Use:   "window <image file>",
		Short: "Disassemble a window of instructions around an address.",
		Long: `Loads a raw code image, maps it at the given base address and prints up
to 2*count+1 instructions around the anchor address.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := logflags.Setup(logEnabled, logOutput); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if err := window(args[0]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}
	windowCommand.Flags().StringVarP(&archName, "arch", "a", string(proc.AMD64), "Target architecture.")
	windowCommand.Flags().IntVarP(&ptrSize, "ptr-size", "p", 8, "Pointer size in bytes (4 or 8).")
	windowCommand.Flags().BoolVarP(&big, "big-endian", "", false, "Treat the image as big endian.")
	windowCommand.Flags().StringVarP(&flavour, "flavour", "f", conf.Flavour, "Assembly syntax (gnu, intel, go).")
	windowCommand.Flags().StringVarP(&baseStr, "base", "b", "0", "Address the image is mapped at.")
	windowCommand.Flags().StringVarP(&addrStr, "addr", "d", "", "Anchor address of the window.")
	windowCommand.Flags().IntVarP(&count, "count", "c", conf.Count, "Number of instructions requested on each side of the anchor.")
	windowCommand.Flags().BoolVarP(&emulate, "emulate", "e", conf.Emulate, "Use an emulation backend to resolve indirect transfers, if available.")
	rootCommand.AddCommand(windowCommand)

	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}

func window(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	base, err := parseAddr(baseStr)
	if err != nil {
		return fmt.Errorf("invalid base address: %v", err)
	}
	anchor := base
	if addrStr != "" {
		anchor, err = parseAddr(addrStr)
		if err != nil {
			return fmt.Errorf("invalid anchor address: %v", err)
		}
	}

	mem := &proc.RegionMemory{}
	mem.AddRegion(base, data)

	sess, err := proc.NewSession(proc.SessionConfig{
		Arch:      proc.ArchName(archName),
		PtrSize:   ptrSize,
		BigEndian: big,
		Flavour:   parseFlavour(flavour),
		Mem:       mem,
		Regs:      &proc.StaticRegisters{PCVal: anchor},
	})
	if err != nil {
		return err
	}

	insns := sess.ResolveWindow(anchor, count, emulate)
	if len(insns) == 0 {
		return fmt.Errorf("no instructions available at %#x", anchor)
	}

	colors := isatty.IsTerminal(os.Stdout.Fd())
	for _, ins := range insns {
		marker := "  "
		if ins.Address == anchor {
			marker = "=>"
		}
		line := fmt.Sprintf("%s %#-12x %-24s %s", marker, ins.Address, fmt.Sprintf("% x", ins.Bytes), ins.Text)
		if colors && ins.Address == anchor {
			line = "\033[32m" + line + "\033[0m"
		}
		fmt.Println(line)
	}
	return nil
}

func parseAddr(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

func parseFlavour(s string) proc.AssemblyFlavour {
	switch s {
	case "intel":
		return proc.IntelFlavour
	case "go":
		return proc.GoFlavour
	default:
		return proc.GNUFlavour
	}
}
