package proc

import (
	"errors"
	"fmt"
)

// ArchName identifies a target CPU architecture. The set is closed:
// only the enumerated names are valid.
type ArchName string

const (
	ARM     ArchName = "arm"
	AArch64 ArchName = "aarch64"
	I386    ArchName = "x86-32"
	AMD64   ArchName = "x86-64"
	PPC     ArchName = "powerpc"
	MIPS    ArchName = "mips"
	SPARC   ArchName = "sparc"
)

var (
	// ErrUnsupportedArch is returned for architecture names outside
	// the supported set.
	ErrUnsupportedArch = errors.New("unsupported architecture")
	// ErrUnsupportedPtrSize is returned for pointer sizes other than
	// 4 and 8.
	ErrUnsupportedPtrSize = errors.New("unsupported pointer size")
	// ErrNoDecoder is returned when no instruction decoder is
	// available for the target architecture.
	ErrNoDecoder = errors.New("no decoder available")
)

// ModeExtra carries architecture specific sub-mode flags. When set it
// overrides the pointer-size-derived decode mode entirely.
type ModeExtra uint8

const (
	ModeNone ModeExtra = iota
	// ModeA32 selects the ARM instruction set on ARM family targets.
	ModeA32
	// ModeThumb selects the Thumb instruction set on ARM family
	// targets.
	ModeThumb
)

// cpsrThumbBit is the T bit of the ARM status register, set when the
// processor executes Thumb instructions.
const cpsrThumbBit = 0x20

// Arch groups the fixed per-architecture knowledge needed to decode
// instructions: the ceiling on instruction length, whether an emulation
// backend exists, and how to build a decoder.
type Arch struct {
	Name ArchName

	// MaxInstructionBytes is an upper bound on the length of a single
	// instruction. Reads never need to exceed it.
	MaxInstructionBytes int

	// canEmulate is true when an emulation backend exists for this
	// architecture.
	canEmulate bool

	// newDecoder builds a decoder for the given mode, nil when no
	// built-in decoder exists for this architecture.
	newDecoder func(mode decoderMode) (Decoder, error)
}

var archs = map[ArchName]*Arch{
	ARM:     {Name: ARM, MaxInstructionBytes: 4, canEmulate: true, newDecoder: newARMDecoder},
	AArch64: {Name: AArch64, MaxInstructionBytes: 4, canEmulate: true, newDecoder: newARM64Decoder},
	I386:    {Name: I386, MaxInstructionBytes: 16, canEmulate: true, newDecoder: newX86Decoder},
	AMD64:   {Name: AMD64, MaxInstructionBytes: 16, canEmulate: true, newDecoder: newX86Decoder},
	PPC:     {Name: PPC, MaxInstructionBytes: 4, canEmulate: false, newDecoder: newPPC64Decoder},
	MIPS:    {Name: MIPS, MaxInstructionBytes: 8, canEmulate: true, newDecoder: nil},
	SPARC:   {Name: SPARC, MaxInstructionBytes: 4, canEmulate: false, newDecoder: nil},
}

// ArchByName returns the Arch for one of the supported architecture
// names.
func ArchByName(name ArchName) (*Arch, error) {
	a, ok := archs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedArch, name)
	}
	return a, nil
}

// modeExtra derives the architecture specific sub-mode from the status
// register. On ARM family targets the T bit of the status register
// selects between the ARM and Thumb instruction sets.
func (a *Arch) modeExtra(regs Registers) ModeExtra {
	switch a.Name {
	case ARM, AArch64:
		if regs != nil && regs.Flags()&cpsrThumbBit != 0 {
			return ModeThumb
		}
		return ModeA32
	}
	return ModeNone
}
