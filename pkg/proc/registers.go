package proc

// Registers is the minimal register view the resolver needs from the
// debuggee: the program counter, to anchor emulation and detect
// branches onto the live PC, and the flags register, used on ARM
// family targets to select the instruction-set sub-mode.
type Registers interface {
	PC() uint64
	Flags() uint64
}

// StaticRegisters is a fixed register view, useful when resolving
// windows in a memory image that is not attached to a live target.
type StaticRegisters struct {
	PCVal    uint64
	FlagsVal uint64
}

func (r *StaticRegisters) PC() uint64    { return r.PCVal }
func (r *StaticRegisters) Flags() uint64 { return r.FlagsVal }
