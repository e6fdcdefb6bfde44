package proc

// Emulator single-steps an emulated copy of the target CPU. The window
// resolver consumes only this contract, never a concrete backend;
// platforms without a backend simply provide no factory.
type Emulator interface {
	// SingleStep executes one instruction in the emulator, returning
	// the program counter after the step and the size of the executed
	// instruction. ok is false when the emulator could not produce a
	// candidate, in which case the caller falls back to static
	// resolution.
	SingleStep() (pc uint64, size int, ok bool)
}

// EmulatorFactory creates a fresh emulator initialized from the
// current state of the target. A new emulator is created for every
// window that enables emulation; emulated CPU state must not leak
// across windows.
type EmulatorFactory func() (Emulator, error)
