package proc

// Decoder turns raw bytes into instruction records. Implementations
// must retain full structural detail (operands, group classification)
// and resolve PC-relative operands to absolute addresses.
type Decoder interface {
	// Decode decodes at most max instructions from mem, which holds
	// the bytes found at address pc. mem may be shorter than the
	// architecture's maximum instruction length when the read crossed
	// into unmapped memory; decoding must still be attempted on
	// whatever bytes are there. A decode failure on the first
	// instruction is reported as an error, a failure on a later one
	// truncates the result.
	Decode(mem []byte, pc uint64, max int) ([]Instruction, error)
}

// decoderMode selects how a built-in decoder interprets bytes. extra,
// when not ModeNone, overrides the pointer-size-derived mode.
type decoderMode struct {
	ptrSize   int
	bigEndian bool
	extra     ModeExtra
	flavour   AssemblyFlavour
}

// decoderKey identifies one configured decoder in the session cache.
type decoderKey struct {
	arch      ArchName
	ptrSize   int
	bigEndian bool
	extra     ModeExtra
}
