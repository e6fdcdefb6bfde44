package proc

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/go-asmwin/asmwin/pkg/logflags"
)

// instructionCacheSize bounds the single-instruction memoization
// table. Entries from stale execution generations age out of the LRU
// naturally.
const instructionCacheSize = 4096

// doNotEmulate are the instruction groups that should not be stepped
// through in an emulator, either because they cannot be emulated
// without interfering (syscalls), or because they may take a long time
// (calls), or because the encoding is not meaningful (invalid).
//
// Note that privileged instructions are explicitly not included, since
// execution may legitimately be in kernel code and privileged
// instructions are just fine in that case.
const doNotEmulate = GroupSet(1<<GroupCall | 1<<GroupInt | 1<<GroupInvalid | 1<<GroupIret)

// insKey keys the memoization table. The execution generation is part
// of the key so that entries resolved before the target resumed are
// never reused after it stops again.
type insKey struct {
	gen  uint64
	addr uint64
}

// SessionConfig describes the target a Session resolves instructions
// in.
type SessionConfig struct {
	Arch      ArchName
	PtrSize   int
	BigEndian bool
	Flavour   AssemblyFlavour

	Mem  MemoryReader
	Regs Registers

	// Decoder, when set, overrides the built-in decoder for every
	// sub-mode of the session.
	Decoder Decoder

	// NewEmulator, when set, enables emulation-assisted forward
	// resolution for windows anchored at the live PC.
	NewEmulator EmulatorFactory
}

// Session resolves windows of instructions in one debug target. It
// owns all decode state: the configured decoders, the per-generation
// instruction memoization table and the backward-link cache. A Session
// must only be used from one goroutine at a time, in step with the
// target's execution control.
type Session struct {
	arch      *Arch
	ptrSize   int
	bigEndian bool
	flavour   AssemblyFlavour

	mem  MemoryReader
	regs Registers

	decoderOverride Decoder
	newEmulator     EmulatorFactory

	// gen is the execution generation, incremented every time the
	// target resumes and stops again.
	gen uint64
	// imageGen is the binary image generation, incremented every time
	// the loaded image set changes.
	imageGen uint64

	decoders map[decoderKey]Decoder
	insCache *lru.Cache

	// backlinks maps the address of an instruction to the address of
	// the instruction observed to precede it during forward
	// resolution. It is a best-effort historical record: a missing
	// entry means the predecessor is unknown, not that none exists.
	// It is never pruned and deliberately survives OnResume.
	backlinks map[uint64]uint64

	log    *logrus.Entry
	emuLog *logrus.Entry
}

// NewSession returns a Session for the described target. Unsupported
// architecture names and pointer sizes are fatal configuration errors.
func NewSession(cfg SessionConfig) (*Session, error) {
	arch, err := ArchByName(cfg.Arch)
	if err != nil {
		return nil, err
	}
	if cfg.PtrSize != 4 && cfg.PtrSize != 8 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPtrSize, cfg.PtrSize)
	}
	if cfg.Mem == nil {
		return nil, fmt.Errorf("no memory reader for %s session", cfg.Arch)
	}
	if cfg.Decoder == nil && arch.newDecoder == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoDecoder, cfg.Arch)
	}
	insCache, err := lru.New(instructionCacheSize)
	if err != nil {
		return nil, err
	}
	return &Session{
		arch:            arch,
		ptrSize:         cfg.PtrSize,
		bigEndian:       cfg.BigEndian,
		flavour:         cfg.Flavour,
		mem:             cfg.Mem,
		regs:            cfg.Regs,
		decoderOverride: cfg.Decoder,
		newEmulator:     cfg.NewEmulator,
		decoders:        make(map[decoderKey]Decoder),
		insCache:        insCache,
		backlinks:       make(map[uint64]uint64),
		log:             logflags.DisasmLogger(),
		emuLog:          logflags.EmuLogger(),
	}, nil
}

// OnResume must be called every time the target resumes execution and
// stops again. It invalidates the memoized instructions, since the
// bytes at an address or the mode selection registers may have
// changed. The backward-link cache records a historical relation and
// is kept.
func (s *Session) OnResume() {
	s.gen++
}

// OnImageLoad must be called when the loaded binary image set changes.
// It drops every configured decoder, since architecture and mode
// assumptions may no longer hold, and invalidates memoized
// instructions.
func (s *Session) OnImageLoad() {
	s.imageGen++
	s.decoders = make(map[decoderKey]Decoder)
	s.gen++
}

// decoder returns the configured decoder for the target's current
// mode, building and caching one per (architecture, pointer size,
// endianness, sub-mode) the first time it is needed.
func (s *Session) decoder() (Decoder, error) {
	if s.decoderOverride != nil {
		return s.decoderOverride, nil
	}
	key := decoderKey{
		arch:      s.arch.Name,
		ptrSize:   s.ptrSize,
		bigEndian: s.bigEndian,
		extra:     s.arch.modeExtra(s.regs),
	}
	if dec, ok := s.decoders[key]; ok {
		return dec, nil
	}
	dec, err := s.arch.newDecoder(decoderMode{
		ptrSize:   key.ptrSize,
		bigEndian: key.bigEndian,
		extra:     key.extra,
		flavour:   s.flavour,
	})
	if err != nil {
		return nil, err
	}
	s.decoders[key] = dec
	return dec, nil
}

// ResolveOne decodes the single instruction at addr, returning nil
// when the address is unreadable or the bytes do not decode. The
// result is memoized for the current execution generation.
func (s *Session) ResolveOne(addr uint64) *Instruction {
	if !s.mem.Peek(addr) {
		return nil
	}
	key := insKey{gen: s.gen, addr: addr}
	if v, ok := s.insCache.Get(key); ok {
		return v.(*Instruction)
	}

	dec, err := s.decoder()
	if err != nil {
		s.log.WithError(err).Debugf("no decoder at %#x", addr)
		return nil
	}

	buf := make([]byte, s.arch.MaxInstructionBytes)
	n, err := s.mem.ReadMemory(buf, addr)
	if n <= 0 {
		if err != nil {
			s.log.WithError(err).Debugf("unreadable memory at %#x", addr)
		}
		return nil
	}

	insns, err := dec.Decode(buf[:n], addr, 1)
	if err != nil || len(insns) == 0 {
		return nil
	}
	ins := &insns[0]
	s.insCache.Add(key, ins)
	return ins
}

// one resolves the instruction at addr and records that its successor
// was observed to follow it. This is the single forward step used by
// the window resolver and by ResolveLive; only forward stepping
// establishes a meaningful "preceding" relationship, so only this path
// writes the backward-link cache.
func (s *Session) one(addr uint64) *Instruction {
	ins := s.ResolveOne(addr)
	if ins == nil {
		return nil
	}
	s.backlinks[ins.PredictedNext()] = ins.Address
	return ins
}

// ResolveLive resolves the instruction at the live program counter,
// returning nil when it cannot be resolved.
func (s *Session) ResolveLive() *Instruction {
	if s.regs == nil {
		return nil
	}
	return s.one(s.regs.PC())
}

// ResolveWindow returns up to count instructions preceding addr, the
// instruction at addr, and the instructions following it, up to
// 2*count+1 in total, in execution order. The backward side comes from
// the backward-link cache and may be shorter than requested when no
// forward pass has visited those addresses yet; the forward side stops
// at the first address that does not resolve. A shorter than requested
// window is not an error; an unresolvable anchor yields an empty one.
//
// When emulate is set, the anchor is the live program counter and the
// architecture has an emulation backend, indirect and conditional
// transfers on the forward side are resolved by single-stepping a
// fresh emulator. Emulation is permanently disabled for the rest of
// the walk as soon as an unsafe instruction class is encountered.
func (s *Session) ResolveWindow(addr uint64, count int, emulate bool) []*Instruction {
	if count < 0 {
		count = 0
	}

	current := s.one(addr)
	if current == nil || !s.mem.Peek(addr) {
		return nil
	}

	var pc uint64
	if s.regs != nil {
		pc = s.regs.PC()
	}

	// Walk backward through the instructions a previous forward pass
	// recorded as leading here.
	before := make([]*Instruction, 0, count)
	var ins *Instruction
	if cached, ok := s.backlinks[current.Address]; ok {
		ins = s.one(cached)
	}
	for ins != nil && len(before) < count {
		before = append(before, ins)
		cached, ok := s.backlinks[ins.Address]
		if !ok {
			break
		}
		ins = s.one(cached)
	}
	for i, j := 0, len(before)-1; i < j; i, j = i+1, j-1 {
		before[i], before[j] = before[j], before[i]
	}

	insns := append(before, current)

	if !s.arch.canEmulate || s.newEmulator == nil {
		emulate = false
	}

	// Emulation advances actual execution state, so it is only valid
	// when the window begins at the instruction about to execute.
	var emu Emulator
	if emulate && s.regs != nil && addr == pc {
		var err error
		emu, err = s.newEmulator()
		if err != nil {
			s.emuLog.WithError(err).Debug("emulator unavailable")
			emu = nil
		} else {
			// The backend emulates the first instruction twice;
			// discard the warm-up step.
			emu.SingleStep()
		}
	}

	ins = current
	totalInstructions := 1 + 2*count

	for ins != nil && len(insns) < totalInstructions {
		next := ins.PredictedNext()

		if emu != nil && ins.Groups.Intersects(doNotEmulate) {
			s.emuLog.Debugf("disabling emulation at %#x", ins.Address)
			emu = nil
		}

		switch {
		case ins.Groups.Has(GroupCall):
			// Continue after a RET or JMP, but never follow through
			// a CALL.
			next = ins.Next()
		case emu != nil:
			if target, size, ok := emu.SingleStep(); ok && size > 0 {
				next = target
			}
		case ins.Target != 0 && ins.Target == pc:
			next = ins.Target
		}

		ins = s.one(next)
		if ins != nil {
			insns = append(insns, ins)
		}
	}

	return insns
}
