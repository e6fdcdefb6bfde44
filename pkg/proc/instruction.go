package proc

// Group classifies an instruction by its control-flow effect.
type Group uint8

const (
	GroupJump Group = iota
	GroupCall
	GroupRet
	GroupInt
	GroupIret
	GroupPrivilege
	GroupInvalid
)

func (g Group) String() string {
	switch g {
	case GroupJump:
		return "jump"
	case GroupCall:
		return "call"
	case GroupRet:
		return "ret"
	case GroupInt:
		return "int"
	case GroupIret:
		return "iret"
	case GroupPrivilege:
		return "privilege"
	case GroupInvalid:
		return "invalid"
	}
	return "unknown"
}

// GroupSet is a bitmask of instruction groups.
type GroupSet uint8

func (s GroupSet) Has(g Group) bool {
	return s&(1<<g) != 0
}

func (s *GroupSet) Add(g Group) {
	*s |= 1 << g
}

func (s GroupSet) Intersects(other GroupSet) bool {
	return s&other != 0
}

type OperandKind uint8

const (
	RegOperand OperandKind = iota
	ImmOperand
	MemOperand
)

// Operand is a normalized view of a decoded argument. For MemOperand
// Reg holds the base register and Imm the displacement.
type Operand struct {
	Kind OperandKind
	Reg  int
	Imm  int64
}

// AssemblyFlavour affects only the rendered text, never classification.
type AssemblyFlavour int

const (
	GNUFlavour AssemblyFlavour = iota
	IntelFlavour
	GoFlavour
)

// Instruction is a single decoded instruction. Target is the statically
// known destination of a jump or call, 0 when there is none or when it
// cannot be determined without executing.
type Instruction struct {
	Address     uint64
	Size        int
	Bytes       []byte
	Target      uint64
	Conditional bool
	Groups      GroupSet
	Operands    []Operand
	Text        string
}

// Next returns the fall-through address, the address of the
// instruction immediately after this one in memory.
func (ins *Instruction) Next() uint64 {
	return ins.Address + uint64(ins.Size)
}

// PredictedNext returns the address execution proceeds to when no
// dynamic information is available: unconditional direct jumps are
// followed, everything else falls through.
func (ins *Instruction) PredictedNext() uint64 {
	if ins.Groups.Has(GroupJump) && !ins.Conditional && ins.Target != 0 {
		return ins.Target
	}
	return ins.Next()
}

func (ins *Instruction) IsCall() bool {
	return ins.Groups.Has(GroupCall)
}

func (ins *Instruction) IsRet() bool {
	return ins.Groups.Has(GroupRet)
}
