package proc

import (
	"golang.org/x/arch/arm64/arm64asm"
)

type arm64Decoder struct {
	flavour AssemblyFlavour
}

func newARM64Decoder(mode decoderMode) (Decoder, error) {
	// AArch64 has no Thumb state, the sub-mode only affects the
	// session key.
	return &arm64Decoder{flavour: mode.flavour}, nil
}

func (d *arm64Decoder) Decode(mem []byte, pc uint64, max int) ([]Instruction, error) {
	r := make([]Instruction, 0, max)
	for len(mem) > 0 && len(r) < max {
		ins, err := d.decodeOne(mem, pc)
		if err != nil {
			if len(r) == 0 {
				return nil, err
			}
			break
		}
		r = append(r, ins)
		pc += uint64(ins.Size)
		mem = mem[ins.Size:]
	}
	return r, nil
}

func (d *arm64Decoder) decodeOne(mem []byte, pc uint64) (Instruction, error) {
	inst, err := arm64asm.Decode(mem)
	if err != nil {
		return Instruction{}, err
	}

	ins := Instruction{
		Address: pc,
		Size:    4,
		Bytes:   append([]byte{}, mem[:4]...),
	}
	classifyARM64(&ins, &inst)
	ins.Operands = arm64Operands(&inst)
	ins.Target = arm64Target(&ins, &inst, pc)
	ins.Text = d.text(&inst, pc)
	return ins, nil
}

func classifyARM64(ins *Instruction, inst *arm64asm.Inst) {
	switch inst.Op {
	case arm64asm.BL, arm64asm.BLR:
		ins.Groups.Add(GroupCall)
	case arm64asm.RET:
		ins.Groups.Add(GroupRet)
	case arm64asm.ERET:
		ins.Groups.Add(GroupIret)
	case arm64asm.B, arm64asm.BR:
		ins.Groups.Add(GroupJump)
		// Conditional branches decode to op B with a condition as
		// the first argument.
		if _, ok := inst.Args[0].(arm64asm.Cond); ok {
			ins.Conditional = true
		}
	case arm64asm.CBZ, arm64asm.CBNZ, arm64asm.TBZ, arm64asm.TBNZ:
		ins.Groups.Add(GroupJump)
		ins.Conditional = true
	case arm64asm.SVC, arm64asm.HVC, arm64asm.SMC, arm64asm.BRK:
		ins.Groups.Add(GroupInt)
	}
}

func arm64Target(ins *Instruction, inst *arm64asm.Inst, pc uint64) uint64 {
	if !ins.Groups.Has(GroupJump) && !ins.Groups.Has(GroupCall) {
		return 0
	}
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		switch a := arg.(type) {
		case arm64asm.PCRel:
			return pc + uint64(a)
		case arm64asm.Imm:
			return uint64(a.Imm)
		}
	}
	return 0
}

func arm64Operands(inst *arm64asm.Inst) []Operand {
	var ops []Operand
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		switch a := arg.(type) {
		case arm64asm.Reg:
			ops = append(ops, Operand{Kind: RegOperand, Reg: int(a)})
		case arm64asm.Imm:
			ops = append(ops, Operand{Kind: ImmOperand, Imm: int64(a.Imm)})
		case arm64asm.Imm64:
			ops = append(ops, Operand{Kind: ImmOperand, Imm: int64(a.Imm)})
		case arm64asm.PCRel:
			ops = append(ops, Operand{Kind: ImmOperand, Imm: int64(a)})
		case arm64asm.MemImmediate:
			// The immediate offset is not exported by the decoder.
			ops = append(ops, Operand{Kind: MemOperand, Reg: int(a.Base)})
		}
	}
	return ops
}

func (d *arm64Decoder) text(inst *arm64asm.Inst, pc uint64) string {
	switch d.flavour {
	case GNUFlavour:
		return arm64asm.GNUSyntax(*inst)
	default:
		return arm64asm.GoSyntax(*inst, pc, nil, nil)
	}
}
