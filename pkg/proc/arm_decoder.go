package proc

import (
	"golang.org/x/arch/arm/armasm"
)

type armDecoder struct {
	mode    armasm.Mode
	flavour AssemblyFlavour
}

func newARMDecoder(mode decoderMode) (Decoder, error) {
	m := armasm.ModeARM
	if mode.extra == ModeThumb {
		m = armasm.ModeThumb
	}
	return &armDecoder{mode: m, flavour: mode.flavour}, nil
}

func (d *armDecoder) Decode(mem []byte, pc uint64, max int) ([]Instruction, error) {
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

func (d *armDecoder) decodeOne(mem []byte, pc uint64) (Instruction, error) {
	inst, err := armasm.Decode(mem, d.mode)
	if err != nil {
		return Instruction{}, err
	}

	ins := Instruction{
		Address: pc,
		Size:    inst.Len,
		Bytes:   append([]byte{}, mem[:inst.Len]...),
	}
	classifyARM(&ins, &inst)
	ins.Operands = armOperands(&inst)
	ins.Target = armTarget(&ins, &inst, pc)
	ins.Text = d.text(&inst, pc)
	return ins, nil
}

func classifyARM(ins *Instruction, inst *armasm.Inst) {
	switch inst.Op {
	case armasm.B, armasm.BX:
		ins.Groups.Add(GroupJump)
	case armasm.BL, armasm.BLX:
		ins.Groups.Add(GroupCall)
	case armasm.SVC:
		ins.Groups.Add(GroupInt)
	case armasm.LDR, armasm.ADD, armasm.MOV:
		// Writes to PC act as returns.
		if reg, ok := inst.Args[0].(armasm.Reg); ok && reg == armasm.PC {
			ins.Groups.Add(GroupRet)
		}
	case armasm.POP:
		if regList, ok := inst.Args[0].(armasm.RegList); ok && (regList&(1<<uint(armasm.PC)) != 0) {
			ins.Groups.Add(GroupRet)
		}
	}
}

func armTarget(ins *Instruction, inst *armasm.Inst, pc uint64) uint64 {
	if !ins.Groups.Has(GroupJump) && !ins.Groups.Has(GroupCall) {
		return 0
	}
	switch arg := inst.Args[0].(type) {
	case armasm.Imm:
		return uint64(arg)
	case armasm.PCRel:
		return pc + uint64(arg)
	}
	return 0
}

func armOperands(inst *armasm.Inst) []Operand {
	var ops []Operand
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		switch a := arg.(type) {
		case armasm.Reg:
			ops = append(ops, Operand{Kind: RegOperand, Reg: int(a)})
		case armasm.Imm:
			ops = append(ops, Operand{Kind: ImmOperand, Imm: int64(a)})
		case armasm.PCRel:
			ops = append(ops, Operand{Kind: ImmOperand, Imm: int64(a)})
		case armasm.Mem:
			ops = append(ops, Operand{Kind: MemOperand, Reg: int(a.Base), Imm: int64(a.Offset)})
		}
	}
	return ops
}

func (d *armDecoder) text(inst *armasm.Inst, pc uint64) string {
	switch d.flavour {
	case GNUFlavour:
		return armasm.GNUSyntax(*inst)
	default:
		return armasm.GoSyntax(*inst, pc, nil, nil)
	}
}
