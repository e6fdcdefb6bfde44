package proc

import (
	"encoding/binary"

	"golang.org/x/arch/ppc64/ppc64asm"
)

type ppc64Decoder struct {
	order   binary.ByteOrder
	flavour AssemblyFlavour
}

func newPPC64Decoder(mode decoderMode) (Decoder, error) {
	var order binary.ByteOrder = binary.LittleEndian
	if mode.bigEndian {
		order = binary.BigEndian
	}
	return &ppc64Decoder{order: order, flavour: mode.flavour}, nil
}

func (d *ppc64Decoder) Decode(mem []byte, pc uint64, max int) ([]Instruction, error) {
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

func (d *ppc64Decoder) decodeOne(mem []byte, pc uint64) (Instruction, error) {
	inst, err := ppc64asm.Decode(mem, d.order)
	if err != nil {
		return Instruction{}, err
	}

	ins := Instruction{
		Address: pc,
		Size:    inst.Len,
		Bytes:   append([]byte{}, mem[:inst.Len]...),
	}
	classifyPPC64(&ins, &inst)
	ins.Operands = ppc64Operands(&inst)
	ins.Target = ppc64Target(&ins, &inst, pc)
	ins.Text = d.text(&inst, pc)
	return ins, nil
}

func classifyPPC64(ins *Instruction, inst *ppc64asm.Inst) {
	switch inst.Op {
	case ppc64asm.BL, ppc64asm.BLA, ppc64asm.BCL, ppc64asm.BCLA,
		ppc64asm.BCLRL, ppc64asm.BCCTRL, ppc64asm.BCTARL:
		// Pages 38-40 Book I v3.0
		ins.Groups.Add(GroupCall)
	case ppc64asm.BCLR:
		ins.Groups.Add(GroupRet)
	case ppc64asm.RFEBB, ppc64asm.RFID, ppc64asm.HRFID:
		ins.Groups.Add(GroupIret)
	case ppc64asm.B, ppc64asm.BA:
		ins.Groups.Add(GroupJump)
	case ppc64asm.BC, ppc64asm.BCA, ppc64asm.BCCTR, ppc64asm.BCTAR:
		ins.Groups.Add(GroupJump)
		ins.Conditional = true
	case ppc64asm.SC:
		ins.Groups.Add(GroupInt)
	case ppc64asm.TD, ppc64asm.TDI, ppc64asm.TW, ppc64asm.TWI:
		ins.Groups.Add(GroupInt)
	}
}

func ppc64Target(ins *Instruction, inst *ppc64asm.Inst, pc uint64) uint64 {
	if !ins.Groups.Has(GroupJump) && !ins.Groups.Has(GroupCall) {
		return 0
	}
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		// Conditional branches carry BO/BI immediates before the
		// displacement, only PCRel and Label arguments are targets.
		switch a := arg.(type) {
		case ppc64asm.PCRel:
			return pc + uint64(a)
		case ppc64asm.Label:
			return uint64(a)
		}
	}
	return 0
}

func ppc64Operands(inst *ppc64asm.Inst) []Operand {
	var ops []Operand
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		switch a := arg.(type) {
		case ppc64asm.Reg:
			ops = append(ops, Operand{Kind: RegOperand, Reg: int(a)})
		case ppc64asm.Imm:
			ops = append(ops, Operand{Kind: ImmOperand, Imm: int64(a)})
		case ppc64asm.PCRel:
			ops = append(ops, Operand{Kind: ImmOperand, Imm: int64(a)})
		case ppc64asm.Label:
			ops = append(ops, Operand{Kind: ImmOperand, Imm: int64(a)})
		case ppc64asm.Offset:
			ops = append(ops, Operand{Kind: MemOperand, Imm: int64(a)})
		}
	}
	return ops
}

func (d *ppc64Decoder) text(inst *ppc64asm.Inst, pc uint64) string {
	switch d.flavour {
	case GNUFlavour:
		return ppc64asm.GNUSyntax(*inst, pc)
	default:
		return ppc64asm.GoSyntax(*inst, pc, nil)
	}
}
