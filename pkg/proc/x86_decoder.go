package proc

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

type x86Decoder struct {
	bits    int
	flavour AssemblyFlavour
}

func newX86Decoder(mode decoderMode) (Decoder, error) {
	switch mode.ptrSize {
	case 4, 8:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPtrSize, mode.ptrSize)
	}
	return &x86Decoder{bits: mode.ptrSize * 8, flavour: mode.flavour}, nil
}

func (d *x86Decoder) Decode(mem []byte, pc uint64, max int) ([]Instruction, error) {
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

func (d *x86Decoder) decodeOne(mem []byte, pc uint64) (Instruction, error) {
	inst, err := x86asm.Decode(mem, d.bits)
	if err != nil {
		return Instruction{}, err
	}
	patchPCRelX86(pc, &inst)

	ins := Instruction{
		Address: pc,
		Size:    inst.Len,
		Bytes:   append([]byte{}, mem[:inst.Len]...),
	}
	classifyX86(&ins, &inst)
	ins.Operands = x86Operands(&inst)
	ins.Target = x86Target(&ins, &inst)
	ins.Text = d.text(&inst, pc)
	return ins, nil
}

// converts PC relative arguments to absolute addresses
func patchPCRelX86(pc uint64, inst *x86asm.Inst) {
	for i := range inst.Args {
		rel, isrel := inst.Args[i].(x86asm.Rel)
		if isrel {
			inst.Args[i] = x86asm.Imm(int64(pc) + int64(rel) + int64(inst.Len))
		}
	}
}

func classifyX86(ins *Instruction, inst *x86asm.Inst) {
	switch inst.Op {
	case x86asm.CALL, x86asm.LCALL:
		ins.Groups.Add(GroupCall)
	case x86asm.RET, x86asm.LRET:
		ins.Groups.Add(GroupRet)
	case x86asm.IRET, x86asm.IRETD, x86asm.IRETQ:
		ins.Groups.Add(GroupIret)
	case x86asm.INT, x86asm.INTO, x86asm.SYSCALL, x86asm.SYSENTER:
		ins.Groups.Add(GroupInt)
	case x86asm.UD1, x86asm.UD2:
		ins.Groups.Add(GroupInvalid)
	case x86asm.JMP, x86asm.LJMP:
		ins.Groups.Add(GroupJump)
	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ,
		x86asm.JE, x86asm.JECXZ, x86asm.JG, x86asm.JGE, x86asm.JL,
		x86asm.JLE, x86asm.JNE, x86asm.JNO, x86asm.JNP, x86asm.JNS,
		x86asm.JO, x86asm.JP, x86asm.JRCXZ, x86asm.JS,
		x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		ins.Groups.Add(GroupJump)
		ins.Conditional = true
	case x86asm.HLT, x86asm.CLI, x86asm.STI, x86asm.RDMSR, x86asm.WRMSR:
		ins.Groups.Add(GroupPrivilege)
	}
}

// x86Target resolves the destination of a direct control transfer.
// PC-relative destinations were already rewritten to absolute
// immediates by patchPCRelX86.
func x86Target(ins *Instruction, inst *x86asm.Inst) uint64 {
	if !ins.Groups.Has(GroupJump) && !ins.Groups.Has(GroupCall) {
		return 0
	}
	if imm, ok := inst.Args[0].(x86asm.Imm); ok {
		return uint64(imm)
	}
	return 0
}

func x86Operands(inst *x86asm.Inst) []Operand {
	var ops []Operand
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		switch a := arg.(type) {
		case x86asm.Reg:
			ops = append(ops, Operand{Kind: RegOperand, Reg: int(a)})
		case x86asm.Imm:
			ops = append(ops, Operand{Kind: ImmOperand, Imm: int64(a)})
		case x86asm.Mem:
			ops = append(ops, Operand{Kind: MemOperand, Reg: int(a.Base), Imm: a.Disp})
		}
	}
	return ops
}

func (d *x86Decoder) text(inst *x86asm.Inst, pc uint64) string {
	switch d.flavour {
	case GNUFlavour:
		return x86asm.GNUSyntax(*inst, pc, nil)
	case GoFlavour:
		return x86asm.GoSyntax(*inst, pc, nil)
	default:
		return x86asm.IntelSyntax(*inst, pc, nil)
	}
}
