package proc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-asmwin/asmwin/pkg/proc"
)

func x86Session(t *testing.T, base uint64, code []byte) *proc.Session {
	t.Helper()
	mem := &proc.RegionMemory{}
	mem.AddRegion(base, code)
	sess, err := proc.NewSession(proc.SessionConfig{
		Arch:    proc.AMD64,
		PtrSize: 8,
		Mem:     mem,
		Regs:    &proc.StaticRegisters{},
	})
	require.NoError(t, err)
	return sess
}

func TestX86DecodeBasic(t *testing.T) {
	// mov eax, 0x1
	sess := x86Session(t, 0x1000, []byte{0xb8, 0x01, 0x00, 0x00, 0x00})
	ins := sess.ResolveOne(0x1000)
	require.NotNil(t, ins)
	require.Equal(t, 5, ins.Size)
	require.Equal(t, uint64(0x1005), ins.Next())
	require.False(t, ins.IsCall())
	require.NotEmpty(t, ins.Text)
	require.NotEmpty(t, ins.Operands)
}

func TestX86DecodeCallTarget(t *testing.T) {
	// call +5 (0x100a), PC-relative displacement resolved to an
	// absolute address.
	sess := x86Session(t, 0x1000, []byte{0xe8, 0x05, 0x00, 0x00, 0x00})
	ins := sess.ResolveOne(0x1000)
	require.NotNil(t, ins)
	require.True(t, ins.IsCall())
	require.Equal(t, uint64(0x100a), ins.Target)
	require.False(t, ins.Conditional)
}

func TestX86DecodeConditionalJump(t *testing.T) {
	// je +2
	sess := x86Session(t, 0x1000, []byte{0x74, 0x02})
	ins := sess.ResolveOne(0x1000)
	require.NotNil(t, ins)
	require.True(t, ins.Groups.Has(proc.GroupJump))
	require.True(t, ins.Conditional)
	require.Equal(t, uint64(0x1004), ins.Target)
	require.Equal(t, uint64(0x1002), ins.PredictedNext(), "conditional jumps are not followed statically")
}

func TestX86DecodeGroups(t *testing.T) {
	for _, tc := range []struct {
		name  string
		code  []byte
		group proc.Group
	}{
		{"ret", []byte{0xc3}, proc.GroupRet},
		{"int3", []byte{0xcd, 0x03}, proc.GroupInt},
		{"syscall", []byte{0x0f, 0x05}, proc.GroupInt},
		{"ud2", []byte{0x0f, 0x0b}, proc.GroupInvalid},
		{"hlt", []byte{0xf4}, proc.GroupPrivilege},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sess := x86Session(t, 0x1000, tc.code)
			ins := sess.ResolveOne(0x1000)
			require.NotNil(t, ins)
			require.True(t, ins.Groups.Has(tc.group))
		})
	}
}

func TestX86WindowFollowsJumpSkipsCall(t *testing.T) {
	// 0x1000: nop
	// 0x1001: call 0x100b
	// 0x1006: jmp 0x100b
	// 0x1008: xor eax, eax
	// 0x100a: nop
	// 0x100b: ret
	code := []byte{
		0x90,
		0xe8, 0x05, 0x00, 0x00, 0x00,
		0xeb, 0x03,
		0x31, 0xc0,
		0x90,
		0xc3,
	}
	sess := x86Session(t, 0x1000, code)

	insns := sess.ResolveWindow(0x1001, 2, false)
	require.Equal(t, []uint64{0x1001, 0x1006, 0x100b}, addrs(insns))
	require.True(t, insns[0].IsCall())
	require.Equal(t, uint64(0x100b), insns[0].Target)
	require.Equal(t, uint64(0x100b), insns[1].Target)
	require.True(t, insns[2].IsRet())

	// The forward pass recorded predecessors; a window anchored past
	// the call now shows it.
	insns = sess.ResolveWindow(0x1006, 1, false)
	require.Equal(t, []uint64{0x1001, 0x1006, 0x100b}, addrs(insns))
}

func TestARM64DecodeGroups(t *testing.T) {
	mem := &proc.RegionMemory{}
	// 0x1000: bl +4 / 0x1004: b +4 / 0x1008: ret / 0x100c: svc #0
	mem.AddRegion(0x1000, []byte{
		0x01, 0x00, 0x00, 0x94,
		0x01, 0x00, 0x00, 0x14,
		0xc0, 0x03, 0x5f, 0xd6,
		0x01, 0x00, 0x00, 0xd4,
	})
	sess, err := proc.NewSession(proc.SessionConfig{
		Arch:    proc.AArch64,
		PtrSize: 8,
		Mem:     mem,
		Regs:    &proc.StaticRegisters{},
	})
	require.NoError(t, err)

	bl := sess.ResolveOne(0x1000)
	require.NotNil(t, bl)
	require.True(t, bl.IsCall())
	require.Equal(t, 4, bl.Size)
	require.Equal(t, uint64(0x1004), bl.Target)

	b := sess.ResolveOne(0x1004)
	require.NotNil(t, b)
	require.True(t, b.Groups.Has(proc.GroupJump))
	require.False(t, b.Conditional)
	require.Equal(t, uint64(0x1008), b.Target)
	require.Equal(t, uint64(0x1008), b.PredictedNext())

	ret := sess.ResolveOne(0x1008)
	require.NotNil(t, ret)
	require.True(t, ret.IsRet())

	svc := sess.ResolveOne(0x100c)
	require.NotNil(t, svc)
	require.True(t, svc.Groups.Has(proc.GroupInt))
}

func TestARM64DecodeImmediateOperand(t *testing.T) {
	mem := &proc.RegionMemory{}
	// 0x1000: mov x0, #1
	mem.AddRegion(0x1000, []byte{0x20, 0x00, 0x80, 0xd2})
	sess, err := proc.NewSession(proc.SessionConfig{
		Arch:    proc.AArch64,
		PtrSize: 8,
		Mem:     mem,
		Regs:    &proc.StaticRegisters{},
	})
	require.NoError(t, err)

	ins := sess.ResolveOne(0x1000)
	require.NotNil(t, ins)
	var imms []int64
	for _, op := range ins.Operands {
		if op.Kind == proc.ImmOperand {
			imms = append(imms, op.Imm)
		}
	}
	require.Contains(t, imms, int64(1))
}

func TestPPC64DecodeGroups(t *testing.T) {
	mem := &proc.RegionMemory{}
	// 0x1000: bl .+8 / 0x1004: b .+8 / 0x1008: sc / 0x100c: blr
	mem.AddRegion(0x1000, []byte{
		0x48, 0x00, 0x00, 0x09,
		0x48, 0x00, 0x00, 0x08,
		0x44, 0x00, 0x00, 0x02,
		0x4e, 0x80, 0x00, 0x20,
	})
	sess, err := proc.NewSession(proc.SessionConfig{
		Arch:      proc.PPC,
		PtrSize:   8,
		BigEndian: true,
		Mem:       mem,
		Regs:      &proc.StaticRegisters{},
	})
	require.NoError(t, err)

	bl := sess.ResolveOne(0x1000)
	require.NotNil(t, bl)
	require.True(t, bl.IsCall())
	require.Equal(t, uint64(0x1008), bl.Target)

	b := sess.ResolveOne(0x1004)
	require.NotNil(t, b)
	require.True(t, b.Groups.Has(proc.GroupJump))
	require.False(t, b.Conditional)
	require.Equal(t, uint64(0x100c), b.Target)

	sc := sess.ResolveOne(0x1008)
	require.NotNil(t, sc)
	require.True(t, sc.Groups.Has(proc.GroupInt))

	blr := sess.ResolveOne(0x100c)
	require.NotNil(t, blr)
	require.True(t, blr.IsRet())
}

func TestARMDecodeGroups(t *testing.T) {
	mem := &proc.RegionMemory{}
	// 0x1000: bl / 0x1004: b / 0x1008: mov pc, lr
	mem.AddRegion(0x1000, []byte{
		0x00, 0x00, 0x00, 0xeb,
		0x00, 0x00, 0x00, 0xea,
		0x0e, 0xf0, 0xa0, 0xe1,
	})
	sess, err := proc.NewSession(proc.SessionConfig{
		Arch:    proc.ARM,
		PtrSize: 4,
		Mem:     mem,
		Regs:    &proc.StaticRegisters{},
	})
	require.NoError(t, err)

	bl := sess.ResolveOne(0x1000)
	require.NotNil(t, bl)
	require.True(t, bl.IsCall())

	b := sess.ResolveOne(0x1004)
	require.NotNil(t, b)
	require.True(t, b.Groups.Has(proc.GroupJump))

	ret := sess.ResolveOne(0x1008)
	require.NotNil(t, ret)
	require.True(t, ret.IsRet())
}
