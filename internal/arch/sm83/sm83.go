// Package sm83 provides decode rules for the Sharp SM83 (Game Boy) CPU,
// including the two-byte 0xCB opcode page. The eleven undefined opcodes
// are left unregistered so control flow that reaches them is reported
// rather than decoded.
package sm83

import (
	"fmt"

	"romdis/internal/arch"
	"romdis/internal/dis"
)

func init() {
	arch.Register(SM83{})
}

// SM83 implements arch.Architecture.
type SM83 struct{}

func (SM83) Name() string { return "sm83" }

// DefaultEntry is the cartridge entry point: execution starts at 0x100
// after the boot ROM hands over.
func (SM83) DefaultEntry() dis.Address { return 0x100 }

var (
	regs       = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	pairs      = [4]string{"BC", "DE", "HL", "SP"}
	stackPairs = [4]string{"BC", "DE", "HL", "AF"}
	conds      = [4]string{"NZ", "Z", "NC", "C"}
	aluOps     = [8]string{"ADD A, ", "ADC A, ", "SUB ", "SBC A, ", "AND ", "XOR ", "OR ", "CP "}
	cbOps      = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}
)

// registrar accumulates the first registration error so the table setup
// reads as a flat list.
type registrar struct {
	t   *dis.Table
	err error
}

func (r *registrar) add(opcode uint64, a dis.Action) {
	if r.err == nil {
		r.err = r.t.Register(opcode, a)
	}
}

func (r *registrar) text(opcode uint64, s string) {
	r.add(opcode, dis.Text(s))
}

func (r *registrar) span(start, end, step uint64, a dis.Action) {
	if r.err == nil {
		r.err = r.t.RegisterRange(start, end, step, a)
	}
}

// opByte returns the last accumulated opcode byte, which range actions use
// to recover the concrete opcode they were invoked for.
func opByte(c *dis.Context) byte {
	op := c.Opcode()
	return op[len(op)-1]
}

// Register populates t with the full SM83 instruction set.
func (SM83) Register(t *dis.Table) error {
	r := &registrar{t: t}

	r.text(0x00, "NOP")
	r.span(0x01, 0x41, 0x10, dis.Decode(ldPairImm))
	r.text(0x02, "LD (BC), A")
	r.span(0x03, 0x43, 0x10, dis.Decode(incPair))
	r.span(0x04, 0x44, 0x08, dis.Decode(incReg))
	r.span(0x05, 0x45, 0x08, dis.Decode(decReg))
	r.span(0x06, 0x46, 0x08, dis.Decode(ldRegImm))
	r.text(0x07, "RLCA")
	r.add(0x08, dis.Decode(ldMemSP))
	r.span(0x09, 0x49, 0x10, dis.Decode(addHLPair))
	r.text(0x0a, "LD A, (BC)")
	r.span(0x0b, 0x4b, 0x10, dis.Decode(decPair))
	r.text(0x0f, "RRCA")
	r.add(0x10, dis.Decode(stop))
	r.text(0x12, "LD (DE), A")
	r.text(0x17, "RLA")
	r.add(0x18, dis.Decode(jr))
	r.text(0x1a, "LD A, (DE)")
	r.text(0x1f, "RRA")
	r.span(0x20, 0x40, 0x08, dis.Decode(jrCond))
	r.text(0x22, "LD (HL+), A")
	r.text(0x27, "DAA")
	r.text(0x2a, "LD A, (HL+)")
	r.text(0x2f, "CPL")
	r.text(0x32, "LD (HL-), A")
	r.text(0x37, "SCF")
	r.text(0x3a, "LD A, (HL-)")
	r.text(0x3f, "CCF")

	// LD r, r' block, interrupted by HALT at 0x76
	r.span(0x40, 0x76, 1, dis.Decode(ldRegReg))
	r.add(0x76, dis.Decode(halt))
	r.span(0x77, 0x80, 1, dis.Decode(ldRegReg))

	// ALU register block
	r.span(0x80, 0xc0, 1, dis.Decode(aluReg))

	r.span(0xc0, 0xe0, 0x08, dis.Decode(retCond))
	r.span(0xc1, 0xf2, 0x10, dis.Decode(popPair))
	r.span(0xc2, 0xe2, 0x08, dis.Decode(jpCond))
	r.add(0xc3, dis.Decode(jp))
	r.span(0xc4, 0xe4, 0x08, dis.Decode(callCond))
	r.span(0xc5, 0xf6, 0x10, dis.Decode(pushPair))
	r.span(0xc6, 0x106, 0x08, dis.Decode(aluImm))
	r.span(0xc7, 0x107, 0x08, dis.Decode(rst))
	r.add(0xc9, dis.Decode(ret))
	r.add(0xcb, dis.More)
	r.add(0xcd, dis.Decode(call))
	r.add(0xd9, dis.Decode(reti))
	r.add(0xe0, dis.Decode(ldhStore))
	r.text(0xe2, "LD (C), A")
	r.add(0xe8, dis.Decode(addSP))
	r.add(0xe9, dis.Decode(jpHL))
	r.add(0xea, dis.Decode(ldMemA))
	r.add(0xf0, dis.Decode(ldhLoad))
	r.text(0xf2, "LD A, (C)")
	r.text(0xf3, "DI")
	r.add(0xf8, dis.Decode(ldHLSPOffset))
	r.text(0xf9, "LD SP, HL")
	r.add(0xfa, dis.Decode(ldAMem))
	r.text(0xfb, "EI")

	// every opcode on the 0xCB page is defined
	r.span(0xcb00, 0xcc00, 1, dis.Decode(cbPage))

	return r.err
}

func ldPairImm(c *dis.Context) (dis.Instruction, error) {
	v, err := c.PopWordLE()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "LD " + pairs[opByte(c)>>4] + ", {v}",
		Args: dis.Args{"v": dis.Word(v)},
	}, nil
}

func incPair(c *dis.Context) (dis.Instruction, error) {
	return dis.Instruction{Text: "INC " + pairs[opByte(c)>>4]}, nil
}

func decPair(c *dis.Context) (dis.Instruction, error) {
	return dis.Instruction{Text: "DEC " + pairs[opByte(c)>>4]}, nil
}

func addHLPair(c *dis.Context) (dis.Instruction, error) {
	return dis.Instruction{Text: "ADD HL, " + pairs[opByte(c)>>4]}, nil
}

func incReg(c *dis.Context) (dis.Instruction, error) {
	return dis.Instruction{Text: "INC " + regs[(opByte(c)>>3)&7]}, nil
}

func decReg(c *dis.Context) (dis.Instruction, error) {
	return dis.Instruction{Text: "DEC " + regs[(opByte(c)>>3)&7]}, nil
}

func ldRegImm(c *dis.Context) (dis.Instruction, error) {
	v, err := c.PopByte()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "LD " + regs[(opByte(c)>>3)&7] + ", {v}",
		Args: dis.Args{"v": dis.Byte(v)},
	}, nil
}

func ldRegReg(c *dis.Context) (dis.Instruction, error) {
	op := opByte(c)
	return dis.Instruction{Text: "LD " + regs[(op>>3)&7] + ", " + regs[op&7]}, nil
}

func aluReg(c *dis.Context) (dis.Instruction, error) {
	op := opByte(c)
	return dis.Instruction{Text: aluOps[(op>>3)&7] + regs[op&7]}, nil
}

func aluImm(c *dis.Context) (dis.Instruction, error) {
	v, err := c.PopByte()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: aluOps[(opByte(c)>>3)&7] + "{v}",
		Args: dis.Args{"v": dis.Byte(v)},
	}, nil
}

func ldMemSP(c *dis.Context) (dis.Instruction, error) {
	addr, err := c.PopWordLE()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "LD ({a}), SP",
		Args: dis.Args{"a": dis.Loc(c.Reference(dis.Address(addr), 0))},
	}, nil
}

func ldMemA(c *dis.Context) (dis.Instruction, error) {
	addr, err := c.PopWordLE()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "LD ({a}), A",
		Args: dis.Args{"a": dis.Loc(c.Reference(dis.Address(addr), 0))},
	}, nil
}

func ldAMem(c *dis.Context) (dis.Instruction, error) {
	addr, err := c.PopWordLE()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "LD A, ({a})",
		Args: dis.Args{"a": dis.Loc(c.Reference(dis.Address(addr), 0))},
	}, nil
}

// ldhStore and ldhLoad access the high RAM page at 0xff00.
func ldhStore(c *dis.Context) (dis.Instruction, error) {
	v, err := c.PopByte()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "LDH ({a}), A",
		Args: dis.Args{"a": dis.Loc(c.Reference(0xff00, int(v)))},
	}, nil
}

func ldhLoad(c *dis.Context) (dis.Instruction, error) {
	v, err := c.PopByte()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "LDH A, ({a})",
		Args: dis.Args{"a": dis.Loc(c.Reference(0xff00, int(v)))},
	}, nil
}

func jp(c *dis.Context) (dis.Instruction, error) {
	addr, err := c.PopWordLE()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "JP {target}",
		Args: dis.Args{"target": dis.Loc(c.Jump(dis.Address(addr), 0, false))},
	}, nil
}

func jpCond(c *dis.Context) (dis.Instruction, error) {
	addr, err := c.PopWordLE()
	if err != nil {
		return dis.Instruction{}, err
	}
	cond := conds[(opByte(c)>>3)&3]
	return dis.Instruction{
		Text: "JP " + cond + ", {target}",
		Args: dis.Args{"target": dis.Loc(c.Jump(dis.Address(addr), 0, true))},
	}, nil
}

// jpHL jumps through a register, so the target is unknowable statically;
// the instruction is terminal with no recorded successor.
func jpHL(c *dis.Context) (dis.Instruction, error) {
	return c.Halt(dis.Instruction{Text: "JP (HL)"}), nil
}

func jr(c *dis.Context) (dis.Instruction, error) {
	off, err := c.PopSignedByte()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "JR {target}",
		Args: dis.Args{"target": dis.Loc(c.JumpRel(off, false))},
	}, nil
}

func jrCond(c *dis.Context) (dis.Instruction, error) {
	off, err := c.PopSignedByte()
	if err != nil {
		return dis.Instruction{}, err
	}
	cond := conds[(opByte(c)>>3)&3]
	return dis.Instruction{
		Text: "JR " + cond + ", {target}",
		Args: dis.Args{"target": dis.Loc(c.JumpRel(off, true))},
	}, nil
}

func call(c *dis.Context) (dis.Instruction, error) {
	addr, err := c.PopWordLE()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "CALL {target}",
		Args: dis.Args{"target": dis.Loc(c.Call(dis.Address(addr), 0, false))},
	}, nil
}

func callCond(c *dis.Context) (dis.Instruction, error) {
	addr, err := c.PopWordLE()
	if err != nil {
		return dis.Instruction{}, err
	}
	cond := conds[(opByte(c)>>3)&3]
	return dis.Instruction{
		Text: "CALL " + cond + ", {target}",
		Args: dis.Args{"target": dis.Loc(c.Call(dis.Address(addr), 0, true))},
	}, nil
}

// rst calls one of the eight fixed restart vectors encoded in the opcode.
func rst(c *dis.Context) (dis.Instruction, error) {
	target := dis.Address(opByte(c) & 0x38)
	return dis.Instruction{
		Text: "RST {target}",
		Args: dis.Args{"target": dis.Loc(c.Call(target, 0, false))},
	}, nil
}

func ret(c *dis.Context) (dis.Instruction, error) {
	return c.Return(dis.Instruction{Text: "RET"}), nil
}

func reti(c *dis.Context) (dis.Instruction, error) {
	return c.Return(dis.Instruction{Text: "RETI"}), nil
}

// retCond returns conditionally, so fall-through is preserved.
func retCond(c *dis.Context) (dis.Instruction, error) {
	return dis.Instruction{Text: "RET " + conds[(opByte(c)>>3)&3]}, nil
}

func popPair(c *dis.Context) (dis.Instruction, error) {
	return dis.Instruction{Text: "POP " + stackPairs[(opByte(c)>>4)&3]}, nil
}

func pushPair(c *dis.Context) (dis.Instruction, error) {
	return dis.Instruction{Text: "PUSH " + stackPairs[(opByte(c)>>4)&3]}, nil
}

func addSP(c *dis.Context) (dis.Instruction, error) {
	off, err := c.PopSignedByte()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "ADD SP, {v}",
		Args: dis.Args{"v": dis.Num(off)},
	}, nil
}

func ldHLSPOffset(c *dis.Context) (dis.Instruction, error) {
	off, err := c.PopSignedByte()
	if err != nil {
		return dis.Instruction{}, err
	}
	return dis.Instruction{
		Text: "LD HL, SP+{v}",
		Args: dis.Args{"v": dis.Num(off)},
	}, nil
}

func halt(c *dis.Context) (dis.Instruction, error) {
	return c.Halt(dis.Instruction{Text: "HALT"}), nil
}

// stop consumes the padding byte that follows the opcode.
func stop(c *dis.Context) (dis.Instruction, error) {
	if _, err := c.PopByte(); err != nil {
		return dis.Instruction{}, err
	}
	return c.Halt(dis.Instruction{Text: "STOP"}), nil
}

// cbPage decodes the 256 rotate/shift/bit opcodes behind the 0xCB prefix.
func cbPage(c *dis.Context) (dis.Instruction, error) {
	op := c.Opcode()[1]
	reg := regs[op&7]
	bit := (op >> 3) & 7
	switch {
	case op < 0x40:
		return dis.Instruction{Text: cbOps[op>>3] + " " + reg}, nil
	case op < 0x80:
		return dis.Instruction{Text: fmt.Sprintf("BIT %d, %s", bit, reg)}, nil
	case op < 0xc0:
		return dis.Instruction{Text: fmt.Sprintf("RES %d, %s", bit, reg)}, nil
	default:
		return dis.Instruction{Text: fmt.Sprintf("SET %d, %s", bit, reg)}, nil
	}
}
