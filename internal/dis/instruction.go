package dis

import (
	"fmt"
	"strings"
)

// Operand is a named argument of a decoded instruction. Operands that
// denote addresses are re-mapped through the symbol tables at render time;
// everything else formats as a plain number.
type Operand struct {
	value int64
	kind  operandKind
}

type operandKind int

const (
	opNum operandKind = iota
	opByte
	opWord
	opAddr
)

// Num is a plain signed number, formatted in decimal. Used for
// displacements and other non-address immediates.
func Num(v int) Operand {
	return Operand{value: int64(v), kind: opNum}
}

// Byte is an 8-bit immediate, formatted as $nn.
func Byte(v byte) Operand {
	return Operand{value: int64(v), kind: opByte}
}

// Word is a 16-bit immediate, formatted as $nnnn.
func Word(v uint16) Operand {
	return Operand{value: int64(v), kind: opWord}
}

// Loc is an address operand, eligible for symbol substitution.
func Loc(a Address) Operand {
	return Operand{value: int64(a), kind: opAddr}
}

// Resolver maps an address to a symbolic name. It reports false when no
// symbol is known and the operand should fall back to its numeric form.
type Resolver func(Address) (string, bool)

func (o Operand) format(resolve Resolver) string {
	switch o.kind {
	case opAddr:
		if resolve != nil {
			if name, ok := resolve(Address(o.value)); ok {
				return name
			}
		}
		return fmt.Sprintf("$%04x", uint32(o.value))
	case opWord:
		return fmt.Sprintf("$%04x", uint16(o.value))
	case opByte:
		return fmt.Sprintf("$%02x", uint8(o.value))
	default:
		return fmt.Sprintf("%d", o.value)
	}
}

// Args names the operands of an instruction.
type Args map[string]Operand

// Instruction is one decoded instruction. Text is a template with operand
// placeholders in braces, e.g. "JP {target}"; each placeholder is replaced
// by the like-named operand when the instruction is formatted. Opcode and
// Bytes are filled in by the engine when the instruction is accepted and
// immutable afterwards.
type Instruction struct {
	Text   string
	Args   Args
	Opcode []byte
	Bytes  []byte
}

// Format renders the instruction, substituting every operand placeholder.
// Address operands are resolved through resolve first; a nil resolver
// forces numeric form.
func (i Instruction) Format(resolve Resolver) string {
	if len(i.Args) == 0 {
		return i.Text
	}
	out := i.Text
	for name, op := range i.Args {
		out = strings.ReplaceAll(out, "{"+name+"}", op.format(resolve))
	}
	return out
}

func (i Instruction) String() string {
	return i.Format(nil)
}
