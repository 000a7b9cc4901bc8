package dis

// Context carries the mutable state of a single decode attempt. It wraps a
// Cursor and records the control-flow and data edges a decode action
// discovers: jump targets, call targets and referenced addresses. A context
// lives for exactly one instruction; the engine folds its state into the
// run-wide tables once the instruction is accepted.
type Context struct {
	cursor *Cursor

	// opcode is the prefix of the consumed bytes used for table lookup.
	// Appended to by the engine's accumulation loop, never by actions.
	opcode []byte

	// continues is true while execution can fall through to the byte after
	// this instruction. An unconditional jump, halt or return clears it.
	continues bool

	jumps      map[Address]struct{}
	functions  map[Address]string
	labels     map[Address]string
	references map[Address]string
}

// NewContext opens a decode attempt at origin.
func NewContext(image []byte, origin Address) *Context {
	return &Context{
		cursor:     NewCursor(image, origin),
		continues:  true,
		jumps:      make(map[Address]struct{}),
		functions:  make(map[Address]string),
		labels:     make(map[Address]string),
		references: make(map[Address]string),
	}
}

// Origin returns the address at which this instruction begins.
func (c *Context) Origin() Address {
	return c.cursor.Origin()
}

// Position returns the address immediately after the bytes popped so far.
func (c *Context) Position() Address {
	return c.cursor.Position()
}

// Opcode returns the opcode bytes accumulated so far. Range-registered
// actions use it to recover which opcode of the range was hit.
func (c *Context) Opcode() []byte {
	return c.opcode
}

// PopByte pops the next byte of the instruction.
func (c *Context) PopByte() (byte, error) {
	return c.cursor.PopByte()
}

// PopSignedByte pops the next byte as a signed displacement.
func (c *Context) PopSignedByte() (int, error) {
	return c.cursor.PopSignedByte()
}

// PopWordLE pops a little-endian word.
func (c *Context) PopWordLE() (uint16, error) {
	return c.cursor.PopWordLE()
}

// PopWordBE pops a big-endian word.
func (c *Context) PopWordBE() (uint16, error) {
	return c.cursor.PopWordBE()
}

// Reference records addr+offset as a data access and returns the resolved
// address. A reference never affects fall-through.
func (c *Context) Reference(addr Address, offset int) Address {
	addr = Address(int(addr) + offset)
	if _, ok := c.references[addr]; !ok {
		c.references[addr] = ""
	}
	return addr
}

// Call records addr+offset as a call target: the address becomes both a
// successor and a function entry. Fall-through is untouched because a call
// returns; conditional is accepted for symmetry with Jump but has no
// further effect.
func (c *Context) Call(addr Address, offset int, conditional bool) Address {
	_ = conditional
	addr = Address(int(addr) + offset)
	c.jumps[addr] = struct{}{}
	if _, ok := c.functions[addr]; !ok {
		c.functions[addr] = ""
	}
	return addr
}

// CallRel is Call with the current cursor position as the target base,
// which is the address immediately following the instruction's operand
// bytes. Relative-call opcodes pop their displacement first and pass it as
// offset.
func (c *Context) CallRel(offset int, conditional bool) Address {
	return c.Call(c.cursor.Position(), offset, conditional)
}

// Jump records addr+offset as a jump target: the address becomes both a
// successor and a label. An unconditional jump terminates fall-through; a
// conditional one preserves it.
func (c *Context) Jump(addr Address, offset int, conditional bool) Address {
	addr = Address(int(addr) + offset)
	c.jumps[addr] = struct{}{}
	if _, ok := c.labels[addr]; !ok {
		c.labels[addr] = ""
	}
	c.continues = conditional
	return addr
}

// JumpRel is Jump with the current cursor position as the target base. The
// displacement of a relative jump is relative to the address after the
// whole instruction, so actions pop it before calling JumpRel.
func (c *Context) JumpRel(offset int, conditional bool) Address {
	return c.Jump(c.cursor.Position(), offset, conditional)
}

// Halt marks the instruction as terminal and passes inst through unchanged,
// so a decode action can end with `return c.Halt(inst), nil`.
func (c *Context) Halt(inst Instruction) Instruction {
	c.continues = false
	return inst
}

// Return marks the instruction as a return and passes inst through
// unchanged. Identical in effect to Halt; the distinct name keeps decode
// actions readable.
func (c *Context) Return(inst Instruction) Instruction {
	c.continues = false
	return inst
}

// Done returns the successor addresses of the finished instruction: every
// recorded jump target plus, while fall-through holds, the address after
// the instruction. The result is sorted so traversal stays deterministic.
func (c *Context) Done() []Address {
	succ := make([]Address, 0, len(c.jumps)+1)
	for a := range c.jumps {
		succ = append(succ, a)
	}
	if c.continues {
		if _, ok := c.jumps[c.cursor.Position()]; !ok {
			succ = append(succ, c.cursor.Position())
		}
	}
	sortAddresses(succ)
	return succ
}
