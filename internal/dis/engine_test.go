package dis

import (
	"reflect"
	"testing"
)

// testTable builds a small instruction set: NOP, an absolute jump, a call,
// a relative jump, a load that references memory, and a return.
func testTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable()

	regs := []struct {
		opcode uint64
		action Action
	}{
		{0x00, Text("NOP")},
		{0xc3, Decode(func(c *Context) (Instruction, error) {
			target, err := c.PopWordLE()
			if err != nil {
				return Instruction{}, err
			}
			return Instruction{
				Text: "JP {target}",
				Args: Args{"target": Loc(c.Jump(Address(target), 0, false))},
			}, nil
		})},
		{0xcd, Decode(func(c *Context) (Instruction, error) {
			target, err := c.PopWordLE()
			if err != nil {
				return Instruction{}, err
			}
			return Instruction{
				Text: "CALL {target}",
				Args: Args{"target": Loc(c.Call(Address(target), 0, false))},
			}, nil
		})},
		{0x18, Decode(func(c *Context) (Instruction, error) {
			off, err := c.PopSignedByte()
			if err != nil {
				return Instruction{}, err
			}
			return Instruction{
				Text: "JR {target}",
				Args: Args{"target": Loc(c.JumpRel(off, false))},
			}, nil
		})},
		{0xfa, Decode(func(c *Context) (Instruction, error) {
			addr, err := c.PopWordLE()
			if err != nil {
				return Instruction{}, err
			}
			return Instruction{
				Text: "LD A, ({addr})",
				Args: Args{"addr": Loc(c.Reference(Address(addr), 0))},
			}, nil
		})},
		{0xc9, Decode(func(c *Context) (Instruction, error) {
			return c.Return(Instruction{Text: "RET"}), nil
		})},
	}
	for _, r := range regs {
		if err := tbl.Register(r.opcode, r.action); err != nil {
			t.Fatalf("register %#02x: %v", r.opcode, err)
		}
	}
	return tbl
}

func decodedAddresses(d *Disassembler) []Address {
	addrs := make([]Address, 0, len(d.Disassembly))
	for a := range d.Disassembly {
		addrs = append(addrs, a)
	}
	sortAddresses(addrs)
	return addrs
}

func TestRunSpecScenario(t *testing.T) {
	// NOP; JP $0005; $ff unregistered at the jump target
	image := []byte{0x00, 0xc3, 0x05, 0x00, 0xff}
	d := New(image, testTable(t), nil)
	d.Run(0)

	if got, want := decodedAddresses(d), []Address{0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("decoded = %v, want %v", got, want)
	}
	if !d.Symbols.Labels.Has(5) {
		t.Error("jump target 5 not recorded as label")
	}
	if name, _ := d.Symbols.Functions.Name(0); name != EntryName {
		t.Errorf("entry name = %q, want %q", name, EntryName)
	}

	jp := d.Disassembly[1]
	if len(jp.Bytes) != 3 {
		t.Errorf("JP spans %d bytes, want 3", len(jp.Bytes))
	}
	if got := jp.Format(nil); got != "JP $0005" {
		t.Errorf("JP formats as %q", got)
	}
}

func TestRunIdempotent(t *testing.T) {
	image := []byte{0x00, 0xc3, 0x05, 0x00, 0xff, 0x00, 0xc9}
	run := func() map[Address]Instruction {
		d := New(image, testTable(t), nil)
		d.Run(0)
		return d.Disassembly
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("runs differ: %v vs %v", first, second)
	}
}

func TestRunCycleTerminates(t *testing.T) {
	// JP $0000 at 0: a tight loop must decode exactly once
	image := []byte{0xc3, 0x00, 0x00}
	d := New(image, testTable(t), nil)
	d.Run(0)

	if got := decodedAddresses(d); !reflect.DeepEqual(got, []Address{0}) {
		t.Errorf("decoded = %v, want [0]", got)
	}
}

func TestRunUnknownOpcodeIsolation(t *testing.T) {
	// the jump at address 1 lands on an unregistered opcode; the run
	// must finish with only the good addresses decoded
	image := []byte{
		0x00,             // 0: NOP
		0xc3, 0x05, 0x00, // 1: JP $0005
		0xff, // 4: unreachable
		0xff, // 5: unknown opcode, reported and skipped
	}
	d := New(image, testTable(t), nil)
	d.Run(0)

	if got, want := decodedAddresses(d), []Address{0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("decoded = %v, want %v", got, want)
	}
}

func TestRunOutOfBoundsIsolation(t *testing.T) {
	// the JP operand extends past the image end; the attempt aborts but
	// the earlier NOP survives
	image := []byte{0x00, 0xc3, 0x05}
	d := New(image, testTable(t), nil)
	d.Run(0)

	if got, want := decodedAddresses(d), []Address{0}; !reflect.DeepEqual(got, want) {
		t.Errorf("decoded = %v, want %v", got, want)
	}
}

func TestRunCallContinues(t *testing.T) {
	image := []byte{
		0xcd, 0x04, 0x00, // 0: CALL $0004
		0x00, // 3: NOP, reached by fallthrough
		0xc9, // 4: RET
	}
	d := New(image, testTable(t), nil)
	d.Run(0)

	if got, want := decodedAddresses(d), []Address{0, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("decoded = %v, want %v", got, want)
	}
	if !d.Symbols.Functions.Has(4) {
		t.Error("call target not recorded as function")
	}
}

func TestRunPrefixGrowth(t *testing.T) {
	tbl := testTable(t)
	if err := tbl.Register(0xcb, More); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tbl.Register(0xcb35, Text("SWAP L")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	image := []byte{0xcb, 0x35, 0xc9}
	d := New(image, tbl, nil)
	d.Run(0)

	// one two-byte instruction, not two one-byte ones
	swap, ok := d.Disassembly[0]
	if !ok {
		t.Fatal("no instruction at 0")
	}
	if len(swap.Bytes) != 2 {
		t.Errorf("SWAP spans %d bytes, want 2", len(swap.Bytes))
	}
	if _, ok := d.Disassembly[1]; ok {
		t.Error("second prefix byte decoded as its own instruction")
	}
	if _, ok := d.Disassembly[2]; !ok {
		t.Error("instruction after prefix opcode not decoded")
	}
}

func TestRunPrefixTruncatedAtImageEnd(t *testing.T) {
	tbl := testTable(t)
	if err := tbl.Register(0xcb, More); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// prefix byte is the last byte of the image; the attempt fails
	// without crashing the run
	image := []byte{0x00, 0xcb}
	d := New(image, tbl, nil)
	d.Run(0)

	if got, want := decodedAddresses(d), []Address{0}; !reflect.DeepEqual(got, want) {
		t.Errorf("decoded = %v, want %v", got, want)
	}
}

func TestRunReferenceDoesNotSeedWorklist(t *testing.T) {
	image := []byte{
		0xfa, 0x10, 0x00, // 0: LD A, ($0010)
		0xc9, // 3: RET
	}
	d := New(image, testTable(t), nil)
	d.Run(0)

	if _, ok := d.Disassembly[0x10]; ok {
		t.Error("data reference was decoded as code")
	}
	if !d.Symbols.References.Has(0x10) {
		t.Error("reference not recorded")
	}
}
