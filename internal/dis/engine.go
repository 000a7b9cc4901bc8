package dis

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// EntryName is the name given to the function entry seeded by Run.
const EntryName = "Main"

// Disassembler drives the fetch-decode loop: it owns the worklist of
// pending addresses, the map of decoded instructions and the accumulated
// symbol tables. Unknown opcodes and reads past the image end abort only
// the address that hit them; they are reported on the diagnostic logger
// and the run continues.
type Disassembler struct {
	image []byte
	table *Table
	log   *log.Logger

	// worklist is a LIFO stack. Successors of an instruction are pushed in
	// descending address order so lower addresses decode first, keeping
	// runs reproducible even though acceptance does not depend on order.
	worklist []Address

	// Disassembly holds exactly the successfully decoded addresses.
	Disassembly map[Address]Instruction

	// Symbols holds every function, label and reference discovered across
	// the run, including addresses that were never decoded.
	Symbols *Symbols
}

// New returns a disassembler over image using the given instruction table.
// A nil logger silences diagnostics.
func New(image []byte, table *Table, logger *log.Logger) *Disassembler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Disassembler{
		image:       image,
		table:       table,
		log:         logger,
		Disassembly: make(map[Address]Instruction),
		Symbols:     NewSymbols(),
	}
}

// Image returns the ROM image being disassembled.
func (d *Disassembler) Image() []byte {
	return d.image
}

// Run disassembles every address reachable from entry. The entry is
// recorded as a named function. Each address is decoded at most once; an
// address that fails is reported and permanently excluded.
func (d *Disassembler) Run(entry Address) {
	d.push(entry)
	d.Symbols.Functions.Add(entry, EntryName)

	for len(d.worklist) > 0 {
		pc := d.pop()
		if _, ok := d.Disassembly[pc]; ok {
			continue
		}
		d.decode(pc)
	}
}

// decode attempts to disassemble one instruction at pc, accumulating
// opcode bytes until the table reports a full match.
func (d *Disassembler) decode(pc Address) {
	ctx := NewContext(d.image, pc)

	for {
		b, err := ctx.PopByte()
		if err != nil {
			d.log.Warn("image ended mid-instruction",
				"address", hexAddr(pc), "consumed", fmt.Sprintf("%x", ctx.cursor.Consumed()))
			return
		}
		ctx.opcode = append(ctx.opcode, b)

		action, match := d.table.Lookup(ctx.opcode)
		switch match {
		case NeedsMoreBytes:
			continue

		case Unknown:
			d.log.Warn("unknown opcode",
				"address", hexAddr(pc), "bytes", fmt.Sprintf("%x", ctx.cursor.Consumed()))
			return

		case Found:
			var inst Instruction
			if action.fn != nil {
				inst, err = action.fn(ctx)
				if err != nil {
					d.log.Warn("decode failed",
						"address", hexAddr(pc), "opcode", fmt.Sprintf("%x", ctx.opcode), "err", err)
					return
				}
			} else {
				inst = Instruction{Text: action.text}
			}

			inst.Opcode = append([]byte(nil), ctx.opcode...)
			inst.Bytes = append([]byte(nil), ctx.cursor.Consumed()...)

			d.Disassembly[pc] = inst
			d.merge(ctx)
			return
		}
	}
}

// merge folds a finished context into the engine: its successors seed the
// worklist and its symbol discoveries join the run-wide tables.
func (d *Disassembler) merge(ctx *Context) {
	succ := ctx.Done()
	for i := len(succ) - 1; i >= 0; i-- {
		if _, ok := d.Disassembly[succ[i]]; !ok {
			d.push(succ[i])
		}
	}
	d.Symbols.merge(ctx)
}

func (d *Disassembler) push(a Address) {
	d.worklist = append(d.worklist, a)
}

func (d *Disassembler) pop() Address {
	a := d.worklist[len(d.worklist)-1]
	d.worklist = d.worklist[:len(d.worklist)-1]
	return a
}

func hexAddr(a Address) string {
	return fmt.Sprintf("$%04x", uint32(a))
}
