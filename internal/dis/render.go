package dis

import (
	"fmt"
	"io"
	"strings"
)

// Default line templates. Recognised fields for instruction lines are
// {address}, {opcode_bytes}, {raw_bytes} and {disassembly_text}; data
// lines recognise {address} and {byte_value}.
const (
	DefaultFormat     = "{address}: ({raw_bytes}) {disassembly_text}"
	DefaultDataFormat = "{address}: .db ${byte_value}"
)

// Renderer turns a finished disassembly into an ordered listing covering
// the whole image: every byte appears exactly once, either inside one
// decoded instruction or as a standalone data byte. Addresses carrying
// symbols get a header line; instruction operands that denote addresses
// print as symbolic names.
type Renderer struct {
	// Format is the per-instruction line template.
	Format string
	// DataFormat is the template for undecoded single-byte spans.
	DataFormat string

	dis *Disassembler
}

// NewRenderer returns a renderer over a finished run, using the default
// templates.
func NewRenderer(d *Disassembler) *Renderer {
	return &Renderer{
		Format:     DefaultFormat,
		DataFormat: DefaultDataFormat,
		dis:        d,
	}
}

// SymbolName resolves addr through the symbol tables with precedence
// function > label > reference, synthesising a name when the address is
// known but unnamed. It reports false for addresses with no symbol at all.
func (r *Renderer) SymbolName(addr Address) (string, bool) {
	syms := r.dis.Symbols
	if name, ok := syms.Functions.Name(addr); ok {
		if name == "" {
			name = fmt.Sprintf("function_%04x", uint32(addr))
		}
		return name, true
	}
	if name, ok := syms.Labels.Name(addr); ok {
		if name == "" {
			name = fmt.Sprintf(".label_%04x", uint32(addr))
		}
		return name, true
	}
	if name, ok := syms.References.Name(addr); ok {
		if name == "" {
			name = fmt.Sprintf("ref_%04x", uint32(addr))
		}
		return name, true
	}
	return "", false
}

// Listing renders the full image as an ordered sequence of lines.
func (r *Renderer) Listing() []string {
	image := r.dis.Image()
	var lines []string

	for addr := Address(0); int(addr) < len(image); {
		if name, ok := r.SymbolName(addr); ok {
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, name+":")
		}

		inst, ok := r.dis.Disassembly[addr]
		if !ok {
			lines = append(lines, "\t"+r.expandData(addr, image[addr]))
			addr++
			continue
		}
		lines = append(lines, "\t"+r.expandInst(addr, inst))
		addr += Address(len(inst.Bytes))
	}
	return lines
}

// WriteTo writes the listing, one line per row.
func (r *Renderer) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, line := range r.Listing() {
		written, err := fmt.Fprintln(w, line)
		n += int64(written)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (r *Renderer) expandInst(addr Address, inst Instruction) string {
	repl := strings.NewReplacer(
		"{address}", fmt.Sprintf("%08x", uint32(addr)),
		"{opcode_bytes}", fmt.Sprintf("%x", inst.Opcode),
		"{raw_bytes}", fmt.Sprintf("%8x", inst.Bytes),
		"{disassembly_text}", inst.Format(r.SymbolName),
	)
	return repl.Replace(r.Format)
}

func (r *Renderer) expandData(addr Address, value byte) string {
	repl := strings.NewReplacer(
		"{address}", fmt.Sprintf("%08x", uint32(addr)),
		"{byte_value}", fmt.Sprintf("%02x", value),
	)
	return repl.Replace(r.DataFormat)
}
