package dis

import (
	"fmt"
	"strings"
	"testing"
)

func renderScenario(t *testing.T) *Renderer {
	t.Helper()
	image := []byte{0x00, 0xc3, 0x05, 0x00, 0xff}
	d := New(image, testTable(t), nil)
	d.Run(0)
	return NewRenderer(d)
}

func TestListingCoverage(t *testing.T) {
	r := renderScenario(t)
	image := r.dis.Image()

	// every byte of the image must be covered exactly once: decoded
	// instructions span their byte length, everything else is one data
	// byte per line
	covered := 0
	for _, line := range r.Listing() {
		switch {
		case line == "" || strings.HasSuffix(line, ":"):
			// symbol header
		case strings.Contains(line, ".db"):
			covered++
		default:
			addr := parseListingAddress(t, line)
			covered += len(r.dis.Disassembly[addr].Bytes)
		}
	}
	if covered != len(image) {
		t.Errorf("covered %d bytes, image has %d", covered, len(image))
	}
}

func parseListingAddress(t *testing.T, line string) Address {
	t.Helper()
	var addr uint32
	if _, err := fmt.Sscanf(strings.TrimSpace(line), "%08x:", &addr); err != nil {
		t.Fatalf("unparseable listing line %q: %v", line, err)
	}
	return Address(addr)
}

func TestListingSymbolHeaders(t *testing.T) {
	image := []byte{
		0xc3, 0x04, 0x00, // 0: JP $0004
		0xff, // 3: unreached data
		0x00, // 4: NOP
	}
	d := New(image, testTable(t), nil)
	d.Run(0)
	r := NewRenderer(d)
	listing := strings.Join(r.Listing(), "\n")

	if !strings.Contains(listing, "Main:") {
		t.Error("entry function header missing")
	}
	if !strings.Contains(listing, ".label_0004:") {
		t.Error("synthesised label header missing")
	}
}

func TestListingSymbolSubstitution(t *testing.T) {
	r := renderScenario(t)
	listing := strings.Join(r.Listing(), "\n")

	// the JP operand must print as the label name, not the raw address
	if !strings.Contains(listing, "JP .label_0005") {
		t.Errorf("jump target not substituted:\n%s", listing)
	}
}

func TestListingUndecodedBytes(t *testing.T) {
	r := renderScenario(t)
	listing := strings.Join(r.Listing(), "\n")

	// address 5 is out of image range, address 4 is unreached data
	if !strings.Contains(listing, ".db $ff") {
		t.Errorf("unreached byte not emitted as data:\n%s", listing)
	}
}

func TestSymbolPrecedence(t *testing.T) {
	image := []byte{0x00}
	d := New(image, testTable(t), nil)
	d.Run(0)
	d.Symbols.Labels.Add(0x20, "")
	d.Symbols.References.Add(0x20, "")
	d.Symbols.References.Add(0x30, "")

	r := NewRenderer(d)

	tests := []struct {
		addr Address
		want string
	}{
		{0x00, "Main"},          // function beats everything
		{0x20, ".label_0020"},   // label beats reference
		{0x30, "ref_0030"},      // reference only
	}

	for _, tt := range tests {
		got, ok := r.SymbolName(tt.addr)
		if !ok || got != tt.want {
			t.Errorf("SymbolName(%#04x) = %q/%v, want %q", tt.addr, got, ok, tt.want)
		}
	}

	if _, ok := r.SymbolName(0x40); ok {
		t.Error("unknown address resolved to a symbol")
	}
}

func TestCustomFormats(t *testing.T) {
	r := renderScenario(t)
	r.Format = "{address} {opcode_bytes} {disassembly_text}"
	r.DataFormat = "{address} raw {byte_value}"

	listing := strings.Join(r.Listing(), "\n")
	if !strings.Contains(listing, "00000000 00 NOP") {
		t.Errorf("custom instruction format not applied:\n%s", listing)
	}
	if !strings.Contains(listing, "00000004 raw ff") {
		t.Errorf("custom data format not applied:\n%s", listing)
	}
}
