package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"romdis/internal/arch"
	"romdis/internal/dis"
)

func TestParseEntry(t *testing.T) {
	a, ok := arch.Lookup("sm83")
	if !ok {
		t.Fatal("sm83 architecture not registered")
	}

	tests := []struct {
		name    string
		flag    string
		want    dis.Address
		wantErr bool
	}{
		{name: "auto", flag: "auto", want: 0x100},
		{name: "empty defaults to auto", flag: "", want: 0x100},
		{name: "hex", flag: "0x150", want: 0x150},
		{name: "decimal", flag: "256", want: 0x100},
		{name: "octal", flag: "0o20", want: 0x10},
		{name: "garbage", flag: "start", wantErr: true},
		{name: "negative", flag: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEntry(tt.flag, a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseEntry(%q) error = %v, wantErr %v", tt.flag, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("parseEntry(%q) = %#x, want %#x", tt.flag, got, tt.want)
			}
		})
	}
}

func TestLoadSymbolsFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "romdis-symbols-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	symPath := filepath.Join(tmpDir, "game.sym")
	content := strings.Join([]string{
		"# map file comment",
		"",
		"0x0100 reset",
		"0x0150 _ZN4game4initEv",
		"not-an-address ignored",
		"0x0200",
		"0x0300 vblank trailing garbage",
	}, "\n")
	if err := os.WriteFile(symPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	d := dis.New([]byte{0x00}, dis.NewTable(), nil)
	if err := loadSymbolsFile(d, symPath); err != nil {
		t.Fatalf("loadSymbolsFile() error = %v", err)
	}

	funcs := d.Symbols.Functions
	if got := funcs.Len(); got != 3 {
		t.Fatalf("got %d functions, want 3", got)
	}
	if name, _ := funcs.Name(0x100); name != "reset" {
		t.Errorf("name at 0x100 = %q, want %q", name, "reset")
	}
	// Mangled C++ names come out readable.
	if name, _ := funcs.Name(0x150); name != "game::init()" {
		t.Errorf("name at 0x150 = %q, want %q", name, "game::init()")
	}
	if name, _ := funcs.Name(0x300); name != "vblank" {
		t.Errorf("name at 0x300 = %q, want %q", name, "vblank")
	}

	if err := loadSymbolsFile(d, filepath.Join(tmpDir, "missing.sym")); err == nil {
		t.Error("expected error for missing symbols file")
	}
}

func TestDisassembleROM(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "romdis-root-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	// NOP; JP $0005; data byte; RET at the jump target.
	rom := []byte{0x00, 0xc3, 0x05, 0x00, 0xff, 0xc9}
	romPath := filepath.Join(tmpDir, "tiny.gb")
	if err := os.WriteFile(romPath, rom, 0644); err != nil {
		t.Fatal(err)
	}

	// Merges persistent flags into Flags(), as Execute would.
	rootCmd.ParseFlags(nil)
	rootCmd.Flags().Set("arch", "sm83")
	rootCmd.Flags().Set("entrypoint", "0")
	defer rootCmd.Flags().Set("entrypoint", "auto")

	res, err := disassembleROM(rootCmd, romPath)
	if err != nil {
		t.Fatalf("disassembleROM() error = %v", err)
	}

	if got := len(res.Engine.Disassembly); got != 3 {
		t.Errorf("got %d decoded instructions, want 3", got)
	}
	if _, decoded := res.Engine.Disassembly[4]; decoded {
		t.Error("data byte at 4 should not be decoded")
	}
	if name, ok := res.Renderer.SymbolName(0); !ok || name != dis.EntryName {
		t.Errorf("entry symbol = %q, want %q", name, dis.EntryName)
	}
	if !res.Engine.Symbols.Labels.Has(5) {
		t.Error("jump target 5 should be labelled")
	}

	var sb strings.Builder
	if _, err := res.Renderer.WriteTo(&sb); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	listing := sb.String()
	for _, want := range []string{"JP .label_0005", ".db $ff", ".label_0005:"} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
}

func TestDisassembleROMErrors(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "romdis-root-err-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	romPath := filepath.Join(tmpDir, "tiny.gb")
	if err := os.WriteFile(romPath, []byte{0x00}, 0644); err != nil {
		t.Fatal(err)
	}

	rootCmd.ParseFlags(nil)

	tests := []struct {
		name    string
		arch    string
		entry   string
		romPath string
		errPart string
	}{
		{name: "missing rom", arch: "sm83", entry: "0", romPath: filepath.Join(tmpDir, "nope.gb"), errPart: "failed to read rom"},
		{name: "unknown arch", arch: "z9000", entry: "0", romPath: romPath, errPart: "unknown architecture"},
		{name: "bad entrypoint", arch: "sm83", entry: "bogus", romPath: romPath, errPart: "bad entrypoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.Flags().Set("arch", tt.arch)
			rootCmd.Flags().Set("entrypoint", tt.entry)
			defer rootCmd.Flags().Set("arch", "sm83")
			defer rootCmd.Flags().Set("entrypoint", "auto")

			_, err := disassembleROM(rootCmd, tt.romPath)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error %q does not mention %q", err, tt.errPart)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rom := []byte{0x00, 0xc3, 0x05, 0x00, 0xff, 0xc9}

	a, ok := arch.Lookup("sm83")
	if !ok {
		t.Fatal("sm83 architecture not registered")
	}
	table := dis.NewTable()
	if err := a.Register(table); err != nil {
		t.Fatal(err)
	}

	d := dis.New(rom, table, nil)
	d.Run(0)

	res := &result{
		ROMPath:  "tiny.gb",
		ROM:      rom,
		Arch:     a,
		Entry:    0,
		Engine:   d,
		Renderer: dis.NewRenderer(d),
	}

	var buf bytes.Buffer
	if err := writeJSON(&buf, res); err != nil {
		t.Fatalf("writeJSON() error = %v", err)
	}

	var out JSONOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if out.Arch != "sm83" {
		t.Errorf("arch = %q, want %q", out.Arch, "sm83")
	}
	if out.Entry != "0x0000" {
		t.Errorf("entry = %q, want %q", out.Entry, "0x0000")
	}
	if out.Instructions != 3 {
		t.Errorf("instructions = %d, want 3", out.Instructions)
	}
	if len(out.Functions) != 1 || !strings.HasSuffix(out.Functions[0], dis.EntryName) {
		t.Errorf("functions = %v, want single entry named %q", out.Functions, dis.EntryName)
	}
	if out.Labels != 1 {
		t.Errorf("labels = %d, want 1", out.Labels)
	}
	if len(out.Digest) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(out.Digest))
	}
}
