// Package cmd implements the romdis command line interface.
package cmd

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/ianlancetaylor/demangle"
	"github.com/spf13/cobra"

	"romdis/internal/arch"
	"romdis/internal/dis"
	"romdis/internal/logging"
	romdislog "romdis/internal/romdis/log"
	"romdis/internal/ui/colorize"

	_ "romdis/internal/arch/sm83" // bundled architectures register on import
)

// result bundles a finished run for the output paths.
type result struct {
	ROMPath  string
	ROM      []byte
	Arch     arch.Architecture
	Entry    dis.Address
	Engine   *dis.Disassembler
	Renderer *dis.Renderer
}

// JSONOutput is the machine-readable run summary used for regression
// testing.
type JSONOutput struct {
	Digest       string   `json:"digest"`
	Arch         string   `json:"arch"`
	Entry        string   `json:"entry"`
	Instructions int      `json:"instructions"`
	Functions    []string `json:"functions"`
	Labels       int      `json:"labels"`
	References   int      `json:"references"`
}

var rootCmd = &cobra.Command{
	Use:   "romdis [rom]",
	Short: "Control-flow tracing ROM disassembler",
	Long: `Romdis disassembles a ROM image by following control flow from an entry
address, labelling jump targets, call targets and data references, and
emitting a listing that covers every byte of the image.`,
	Example: `
# Browse a cartridge interactively
romdis game.gb

# Write the listing to a file, entry point taken from the architecture
romdis -o game.asm game.gb

# Explicit entry address and custom line format
romdis -e 0x150 -f "{address}: {disassembly_text}" game.gb
  `,
	Args: cobra.ExactArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		romdislog.Setup(debug)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
		if cpuprofile != "" {
			f, err := os.Create(cpuprofile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %v", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %v", err)
			}
			defer pprof.StopCPUProfile()
		}

		memprofile, _ := cmd.Flags().GetString("memprofile")
		if memprofile != "" {
			defer func() {
				f, err := os.Create(memprofile)
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
					return
				}
				defer f.Close()
				if err := pprof.WriteHeapProfile(f); err != nil {
					fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
				}
			}()
		}

		res, err := disassembleROM(cmd, args[0])
		if err != nil {
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return writeJSON(os.Stdout, res)
		}

		output, _ := cmd.Flags().GetString("output")
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %v", err)
			}
			defer f.Close()
			_, err = res.Renderer.WriteTo(f)
			return err
		}

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		if noTUI || !term.IsTerminal(os.Stdout.Fd()) {
			return writeListing(os.Stdout, res)
		}

		return runTUI(res)
	},
}

// disassembleROM loads the image, builds the architecture's instruction
// table and runs the engine. Shared by the root and report commands.
func disassembleROM(cmd *cobra.Command, romPath string) (*result, error) {
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rom: %v", err)
	}

	archName, _ := cmd.Flags().GetString("arch")
	a, ok := arch.Lookup(archName)
	if !ok {
		return nil, fmt.Errorf("unknown architecture %q (available: %s)",
			archName, strings.Join(arch.Names(), ", "))
	}

	table := dis.NewTable()
	if err := a.Register(table); err != nil {
		// a duplicate registration is a plugin bug; abort before running
		return nil, fmt.Errorf("architecture setup failed: %v", err)
	}

	entryFlag, _ := cmd.Flags().GetString("entrypoint")
	entry, err := parseEntry(entryFlag, a)
	if err != nil {
		return nil, err
	}

	lg := logging.NewLogger()
	lg.Info("rom loaded", "path", romPath, "size_kb", len(rom)/1024)

	d := dis.New(rom, table, lg.Logger)
	d.Run(entry)

	symPath, _ := cmd.Flags().GetString("symbols")
	if symPath != "" {
		if err := loadSymbolsFile(d, symPath); err != nil {
			return nil, err
		}
	}

	r := dis.NewRenderer(d)
	if format, _ := cmd.Flags().GetString("format"); format != "" {
		r.Format = format
	}
	if dataFormat, _ := cmd.Flags().GetString("data-format"); dataFormat != "" {
		r.DataFormat = dataFormat
	}

	return &result{
		ROMPath:  romPath,
		ROM:      rom,
		Arch:     a,
		Entry:    entry,
		Engine:   d,
		Renderer: r,
	}, nil
}

// parseEntry resolves the entrypoint flag: "auto" means the architecture's
// conventional entry, anything else is a decimal or 0x-prefixed address.
func parseEntry(s string, a arch.Architecture) (dis.Address, error) {
	if s == "" || s == "auto" {
		return a.DefaultEntry(), nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad entrypoint %q: %v", s, err)
	}
	return dis.Address(v), nil
}

// loadSymbolsFile merges user-provided names into the function table.
// Lines are "address name"; names pass through the demangler so map files
// from C/C++ toolchains read naturally. Loaded after the run so user
// names win over discovered ones.
func loadSymbolsFile(d *dis.Disassembler, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read symbols file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		addr, err := strconv.ParseUint(fields[0], 0, 32)
		if err != nil {
			continue
		}
		name := fields[1]
		if dem := demangle.Filter(name); dem != "" {
			name = dem
		}
		d.Symbols.Functions.Add(dis.Address(addr), name)
	}
	return scanner.Err()
}

// writeListing writes the rendered listing, colorized when the writer is
// the terminal.
func writeListing(w *os.File, res *result) error {
	var sb strings.Builder
	if _, err := res.Renderer.WriteTo(&sb); err != nil {
		return err
	}
	text := sb.String()

	if term.IsTerminal(w.Fd()) {
		colored, err := colorize.Listing(text)
		if err == nil {
			text = colored
		}
	}
	_, err := io.WriteString(w, text)
	return err
}

func writeJSON(w io.Writer, res *result) error {
	out := JSONOutput{
		Digest:       fmt.Sprintf("%x", sha256.Sum256(res.ROM)),
		Arch:         res.Arch.Name(),
		Entry:        fmt.Sprintf("0x%04x", uint32(res.Entry)),
		Instructions: len(res.Engine.Disassembly),
		Labels:       res.Engine.Symbols.Labels.Len(),
		References:   res.Engine.Symbols.References.Len(),
	}
	for _, addr := range res.Engine.Symbols.Functions.Addresses() {
		name, ok := res.Renderer.SymbolName(addr)
		if !ok {
			continue
		}
		out.Functions = append(out.Functions, fmt.Sprintf("%04x %s", uint32(addr), name))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func init() {
	rootCmd.PersistentFlags().StringP("arch", "a", "sm83", "Target architecture")
	rootCmd.PersistentFlags().StringP("entrypoint", "e", "auto", "Entry address (auto = architecture default)")
	rootCmd.PersistentFlags().String("symbols", "", "Symbols file with \"address name\" lines")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")

	rootCmd.Flags().BoolP("no-tui", "n", false, "Write the listing without the TUI")
	rootCmd.Flags().BoolP("json", "j", false, "Output a run summary as JSON")
	rootCmd.Flags().StringP("output", "o", "", "Write the listing to a file")
	rootCmd.Flags().StringP("format", "f", "", "Instruction line template")
	rootCmd.Flags().String("data-format", "", "Data byte line template")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")
}

// Execute runs the CLI. Fang adds styled help and errors; it is bypassed
// when the user asks for plain output or stdout is piped.
func Execute() {
	noTUI := false
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" || arg == "--json" || arg == "-j" {
			noTUI = true
			break
		}
	}

	if !noTUI && !term.IsTerminal(os.Stdout.Fd()) {
		noTUI = true
	}

	if noTUI {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
	} else {
		if err := fang.Execute(
			context.Background(),
			rootCmd,
			fang.WithNotifySignal(os.Interrupt),
		); err != nil {
			os.Exit(1)
		}
	}
}
