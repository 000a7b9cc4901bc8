package cmd

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"romdis/internal/dis"
	"romdis/internal/romdis/styles"
)

var reportCmd = &cobra.Command{
	Use:   "report [rom]",
	Short: "Summarise a disassembly run",
	Long: `Report disassembles the ROM and prints a run summary: image digest,
code coverage, and the discovered function, label and reference tables.
The summary is rendered as styled markdown on a terminal and as plain
markdown when piped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := disassembleROM(cmd, args[0])
		if err != nil {
			return err
		}

		md := buildReport(res)

		if term.IsTerminal(os.Stdout.Fd()) {
			renderer := styles.GetMarkdownRenderer(readTerminalWidth())
			rendered, err := renderer.Render(md)
			if err == nil {
				fmt.Print(rendered)
				return nil
			}
		}
		fmt.Print(md)
		return nil
	},
}

func readTerminalWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w - 2
	}
	return 78
}

// buildReport assembles the run summary as markdown.
func buildReport(res *result) string {
	d := res.Engine

	codeBytes := 0
	for _, inst := range d.Disassembly {
		codeBytes += len(inst.Bytes)
	}
	coverage := 0.0
	if len(res.ROM) > 0 {
		coverage = float64(codeBytes) / float64(len(res.ROM)) * 100
	}

	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", filepath.Base(res.ROMPath))
	fmt.Fprintf(&md, "- Architecture: **%s**\n", res.Arch.Name())
	fmt.Fprintf(&md, "- Entry: `$%04x`\n", uint32(res.Entry))
	fmt.Fprintf(&md, "- Image: %d bytes\n", len(res.ROM))
	fmt.Fprintf(&md, "- SHA-256: `%x`\n", sha256.Sum256(res.ROM))
	fmt.Fprintf(&md, "\n## Coverage\n\n")
	fmt.Fprintf(&md, "%d instructions covering %d bytes (%.1f%% of the image)\n",
		len(d.Disassembly), codeBytes, coverage)

	writeSymbolSection(&md, res, "Functions", d.Symbols.Functions)
	writeSymbolSection(&md, res, "Labels", d.Symbols.Labels)
	writeSymbolSection(&md, res, "References", d.Symbols.References)

	return md.String()
}

func writeSymbolSection(md *strings.Builder, res *result, title string, table *dis.SymbolTable) {
	if table.Len() == 0 {
		return
	}
	fmt.Fprintf(md, "\n## %s (%d)\n\n", title, table.Len())
	for _, addr := range table.Addresses() {
		name, _ := res.Renderer.SymbolName(addr)
		decoded := ""
		if _, ok := res.Engine.Disassembly[addr]; !ok && int(addr) < len(res.ROM) {
			decoded = " *(not decoded)*"
		}
		fmt.Fprintf(md, "- `$%04x` %s%s\n", uint32(addr), name, decoded)
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
