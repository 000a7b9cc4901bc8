// Package colorize applies terminal syntax highlighting to assembly
// listings. Highlighting degrades to plain text when no suitable lexer is
// available or when ROMDIS_NO_COLOR is set.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// getAssemblyLexer returns a lexer that copes with retro-style assembly
// listings, trying the closest dialects first.
func getAssemblyLexer() chroma.Lexer {
	candidates := []string{"nasm", "tasm", "gas"}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getListingStyle returns the listing style with fallbacks.
func getListingStyle() *chroma.Style {
	candidates := []string{"romdis-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns the best available terminal formatter.
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Listing highlights a full assembly listing. The input is returned
// unchanged when colors are disabled or tokenisation fails.
func Listing(code string) (string, error) {
	if os.Getenv("ROMDIS_NO_COLOR") != "" {
		return code, nil
	}

	lexer := getAssemblyLexer()
	if lexer == nil {
		return code, nil
	}

	style := getListingStyle()
	formatter := getTerminalFormatter()

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code, err
	}

	return buf.String(), nil
}
