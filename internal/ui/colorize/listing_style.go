package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

func init() {
	// register the listing style on package initialization
	_ = RomdisDark
}

// RomdisDark is the listing color scheme: white mnemonics, teal
// registers, pink numbers, gold labels.
var RomdisDark = styles.Register(chroma.MustNewStyle("romdis-dark", chroma.StyleEntries{
	chroma.Text:       "#EEEEEE",
	chroma.Background: "bg:#1e1e1e",
	chroma.Comment:    "#6E6E6E",

	chroma.Keyword:       "#EEEEEE",
	chroma.KeywordPseudo: "#EEEEEE",
	chroma.Name:          "#7C9C9D",
	chroma.NameBuiltin:   "#7C9C9D",
	chroma.NameVariable:  "#7C9C9D",

	chroma.LiteralNumber:        "#FF5F87",
	chroma.LiteralNumberHex:     "#FF5F87",
	chroma.LiteralNumberBin:     "#FF5F87",
	chroma.LiteralNumberInteger: "#FF5F87",

	chroma.NameLabel:    "#FFD700",
	chroma.NameFunction: "#EEEEEE",

	chroma.Operator:    "#EEEEEE",
	chroma.Punctuation: "#EEEEEE",

	chroma.String: "#EACD53",
}))
