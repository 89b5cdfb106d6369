package theme

import (
	"fmt"

	"github.com/alecthomas/chroma/v2"
)

// chromaTokens maps palette slots onto chroma token types.
var chromaTokens = []struct {
	slot  string
	token chroma.TokenType
}{
	{"foreground", chroma.Text},
	{"syntax.comment", chroma.Comment},
	{"syntax.keyword", chroma.Keyword},
	{"syntax.string", chroma.LiteralString},
	{"syntax.number", chroma.LiteralNumber},
	{"syntax.constant", chroma.NameConstant},
	{"syntax.function", chroma.NameFunction},
	{"syntax.type", chroma.KeywordType},
	{"syntax.variable", chroma.NameVariable},
	{"syntax.operator", chroma.Operator},
	{"syntax.tag", chroma.NameTag},
	{"syntax.attribute", chroma.NameAttribute},
	{"syntax.property", chroma.NameProperty},
	{"diagnostic.error", chroma.Error},
}

// ChromaStyle builds a chroma style from the palette so highlighters
// render with the resolved theme. Alpha is dropped; chroma colors are
// opaque.
func ChromaStyle(name string, p *Palette) (*chroma.Style, error) {
	entries := chroma.StyleEntries{}

	if bg, ok := p.Color(BackgroundSlot); ok {
		entry := "bg:" + opaqueHex(bg)
		if fg, ok := p.Color("foreground"); ok {
			entry = opaqueHex(fg) + " " + entry
		}
		entries[chroma.Background] = entry
	}

	for _, m := range chromaTokens {
		if c, ok := p.Color(m.slot); ok {
			entries[m.token] = opaqueHex(c)
		}
	}
	if c, ok := p.Color("syntax.comment"); ok {
		entries[chroma.Comment] = "italic " + opaqueHex(c)
	}

	style, err := chroma.NewStyle(name, entries)
	if err != nil {
		return nil, fmt.Errorf("build chroma style %q: %w", name, err)
	}
	return style, nil
}

func opaqueHex(c Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
