package model

import (
	"fmt"
	"math"
	"strings"
)

// Color is the group identifier of an ortholog group. It doubles as the
// fill colour used when drawing the gene.
type Color string

const (
	// ColorUnset marks a gene that has not been grouped yet.
	ColorUnset Color = ""
	// ColorBasic is the display default (DarkRed); it counts as unset.
	ColorBasic Color = "#8B0000"
	// ColorSequenceMissing marks genes without a protein sequence.
	ColorSequenceMissing Color = "#FF0000"
)

func (c Color) IsUnset() bool {
	return c == ColorUnset || c == ColorBasic
}

func (c Color) IsMissing() bool {
	return c == ColorSequenceMissing
}

// Palette is the ordered list of group identifiers handed out by the grouping.
type Palette []Color

// Colours of the ten Brachypodium distachyon dehydrins, in the order the
// reference genes are stored (Bdhn10, Bdhn3, Bdhn9, ...).
var dehydrinPalette = Palette{
	"#66FFFF", // Bdhn10
	"#FFCCFF", // Bdhn3
	"#9AFED6", // Bdhn9
	"#99FF99", // Bdhn8
	"#CCFF99", // Bdhn7
	"#CCCCFF", // Bdhn2
	"#FFFF99", // Bdhn6
	"#FFCCCC", // Bdhn4
	"#FFCC99", // Bdhn5
	"#66CCFF", // Bdhn1
}

// DehydrinCodes labels the reference genes with their dehydrin number.
var DehydrinCodes = []string{"Bdhn10", "Bdhn3", "Bdhn9", "Bdhn8", "Bdhn7", "Bdhn2", "Bdhn6", "Bdhn4", "Bdhn5", "Bdhn1"}

func DefaultPalette() Palette {
	p := make(Palette, len(dehydrinPalette))
	copy(p, dehydrinPalette)
	return p
}

// At returns the i-th identifier. Past the end of the palette, distinct
// pastel colours are generated deterministically.
func (p Palette) At(i int) Color {
	if i < len(p) {
		return p[i]
	}
	for k := 0; ; k++ {
		hue := math.Mod(float64(i+k*len(p))*137.508, 360)
		c := hslToHex(hue, 0.65, 0.75)
		if !p.contains(c) && c != ColorBasic && c != ColorSequenceMissing {
			return c
		}
	}
}

func (p Palette) contains(c Color) bool {
	for _, x := range p {
		if strings.EqualFold(string(x), string(c)) {
			return true
		}
	}
	return false
}

// ParsePalette reads a comma separated list of #RRGGBB colours.
func ParsePalette(s string) (Palette, error) {
	var p Palette
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if !isHexColor(field) {
			return nil, fmt.Errorf("invalid palette colour %q", field)
		}
		c := Color(strings.ToUpper(field))
		if c == ColorBasic || c == ColorSequenceMissing {
			return nil, fmt.Errorf("palette colour %s is reserved", c)
		}
		if p.contains(c) {
			return nil, fmt.Errorf("duplicate palette colour %s", c)
		}
		p = append(p, c)
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("empty palette")
	}
	return p, nil
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func hslToHex(h, s, l float64) Color {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	to8 := func(v float64) int { return int(math.Round((v + m) * 255)) }
	return Color(fmt.Sprintf("#%02X%02X%02X", to8(r), to8(g), to8(b)))
}
