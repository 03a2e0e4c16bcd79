package board

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Color is an index into the fixed 16 colour palette.
type Color int

const (
	Black Color = iota
	Gray
	Silver
	White
	Maroon
	Red
	Olive
	Yellow
	Green
	Lime
	Teal
	Aqua
	Navy
	Blue
	Purple
	Fuchsia

	numColors
)

// DefaultColor is the colour of a tile nobody has claimed yet.
const DefaultColor = White

var palette = [numColors]struct {
	name string
	rgb  string
}{
	{"BLACK", "000000"},
	{"GRAY", "808080"},
	{"SILVER", "C0C0C0"},
	{"WHITE", "FFFFFF"},
	{"MAROON", "800000"},
	{"RED", "FF0000"},
	{"OLIVE", "808000"},
	{"YELLOW", "FFFF00"},
	{"GREEN", "008000"},
	{"LIME", "00FF00"},
	{"TEAL", "008080"},
	{"AQUA", "00FFFF"},
	{"NAVY", "000080"},
	{"BLUE", "0000FF"},
	{"PURPLE", "800080"},
	{"FUCHSIA", "FF00FF"},
}

// ErrUnknownColor is returned by ParseColor for names and indices outside the palette.
var ErrUnknownColor = errors.New("unknown color")

// Colors returns the palette in index order.
func Colors() []Color {
	colors := make([]Color, numColors)
	for i := range colors {
		colors[i] = Color(i)
	}
	return colors
}

func (c Color) Valid() bool {
	return c >= 0 && c < numColors
}

func (c Color) String() string {
	if !c.Valid() {
		return "Color(" + strconv.Itoa(int(c)) + ")"
	}
	return palette[c].name
}

// RGB returns the colour as a six digit hex string.
func (c Color) RGB() string {
	if !c.Valid() {
		return ""
	}
	return palette[c].rgb
}

// Hex returns the single hex digit naming the palette index.
func (c Color) Hex() string {
	return strconv.FormatInt(int64(c), 16)
}

// ParseColor accepts a palette index ("5") or a colour name ("red").
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		c := Color(n)
		if !c.Valid() {
			return 0, errors.Wrapf(ErrUnknownColor, "index %d", n)
		}
		return c, nil
	}
	for i, p := range palette {
		if strings.EqualFold(p.name, s) {
			return Color(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownColor, "name %q", s)
}
