package help

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

var ansiPattern = regexp.MustCompile("\033\\[[0-9;]*m")

// StripANSI removes color escape sequences.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// Width returns the number of terminal cells s occupies, ignoring color
// codes. East Asian wide runes count as two cells.
func Width(s string) int {
	return runewidth.StringWidth(StripANSI(s))
}

// PadRight pads s with spaces to width cells.
func PadRight(s string, width int) string {
	if w := Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// PadLeft pads s with spaces on the left to width cells.
func PadLeft(s string, width int) string {
	if w := Width(s); w < width {
		return strings.Repeat(" ", width-w) + s
	}
	return s
}

// Truncate shortens plain text to width cells, ending with "…" when cut.
func Truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

// Box draws a rounded frame with a fixed inner width.
type Box struct {
	Width int
}

// NewBox creates a Box with the given inner width.
func NewBox(width int) *Box {
	return &Box{Width: width}
}

// Top returns ╭───╮.
func (b *Box) Top() string {
	return BoxTopLeft + strings.Repeat(BoxHorizontal, b.Width) + BoxTopRight
}

// Mid returns ├───┤.
func (b *Box) Mid() string {
	return BoxTeeLeft + strings.Repeat(BoxHorizontal, b.Width) + BoxTeeRight
}

// Bottom returns ╰───╯.
func (b *Box) Bottom() string {
	return BoxBottomLeft + strings.Repeat(BoxHorizontal, b.Width) + BoxBottomRight
}

// Row returns │content   │, truncating plain content that does not fit.
func (b *Box) Row(content string) string {
	if Width(content) > b.Width {
		content = Truncate(StripANSI(content), b.Width)
	}
	return BoxVertical + PadRight(content, b.Width) + BoxVertical
}

// RowCenter returns a row with content centered.
func (b *Box) RowCenter(content string) string {
	if Width(content) > b.Width {
		return b.Row(content)
	}
	left := (b.Width - Width(content)) / 2
	return b.Row(strings.Repeat(" ", left) + content)
}
