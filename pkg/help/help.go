// Package help renders the command reference of the insight shell.
//
// Commands are grouped by category and listed with aligned columns, a
// short description and up to two inline examples:
//
//	renderer := help.NewRenderer(os.Stdout)
//	renderer.RenderFull()            // every category
//	renderer.RenderCommand("set")    // one command with all examples
//
// Column widths are measured in terminal cells, so tokens containing wide
// characters still line up.
package help

import "io"

// Box drawing characters.
const (
	BoxTopLeft     = "╭"
	BoxTopRight    = "╮"
	BoxBottomLeft  = "╰"
	BoxBottomRight = "╯"
	BoxHorizontal  = "─"
	BoxVertical    = "│"
	BoxTeeLeft     = "├"
	BoxTeeRight    = "┤"
)

// ANSI color codes for styled output.
const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorGray   = "\033[90m"
)

// Renderer formats and writes help output.
type Renderer struct {
	w io.Writer
}

// NewRenderer creates a new help renderer that writes to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}
