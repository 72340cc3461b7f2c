package help

import (
	"fmt"
	"strings"
)

const (
	// commandColumnWidth fits "/help (or /h)" with room to spare.
	commandColumnWidth = 20

	indentCategory = "  "
	indentCommand  = "    "
	indentExample  = "      "

	maxInlineExamples = 2
)

// RenderFull renders every category followed by the shortcuts section.
func (r *Renderer) RenderFull() {
	r.writeln("")
	r.writeln(Header(indentCategory + "insight commands"))
	r.writeln(indentCategory + Dim("Type any text to analyze it."))
	r.writeln("")
	for _, cat := range CategoryOrder {
		r.renderCategory(cat)
	}
	r.RenderShortcuts()
}

// RenderCommand renders usage and all examples of one command. It reports
// whether the command exists.
func (r *Renderer) RenderCommand(name string) bool {
	cmd, found := GetCommand(name)
	if !found {
		r.writeln(fmt.Sprintf(indentCategory+"Command '%s' not found. Use /help to see all commands.", name))
		return false
	}

	r.writeln("")
	r.writeln(indentCategory + CommandWithShortcut(cmd.Name, cmd.Shortcut))
	r.writeln(indentCategory + Dim(cmd.Description))
	r.writeln("")
	r.writeln(indentCategory + Bold("Usage:") + " " + Argument(cmd.Usage))
	r.writeln("")
	if len(cmd.Examples) > 0 {
		r.writeln(indentCategory + Bold("Examples:"))
		for _, ex := range cmd.Examples {
			r.writeln(indentCommand + ExampleLine(ex.Command, ex.Description))
		}
		r.writeln("")
	}
	return true
}

// RenderShortcuts renders aliases and key bindings.
func (r *Renderer) RenderShortcuts() {
	r.writeln(indentCategory + StyleCategory("Shortcuts"))
	r.writeln(indentCategory + separator())
	r.writeln(indentCommand + Dim(BoxVertical+" Aliases: ") +
		Shortcut("/h") + Dim("→help  ") +
		Shortcut("/q") + Dim("→quit  ") +
		Shortcut("/ls") + Dim("→list"))
	r.writeln(indentCommand + Dim(BoxVertical+" Keys:    ") +
		Shortcut("Tab") + Dim(" complete  ") +
		Shortcut("Ctrl+C") + Dim(" cancel  ") +
		Shortcut("Ctrl+D") + Dim(" exit"))
	r.writeln("")
}

func (r *Renderer) renderCategory(cat Category) {
	commands := GetCommandsByCategory(cat)
	if len(commands) == 0 {
		return
	}
	r.writeln(indentCategory + StyleCategory(cat.DisplayName()))
	r.writeln(indentCategory + separator())
	for _, cmd := range commands {
		r.writeln(indentCommand + Dim(BoxVertical+" ") +
			PadRight(CommandWithShortcut(cmd.Name, cmd.Shortcut), commandColumnWidth) +
			Dim(cmd.Description))
		for i, ex := range cmd.Examples {
			if i == maxInlineExamples {
				break
			}
			r.writeln(indentExample + Dim(BoxVertical+"   e.g. ") + HighlightExample(ex.Command))
		}
	}
	r.writeln("")
}

func separator() string {
	return Dim(BoxTeeLeft + strings.Repeat(BoxHorizontal, commandColumnWidth+24))
}

func (r *Renderer) writeln(s string) {
	fmt.Fprintln(r.w, s)
}
