package help

import "strings"

// Header styles a section title (bold cyan).
func Header(text string) string {
	return ColorBold + ColorCyan + text + ColorReset
}

// StyleCategory styles a category label (bold green).
func StyleCategory(text string) string {
	return ColorBold + ColorGreen + text + ColorReset
}

// StyleCommand styles a command name (cyan).
func StyleCommand(text string) string {
	return ColorCyan + text + ColorReset
}

// Argument styles command arguments and examples (yellow).
func Argument(text string) string {
	return ColorYellow + text + ColorReset
}

// Shortcut styles a key or alias (bold yellow).
func Shortcut(text string) string {
	return ColorBold + ColorYellow + text + ColorReset
}

// Dim styles secondary text (gray).
func Dim(text string) string {
	return ColorGray + text + ColorReset
}

// Bold styles text in bold.
func Bold(text string) string {
	return ColorBold + text + ColorReset
}

// Warn styles a warning (yellow).
func Warn(text string) string {
	return ColorYellow + text + ColorReset
}

// CommandWithShortcut renders "/help (or /h)".
func CommandWithShortcut(cmd, shortcut string) string {
	if shortcut == "" {
		return StyleCommand(cmd)
	}
	return StyleCommand(cmd) + Dim(" (or ") + Shortcut(shortcut) + Dim(")")
}

// HighlightExample renders the command of an example line in cyan and its
// arguments in yellow.
func HighlightExample(line string) string {
	cmd, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	if cmd == "" {
		return ""
	}
	if !strings.HasPrefix(cmd, "/") {
		return Argument(line)
	}
	out := StyleCommand(cmd)
	if args = strings.TrimSpace(args); args != "" {
		out += Argument(" " + args)
	}
	return out
}

// ExampleLine renders "  /cmd args -> description".
func ExampleLine(cmd, desc string) string {
	return "  " + HighlightExample(cmd) + Dim(" -> ") + Dim(desc)
}
