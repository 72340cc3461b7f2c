package help

// Category groups commands in help output.
type Category string

const (
	CategoryAnalysis   Category = "analysis"
	CategoryParameters Category = "parameters"
	CategoryExport     Category = "export"
	CategoryGeneral    Category = "general"
)

// CategoryOrder is the order categories appear in.
var CategoryOrder = []Category{
	CategoryAnalysis,
	CategoryParameters,
	CategoryExport,
	CategoryGeneral,
}

var categoryNames = map[Category]string{
	CategoryAnalysis:   "Analyses",
	CategoryParameters: "Simulation Parameters",
	CategoryExport:     "Export",
	CategoryGeneral:    "General",
}

// DisplayName returns the human-readable name of c.
func (c Category) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}

// Command describes one shell command.
type Command struct {
	// Name includes the leading slash.
	Name        string
	Shortcut    string
	Category    Category
	Description string
	Usage       string
	Examples    []Example
}

// Example is one documented invocation.
type Example struct {
	Command     string
	Description string
}

// Commands is the registry every help screen is built from.
var Commands = []Command{
	{
		Name:        "/list",
		Shortcut:    "/ls",
		Category:    CategoryAnalysis,
		Description: "List analyses of this session",
		Usage:       "/list",
	},
	{
		Name:        "/show",
		Category:    CategoryAnalysis,
		Description: "Show tokens and final positions of an analysis",
		Usage:       "/show [id]",
		Examples: []Example{
			{Command: "/show", Description: "Show the latest analysis"},
			{Command: "/show 3f2a", Description: "Show the analysis whose ID starts with 3f2a"},
		},
	},
	{
		Name:        "/delete",
		Category:    CategoryAnalysis,
		Description: "Delete one analysis",
		Usage:       "/delete <id>",
	},
	{
		Name:        "/clear",
		Category:    CategoryAnalysis,
		Description: "Delete every analysis after confirmation",
		Usage:       "/clear",
	},
	{
		Name:        "/extractor",
		Category:    CategoryAnalysis,
		Description: "Show or switch the feature extractor",
		Usage:       "/extractor [name]",
		Examples: []Example{
			{Command: "/extractor", Description: "List extractors and their availability"},
			{Command: "/extractor loom", Description: "Use the model server"},
		},
	},
	{
		Name:        "/model",
		Category:    CategoryAnalysis,
		Description: "Show or choose the model for loom runs",
		Usage:       "/model [name|default]",
		Examples: []Example{
			{Command: "/model gpt2-medium", Description: "Request a different model"},
			{Command: "/model default", Description: "Go back to the configured model"},
		},
	},
	{
		Name:        "/set",
		Category:    CategoryParameters,
		Description: "Override simulation parameters for later runs",
		Usage:       "/set <key>=<value> [<key>=<value> ...]",
		Examples: []Example{
			{Command: "/set iterations=400", Description: "Run twice as long"},
			{Command: "/set drag=0.9 semantic_force_strength=1", Description: "Set two parameters"},
		},
	},
	{
		Name:        "/params",
		Category:    CategoryParameters,
		Description: "Show the parameters the next run will use",
		Usage:       "/params",
	},
	{
		Name:        "/reset",
		Category:    CategoryParameters,
		Description: "Drop parameter overrides and the session seed",
		Usage:       "/reset",
	},
	{
		Name:        "/seed",
		Category:    CategoryParameters,
		Description: "Fix or release the random seed",
		Usage:       "/seed [n|random]",
		Examples: []Example{
			{Command: "/seed 42", Description: "Make runs reproducible"},
			{Command: "/seed random", Description: "Draw a fresh seed per run"},
		},
	},
	{
		Name:        "/svg",
		Category:    CategoryExport,
		Description: "Render an analysis as an SVG reasoning map",
		Usage:       "/svg [id] [path]",
		Examples: []Example{
			{Command: "/svg", Description: "Write the latest map to the export directory"},
			{Command: "/svg 3f2a map.svg", Description: "Write a chosen map to map.svg"},
		},
	},
	{
		Name:        "/csv",
		Category:    CategoryExport,
		Description: "Write positions or edges as CSV",
		Usage:       "/csv [id] [positions|edges] [path]",
		Examples: []Example{
			{Command: "/csv", Description: "Positions of the latest analysis"},
			{Command: "/csv 3f2a edges", Description: "Attention edges of a chosen analysis"},
		},
	},
	{
		Name:        "/json",
		Category:    CategoryExport,
		Description: "Write the full analysis record as JSON",
		Usage:       "/json [id] [path]",
	},
	{
		Name:        "/help",
		Shortcut:    "/h",
		Category:    CategoryGeneral,
		Description: "Show this help message",
		Usage:       "/help [command]",
		Examples: []Example{
			{Command: "/help set", Description: "Show detailed /set help"},
		},
	},
	{
		Name:        "/quit",
		Shortcut:    "/q",
		Category:    CategoryGeneral,
		Description: "Exit insight",
		Usage:       "/quit",
	},
}

// GetCommandsByCategory returns the commands of cat in registry order.
func GetCommandsByCategory(cat Category) []Command {
	var result []Command
	for _, cmd := range Commands {
		if cmd.Category == cat {
			result = append(result, cmd)
		}
	}
	return result
}

// GetCommand looks a command up by name or shortcut, with or without the
// leading slash.
func GetCommand(name string) (Command, bool) {
	if len(name) > 0 && name[0] != '/' {
		name = "/" + name
	}
	for _, cmd := range Commands {
		if cmd.Name == name || (cmd.Shortcut != "" && cmd.Shortcut == name) {
			return cmd, true
		}
	}
	return Command{}, false
}

// Names returns every command name and shortcut without the slash.
func Names() []string {
	names := make([]string, 0, len(Commands)*2)
	for _, cmd := range Commands {
		names = append(names, cmd.Name[1:])
		if cmd.Shortcut != "" {
			names = append(names, cmd.Shortcut[1:])
		}
	}
	return names
}
