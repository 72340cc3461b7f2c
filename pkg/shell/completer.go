package shell

import (
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/r3d91ll/insight/pkg/help"
	"github.com/r3d91ll/insight/pkg/runtime"
	"github.com/r3d91ll/insight/pkg/simulation"
)

// idCommands take an analysis ID as their first argument.
var idCommands = map[string]bool{
	"show":   true,
	"delete": true,
	"svg":    true,
	"csv":    true,
	"json":   true,
}

// ShellCompleter completes command names, parameter keys, extractor names
// and analysis IDs. It implements readline.AutoCompleter.
type ShellCompleter struct {
	mgr *runtime.Manager
}

// NewShellCompleter creates a completer. mgr may be nil, in which case only
// commands and parameter keys complete.
func NewShellCompleter(mgr *runtime.Manager) *ShellCompleter {
	return &ShellCompleter{mgr: mgr}
}

var _ readline.AutoCompleter = (*ShellCompleter)(nil)

// Do implements readline.AutoCompleter. It returns the candidate suffixes
// and the length of the word being completed.
func (c *ShellCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	if len(line) == 0 || pos <= 0 {
		return nil, 0
	}
	if pos > len(line) {
		pos = len(line)
	}

	before := string(line[:pos])
	wordStart := findWordStart(before)
	word := before[wordStart:]
	fields := strings.Fields(before[:wordStart])

	if len(fields) == 0 {
		if !strings.HasPrefix(word, "/") {
			return nil, 0
		}
		return complete(help.Names(), strings.TrimPrefix(word, "/"), " "), len(word)
	}
	if word == "" || !strings.HasPrefix(fields[0], "/") {
		return nil, 0
	}

	cmd := strings.TrimPrefix(fields[0], "/")
	argIndex := len(fields) - 1
	switch {
	case cmd == "set":
		if strings.Contains(word, "=") {
			return nil, 0
		}
		return complete(simulation.Keys, word, "="), len(word)
	case cmd == "help" && argIndex == 0:
		return complete(help.Names(), word, " "), len(word)
	case cmd == "extractor" && argIndex == 0:
		return complete(c.extractors(), word, " "), len(word)
	case cmd == "model" && argIndex == 0:
		return complete([]string{"default"}, word, " "), len(word)
	case cmd == "seed" && argIndex == 0:
		return complete([]string{"random"}, word, " "), len(word)
	case cmd == "csv" && argIndex <= 1:
		candidates := []string{string(runtime.TablePositions), string(runtime.TableEdges)}
		if argIndex == 0 {
			candidates = append(candidates, c.analysisIDs()...)
		}
		return complete(candidates, word, " "), len(word)
	case idCommands[cmd] && argIndex == 0:
		return complete(c.analysisIDs(), word, " "), len(word)
	}
	return nil, 0
}

// findWordStart returns the index after the last space or tab in s.
func findWordStart(s string) int {
	return strings.LastIndexAny(s, " \t") + 1
}

// complete returns the suffix of every candidate that starts with prefix,
// followed by tail.
func complete(candidates []string, prefix, tail string) [][]rune {
	var matches [][]rune
	for _, cand := range candidates {
		if strings.HasPrefix(cand, prefix) {
			matches = append(matches, []rune(cand[len(prefix):]+tail))
		}
	}
	return matches
}

func (c *ShellCompleter) extractors() []string {
	if c.mgr == nil {
		return nil
	}
	names := c.mgr.Registry().List()
	sort.Strings(names)
	return names
}

// analysisIDs returns the short form of every stored analysis ID.
func (c *ShellCompleter) analysisIDs() []string {
	if c.mgr == nil {
		return nil
	}
	var ids []string
	for _, sum := range c.mgr.Store().List() {
		ids = append(ids, shortID(sum.ID))
	}
	return ids
}
