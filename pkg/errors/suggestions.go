package errors

import "sync"

// suggestionRegistry maps error codes to remediation hints.
type suggestionRegistry struct {
	mu    sync.RWMutex
	items map[string][]string
}

var defaultSuggestions = &suggestionRegistry{items: map[string][]string{
	ErrInvalidInput: {
		"The attention matrix must be N×N where N is the number of embeddings",
		"Every embedding vector must have the same dimension",
	},
	ErrInvalidParams: {
		"Use finite values for drag and force strengths",
		"Run '/params' in the shell to see the current parameter set",
	},
	ErrUnknownParam: {
		"Valid keys: iterations, semantic_force_strength, attention_force_strength, semantic_attraction_threshold, semantic_repulsion_threshold, drag",
	},
	ErrNumericInstability: {
		"Lower semantic_force_strength or attention_force_strength",
		"Lower drag so velocities decay faster",
		"Set simulation.instability_policy to 'clamp' to keep the last finite positions",
	},
	ErrConfigNotFound: {
		"Run 'insight --init' to create a default configuration file",
	},
	ErrConfigParseFailed: {
		"Check the YAML syntax of the configuration file",
		"Run 'insight --init' in an empty directory to see a valid example",
	},
	ErrExtractorNotFound: {
		"Available extractors: loom, fixture, lexical",
	},
	ErrExtractorUnavailable: {
		"Ensure the model server is running and extractor.loom.url is correct",
		"Use '-extractor lexical' to analyze without a model server",
	},
	ErrExtractorAPIError: {
		"Check the model server logs for the failing request",
	},
	ErrFixtureInvalid: {
		"A fixture needs 'tokens', 'embeddings' and 'attention' fields",
	},
	ErrAnalysisNotFound: {
		"Run '/list' in the shell or GET /api/analyses to see stored analyses",
	},
	ErrCommandNotFound: {
		"Type '/help' to see available commands",
	},
}}

// Suggestions returns the registered hints for a code.
func Suggestions(code string) []string {
	defaultSuggestions.mu.RLock()
	defer defaultSuggestions.mu.RUnlock()
	s := defaultSuggestions.items[code]
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// RegisterSuggestion adds a hint for a code.
func RegisterSuggestion(code, text string) {
	defaultSuggestions.mu.Lock()
	defer defaultSuggestions.mu.Unlock()
	defaultSuggestions.items[code] = append(defaultSuggestions.items[code], text)
}

// AttachSuggestions appends the registered hints for err's code.
func AttachSuggestions(err *InsightError) *InsightError {
	if err == nil {
		return nil
	}
	return err.WithSuggestions(Suggestions(err.Code)...)
}
