package errors

// -----------------------------------------------------------------------------
// Input and Simulation Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrInvalidInput indicates the simulation inputs are malformed:
	// attention matrix dimensions do not match the embedding count, or
	// embeddings have inconsistent dimensions.
	ErrInvalidInput = "INVALID_INPUT"

	// ErrInvalidParams indicates a simulation parameter cannot be used,
	// e.g. a non-finite drag or force strength.
	ErrInvalidParams = "INVALID_PARAMS"

	// ErrNumericInstability indicates particle positions or velocities
	// reached non-finite values during the run.
	ErrNumericInstability = "NUMERIC_INSTABILITY"

	// ErrSimulationCanceled indicates the run was canceled between iterations.
	ErrSimulationCanceled = "SIMULATION_CANCELED"

	// ErrUnknownParam indicates an override key is not a simulation parameter.
	ErrUnknownParam = "UNKNOWN_PARAM"

	// ErrThresholdsInverted flags a repulsion threshold above the attraction
	// threshold. It is only ever reported as a warning.
	ErrThresholdsInverted = "THRESHOLDS_INVERTED"
)

// -----------------------------------------------------------------------------
// Configuration Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = "CONFIG_NOT_FOUND"

	// ErrConfigParseFailed indicates the configuration file could not be parsed.
	ErrConfigParseFailed = "CONFIG_PARSE_FAILED"

	// ErrConfigInvalid indicates configuration values are invalid.
	ErrConfigInvalid = "CONFIG_INVALID"

	// ErrConfigWriteFailed indicates the config file could not be written.
	ErrConfigWriteFailed = "CONFIG_WRITE_FAILED"
)

// -----------------------------------------------------------------------------
// Extractor Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrExtractorNotFound indicates the requested extractor is not registered.
	ErrExtractorNotFound = "EXTRACTOR_NOT_FOUND"

	// ErrExtractorAlreadyRegistered indicates a name collision in the registry.
	ErrExtractorAlreadyRegistered = "EXTRACTOR_ALREADY_REGISTERED"

	// ErrExtractorUnavailable indicates the extractor cannot be reached.
	ErrExtractorUnavailable = "EXTRACTOR_UNAVAILABLE"

	// ErrExtractorAPIError indicates the model server returned an error.
	ErrExtractorAPIError = "EXTRACTOR_API_ERROR"

	// ErrExtractorEmptyText indicates there was nothing to tokenize.
	ErrExtractorEmptyText = "EXTRACTOR_EMPTY_TEXT"

	// ErrFixtureInvalid indicates a fixture file could not be decoded.
	ErrFixtureInvalid = "FIXTURE_INVALID"
)

// -----------------------------------------------------------------------------
// Analysis, Export and IO Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrAnalysisNotFound indicates no stored analysis has the requested ID.
	ErrAnalysisNotFound = "ANALYSIS_NOT_FOUND"

	// ErrExportFailed indicates rendering or writing an export failed.
	ErrExportFailed = "EXPORT_FAILED"

	// ErrExportEmpty indicates there is nothing to render.
	ErrExportEmpty = "EXPORT_EMPTY"

	// ErrIOReadFailed indicates a file could not be read.
	ErrIOReadFailed = "IO_READ_FAILED"

	// ErrIOWriteFailed indicates a file could not be written.
	ErrIOWriteFailed = "IO_WRITE_FAILED"
)

// -----------------------------------------------------------------------------
// Command Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrCommandNotFound indicates the shell command does not exist.
	ErrCommandNotFound = "COMMAND_NOT_FOUND"

	// ErrCommandMissingArgs indicates required arguments are missing.
	ErrCommandMissingArgs = "COMMAND_MISSING_ARGS"

	// ErrCommandInvalidArg indicates an argument value is invalid.
	ErrCommandInvalidArg = "COMMAND_INVALID_ARG"
)

// ErrInternal marks failures that carry no structured code.
const ErrInternal = "INTERNAL_ERROR"

// codeCategories maps every known code to its category.
var codeCategories = map[string]Category{
	ErrInvalidInput:               CategoryValidation,
	ErrInvalidParams:              CategoryValidation,
	ErrUnknownParam:               CategoryValidation,
	ErrThresholdsInverted:         CategoryValidation,
	ErrNumericInstability:         CategorySimulation,
	ErrSimulationCanceled:         CategorySimulation,
	ErrConfigNotFound:             CategoryConfig,
	ErrConfigParseFailed:          CategoryConfig,
	ErrConfigInvalid:              CategoryConfig,
	ErrConfigWriteFailed:          CategoryConfig,
	ErrExtractorNotFound:          CategoryExtractor,
	ErrExtractorAlreadyRegistered: CategoryExtractor,
	ErrExtractorUnavailable:       CategoryExtractor,
	ErrExtractorAPIError:          CategoryExtractor,
	ErrExtractorEmptyText:         CategoryExtractor,
	ErrFixtureInvalid:             CategoryExtractor,
	ErrAnalysisNotFound:           CategoryValidation,
	ErrExportFailed:               CategoryExport,
	ErrExportEmpty:                CategoryExport,
	ErrIOReadFailed:               CategoryIO,
	ErrIOWriteFailed:              CategoryIO,
	ErrCommandNotFound:            CategoryCommand,
	ErrCommandMissingArgs:         CategoryCommand,
	ErrCommandInvalidArg:          CategoryCommand,
}

// CategoryFor returns the category a code belongs to.
// Unknown codes are internal.
func CategoryFor(code string) Category {
	if c, ok := codeCategories[code]; ok {
		return c
	}
	return CategoryInternal
}
