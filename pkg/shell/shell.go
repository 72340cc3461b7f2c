// Package shell provides the interactive REPL for insight. Lines that do not
// start with a slash are analyzed as text; slash commands tune parameters,
// browse results and export them.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-runewidth"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/export"
	"github.com/r3d91ll/insight/pkg/help"
	"github.com/r3d91ll/insight/pkg/insight"
	"github.com/r3d91ll/insight/pkg/runtime"
	"github.com/r3d91ll/insight/pkg/simulation"
	"github.com/r3d91ll/insight/pkg/spinner"
)

const (
	prompt = "\033[32minsight>\033[0m "

	// maxTokenWidth caps the token column of /show.
	maxTokenWidth = 24
)

// Shell is the interactive command-line interface.
type Shell struct {
	mgr      *runtime.Manager
	rl       *readline.Instance
	out      io.Writer
	errs     *ierrors.Formatter
	prompter Prompter

	overrides simulation.Overrides
	seed      *int64
	model     string
	exportDir string
}

// Config holds shell configuration.
type Config struct {
	HistoryFile string
	// ExportDir receives /svg, /csv and /json output without an explicit path.
	ExportDir string
}

// New creates a new interactive shell on the terminal.
func New(mgr *runtime.Manager, cfg Config) (*Shell, error) {
	s := newShell(mgr, os.Stdout, nil, cfg.ExportDir)
	s.errs = ierrors.DefaultFormatter()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    NewShellCompleter(mgr),
	})
	if err != nil {
		return nil, err
	}
	s.rl = rl
	s.prompter = &ReadlinePrompter{rl: rl}
	return s, nil
}

// newShell builds a shell without a terminal. Run needs New.
func newShell(mgr *runtime.Manager, out io.Writer, prompter Prompter, exportDir string) *Shell {
	if exportDir == "" {
		exportDir = mgr.Config().Export.Directory
	}
	return &Shell{
		mgr:       mgr,
		out:       out,
		errs:      &ierrors.Formatter{Writer: out, Indent: "  "},
		prompter:  prompter,
		exportDir: exportDir,
	}
}

// Run starts the interactive loop.
func (s *Shell) Run(ctx context.Context) error {
	defer s.rl.Close()

	s.banner()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			s.errs.Display(err)
		}
	}
}

func (s *Shell) banner() {
	box := help.NewBox(44)
	fmt.Fprintln(s.out, box.Top())
	fmt.Fprintln(s.out, box.RowCenter(help.Bold("insight "+runtime.Version)))
	fmt.Fprintln(s.out, box.RowCenter("reasoning maps from attention"))
	fmt.Fprintln(s.out, box.Bottom())
	fmt.Fprintf(s.out, "Extractor: %s. Type text to analyze it, /help for commands.\n\n",
		s.mgr.DefaultExtractor())
}

var errQuit = errors.New("quit")

// Execute runs one input line.
func (s *Shell) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return s.analyze(ctx, line)
	}

	parts := strings.Fields(line)
	cmd, args := parts[0], parts[1:]
	switch cmd {
	case "/quit", "/exit", "/q":
		return errQuit
	case "/help", "/h":
		s.printHelp(args)
	case "/list", "/ls":
		s.printList()
	case "/show":
		return s.handleShow(args)
	case "/delete":
		return s.handleDelete(args)
	case "/clear":
		return s.handleClear()
	case "/extractor":
		return s.handleExtractor(ctx, args)
	case "/model":
		s.handleModel(args)
	case "/set":
		return s.handleSet(args)
	case "/params":
		s.printParams()
	case "/reset":
		s.overrides = simulation.Overrides{}
		s.seed = nil
		fmt.Fprintln(s.out, "Parameters and seed reset.")
	case "/seed":
		return s.handleSeed(args)
	case "/svg":
		return s.handleSVG(args)
	case "/csv":
		return s.handleCSV(args)
	case "/json":
		return s.handleJSON(args)
	default:
		return ierrors.Codef(ierrors.ErrCommandNotFound, "unknown command %s", cmd).
			WithContext("command", cmd)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Analysis
// -----------------------------------------------------------------------------

func (s *Shell) analyze(ctx context.Context, text string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := s.mgr.Prepare(ctx, ""); err != nil {
		return err
	}

	params := s.currentParams()
	progress := spinner.NewProgressWithConfig(spinner.ProgressConfig{
		Message:     "Simulating",
		ShowEnergy:  true,
		ShowElapsed: true,
		Writer:      s.out,
	})
	progress.Start(params.Iterations)

	req := runtime.Request{
		Seed:      s.seed,
		Overrides: s.overrides,
	}
	if s.mgr.DefaultExtractor() == modelExtractor {
		req.Model = s.model
	}
	an, err := s.mgr.Run(ctx, text, req, progress.Observer())
	if err != nil {
		progress.Fail("Analysis failed")
		return err
	}
	progress.Complete(fmt.Sprintf("%d tokens placed", len(an.Tokens)))

	fmt.Fprintf(s.out, "  %s %s  %s %s  %s %d\n",
		help.Dim("id"), shortID(an.ID),
		help.Dim("hash"), shortID(an.Hash),
		help.Dim("seed"), an.Seed)
	for _, w := range an.Warnings {
		fmt.Fprintln(s.out, "  "+help.Warn("warning: "+w))
	}
	fmt.Fprintln(s.out, help.Dim("  /show for positions, /svg to render"))
	return nil
}

func (s *Shell) currentParams() simulation.Params {
	return s.mgr.Config().BaseParams().With(s.overrides)
}

// resolve finds an analysis by ID or unique ID prefix. An empty id means
// the latest analysis.
func (s *Shell) resolve(id string) (*insight.Analysis, error) {
	store := s.mgr.Store()
	if id == "" {
		an, ok := store.Latest()
		if !ok {
			return nil, ierrors.Code(ierrors.ErrAnalysisNotFound, "no analyses yet").
				WithSuggestion("Type some text to analyze it first")
		}
		return an, nil
	}
	if an, ok := store.Get(id); ok {
		return an, nil
	}

	var matches []string
	for _, sum := range store.List() {
		if strings.HasPrefix(sum.ID, id) {
			matches = append(matches, sum.ID)
		}
	}
	switch len(matches) {
	case 0:
		return nil, ierrors.NotFound(id)
	case 1:
		an, _ := store.Get(matches[0])
		return an, nil
	}
	return nil, ierrors.Codef(ierrors.ErrCommandInvalidArg, "ID prefix %q matches %d analyses", id, len(matches)).
		WithSuggestion("Use more characters of the ID")
}

// splitID treats the first argument as an ID unless it looks like a file
// path or a table name.
func splitID(args []string) (string, []string) {
	if len(args) == 0 {
		return "", nil
	}
	first := args[0]
	if strings.ContainsAny(first, "./") || first == string(runtime.TablePositions) || first == string(runtime.TableEdges) {
		return "", args
	}
	return first, args[1:]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// -----------------------------------------------------------------------------
// Browsing
// -----------------------------------------------------------------------------

func (s *Shell) printList() {
	list := s.mgr.Store().List()
	if len(list) == 0 {
		fmt.Fprintln(s.out, "No analyses yet.")
		return
	}
	fmt.Fprintf(s.out, "%d analyses:\n", len(list))
	for _, sum := range list {
		fmt.Fprintf(s.out, "  %s  %3d tokens  %-8s  %s\n",
			shortID(sum.ID), sum.Tokens, sum.Extractor,
			runewidth.Truncate(sum.Text, 40, "…"))
	}
}

func (s *Shell) handleShow(args []string) error {
	id := ""
	if len(args) > 0 {
		id = args[0]
	}
	an, err := s.resolve(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "%s  %s\n", help.Bold(shortID(an.ID)), an.Text)
	fmt.Fprintf(s.out, "  extractor %s  seed %d  placement %s  %d iterations  %.1fms\n",
		an.Extractor, an.Seed, an.Placement, an.Iterations, an.DurationMS)
	fmt.Fprintf(s.out, "  hash %s\n\n", an.Hash)

	width := len("token")
	for _, tok := range an.Tokens {
		if w := runewidth.StringWidth(tok); w > width {
			width = w
		}
	}
	if width > maxTokenWidth {
		width = maxTokenWidth
	}

	fmt.Fprintf(s.out, "  %4s  %s  %10s  %10s\n", "#", runewidth.FillRight("token", width), "x", "y")
	for i, tok := range an.Tokens {
		tok = runewidth.Truncate(tok, width, "…")
		p := an.Positions[i]
		fmt.Fprintf(s.out, "  %4d  %s  %10s  %10s\n", i, runewidth.FillRight(tok, width),
			formatCoord(p[0]), formatCoord(p[1]))
	}
	return nil
}

func formatCoord(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func (s *Shell) handleDelete(args []string) error {
	if len(args) == 0 {
		return ierrors.Code(ierrors.ErrCommandMissingArgs, "usage: /delete <id>")
	}
	an, err := s.resolve(args[0])
	if err != nil {
		return err
	}
	ok, err := s.prompter.Confirm(fmt.Sprintf("Delete analysis %s (%q)?", shortID(an.ID),
		runewidth.Truncate(an.Text, 30, "…")))
	if err != nil || !ok {
		fmt.Fprintln(s.out, "Cancelled.")
		return err
	}
	if err := s.mgr.Delete(an.ID); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Deleted %s.\n", shortID(an.ID))
	return nil
}

func (s *Shell) handleClear() error {
	list := s.mgr.Store().List()
	if len(list) == 0 {
		fmt.Fprintln(s.out, "Nothing to clear.")
		return nil
	}
	ok, err := s.prompter.Confirm(fmt.Sprintf("Delete all %d analyses?", len(list)))
	if err != nil || !ok {
		fmt.Fprintln(s.out, "Cancelled.")
		return err
	}
	for _, sum := range list {
		if err := s.mgr.Delete(sum.ID); err != nil {
			return err
		}
	}
	fmt.Fprintf(s.out, "Deleted %d analyses.\n", len(list))
	return nil
}

func (s *Shell) handleExtractor(ctx context.Context, args []string) error {
	if len(args) > 0 {
		if err := s.mgr.SetDefaultExtractor(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Extractor set to %s.\n", args[0])
		return nil
	}

	statuses := s.mgr.Status(ctx)
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	current := s.mgr.DefaultExtractor()
	fmt.Fprintln(s.out, "Extractors:")
	for _, name := range names {
		st := statuses[name]
		mark := help.ColorRed + "✗" + help.ColorReset
		if st.Available {
			mark = help.ColorGreen + "✓" + help.ColorReset
		}
		suffix := ""
		if name == current {
			suffix = help.Dim(" (current)")
		}
		fmt.Fprintf(s.out, "  %s %-8s %s%s\n", mark, name, help.Dim(string(st.Type)), suffix)
	}
	return nil
}

// modelExtractor is the only extractor that takes a model name.
const modelExtractor = "loom"

// handleModel shows or sets the model used by loom runs in this session.
func (s *Shell) handleModel(args []string) {
	configured := s.mgr.Config().Extractor.Loom.Model
	if len(args) == 0 {
		switch {
		case s.model != "":
			fmt.Fprintf(s.out, "Model: %s\n", s.model)
		case configured != "":
			fmt.Fprintf(s.out, "Model: %s %s\n", configured, help.Dim("(config)"))
		default:
			fmt.Fprintf(s.out, "Model: %s\n", help.Dim("server default"))
		}
		return
	}

	if args[0] == "default" {
		s.model = ""
		fmt.Fprintln(s.out, "Model reset to the configured default.")
		return
	}
	s.model = args[0]
	fmt.Fprintf(s.out, "Model set to %s.\n", s.model)
	if s.mgr.DefaultExtractor() != modelExtractor {
		fmt.Fprintln(s.out, help.Warn("The model applies once the loom extractor is selected (/extractor loom)."))
	}
}

// -----------------------------------------------------------------------------
// Parameters
// -----------------------------------------------------------------------------

func (s *Shell) handleSet(args []string) error {
	if len(args) == 0 {
		return ierrors.Code(ierrors.ErrCommandMissingArgs, "usage: /set <key>=<value> ...").
			WithContext("keys", strings.Join(simulation.Keys, ", "))
	}

	next := s.overrides
	for _, arg := range args {
		if err := next.ParseAssignment(arg); err != nil {
			return err
		}
	}
	params := s.mgr.Config().BaseParams().With(next)
	if err := params.Validate(); err != nil {
		return err
	}
	s.overrides = next

	for _, w := range params.Warnings() {
		fmt.Fprintln(s.out, help.Warn("warning: "+w.Error()))
	}
	fmt.Fprintf(s.out, "Set %s.\n", strings.Join(args, " "))
	return nil
}

func (s *Shell) printParams() {
	params := s.currentParams()
	values := params.Map()

	fmt.Fprintln(s.out, "Parameters for the next run:")
	for _, key := range simulation.Keys {
		mark := ""
		if overridden(s.overrides, key) {
			mark = help.Dim(" (set)")
		}
		fmt.Fprintf(s.out, "  %-30s %s%s\n", key, values[key], mark)
	}
	if s.seed != nil {
		fmt.Fprintf(s.out, "  %-30s %d\n", "seed", *s.seed)
	} else {
		fmt.Fprintf(s.out, "  %-30s %s\n", "seed", help.Dim("random"))
	}
	for _, w := range params.Warnings() {
		fmt.Fprintln(s.out, help.Warn("warning: "+w.Error()))
	}
}

func overridden(o simulation.Overrides, key string) bool {
	switch key {
	case simulation.KeyIterations:
		return o.Iterations != nil
	case simulation.KeySemanticForceStrength:
		return o.SemanticForceStrength != nil
	case simulation.KeyAttentionForceStrength:
		return o.AttentionForceStrength != nil
	case simulation.KeySemanticAttractionThreshold:
		return o.SemanticAttractionThreshold != nil
	case simulation.KeySemanticRepulsionThreshold:
		return o.SemanticRepulsionThreshold != nil
	case simulation.KeyDrag:
		return o.Drag != nil
	}
	return false
}

func (s *Shell) handleSeed(args []string) error {
	if len(args) == 0 {
		if s.seed == nil {
			fmt.Fprintln(s.out, "Seed: random")
		} else {
			fmt.Fprintf(s.out, "Seed: %d\n", *s.seed)
		}
		return nil
	}
	if args[0] == "random" {
		s.seed = nil
		fmt.Fprintln(s.out, "Seed released; each run draws its own.")
		return nil
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrCommandInvalidArg, "seed must be an integer or 'random'").
			WithContext("seed", args[0])
	}
	s.seed = &n
	fmt.Fprintf(s.out, "Seed set to %d.\n", n)
	return nil
}

// -----------------------------------------------------------------------------
// Export
// -----------------------------------------------------------------------------

func (s *Shell) handleSVG(args []string) error {
	id, rest := splitID(args)
	an, err := s.resolve(id)
	if err != nil {
		return err
	}
	path := runtime.ExportPath(s.exportDir, firstArg(rest), an.ID, ".svg")
	if err := runtime.WriteSVG(an, path, runtime.SVGConfig(s.mgr.Config().Export)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Wrote %s\n", path)
	return nil
}

func (s *Shell) handleCSV(args []string) error {
	id, rest := splitID(args)
	an, err := s.resolve(id)
	if err != nil {
		return err
	}

	table := runtime.TablePositions
	if len(rest) > 0 && !strings.ContainsAny(rest[0], "./") {
		if table, err = runtime.ParseTable(rest[0]); err != nil {
			return err
		}
		rest = rest[1:]
	}
	path := runtime.ExportPath(s.exportDir, firstArg(rest), an.ID, "-"+string(table)+".csv")
	if err := runtime.WriteCSV(an, path, table, export.DefaultCSVConfig()); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Wrote %s\n", path)
	return nil
}

func (s *Shell) handleJSON(args []string) error {
	id, rest := splitID(args)
	an, err := s.resolve(id)
	if err != nil {
		return err
	}
	path := runtime.ExportPath(s.exportDir, firstArg(rest), an.ID, ".json")
	if err := runtime.WriteJSON(an, path); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Wrote %s\n", path)
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (s *Shell) printHelp(args []string) {
	r := help.NewRenderer(s.out)
	if len(args) > 0 {
		r.RenderCommand(args[0])
		return
	}
	r.RenderFull()
}
