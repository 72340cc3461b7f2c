// insight - Reasoning maps from attention
//
// insight places the tokens of a text in the plane by simulating two forces
// between them: attraction or repulsion from embedding similarity, and
// attraction along the model's attention weights.
//
// Modes:
//   - insight [flags] "text"   analyze once, print positions as CSV
//   - insight -shell           interactive REPL
//   - insight -serve           HTTP API with live progress over websocket
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/r3d91ll/insight/pkg/api"
	"github.com/r3d91ll/insight/pkg/backend"
	"github.com/r3d91ll/insight/pkg/config"
	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/export"
	"github.com/r3d91ll/insight/pkg/runtime"
	"github.com/r3d91ll/insight/pkg/shell"
	"github.com/r3d91ll/insight/pkg/simulation"
	"github.com/r3d91ll/insight/pkg/spinner"
)

// assignments collects repeated -set key=value flags.
type assignments []string

func (a *assignments) String() string { return strings.Join(*a, ",") }

func (a *assignments) Set(v string) error {
	*a = append(*a, v)
	return nil
}

type options struct {
	configPath string
	initConfig bool
	version    bool

	extractor string
	model     string
	fixture   string
	seed      int64
	seedSet   bool
	workers   int
	sets      assignments

	svgPath  string
	csvPath  string
	edges    bool
	jsonPath string

	serve bool
	shell bool
}

func parseFlags() *options {
	o := &options{}
	flag.StringVar(&o.configPath, "config", "", "Config file path (default: ./insight.yaml)")
	flag.BoolVar(&o.initConfig, "init", false, "Write a default config file and exit")
	flag.BoolVar(&o.version, "version", false, "Show version and exit")

	flag.StringVar(&o.extractor, "extractor", "", "Extractor to use: "+strings.Join(config.ValidExtractors, ", "))
	flag.StringVar(&o.model, "model", "", "Model for the loom extractor (overrides extractor.loom.model)")
	flag.StringVar(&o.fixture, "fixture", "", "Precomputed extraction file (selects the fixture extractor)")
	flag.Int64Var(&o.seed, "seed", 0, "Placement seed (default: random)")
	flag.IntVar(&o.workers, "workers", 0, "Force computation workers (0 = one per CPU)")
	flag.Var(&o.sets, "set", "Override a simulation parameter, key=value (repeatable)")

	flag.StringVar(&o.svgPath, "out", "", "Write the map as SVG to this path")
	flag.StringVar(&o.csvPath, "csv", "", "Write positions as CSV to this path")
	flag.BoolVar(&o.edges, "edges", false, "With -csv, write the attention edge list instead")
	flag.StringVar(&o.jsonPath, "json", "", "Write the full analysis as JSON to this path")

	flag.BoolVar(&o.serve, "serve", false, "Run the HTTP API server")
	flag.BoolVar(&o.shell, "shell", false, "Start the interactive shell")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			o.seedSet = true
		}
	})
	return o
}

func main() {
	opts := parseFlags()

	if opts.version {
		fmt.Printf("insight %s\n", runtime.Version)
		os.Exit(0)
	}

	if err := run(opts); err != nil {
		ierrors.Display(err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	config.LoadDotEnv()

	cfgPath := opts.configPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}

	if opts.initConfig {
		if err := config.InitConfig(cfgPath); err != nil {
			return err
		}
		fmt.Printf("Config initialized at: %s\n", cfgPath)
		return nil
	}

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, opts); err != nil {
		return err
	}

	var overrides simulation.Overrides
	for _, a := range opts.sets {
		if err := overrides.ParseAssignment(a); err != nil {
			return err
		}
	}
	if err := cfg.BaseParams().With(overrides).Validate(); err != nil {
		return err
	}

	mgr, err := runtime.New(cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	// The shell handles Ctrl+C itself, per line and per analysis.
	if opts.shell {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer stop()
		return runShell(ctx, mgr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.serve {
		return serve(ctx, mgr)
	}

	text, err := inputText(flag.Args())
	if err != nil {
		return err
	}
	req := runtime.Request{Overrides: overrides}
	if opts.seedSet {
		req.Seed = &opts.seed
	}
	return analyze(ctx, mgr, text, req, opts)
}

// applyFlags overlays command-line settings onto cfg and revalidates it.
func applyFlags(cfg *config.Config, opts *options) error {
	if opts.fixture != "" {
		cfg.Extractor.Fixture.Path = opts.fixture
		if opts.extractor == "" {
			cfg.Extractor.Backend = "fixture"
		}
	}
	if opts.extractor != "" {
		cfg.Extractor.Backend = strings.ToLower(opts.extractor)
	}
	if opts.model != "" {
		cfg.Extractor.Loom.Model = opts.model
	}
	if opts.workers > 0 {
		cfg.Simulation.Workers = opts.workers
	}
	return cfg.Validate()
}

// inputText joins the positional arguments, or reads stdin when it is piped.
func inputText(args []string) (string, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" && !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", ierrors.CodeWrap(err, ierrors.ErrInvalidInput, "could not read stdin")
		}
		text = strings.TrimSpace(string(data))
	}
	if text == "" {
		return "", ierrors.Code(ierrors.ErrCommandMissingArgs, "no text to analyze").
			WithSuggestions(
				`Pass the text as an argument: insight "the cat sat on the mat"`,
				"Or start the shell with: insight -shell",
			)
	}
	return text, nil
}

func analyze(ctx context.Context, mgr *runtime.Manager, text string, req runtime.Request, opts *options) error {
	if err := prepare(ctx, mgr); err != nil {
		return err
	}

	params := mgr.Config().BaseParams().With(req.Overrides)
	progress := spinner.NewProgress("Simulating")
	progress.Start(params.Iterations)

	an, err := mgr.Run(ctx, text, req, progress.Observer())
	if err != nil {
		progress.Fail("Analysis failed")
		return err
	}
	progress.Complete(fmt.Sprintf("%d tokens placed (seed %d, hash %s)", len(an.Tokens), an.Seed, an.Hash[:12]))
	for _, w := range an.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	wrote := false
	if opts.svgPath != "" {
		if err := runtime.WriteSVG(an, opts.svgPath, runtime.SVGConfig(mgr.Config().Export)); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", opts.svgPath)
		wrote = true
	}
	if opts.csvPath != "" {
		table := runtime.TablePositions
		if opts.edges {
			table = runtime.TableEdges
		}
		if err := runtime.WriteCSV(an, opts.csvPath, table, export.DefaultCSVConfig()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", opts.csvPath)
		wrote = true
	}
	if opts.jsonPath != "" {
		if err := runtime.WriteJSON(an, opts.jsonPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", opts.jsonPath)
		wrote = true
	}

	if !wrote {
		return export.ExportPositionsCSV(os.Stdout, an.ReasoningMap(), export.DefaultCSVConfig())
	}
	return nil
}

// prepare makes the default extractor ready, showing a spinner while a
// model server starts.
func prepare(ctx context.Context, mgr *runtime.Manager) error {
	ex, err := mgr.Registry().GetWithError(mgr.DefaultExtractor())
	if err != nil {
		return err
	}
	if ex.Type() != backend.TypeLoom || !mgr.Config().Extractor.Loom.Server.AutoStart {
		return mgr.Prepare(ctx, "")
	}

	spin := spinner.New("Waiting for model server")
	spin.Start()
	if err := mgr.Prepare(ctx, ""); err != nil {
		spin.Fail("Model server unavailable")
		return err
	}
	spin.Success("Model server ready")
	return nil
}

func serve(ctx context.Context, mgr *runtime.Manager) error {
	cfg := mgr.Config()
	srv := api.NewServer(&cfg.Server)
	srv.Mount(mgr)

	if err := srv.Start(); err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrInternal, "could not start the API server").
			WithContext("address", srv.Address())
	}
	fmt.Printf("insight %s listening on http://%s (extractor %s)\n",
		runtime.Version, srv.Address(), mgr.DefaultExtractor())

	<-ctx.Done()
	fmt.Println("\nShutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runShell(ctx context.Context, mgr *runtime.Manager) error {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".insight_history")
	}

	sh, err := shell.New(mgr, shell.Config{
		HistoryFile: historyFile,
		ExportDir:   mgr.Config().Export.Directory,
	})
	if err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrInternal, "could not start the shell")
	}

	if err := sh.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("Goodbye!")
	return nil
}
