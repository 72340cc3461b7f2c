package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/r3d91ll/insight/pkg/simulation"
)

// ProgressConfig holds configuration options for a simulation progress bar.
type ProgressConfig struct {
	// Message is the text displayed before the bar.
	Message string

	// Width is the width of the bar in characters.
	// Defaults to 20 if not specified or <= 0.
	Width int

	// ShowEnergy displays the kinetic energy of the latest step.
	ShowEnergy bool

	// ShowElapsed displays elapsed time since start (e.g., "(2.4s)").
	ShowElapsed bool

	// Writer is the output destination.
	// Defaults to os.Stderr if not specified.
	Writer io.Writer

	// IsTTY overrides terminal detection on Writer.
	// When false, the bar prints a plain line every 10% instead of redrawing.
	IsTTY *bool
}

// DefaultProgressConfig returns a progress configuration with sensible defaults.
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		Message:     "Simulating",
		Width:       20,
		ShowEnergy:  true,
		ShowElapsed: true,
		Writer:      os.Stderr,
	}
}

// Progress displays how far a simulation run has advanced. Feed it steps
// through Observer.
type Progress struct {
	mu sync.Mutex

	config    ProgressConfig
	isTTY     bool
	active    bool
	startTime time.Time

	current int
	total   int
	energy  float64

	// lastDecile is the last 10% mark printed in non-TTY mode.
	lastDecile int
	lastOutput int
}

// NewProgress creates a progress bar with the given message.
func NewProgress(message string) *Progress {
	cfg := DefaultProgressConfig()
	cfg.Message = message
	return NewProgressWithConfig(cfg)
}

// NewProgressWithConfig creates a progress bar with custom configuration.
func NewProgressWithConfig(config ProgressConfig) *Progress {
	if config.Width <= 0 {
		config.Width = 20
	}
	if config.Writer == nil {
		config.Writer = os.Stderr
	}

	isTTY := isTerminalWriter(config.Writer)
	if config.IsTTY != nil {
		isTTY = *config.IsTTY
	}
	return &Progress{config: config, isTTY: isTTY}
}

// Current returns the last observed iteration.
func (p *Progress) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Total returns the number of iterations of the run.
func (p *Progress) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// Energy returns the kinetic energy of the last observed step.
func (p *Progress) Energy() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.energy
}

// IsActive returns true between Start and Complete/Fail.
func (p *Progress) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// IsTTY returns whether the bar redraws in place.
func (p *Progress) IsTTY() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isTTY
}

// Percentage returns the completed share of iterations (0-100).
func (p *Progress) Percentage() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percentage()
}

func (p *Progress) percentage() float64 {
	if p.total <= 0 {
		return 0
	}
	return float64(p.current) / float64(p.total) * 100
}

// Start begins tracking a run of total iterations. Starting an active bar
// is a no-op.
func (p *Progress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return
	}
	p.active = true
	p.startTime = time.Now()
	p.current = 0
	p.total = total
	p.energy = 0
	p.lastDecile = 0

	if p.isTTY {
		fmt.Fprint(p.config.Writer, hideCursor)
		p.clearAndWrite(p.buildOutput())
		return
	}
	fmt.Fprintln(p.config.Writer, p.buildOutput())
}

// Observe records a simulation step. Steps arriving while the bar is
// inactive are ignored.
func (p *Progress) Observe(s simulation.Step) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return
	}
	if s.Total > 0 {
		p.total = s.Total
	}
	p.current = s.Iteration
	if p.total > 0 && p.current > p.total {
		p.current = p.total
	}
	p.energy = s.KineticEnergy

	if p.isTTY {
		p.clearAndWrite(p.buildOutput())
		return
	}
	decile := 0
	if p.total > 0 {
		decile = p.current * 10 / p.total
	}
	if decile > p.lastDecile {
		p.lastDecile = decile
		fmt.Fprintln(p.config.Writer, p.buildOutput())
	}
}

// Observer returns Observe as a simulation.Observer.
func (p *Progress) Observer() simulation.Observer {
	return p.Observe
}

// buildOutput renders: Simulating [████░░░░] 40% (80/200) E=12.5 (0.4s)
// Caller must hold the mutex.
func (p *Progress) buildOutput() string {
	parts := make([]string, 0, 5)
	if p.config.Message != "" {
		parts = append(parts, p.config.Message)
	}
	parts = append(parts, p.buildBar())
	parts = append(parts, fmt.Sprintf("%.0f%%", p.percentage()))
	parts = append(parts, fmt.Sprintf("(%d/%d)", p.current, p.total))
	if p.config.ShowEnergy && p.current > 0 {
		parts = append(parts, fmt.Sprintf("E=%.4g", p.energy))
	}
	if p.config.ShowElapsed && !p.startTime.IsZero() {
		parts = append(parts, formatElapsed(time.Since(p.startTime)))
	}
	return strings.Join(parts, " ")
}

// buildBar returns "[████████░░░░░░░░░░░░]". Caller must hold the mutex.
func (p *Progress) buildBar() string {
	width := p.config.Width
	filled := 0
	if p.total > 0 {
		filled = p.current * width / p.total
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled) + "]"
}

// Caller must hold the mutex.
func (p *Progress) clearAndWrite(output string) {
	if p.lastOutput > 0 {
		fmt.Fprint(p.config.Writer, carriageReturn+strings.Repeat(" ", p.lastOutput)+carriageReturn)
	}
	fmt.Fprint(p.config.Writer, output)
	p.lastOutput = len(output)
}

// Complete stops the bar and prints a success line.
func (p *Progress) Complete(message string) {
	p.finish(message, symbolSuccess, colorGreen)
}

// Fail stops the bar and prints a failure line.
func (p *Progress) Fail(message string) {
	p.finish(message, symbolFailure, colorRed)
}

func (p *Progress) finish(message, symbol, color string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if message == "" {
		message = fmt.Sprintf("%s complete", p.config.Message)
	}
	var elapsed time.Duration
	if !p.startTime.IsZero() {
		elapsed = time.Since(p.startTime)
	}

	if p.isTTY && p.active {
		if p.lastOutput > 0 {
			fmt.Fprint(p.config.Writer, carriageReturn+strings.Repeat(" ", p.lastOutput)+carriageReturn)
			p.lastOutput = 0
		}
		fmt.Fprint(p.config.Writer, showCursor)
	}
	p.active = false

	mark := symbol
	if p.isTTY {
		mark = color + symbol + colorReset
	}
	if p.config.ShowElapsed && elapsed > 0 {
		fmt.Fprintf(p.config.Writer, "%s %s %s\n", mark, message, formatElapsed(elapsed))
		return
	}
	fmt.Fprintf(p.config.Writer, "%s %s\n", mark, message)
}
