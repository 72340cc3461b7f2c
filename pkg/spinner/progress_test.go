package spinner

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/r3d91ll/insight/pkg/simulation"
)

func TestProgress_Observe(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressWithConfig(ProgressConfig{Message: "Simulating", Width: 10, ShowEnergy: true, Writer: &buf, IsTTY: boolPtr(true)})

	p.Start(200)
	p.Observe(simulation.Step{Iteration: 100, Total: 200, KineticEnergy: 12.5})

	if p.Current() != 100 || p.Total() != 200 {
		t.Errorf("expected 100/200, got %d/%d", p.Current(), p.Total())
	}
	if p.Percentage() != 50 {
		t.Errorf("expected 50%%, got %v", p.Percentage())
	}
	if p.Energy() != 12.5 {
		t.Errorf("expected energy 12.5, got %v", p.Energy())
	}
	want := "Simulating [█████░░░░░] 50% (100/200) E=12.5"
	if !strings.Contains(buf.String(), want) {
		t.Errorf("expected %q in %q", want, buf.String())
	}
}

func TestProgress_IgnoresStepsWhenInactive(t *testing.T) {
	p := NewProgressWithConfig(ProgressConfig{Writer: &bytes.Buffer{}})
	p.Observe(simulation.Step{Iteration: 5, Total: 10})
	if p.Current() != 0 {
		t.Error("inactive progress should ignore steps")
	}
}

func TestProgress_NonTTYPrintsDeciles(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressWithConfig(ProgressConfig{Message: "Sim", Writer: &buf, IsTTY: boolPtr(false)})

	p.Start(100)
	for i := 1; i <= 100; i++ {
		p.Observe(simulation.Step{Iteration: i, Total: 100})
	}
	p.Complete("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// Start line, ten deciles, completion.
	if len(lines) != 12 {
		t.Fatalf("expected 12 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[11], "✓ done") {
		t.Errorf("unexpected completion line %q", lines[11])
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Error("non-TTY output must not contain ANSI escapes")
	}
}

func TestProgress_ClampsOvershoot(t *testing.T) {
	p := NewProgressWithConfig(ProgressConfig{Writer: &bytes.Buffer{}, IsTTY: boolPtr(false)})
	p.Start(10)
	p.Observe(simulation.Step{Iteration: 15})
	if p.Current() != 10 {
		t.Errorf("expected clamp to 10, got %d", p.Current())
	}
	if p.buildBar() != "["+strings.Repeat(barFilled, 20)+"]" {
		t.Errorf("unexpected bar %q", p.buildBar())
	}
}

func TestProgress_FailTTY(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressWithConfig(ProgressConfig{Message: "Sim", Writer: &buf, IsTTY: boolPtr(true)})
	p.Start(10)
	p.Fail("")
	if !strings.Contains(buf.String(), colorRed+symbolFailure+colorReset+" Sim complete") {
		t.Errorf("unexpected failure output %q", buf.String())
	}
	if p.IsActive() {
		t.Error("progress should be inactive after Fail")
	}
}

func TestProgress_DrivenByEngine(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressWithConfig(ProgressConfig{Writer: &buf, IsTTY: boolPtr(false)})

	params := simulation.DefaultParams()
	params.Iterations = 20
	p.Start(params.Iterations)
	engine := simulation.New(simulation.WithSeed(1), simulation.WithObserver(p.Observer(), 2))
	_, err := engine.Run(context.Background(),
		[][]float64{{1, 0}, {0, 1}, {1, 1}},
		[][]float64{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
		params)
	if err != nil {
		t.Fatal(err)
	}
	p.Complete("")

	if p.Current() != 20 {
		t.Errorf("expected final iteration 20, got %d", p.Current())
	}
}
