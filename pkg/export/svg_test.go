package export

import (
	"bytes"
	"math"
	"strings"
	"testing"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

func TestDefaultSVGConfig(t *testing.T) {
	config := DefaultSVGConfig()

	if config.Title != "LLM Insight: Reasoning Map" {
		t.Errorf("unexpected title %q", config.Title)
	}
	if config.EdgeThreshold != 0.1 || config.EdgeWidthScale != 5 {
		t.Errorf("unexpected edge settings %v/%v", config.EdgeThreshold, config.EdgeWidthScale)
	}
	if config.ParticleColor != "magenta" || config.EdgeColor != "cyan" {
		t.Errorf("unexpected colors %q/%q", config.ParticleColor, config.EdgeColor)
	}
	if config.BackgroundColor != "#000000" {
		t.Errorf("expected dark background, got %q", config.BackgroundColor)
	}
	if !config.IncludeMetadata {
		t.Error("expected IncludeMetadata to be true by default")
	}
}

func TestMapSVGBuilder_Build(t *testing.T) {
	svg, err := NewMapSVGBuilder(nil).SetMap(sampleMap()).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(svg, "<?xml") {
		t.Error("expected XML declaration")
	}
	if !strings.Contains(svg, "xmlns=\""+SVGNamespace+"\"") {
		t.Error("expected SVG namespace")
	}
	if !strings.HasSuffix(svg, "</svg>\n") {
		t.Error("expected closing svg tag")
	}
	if !strings.Contains(svg, ">LLM Insight: Reasoning Map</text>") {
		t.Error("expected title")
	}

	if got := strings.Count(svg, "<circle"); got != 3 {
		t.Errorf("expected 3 particles, got %d", got)
	}
	if got := strings.Count(svg, "<line"); got != 4 {
		t.Errorf("expected 4 edges, got %d", got)
	}
	for _, tok := range []string{">the</text>", ">cat</text>", ">sat</text>"} {
		if !strings.Contains(svg, tok) {
			t.Errorf("expected label %s", tok)
		}
	}
	// Edge 2→1 has weight 0.6: opacity 1, width 3.
	if !strings.Contains(svg, `stroke-opacity="1.000" stroke-width="3.000"`) {
		t.Error("expected strongest edge with full opacity and width 5a")
	}
}

func TestMapSVGBuilder_YAxisPointsUp(t *testing.T) {
	cfg := DefaultSVGConfig()
	cfg.IncludeMetadata = false
	m := ReasoningMap{
		Tokens:    []string{"low", "high"},
		Positions: [][2]float64{{0, 0}, {0, 10}},
	}
	svg, err := NewMapSVGBuilder(cfg).SetMap(m).Build()
	if err != nil {
		t.Fatal(err)
	}
	// The particle with the larger y is drawn nearer the top.
	low := strings.Index(svg, `cy="1120.00"`)
	high := strings.Index(svg, `cy="80.00"`)
	if low < 0 || high < 0 {
		t.Errorf("expected particles at the bottom and top of the plot area:\n%s", svg)
	}
}

func TestMapSVGBuilder_EscapesLabelsAndTitle(t *testing.T) {
	m := ReasoningMap{
		Title:     "a<b",
		Tokens:    []string{"<s>", "&"},
		Positions: [][2]float64{{0, 0}, {1, 1}},
	}
	svg, err := NewMapSVGBuilder(nil).SetMap(m).Build()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(svg, "<s>") {
		t.Error("token should be escaped")
	}
	if !strings.Contains(svg, "&lt;s&gt;") || !strings.Contains(svg, ">&amp;</text>") {
		t.Error("expected escaped labels")
	}
	if !strings.Contains(svg, ">a&lt;b</text>") {
		t.Error("map title should override config title")
	}
}

func TestMapSVGBuilder_WideLabels(t *testing.T) {
	m := ReasoningMap{Tokens: []string{"ab", "日本"}, Positions: [][2]float64{{0, 0}, {1, 1}}}
	svg, err := NewMapSVGBuilder(nil).SetMap(m).Build()
	if err != nil {
		t.Fatal(err)
	}

	// "日本" occupies four columns, twice "ab".
	for _, w := range []string{`width="25.20"`, `width="42.00"`} {
		if !strings.Contains(svg, w) {
			t.Errorf("expected a label box with %s", w)
		}
	}
}

func TestMapSVGBuilder_SkipsNonFinite(t *testing.T) {
	m := ReasoningMap{
		Tokens:    []string{"a", "b", "c"},
		Positions: [][2]float64{{0, 0}, {math.NaN(), 1}, {2, 2}},
		Attention: [][]float64{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}},
	}
	svg, err := NewMapSVGBuilder(nil).SetMap(m).Build()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(svg, "NaN") {
		t.Error("SVG must not contain NaN coordinates")
	}
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Errorf("expected 2 drawable particles, got %d", got)
	}
	if got := strings.Count(svg, "<line"); got != 2 {
		t.Errorf("expected only the a-c edges, got %d", got)
	}
}

func TestMapSVGBuilder_Empty(t *testing.T) {
	_, err := NewMapSVGBuilder(nil).Build()
	if !ierrors.IsCode(err, ierrors.ErrExportEmpty) {
		t.Fatalf("expected EXPORT_EMPTY, got %v", err)
	}
}

func TestRenderSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSVG(&buf, sampleMap(), nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Error("expected svg output")
	}
}

func TestEscapeXML(t *testing.T) {
	if got := escapeXML(`<a href="x">'&'</a>`); got != "&lt;a href=&quot;x&quot;&gt;&apos;&amp;&apos;&lt;/a&gt;" {
		t.Errorf("unexpected escape %q", got)
	}
}
