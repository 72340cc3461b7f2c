package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// SVG constants for map generation.
const (
	// SVGVersion is the SVG specification version used.
	SVGVersion = "1.1"

	// SVGNamespace is the XML namespace for SVG.
	SVGNamespace = "http://www.w3.org/2000/svg"

	// DefaultMapTitle is the figure title.
	DefaultMapTitle = "LLM Insight: Reasoning Map"
)

// SVGConfig specifies options for reasoning map rendering.
type SVGConfig struct {
	// Width is the SVG width in pixels.
	// Default: 1600
	Width int

	// Height is the SVG height in pixels.
	// Default: 1200
	Height int

	// Title is displayed at the top.
	// Default: DefaultMapTitle
	Title string

	// Padding is the margin around the plot area.
	// Default: 80
	Padding int

	// EdgeThreshold is the opacity an edge must exceed to be drawn.
	// Default: 0.1
	EdgeThreshold float64

	// EdgeWidthScale multiplies the attention weight into a stroke width.
	// Default: 5
	EdgeWidthScale float64

	// ParticleRadius is the radius of token markers.
	// Default: 8
	ParticleRadius float64

	// FontSize is the label font size in pixels.
	// Default: 14
	FontSize int

	// FontFamily is the font for labels.
	// Default: "DejaVu Sans, Arial, sans-serif"
	FontFamily string

	BackgroundColor string // Default: "#000000"
	EdgeColor       string // Default: "cyan"
	ParticleColor   string // Default: "magenta"
	TextColor       string // Default: "#ffffff"

	// IncludeMetadata embeds generation metadata in the SVG.
	// Default: true
	IncludeMetadata bool

	// ToolVersion is the version string to include in metadata.
	ToolVersion string
}

// DefaultSVGConfig returns an SVGConfig with the standard dark theme.
func DefaultSVGConfig() *SVGConfig {
	return &SVGConfig{
		Width:           1600,
		Height:          1200,
		Title:           DefaultMapTitle,
		Padding:         80,
		EdgeThreshold:   0.1,
		EdgeWidthScale:  5,
		ParticleRadius:  8,
		FontSize:        14,
		FontFamily:      "DejaVu Sans, Arial, sans-serif",
		BackgroundColor: "#000000",
		EdgeColor:       "cyan",
		ParticleColor:   "magenta",
		TextColor:       "#ffffff",
		IncludeMetadata: true,
	}
}

// MapSVGBuilder renders a ReasoningMap as an SVG figure.
type MapSVGBuilder struct {
	config *SVGConfig
	m      ReasoningMap
}

// NewMapSVGBuilder creates a builder with the given configuration.
// If config is nil, DefaultSVGConfig() is used.
func NewMapSVGBuilder(config *SVGConfig) *MapSVGBuilder {
	if config == nil {
		config = DefaultSVGConfig()
	}
	return &MapSVGBuilder{config: config}
}

// SetMap sets the map to render.
func (b *MapSVGBuilder) SetMap(m ReasoningMap) *MapSVGBuilder {
	b.m = m
	return b
}

// Build generates the complete SVG document.
func (b *MapSVGBuilder) Build() (string, error) {
	if err := b.m.Validate(); err != nil {
		return "", err
	}

	var sb strings.Builder
	width, height, padding := b.config.Width, b.config.Height, b.config.Padding
	plotW := float64(width - 2*padding)
	plotH := float64(height - 2*padding)

	norm := Normalize(b.m.Positions)
	// Screen y grows downward; flip so larger y is higher up.
	screen := make([][2]float64, len(norm))
	for i, p := range norm {
		screen[i] = [2]float64{
			float64(padding) + p[0]*plotW,
			float64(padding) + (1-p[1])*plotH,
		}
	}

	b.writeHeader(&sb, width, height)
	b.writeDefinitions(&sb)
	sb.WriteString(fmt.Sprintf("  <rect width=\"%d\" height=\"%d\" fill=\"%s\"/>\n",
		width, height, b.config.BackgroundColor))
	if b.config.IncludeMetadata {
		b.writeMetadata(&sb)
	}

	b.writeEdges(&sb, screen)
	b.writeParticles(&sb, screen)
	b.writeLabels(&sb, screen)
	b.writeTitle(&sb, width)

	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

// WriteTo writes the SVG to an io.Writer.
func (b *MapSVGBuilder) WriteTo(w io.Writer) (int64, error) {
	svg, err := b.Build()
	if err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, svg)
	return int64(n), err
}

func (b *MapSVGBuilder) writeHeader(sb *strings.Builder, width, height int) {
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	sb.WriteString(fmt.Sprintf("<svg version=\"%s\" xmlns=\"%s\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n",
		SVGVersion, SVGNamespace, width, height, width, height))
}

func (b *MapSVGBuilder) writeDefinitions(sb *strings.Builder) {
	sb.WriteString("  <defs>\n")
	sb.WriteString("    <style type=\"text/css\">\n")
	sb.WriteString(fmt.Sprintf("      .title { font-family: %s; font-size: 28px; fill: %s; }\n",
		b.config.FontFamily, b.config.TextColor))
	sb.WriteString(fmt.Sprintf("      .token { font-family: %s; font-size: %dpx; fill: %s; }\n",
		b.config.FontFamily, b.config.FontSize, b.config.TextColor))
	sb.WriteString("    </style>\n")
	sb.WriteString("  </defs>\n")
}

func (b *MapSVGBuilder) writeMetadata(sb *strings.Builder) {
	sb.WriteString("  <!-- Generated by insight export -->\n")
	sb.WriteString(fmt.Sprintf("  <!-- Generated at: %s -->\n", time.Now().UTC().Format(time.RFC3339)))
	if b.config.ToolVersion != "" {
		sb.WriteString(fmt.Sprintf("  <!-- Tool version: %s -->\n", b.config.ToolVersion))
	}
	sb.WriteString(fmt.Sprintf("  <!-- Tokens: %d -->\n", len(b.m.Tokens)))
}

func (b *MapSVGBuilder) writeEdges(sb *strings.Builder, screen [][2]float64) {
	sb.WriteString("  <g class=\"edges\" stroke-linecap=\"round\">\n")
	for _, e := range Edges(b.m.Attention, b.config.EdgeThreshold) {
		p, q := screen[e.Source], screen[e.Target]
		if !finitePoint(p) || !finitePoint(q) {
			continue
		}
		sb.WriteString(fmt.Sprintf("    <line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-opacity=\"%.3f\" stroke-width=\"%.3f\"/>\n",
			p[0], p[1], q[0], q[1], b.config.EdgeColor, EdgeAlpha(e.Weight), e.Weight*b.config.EdgeWidthScale))
	}
	sb.WriteString("  </g>\n")
}

func (b *MapSVGBuilder) writeParticles(sb *strings.Builder, screen [][2]float64) {
	sb.WriteString("  <g class=\"particles\">\n")
	for _, p := range screen {
		if !finitePoint(p) {
			continue
		}
		sb.WriteString(fmt.Sprintf("    <circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.1f\" fill=\"%s\"/>\n",
			p[0], p[1], b.config.ParticleRadius, b.config.ParticleColor))
	}
	sb.WriteString("  </g>\n")
}

// writeLabels draws each token in a rounded box just above its particle.
// Box width follows the token's terminal display width so wide scripts
// get wider boxes.
func (b *MapSVGBuilder) writeLabels(sb *strings.Builder, screen [][2]float64) {
	fs := float64(b.config.FontSize)
	pad := 0.3 * fs
	sb.WriteString("  <g class=\"labels\">\n")
	for i, tok := range b.m.Tokens {
		p := screen[i]
		if !finitePoint(p) {
			continue
		}
		w := float64(runewidth.StringWidth(tok))*fs*0.6 + 2*pad
		h := fs + 2*pad
		x := p[0] - w/2
		y := p[1] - b.config.ParticleRadius - 4 - h
		sb.WriteString(fmt.Sprintf("    <rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" rx=\"%.1f\" fill=\"black\" fill-opacity=\"0.8\" stroke=\"%s\" stroke-width=\"1\"/>\n",
			x, y, w, h, pad, b.config.ParticleColor))
		sb.WriteString(fmt.Sprintf("    <text x=\"%.2f\" y=\"%.2f\" class=\"token\" text-anchor=\"middle\" dominant-baseline=\"middle\">%s</text>\n",
			p[0], y+h/2, escapeXML(tok)))
	}
	sb.WriteString("  </g>\n")
}

func (b *MapSVGBuilder) writeTitle(sb *strings.Builder, width int) {
	title := b.m.Title
	if title == "" {
		title = b.config.Title
	}
	if title == "" {
		return
	}
	sb.WriteString(fmt.Sprintf("  <text x=\"%d\" y=\"44\" class=\"title\" text-anchor=\"middle\">%s</text>\n",
		width/2, escapeXML(title)))
}

// escapeXML escapes special characters for XML/SVG content.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

// RenderSVG is a convenience function to render m with config.
func RenderSVG(w io.Writer, m ReasoningMap, config *SVGConfig) error {
	_, err := NewMapSVGBuilder(config).SetMap(m).WriteTo(w)
	return err
}
