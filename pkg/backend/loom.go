package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

// LastLayer asks the server for the final transformer layer.
const LastLayer = -1

// Loom connects to The Loom model server for hidden states and attention.
type Loom struct {
	name       string
	baseURL    string
	model      string
	layer      int
	httpClient *http.Client
}

// LoomConfig holds configuration for the Loom extractor.
type LoomConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Model   string        `yaml:"model"`
	Layer   int           `yaml:"layer"`
	Timeout time.Duration `yaml:"timeout"`
}

// NewLoom creates a new Loom extractor. A zero Layer means the last layer.
func NewLoom(cfg LoomConfig) *Loom {
	name := cfg.Name
	if name == "" {
		name = "loom"
	}
	url := cfg.URL
	if url == "" {
		url = "http://localhost:8080"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	layer := cfg.Layer
	if layer == 0 {
		layer = LastLayer
	}

	return &Loom{
		name:    name,
		baseURL: strings.TrimRight(url, "/"),
		model:   cfg.Model,
		layer:   layer,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (l *Loom) Name() string { return l.name }
func (l *Loom) Type() Type   { return TypeLoom }

func (l *Loom) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", l.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (l *Loom) Capabilities() Capabilities {
	return Capabilities{
		MaxTokens: 2048,
		RealModel: true,
	}
}

type loomRequest struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
	Layer int    `json:"layer"`
}

type loomResponse struct {
	Model      string      `json:"model"`
	Tokens     []string    `json:"tokens"`
	Embeddings [][]float64 `json:"embeddings"`
	// Attention is already averaged over heads. Servers that cannot
	// average send AttentionHeads instead, shaped [head][from][to].
	Attention      [][]float64   `json:"attention,omitempty"`
	AttentionHeads [][][]float64 `json:"attention_heads,omitempty"`
}

// Extract posts text to /v1/attention and returns the token features of
// the configured layer.
func (l *Loom) Extract(ctx context.Context, text string) (*Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ierrors.Code(ierrors.ErrExtractorEmptyText, "text is empty").
			WithContext("extractor", l.name)
	}

	body, err := json.Marshal(loomRequest{Model: l.model, Text: text, Layer: l.layer})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/v1/attention", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return nil, ierrors.CodeWrap(err, ierrors.ErrExtractorUnavailable,
			"could not reach the model server").
			WithContext("url", l.baseURL)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ierrors.Codef(ierrors.ErrExtractorAPIError,
			"loom returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))).
			WithContextf("status", "%d", resp.StatusCode).
			WithContext("url", l.baseURL)
	}

	var loomResp loomResponse
	if err := json.Unmarshal(respBody, &loomResp); err != nil {
		return nil, ierrors.CodeWrap(err, ierrors.ErrExtractorAPIError, "could not decode loom response")
	}

	attention := loomResp.Attention
	if attention == nil && len(loomResp.AttentionHeads) > 0 {
		attention, err = meanHeads(loomResp.AttentionHeads)
		if err != nil {
			return nil, err
		}
	}

	model := loomResp.Model
	if model == "" {
		model = l.model
	}

	ext := &Extraction{
		Text:       text,
		Tokens:     loomResp.Tokens,
		Embeddings: loomResp.Embeddings,
		Attention:  attention,
		Model:      model,
	}
	if err := ext.Validate(); err != nil {
		return nil, err
	}
	return ext, nil
}

// meanHeads averages per-head attention maps into one N×N matrix.
func meanHeads(heads [][][]float64) ([][]float64, error) {
	n := len(heads[0])
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for h, head := range heads {
		if len(head) != n {
			return nil, ierrors.ShapeMismatch(n, -1, len(head)).WithContextf("head", "%d", h)
		}
		for i, row := range head {
			if len(row) != n {
				return nil, ierrors.ShapeMismatch(n, i, len(row)).WithContextf("head", "%d", h)
			}
			floats.Add(out[i], row)
		}
	}
	for i := range out {
		floats.Scale(1/float64(len(heads)), out[i])
	}
	return out, nil
}

// WithModel returns a copy of l that requests model. The copy shares the
// HTTP client.
func (l *Loom) WithModel(model string) *Loom {
	cp := *l
	cp.model = model
	return &cp
}

// Model returns the current model.
func (l *Loom) Model() string { return l.model }

// String describes the extractor for logs.
func (l *Loom) String() string {
	return fmt.Sprintf("loom(%s, layer %d)", l.baseURL, l.layer)
}
