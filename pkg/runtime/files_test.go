package runtime

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/export"
	"github.com/r3d91ll/insight/pkg/insight"
)

func runOnce(t *testing.T) *insight.Analysis {
	t.Helper()
	mgr, err := New(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	an, err := mgr.Run(context.Background(), "maps of meaning", Request{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return an
}

func TestParseTable(t *testing.T) {
	tests := []struct {
		in      string
		want    Table
		wantErr bool
	}{
		{"", TablePositions, false},
		{"positions", TablePositions, false},
		{"edges", TableEdges, false},
		{"tokens", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTable(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTable(%q) error = %v", tt.in, err)
			continue
		}
		if err != nil && !ierrors.IsCode(err, ierrors.ErrInvalidInput) {
			t.Errorf("ParseTable(%q) code = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseTable(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportPath(t *testing.T) {
	if got := ExportPath("maps", "", "abc", ".svg"); got != filepath.Join("maps", "abc.svg") {
		t.Errorf("ExportPath = %q", got)
	}
	if got := ExportPath("maps", "out.svg", "abc", ".svg"); got != "out.svg" {
		t.Errorf("explicit path should win, got %q", got)
	}
	if got := ExportPath("", "", "abc", ".csv"); got != "abc.csv" {
		t.Errorf("ExportPath without dir = %q", got)
	}
}

func TestWriteFiles(t *testing.T) {
	an := runOnce(t)
	dir := filepath.Join(t.TempDir(), "nested")

	svgPath := filepath.Join(dir, "map.svg")
	cfg := export.DefaultSVGConfig()
	cfg.Title = "Meaning"
	if err := WriteSVG(an, svgPath, cfg); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	data, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") || !strings.Contains(string(data), "Meaning") {
		t.Errorf("unexpected SVG content %.80s", data)
	}

	csvPath := filepath.Join(dir, "edges.csv")
	if err := WriteCSV(an, csvPath, TableEdges, export.DefaultCSVConfig()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Errorf("edges CSV missing or empty: %v", err)
	}

	jsonPath := filepath.Join(dir, "an.json")
	if err := WriteJSON(an, jsonPath); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	raw, _ := os.ReadFile(jsonPath)
	var back insight.Analysis
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("analysis JSON does not decode: %v", err)
	}
	if back.Hash != an.Hash {
		t.Errorf("hash = %q, want %q", back.Hash, an.Hash)
	}
}

func TestWriteFile_Unwritable(t *testing.T) {
	an := runOnce(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	err := WriteJSON(an, filepath.Join(blocker, "sub", "an.json"))
	if !ierrors.IsCode(err, ierrors.ErrIOWriteFailed) {
		t.Errorf("error = %v, want IO_WRITE_FAILED", err)
	}
}
