package runtime

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/export"
	"github.com/r3d91ll/insight/pkg/insight"
)

// Table selects which CSV table to write.
type Table string

const (
	TablePositions Table = "positions"
	TableEdges     Table = "edges"
)

// ParseTable accepts "positions" or "edges"; empty means positions.
func ParseTable(s string) (Table, error) {
	switch Table(s) {
	case "", TablePositions:
		return TablePositions, nil
	case TableEdges:
		return TableEdges, nil
	}
	return "", ierrors.InvalidInput("unknown table "+s).
		WithContext("valid_options", "positions, edges")
}

// ExportPath returns dir/<id><suffix>, or path when it is set.
func ExportPath(dir, path, id, suffix string) string {
	if path != "" {
		return path
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, id+suffix)
}

// WriteSVG renders an and writes it to path.
func WriteSVG(an *insight.Analysis, path string, cfg *export.SVGConfig) error {
	m := an.ReasoningMap()
	m.Title = cfg.Title
	var buf bytes.Buffer
	if err := export.RenderSVG(&buf, m, cfg); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

// WriteCSV writes one table of an to path.
func WriteCSV(an *insight.Analysis, path string, table Table, cfg *export.CSVConfig) error {
	var buf bytes.Buffer
	var err error
	if table == TableEdges {
		err = export.ExportEdgesCSV(&buf, an.ReasoningMap(), cfg)
	} else {
		err = export.ExportPositionsCSV(&buf, an.ReasoningMap(), cfg)
	}
	if err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

// WriteJSON writes the full analysis record to path.
func WriteJSON(an *insight.Analysis, path string) error {
	data, err := json.MarshalIndent(an, "", "  ")
	if err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrExportFailed, "could not encode analysis")
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return ierrors.CodeWrap(err, ierrors.ErrIOWriteFailed, "could not create export directory").
				WithContext("path", dir)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrIOWriteFailed, "could not write export").
			WithContext("path", path)
	}
	return nil
}
