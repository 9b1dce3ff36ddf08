// Package document reads and writes the grouped indicator document.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"indicator-spec/specs"
)

// DefaultPath is where extract writes when a dataset names no output.
const DefaultPath = "data.json"

var ErrPeriodNotFound = errors.New("period not found")

// Write encodes the document, indented by two spaces when indent is set.
func Write(w io.Writer, grouped specs.GroupedSpec, indent bool) error {
	data, err := encode(grouped, indent)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// WriteFile writes the document to path through a temporary file in the same
// directory, so readers never see a partial document. Returns the size written.
func WriteFile(path string, grouped specs.GroupedSpec, indent bool) (int64, error) {
	data, err := encode(grouped, indent)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create document directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("create document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("write document: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return 0, fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("write document: %w", err)
	}
	return int64(len(data)), nil
}

func encode(grouped specs.GroupedSpec, indent bool) ([]byte, error) {
	data, err := json.Marshal(grouped)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if indent {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return nil, fmt.Errorf("encode document: %w", err)
		}
		data = buf.Bytes()
	}
	return append(data, '\n'), nil
}

// Read decodes a document.
func Read(r io.Reader) (specs.GroupedSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return specs.GroupedSpec{}, fmt.Errorf("read document: %w", err)
	}
	var grouped specs.GroupedSpec
	if err := json.Unmarshal(data, &grouped); err != nil {
		return specs.GroupedSpec{}, fmt.Errorf("decode document: %w", err)
	}
	return grouped, nil
}

// ReadFile decodes the document at path.
func ReadFile(path string) (specs.GroupedSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return specs.GroupedSpec{}, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Period returns one period group, or ErrPeriodNotFound.
func Period(grouped specs.GroupedSpec, period int) (specs.PeriodGroupSpec, error) {
	group, ok := grouped.Lookup(period)
	if !ok {
		return specs.PeriodGroupSpec{}, fmt.Errorf("%w: %d", ErrPeriodNotFound, period)
	}
	return group, nil
}
