package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// filePermissions is the file mode of written records.
const filePermissions = 0o644

// ReadFile reads and parses the record at path.
// A missing file yields an error wrapping fs.ErrNotExist.
func ReadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	return Parse(data)
}

// ReadOrNew reads the record at path, or returns an empty one when the file
// does not exist.
func ReadOrNew(path string) (*Record, error) {
	if !Exists(path) {
		return New(), nil
	}
	return ReadFile(path)
}

// Parse parses record JSON.
func Parse(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse record JSON: %w", err)
	}
	if r.Version != CurrentVersion {
		return nil, &UnsupportedVersionError{Version: r.Version}
	}
	if r.Modules == nil {
		r.Modules = make(map[string]Entry)
	}
	return &r, nil
}

// WriteFile writes the record to path.
func (r *Record) WriteFile(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// WriteTo writes the record to w.
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	data, err := r.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Marshal serializes the record as indented JSON with sorted keys.
// URLs are written without HTML escaping.
func (r *Record) Marshal() ([]byte, error) {
	out := *r
	if out.Modules == nil {
		out.Modules = map[string]Entry{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return buf.Bytes(), nil
}

// Exists reports whether a file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
