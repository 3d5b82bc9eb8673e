package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/merchctl/internal/model"
)

// Bundle collects several named files into one zip archive.
type Bundle struct {
	entries []bundleEntry
}

type bundleEntry struct {
	name string
	data []byte
}

// AddCSV adds a CSV document. Unlike single exports, empty row sets still produce a
// header-only file so every bundle has the same layout.
func (b *Bundle) AddCSV(name string, columns []string, rows []model.Row) {
	b.entries = append(b.entries, bundleEntry{name: name, data: Bytes(columns, rows)})
}

// AddJSON adds v as indented JSON.
func (b *Bundle) AddJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	b.entries = append(b.entries, bundleEntry{name: name, data: data})
	return nil
}

// Names lists the entries in insertion order.
func (b *Bundle) Names() []string {
	names := make([]string, len(b.entries))
	for i, e := range b.entries {
		names[i] = e.name
	}
	return names
}

// Zip returns the archive.
func (b *Bundle) Zip() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range b.entries {
		f, err := zw.Create(e.name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", e.name, err)
		}
		if _, err := f.Write(e.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
