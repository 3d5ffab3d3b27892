package poi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultExportName is used when Export is given an empty filename.
const DefaultExportName = "pois.json"

// FileWriter delivers an exported file to the user.
type FileWriter interface {
	WriteFile(ctx context.Context, name string, data []byte) error
}

// ExportJSON returns the collection as indented GeoJSON.
func (m *Manager) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(m.feed.peek(), "", "  ")
}

// Export serializes the collection and hands it to w.
func (m *Manager) Export(ctx context.Context, filename string, w FileWriter) error {
	if filename == "" {
		filename = DefaultExportName
	}
	data, err := m.ExportJSON()
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	return w.WriteFile(ctx, filename, data)
}

// DirWriter writes exported files into Dir. Only the base name of the
// requested filename is used.
type DirWriter struct {
	Dir string
}

func (d DirWriter) WriteFile(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	return os.WriteFile(filepath.Join(d.Dir, filepath.Base(name)), data, 0o644)
}
