package store

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
)

type ExportData struct {
	Metadata RunMetadata `json:"metadata"`
	Columns  []string    `json:"columns"`
	Steps    []Step      `json:"steps"`
}

// ExportJSON writes a complete run, metadata and all equilibria, as one
// JSON document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	steps, err := s.LoadSteps(runID)
	if err != nil {
		return err
	}
	columns, err := s.Columns(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Metadata: *meta, Columns: columns, Steps: steps})
}

// ExportCSV streams the run's equilibria table verbatim.
func (s *Store) ExportCSV(runID string, w io.Writer) error {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "equilibria.csv"))
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(w, file)
	return err
}
