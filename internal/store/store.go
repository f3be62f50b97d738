// Package store persists actuation runs: one directory per run holding
// metadata.json and equilibria.csv, one CSV row per solved equilibrium.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/tensegrity/internal/structure"
)

// Coordinate axis labels used in CSV headers, trimmed to the working
// dimension.
var axes = []string{"x", "y", "z"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Source     string             `json:"source"`
	Timestamp  time.Time          `json:"timestamp"`
	Dim        int                `json:"dimension"`
	Epsilon    float64            `json:"epsilon"`
	Tolerance  float64            `json:"tolerance"`
	Connection string             `json:"connection"`
	Delta      float64            `json:"delta"`
	Steps      int                `json:"steps"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Step is one solved equilibrium of an actuation run: the cumulative rest
// length change applied so far, every member force and every node
// coordinate, both in structure declaration order.
type Step struct {
	Step   int       `json:"step"`
	Delta  float64   `json:"delta"`
	Forces []float64 `json:"forces"`
	Coords []float64 `json:"coordinates"`
}

// Capture snapshots the current state of a solved structure as a Step.
func Capture(st *structure.Structure, dim, step int, delta float64) Step {
	out := Step{Step: step, Delta: delta}
	for _, c := range st.Connections {
		out.Forces = append(out.Forces, c.Force)
	}
	for _, n := range st.Nodes {
		out.Coords = append(out.Coords, n.Position[:dim]...)
	}
	return out
}

// Save writes a run directory and returns its ID. Column headers are
// derived from the structure so the CSV is self-describing: "f:<conn>"
// for forces, "<node>:<axis>" for coordinates.
func (s *Store) Save(st *structure.Structure, meta RunMetadata, steps []Step) (string, error) {
	base := strings.TrimSuffix(filepath.Base(meta.Source), filepath.Ext(meta.Source))
	if base == "" || base == "." {
		base = "run"
	}
	runID := fmt.Sprintf("%s_%d", base, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.Steps = len(steps)

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "equilibria.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{"step", "delta"}
	for _, id := range st.ConnectionIDs() {
		header = append(header, "f:"+id)
	}
	for _, n := range st.Nodes {
		for a := 0; a < meta.Dim; a++ {
			header = append(header, n.Name+":"+axes[a])
		}
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, step := range steps {
		row := []string{
			strconv.Itoa(step.Step),
			strconv.FormatFloat(step.Delta, 'f', 6, 64),
		}
		for _, f := range step.Forces {
			row = append(row, strconv.FormatFloat(f, 'f', 6, 64))
		}
		for _, x := range step.Coords {
			row = append(row, strconv.FormatFloat(x, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSteps reads the equilibria back. Force columns are recognized by
// their "f:" header prefix; everything after them is coordinates.
func (s *Store) LoadSteps(runID string) ([]Step, error) {
	header, records, err := s.readCSV(runID)
	if err != nil {
		return nil, err
	}

	nForces := 0
	for _, col := range header[2:] {
		if !strings.HasPrefix(col, "f:") {
			break
		}
		nForces++
	}

	steps := make([]Step, 0, len(records))
	for _, record := range records {
		if len(record) != len(header) {
			continue
		}

		n, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}
		delta, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}

		step := Step{Step: n, Delta: delta}
		for _, v := range record[2 : 2+nForces] {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("store: run %s: bad force value %q", runID, v)
			}
			step.Forces = append(step.Forces, f)
		}
		for _, v := range record[2+nForces:] {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("store: run %s: bad coordinate %q", runID, v)
			}
			step.Coords = append(step.Coords, x)
		}
		steps = append(steps, step)
	}

	return steps, nil
}

// LoadSeries extracts one named CSV column ("delta", "f:String1",
// "n3:x") as a float series, for plotting.
func (s *Store) LoadSeries(runID, column string) ([]float64, error) {
	header, records, err := s.readCSV(runID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, col := range header {
		if col == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("store: run %s has no column %q (have %s)", runID, column, strings.Join(header, ", "))
	}

	series := make([]float64, 0, len(records))
	for _, record := range records {
		if idx >= len(record) {
			continue
		}
		v, err := strconv.ParseFloat(record[idx], 64)
		if err != nil {
			continue
		}
		series = append(series, v)
	}
	return series, nil
}

// Columns returns the CSV header of a run, minus step and delta.
func (s *Store) Columns(runID string) ([]string, error) {
	header, _, err := s.readCSV(runID)
	if err != nil {
		return nil, err
	}
	return header[2:], nil
}

func (s *Store) readCSV(runID string) ([]string, [][]string, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "equilibria.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("store: run %s has an empty equilibria.csv", runID)
	}
	return records[0], records[1:], nil
}
