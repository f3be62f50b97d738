package store

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/san-kum/tensegrity/internal/structure"
)

func sampleStructure(t *testing.T) *structure.Structure {
	t.Helper()

	a, err := structure.NewNode("a", []float64{0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	b, err := structure.NewNode("b", []float64{1, 0, 0})
	if err != nil {
		t.Fatal(err)
	}

	bar, err := structure.NewConnection([]*structure.Node{a, b}, 0, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	str, err := structure.NewConnection([]*structure.Node{a, b}, 10, 5, "String1")
	if err != nil {
		t.Fatal(err)
	}

	st, err := structure.New([]*structure.Node{a, b}, []*structure.Connection{bar, str}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func sampleRun(t *testing.T) (*Store, string, *structure.Structure) {
	t.Helper()

	st := sampleStructure(t)
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	meta := RunMetadata{
		Source:     "cells/box.yaml",
		Dim:        2,
		Epsilon:    0.1,
		Tolerance:  1e-4,
		Connection: "String1",
		Delta:      -0.05,
		Metrics:    map[string]float64{"max_tension": 5},
	}
	steps := []Step{
		Capture(st, 2, 0, 0),
		{Step: 1, Delta: -0.05, Forces: []float64{-5.5, 5.5}, Coords: []float64{0, 0, 0.98, 0}},
	}

	runID, err := s.Save(st, meta, steps)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return s, runID, st
}

func TestSaveAndLoad(t *testing.T) {
	s, runID, _ := sampleRun(t)

	if !strings.HasPrefix(runID, "box_") {
		t.Errorf("runID = %q, want box_<unix> derived from the source file", runID)
	}

	meta, err := s.Load(runID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.ID != runID || meta.Connection != "String1" || meta.Steps != 2 {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.Metrics["max_tension"] != 5 {
		t.Errorf("metrics not preserved: %v", meta.Metrics)
	}

	steps, err := s.LoadSteps(runID)
	if err != nil {
		t.Fatalf("LoadSteps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(steps))
	}
	if steps[1].Delta != -0.05 || len(steps[1].Forces) != 2 || len(steps[1].Coords) != 4 {
		t.Errorf("step mismatch: %+v", steps[1])
	}
	if steps[1].Forces[1] != 5.5 {
		t.Errorf("force roundtrip = %v, want 5.5", steps[1].Forces[1])
	}
}

func TestColumnsAndSeries(t *testing.T) {
	s, runID, _ := sampleRun(t)

	cols, err := s.Columns(runID)
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	want := []string{"f:bar1", "f:String1", "a:x", "a:y", "b:x", "b:y"}
	if len(cols) != len(want) {
		t.Fatalf("Columns = %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, cols[i], want[i])
		}
	}

	series, err := s.LoadSeries(runID, "f:String1")
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if len(series) != 2 || series[1] != 5.5 {
		t.Errorf("series = %v", series)
	}

	if _, err := s.LoadSeries(runID, "f:ghost"); err == nil {
		t.Error("unknown column should fail")
	}
}

func TestList(t *testing.T) {
	s, runID, _ := sampleRun(t)

	runs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != runID {
		t.Errorf("List = %+v", runs)
	}

	empty := New(t.TempDir() + "/never-created")
	runs, err = empty.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("List on missing dir = %v, %v; want empty, nil", runs, err)
	}
}

func TestCapture(t *testing.T) {
	st := sampleStructure(t)
	st.Connections[0].Force = -5
	st.Connections[1].Force = 5

	step := Capture(st, 2, 3, -0.15)
	if step.Step != 3 || step.Delta != -0.15 {
		t.Errorf("step header mismatch: %+v", step)
	}
	if len(step.Forces) != 2 || step.Forces[0] != -5 {
		t.Errorf("forces = %v", step.Forces)
	}
	// Two nodes, two working coordinates each.
	if len(step.Coords) != 4 || step.Coords[2] != 1 {
		t.Errorf("coords = %v", step.Coords)
	}
}

func TestExport(t *testing.T) {
	s, runID, _ := sampleRun(t)

	var buf bytes.Buffer
	if err := s.ExportJSON(runID, &buf); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if data.Metadata.ID != runID || len(data.Steps) != 2 {
		t.Errorf("export mismatch: %+v", data.Metadata)
	}

	buf.Reset()
	if err := s.ExportCSV(runID, &buf); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "step,delta,f:bar1,f:String1") {
		t.Errorf("csv header = %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}
}
