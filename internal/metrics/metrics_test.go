package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/tensegrity/internal/structure"
)

func stretchedPair(t *testing.T) *structure.Structure {
	t.Helper()

	a, err := structure.NewNode("a", []float64{0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	b, err := structure.NewNode("b", []float64{2, 0, 0})
	if err != nil {
		t.Fatal(err)
	}

	// Rest length 2, then stretched by moving b out to x=3.
	str, err := structure.NewConnection([]*structure.Node{a, b}, 4, 0, "s")
	if err != nil {
		t.Fatal(err)
	}
	bar, err := structure.NewConnection([]*structure.Node{a, b}, 0, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	b.Position[0] = 3

	st, err := structure.New([]*structure.Node{a, b}, []*structure.Connection{str, bar}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestElasticEnergy(t *testing.T) {
	st := stretchedPair(t)

	// dl = 1, k = 4: energy 0.5*4*1 = 2.
	if got := ElasticEnergy(st); math.Abs(got-2) > 1e-12 {
		t.Errorf("ElasticEnergy = %v, want 2", got)
	}

	// Slack strings store nothing.
	st.Connections[0].RestLength = 5
	if got := ElasticEnergy(st); got != 0 {
		t.Errorf("slack ElasticEnergy = %v, want 0", got)
	}
}

func TestMaxBarError(t *testing.T) {
	st := stretchedPair(t)

	// The bar's rest length was captured at length 2; b moved to x=3.
	if got := MaxBarError(st); math.Abs(got-1) > 1e-12 {
		t.Errorf("MaxBarError = %v, want 1", got)
	}
}

func TestForceExtremes(t *testing.T) {
	st := stretchedPair(t)
	st.Connections[0].Force = 4
	st.Connections[1].Force = -7

	if got := MaxTension(st); got != 4 {
		t.Errorf("MaxTension = %v, want 4", got)
	}
	if got := MaxCompression(st); got != 7 {
		t.Errorf("MaxCompression = %v, want 7", got)
	}
	if got := SlackCount(st); got != 0 {
		t.Errorf("SlackCount = %v, want 0", got)
	}

	st.Connections[0].Force = 0
	if got := SlackCount(st); got != 1 {
		t.Errorf("SlackCount = %v, want 1", got)
	}
}

func TestCollect(t *testing.T) {
	st := stretchedPair(t)
	got := Collect(st)

	for _, key := range []string{"elastic_energy", "max_bar_error", "max_tension", "max_compression", "slack_strings"} {
		if _, ok := got[key]; !ok {
			t.Errorf("Collect missing %q", key)
		}
	}
}
