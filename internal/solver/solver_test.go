package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/tensegrity/internal/structure"
)

// barString builds the two-node rig: an anchor pinned at the origin and a
// free node at distance 1, joined by a rigid bar (rest 1) and a string of
// stiffness 10 pretensioned to rest length 0.5.
func barString(t *testing.T) *structure.Structure {
	t.Helper()

	a, _ := structure.NewNode("a", []float64{0, 0, 0})
	b, _ := structure.NewNode("b", []float64{1, 0, 0})

	bar, err := structure.NewConnection([]*structure.Node{a, b}, 0, 0, "bar1")
	if err != nil {
		t.Fatalf("bar: %v", err)
	}
	str, err := structure.NewConnection([]*structure.Node{a, b}, 10, 5, "s1")
	if err != nil {
		t.Fatalf("string: %v", err)
	}
	if math.Abs(str.RestLength-0.5) > 1e-12 {
		t.Fatalf("string rest length = %v, want 0.5", str.RestLength)
	}

	st, err := structure.New(
		[]*structure.Node{a, b},
		[]*structure.Connection{bar, str},
		map[string][]bool{"a": {true, true}},
		nil,
	)
	if err != nil {
		t.Fatalf("structure.New: %v", err)
	}
	return st
}

func TestNew_Validation(t *testing.T) {
	st := barString(t)

	if _, err := New(st, Config{Dim: 4}); !errors.Is(err, ErrDimension) {
		t.Errorf("dim 4: got %v", err)
	}
	if _, err := New(st, Config{Dim: 1}); !errors.Is(err, ErrDimension) {
		t.Errorf("dim 1: got %v", err)
	}

	st.Connections[1].Stiffness = -1
	if _, err := New(st, DefaultConfig()); !errors.Is(err, structure.ErrNegativeStiffness) {
		t.Errorf("negative stiffness: got %v", err)
	}
}

func TestConfigNormalization(t *testing.T) {
	st := barString(t)
	s, err := New(st, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cfg := s.Config()
	if cfg.Dim != 2 {
		t.Errorf("Dim = %d, want 2", cfg.Dim)
	}
	if cfg.Epsilon != DefaultEpsilon || cfg.Tolerance != DefaultTolerance {
		t.Errorf("tolerances not defaulted: %+v", cfg)
	}
	if cfg.BarForceSeed == 0 {
		t.Error("bar force seed must be non-zero")
	}
}

func TestEncodeDecode(t *testing.T) {
	st := barString(t)
	s, _ := New(st, DefaultConfig())

	x := s.encode()
	// 2 free coordinates (node b) + 1 bar force.
	if len(x) != 3 {
		t.Fatalf("len(x) = %d, want 3", len(x))
	}
	if x[0] != 1 || x[1] != 0 {
		t.Errorf("free coords = %v, want [1 0]", x[:2])
	}
	if x[2] != DefaultBarForceSeed {
		t.Errorf("bar seed = %v, want %v", x[2], DefaultBarForceSeed)
	}

	x[0], x[1], x[2] = 0.3, 0.7, -2.5
	pos, barForces := s.decode(x)

	if pos[0][0] != 0 || pos[0][1] != 0 {
		t.Errorf("pinned node decoded to %v, want origin", pos[0])
	}
	if pos[1][0] != 0.3 || pos[1][1] != 0.7 {
		t.Errorf("free node decoded to %v, want [0.3 0.7]", pos[1])
	}
	if barForces[0] != -2.5 {
		t.Errorf("bar force = %v, want -2.5", barForces[0])
	}
}

func TestPinnedFlat_Ascending(t *testing.T) {
	a, _ := structure.NewNode("a", []float64{0, 0, 0})
	b, _ := structure.NewNode("b", []float64{1, 0, 0})
	c, _ := structure.NewNode("c", []float64{2, 0, 0})
	bar, _ := structure.NewConnection([]*structure.Node{a, c}, 0, 0, "")
	st, _ := structure.New([]*structure.Node{a, b, c}, []*structure.Connection{bar},
		map[string][]bool{"c": {true, false}, "a": {false, true}}, nil)

	s, _ := New(st, DefaultConfig())
	idx := s.pinnedFlat()
	want := []int{1, 4} // a.y, c.x in flattened node-major order
	if len(idx) != len(want) {
		t.Fatalf("pinnedFlat = %v, want %v", idx, want)
	}
	for i := range want {
		if idx[i] != want[i] {
			t.Fatalf("pinnedFlat = %v, want %v", idx, want)
		}
	}
}

func TestSolve_BarString(t *testing.T) {
	st := barString(t)
	s, _ := New(st, DefaultConfig())

	res, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	bar, _ := st.Connection("bar1")
	str, _ := st.Connection("s1")

	if got := bar.GeometricLength(); math.Abs(got-1.0) > 1e-3 {
		t.Errorf("bar length = %v, want 1 (rigidity)", got)
	}
	if math.Abs(str.Force-5.0) > 0.05 {
		t.Errorf("string force = %v, want 5 (= k * 0.5)", str.Force)
	}
	if str.Force < 0 {
		t.Errorf("string force %v is negative", str.Force)
	}
	if math.Abs(bar.Force-(-5.0)) > 0.2 {
		t.Errorf("bar force = %v, want about -5 (compression)", bar.Force)
	}
	if res.Residual > s.cfg.Epsilon+s.cfg.Tolerance {
		t.Errorf("residual %v above epsilon", res.Residual)
	}
}

func TestSolve_PinInvariance(t *testing.T) {
	st := barString(t)
	anchor, _ := st.Node("a")
	anchor.Position[0] = 0.1234567890123
	anchor.Position[1] = -0.9876543210987

	s, _ := New(st, DefaultConfig())
	if _, err := s.Solve(); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if anchor.Position[0] != 0.1234567890123 || anchor.Position[1] != -0.9876543210987 {
		t.Errorf("pinned coordinates changed: %v", anchor.Position[:2])
	}
}

func TestSolve_SlackString(t *testing.T) {
	st := barString(t)
	// Stretch the rest length past the bar-enforced separation.
	if err := st.AdjustRestLength("s1", 1.5); err != nil {
		t.Fatalf("AdjustRestLength: %v", err)
	}

	s, _ := New(st, DefaultConfig())
	if _, err := s.Solve(); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	str, _ := st.Connection("s1")
	if str.Force != 0 {
		t.Errorf("slack string force = %v, want exactly 0", str.Force)
	}

	bar, _ := st.Connection("bar1")
	if math.Abs(bar.Force) > s.cfg.Epsilon+s.cfg.Tolerance {
		t.Errorf("unloaded bar force = %v, want within epsilon of 0", bar.Force)
	}
}

func TestSolve_ZeroActuationIdempotent(t *testing.T) {
	st := barString(t)
	s, _ := New(st, DefaultConfig())
	if _, err := s.Solve(); err != nil {
		t.Fatalf("first solve: %v", err)
	}

	free, _ := st.Node("b")
	str, _ := st.Connection("s1")
	x0, y0 := free.Position[0], free.Position[1]
	f0 := str.Force
	rest0 := str.RestLength

	if err := st.AdjustRestLength("s1", 0); err != nil {
		t.Fatalf("zero actuation: %v", err)
	}
	if str.RestLength != rest0 {
		t.Error("zero delta changed rest length")
	}

	if _, err := s.Solve(); err != nil {
		t.Fatalf("second solve: %v", err)
	}
	if math.Abs(free.Position[0]-x0) > 1e-2 || math.Abs(free.Position[1]-y0) > 1e-2 {
		t.Errorf("position moved under zero actuation: (%v,%v) -> %v", x0, y0, free.Position[:2])
	}
	if math.Abs(str.Force-f0) > 0.05 {
		t.Errorf("force changed under zero actuation: %v -> %v", f0, str.Force)
	}
}

func TestSolve_ActuationMonotonic(t *testing.T) {
	st := barString(t)
	s, _ := New(st, DefaultConfig())
	if _, err := s.Solve(); err != nil {
		t.Fatalf("initial solve: %v", err)
	}

	str, _ := st.Connection("s1")
	prev := str.Force

	for i := 0; i < 5; i++ {
		if err := st.AdjustRestLength("s1", -0.05); err != nil {
			t.Fatalf("actuate: %v", err)
		}
		if _, err := s.Solve(); err != nil {
			t.Fatalf("re-solve %d: %v", i, err)
		}
		if str.Force < prev-1e-3 {
			t.Fatalf("tension decreased after shortening: %v -> %v", prev, str.Force)
		}
		prev = str.Force
	}
}

// controlledRig pins an anchor at the origin and holds a free node on a
// rigid bar of length 1; the string between them is routed through a
// control pulling the free node along the given direction.
func controlledRig(t *testing.T, direction []float64) *structure.Structure {
	t.Helper()

	a, _ := structure.NewNode("a", []float64{0, 0, 0})
	b, _ := structure.NewNode("b", []float64{1, 0, 0})
	bar, _ := structure.NewConnection([]*structure.Node{a, b}, 0, 0, "")
	str, _ := structure.NewConnection([]*structure.Node{a, b}, 10, 5, "s1")
	ctrl, err := structure.NewControl(str, b, direction)
	if err != nil {
		t.Fatalf("control: %v", err)
	}
	st, err := structure.New([]*structure.Node{a, b}, []*structure.Connection{bar, str},
		map[string][]bool{"a": {true, true}}, []*structure.Control{ctrl})
	if err != nil {
		t.Fatalf("structure.New: %v", err)
	}
	return st
}

func TestSolve_ControlForce(t *testing.T) {
	// The net force at the free node must include the control term, so
	// the converged geometry leans against the pull.
	st := controlledRig(t, []float64{0, -1, 0})

	s, _ := New(st, DefaultConfig())
	pos, barForces := s.decode(s.encode())
	forces := s.accumulate(pos, barForces)

	// String pulls b toward a with tension 5 and the control adds
	// (0, -5); only the control contributes in y.
	if math.Abs(forces[1][1]-(-5.0)) > 1e-9 {
		t.Errorf("control force on free node y = %v, want -5", forces[1][1])
	}

	if _, err := s.Solve(); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	free, _ := st.Node("b")
	if free.Position[1] >= 0 {
		t.Errorf("free node did not lean against the pull: y = %v", free.Position[1])
	}

	// The committed state must balance forces including the control term.
	pos, barForces = s.decode(s.encode())
	for i, f := range s.freeResiduals(pos, barForces) {
		if math.Abs(f) > s.cfg.Epsilon+s.cfg.Tolerance {
			t.Errorf("committed residual %d = %v above epsilon", i, f)
		}
	}
}

func TestSolve_ControlMirror(t *testing.T) {
	// The rig admits two equal-energy equilibria, straight above and
	// straight below the anchor. The committed one must sit in the basin
	// the actuator pulls toward, for either pull direction.
	for _, tt := range []struct {
		name string
		dir  []float64
		sign float64
	}{
		{"pull down", []float64{0, -1, 0}, -1},
		{"pull up", []float64{0, 1, 0}, 1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			st := controlledRig(t, tt.dir)
			s, _ := New(st, DefaultConfig())
			if _, err := s.Solve(); err != nil {
				t.Fatalf("Solve: %v", err)
			}
			free, _ := st.Node("b")
			if free.Position[1]*tt.sign <= 0 {
				t.Errorf("free node y = %v, want sign %v", free.Position[1], tt.sign)
			}
		})
	}
}

func TestSolve_FullyPinned(t *testing.T) {
	// Every axis pinned and no bars: the geometry is fixed, so a solve
	// only refreshes string forces, and the diagnostics are computed from
	// the same residual evaluations as the general path.
	a, _ := structure.NewNode("a", []float64{0, 0, 0})
	b, _ := structure.NewNode("b", []float64{1, 0, 0})
	str, _ := structure.NewConnection([]*structure.Node{a, b}, 10, 5, "s1")
	str.Force = 123 // stale; must be recomputed on commit
	st, err := structure.New([]*structure.Node{a, b}, []*structure.Connection{str},
		map[string][]bool{"a": {true, true}, "b": {true, true}}, nil)
	if err != nil {
		t.Fatalf("structure.New: %v", err)
	}

	s, _ := New(st, DefaultConfig())
	res, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if str.Force != 5 {
		t.Errorf("string force = %v, want 5", str.Force)
	}
	// 0.5 * 10 * 0.5^2 with rest length 0.5.
	if math.Abs(res.Energy-1.25) > 1e-12 {
		t.Errorf("energy = %v, want 1.25", res.Energy)
	}
	if res.Residual != 0 || res.BarViolation != 0 {
		t.Errorf("diagnostics = (%v, %v), want zero with no free DOFs and no bars",
			res.Residual, res.BarViolation)
	}
}

func TestAccumulate_FreshPerEvaluation(t *testing.T) {
	st := barString(t)
	s, _ := New(st, DefaultConfig())

	pos, barForces := s.decode(s.encode())
	f1 := s.accumulate(pos, barForces)
	f2 := s.accumulate(pos, barForces)

	for i := range f1 {
		for k := range f1[i] {
			if f1[i][k] != f2[i][k] {
				t.Fatalf("accumulation not deterministic at node %d axis %d", i, k)
			}
		}
	}

	f1[0][0] = 999
	f3 := s.accumulate(pos, barForces)
	if f3[0][0] == 999 {
		t.Error("accumulation reused a cached tally")
	}
}
