// Package solver computes static equilibria of planar tensegrity
// structures. A solve is one call into a constrained nonlinear minimizer:
// string elastic energy is minimized subject to a rigid-length equality per
// bar and a bounded net-force residual per free degree of freedom. Bar
// axial forces have no stress-strain law, so they enter the decision vector
// as auxiliary unknowns rather than derived quantities.
package solver

import (
	"fmt"
	"math"

	"github.com/san-kum/tensegrity/internal/structure"
)

const (
	DefaultEpsilon       = 1e-1
	DefaultTolerance     = 1e-4
	DefaultMaxIterations = 1000
)

// DefaultBarForceSeed is the fixed non-zero initial guess for every bar
// force unknown. Seeding at zero leaves the force-balance constraints with
// a degenerate starting Jacobian.
var DefaultBarForceSeed = -5 * math.Sqrt2

type Config struct {
	// Dim is the working dimensionality: only the first Dim coordinates
	// of each node are optimized. 2 or 3.
	Dim int

	// Epsilon bounds the net-force residual allowed on each free degree
	// of freedom: |F| <= Epsilon stands in for exact equilibrium.
	Epsilon float64

	// Tolerance is the convergence tolerance on bar-length violations.
	Tolerance float64

	// MaxIterations caps the inner minimizer per solve.
	MaxIterations int

	// BarForceSeed is the initial guess for bar force unknowns on a cold
	// start. Must be non-zero.
	BarForceSeed float64
}

func DefaultConfig() Config {
	return Config{
		Dim:           2,
		Epsilon:       DefaultEpsilon,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		BarForceSeed:  DefaultBarForceSeed,
	}
}

// Solver owns the optimization problem for one structure. It may be reused
// across solves; repeated solves warm-start from the current node positions
// and the previous solve's bar forces.
type Solver struct {
	st  *structure.Structure
	cfg Config
	d   int

	bars    []*structure.Connection
	strings []*structure.Connection

	nodeIndex map[string]int
	barIndex  map[*structure.Connection]int

	warmBars []float64
}

func New(st *structure.Structure, cfg Config) (*Solver, error) {
	if cfg.Dim == 0 {
		cfg.Dim = 2
	}
	if cfg.Dim < 2 || cfg.Dim > 3 {
		return nil, fmt.Errorf("%w: got %d", ErrDimension, cfg.Dim)
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.BarForceSeed == 0 {
		cfg.BarForceSeed = DefaultBarForceSeed
	}

	s := &Solver{
		st:        st,
		cfg:       cfg,
		d:         cfg.Dim,
		nodeIndex: make(map[string]int, len(st.Nodes)),
		barIndex:  make(map[*structure.Connection]int),
	}

	for i, n := range st.Nodes {
		s.nodeIndex[n.Name] = i
	}

	for _, c := range st.Connections {
		switch {
		case c.Stiffness > 0:
			s.strings = append(s.strings, c)
		case c.Stiffness == 0:
			s.bars = append(s.bars, c)
		default:
			return nil, fmt.Errorf("connection %q: %w", c.Name, structure.ErrNegativeStiffness)
		}
	}
	for i, c := range s.bars {
		s.barIndex[c] = i
	}

	return s, nil
}

// Config returns the effective (normalized) configuration.
func (s *Solver) Config() Config { return s.cfg }

// pinnedFlat derives the flattened node-major indices of pinned axes, in
// ascending order. Re-derived on every call rather than cached so the
// free/pinned partition always reflects the current pin set.
func (s *Solver) pinnedFlat() []int {
	var idx []int
	for i, n := range s.st.Nodes {
		for a := 0; a < s.d; a++ {
			if s.st.Pinned(n.Name, a) {
				idx = append(idx, i*s.d+a)
			}
		}
	}
	return idx
}

func (s *Solver) freeDOFs() int {
	return len(s.st.Nodes)*s.d - len(s.pinnedFlat())
}

// encode builds the decision vector: free node coordinates (node-major,
// pinned axes removed) followed by one force unknown per bar.
func (s *Solver) encode() []float64 {
	x := make([]float64, 0, s.freeDOFs()+len(s.bars))
	for _, n := range s.st.Nodes {
		for a := 0; a < s.d; a++ {
			if !s.st.Pinned(n.Name, a) {
				x = append(x, n.Position[a])
			}
		}
	}

	if len(s.warmBars) == len(s.bars) {
		x = append(x, s.warmBars...)
	} else {
		for range s.bars {
			x = append(x, s.cfg.BarForceSeed)
		}
	}
	return x
}

// decode splits a decision vector into per-node d-vectors and bar forces,
// reinserting pinned-axis values from the live node positions. Reinsertion
// happens in ascending flattened index order by construction.
func (s *Solver) decode(x []float64) (pos [][]float64, barForces []float64) {
	nb := len(s.bars)
	coords := x[:len(x)-nb]

	pos = make([][]float64, len(s.st.Nodes))
	k := 0
	for i, n := range s.st.Nodes {
		p := make([]float64, s.d)
		for a := 0; a < s.d; a++ {
			if s.st.Pinned(n.Name, a) {
				p[a] = n.Position[a]
			} else {
				p[a] = coords[k]
				k++
			}
		}
		pos[i] = p
	}

	return pos, x[len(x)-nb:]
}
