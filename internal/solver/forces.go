package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/tensegrity/internal/structure"
)

// chainLength sums consecutive segment lengths over the working dimensions.
func (s *Solver) chainLength(pos [][]float64, c *structure.Connection) float64 {
	l := 0.0
	for i := 0; i < len(c.Nodes)-1; i++ {
		a := pos[s.nodeIndex[c.Nodes[i].Name]]
		b := pos[s.nodeIndex[c.Nodes[i+1].Name]]
		l += floats.Distance(a, b, 2)
	}
	return l
}

// energy is the objective: total stored elastic energy of the strings.
// Bars contribute nothing; their forces never enter the objective.
func (s *Solver) energy(pos [][]float64) float64 {
	e := 0.0
	for _, c := range s.strings {
		dl := s.chainLength(pos, c) - c.RestLength
		e += 0.5 * c.Stiffness * dl * dl
	}
	return e
}

// tension is the clamped Hooke's law: a string shorter than its rest length
// goes slack and exerts nothing, it never pushes.
func (s *Solver) tension(pos [][]float64, c *structure.Connection) float64 {
	return math.Max(0, c.Stiffness*(s.chainLength(pos, c)-c.RestLength))
}

// barResiduals evaluates the rigid-length equality constraints, one per
// bar: distance(endpoints) - rest.
func (s *Solver) barResiduals(pos [][]float64) []float64 {
	out := make([]float64, len(s.bars))
	for i, c := range s.bars {
		a := pos[s.nodeIndex[c.Nodes[0].Name]]
		b := pos[s.nodeIndex[c.Nodes[1].Name]]
		out[i] = floats.Distance(a, b, 2) - c.RestLength
	}
	return out
}

// accumulate tallies the net force on every node at the trial point. The
// tally is rebuilt from scratch on every evaluation; the minimizer probes
// arbitrary trial points, so nothing here may be cached across calls.
func (s *Solver) accumulate(pos [][]float64, barForces []float64) [][]float64 {
	forces := make([][]float64, len(s.st.Nodes))
	for i := range forces {
		forces[i] = make([]float64, s.d)
	}

	for _, c := range s.strings {
		f := s.tension(pos, c)

		for i := 0; i < len(c.Nodes)-1; i++ {
			ai := s.nodeIndex[c.Nodes[i].Name]
			bi := s.nodeIndex[c.Nodes[i+1].Name]
			a, b := pos[ai], pos[bi]

			norm := floats.Distance(a, b, 2)
			if norm == 0 {
				continue
			}
			for k := 0; k < s.d; k++ {
				u := (b[k] - a[k]) / norm
				forces[ai][k] += f * u
				forces[bi][k] -= f * u
			}
		}

		// An actuator routed through this string pulls its bound node
		// with the same tension along the fixed pull direction.
		if c.Name != "" {
			if ctrl, ok := s.st.Controls[c.Name]; ok {
				dir := ctrl.Direction[:s.d]
				norm := floats.Norm(dir, 2)
				if norm > 0 {
					ni := s.nodeIndex[ctrl.Node.Name]
					for k := 0; k < s.d; k++ {
						forces[ni][k] += f * dir[k] / norm
					}
				}
			}
		}
	}

	for _, c := range s.bars {
		ai := s.nodeIndex[c.Nodes[0].Name]
		bi := s.nodeIndex[c.Nodes[1].Name]
		a, b := pos[ai], pos[bi]

		norm := floats.Distance(a, b, 2)
		if norm == 0 {
			continue
		}
		bf := barForces[s.barIndex[c]]
		for k := 0; k < s.d; k++ {
			u := (b[k] - a[k]) / norm
			forces[ai][k] += bf * u
			forces[bi][k] -= bf * u
		}
	}

	return forces
}

// controlBias is the initial-guess nudge applied along each control's
// pull direction.
const controlBias = 1e-2

// biasControls shifts the free coordinates of every control-bound node a
// small step along the normalized pull direction. Symmetric rigs admit
// mirror equilibria with equal energy and residual; starting inside the
// actuator-consistent basin keeps the minimizer out of the mirror.
// Controls routed through slack strings exert nothing and get no bias.
func (s *Solver) biasControls(x []float64) {
	pos, _ := s.decode(x)

	k := 0
	for _, n := range s.st.Nodes {
		for a := 0; a < s.d; a++ {
			if s.st.Pinned(n.Name, a) {
				continue
			}
			for _, c := range s.strings {
				if c.Name == "" {
					continue
				}
				ctrl, ok := s.st.Controls[c.Name]
				if !ok || ctrl.Node != n {
					continue
				}
				if s.tension(pos, c) <= 0 {
					continue
				}
				dir := ctrl.Direction[:s.d]
				if norm := floats.Norm(dir, 2); norm > 0 {
					x[k] += controlBias * dir[a] / norm
				}
			}
			k++
		}
	}
}

// freeResiduals flattens the accumulated node forces and drops pinned
// axes, leaving one signed residual per free degree of freedom.
func (s *Solver) freeResiduals(pos [][]float64, barForces []float64) []float64 {
	forces := s.accumulate(pos, barForces)

	out := make([]float64, 0, s.freeDOFs())
	for i, n := range s.st.Nodes {
		for a := 0; a < s.d; a++ {
			if !s.st.Pinned(n.Name, a) {
				out = append(out, forces[i][a])
			}
		}
	}
	return out
}
