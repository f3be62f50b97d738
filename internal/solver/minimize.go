package solver

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// maxOuter bounds the augmented-Lagrangian multiplier updates wrapped
// around the inner quasi-Newton minimizer.
const maxOuter = 25

// Result reports a converged solve. The structure itself carries the
// updated positions and forces.
type Result struct {
	// Energy is the total stored elastic energy at the equilibrium.
	Energy float64

	// Residual is the largest net-force magnitude on any free degree of
	// freedom (must be <= Epsilon + Tolerance).
	Residual float64

	// BarViolation is the largest |length - rest| over all bars.
	BarViolation float64

	// Iterations and Evaluations count inner minimizer work across the
	// whole solve.
	Iterations  int
	Evaluations int
}

// Solve finds a force-balanced, bar-rigid local minimum of string elastic
// energy and writes it back into the structure. On failure the structure
// is left exactly as it was.
//
// The constrained problem is handled as an augmented Lagrangian: bar
// equalities carry multipliers lambda, the per-DOF residual inequalities
// |F| <= epsilon carry multipliers sigma, and the penalty weight mu grows
// until both constraint sets are satisfied to tolerance.
func (s *Solver) Solve() (*Result, error) {
	x := s.encode()

	// Fully pinned and bar-free: the geometry is fixed, only string
	// forces need refreshing.
	if len(x) == 0 {
		pos, barForces := s.decode(x)
		s.commit(pos, barForces)

		res := &Result{Energy: s.energy(pos)}
		for _, c := range s.barResiduals(pos) {
			res.BarViolation = math.Max(res.BarViolation, math.Abs(c))
		}
		for _, f := range s.freeResiduals(pos, barForces) {
			res.Residual = math.Max(res.Residual, math.Abs(f))
		}
		return res, nil
	}

	s.biasControls(x)

	lambda := make([]float64, len(s.bars))
	sigma := make([]float64, s.freeDOFs())
	mu := 10.0

	var (
		converged          bool
		status             optimize.Status
		maxBar, maxForce   float64
		iterations, nevals int
	)

	for outer := 0; outer < maxOuter; outer++ {
		obj := func(v []float64) float64 { return s.lagrangian(v, lambda, sigma, mu) }
		problem := optimize.Problem{
			Func: obj,
			Grad: func(grad, v []float64) {
				fd.Gradient(grad, obj, v, nil)
			},
		}
		settings := &optimize.Settings{
			MajorIterations: s.cfg.MaxIterations,
			Converger: &optimize.FunctionConverge{
				Absolute:   s.cfg.Tolerance * 1e-3,
				Iterations: 50,
			},
		}

		res, err := optimize.Minimize(problem, x, settings, &optimize.LBFGS{})
		if res == nil {
			return nil, &SolveError{
				Residual:     maxForce,
				BarViolation: maxBar,
				Iterations:   iterations,
				Status:       "minimizer error: " + err.Error(),
			}
		}
		// A line-search failure still yields a usable iterate; the
		// multiplier update below recovers on the next pass.
		x = res.X
		status = res.Status
		iterations += res.Stats.MajorIterations
		nevals += res.Stats.FuncEvaluations

		pos, barForces := s.decode(x)
		ceq := s.barResiduals(pos)
		residuals := s.freeResiduals(pos, barForces)

		maxBar = 0
		for _, c := range ceq {
			maxBar = math.Max(maxBar, math.Abs(c))
		}
		maxForce = 0
		for _, f := range residuals {
			maxForce = math.Max(maxForce, math.Abs(f))
		}

		if maxBar <= s.cfg.Tolerance && maxForce <= s.cfg.Epsilon+s.cfg.Tolerance {
			converged = true
			break
		}

		for i, c := range ceq {
			lambda[i] += mu * c
		}
		for j, f := range residuals {
			sigma[j] = math.Max(0, sigma[j]+mu*(math.Abs(f)-s.cfg.Epsilon))
		}
		mu = math.Min(mu*5, 1e8)
	}

	if !converged {
		return nil, &SolveError{
			Residual:     maxForce,
			BarViolation: maxBar,
			Iterations:   iterations,
			Status:       status.String(),
		}
	}

	pos, barForces := s.decode(x)
	s.commit(pos, barForces)

	return &Result{
		Energy:       s.energy(pos),
		Residual:     maxForce,
		BarViolation: maxBar,
		Iterations:   iterations,
		Evaluations:  nevals,
	}, nil
}

// lagrangian is the penalized objective evaluated at a trial point.
func (s *Solver) lagrangian(x, lambda, sigma []float64, mu float64) float64 {
	pos, barForces := s.decode(x)

	l := s.energy(pos)

	for i, c := range s.barResiduals(pos) {
		l += lambda[i]*c + 0.5*mu*c*c
	}

	for j, f := range s.freeResiduals(pos, barForces) {
		g := math.Abs(f) - s.cfg.Epsilon
		t := math.Max(0, g+sigma[j]/mu)
		l += 0.5*mu*t*t - sigma[j]*sigma[j]/(2*mu)
	}

	return l
}

// commit writes the converged state into the structure: node positions
// over the working dimensions, string forces recomputed from the converged
// geometry (strings are not decision variables), bar forces taken straight
// from the decision vector.
func (s *Solver) commit(pos [][]float64, barForces []float64) {
	for i, n := range s.st.Nodes {
		for a := 0; a < s.d; a++ {
			n.Position[a] = pos[i][a]
		}
	}

	for _, c := range s.strings {
		c.Force = s.tension(pos, c)
	}
	for _, c := range s.bars {
		c.Force = barForces[s.barIndex[c]]
	}

	s.warmBars = append(s.warmBars[:0], barForces...)
}
