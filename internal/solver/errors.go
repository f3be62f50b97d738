package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConverged indicates the constrained minimizer exhausted its
	// budget without reaching a feasible equilibrium. The structure is
	// left untouched.
	ErrNotConverged = errors.New("solver: minimizer failed to reach a feasible equilibrium")

	// ErrDimension indicates an unsupported working dimensionality.
	ErrDimension = errors.New("solver: working dimension must be 2 or 3")
)

// SolveError carries diagnostic context for a failed solve, enough to
// distinguish an infeasible model from a tuning issue.
type SolveError struct {
	// Residual is the largest net force magnitude on any free degree of
	// freedom at the best iterate reached.
	Residual float64

	// BarViolation is the largest |length - rest| over all bars.
	BarViolation float64

	// Iterations counts minimizer iterations spent across the solve.
	Iterations int

	// Status is the underlying minimizer's final status.
	Status string
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("%v (residual=%.6g, bar violation=%.6g, iterations=%d, status=%s)",
		ErrNotConverged, e.Residual, e.BarViolation, e.Iterations, e.Status)
}

func (e *SolveError) Unwrap() error { return ErrNotConverged }
