// Package metrics derives scalar diagnostics from a solved structure.
package metrics

import (
	"math"

	"github.com/san-kum/tensegrity/internal/structure"
)

// ElasticEnergy is the total stored string energy, 0.5*k*dl^2 summed over
// taut strings. Bars and slack strings store nothing.
func ElasticEnergy(st *structure.Structure) float64 {
	e := 0.0
	for _, c := range st.Connections {
		if c.Kind() != structure.String {
			continue
		}
		dl := c.GeometricLength() - c.RestLength
		if dl > 0 {
			e += 0.5 * c.Stiffness * dl * dl
		}
	}
	return e
}

// MaxBarError is the largest rigidity violation: |length - rest| over bars.
func MaxBarError(st *structure.Structure) float64 {
	worst := 0.0
	for _, c := range st.Connections {
		if c.Kind() != structure.Bar {
			continue
		}
		if v := math.Abs(c.GeometricLength() - c.RestLength); v > worst {
			worst = v
		}
	}
	return worst
}

// MaxTension is the largest string tension.
func MaxTension(st *structure.Structure) float64 {
	worst := 0.0
	for _, c := range st.Connections {
		if c.Kind() == structure.String && c.Force > worst {
			worst = c.Force
		}
	}
	return worst
}

// MaxCompression is the most negative bar force, reported as a magnitude.
func MaxCompression(st *structure.Structure) float64 {
	worst := 0.0
	for _, c := range st.Connections {
		if c.Kind() == structure.Bar && -c.Force > worst {
			worst = -c.Force
		}
	}
	return worst
}

// SlackCount is the number of strings carrying no tension.
func SlackCount(st *structure.Structure) int {
	n := 0
	for _, c := range st.Connections {
		if c.Kind() == structure.String && c.Force <= 0 {
			n++
		}
	}
	return n
}

// Collect gathers every diagnostic into one map, keyed for CSV columns
// and plot labels.
func Collect(st *structure.Structure) map[string]float64 {
	return map[string]float64{
		"elastic_energy":  ElasticEnergy(st),
		"max_bar_error":   MaxBarError(st),
		"max_tension":     MaxTension(st),
		"max_compression": MaxCompression(st),
		"slack_strings":   float64(SlackCount(st)),
	}
}
