package structure

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Kind distinguishes rigid bars from tension-only strings. It is derived
// from stiffness, never stored independently: stiffness 0 means bar.
type Kind int

const (
	Bar Kind = iota
	String
)

func (k Kind) String() string {
	if k == Bar {
		return "bar"
	}
	return "string"
}

// Connection links an ordered chain of nodes. Two-node chains are the common
// case; longer chains measure length as the sum of consecutive segments.
//
// RestLength is derived once at construction: the initial geometric length,
// reduced by pretension/stiffness for strings so the stored natural length
// already reflects the requested initial tension (F = kx inverted).
type Connection struct {
	Nodes      []*Node
	Stiffness  float64
	RestLength float64
	Force      float64
	Name       string

	// original holds a snapshot of the node set at construction time.
	// Pin constraints reference original, not live, positions.
	original []*Node
}

func NewConnection(nodes []*Node, stiffness, pretension float64, name string) (*Connection, error) {
	if len(nodes) < 2 {
		return nil, ErrChainTooShort
	}
	if stiffness < 0 {
		return nil, fmt.Errorf("connection %q: %w", name, ErrNegativeStiffness)
	}
	if math.IsInf(stiffness, 1) {
		return nil, fmt.Errorf("connection %q: %w", name, ErrInfiniteStiffness)
	}

	original := make([]*Node, len(nodes))
	for i, n := range nodes {
		original[i] = n.Clone()
	}

	c := &Connection{
		Nodes:     nodes,
		Stiffness: stiffness,
		Force:     pretension,
		Name:      name,
		original:  original,
	}

	c.RestLength = c.GeometricLength()
	if stiffness > 0 {
		c.RestLength -= pretension / stiffness
	}
	return c, nil
}

// Kind reports bar for zero stiffness, string otherwise.
func (c *Connection) Kind() Kind {
	if c.Stiffness == 0 {
		return Bar
	}
	return String
}

// GeometricLength is the current chain length: the sum of Euclidean
// distances between each consecutive node pair, over all 3 coordinates.
func (c *Connection) GeometricLength() float64 {
	l := 0.0
	for i := 0; i < len(c.Nodes)-1; i++ {
		l += floats.Distance(c.Nodes[i].Position, c.Nodes[i+1].Position, 2)
	}
	return l
}

// Original returns the construction-time node snapshot.
func (c *Connection) Original() []*Node {
	return c.original
}
