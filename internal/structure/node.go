package structure

import "fmt"

// Node is a point mass / joint. The position always carries 3 coordinates
// even when the solver only works on the first d of them.
type Node struct {
	Name     string
	Position []float64
}

func NewNode(name string, position []float64) (*Node, error) {
	if len(position) != 3 {
		return nil, fmt.Errorf("node %q: %w", name, ErrBadPosition)
	}
	pos := make([]float64, 3)
	copy(pos, position)
	return &Node{Name: name, Position: pos}, nil
}

// Clone returns a deep copy. Used to snapshot original positions at
// connection construction time.
func (n *Node) Clone() *Node {
	pos := make([]float64, len(n.Position))
	copy(pos, n.Position)
	return &Node{Name: n.Name, Position: pos}
}

func (n *Node) String() string {
	return fmt.Sprintf("Node: %s  Position: %v", n.Name, n.Position)
}
