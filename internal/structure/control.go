package structure

import "gonum.org/v1/gonum/floats"

// Control models an external actuator: whenever its connection is under
// tension F, the bound node receives an extra force of magnitude F along
// the (normalized) pull direction.
type Control struct {
	Connection *Connection
	Node       *Node
	Direction  []float64
}

func NewControl(conn *Connection, node *Node, direction []float64) (*Control, error) {
	if conn.Name == "" {
		return nil, ErrUnnamedConnection
	}
	if len(direction) != 3 || floats.Norm(direction, 2) == 0 {
		return nil, ErrBadDirection
	}
	dir := make([]float64, 3)
	copy(dir, direction)
	return &Control{Connection: conn, Node: node, Direction: dir}, nil
}
