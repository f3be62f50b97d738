package structure

import "fmt"

// Structure aggregates nodes, connections, pin constraints and controls.
// It is passive data: the equilibrium solver mutates node positions and
// connection forces in place after a successful solve, and AdjustRestLength
// is the only other mutation entry point.
type Structure struct {
	Nodes       []*Node
	Connections []*Connection

	// Pins maps node name to a per-axis fixed flag. A node may be
	// partially pinned (fixed in x, free in y).
	Pins map[string][]bool

	// Controls is keyed by connection name, validated at construction.
	Controls map[string]*Control

	byName     map[string]*Node
	connByName map[string]*Connection
}

func New(nodes []*Node, connections []*Connection, pins map[string][]bool, controls []*Control) (*Structure, error) {
	s := &Structure{
		Nodes:       nodes,
		Connections: connections,
		Pins:        pins,
		Controls:    make(map[string]*Control, len(controls)),
		byName:      make(map[string]*Node, len(nodes)),
		connByName:  make(map[string]*Connection),
	}
	if s.Pins == nil {
		s.Pins = map[string][]bool{}
	}

	for _, n := range nodes {
		if _, ok := s.byName[n.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.Name)
		}
		s.byName[n.Name] = n
	}

	for _, c := range connections {
		for _, n := range c.Nodes {
			if s.byName[n.Name] != n {
				return nil, fmt.Errorf("connection %q references %q: %w", c.Name, n.Name, ErrUnknownNode)
			}
		}
		if c.Stiffness < 0 {
			return nil, fmt.Errorf("connection %q: %w", c.Name, ErrNegativeStiffness)
		}
		if c.Name != "" {
			s.connByName[c.Name] = c
		}
	}

	for name, axes := range s.Pins {
		if _, ok := s.byName[name]; !ok {
			return nil, fmt.Errorf("pin on %q: %w", name, ErrUnknownNode)
		}
		if len(axes) == 0 || len(axes) > 3 {
			return nil, fmt.Errorf("pin on %q: axis flags must have 1 to 3 entries", name)
		}
	}

	for _, ctrl := range controls {
		if ctrl.Connection == nil || ctrl.Connection.Name == "" {
			return nil, ErrUnnamedConnection
		}
		if s.connByName[ctrl.Connection.Name] != ctrl.Connection {
			return nil, fmt.Errorf("control: %w: %s", ErrUnknownConnection, ctrl.Connection.Name)
		}
		if s.byName[ctrl.Node.Name] != ctrl.Node {
			return nil, fmt.Errorf("control on %q: %w", ctrl.Node.Name, ErrUnknownNode)
		}
		s.Controls[ctrl.Connection.Name] = ctrl
	}

	return s, nil
}

// Node looks up a node by name.
func (s *Structure) Node(name string) (*Node, bool) {
	n, ok := s.byName[name]
	return n, ok
}

// Connection looks up a named connection.
func (s *Structure) Connection(name string) (*Connection, bool) {
	c, ok := s.connByName[name]
	return c, ok
}

// Named returns the named connections in declaration order.
func (s *Structure) Named() []*Connection {
	out := make([]*Connection, 0, len(s.connByName))
	for _, c := range s.Connections {
		if c.Name != "" {
			out = append(out, c)
		}
	}
	return out
}

// ConnectionIDs returns a stable display identifier per connection, in
// declaration order: the connection's own name when it has one, otherwise
// its kind with a 1-based ordinal within that kind ("bar1", "string2").
func (s *Structure) ConnectionIDs() []string {
	ids := make([]string, len(s.Connections))
	counts := map[Kind]int{}
	for i, c := range s.Connections {
		counts[c.Kind()]++
		if c.Name != "" {
			ids[i] = c.Name
		} else {
			ids[i] = fmt.Sprintf("%s%d", c.Kind(), counts[c.Kind()])
		}
	}
	return ids
}

// Pinned reports whether the given axis of a node is held fixed.
func (s *Structure) Pinned(name string, axis int) bool {
	axes, ok := s.Pins[name]
	if !ok || axis >= len(axes) {
		return false
	}
	return axes[axis]
}

// AdjustRestLength adds delta to the rest length of the named connection.
// This is the actuation surface: the sole external mutation between solves.
func (s *Structure) AdjustRestLength(name string, delta float64) error {
	c, ok := s.connByName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, name)
	}
	c.RestLength += delta
	return nil
}
