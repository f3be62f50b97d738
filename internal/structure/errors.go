package structure

import "errors"

// Domain errors for structure construction and mutation.
var (
	// ErrBadPosition indicates a node position without exactly 3 coordinates.
	ErrBadPosition = errors.New("structure: node position must contain exactly 3 coordinates")

	// ErrChainTooShort indicates a connection with fewer than 2 nodes.
	ErrChainTooShort = errors.New("structure: connection needs at least 2 nodes")

	// ErrNegativeStiffness indicates a connection with stiffness below zero.
	ErrNegativeStiffness = errors.New("structure: connection stiffness must be >= 0")

	// ErrInfiniteStiffness indicates a rigid-string request; bars with a
	// stress-strain law are unsupported.
	ErrInfiniteStiffness = errors.New("structure: infinite stiffness is unsupported, use a bar (stiffness 0)")

	// ErrUnknownNode indicates a reference to a node absent from the node list.
	ErrUnknownNode = errors.New("structure: unknown node")

	// ErrUnknownConnection indicates a reference to a connection name that
	// does not exist.
	ErrUnknownConnection = errors.New("structure: unknown connection name")

	// ErrUnnamedConnection indicates a control bound to a connection without
	// a name.
	ErrUnnamedConnection = errors.New("structure: control target connection must be named")

	// ErrDuplicateNode indicates two nodes sharing one name.
	ErrDuplicateNode = errors.New("structure: duplicate node name")

	// ErrBadDirection indicates a zero or wrongly-sized control direction.
	ErrBadDirection = errors.New("structure: control direction must be a non-zero 3-vector")
)
