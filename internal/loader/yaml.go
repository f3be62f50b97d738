// Package loader reads the declarative structure description format:
// named node coordinates, builder templates (stiffness + pretension
// presets applied to groups of connections), an optional pin section and
// an optional control section bound to named connections.
package loader

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tensegrity/internal/structure"
)

var (
	ErrInvalidDocument = errors.New("loader: invalid structure description")
	ErrMissingSection  = errors.New("loader: missing required section")
)

type builder struct {
	stiffness  float64
	pretension float64
}

// Load reads and parses a structure description file.
func Load(path string) (*structure.Structure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse builds a fully validated Structure from a description document.
// Node and connection declaration order is preserved: it determines the
// solver's variable packing and every downstream column ordering.
func Parse(data []byte) (*structure.Structure, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidDocument)
	}
	root := doc.Content[0]

	var nodesSec, buildersSec, connsSec, pinSec, controlSec *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		switch root.Content[i].Value {
		case "nodes":
			nodesSec = root.Content[i+1]
		case "builders":
			buildersSec = root.Content[i+1]
		case "connections":
			connsSec = root.Content[i+1]
		case "pin":
			pinSec = root.Content[i+1]
		case "control":
			controlSec = root.Content[i+1]
		}
	}
	if nodesSec == nil {
		return nil, fmt.Errorf("%w: nodes", ErrMissingSection)
	}
	if connsSec == nil {
		return nil, fmt.Errorf("%w: connections", ErrMissingSection)
	}

	nodes, byName, err := parseNodes(nodesSec)
	if err != nil {
		return nil, err
	}

	builders, err := parseBuilders(buildersSec)
	if err != nil {
		return nil, err
	}

	conns, named, err := parseConnections(connsSec, builders, byName)
	if err != nil {
		return nil, err
	}

	pins := map[string][]bool{}
	if pinSec != nil {
		if err := pinSec.Decode(&pins); err != nil {
			return nil, fmt.Errorf("%w: pin section: %v", ErrInvalidDocument, err)
		}
	}

	controls, err := parseControls(controlSec, named, byName)
	if err != nil {
		return nil, err
	}

	return structure.New(nodes, conns, pins, controls)
}

func parseNodes(sec *yaml.Node) ([]*structure.Node, map[string]*structure.Node, error) {
	if sec.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("%w: nodes must be a mapping", ErrInvalidDocument)
	}

	var nodes []*structure.Node
	byName := make(map[string]*structure.Node)

	for i := 0; i+1 < len(sec.Content); i += 2 {
		name := sec.Content[i].Value

		var coords []float64
		if err := sec.Content[i+1].Decode(&coords); err != nil {
			return nil, nil, fmt.Errorf("%w: node %q: %v", ErrInvalidDocument, name, err)
		}

		n, err := structure.NewNode(name, coords)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := byName[name]; dup {
			return nil, nil, fmt.Errorf("%w: %s", structure.ErrDuplicateNode, name)
		}
		nodes = append(nodes, n)
		byName[name] = n
	}
	return nodes, byName, nil
}

func parseBuilders(sec *yaml.Node) (map[string]builder, error) {
	builders := map[string]builder{}
	if sec == nil {
		return builders, nil
	}
	if sec.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: builders must be a mapping", ErrInvalidDocument)
	}

	for i := 0; i+1 < len(sec.Content); i += 2 {
		name := sec.Content[i].Value

		var raw struct {
			Stiffness  string  `yaml:"stiffness"`
			Pretension float64 `yaml:"pretension"`
		}
		if err := sec.Content[i+1].Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: builder %q: %v", ErrInvalidDocument, name, err)
		}

		b := builder{pretension: raw.Pretension}
		switch s := strings.TrimSpace(raw.Stiffness); s {
		case "":
			// Absent stiffness means a bar group.
		case "inf", "Inf", ".inf":
			return nil, fmt.Errorf("builder %q: %w", name, structure.ErrInfiniteStiffness)
		default:
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: builder %q stiffness %q", ErrInvalidDocument, name, s)
			}
			b.stiffness = v
		}
		builders[name] = b
	}
	return builders, nil
}

func parseConnections(sec *yaml.Node, builders map[string]builder, byName map[string]*structure.Node) ([]*structure.Connection, map[string]*structure.Connection, error) {
	if sec.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("%w: connections must be a mapping", ErrInvalidDocument)
	}

	var conns []*structure.Connection
	named := make(map[string]*structure.Connection)

	for i := 0; i+1 < len(sec.Content); i += 2 {
		group := sec.Content[i].Value
		list := sec.Content[i+1]
		if list.Kind != yaml.SequenceNode {
			return nil, nil, fmt.Errorf("%w: connection group %q must be a list", ErrInvalidDocument, group)
		}

		// Groups without a builder (e.g. "bars") default to rigid.
		b := builders[group]

		for _, item := range list.Content {
			name := ""
			chainNode := item

			// A single-key mapping names the connection: {Name: [a, b]}.
			if item.Kind == yaml.MappingNode {
				if len(item.Content) != 2 {
					return nil, nil, fmt.Errorf("%w: named connection in %q must map one name to one chain", ErrInvalidDocument, group)
				}
				name = item.Content[0].Value
				chainNode = item.Content[1]
			}

			var refs []string
			if err := chainNode.Decode(&refs); err != nil {
				return nil, nil, fmt.Errorf("%w: connection in %q: %v", ErrInvalidDocument, group, err)
			}

			chain := make([]*structure.Node, len(refs))
			for j, ref := range refs {
				n, ok := byName[ref]
				if !ok {
					return nil, nil, fmt.Errorf("connection in %q references %q: %w", group, ref, structure.ErrUnknownNode)
				}
				chain[j] = n
			}

			c, err := structure.NewConnection(chain, b.stiffness, b.pretension, name)
			if err != nil {
				return nil, nil, err
			}
			conns = append(conns, c)
			if name != "" {
				named[name] = c
			}
		}
	}
	return conns, named, nil
}

func parseControls(sec *yaml.Node, named map[string]*structure.Connection, byName map[string]*structure.Node) ([]*structure.Control, error) {
	if sec == nil {
		return nil, nil
	}
	if sec.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: control must be a mapping", ErrInvalidDocument)
	}

	var controls []*structure.Control
	for i := 0; i+1 < len(sec.Content); i += 2 {
		connName := sec.Content[i].Value

		var spec struct {
			Node      string    `yaml:"node"`
			Direction []float64 `yaml:"direction"`
		}
		if err := sec.Content[i+1].Decode(&spec); err != nil {
			return nil, fmt.Errorf("%w: control %q: %v", ErrInvalidDocument, connName, err)
		}

		conn, ok := named[connName]
		if !ok {
			return nil, fmt.Errorf("control %q: %w", connName, structure.ErrUnknownConnection)
		}
		node, ok := byName[spec.Node]
		if !ok {
			return nil, fmt.Errorf("control %q node %q: %w", connName, spec.Node, structure.ErrUnknownNode)
		}

		ctrl, err := structure.NewControl(conn, node, spec.Direction)
		if err != nil {
			return nil, err
		}
		controls = append(controls, ctrl)
	}
	return controls, nil
}
