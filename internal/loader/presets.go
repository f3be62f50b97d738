package loader

import (
	"fmt"
	"sort"

	"github.com/san-kum/tensegrity/internal/structure"
)

// Presets are built-in structure descriptions, usable anywhere a
// description file path is accepted.
var Presets = map[string]string{
	"two-node": twoNodeYAML,
	"box":      boxYAML,
}

// LoadPreset parses one of the built-in descriptions.
func LoadPreset(name string) (*structure.Structure, error) {
	doc, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("loader: unknown preset %q", name)
	}
	return Parse([]byte(doc))
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// The smallest non-trivial cell: one bar and one pretensioned string
// sharing both endpoints. The string settles at tension 5, the bar at
// compression -5.
const twoNodeYAML = `nodes:
  anchor: [0, 0, 0]
  free: [1, 0, 0]

builders:
  strings:
    stiffness: 10
    pretension: 5

connections:
  bars:
    - [anchor, free]
  strings:
    - String1: [anchor, free]

pin:
  anchor: [true, true, true]
`

// The classic planar tensegrity cell: two bars crossing on the diagonals
// of a unit square, four pretensioned perimeter strings, one of them
// named and actuated.
const boxYAML = `nodes:
  n1: [0, 0, 0]
  n2: [1, 0, 0]
  n3: [1, 1, 0]
  n4: [0, 1, 0]

builders:
  strings:
    stiffness: 10
    pretension: 2

connections:
  bars:
    - [n1, n3]
    - [n2, n4]
  strings:
    - [n1, n2]
    - [n2, n3]
    - String1: [n3, n4]
    - [n4, n1]

pin:
  n1: [true, true]
  n2: [false, true]

control:
  String1:
    node: n3
    direction: [-0.25, 0, 0]
`
