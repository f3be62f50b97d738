package solver_test

import (
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tensegrity/internal/solver"
	"github.com/san-kum/tensegrity/internal/structure"
)

func TestEquilibrium(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Equilibrium Suite")
}

// crossedBox is the classic planar tensegrity cell: two rigid bars crossing
// on the diagonals of a unit square, held by four pretensioned perimeter
// strings. At the unit square every string carries tension 2 and each bar
// carries compression -2*sqrt(2).
func crossedBox() (*structure.Structure, error) {
	names := []string{"n1", "n2", "n3", "n4"}
	coords := [][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}

	nodes := make([]*structure.Node, len(names))
	for i := range names {
		n, err := structure.NewNode(names[i], coords[i])
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}

	var conns []*structure.Connection
	for _, pair := range [][2]int{{0, 2}, {1, 3}} {
		bar, err := structure.NewConnection([]*structure.Node{nodes[pair[0]], nodes[pair[1]]}, 0, 0, "")
		if err != nil {
			return nil, err
		}
		conns = append(conns, bar)
	}
	for i := 0; i < 4; i++ {
		str, err := structure.NewConnection([]*structure.Node{nodes[i], nodes[(i+1)%4]}, 10, 2, "")
		if err != nil {
			return nil, err
		}
		conns = append(conns, str)
	}

	pins := map[string][]bool{
		"n1": {true, true},
		"n2": {false, true},
	}
	return structure.New(nodes, conns, pins, nil)
}

// netForce recomputes the force tally at a node from the public structure
// fields, independently of the solver's own bookkeeping.
func netForce(st *structure.Structure, name string, d int) []float64 {
	out := make([]float64, d)
	node, _ := st.Node(name)

	for _, c := range st.Connections {
		if c.Kind() == structure.String {
			f := c.Force
			for i := 0; i < len(c.Nodes)-1; i++ {
				a, b := c.Nodes[i], c.Nodes[i+1]
				norm := 0.0
				for k := 0; k < d; k++ {
					dk := b.Position[k] - a.Position[k]
					norm += dk * dk
				}
				norm = math.Sqrt(norm)
				if norm == 0 {
					continue
				}
				for k := 0; k < d; k++ {
					u := (b.Position[k] - a.Position[k]) / norm
					if a == node {
						out[k] += f * u
					}
					if b == node {
						out[k] -= f * u
					}
				}
			}
		} else {
			a, b := c.Nodes[0], c.Nodes[1]
			if a != node && b != node {
				continue
			}
			norm := 0.0
			for k := 0; k < d; k++ {
				dk := b.Position[k] - a.Position[k]
				norm += dk * dk
			}
			norm = math.Sqrt(norm)
			if norm == 0 {
				continue
			}
			for k := 0; k < d; k++ {
				u := (b.Position[k] - a.Position[k]) / norm
				if a == node {
					out[k] += c.Force * u
				} else {
					out[k] -= c.Force * u
				}
			}
		}
	}
	return out
}

var _ = Describe("crossed-bar box equilibrium", func() {
	var (
		st  *structure.Structure
		cfg solver.Config
	)

	BeforeEach(func() {
		var err error
		st, err = crossedBox()
		Expect(err).NotTo(HaveOccurred())

		cfg = solver.DefaultConfig()
		s, err := solver.New(st, cfg)
		Expect(err).NotTo(HaveOccurred())

		_, err = s.Solve()
		Expect(err).NotTo(HaveOccurred())
	})

	It("keeps every bar at its rest length", func() {
		for _, c := range st.Connections {
			if c.Kind() != structure.Bar {
				continue
			}
			Expect(c.GeometricLength()).To(BeNumerically("~", c.RestLength, 1e-3))
		}
	})

	It("balances forces at every free degree of freedom", func() {
		for _, n := range st.Nodes {
			f := netForce(st, n.Name, cfg.Dim)
			for a := 0; a < cfg.Dim; a++ {
				if st.Pinned(n.Name, a) {
					continue
				}
				Expect(math.Abs(f[a])).To(BeNumerically("<=", cfg.Epsilon+cfg.Tolerance))
			}
		}
	})

	It("records non-negative tension on every string", func() {
		for _, c := range st.Connections {
			if c.Kind() == structure.String {
				Expect(c.Force).To(BeNumerically(">=", 0))
			}
		}
	})

	It("leaves pinned axes untouched", func() {
		n1, _ := st.Node("n1")
		n2, _ := st.Node("n2")
		Expect(n1.Position[0]).To(Equal(0.0))
		Expect(n1.Position[1]).To(Equal(0.0))
		Expect(n2.Position[1]).To(Equal(0.0))
	})

	It("settles at the pretensioned unit square", func() {
		for _, c := range st.Connections {
			if c.Kind() == structure.String {
				Expect(c.Force).To(BeNumerically("~", 2.0, 0.2))
			} else {
				Expect(c.Force).To(BeNumerically("~", -2*math.Sqrt2, 0.3))
			}
		}

		n3, _ := st.Node("n3")
		Expect(n3.Position[0]).To(BeNumerically("~", 1.0, 0.05))
		Expect(n3.Position[1]).To(BeNumerically("~", 1.0, 0.05))
	})
})
