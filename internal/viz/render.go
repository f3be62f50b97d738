package viz

import (
	"fmt"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/tensegrity/internal/structure"
)

// UnloadedThreshold is the axial force magnitude below which a bar is
// drawn as carrying no load.
const UnloadedThreshold = 1e-3

// Render draws the xy projection of a structure onto a braille canvas.
// Bars render solid (dash-dot when unloaded), strings dashed (dotted when
// slack). Pinned nodes get a cross marker, free nodes a plain block, and
// each control an arrow from its bound node along the pull direction.
func Render(st *structure.Structure, width, height int) string {
	c := NewCanvas(width, height)

	minX, minY, maxX, maxY := bounds(st)
	spanX := maxX - minX
	spanY := maxY - minY
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}

	// Sub-pixel drawing area with a margin so markers stay inside.
	pad := 3
	pw := width*2 - 1 - 2*pad
	ph := height*4 - 1 - 2*pad
	if pw < 1 {
		pw = 1
	}
	if ph < 1 {
		ph = 1
	}

	project := func(p []float64) (int, int) {
		x := pad + int(math.Round((p[0]-minX)/spanX*float64(pw)))
		// Canvas rows grow downward.
		y := pad + int(math.Round((maxY-p[1])/spanY*float64(ph)))
		return x, y
	}

	for _, conn := range st.Connections {
		s := strokeFor(conn)
		for i := 0; i < len(conn.Nodes)-1; i++ {
			x0, y0 := project(conn.Nodes[i].Position)
			x1, y1 := project(conn.Nodes[i+1].Position)
			c.DrawStroke(x0, y0, x1, y1, s)
		}
	}

	for _, ctrl := range st.Controls {
		drawControlArrow(c, project, ctrl)
	}

	for _, n := range st.Nodes {
		x, y := project(n.Position)
		if st.Pinned(n.Name, 0) || st.Pinned(n.Name, 1) || st.Pinned(n.Name, 2) {
			c.DrawPin(x, y)
		} else {
			c.DrawMarker(x, y)
		}
	}

	return c.String()
}

func strokeFor(c *structure.Connection) Stroke {
	if c.Kind() == structure.Bar {
		if math.Abs(c.Force) <= UnloadedThreshold {
			return DashDot
		}
		return Solid
	}
	if c.Force > 0 {
		return Dashed
	}
	return Dotted
}

func bounds(st *structure.Structure) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, n := range st.Nodes {
		minX = math.Min(minX, n.Position[0])
		maxX = math.Max(maxX, n.Position[0])
		minY = math.Min(minY, n.Position[1])
		maxY = math.Max(maxY, n.Position[1])
	}
	if len(st.Nodes) == 0 {
		return 0, 0, 1, 1
	}
	return minX, minY, maxX, maxY
}

func drawControlArrow(c *Canvas, project func([]float64) (int, int), ctrl *structure.Control) {
	dx, dy := ctrl.Direction[0], ctrl.Direction[1]
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		return
	}
	dx, dy = dx/norm, dy/norm

	x0, y0 := project(ctrl.Node.Position)
	length := 8.0
	x1 := x0 + int(math.Round(dx*length))
	y1 := y0 - int(math.Round(dy*length))
	c.DrawLine(x0, y0, x1, y1)

	// Arrowhead: two short flicks off the tip.
	px, py := -dy, dx
	c.DrawLine(x1, y1, x1-int(math.Round((dx+px)*2)), y1+int(math.Round((dy+py)*2)))
	c.DrawLine(x1, y1, x1-int(math.Round((dx-px)*2)), y1+int(math.Round((dy-py)*2)))
}

// ForceTable formats the member state summary: one row per connection in
// declaration order with geometry and axial force.
func ForceTable(st *structure.Structure) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tKIND\tLENGTH\tREST\tFORCE\tSTATE")
	ids := st.ConnectionIDs()
	for i, c := range st.Connections {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%+.4f\t%s\n",
			ids[i], c.Kind(), c.GeometricLength(), c.RestLength, c.Force, memberState(c))
	}
	w.Flush()
	return b.String()
}

func memberState(c *structure.Connection) string {
	if c.Kind() == structure.Bar {
		switch {
		case math.Abs(c.Force) <= UnloadedThreshold:
			return "unloaded"
		case c.Force < 0:
			return "compression"
		default:
			return "tension"
		}
	}
	if c.Force > 0 {
		return "taut"
	}
	return "slack"
}

// Legend describes the stroke patterns used by Render.
func Legend() string {
	return strings.Join([]string{
		"⣿⣿⣿ bar (loaded)   ⣶⣀⣶ bar (unloaded)",
		"⣶⣶⣀ string (taut)  ⣀⣀⣶ string (slack)",
		"⣿⣿ node            ⡯⡅ pinned node",
	}, "\n")
}
