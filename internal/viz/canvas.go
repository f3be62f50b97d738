package viz

import (
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Stroke is a repeating on/off pixel pattern applied along a line. Each
// member kind gets its own pattern so a monochrome terminal can still
// tell them apart.
type Stroke []bool

var (
	// Solid: a loaded bar.
	Solid = Stroke{true}
	// DashDot: a bar carrying no axial force.
	DashDot = Stroke{true, true, true, false, true, false}
	// Dashed: a string under tension.
	Dashed = Stroke{true, true, true, false, false}
	// Dotted: a slack string.
	Dotted = Stroke{true, false, false}
)

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800 // Empty braille char
		}
	}
	return c
}

// Set lights a pixel at (x, y) in sub-pixel coordinates. The canvas size
// in sub-pixels is (Width*2) x (Height*4).
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	subX := x % 2
	subY := y % 4

	c.Grid[row][col] |= rune(pixelMap[subY][subX])
}

// Clear resets the canvas
func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
}

// DrawLine draws a solid line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	c.DrawStroke(x0, y0, x1, y1, Solid)
}

// DrawStroke draws a line whose pixels follow the given on/off pattern.
func (c *Canvas) DrawStroke(x0, y0, x1, y1 int, s Stroke) {
	if len(s) == 0 {
		s = Solid
	}

	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	step := 0
	for {
		if s[step%len(s)] {
			c.Set(x0, y0)
		}
		step++
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawMarker lights a 2x2 block centered at (x, y), used for nodes.
func (c *Canvas) DrawMarker(x, y int) {
	c.Set(x, y)
	c.Set(x+1, y)
	c.Set(x, y+1)
	c.Set(x+1, y+1)
}

// DrawPin draws the anchored-node marker: a marker plus a small cross.
func (c *Canvas) DrawPin(x, y int) {
	c.DrawMarker(x, y)
	c.Set(x-1, y)
	c.Set(x+2, y)
	c.Set(x, y-1)
	c.Set(x, y+2)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
