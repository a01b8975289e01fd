package transform

import "github.com/chewxy/math32"

// Default cube lattice of the demo scene.
const (
	DefaultCubeCount = 32
	DefaultStep      = 2.25
)

// Grid is a square lattice of Count×Count cells spaced Step apart and
// centered on the world origin.
type Grid struct {
	Count int
	Step  float32
}

// DefaultGrid returns the 32×32 lattice with 2.25 spacing.
func DefaultGrid() Grid {
	return Grid{Count: DefaultCubeCount, Step: DefaultStep}
}

// Len returns the number of cells.
func (g Grid) Len() int { return g.Count * g.Count }

// Origin returns the coordinate of the first lattice line.
func (g Grid) Origin() float32 {
	return -g.Step * float32(g.Count-1) / 2
}

// Offset returns the world position of cell (i, j) at the given time.
// The height follows the radial ripple z = sin(sqrt(x²+y²) + time).
func (g Grid) Offset(i, j int, time float32) Vec3 {
	origin := g.Origin()
	x := origin + g.Step*float32(i)
	y := origin + g.Step*float32(j)
	return Vec3{x, y, Ripple(x, y, time)}
}

// World returns the world matrix of cell (i, j) at the given time.
func (g Grid) World(i, j int, time float32) Mat4 {
	p := g.Offset(i, j, time)
	return Translation(p[0], p[1], p[2])
}

// Ripple is the height field animating the grid.
func Ripple(x, y, time float32) float32 {
	return math32.Sin(math32.Sqrt(x*x+y*y) + time)
}
