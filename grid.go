package peaks

import (
	"fmt"
	"math"
)

// A Coord is a pixel coordinate. X is the column and Y is the row.
type Coord struct {
	X int
	Y int
}

// A Number is any sample type that can be converted to an elevation.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint |
		~float32 | ~float64
}

// A Grid is a dense, row-major grid of elevation samples. Non-finite samples
// are treated as missing data.
type Grid struct {
	Width   int
	Height  int
	Samples []float64
}

// NewGrid returns a new Grid of the given size backed by samples.
func NewGrid(width, height int, samples []float64) (*Grid, error) {
	switch {
	case width <= 0 || height <= 0:
		return nil, fmt.Errorf("%w: empty grid %dx%d", ErrInvalidInput, width, height)
	case len(samples) != width*height:
		return nil, fmt.Errorf("%w: got %d samples, expected %d", ErrInvalidInput, len(samples), width*height)
	}
	return &Grid{
		Width:   width,
		Height:  height,
		Samples: samples,
	}, nil
}

// NewGridFromRows returns a new Grid copied from rows.
func NewGridFromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrInvalidInput)
	}
	width := len(rows[0])
	samples := make([]float64, 0, width*len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d samples, expected %d", ErrInvalidInput, y, len(row), width)
		}
		samples = append(samples, row...)
	}
	return NewGrid(width, len(rows), samples)
}

// GridOf returns a new Grid with samples converted to float64.
func GridOf[T Number](width, height int, samples []T) (*Grid, error) {
	converted := make([]float64, len(samples))
	for i, sample := range samples {
		converted[i] = float64(sample)
	}
	return NewGrid(width, height, converted)
}

// At returns the sample at c.
func (g *Grid) At(c Coord) float64 {
	return g.Samples[g.index(c)]
}

// Set sets the sample at c.
func (g *Grid) Set(c Coord, z float64) {
	g.Samples[g.index(c)] = z
}

// InBounds returns whether c is inside g.
func (g *Grid) InBounds(c Coord) bool {
	return 0 <= c.X && c.X < g.Width && 0 <= c.Y && c.Y < g.Height
}

// Bounds returns the minimum and maximum finite samples in g. If g has no
// finite samples then both are NaN.
func (g *Grid) Bounds() (float64, float64) {
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, z := range g.Samples {
		if !isFinite(z) {
			continue
		}
		minZ = min(minZ, z)
		maxZ = max(maxZ, z)
	}
	if minZ > maxZ {
		return math.NaN(), math.NaN()
	}
	return minZ, maxZ
}

// clone returns a deep copy of g.
func (g *Grid) clone() *Grid {
	samples := make([]float64, len(g.Samples))
	copy(samples, g.Samples)
	return &Grid{
		Width:   g.Width,
		Height:  g.Height,
		Samples: samples,
	}
}

func (g *Grid) validate() error {
	switch {
	case g == nil || g.Width <= 0 || g.Height <= 0:
		return fmt.Errorf("%w: empty grid", ErrInvalidInput)
	case len(g.Samples) != g.Width*g.Height:
		return fmt.Errorf("%w: got %d samples, expected %d", ErrInvalidInput, len(g.Samples), g.Width*g.Height)
	default:
		return nil
	}
}

func (g *Grid) index(c Coord) int {
	return c.X + c.Y*g.Width
}

func (g *Grid) coord(index int) Coord {
	return Coord{X: index % g.Width, Y: index / g.Width}
}

func isFinite(z float64) bool {
	return !math.IsNaN(z) && !math.IsInf(z, 0)
}
