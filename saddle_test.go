package peaks

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestSaddle(t *testing.T) {
	for _, tc := range []struct {
		name     string
		rows     [][]float64
		start    Coord
		end      Coord
		expected float64
	}{
		{
			name: "ridge",
			rows: [][]float64{
				{0, 0, 0, 0, 0},
				{9, 6, 7, 5, 8},
				{0, 0, 0, 0, 0},
			},
			start:    Coord{X: 0, Y: 1},
			end:      Coord{X: 4, Y: 1},
			expected: 5,
		},
		{
			name: "detour",
			rows: [][]float64{
				{0, 4, 4, 4, 0},
				{9, 4, 1, 4, 8},
				{0, 0, 0, 0, 0},
			},
			start:    Coord{X: 0, Y: 1},
			end:      Coord{X: 4, Y: 1},
			expected: 4,
		},
		{
			name: "diagonal_is_not_connected",
			rows: [][]float64{
				{9, 1},
				{2, 8},
			},
			start:    Coord{X: 0, Y: 0},
			end:      Coord{X: 1, Y: 1},
			expected: 2,
		},
		{
			name: "same_cell",
			rows: [][]float64{
				{3, 7},
			},
			start:    Coord{X: 1, Y: 0},
			end:      Coord{X: 1, Y: 0},
			expected: 7,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g, err := NewGridFromRows(tc.rows)
			assert.NoError(t, err)
			actual, err := Saddle(t.Context(), g, tc.start, tc.end)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)

			actual, err = Saddle(t.Context(), g, tc.end, tc.start)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestSaddleUnreachable(t *testing.T) {
	nan := math.NaN()
	g, err := NewGridFromRows([][]float64{
		{9, nan, 1},
		{2, nan, 8},
		{3, nan, 2},
	})
	assert.NoError(t, err)
	_, err = Saddle(t.Context(), g, Coord{X: 0, Y: 0}, Coord{X: 2, Y: 1})
	assert.IsError(t, err, ErrUnreachableSaddle)
}

func TestSaddleOutOfBounds(t *testing.T) {
	g, err := NewGridFromRows([][]float64{{1, 2}})
	assert.NoError(t, err)
	_, err = Saddle(t.Context(), g, Coord{X: 0, Y: 0}, Coord{X: 2, Y: 0})
	assert.IsError(t, err, ErrInvalidInput)
}

func TestSaddleCanceled(t *testing.T) {
	g := newSparseGrid(t, 200, 200, map[Coord]float64{
		{X: 10, Y: 10}:   5,
		{X: 190, Y: 190}: 6,
	})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := Saddle(ctx, g, Coord{X: 10, Y: 10}, Coord{X: 190, Y: 190})
	assert.IsError(t, err, context.Canceled)
}

// bruteForceSaddle returns the highest level at which start and end are
// connected by samples at or above that level.
func bruteForceSaddle(g *Grid, start, end Coord) float64 {
	best := math.NaN()
	for _, level := range g.Samples {
		if !isFinite(level) || level <= best {
			continue
		}
		if g.At(start) < level || g.At(end) < level {
			continue
		}
		seen := make([]bool, len(g.Samples))
		queue := []Coord{start}
		seen[g.index(start)] = true
		for len(queue) > 0 {
			c := queue[0]
			queue = queue[1:]
			if c == end {
				best = level
				break
			}
			for _, offset := range neighborOffsets {
				n := Coord{X: c.X + offset.X, Y: c.Y + offset.Y}
				if !g.InBounds(n) || seen[g.index(n)] || !(g.At(n) >= level) {
					continue
				}
				seen[g.index(n)] = true
				queue = append(queue, n)
			}
		}
	}
	return best
}

func TestSaddleMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(0, 0))
	for range 256 {
		width, height := 1+r.IntN(12), 1+r.IntN(12)
		samples := make([]float64, width*height)
		for i := range samples {
			samples[i] = float64(r.IntN(20))
		}
		g, err := NewGrid(width, height, samples)
		assert.NoError(t, err)
		start := Coord{X: r.IntN(width), Y: r.IntN(height)}
		end := Coord{X: r.IntN(width), Y: r.IntN(height)}

		actual, err := Saddle(t.Context(), g, start, end)
		assert.NoError(t, err)
		assert.Equal(t, bruteForceSaddle(g, start, end), actual)
	}
}

func TestSaddleSearchReuse(t *testing.T) {
	g := newTestTerrain(t, 64, 48, 12, 1)
	s := newSaddleSearch(g)
	r := rand.New(rand.NewPCG(1, 1))
	for range 32 {
		start := Coord{X: r.IntN(g.Width), Y: r.IntN(g.Height)}
		end := Coord{X: r.IntN(g.Width), Y: r.IntN(g.Height)}
		expected, err := Saddle(t.Context(), g, start, end)
		assert.NoError(t, err)
		actual, err := s.solve(t.Context(), start, end)
		assert.NoError(t, err)
		assert.Equal(t, expected, actual)
	}
}

func BenchmarkSaddle(b *testing.B) {
	g := newTestTerrain(b, 512, 512, 64, 0)
	s := newSaddleSearch(g)
	r := rand.New(rand.NewPCG(0, 0))
	b.ResetTimer()
	for range b.N {
		start := Coord{X: r.IntN(g.Width), Y: r.IntN(g.Height)}
		end := Coord{X: r.IntN(g.Width), Y: r.IntN(g.Height)}
		_, err := s.solve(b.Context(), start, end)
		assert.NoError(b, err)
	}
}
