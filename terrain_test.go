package peaks

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/alecthomas/assert/v2"
)

// newTestTerrain returns a width x height grid of rounded Gaussian hills.
// Rounding creates plateaus and equal heights.
func newTestTerrain(t testing.TB, width, height, hills int, seed uint64) *Grid {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, seed))
	samples := make([]float64, width*height)
	for range hills {
		cx := r.Float64() * float64(width)
		cy := r.Float64() * float64(height)
		amplitude := 50 + r.Float64()*950
		sigma := 2 + r.Float64()*float64(min(width, height))/6
		for y := range height {
			for x := range width {
				dx, dy := float64(x)-cx, float64(y)-cy
				samples[x+y*width] += amplitude * math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
			}
		}
	}
	for i := range samples {
		samples[i] = math.Round(samples[i])
	}
	g, err := NewGrid(width, height, samples)
	assert.NoError(t, err)
	return g
}

// newSparseGrid returns a width x height grid of zeros with the given
// samples set.
func newSparseGrid(t testing.TB, width, height int, samples map[Coord]float64) *Grid {
	t.Helper()
	g, err := NewGrid(width, height, make([]float64, width*height))
	assert.NoError(t, err)
	for c, z := range samples {
		g.Set(c, z)
	}
	return g
}
