package peaks

import "math"

// DistanceTransform returns, for each true cell of the width x height
// row-major mask, the Euclidean distance in pixels to the nearest false cell,
// and zero for every false cell. If mask has no false cells then every
// distance is +Inf.
//
// It is the exact transform of Felzenszwalb and Huttenlocher: a lower
// envelope of parabolas over each column, and then over each row.
func DistanceTransform(mask []bool, width, height int) []float64 {
	dist := make([]float64, len(mask))
	for i, background := range mask {
		if background {
			dist[i] = math.Inf(1)
		}
	}

	n := max(width, height)
	f := make([]float64, n)
	d := make([]float64, n)
	e := newLowerEnvelope(n)

	for x := range width {
		for y := range height {
			f[y] = dist[x+y*width]
		}
		e.transform(d[:height], f[:height])
		for y := range height {
			dist[x+y*width] = d[y]
		}
	}

	for y := range height {
		row := dist[y*width : (y+1)*width]
		copy(f, row)
		e.transform(row, f[:width])
	}

	for i, d2 := range dist {
		dist[i] = math.Sqrt(d2)
	}
	return dist
}

// A lowerEnvelope computes one-dimensional squared distance transforms. Its
// buffers are reused between lines.
type lowerEnvelope struct {
	v []int
	z []float64
}

func newLowerEnvelope(n int) *lowerEnvelope {
	return &lowerEnvelope{
		v: make([]int, n),
		z: make([]float64, n+1),
	}
}

// transform sets d[q] to the minimum over p of (q-p)^2 + f[p]. Cells where f
// is +Inf contribute nothing.
func (e *lowerEnvelope) transform(d, f []float64) {
	k := -1
	for q, fq := range f {
		if math.IsInf(fq, 1) {
			continue
		}
		if k < 0 {
			k = 0
			e.v[0] = q
			e.z[0] = math.Inf(-1)
			e.z[1] = math.Inf(1)
			continue
		}
		s := e.intersect(f, q, e.v[k])
		for s <= e.z[k] {
			k--
			s = e.intersect(f, q, e.v[k])
		}
		k++
		e.v[k] = q
		e.z[k] = s
		e.z[k+1] = math.Inf(1)
	}

	if k < 0 {
		for q := range d {
			d[q] = math.Inf(1)
		}
		return
	}

	k = 0
	for q := range d {
		for e.z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - e.v[k])
		d[q] = dq*dq + f[e.v[k]]
	}
}

// intersect returns the position at which the parabolas rooted at q and p
// intersect.
func (e *lowerEnvelope) intersect(f []float64, q, p int) float64 {
	return ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*q-2*p)
}

// Dominance returns the Euclidean distance in pixels from c to the nearest
// other sample of g that is at least as high as c, or +Inf if there is none.
// Missing samples are never targets.
func Dominance(g *Grid, c Coord) float64 {
	h := g.At(c)
	self := g.index(c)
	mask := make([]bool, len(g.Samples))
	for i, z := range g.Samples {
		mask[i] = i == self || !isFinite(z) || z < h
	}
	dominanceTransformsTotal.Inc()
	return DistanceTransform(mask, g.Width, g.Height)[self]
}
