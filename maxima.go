package peaks

import "math"

// NeighborhoodSize is the side length of the square window in which a
// candidate must be the highest sample.
const NeighborhoodSize = 7

// A Candidate is a local maximum that may become a peak.
type Candidate struct {
	Coord  Coord
	Height float64
}

// LocalMaxima returns the samples of g that equal the maximum of their
// NeighborhoodSize x NeighborhoodSize neighborhood, in row-major order.
// Windows are clipped at the edges of g. Samples equal to the minimum of g,
// missing samples, and samples excluded by mask are never returned. mask may
// be nil.
func LocalMaxima(g *Grid, mask *BorderMask) []Candidate {
	minZ, _ := g.Bounds()
	if math.IsNaN(minZ) {
		return nil
	}

	filtered := maximumFilter(g, NeighborhoodSize/2)

	var candidates []Candidate
	for index, z := range g.Samples {
		if !isFinite(z) || z == minZ || z != filtered[index] {
			continue
		}
		c := g.coord(index)
		if mask != nil && mask.Excluded(c) {
			continue
		}
		candidates = append(candidates, Candidate{
			Coord:  c,
			Height: z,
		})
	}
	candidatesTotal.Add(float64(len(candidates)))
	return candidates
}

// maximumFilter returns the maximum of each (2*radius+1)^2 window of g as a
// separable pass over rows and then columns. Missing samples never win.
func maximumFilter(g *Grid, radius int) []float64 {
	result := make([]float64, len(g.Samples))
	for i, z := range g.Samples {
		if isFinite(z) {
			result[i] = z
		} else {
			result[i] = math.Inf(-1)
		}
	}

	var f slidingMaximum
	line := make([]float64, max(g.Width, g.Height))

	for y := range g.Height {
		row := result[y*g.Width : (y+1)*g.Width]
		copy(line, row)
		f.filter(row, line[:g.Width], radius)
	}

	column := make([]float64, g.Height)
	for x := range g.Width {
		for y := range g.Height {
			line[y] = result[x+y*g.Width]
		}
		f.filter(column, line[:g.Height], radius)
		for y := range g.Height {
			result[x+y*g.Width] = column[y]
		}
	}

	return result
}

// A slidingMaximum computes running window maxima with a monotonic queue of
// indexes. Its buffer is reused between lines.
type slidingMaximum struct {
	queue []int
}

// filter sets dst[i] to the maximum of src[i-radius:i+radius+1], clipped to
// the bounds of src.
func (f *slidingMaximum) filter(dst, src []float64, radius int) {
	n := len(src)
	queue := f.queue[:0]
	head := 0
	next := 0
	for i := range n {
		for ; next < n && next <= i+radius; next++ {
			for len(queue) > head && src[queue[len(queue)-1]] <= src[next] {
				queue = queue[:len(queue)-1]
			}
			queue = append(queue, next)
		}
		for queue[head] < i-radius {
			head++
		}
		dst[i] = src[queue[head]]
	}
	f.queue = queue
}
