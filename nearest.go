package peaks

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// A Forest records, for each candidate, the index of its nearest strictly
// higher candidate, or -1 if there is none. Because parents are strictly
// higher, the relation has no cycles.
type Forest []int

// Roots returns the indexes of the candidates without a higher candidate.
func (f Forest) Roots() []int {
	var roots []int
	for i, parent := range f {
		if parent < 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

// SortCandidates sorts candidates by descending height. Candidates of equal
// height keep their relative order.
func SortCandidates(candidates []Candidate) {
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Height, a.Height)
	})
}

// NearestHigher returns, for each candidate, the index of the nearest
// candidate by Euclidean distance with a strictly greater height. Candidates
// must be sorted with SortCandidates. When several higher candidates are
// equally near, the one with the lowest index wins.
//
// Higher candidates are accumulated in a k-d tree one height level at a time,
// so every query only sees strictly higher candidates.
func NearestHigher(candidates []Candidate) Forest {
	forest := make(Forest, len(candidates))
	tree := &kdtree.Tree{}
	for start := 0; start < len(candidates); {
		end := start + 1
		for end < len(candidates) && candidates[end].Height == candidates[start].Height {
			end++
		}

		for i := start; i < end; i++ {
			forest[i] = -1
			if tree.Root == nil {
				continue
			}
			q := newKDPoint(candidates[i], i)
			_, d := tree.Nearest(q)
			keeper := kdtree.NewDistKeeper(d)
			tree.NearestSet(keeper, q)
			for _, cd := range keeper.Heap {
				p, ok := cd.Comparable.(kdPoint)
				if !ok || cd.Dist > d {
					continue
				}
				if forest[i] < 0 || p.index < forest[i] {
					forest[i] = p.index
				}
			}
		}

		for i := start; i < end; i++ {
			tree.Insert(newKDPoint(candidates[i], i), false)
		}
		start = end
	}
	return forest
}

// A kdPoint is a candidate position in a k-d tree.
type kdPoint struct {
	x, y  float64
	index int
}

func newKDPoint(c Candidate, index int) kdPoint {
	return kdPoint{
		x:     float64(c.Coord.X),
		y:     float64(c.Coord.Y),
		index: index,
	}
}

func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdPoint)
	if d == 0 {
		return p.x - q.x
	}
	return p.y - q.y
}

func (p kdPoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance, which is exact for pixel
// coordinates.
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(kdPoint)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}
