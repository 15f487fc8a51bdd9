package peaks

import (
	"container/heap"
	"context"
	"fmt"
	"math"
)

// cancellationCheckInterval is the number of queue pops between checks of the
// context.
const cancellationCheckInterval = 4096

var neighborOffsets = [4]Coord{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
}

// Saddle returns the height of the highest saddle between start and end: the
// maximum, over all 4-connected paths from start to end, of the minimum
// sample along the path. Missing samples are impassable. If end cannot be
// reached then Saddle returns an error wrapping ErrUnreachableSaddle.
func Saddle(ctx context.Context, g *Grid, start, end Coord) (float64, error) {
	if err := g.validate(); err != nil {
		return math.NaN(), err
	}
	if !g.InBounds(start) || !g.InBounds(end) {
		return math.NaN(), fmt.Errorf("%w: saddle endpoints (%d,%d) and (%d,%d) outside %dx%d grid",
			ErrInvalidInput, start.X, start.Y, end.X, end.Y, g.Width, g.Height)
	}
	return newSaddleSearch(g).solve(ctx, start, end)
}

// A saddleSearch holds the state of a maximin search over a grid. Its buffers
// are reused between solves, so a saddleSearch must not be shared between
// goroutines.
type saddleSearch struct {
	grid    *Grid
	best    []float64
	visited []bool
	queue   saddleQueue
}

func newSaddleSearch(g *Grid) *saddleSearch {
	return &saddleSearch{
		grid:    g,
		best:    make([]float64, len(g.Samples)),
		visited: make([]bool, len(g.Samples)),
	}
}

// solve runs the search. It is Dijkstra's algorithm with the sum of edge
// weights replaced by the minimum sample and the queue ordered by the
// largest bottleneck first.
func (s *saddleSearch) solve(ctx context.Context, start, end Coord) (float64, error) {
	if err := ctx.Err(); err != nil {
		return math.NaN(), err
	}

	g := s.grid
	for i := range s.best {
		s.best[i] = math.Inf(-1)
		s.visited[i] = false
	}
	s.queue = s.queue[:0]
	saddleSolvesTotal.Inc()

	startIndex, endIndex := g.index(start), g.index(end)
	if z := g.Samples[startIndex]; isFinite(z) {
		s.best[startIndex] = z
		heap.Push(&s.queue, saddleItem{index: startIndex, z: z})
	}

	for pops := 1; s.queue.Len() > 0; pops++ {
		if pops%cancellationCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return math.NaN(), err
			}
		}

		item := heap.Pop(&s.queue).(saddleItem)
		if s.visited[item.index] || item.z < s.best[item.index] {
			continue
		}
		s.visited[item.index] = true
		if item.index == endIndex {
			return item.z, nil
		}

		c := g.coord(item.index)
		for _, offset := range neighborOffsets {
			n := Coord{X: c.X + offset.X, Y: c.Y + offset.Y}
			if !g.InBounds(n) {
				continue
			}
			nIndex := g.index(n)
			nz := g.Samples[nIndex]
			if s.visited[nIndex] || !isFinite(nz) {
				continue
			}
			if bottleneck := min(item.z, nz); bottleneck > s.best[nIndex] {
				s.best[nIndex] = bottleneck
				heap.Push(&s.queue, saddleItem{index: nIndex, z: bottleneck})
			}
		}
	}

	return math.NaN(), fmt.Errorf("%w: from (%d,%d) to (%d,%d)", ErrUnreachableSaddle, start.X, start.Y, end.X, end.Y)
}

type saddleItem struct {
	index int
	z     float64
}

// A saddleQueue is a max-heap of saddleItems ordered by bottleneck height.
type saddleQueue []saddleItem

func (q saddleQueue) Len() int           { return len(q) }
func (q saddleQueue) Less(i, j int) bool { return q[i].z > q[j].z }
func (q saddleQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *saddleQueue) Push(x any) {
	*q = append(*q, x.(saddleItem))
}

func (q *saddleQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
