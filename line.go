package peaks

import "slices"

// Line returns the pixels of the straight line from a to b, inclusive, using
// Bresenham's algorithm. The first element is a and the last is b. Line(b, a)
// returns the same pixels in reverse order.
func Line(a, b Coord) []Coord {
	if b.X < a.X || (b.X == a.X && b.Y < a.Y) {
		coords := Line(b, a)
		slices.Reverse(coords)
		return coords
	}
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	coords := make([]Coord, 0, max(dx, -dy)+1)
	err := dx + dy
	for c := a; ; {
		coords = append(coords, c)
		if c == b {
			return coords
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			c.X += sx
		}
		if e2 <= dx {
			err += dx
			c.Y += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	default:
		return 0
	}
}
