package peaks

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestLine(t *testing.T) {
	for _, tc := range []struct {
		a, b     Coord
		expected []Coord
	}{
		{
			a:        Coord{X: 2, Y: 3},
			b:        Coord{X: 2, Y: 3},
			expected: []Coord{{X: 2, Y: 3}},
		},
		{
			a:        Coord{X: 0, Y: 0},
			b:        Coord{X: 3, Y: 0},
			expected: []Coord{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}},
		},
		{
			a:        Coord{X: 0, Y: 0},
			b:        Coord{X: 0, Y: -2},
			expected: []Coord{{X: 0, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: -2}},
		},
		{
			a:        Coord{X: 0, Y: 0},
			b:        Coord{X: 3, Y: 3},
			expected: []Coord{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}},
		},
		{
			a:        Coord{X: 0, Y: 0},
			b:        Coord{X: 3, Y: 1},
			expected: []Coord{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 1}, {X: 3, Y: 1}},
		},
	} {
		assert.Equal(t, tc.expected, Line(tc.a, tc.b))
	}
}

func TestLineProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(0, 0))
	for range 1024 {
		a := Coord{X: r.IntN(41) - 20, Y: r.IntN(41) - 20}
		b := Coord{X: r.IntN(41) - 20, Y: r.IntN(41) - 20}
		line := Line(a, b)

		assert.Equal(t, a, line[0])
		assert.Equal(t, b, line[len(line)-1])
		assert.Equal(t, max(abs(b.X-a.X), abs(b.Y-a.Y))+1, len(line))
		for i := 1; i < len(line); i++ {
			assert.True(t, abs(line[i].X-line[i-1].X) <= 1 && abs(line[i].Y-line[i-1].Y) <= 1)
		}

		reversed := Line(b, a)
		slices.Reverse(reversed)
		assert.Equal(t, line, reversed)
	}
}
