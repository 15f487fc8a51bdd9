package peaks

import "fmt"

// A BorderMask excludes a frame of pixels around the edge of a grid from
// being reported as peaks. It never modifies elevations, so saddle and
// dominance computations still see the true terrain inside the frame.
type BorderMask struct {
	width  int
	height int
	border int
}

// NewBorderMask returns a new BorderMask for a width x height grid that
// excludes a frame border pixels wide.
func NewBorderMask(width, height, border int) (*BorderMask, error) {
	m := &BorderMask{
		width:  width,
		height: height,
	}
	if err := m.Apply(border); err != nil {
		return nil, err
	}
	return m, nil
}

// Apply widens the excluded frame to border pixels. Applying a width that is
// not wider than the current frame has no effect.
func (m *BorderMask) Apply(border int) error {
	if border < 0 || border > m.width || border > m.height {
		return fmt.Errorf("%w: border width %d for %dx%d grid", ErrInvalidInput, border, m.width, m.height)
	}
	m.border = max(m.border, border)
	return nil
}

// Border returns the width of the excluded frame.
func (m *BorderMask) Border() int {
	return m.border
}

// Excluded returns whether c lies within the excluded frame.
func (m *BorderMask) Excluded(c Coord) bool {
	return c.X < m.border || c.Y < m.border ||
		c.X >= m.width-m.border || c.Y >= m.height-m.border
}
