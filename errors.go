package peaks

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when the grid or the options cannot be
	// processed at all.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnreachableSaddle is reported when the saddle search never reaches
	// the higher neighbor, for example because missing data separates them.
	ErrUnreachableSaddle = errors.New("unreachable saddle")

	// ErrSaddleTimeout is reported when a single saddle search exceeds the
	// configured timeout.
	ErrSaddleTimeout = errors.New("saddle search timed out")
)

// An Anomaly records a candidate that was skipped because its metrics could
// not be computed.
type Anomaly struct {
	Coord  Coord
	Height float64
	Err    error
}

func (a Anomaly) Error() string {
	return fmt.Sprintf("candidate (%d,%d) height %g: %v", a.Coord.X, a.Coord.Y, a.Height, a.Err)
}

func (a Anomaly) Unwrap() error {
	return a.Err
}
