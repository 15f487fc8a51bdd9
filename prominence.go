package peaks

import (
	"context"
	"errors"
	"math"
)

// A Prominence is a candidate that meets the prominence threshold.
type Prominence struct {
	Candidate
	Value float64
	// Approximate is true if Value is the straight line bound rather than the
	// exact prominence. It is never set when exact refinement is enabled.
	Approximate bool
}

// EvaluateProminence returns the candidates of g whose prominence meets the
// prominence threshold, in the order of candidates, which must be sorted with
// SortCandidates. Candidates whose saddle cannot be computed are skipped and
// returned as anomalies.
func EvaluateProminence(ctx context.Context, g *Grid, candidates []Candidate, options ...Option) ([]Prominence, []Anomaly, error) {
	o, err := newOptions(options...)
	if err != nil {
		return nil, nil, err
	}
	if err := g.validate(); err != nil {
		return nil, nil, err
	}
	return o.evaluateProminence(ctx, g, candidates)
}

type prominenceResult struct {
	prominence Prominence
	ok         bool
	anomaly    *Anomaly
}

func (o *options) evaluateProminence(ctx context.Context, g *Grid, candidates []Candidate) ([]Prominence, []Anomaly, error) {
	forest := NearestHigher(candidates)
	o.logger.Debug().
		Str("component", "peaks").
		Int("candidates", len(candidates)).
		Int("roots", len(forest.Roots())).
		Msg("linked candidates to nearest higher")

	results := make([]prominenceResult, len(candidates))
	searches := make([]*saddleSearch, o.concurrency)
	if err := parallel(ctx, len(candidates), o.concurrency, func(ctx context.Context, worker, index int) error {
		result, err := o.evaluateCandidate(ctx, g, candidates, forest, index, &searches[worker])
		results[index] = result
		return err
	}); err != nil {
		return nil, nil, err
	}

	var prominences []Prominence
	var anomalies []Anomaly
	for _, result := range results {
		switch {
		case result.anomaly != nil:
			anomaliesTotal.Inc()
			o.logger.Warn().
				Str("component", "peaks").
				Int("x", result.anomaly.Coord.X).
				Int("y", result.anomaly.Coord.Y).
				Float64("height", result.anomaly.Height).
				Err(result.anomaly.Err).
				Msg("skipped candidate")
			anomalies = append(anomalies, *result.anomaly)
		case result.ok:
			prominences = append(prominences, result.prominence)
		}
	}
	return prominences, anomalies, nil
}

// evaluateCandidate computes the prominence of candidates[index]. The
// straight line to the nearest higher candidate is one path between them, so
// its lowest sample bounds the saddle from below and the prominence from
// above. Only candidates that pass this bound pay for an exact search.
func (o *options) evaluateCandidate(ctx context.Context, g *Grid, candidates []Candidate, forest Forest, index int, search **saddleSearch) (prominenceResult, error) {
	c := candidates[index]
	parent := forest[index]
	if parent < 0 {
		return prominenceResult{
			prominence: Prominence{Candidate: c, Value: c.Height},
			ok:         c.Height >= o.prominenceThreshold,
		}, nil
	}

	bound := c.Height - lineSaddle(g, c.Coord, candidates[parent].Coord)
	if bound < o.prominenceThreshold {
		prunedCandidatesTotal.Inc()
		return prominenceResult{}, nil
	}
	if !o.exact {
		return prominenceResult{
			prominence: Prominence{Candidate: c, Value: bound, Approximate: true},
			ok:         true,
		}, nil
	}

	if *search == nil {
		*search = newSaddleSearch(g)
	}
	solveCtx, cancel := ctx, context.CancelFunc(func() {})
	if o.saddleTimeout > 0 {
		solveCtx, cancel = context.WithTimeout(ctx, o.saddleTimeout)
	}
	saddle, err := (*search).solve(solveCtx, c.Coord, candidates[parent].Coord)
	cancel()
	switch {
	case errors.Is(err, ErrUnreachableSaddle):
		return prominenceResult{anomaly: &Anomaly{Coord: c.Coord, Height: c.Height, Err: err}}, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return prominenceResult{anomaly: &Anomaly{Coord: c.Coord, Height: c.Height, Err: ErrSaddleTimeout}}, nil
	case err != nil:
		return prominenceResult{}, err
	}

	prominence := c.Height - saddle
	return prominenceResult{
		prominence: Prominence{Candidate: c, Value: prominence},
		ok:         prominence >= o.prominenceThreshold,
	}, nil
}

// lineSaddle returns the lowest sample on a 4-connected path that follows the
// straight line from a to b. Each diagonal step of the line passes through
// the higher of its two corner samples. If the path crosses missing data then
// lineSaddle returns -Inf, which bounds nothing.
func lineSaddle(g *Grid, a, b Coord) float64 {
	line := Line(a, b)
	saddle := math.Inf(1)
	for i, c := range line {
		z := g.At(c)
		if i > 0 {
			if prev := line[i-1]; prev.X != c.X && prev.Y != c.Y {
				corner := max(
					finiteOrNegInf(g.At(Coord{X: c.X, Y: prev.Y})),
					finiteOrNegInf(g.At(Coord{X: prev.X, Y: c.Y})),
				)
				saddle = min(saddle, corner)
			}
		}
		saddle = min(saddle, finiteOrNegInf(z))
	}
	return saddle
}

func finiteOrNegInf(z float64) float64 {
	if isFinite(z) {
		return z
	}
	return math.Inf(-1)
}
