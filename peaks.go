// Package peaks finds topographically significant summits in a digital
// elevation model and measures their prominence and dominance.
package peaks

import (
	"context"
	"math"
	"time"
)

// A Peak is a summit that passed every threshold.
type Peak struct {
	Coord      Coord
	Height     float64
	Prominence float64
	// Dominance is the distance in pixels to the nearest other sample at
	// least as high. It is +Inf for the first peak in height order.
	Dominance float64
	// Approximate is true if Prominence is an upper bound from a straight
	// line path rather than the exact value.
	Approximate bool
}

// OrographicDominance returns p's prominence as a percentage of its height.
func (p Peak) OrographicDominance() float64 {
	return orographicDominance(p.Height, p.Prominence)
}

// A Result is the result of FindPeaks.
type Result struct {
	// Peaks are sorted by descending height. Peaks of equal height are in
	// row-major order.
	Peaks []Peak
	// Candidates is the number of local maxima considered.
	Candidates int
	// Anomalies are candidates that were skipped.
	Anomalies []Anomaly
}

// FindPeaks returns the peaks of g. g is not modified.
//
// Local maxima outside the border frame are evaluated for prominence, sorted
// by descending height, and then filtered by minimum height, orographic
// dominance, and dominance, in that order.
func FindPeaks(ctx context.Context, g *Grid, options ...Option) (*Result, error) {
	o, err := newOptions(options...)
	if err != nil {
		return nil, err
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	mask, err := NewBorderMask(g.Width, g.Height, o.borderWidth)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger := o.logger.With().Str("component", "peaks").Logger()
	if !o.exact {
		logger.Warn().Msg("exact refinement disabled, prominences may be overestimated")
	}

	candidates := LocalMaxima(g, mask)
	SortCandidates(candidates)
	logger.Debug().
		Int("width", g.Width).
		Int("height", g.Height).
		Int("candidates", len(candidates)).
		Msg("found local maxima")

	prominences, anomalies, err := o.evaluateProminence(ctx, g, candidates)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int("prominent", len(prominences)).
		Int("anomalies", len(anomalies)).
		Msg("evaluated prominence")

	peaks, err := o.filterPeaks(ctx, g, prominences)
	if err != nil {
		return nil, err
	}
	peaksFoundTotal.Add(float64(len(peaks)))

	logger.Info().
		Int("candidates", len(candidates)).
		Int("peaks", len(peaks)).
		Int("anomalies", len(anomalies)).
		Dur("duration", time.Since(start)).
		Msg("found peaks")

	return &Result{
		Peaks:      peaks,
		Candidates: len(candidates),
		Anomalies:  anomalies,
	}, nil
}

// filterPeaks applies the minimum height, orographic dominance, and
// dominance thresholds to prominences, which are sorted by descending height.
func (o *options) filterPeaks(ctx context.Context, g *Grid, prominences []Prominence) ([]Peak, error) {
	var peaks []Peak
	for i, p := range prominences {
		if p.Height < o.minHeight {
			continue
		}
		if orographicDominance(p.Height, p.Value) < o.orographicThreshold {
			continue
		}
		peak := Peak{
			Coord:       p.Coord,
			Height:      p.Height,
			Prominence:  p.Value,
			Dominance:   math.NaN(),
			Approximate: p.Approximate,
		}
		// No earlier prominent candidate is at least as high.
		if i == 0 {
			peak.Dominance = math.Inf(1)
		}
		peaks = append(peaks, peak)
	}

	if err := parallel(ctx, len(peaks), o.concurrency, func(ctx context.Context, _, index int) error {
		if math.IsNaN(peaks[index].Dominance) {
			peaks[index].Dominance = Dominance(g, peaks[index].Coord)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	result := peaks[:0]
	for _, peak := range peaks {
		if peak.Dominance >= o.dominanceThreshold {
			result = append(result, peak)
		}
	}
	return result, nil
}

func orographicDominance(height, prominence float64) float64 {
	if height == 0 {
		return 0
	}
	return 100 * prominence / height
}
