package peaks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	candidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peaks_candidates_total",
		Help: "The total number of local maxima found",
	})
	prunedCandidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peaks_pruned_candidates_total",
		Help: "The total number of candidates rejected by the straight line saddle bound",
	})
	saddleSolvesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peaks_saddle_solves_total",
		Help: "The total number of exact saddle searches",
	})
	anomaliesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peaks_anomalies_total",
		Help: "The total number of candidates skipped because of an anomaly",
	})
	dominanceTransformsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peaks_dominance_transforms_total",
		Help: "The total number of distance transforms computed for dominance",
	})
	peaksFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peaks_found_total",
		Help: "The total number of peaks reported",
	})
)
