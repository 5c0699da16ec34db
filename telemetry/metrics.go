package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes per-generation progress to Prometheus on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	generation  prometheus.Gauge
	bestFitness prometheus.Gauge
	meanFitness prometheus.Gauge
	bestScore   prometheus.Gauge
	hallTop     prometheus.Gauge
	games       prometheus.Counter
	outcomes    *prometheus.CounterVec
	evalSeconds prometheus.Histogram
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neurosnake",
			Name:      "generation",
			Help:      "Index of the last evaluated generation.",
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neurosnake",
			Name:      "best_fitness",
			Help:      "Best fitness of the last evaluated generation.",
		}),
		meanFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neurosnake",
			Name:      "mean_fitness",
			Help:      "Mean fitness of the last evaluated generation.",
		}),
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neurosnake",
			Name:      "best_score",
			Help:      "Longest agent of the last evaluated generation.",
		}),
		hallTop: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neurosnake",
			Name:      "hall_of_fame_top_fitness",
			Help:      "Best fitness seen during the run.",
		}),
		games: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neurosnake",
			Name:      "games_total",
			Help:      "Games played during evaluation.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neurosnake",
			Name:      "outcomes_total",
			Help:      "Games by terminal condition.",
		}, []string{"outcome"}),
		evalSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neurosnake",
			Name:      "evaluation_seconds",
			Help:      "Wall time to evaluate one generation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	m.registry.MustRegister(
		m.generation, m.bestFitness, m.meanFitness, m.bestScore,
		m.hallTop, m.games, m.outcomes, m.evalSeconds,
	)
	return m
}

// Observe records a generation.
func (m *Metrics) Observe(s GenerationStats, hallTop float64) {
	if m == nil {
		return
	}
	m.generation.Set(float64(s.Generation))
	m.bestFitness.Set(s.BestFitness)
	m.meanFitness.Set(s.MeanFitness)
	m.bestScore.Set(float64(s.BestScore))
	m.hallTop.Set(hallTop)
	m.games.Add(float64(s.Population))
	m.outcomes.WithLabelValues("starved").Add(float64(s.Starved))
	m.outcomes.WithLabelValues("collided").Add(float64(s.Collided))
	m.outcomes.WithLabelValues("out_of_bounds").Add(float64(s.OutOfBounds))
	m.outcomes.WithLabelValues("filled").Add(float64(s.Filled))
	m.outcomes.WithLabelValues("timeout").Add(float64(s.Timeout))
	m.evalSeconds.Observe(s.EvalMillis / 1000)
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
