package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	LocationsEnumerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archimport_locations_enumerated_total",
		Help: "Total number of class locations found while enumerating import roots.",
	}, []string{"kind"})

	LocationsExcluded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archimport_locations_excluded_total",
		Help: "Total number of locations rejected by import options.",
	})

	ManifestExpansions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archimport_manifest_expansions_total",
		Help: "Total number of classpath roots added through manifest Class-Path headers.",
	})

	DecodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "archimport_decode_seconds",
		Help:    "Time spent reading and decoding a single class file.",
		Buckets: prometheus.DefBuckets,
	})

	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archimport_decode_failures_total",
		Help: "Total number of class files that could not be read or decoded.",
	})

	ImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "archimport_import_seconds",
		Help:    "Time spent on a complete import run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	GraphClasses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "archimport_graph_classes",
		Help: "Number of imported classes in the most recently frozen graph.",
	})

	GraphStubs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "archimport_graph_stubs",
		Help: "Number of stub classes in the most recently frozen graph.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archimport_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
