package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "debtgraph_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debtgraph_parse_failures_total",
		Help: "Total number of source files excluded because they failed to parse.",
	})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "debtgraph_phase_seconds",
		Help:    "Time spent in each pipeline phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	FunctionsRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "debtgraph_functions_registered",
		Help: "Number of function definitions in the most recently sealed registry.",
	})

	CallSitesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debtgraph_call_sites_collected_total",
		Help: "Total number of unresolved call sites collected during registration.",
	})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtgraph_resolutions_total",
		Help: "Call sites resolved, labelled by the strategy that produced the edge.",
	}, []string{"strategy"})

	DroppedCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtgraph_dropped_calls_total",
		Help: "Call sites dropped without an edge, labelled by reason.",
	}, []string{"reason"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "debtgraph_graph_nodes_total",
		Help: "Total number of nodes in the call graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "debtgraph_graph_edges_total",
		Help: "Total number of edges in the call graph.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debtgraph_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
