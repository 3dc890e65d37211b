package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GraphMetrics contains Prometheus metrics for graph construction and
// reachability queries
type GraphMetrics struct {
	registry *prometheus.Registry

	nodesCreated  *prometheus.CounterVec
	edgesAccepted *prometheus.CounterVec
	edgesRejected *prometheus.CounterVec
	pathQueries   *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewGraphMetrics creates and registers new graph metrics
func NewGraphMetrics(registry *prometheus.Registry) (*GraphMetrics, error) {
	m := &GraphMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *GraphMetrics) initMetrics() error {
	m.nodesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_graph_nodes_created_total",
			Help: "Total number of graph nodes created",
		},
		[]string{"type"}, // producer, consumer, mixer, meta
	)

	m.edgesAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_graph_edges_accepted_total",
			Help: "Total number of edges accepted by the builder",
		},
		[]string{},
	)

	m.edgesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_graph_edges_rejected_total",
			Help: "Total number of edges rejected by a builder policy",
		},
		[]string{"reason"}, // cycle, single-source, format, endpoint
	)

	m.pathQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_graph_path_queries_total",
			Help: "Total number of reachability queries",
		},
		[]string{"result"}, // reachable, unreachable
	)

	m.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_graph_path_cache_hits_total",
			Help: "Total number of reachability queries answered from cache",
		},
		[]string{},
	)

	m.collectors = []prometheus.Collector{
		m.nodesCreated,
		m.edgesAccepted,
		m.edgesRejected,
		m.pathQueries,
		m.cacheHits,
	}

	return nil
}

// Describe implements the Collector interface
func (m *GraphMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *GraphMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordNodeCreated records a node created by the builder
func (m *GraphMetrics) RecordNodeCreated(nodeType string) {
	m.nodesCreated.WithLabelValues(nodeType).Inc()
}

// RecordEdgeAccepted records an edge accepted by the builder
func (m *GraphMetrics) RecordEdgeAccepted() {
	m.edgesAccepted.WithLabelValues().Inc()
}

// RecordEdgeRejected records an edge rejected by a builder policy
func (m *GraphMetrics) RecordEdgeRejected(reason string) {
	m.edgesRejected.WithLabelValues(reason).Inc()
}

// RecordPathQuery records a reachability query and its result
func (m *GraphMetrics) RecordPathQuery(reachable bool) {
	result := "unreachable"
	if reachable {
		result = "reachable"
	}
	m.pathQueries.WithLabelValues(result).Inc()
}

// RecordPathCacheHit records a reachability query answered from cache
func (m *GraphMetrics) RecordPathCacheHit() {
	m.cacheHits.WithLabelValues().Inc()
}
