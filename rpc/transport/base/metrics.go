package base

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// clientMetrics are the counters of one client transport, exported in Prometheus text format
type clientMetrics struct {
	set             *metrics.Set
	requests        *metrics.Counter
	requestErrors   *metrics.Counter
	timeouts        *metrics.Counter
	connects        *metrics.Counter
	connectErrors   *metrics.Counter
	requestDuration *metrics.Histogram
}

// newClientMetrics registers the client metrics in a fresh set.
// connections is polled whenever the set is written.
func newClientMetrics(connections func() float64) *clientMetrics {
	set := metrics.NewSet()
	m := &clientMetrics{
		set:             set,
		requests:        set.NewCounter("rmq_remoting_requests_total"),
		requestErrors:   set.NewCounter("rmq_remoting_request_errors_total"),
		timeouts:        set.NewCounter("rmq_remoting_timeouts_total"),
		connects:        set.NewCounter("rmq_remoting_connects_total"),
		connectErrors:   set.NewCounter("rmq_remoting_connect_errors_total"),
		requestDuration: set.NewHistogram("rmq_remoting_request_duration_seconds"),
	}
	set.NewGauge("rmq_remoting_connections", connections)
	return m
}

// serverMetrics are the counters of one server transport
type serverMetrics struct {
	set         *metrics.Set
	accepted    *metrics.Counter
	requests    *metrics.Counter
	dropped     *metrics.Counter
	handlerTime *metrics.Histogram
}

func newServerMetrics(name string) *serverMetrics {
	set := metrics.NewSet()
	return &serverMetrics{
		set:         set,
		accepted:    set.NewCounter(fmt.Sprintf(`rmq_server_connections_total{transport=%q}`, name)),
		requests:    set.NewCounter(fmt.Sprintf(`rmq_server_requests_total{transport=%q}`, name)),
		dropped:     set.NewCounter(fmt.Sprintf(`rmq_server_dropped_total{transport=%q}`, name)),
		handlerTime: set.NewHistogram(fmt.Sprintf(`rmq_server_handler_duration_seconds{transport=%q}`, name)),
	}
}
