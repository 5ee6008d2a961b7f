// instrument.go - Relay metrics.
// Copyright (C) 2024  The SolConnect developers.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package instrument provides the relay's Prometheus instrumentation
// and the HTTP scrape/health surface.
package instrument

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter, gauge and histogram the relay exposes.
type Metrics struct {
	registry *prometheus.Registry

	messagesProcessed  prometheus.Counter
	messagesFailed     prometheus.Counter
	bytesReceived      prometheus.Counter
	bytesSent          prometheus.Counter
	activeConnections  prometheus.Gauge
	registeredClients  prometheus.Gauge
	queuedMessages     prometheus.Gauge
	messageLatency     prometheus.Histogram
	messageSize        *prometheus.HistogramVec
	connectionDuration prometheus.Histogram
}

// New constructs and registers the relay metric set on a fresh
// registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_processed_total",
			Help: "Total number of messages processed by the relay.",
		}),
		messagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_failed_total",
			Help: "Total number of failed message processing attempts.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bytes_received_total",
			Help: "Total bytes received by the relay.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bytes_sent_total",
			Help: "Total bytes sent by the relay.",
		}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active QUIC connections.",
		}),
		registeredClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "registered_clients",
			Help: "Number of wallets registered in the routing table.",
		}),
		queuedMessages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queued_messages",
			Help: "Number of messages buffered for offline recipients.",
		}),
		messageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "message_latency_seconds",
			Help:    "Message processing latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),
		messageSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "message_size_bytes",
			Help:    "Message size distribution.",
			Buckets: []float64{64, 256, 1024, 4096, 16384, 65536},
		}, []string{"message_type"}),
		connectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "connection_duration_seconds",
			Help:    "Connection duration in seconds.",
			Buckets: []float64{1, 10, 60, 300, 1800, 3600},
		}),
	}

	m.registry.MustRegister(
		m.messagesProcessed,
		m.messagesFailed,
		m.bytesReceived,
		m.bytesSent,
		m.activeConnections,
		m.registeredClients,
		m.queuedMessages,
		m.messageLatency,
		m.messageSize,
		m.connectionDuration,
	)
	return m
}

// Registry returns the registry backing the scrape endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// MessageProcessed records one processed message of the given wire size
// and type.
func (m *Metrics) MessageProcessed(size int, messageType string) {
	m.messagesProcessed.Inc()
	m.messageSize.WithLabelValues(messageType).Observe(float64(size))
}

// MessageFailed records one failed message processing attempt.
func (m *Metrics) MessageFailed() {
	m.messagesFailed.Inc()
}

// BytesReceived adds to the received byte counter.
func (m *Metrics) BytesReceived(n int) {
	m.bytesReceived.Add(float64(n))
}

// BytesSent adds to the sent byte counter.
func (m *Metrics) BytesSent(n int) {
	m.bytesSent.Add(float64(n))
}

// ConnectionOpened bumps the active connection gauge.
func (m *Metrics) ConnectionOpened() {
	m.activeConnections.Inc()
}

// ConnectionClosed drops the active connection gauge and records the
// connection's lifetime.
func (m *Metrics) ConnectionClosed(d time.Duration) {
	m.activeConnections.Dec()
	m.connectionDuration.Observe(d.Seconds())
}

// ObserveLatency records one message processing latency sample.
func (m *Metrics) ObserveLatency(d time.Duration) {
	m.messageLatency.Observe(d.Seconds())
}

// SetRegisteredClients sets the registered client gauge.
func (m *Metrics) SetRegisteredClients(n int) {
	m.registeredClients.Set(float64(n))
}

// SetQueuedMessages sets the queued message gauge.
func (m *Metrics) SetQueuedMessages(n int) {
	m.queuedMessages.Set(float64(n))
}
