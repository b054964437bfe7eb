package irc

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for one server instance. Each
// server carries its own registry so tests can run several instances in one
// process.
type Metrics struct {
	Registry *prometheus.Registry

	// ConnectionsAccepted counts every accepted TCP connection
	ConnectionsAccepted prometheus.Counter

	// RegisteredClients tracks sessions past the NICK/USER handshake
	RegisteredClients prometheus.Gauge

	// Channels tracks live channels
	Channels prometheus.Gauge

	// MessagesReceived counts parsed inbound protocol messages
	MessagesReceived prometheus.Counter

	// MessagesSent counts outbound protocol lines
	MessagesSent prometheus.Counter

	// MessagesRouted counts PRIVMSG/NOTICE deliveries by target kind
	MessagesRouted *prometheus.CounterVec
}

func newMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		ConnectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "irc_connections_accepted_total",
			Help: "Total number of accepted TCP connections",
		}),
		RegisteredClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "irc_registered_clients",
			Help: "Number of currently registered clients",
		}),
		Channels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "irc_channels",
			Help: "Number of live channels",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "irc_messages_received_total",
			Help: "Total number of inbound protocol messages",
		}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "irc_messages_sent_total",
			Help: "Total number of outbound protocol lines",
		}),
		MessagesRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "irc_messages_routed_total",
			Help: "Total number of routed chat messages by target kind",
		}, []string{"target"}),
	}
}

// startMetricsServer exposes /metrics and /healthz on the configured address.
func (s *Server) startMetricsServer() error {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(
		s.metrics.Registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	))
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	s.metricsHTTP = &http.Server{
		Addr:    s.config.GetMetricsAddress(),
		Handler: router,
	}

	go func() {
		log.Printf("Metrics listening on %s", s.metricsHTTP.Addr)
		if err := s.metricsHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	return nil
}

// stopMetricsServer shuts the metrics endpoint down, bounded by a short
// deadline.
func (s *Server) stopMetricsServer() {
	if s.metricsHTTP == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.metricsHTTP.Shutdown(ctx); err != nil {
		log.Printf("Metrics server shutdown: %v", err)
	}
	s.metricsHTTP = nil
}
