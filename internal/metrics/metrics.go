// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes Prometheus counters for the navigator.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/geonav/internal/orientation"
	"github.com/relabs-tech/geonav/internal/proximity"
)

var (
	SamplesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geonav_sensor_samples_total",
		Help: "Sensor samples applied to the orientation estimator",
	}, []string{"kind"})
	AzimuthUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geonav_azimuth_updates_total",
		Help: "Samples that produced a new azimuth",
	})
	FixesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geonav_fixes_total",
		Help: "Location fixes by outcome",
	}, []string{"result"})
	ProximitySignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geonav_proximity_signals_total",
		Help: "Proximity edges by signal",
	}, []string{"signal"})
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geonav_mqtt_messages_total",
		Help: "MQTT messages received by topic",
	}, []string{"topic"})
	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geonav_decode_errors_total",
		Help: "Inbound payloads that failed to decode",
	}, []string{"topic"})
	SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geonav_sink_errors_total",
		Help: "Snapshot publishing failures by sink",
	}, []string{"sink"})
	UpdateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geonav_update_latency_seconds",
		Help:    "Time to apply pending inputs and publish a snapshot",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	})
)

// Observer feeds session statistics into the package counters.
type Observer struct{}

func (Observer) SampleProcessed(kind orientation.SensorKind, producedAzimuth bool) {
	SamplesProcessed.WithLabelValues(kind.String()).Inc()
	if producedAzimuth {
		AzimuthUpdates.Inc()
	}
}

func (Observer) FixProcessed(accepted bool) {
	if accepted {
		FixesProcessed.WithLabelValues("accepted").Inc()
		return
	}
	FixesProcessed.WithLabelValues("rejected").Inc()
}

func (Observer) SignalEmitted(sig proximity.Signal) {
	ProximitySignals.WithLabelValues(sig.String()).Inc()
}

func (Observer) UpdateApplied(d time.Duration) {
	UpdateLatency.Observe(d.Seconds())
}

// Register mounts /metrics and /healthz on mux.
func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
