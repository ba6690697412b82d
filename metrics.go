// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	// solvesTotal counts finished solves.
	// Labels: solver ("cg", "bicgstab"), status ("Success", "LossOfPrecision", "IterationsExceeded", "error").
	solvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krylov_solves_total",
		Help: "Total Krylov solves by solver and status",
	}, []string{"solver", "status"})

	solveIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "krylov_solve_iterations",
		Help:    "Iterations per Krylov solve",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"solver"})

	solveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "krylov_solve_duration_seconds",
		Help:    "Krylov solve duration",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"solver"})

	// breakdownsTotal counts LossOfPrecision outcomes by the denominator
	// that vanished.
	breakdownsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krylov_breakdowns_total",
		Help: "Krylov breakdowns by solver and quantity",
	}, []string{"solver", "quantity"})
)

var (
	tracerOnce sync.Once
	tracer     trace.Tracer
)

// getTracer returns the OTel tracer, creating it on first use.
func getTracer() trace.Tracer {
	tracerOnce.Do(func() {
		tracer = otel.Tracer("github.com/vladimir-ch/krylov")
	})
	return tracer
}
