// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxIterations is the iteration limit of a new Solver.
const DefaultMaxIterations = 100

// notRun is the value of Solver.Iterations before the first solve.
const notRun = -1

// Stats holds statistics about a solve.
type Stats struct {
	// RunID identifies the solve in logs and traces.
	RunID string
	// Iterations is the number of
	// iterations completed by the method.
	Iterations int
	// MatVec is the number of operator
	// applications, including the one
	// computing the initial residual.
	MatVec int
	// PSolve is the number of
	// preconditioner solves.
	PSolve int
	// InitialResidualNorm is the infinity
	// norm of b - A*x0.
	InitialResidualNorm float64
	// ResidualNorm is the infinity norm of
	// the residual of the returned x, as
	// tracked by the method.
	ResidualNorm float64
	// History holds every residual norm
	// checked for convergence, in order.
	History []float64
	// Breakdown describes the cause of a
	// LossOfPrecision status.
	Breakdown *BreakdownError
	// StartTime is an approximate time
	// when the solve was started.
	StartTime time.Time
	// Runtime is an approximate duration
	// of the solve.
	Runtime time.Duration
}

// Solver solves linear systems with one operator on one level of a mesh
// hierarchy using CG or BiCGStab.
//
// A Solver borrows its operator; the caller keeps it alive and unchanged
// while the Solver is in use. A Solver must not be used by more than one
// goroutine at a time. Solves running concurrently, including the ranks of
// one in-process world, need separate Solvers.
type Solver struct {
	op   Operator
	prec Preconditioner

	typ      Type
	amrLevel int
	mgLevel  int

	maxIter int
	nghost  int
	verbose int
	logger  *slog.Logger

	iter  int
	stats Stats
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger for diagnostics. The default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPreconditioner sets the preconditioner, overriding one provided by
// the operator itself.
func WithPreconditioner(p Preconditioner) Option {
	return func(s *Solver) {
		s.prec = p
	}
}

// New returns a Solver of the given type for op on the given AMR and
// multigrid levels. If op implements Preconditioner, it is used as the
// preconditioner.
func New(op Operator, typ Type, amrLevel, mgLevel int, opts ...Option) *Solver {
	if op == nil {
		panic("krylov: nil operator")
	}
	s := &Solver{
		op:       op,
		typ:      typ,
		amrLevel: amrLevel,
		mgLevel:  mgLevel,
		maxIter:  DefaultMaxIterations,
		logger:   slog.Default(),
		iter:     notRun,
	}
	if p, ok := op.(Preconditioner); ok {
		s.prec = p
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSolverType selects the method used by subsequent solves.
func (s *Solver) SetSolverType(typ Type) { s.typ = typ }

// SolverType returns the method used by Solve.
func (s *Solver) SolverType() Type { return s.typ }

// SetMaxIterations sets the iteration limit. A non-positive limit is
// reported by the next Solve.
func (s *Solver) SetMaxIterations(n int) { s.maxIter = n }

// MaxIterations returns the iteration limit.
func (s *Solver) MaxIterations() int { return s.maxIter }

// SetGhostWidth sets the ghost width of the vectors passed to the operator.
func (s *Solver) SetGhostWidth(n int) { s.nghost = n }

// GhostWidth returns the ghost width of the vectors passed to the operator.
func (s *Solver) GhostWidth() int { return s.nghost }

// SetVerbosity sets the diagnostics level: 0 is silent, 1 reports the
// initial and final residual, 2 adds warnings about failed solves and 3
// reports every residual check.
func (s *Solver) SetVerbosity(v int) { s.verbose = v }

// Verbosity returns the diagnostics level.
func (s *Solver) Verbosity() int { return s.verbose }

// Iterations returns the number of iterations performed by the last
// Solve, or -1 if Solve has not completed yet.
func (s *Solver) Iterations() int { return s.iter }

// Stats returns the statistics of the last Solve.
func (s *Solver) Stats() Stats {
	st := s.stats
	st.History = append([]float64(nil), s.stats.History...)
	return st
}

// Solve computes an approximate solution of
//  A x = b,
// starting from the initial guess in x, and stores it in x. It stops when
//  |b - A x|_∞ <= max(epsRel*|b - A x0|_∞, epsAbs).
//
// The returned Status is Success, LossOfPrecision or IterationsExceeded.
// Unless it is Success, x holds the last iterate if its residual is smaller
// than the initial one, and the initial guess otherwise.
//
// Solve is collective over the communicator of b. A non-nil error reports
// an invalid configuration, detected before any operator application, or
// a failure of the operator or the communicator; the Status is then
// meaningless.
func (s *Solver) Solve(ctx context.Context, x, b Vector, epsRel, epsAbs float64) (Status, error) {
	if err := s.validate(x, b, epsRel, epsAbs); err != nil {
		return 0, err
	}

	stats := Stats{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}
	solver := s.typ.String()
	log := s.logger.With(
		slog.String("run_id", stats.RunID),
		slog.String("solver", solver),
		slog.Int("amr_level", s.amrLevel),
		slog.Int("mg_level", s.mgLevel),
	)
	if b.Comm().Rank() != 0 {
		// Diagnostics come from one rank only.
		log = slog.New(discardHandler{})
	}

	ctx, span := getTracer().Start(ctx, "krylov.Solver.Solve",
		trace.WithAttributes(
			attribute.String("solver", solver),
			attribute.String("run_id", stats.RunID),
			attribute.Int("amr_level", s.amrLevel),
			attribute.Int("mg_level", s.mgLevel),
			attribute.Int("rank", b.Comm().Rank()),
			attribute.Int("max_iterations", s.maxIter),
		),
	)
	defer span.End()

	status, err := s.solve(ctx, x, b, epsRel, epsAbs, &stats, log)
	stats.Runtime = time.Since(stats.StartTime)
	s.stats = stats
	s.iter = stats.Iterations

	solveDuration.WithLabelValues(solver).Observe(stats.Runtime.Seconds())
	if err != nil {
		solvesTotal.WithLabelValues(solver, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "solve failed")
		return 0, err
	}
	solvesTotal.WithLabelValues(solver, status.String()).Inc()
	solveIterations.WithLabelValues(solver).Observe(float64(stats.Iterations))
	if stats.Breakdown != nil {
		breakdownsTotal.WithLabelValues(solver, stats.Breakdown.Quantity).Inc()
	}
	span.SetAttributes(
		attribute.String("status", status.String()),
		attribute.Int("iterations", stats.Iterations),
		attribute.Float64("residual_norm", stats.ResidualNorm),
	)
	return status, nil
}

func (s *Solver) validate(x, b Vector, epsRel, epsAbs float64) error {
	switch {
	case x == nil || b == nil:
		return ErrNilVector
	case !validTolerance(epsRel):
		return fmt.Errorf("%w: relative tolerance %v", ErrInvalidTolerance, epsRel)
	case !validTolerance(epsAbs):
		return fmt.Errorf("%w: absolute tolerance %v", ErrInvalidTolerance, epsAbs)
	case s.maxIter <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidMaxIterations, s.maxIter)
	case s.nghost < 0:
		return fmt.Errorf("%w: %d", ErrInvalidGhostWidth, s.nghost)
	case s.typ != CG && s.typ != BiCGStab:
		return fmt.Errorf("%w: %v", ErrInvalidSolverType, s.typ)
	}
	return nil
}

func (s *Solver) solve(ctx context.Context, x, b Vector, epsRel, epsAbs float64, stats *Stats, log *slog.Logger) (Status, error) {
	// The method solves for the correction e in A e = r0 starting
	// from zero; x = x0 + e at the end.
	w := &Workspace{
		X:        x.NewLike(0),
		Residual: x.NewLike(0),
		NGhost:   s.nghost,
	}
	if err := s.op.Apply(ctx, w.Residual, x); err != nil {
		return 0, fmt.Errorf("krylov: initial residual: %w", err)
	}
	stats.MatVec++
	w.Residual.LinComb(1, b, -1, w.Residual) // r = b - Ax

	rnorm0, err := NormInf(ctx, w.Residual, false)
	if err != nil {
		return 0, err
	}
	w.ResidualNorm = rnorm0
	stats.InitialResidualNorm = rnorm0
	stats.ResidualNorm = rnorm0
	tgt := target(epsRel, epsAbs, rnorm0)
	if s.verbose > 0 {
		log.Info("krylov: initial residual", slog.Float64("residual", rnorm0), slog.Float64("target", tgt))
	}
	if converged(rnorm0, tgt) {
		if s.verbose > 0 {
			log.Info("krylov: initial guess satisfies tolerance", slog.Int("iterations", 0))
		}
		return Success, nil
	}

	m := s.newMethod()
	m.Init(w)
	status, err := s.iterate(ctx, m, w, tgt, stats, log)
	if err != nil {
		return 0, err
	}

	if status == Success || w.ResidualNorm < rnorm0 {
		x.AddScaled(1, w.X)
		stats.ResidualNorm = w.ResidualNorm
	}

	if s.verbose > 0 {
		log.Info("krylov: final residual",
			slog.String("status", status.String()),
			slog.Int("iterations", stats.Iterations),
			slog.Float64("residual", stats.ResidualNorm),
			slog.Float64("relative", stats.ResidualNorm/rnorm0),
		)
	}
	if s.verbose > 1 && status != Success {
		attrs := []any{slog.String("status", status.String()), slog.Int("iterations", stats.Iterations)}
		if stats.Breakdown != nil {
			attrs = append(attrs, slog.String("cause", stats.Breakdown.Error()))
		}
		log.Warn("krylov: failed to converge", attrs...)
	}
	return status, nil
}

func (s *Solver) newMethod() Method {
	switch s.typ {
	case CG:
		return &CGMethod{}
	case BiCGStab:
		return &BiCGStabMethod{}
	}
	panic("krylov: invalid solver type")
}

func (s *Solver) iterate(ctx context.Context, m Method, w *Workspace, tgt float64, stats *Stats, log *slog.Logger) (Status, error) {
	for {
		op, err := m.Iterate(ctx, w)
		if err != nil {
			var be *BreakdownError
			if errors.As(err, &be) {
				stats.Breakdown = be
				return LossOfPrecision, nil
			}
			return 0, err
		}

		switch op {
		case NoOperation:

		case MatVec:
			if err := s.op.Apply(ctx, w.Dst, w.Src); err != nil {
				return 0, err
			}
			stats.MatVec++

		case PSolve:
			if s.prec == nil {
				w.Dst.CopyFrom(w.Src)
				continue
			}
			if err := s.prec.Precondition(ctx, w.Dst, w.Src); err != nil {
				return 0, err
			}
			stats.PSolve++

		case CheckResidualNorm:
			stats.History = append(stats.History, w.ResidualNorm)
			if math.IsNaN(w.ResidualNorm) || math.IsInf(w.ResidualNorm, 0) {
				stats.Breakdown = &BreakdownError{
					Method:    s.typ,
					Quantity:  "|r|",
					Value:     w.ResidualNorm,
					Reference: stats.InitialResidualNorm,
				}
				return LossOfPrecision, nil
			}
			w.Converged = converged(w.ResidualNorm, tgt)
			if s.verbose > 2 {
				log.Info("krylov: residual",
					slog.Int("iteration", stats.Iterations+1),
					slog.Float64("residual", w.ResidualNorm),
					slog.Float64("relative", w.ResidualNorm/stats.InitialResidualNorm),
				)
			}

		case EndIteration:
			stats.Iterations++
			if w.Converged {
				return Success, nil
			}
			if stats.Iterations == s.maxIter {
				return IterationsExceeded, nil
			}

		default:
			panic("krylov: invalid operation")
		}
	}
}

// discardHandler drops all records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
