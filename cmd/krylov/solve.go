// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/vladimir-ch/krylov"
	"github.com/vladimir-ch/krylov/comm"
	"github.com/vladimir-ch/krylov/field"
	"github.com/vladimir-ch/krylov/stencil"
)

// errNotConverged makes the command exit with a non-zero status when the
// solver did not reach the tolerance.
var errNotConverged = errors.New("solve did not converge")

// solveConfig merges the configuration file with the flags set on cmd.
func solveConfig(cmd *cobra.Command) (krylov.Config, error) {
	cfg := krylov.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = krylov.LoadConfig(configPath); err != nil {
			return cfg, err
		}
	}
	f := cmd.Flags()
	if f.Changed("solver") {
		if err := cfg.Solver.UnmarshalText([]byte(solverType)); err != nil {
			return cfg, err
		}
	}
	if f.Changed("max-iter") {
		cfg.MaxIterations = maxIter
	}
	if f.Changed("ghost") {
		cfg.GhostWidth = ghostWidth
	}
	if f.Changed("rel-tol") {
		cfg.RelTol = relTol
	}
	if f.Changed("abs-tol") {
		cfg.AbsTol = absTol
	}
	if f.Changed("verbose") {
		cfg.Verbosity = verbosity
	}
	return cfg, cfg.Validate()
}

// newOperator returns the operator selected by the flags for grid spacing h.
func newOperator(h float64) (krylov.Operator, error) {
	var op *stencil.FivePoint
	switch problem {
	case "poisson":
		op = stencil.Laplacian(h)
	case "convdiff":
		if len(velocity) != 2 {
			return nil, fmt.Errorf("velocity needs two components, got %d", len(velocity))
		}
		op = stencil.ConvectionDiffusion(h, velocity[0], velocity[1])
	default:
		return nil, fmt.Errorf("unknown problem %q", problem)
	}
	if jacobi {
		return stencil.Jacobi{FivePoint: op}, nil
	}
	return op, nil
}

// exact is the manufactured solution at cell (i, j) of a grid with spacing h.
func exact(h float64) func(i, j int) float64 {
	return func(i, j int) float64 {
		x, y := float64(i+1)*h, float64(j+1)*h
		return math.Sin(math.Pi*x)*math.Sin(2*math.Pi*y) + x*y*(1-x)
	}
}

type result struct {
	status krylov.Status
	stats  krylov.Stats
	err    float64
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := solveConfig(cmd)
	if err != nil {
		return err
	}
	if gridSize <= 0 || maxBox <= 0 {
		return fmt.Errorf("grid and patch sizes must be positive")
	}
	if ranks <= 0 {
		return fmt.Errorf("%w: %d", comm.ErrWorldSize, ranks)
	}
	if _, err := newOperator(1); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	h := 1 / float64(gridSize+1)
	layout := field.NewLayout(field.NewBox(0, 0, gridSize, gridSize), [2]int{maxBox, maxBox}, ranks)
	logger.Info("krylov: layout",
		slog.Int("cells", layout.NumPts()),
		slog.Int("patches", len(layout.Boxes)),
		slog.Int("ranks", ranks),
		slog.String("problem", problem),
	)

	var res result
	err = comm.Run(cmd.Context(), ranks, func(ctx context.Context, c comm.Communicator) error {
		r, err := solveRank(ctx, c, layout, h, cfg, logger)
		if err != nil {
			return fmt.Errorf("rank %d: %w", c.Rank(), err)
		}
		if c.Rank() == 0 {
			res = r
		}
		return nil
	})
	if err != nil {
		return err
	}

	report(cmd.OutOrStdout(), res)
	if res.status != krylov.Success {
		return fmt.Errorf("%w: %v", errNotConverged, res.status)
	}
	return nil
}

// solveRank sets up and solves the problem on one rank.
func solveRank(ctx context.Context, c comm.Communicator, l *field.Layout, h float64, cfg krylov.Config, logger *slog.Logger) (result, error) {
	op, err := newOperator(h)
	if err != nil {
		return result{}, err
	}
	u := field.New(l, c, 0)
	u.Fill(exact(h))
	b := field.New(l, c, 0)
	if err := op.Apply(ctx, b, u); err != nil {
		return result{}, err
	}
	x := field.New(l, c, 0)

	s, err := krylov.NewFromConfig(op, cfg, 0, 0, krylov.WithLogger(logger))
	if err != nil {
		return result{}, err
	}
	status, err := s.Solve(ctx, x, b, cfg.RelTol, cfg.AbsTol)
	if err != nil {
		return result{}, err
	}

	x.AddScaled(-1, u)
	e, err := krylov.NormInf(ctx, x, false)
	if err != nil {
		return result{}, err
	}
	return result{status: status, stats: s.Stats(), err: e}, nil
}

func report(w io.Writer, r result) {
	fmt.Fprintf(w, "status:           %v (%d)\n", r.status, int(r.status))
	fmt.Fprintf(w, "iterations:       %d\n", r.stats.Iterations)
	fmt.Fprintf(w, "operator applies: %d\n", r.stats.MatVec)
	fmt.Fprintf(w, "initial residual: %.6e\n", r.stats.InitialResidualNorm)
	fmt.Fprintf(w, "final residual:   %.6e\n", r.stats.ResidualNorm)
	fmt.Fprintf(w, "error:            %.6e\n", r.err)
	if r.stats.Breakdown != nil {
		fmt.Fprintf(w, "breakdown:        %v\n", r.stats.Breakdown)
	}
	fmt.Fprintf(w, "runtime:          %v\n", r.stats.Runtime)
}
