// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command krylov solves manufactured elliptic problems on a distributed
// patch grid with the krylov bottom solvers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vladimir-ch/krylov"
)

var (
	configPath string
	gridSize   int
	maxBox     int
	ranks      int
	problem    string
	velocity   []float64
	jacobi     bool
	solverType string
	maxIter    int
	ghostWidth int
	relTol     float64
	absTol     float64
	verbosity  int

	rootCmd = &cobra.Command{
		Use:           "krylov",
		Short:         "CG and BiCGStab bottom solvers on distributed patch grids",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	solveCmd = &cobra.Command{
		Use:   "solve",
		Short: "Solve a manufactured Poisson or convection-diffusion problem",
		Long: `Solve builds A u = b for a known smooth u on an n×n grid chopped into
patches and spread over in-process ranks, solves it from a zero initial guess
and reports the status, the iteration count, the final residual and the error
against u.`,
		Args: cobra.NoArgs,
		RunE: runSolve, // Defined in solve.go
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the default solver configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(krylov.DefaultConfig()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
)

func init() {
	f := solveCmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML solver configuration file")
	f.IntVar(&gridSize, "n", 64, "number of cells along each direction")
	f.IntVar(&maxBox, "max-box", 16, "maximum patch size along each direction")
	f.IntVar(&ranks, "ranks", 1, "number of in-process ranks")
	f.StringVar(&problem, "problem", "poisson", "operator: poisson or convdiff")
	f.Float64SliceVar(&velocity, "velocity", []float64{10, 5}, "convection velocity (vx,vy) for convdiff")
	f.BoolVar(&jacobi, "jacobi", false, "precondition with the operator diagonal")
	f.StringVar(&solverType, "solver", "", "solver type: cg or bicgstab (overrides the configuration)")
	f.IntVar(&maxIter, "max-iter", 0, "iteration limit (overrides the configuration)")
	f.IntVar(&ghostWidth, "ghost", 0, "ghost width of the operator input (overrides the configuration)")
	f.Float64Var(&relTol, "rel-tol", 0, "relative tolerance (overrides the configuration)")
	f.Float64Var(&absTol, "abs-tol", 0, "absolute tolerance (overrides the configuration)")
	f.IntVarP(&verbosity, "verbose", "v", 0, "diagnostics level 0-3 (overrides the configuration)")

	rootCmd.AddCommand(solveCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "krylov:", err)
		os.Exit(1)
	}
}
