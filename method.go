// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import "context"

// Operation specifies the type of operation.
type Operation uint64

// Operations commanded by Method.Iterate.
const (
	NoOperation Operation = 0

	// Compute A*x where x is stored in
	// Workspace.Src and the result will
	// be stored in Workspace.Dst.
	MatVec Operation = 1 << (iota - 1)

	// Do the preconditioner solve
	//  M z = r,
	// where r is stored in Workspace.Src,
	// and store the solution z in
	// Workspace.Dst.
	PSolve

	// Check convergence using the
	// residual norm in
	// Workspace.ResidualNorm.
	// If convergence is detected,
	// Workspace.Converged is set to true
	// before Method.Iterate is called
	// again.
	CheckResidualNorm

	// EndIteration indicates that Method
	// has finished what it considers to
	// be one iteration. If
	// Workspace.Converged is true, the
	// iterative process is terminated.
	EndIteration
)

// Method is an iterative method that produces a sequence of corrections e
// converging to the solution of
//  A e = r0,
// where r0 is the initial residual of the system.
//
// Method uses a reverse-communication interface between the iterative
// algorithm and the Solver. Method commands the Solver to perform operator
// applications and preconditioner solves via the Operation returned from
// Iterate, which keeps Method independent of the operator and allows the
// Solver to maintain statistics. Method performs the vector updates and the
// global reductions itself.
//
// Iterate returns an error matching ErrBreakdown when the iteration cannot
// continue because of a numerically zero denominator. Workspace.X and
// Workspace.ResidualNorm then still describe the last completed update.
type Method interface {
	// Init allocates the scratch vectors of the method, shaped like
	// Workspace.X, and resets its state.
	Init(w *Workspace)

	// Iterate retrieves data from Workspace, updates it, and returns the
	// next operation. Iterate may perform collective reductions.
	Iterate(ctx context.Context, w *Workspace) (Operation, error)
}

// Workspace mediates the communication between a Method and the Solver. It
// must not be modified or accessed apart from the commanded Operations.
type Workspace struct {
	// X is the current correction. It is zero on the first call to
	// Method.Iterate.
	X Vector
	// Residual is the current residual r0 - A*X. On the first call to
	// Method.Iterate it holds r0.
	Residual Vector
	// ResidualNorm is the infinity norm of Residual. Method updates it
	// before it commands CheckResidualNorm.
	ResidualNorm float64
	// Converged indicates to Method that ResidualNorm satisfies the
	// stopping criterion as a result of CheckResidualNorm.
	Converged bool

	// Src and Dst are the source and destination vectors for MatVec and
	// PSolve.
	Src, Dst Vector

	// NGhost is the ghost width of the vectors a Method passes to the
	// operator as Src of MatVec.
	NGhost int
}
