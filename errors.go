// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"errors"
	"fmt"
)

// Configuration errors returned by Solver.Solve before any iteration, and
// by NewFromConfig and LoadConfig.
var (
	ErrInvalidTolerance     = errors.New("krylov: invalid tolerance")
	ErrInvalidMaxIterations = errors.New("krylov: maximum number of iterations must be positive")
	ErrInvalidGhostWidth    = errors.New("krylov: ghost width must not be negative")
	ErrInvalidSolverType    = errors.New("krylov: invalid solver type")
	ErrNilVector            = errors.New("krylov: nil vector")
	ErrInvalidConfig        = errors.New("krylov: invalid configuration")
)

// ErrBreakdown is matched by every *BreakdownError.
var ErrBreakdown = errors.New("krylov: breakdown")

// BreakdownError describes a denominator of a Krylov method that became
// numerically zero. A Solver reports it as LossOfPrecision.
type BreakdownError struct {
	Method Type
	// Quantity names the offending denominator, for example "p·Ap".
	Quantity string
	// Value is the denominator and Reference the magnitude it was
	// judged against.
	Value, Reference float64
}

func (e *BreakdownError) Error() string {
	return fmt.Sprintf("krylov: %v breakdown: %s = %g is negligible relative to %g", e.Method, e.Quantity, e.Value, e.Reference)
}

// Is reports whether target is ErrBreakdown.
func (e *BreakdownError) Is(target error) bool {
	return target == ErrBreakdown
}
