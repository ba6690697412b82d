// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package krylov provides Krylov-subspace solvers for linear systems
//  A x = b
// whose vectors are distributed, patch-structured fields, as needed for the
// bottom solve of a multigrid cycle.
//
// The operator A is known only through its action on a vector, so the
// solvers are independent of the discretization. Vectors are partitioned
// over the ranks of an SPMD world and every global reduction is collective:
// all ranks must run a solve with the same configuration, in lock-step.
package krylov

import (
	"context"
	"fmt"

	"github.com/vladimir-ch/krylov/comm"
)

// Vector is a real-valued field partitioned into patches, each owned by
// exactly one rank, with a halo of ghost cells of fixed width.
//
// Arithmetic acts on the valid (non-ghost) cells only. The methods taking a
// Vector argument require a vector created from the same distribution, for
// example by NewLike; implementations may panic otherwise. Operands may
// alias the receiver.
type Vector interface {
	// NewLike returns a new zero vector with the same distribution as
	// the receiver and nghost ghost cells.
	NewLike(nghost int) Vector
	// NGhost returns the ghost width.
	NGhost() int
	// Comm returns the communicator over which the vector is
	// distributed.
	Comm() comm.Communicator

	// CopyFrom sets v = src.
	CopyFrom(src Vector)
	// SetZero sets v = 0.
	SetZero()
	// AddScaled sets v = v + alpha*y.
	AddScaled(alpha float64, y Vector)
	// ScaleAdd sets v = y + beta*v.
	ScaleAdd(beta float64, y Vector)
	// LinComb sets v = a*x + b*y.
	LinComb(a float64, x Vector, b float64, y Vector)

	// LocalDot returns the sum of v[i]*y[i] over the cells owned by the
	// caller.
	LocalDot(y Vector) float64
	// LocalNormInf returns the maximum of |v[i]| over the cells owned by
	// the caller.
	LocalNormInf() float64
}

// Operator is the linear operator A of the system.
type Operator interface {
	// Apply stores A*src into dst. It must not modify the valid cells of
	// src and must refresh any ghost cells it reads. Apply is collective.
	Apply(ctx context.Context, dst, src Vector) error
}

// Preconditioner is an optional capability of an Operator, or a separate
// object passed with WithPreconditioner.
type Preconditioner interface {
	// Precondition stores into dst the solution z of
	//  M z = src,
	// where M approximates A.
	Precondition(ctx context.Context, dst, src Vector) error
}

// Type selects the Krylov method.
type Type int

const (
	// BiCGStab is the stabilized biconjugate gradient method for
	// general non-singular operators.
	BiCGStab Type = iota
	// CG is the conjugate gradient method for symmetric positive
	// definite operators.
	CG
)

func (t Type) String() string {
	switch t {
	case BiCGStab:
		return "bicgstab"
	case CG:
		return "cg"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	switch t {
	case BiCGStab, CG:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("krylov: invalid solver type %d", int(t))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	switch string(text) {
	case "bicgstab", "BiCGStab":
		*t = BiCGStab
	case "cg", "CG":
		*t = CG
	default:
		return fmt.Errorf("krylov: unknown solver type %q", text)
	}
	return nil
}

// Status is the outcome of a solve. The integer values are stable.
type Status int

const (
	// Success means the residual satisfied the tolerance.
	Success Status = 0
	// LossOfPrecision means the iteration broke down numerically.
	LossOfPrecision Status = 1
	// IterationsExceeded means the iteration limit was reached first.
	IterationsExceeded Status = 2
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case LossOfPrecision:
		return "LossOfPrecision"
	case IterationsExceeded:
		return "IterationsExceeded"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}
