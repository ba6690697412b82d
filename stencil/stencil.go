// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stencil provides finite-difference operators on distributed
// fields, for use with the krylov solvers.
package stencil

import (
	"context"

	"github.com/vladimir-ch/krylov"
	"github.com/vladimir-ch/krylov/field"
)

// FivePoint is the operator
//  (Au)_ij = C u_ij + W u_{i-1,j} + E u_{i+1,j} + S u_{i,j-1} + N u_{i,j+1}
// on the cells of the domain of a field, with u = 0 outside the domain
// (homogeneous Dirichlet conditions).
//
// Apply reads the ghost cells of its input; an input without ghost cells
// is first copied into a scratch field with a halo of one cell. The scratch
// field makes FivePoint unsafe for concurrent use, so every rank of a world
// needs its own value.
type FivePoint struct {
	C, W, E, S, N float64

	tmp *field.Field
}

// Laplacian returns the operator -Δ on a grid with spacing h. It is
// symmetric positive definite.
func Laplacian(h float64) *FivePoint {
	d := 1 / (h * h)
	return &FivePoint{C: 4 * d, W: -d, E: -d, S: -d, N: -d}
}

// ConvectionDiffusion returns the operator
//  -Δu + vx ∂u/∂x + vy ∂u/∂y
// on a grid with spacing h, with central differences for the convective
// terms. It is non-symmetric for a non-zero velocity.
func ConvectionDiffusion(h, vx, vy float64) *FivePoint {
	d := 1 / (h * h)
	cx, cy := vx/(2*h), vy/(2*h)
	return &FivePoint{C: 4 * d, W: -d - cx, E: -d + cx, S: -d - cy, N: -d + cy}
}

// Apply implements krylov.Operator.
func (o *FivePoint) Apply(ctx context.Context, dst, src krylov.Vector) error {
	in, out := asField(src), asField(dst)
	if in.NGhost() < 1 {
		if o.tmp == nil || o.tmp.Layout() != in.Layout() || o.tmp.Comm() != in.Comm() {
			o.tmp = in.NewLike(1).(*field.Field)
		}
		o.tmp.CopyFrom(in)
		in = o.tmp
	}
	if err := in.FillBoundary(ctx); err != nil {
		return err
	}

	qs := out.Patches()
	for k, p := range in.Patches() {
		q := qs[k]
		b := p.Box
		for j := b.Lo[1]; j < b.Hi[1]; j++ {
			for i := b.Lo[0]; i < b.Hi[0]; i++ {
				q.Set(i, j, o.C*p.At(i, j)+
					o.W*p.At(i-1, j)+o.E*p.At(i+1, j)+
					o.S*p.At(i, j-1)+o.N*p.At(i, j+1))
			}
		}
	}
	return nil
}

// Jacobi is a FivePoint operator preconditioned by its diagonal.
type Jacobi struct {
	*FivePoint
}

// Precondition implements krylov.Preconditioner.
func (o Jacobi) Precondition(ctx context.Context, dst, src krylov.Vector) error {
	dst.LinComb(1/o.C, src, 0, src)
	return ctx.Err()
}

func asField(v krylov.Vector) *field.Field {
	f, ok := v.(*field.Field)
	if !ok {
		panic("stencil: vector is not a *field.Field")
	}
	return f
}
