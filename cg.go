// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import "context"

// CGMethod implements the Conjugate Gradient iterative method with
// preconditioning for solving the system of linear equations
//  Ax = b,
// where A is a symmetric positive definite operator. Symmetry is not
// verified; for other operators the behavior of the method is undefined.
//
// CGMethod needs the MatVec and PSolve operations.
type CGMethod struct {
	first  bool
	resume int

	rho, rhoPrev, rho0 float64

	z, p, q Vector
}

// Init implements the Method interface.
func (cg *CGMethod) Init(w *Workspace) {
	cg.z = w.X.NewLike(0)
	cg.p = w.X.NewLike(w.NGhost)
	cg.q = w.X.NewLike(0)
	cg.first = true
	cg.resume = 1
}

// Iterate implements the Method interface.
func (cg *CGMethod) Iterate(ctx context.Context, w *Workspace) (Operation, error) {
	switch cg.resume {
	case 1:
		w.Src = w.Residual
		w.Dst = cg.z
		cg.resume = 2
		return PSolve, nil
		// Solve M z = r_{i-1}.
	case 2:
		var err error
		cg.rho, err = Dot(ctx, cg.z, w.Residual, false) // ρ_i = r_{i-1} · z
		if err != nil {
			return NoOperation, err
		}
		if cg.first {
			cg.rho0 = cg.rho
		}
		if err := checkRho(CG, cg.rho, cg.rho0, true); err != nil {
			cg.resume = 0
			return NoOperation, err
		}
		if cg.first {
			cg.p.CopyFrom(cg.z) // p_1 = z
		} else {
			beta, err := quotient(CG, "ρ_{i-1}", cg.rho, cg.rhoPrev)
			if err != nil {
				cg.resume = 0
				return NoOperation, err
			}
			cg.p.ScaleAdd(beta, cg.z) // p_i = z + β p_{i-1}
		}
		w.Src = cg.p
		w.Dst = cg.q
		cg.resume = 3
		return MatVec, nil
		// Compute q = A p_i.
	case 3:
		pq, err := Dot(ctx, cg.p, cg.q, false)
		if err != nil {
			return NoOperation, err
		}
		alpha, err := quotient(CG, "p·Ap", cg.rho, pq) // α = ρ_i / (p_i · Ap_i)
		if err != nil {
			cg.resume = 0
			return NoOperation, err
		}
		w.X.AddScaled(alpha, cg.p)         // x_i = x_{i-1} + α p_i
		w.Residual.AddScaled(-alpha, cg.q) // r_i = r_{i-1} - α Ap_i

		w.ResidualNorm, err = NormInf(ctx, w.Residual, false)
		if err != nil {
			return NoOperation, err
		}
		w.Src = nil
		w.Dst = nil
		w.Converged = false
		cg.resume = 4
		return CheckResidualNorm, nil
	case 4:
		if w.Converged {
			cg.resume = 0 // Calling Iterate again without Init will panic.
			return EndIteration, nil
		}
		cg.rhoPrev = cg.rho
		cg.first = false
		cg.resume = 1
		return EndIteration, nil

	default:
		panic("krylov: CGMethod.Init not called")
	}
}
