// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import "context"

// BiCGStabMethod implements the BiConjugate Gradient STABilized iterative
// method with right preconditioning for solving the system of linear
// equations
//  Ax = b,
// where A is a non-symmetric operator. For symmetric positive definite
// systems use CGMethod.
//
// BiCGStabMethod needs the MatVec and PSolve operations.
type BiCGStabMethod struct {
	first  bool
	resume int

	rho, rhoPrev, rho0 float64
	alpha              float64
	omega              float64

	rt   Vector // Shadow residual.
	p    Vector
	phat Vector
	v    Vector
	s    Vector
	shat Vector
	t    Vector
}

// Init implements the Method interface.
func (b *BiCGStabMethod) Init(w *Workspace) {
	b.rt = w.X.NewLike(0)
	b.p = w.X.NewLike(0)
	b.phat = w.X.NewLike(w.NGhost)
	b.v = w.X.NewLike(0)
	b.s = w.X.NewLike(0)
	b.shat = w.X.NewLike(w.NGhost)
	b.t = w.X.NewLike(0)
	b.first = true
	b.resume = 1
}

// Iterate implements the Method interface.
func (b *BiCGStabMethod) Iterate(ctx context.Context, w *Workspace) (Operation, error) {
	switch b.resume {
	case 1:
		if b.first {
			b.rt.CopyFrom(w.Residual)
		}
		var err error
		b.rho, err = Dot(ctx, b.rt, w.Residual, false)
		if err != nil {
			return NoOperation, err
		}
		if b.first {
			b.rho0 = b.rho
		}
		if err := checkRho(BiCGStab, b.rho, b.rho0, false); err != nil {
			b.resume = 0 // Calling Iterate again without Init will panic.
			return NoOperation, err
		}
		if b.first {
			b.p.CopyFrom(w.Residual)
		} else {
			beta, err := quotient(BiCGStab, "ρ_{i-1}·ω", b.rho*b.alpha, b.rhoPrev*b.omega)
			if err != nil {
				b.resume = 0
				return NoOperation, err
			}
			b.p.AddScaled(-b.omega, b.v)  // p_i -= ω * v_i
			b.p.ScaleAdd(beta, w.Residual) // p_i = r_i + β p_i
		}
		w.Src = b.p
		w.Dst = b.phat
		b.resume = 2
		return PSolve, nil
		// Solve M p^_i = p_i.
	case 2:
		w.Src = b.phat
		w.Dst = b.v
		b.resume = 3
		return MatVec, nil
		// Compute Ap^_i -> v_i.
	case 3:
		rtv, err := Dot(ctx, b.rt, b.v, false)
		if err != nil {
			return NoOperation, err
		}
		b.alpha, err = quotient(BiCGStab, "r̂·v", b.rho, rtv)
		if err != nil {
			b.resume = 0
			return NoOperation, err
		}
		w.X.AddScaled(b.alpha, b.phat)
		// Early check for tolerance on s = r - α v.
		w.Residual.AddScaled(-b.alpha, b.v)
		b.s.CopyFrom(w.Residual)
		w.ResidualNorm, err = NormInf(ctx, w.Residual, false)
		if err != nil {
			return NoOperation, err
		}
		w.Src = nil
		w.Dst = nil
		w.Converged = false
		b.resume = 4
		return CheckResidualNorm, nil
	case 4:
		if w.Converged {
			b.resume = 0
			return EndIteration, nil
		}
		w.Src = b.s
		w.Dst = b.shat
		b.resume = 5
		return PSolve, nil
		// Solve M s^_i = s_i.
	case 5:
		w.Src = b.shat
		w.Dst = b.t
		b.resume = 6
		return MatVec, nil
		// Compute As^_i -> t_i.
	case 6:
		tt, ts, err := dot2(ctx, b.t, b.t, b.t, b.s)
		if err != nil {
			return NoOperation, err
		}
		b.omega, err = quotient(BiCGStab, "t·t", ts, tt)
		if err != nil {
			b.resume = 0
			return NoOperation, err
		}
		w.X.AddScaled(b.omega, b.shat)
		w.Residual.AddScaled(-b.omega, b.t) // r_i = s_i - ω t_i
		w.ResidualNorm, err = NormInf(ctx, w.Residual, false)
		if err != nil {
			return NoOperation, err
		}
		w.Src = nil
		w.Dst = nil
		w.Converged = false
		b.resume = 7
		return CheckResidualNorm, nil
	case 7:
		if w.Converged {
			b.resume = 0
			return EndIteration, nil
		}
		b.rhoPrev = b.rho
		b.first = false
		b.resume = 1
		return EndIteration, nil

	default:
		panic("krylov: BiCGStabMethod.Init not called")
	}
}
