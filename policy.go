// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import "math"

// dlamchE is the unit roundoff of float64.
const dlamchE = 1.0 / (1 << 53)

// Breakdown thresholds.
const (
	// breakdownTol is the smallest accepted |den|/|num| of a quotient
	// num/den formed by a method (α, ω, β). Below it the quotient would
	// exceed 1/ε and the update it scales carries no information.
	breakdownTol = dlamchE

	// rhoTol is the smallest accepted |ρ|/|ρ₀|, where ρ is the inner
	// product that starts each iteration and ρ₀ its first value.
	rhoTol = dlamchE * dlamchE
)

// quotient returns num/den, or a *BreakdownError when den is numerically
// zero relative to num or is not finite.
func quotient(method Type, quantity string, num, den float64) (float64, error) {
	if !(math.Abs(den) > breakdownTol*math.Abs(num)) || math.IsInf(den, 0) || math.IsNaN(num) {
		return 0, &BreakdownError{Method: method, Quantity: quantity, Value: den, Reference: num}
	}
	return num / den, nil
}

// checkRho returns a *BreakdownError when rho is negligible relative to
// rho0. Symmetric methods additionally require rho to be positive.
func checkRho(method Type, rho, rho0 float64, positive bool) error {
	ok := math.Abs(rho) > rhoTol*math.Abs(rho0)
	if positive {
		ok = rho > rhoTol*math.Abs(rho0)
	}
	if !ok {
		return &BreakdownError{Method: method, Quantity: "ρ", Value: rho, Reference: rho0}
	}
	return nil
}

// target returns the residual norm that has to be reached,
//  max(epsRel*rnorm0, epsAbs).
func target(epsRel, epsAbs, rnorm0 float64) float64 {
	return math.Max(epsRel*rnorm0, epsAbs)
}

// converged reports whether rnorm satisfies the target. A NaN norm never
// converges.
func converged(rnorm, tgt float64) bool {
	return rnorm <= tgt
}

// validTolerance reports whether eps is a usable tolerance.
func validTolerance(eps float64) bool {
	return eps >= 0 && !math.IsInf(eps, 1)
}
