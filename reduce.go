// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import "context"

// Dot returns the sum of a[i]*b[i] over the valid cells of a and b.
//
// If local is false, the partial sums of all ranks are added and the
// result is the same on every rank; Dot is then collective. If local is
// true, only the caller's partial sum is returned, for callers that combine
// several partial sums into a single reduction.
//
// The grouping of the floating-point additions depends on the patch
// decomposition and the number of ranks, so results may differ in the last
// bits between decompositions of the same domain.
func Dot(ctx context.Context, a, b Vector, local bool) (float64, error) {
	d := a.LocalDot(b)
	if local {
		return d, nil
	}
	buf := []float64{d}
	if err := a.Comm().AllReduceSum(ctx, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// NormInf returns the maximum of |v[i]| over the valid cells of v. The
// meaning of local is as for Dot.
func NormInf(ctx context.Context, v Vector, local bool) (float64, error) {
	n := v.LocalNormInf()
	if local {
		return n, nil
	}
	buf := []float64{n}
	if err := v.Comm().AllReduceMax(ctx, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// dot2 returns a1·b1 and a2·b2 using one global reduction.
func dot2(ctx context.Context, a1, b1, a2, b2 Vector) (d1, d2 float64, err error) {
	buf := []float64{a1.LocalDot(b1), a2.LocalDot(b2)}
	if err := a1.Comm().AllReduceSum(ctx, buf); err != nil {
		return 0, 0, err
	}
	return buf[0], buf[1], nil
}
