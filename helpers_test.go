// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov_test

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/vladimir-ch/krylov"
	"github.com/vladimir-ch/krylov/comm"
	"github.com/vladimir-ch/krylov/field"
	"github.com/vladimir-ch/krylov/internal/sparse"
)

// matVec adapts a matrix-vector product to a krylov.Operator acting on
// single-rank fields over a line of cells.
type matVec func(dst, x []float64)

func (m matVec) Apply(ctx context.Context, dst, src krylov.Vector) error {
	x := src.(*field.Field).ValidValues()
	y := make([]float64, len(x))
	m(y, x)
	dst.(*field.Field).SetValidValues(y)
	return ctx.Err()
}

type testCase struct {
	name  string
	n     int
	a     matVec
	iters int
	tol   float64
}

func randomSPD(n int, rnd *rand.Rand) testCase {
	// Generate a symmetric positive-definite matrix A.
	a := make([]float64, n*n)
	lda := n
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a[i*lda+j] = rnd.Float64()
		}
	}
	for i := 0; i < n; i++ {
		a[i*lda+i] += float64(n)
	}
	bi := blas64.Implementation()
	return testCase{
		name: fmt.Sprintf("randomSPD-%d", n),
		n:    n,
		a: func(dst, x []float64) {
			bi.Dsymv(blas.Upper, n, 1, a, lda, x, 1, 0, dst, 1)
		},
		iters: 2 * n,
		tol:   1e-8,
	}
}

// randomNonsymmetric returns a diagonally dominant non-symmetric matrix with
// about nnz off-diagonal entries per row.
func randomNonsymmetric(n, nnz int, rnd *rand.Rand) (testCase, *sparse.CSR) {
	b := sparse.NewBuilder(n, n)
	for i := 0; i < n; i++ {
		b.Add(i, i, float64(nnz)+1+rnd.Float64())
		for k := 0; k < nnz; k++ {
			b.Add(i, rnd.Intn(n), rnd.Float64()-0.5)
		}
	}
	m := b.Compile()
	return testCase{
		name:  fmt.Sprintf("randomNonsymmetric-%d", n),
		n:     n,
		a:     m.MulVec,
		iters: 2 * n,
		tol:   1e-8,
	}, m
}

// line returns a single-patch, single-rank layout of n cells.
func line(n int) *field.Layout {
	return field.NewLayout(field.NewBox(0, 0, n, 1), [2]int{n, 1}, 1)
}

func lineVector(l *field.Layout, v []float64) *field.Field {
	f := field.New(l, comm.Self(), 0)
	if v != nil {
		f.SetValidValues(v)
	}
	return f
}

// square returns the layout of an n×n grid chopped into boxes of at most
// maxBox cells per side and spread over ranks.
func square(n, maxBox, ranks int) *field.Layout {
	return field.NewLayout(field.NewBox(0, 0, n, n), [2]int{maxBox, maxBox}, ranks)
}

// smooth is the manufactured solution used with grid operators.
func smooth(h float64) func(i, j int) float64 {
	return func(i, j int) float64 {
		x, y := float64(i+1)*h, float64(j+1)*h
		return math.Sin(3*x)*math.Cos(2*y) + x*y
	}
}

// problem is a manufactured system A u = b on one rank of a world.
type problem struct {
	u, b, x *field.Field
}

func newProblem(ctx context.Context, op krylov.Operator, l *field.Layout, c comm.Communicator, h float64) (problem, error) {
	u := field.New(l, c, 0)
	u.Fill(smooth(h))
	b := field.New(l, c, 0)
	if err := op.Apply(ctx, b, u); err != nil {
		return problem{}, err
	}
	return problem{u: u, b: b, x: field.New(l, c, 0)}, nil
}

// solutionError returns |x - u|_∞.
func (p problem) solutionError(ctx context.Context) (float64, error) {
	e := p.x.NewLike(0)
	e.LinComb(1, p.x, -1, p.u)
	return krylov.NormInf(ctx, e, false)
}

// trueResidual returns |b - A x|_∞.
func (p problem) trueResidual(ctx context.Context, op krylov.Operator) (float64, error) {
	r := p.x.NewLike(0)
	if err := op.Apply(ctx, r, p.x); err != nil {
		return 0, err
	}
	r.LinComb(1, p.b, -1, r)
	return krylov.NormInf(ctx, r, false)
}

// rankResults collects per-rank values from an in-process world.
type rankResults[T any] struct {
	mu   sync.Mutex
	vals map[int]T
}

func (r *rankResults[T]) set(rank int, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vals == nil {
		r.vals = make(map[int]T)
	}
	r.vals[rank] = v
}

// applyCounter counts operator applications.
type applyCounter struct {
	krylov.Operator
	n int
}

func (a *applyCounter) Apply(ctx context.Context, dst, src krylov.Vector) error {
	a.n++
	return a.Operator.Apply(ctx, dst, src)
}

func hasNaN(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return true
		}
	}
	return false
}
