// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"context"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/vladimir-ch/krylov/comm"
)

// vec is a Vector on a single rank without ghost cells.
type vec []float64

func (v vec) NewLike(int) Vector { return make(vec, len(v)) }
func (v vec) NGhost() int { return 0 }
func (v vec) Comm() comm.Communicator { return comm.Self() }
func (v vec) CopyFrom(src Vector) { copy(v, src.(vec)) }
func (v vec) SetZero() { floats.Scale(0, v) }
func (v vec) AddScaled(a float64, y Vector) { floats.AddScaled(v, a, y.(vec)) }
func (v vec) ScaleAdd(b float64, y Vector) { floats.AddScaledTo(v, y.(vec), b, v) }
func (v vec) LocalDot(y Vector) float64 { return floats.Dot(v, y.(vec)) }
func (v vec) LocalNormInf() float64 { return floats.Norm(v, math.Inf(1)) }

func (v vec) LinComb(a float64, x Vector, b float64, y Vector) {
	xv, yv := x.(vec), y.(vec)
	for i := range v {
		v[i] = a*xv[i] + b*yv[i]
	}
}

// drive runs m on the 2×2 system a x = rhs without preconditioning and
// returns the operations requested by m until the first EndIteration that
// follows convergence, or until limit operations.
func drive(t *testing.T, m Method, a [2][2]float64, rhs []float64, limit int) ([]Operation, vec) {
	ctx := context.Background()
	w := &Workspace{X: make(vec, 2), Residual: append(vec(nil), rhs...)}
	m.Init(w)
	var ops []Operation
	for len(ops) < limit {
		op, err := m.Iterate(ctx, w)
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		ops = append(ops, op)
		switch op {
		case MatVec:
			src, dst := w.Src.(vec), w.Dst.(vec)
			dst[0] = a[0][0]*src[0] + a[0][1]*src[1]
			dst[1] = a[1][0]*src[0] + a[1][1]*src[1]
		case PSolve:
			w.Dst.CopyFrom(w.Src)
		case CheckResidualNorm:
			w.Converged = w.ResidualNorm <= 1e-12
		case EndIteration:
			if w.Converged {
				return ops, w.X.(vec)
			}
		}
	}
	return ops, w.X.(vec)
}

func TestCGMethodOperations(t *testing.T) {
	a := [2][2]float64{{4, 1}, {1, 3}}
	ops, x := drive(t, &CGMethod{}, a, []float64{1, 2}, 100)
	want := []Operation{
		PSolve, MatVec, CheckResidualNorm, EndIteration,
		PSolve, MatVec, CheckResidualNorm, EndIteration,
	}
	if len(ops) != len(want) {
		t.Fatalf("unexpected operations %v, want %v", ops, want)
	}
	for i := range ops {
		if ops[i] != want[i] {
			t.Errorf("operation %d: got %v, want %v", i, ops[i], want[i])
		}
	}
	// The exact solution is (1/11, 7/11).
	if d := floats.Distance(x, []float64{1.0 / 11, 7.0 / 11}, math.Inf(1)); d > 1e-14 {
		t.Errorf("unexpected solution %v", x)
	}
}

func TestBiCGStabMethodOperations(t *testing.T) {
	a := [2][2]float64{{4, 1}, {-2, 3}}
	ops, x := drive(t, &BiCGStabMethod{}, a, []float64{1, 2}, 100)
	first := []Operation{PSolve, MatVec, CheckResidualNorm, PSolve, MatVec, CheckResidualNorm, EndIteration}
	if len(ops) < len(first) {
		t.Fatalf("unexpected operations %v", ops)
	}
	for i := range first {
		if ops[i] != first[i] {
			t.Errorf("operation %d: got %v, want %v", i, ops[i], first[i])
		}
	}
	// The exact solution is (1/14, 10/14).
	if d := floats.Distance(x, []float64{1.0 / 14, 10.0 / 14}, math.Inf(1)); d > 1e-12 {
		t.Errorf("unexpected solution %v", x)
	}
}

func TestMethodInitNotCalled(t *testing.T) {
	for _, m := range []Method{&CGMethod{}, &BiCGStabMethod{}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%T: expected panic", m)
				}
			}()
			m.Iterate(context.Background(), &Workspace{})
		}()
	}
}
