// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package field

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimir-ch/krylov/comm"
)

func cellValue(i, j int) float64 { return float64(100*i + j + 1) }

func TestFillBoundary(t *testing.T) {
	domain := NewBox(0, 0, 12, 10)
	for _, test := range []struct {
		maxSize [2]int
		ranks   int
		nghost  int
	}{
		{maxSize: [2]int{12, 10}, ranks: 1, nghost: 1},
		{maxSize: [2]int{4, 5}, ranks: 1, nghost: 1},
		{maxSize: [2]int{4, 5}, ranks: 2, nghost: 1},
		{maxSize: [2]int{4, 5}, ranks: 4, nghost: 2},
		{maxSize: [2]int{3, 3}, ranks: 5, nghost: 3},
		{maxSize: [2]int{6, 2}, ranks: 3, nghost: 4},
	} {
		l := NewLayout(domain, test.maxSize, test.ranks)
		err := comm.Run(context.Background(), test.ranks, func(ctx context.Context, c comm.Communicator) error {
			f := New(l, c, test.nghost)
			f.Fill(cellValue)
			// Stale ghost values must be overwritten.
			for _, p := range f.Patches() {
				g := p.Grown()
				for j := g.Lo[1]; j < g.Hi[1]; j++ {
					for i := g.Lo[0]; i < g.Hi[0]; i++ {
						if !p.Box.Contains(i, j) {
							p.Set(i, j, math.NaN())
						}
					}
				}
			}
			for round := 0; round < 2; round++ {
				if err := f.FillBoundary(ctx); err != nil {
					return err
				}
				for _, p := range f.Patches() {
					g := p.Grown()
					for j := g.Lo[1]; j < g.Hi[1]; j++ {
						for i := g.Lo[0]; i < g.Hi[0]; i++ {
							want := 0.0
							if domain.Contains(i, j) {
								want = cellValue(i, j)
							}
							if p.At(i, j) != want {
								t.Errorf("%+v rank %d patch %v: cell (%d,%d) = %v, want %v",
									test, c.Rank(), p.Box, i, j, p.At(i, j), want)
							}
						}
					}
				}
			}
			return nil
		})
		require.NoError(t, err)
	}
}

func TestFillBoundaryNoGhosts(t *testing.T) {
	l := NewLayout(NewBox(0, 0, 4, 4), [2]int{2, 2}, 1)
	f := New(l, comm.Self(), 0)
	f.Fill(cellValue)
	require.NoError(t, f.FillBoundary(context.Background()))
	assert.Equal(t, 16, len(f.ValidValues()))
}

func TestValidValues(t *testing.T) {
	l := NewLayout(NewBox(0, 0, 5, 3), [2]int{2, 2}, 1)
	f := New(l, comm.Self(), 1)
	f.Fill(cellValue)
	v := f.ValidValues()
	require.Len(t, v, 15)
	// The first patch is [(0,0)-(2,2)).
	assert.Equal(t, []float64{1, 101, 2, 102}, v[:4])

	g := New(l, comm.Self(), 0)
	g.SetValidValues(v)
	assert.Equal(t, v, g.ValidValues())
	assert.Panics(t, func() { g.SetValidValues(append(v, 1)) })
}

func newPair(t *testing.T) (x, y *Field) {
	t.Helper()
	l := NewLayout(NewBox(0, 0, 6, 4), [2]int{3, 4}, 1)
	x = New(l, comm.Self(), 1)
	x.Fill(func(i, j int) float64 { return float64(i + 1) })
	y = New(l, comm.Self(), 0)
	y.Fill(func(i, j int) float64 { return float64(j - 2) })
	return x, y
}

func TestVectorOps(t *testing.T) {
	x, y := newPair(t)
	xv, yv := x.ValidValues(), y.ValidValues()

	z := x.NewLike(2).(*Field)
	assert.Equal(t, 2, z.NGhost())
	assert.Equal(t, make([]float64, len(xv)), z.ValidValues())

	z.CopyFrom(x)
	assert.Equal(t, xv, z.ValidValues())

	z.AddScaled(2, y)
	for k, v := range z.ValidValues() {
		assert.Equal(t, xv[k]+2*yv[k], v)
	}

	z.CopyFrom(x)
	z.ScaleAdd(3, y)
	for k, v := range z.ValidValues() {
		assert.Equal(t, yv[k]+3*xv[k], v)
	}

	z.LinComb(2, x, -1, y)
	for k, v := range z.ValidValues() {
		assert.Equal(t, 2*xv[k]-yv[k], v)
	}

	var dot float64
	for k := range xv {
		dot += xv[k] * yv[k]
	}
	assert.Equal(t, dot, x.LocalDot(y))
	assert.Equal(t, 6.0, x.LocalNormInf())
	assert.Equal(t, 2.0, y.LocalNormInf())

	z.SetZero()
	assert.Zero(t, z.LocalNormInf())
}

func TestLinCombAliasing(t *testing.T) {
	for _, test := range []struct {
		name string
		comb func(x, y *Field)
		want func(x, y float64) float64
	}{
		{name: "dst is x", comb: func(x, y *Field) { x.LinComb(2, x, 3, y) }, want: func(x, y float64) float64 { return 2*x + 3*y }},
		{name: "dst is y", comb: func(x, y *Field) { x.LinComb(2, y, 3, x) }, want: func(x, y float64) float64 { return 2*y + 3*x }},
		{name: "dst is both", comb: func(x, _ *Field) { x.LinComb(2, x, 3, x) }, want: func(x, _ float64) float64 { return 5 * x }},
	} {
		x, y := newPair(t)
		xv, yv := x.ValidValues(), y.ValidValues()
		test.comb(x, y)
		for k, v := range x.ValidValues() {
			assert.Equal(t, test.want(xv[k], yv[k]), v, test.name)
		}
	}
}

func TestLocalNormInfNaN(t *testing.T) {
	x, _ := newPair(t)
	x.Patches()[1].Set(4, 2, math.NaN())
	assert.True(t, math.IsNaN(x.LocalNormInf()))
}

func TestMismatchedLayouts(t *testing.T) {
	x, _ := newPair(t)
	other := New(NewLayout(NewBox(0, 0, 6, 4), [2]int{3, 4}, 1), comm.Self(), 0)
	assert.Panics(t, func() { x.CopyFrom(other) })
	assert.Panics(t, func() { New(x.Layout(), comm.Self(), -1) })

	l := NewLayout(NewBox(0, 0, 6, 4), [2]int{3, 4}, 2)
	assert.Panics(t, func() { New(l, comm.Self(), 0) })
}

func TestPatchAccess(t *testing.T) {
	x, _ := newPair(t)
	p := x.Patches()[0]
	assert.Equal(t, NewBox(-1, -1, 5, 6), p.Grown())
	p.Set(-1, -1, 7)
	assert.Equal(t, 7.0, p.At(-1, -1))
	assert.Panics(t, func() { p.At(4, 0) })
	assert.Panics(t, func() { p.Set(0, 5, 1) })
}
