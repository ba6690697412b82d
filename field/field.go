// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package field implements a distributed, patch-structured scalar field on a
// rectangular two-dimensional index domain.
//
// The domain is decomposed by a Layout into boxes. Each rank of a world
// stores only the patches of the boxes it owns; every patch carries a halo
// of ghost cells of a fixed width. Vector arithmetic acts on the valid
// (non-ghost) cells only. Ghost cells are stale until FillBoundary is
// called.
//
// *Field implements krylov.Vector.
package field

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/vladimir-ch/krylov"
	"github.com/vladimir-ch/krylov/comm"
)

// Patch is the part of a field stored for one box of the layout.
type Patch struct {
	// Index is the index of the box in the layout.
	Index int
	// Box is the valid region of the patch.
	Box Box

	grown Box
	data  []float64 // Row-major over grown.
}

func newPatch(index int, b Box, nghost int) *Patch {
	g := b.Grow(nghost)
	return &Patch{
		Index: index,
		Box:   b,
		grown: g,
		data:  make([]float64, g.NumPts()),
	}
}

// Grown returns the valid region of p extended by its ghost cells.
func (p *Patch) Grown() Box { return p.grown }

func (p *Patch) offset(i, j int) int {
	nx, _ := p.grown.Size()
	return (j-p.grown.Lo[1])*nx + i - p.grown.Lo[0]
}

// At returns the value at cell (i, j), which may be a ghost cell.
func (p *Patch) At(i, j int) float64 {
	if !p.grown.Contains(i, j) {
		panic("field: cell outside patch")
	}
	return p.data[p.offset(i, j)]
}

// Set sets the value at cell (i, j), which may be a ghost cell.
func (p *Patch) Set(i, j int, v float64) {
	if !p.grown.Contains(i, j) {
		panic("field: cell outside patch")
	}
	p.data[p.offset(i, j)] = v
}

// span returns the cells [i0, i1) of row j as a slice of the patch data.
func (p *Patch) span(j, i0, i1 int) []float64 {
	o := p.offset(i0, j)
	return p.data[o : o+i1-i0]
}

// row returns the valid cells of row j.
func (p *Patch) row(j int) []float64 {
	return p.span(j, p.Box.Lo[0], p.Box.Hi[0])
}

// pack appends the values of region b to dst in row-major order.
func (p *Patch) pack(b Box, dst []float64) []float64 {
	for j := b.Lo[1]; j < b.Hi[1]; j++ {
		dst = append(dst, p.span(j, b.Lo[0], b.Hi[0])...)
	}
	return dst
}

// unpack fills region b from the front of src and returns the rest.
func (p *Patch) unpack(b Box, src []float64) []float64 {
	for j := b.Lo[1]; j < b.Hi[1]; j++ {
		n := copy(p.span(j, b.Lo[0], b.Hi[0]), src)
		src = src[n:]
	}
	return src
}

func (p *Patch) zeroGhosts() {
	for j := p.grown.Lo[1]; j < p.grown.Hi[1]; j++ {
		if j < p.Box.Lo[1] || p.Box.Hi[1] <= j {
			s := p.span(j, p.grown.Lo[0], p.grown.Hi[0])
			for i := range s {
				s[i] = 0
			}
			continue
		}
		for i := p.grown.Lo[0]; i < p.Box.Lo[0]; i++ {
			p.data[p.offset(i, j)] = 0
		}
		for i := p.Box.Hi[0]; i < p.grown.Hi[0]; i++ {
			p.data[p.offset(i, j)] = 0
		}
	}
}

// Field is the part of a distributed field owned by one rank.
type Field struct {
	layout  *Layout
	comm    comm.Communicator
	nghost  int
	patches []*Patch
	local   map[int]int // Box index to index in patches.

	plan *exchangePlan
}

// New returns a zero field over l with nghost ghost cells, holding the
// patches owned by the rank of c.
func New(l *Layout, c comm.Communicator, nghost int) *Field {
	if nghost < 0 {
		panic("field: negative ghost width")
	}
	if c.Size() != l.Ranks {
		panic("field: layout and communicator disagree on the number of ranks")
	}
	f := &Field{
		layout: l,
		comm:   c,
		nghost: nghost,
		local:  make(map[int]int),
	}
	for _, k := range l.Owned(c.Rank()) {
		f.local[k] = len(f.patches)
		f.patches = append(f.patches, newPatch(k, l.Boxes[k], nghost))
	}
	return f
}

// Layout returns the layout of f.
func (f *Field) Layout() *Layout { return f.layout }

// Patches returns the patches owned by the caller in increasing box order.
func (f *Field) Patches() []*Patch { return f.patches }

// Fill sets every valid cell (i, j) to fn(i, j).
func (f *Field) Fill(fn func(i, j int) float64) {
	for _, p := range f.patches {
		for j := p.Box.Lo[1]; j < p.Box.Hi[1]; j++ {
			row := p.row(j)
			for i := range row {
				row[i] = fn(p.Box.Lo[0]+i, j)
			}
		}
	}
}

// ValidValues returns the valid cells of the owned patches, patch by patch
// in row-major order.
func (f *Field) ValidValues() []float64 {
	var v []float64
	for _, p := range f.patches {
		v = p.pack(p.Box, v)
	}
	return v
}

// SetValidValues is the inverse of ValidValues.
func (f *Field) SetValidValues(v []float64) {
	for _, p := range f.patches {
		v = p.unpack(p.Box, v)
	}
	if len(v) != 0 {
		panic("field: too many values")
	}
}

// NewLike implements krylov.Vector.
func (f *Field) NewLike(nghost int) krylov.Vector {
	g := New(f.layout, f.comm, nghost)
	if nghost == f.nghost {
		g.plan = f.plan
	}
	return g
}

// NGhost implements krylov.Vector.
func (f *Field) NGhost() int { return f.nghost }

// Comm implements krylov.Vector.
func (f *Field) Comm() comm.Communicator { return f.comm }

// SetZero sets all valid and ghost cells to zero.
func (f *Field) SetZero() {
	for _, p := range f.patches {
		for i := range p.data {
			p.data[i] = 0
		}
	}
}

// CopyFrom implements krylov.Vector.
func (f *Field) CopyFrom(src krylov.Vector) {
	s := f.peer(src)
	if s == f {
		return
	}
	f.rows(s, func(dst, src []float64) { copy(dst, src) })
}

// AddScaled implements krylov.Vector.
func (f *Field) AddScaled(alpha float64, y krylov.Vector) {
	f.rows(f.peer(y), func(dst, y []float64) { floats.AddScaled(dst, alpha, y) })
}

// ScaleAdd implements krylov.Vector.
func (f *Field) ScaleAdd(beta float64, y krylov.Vector) {
	f.rows(f.peer(y), func(dst, y []float64) { floats.AddScaledTo(dst, y, beta, dst) })
}

// LinComb implements krylov.Vector.
func (f *Field) LinComb(a float64, x krylov.Vector, b float64, y krylov.Vector) {
	xf, yf := f.peer(x), f.peer(y)
	// An operand aliased with f must be consumed before it is overwritten.
	switch {
	case xf == f && yf == f:
		f.rows(f, func(dst, _ []float64) { floats.Scale(a+b, dst) })
	case yf == f:
		f.rows(xf, func(dst, x []float64) {
			floats.Scale(b, dst)
			floats.AddScaled(dst, a, x)
		})
	case xf == f:
		f.rows(yf, func(dst, y []float64) {
			floats.Scale(a, dst)
			floats.AddScaled(dst, b, y)
		})
	default:
		f.rows(xf, func(dst, x []float64) { floats.ScaleTo(dst, a, x) })
		f.rows(yf, func(dst, y []float64) { floats.AddScaled(dst, b, y) })
	}
}

// LocalDot implements krylov.Vector.
func (f *Field) LocalDot(y krylov.Vector) float64 {
	var sum float64
	f.rows(f.peer(y), func(a, b []float64) { sum += floats.Dot(a, b) })
	return sum
}

// LocalNormInf implements krylov.Vector.
func (f *Field) LocalNormInf() float64 {
	var norm float64
	for _, p := range f.patches {
		for j := p.Box.Lo[1]; j < p.Box.Hi[1]; j++ {
			norm = math.Max(norm, floats.Norm(p.row(j), math.Inf(1)))
		}
	}
	return norm
}

// peer converts v to a field compatible with f.
func (f *Field) peer(v krylov.Vector) *Field {
	g, ok := v.(*Field)
	if !ok {
		panic("field: vector is not a *field.Field")
	}
	if g.layout != f.layout || g.comm.Rank() != f.comm.Rank() {
		panic("field: mismatched layouts")
	}
	return g
}

// rows calls fn for every valid row of f paired with the same row of g.
func (f *Field) rows(g *Field, fn func(fr, gr []float64)) {
	for k, p := range f.patches {
		q := g.patches[k]
		for j := p.Box.Lo[1]; j < p.Box.Hi[1]; j++ {
			fn(p.row(j), q.row(j))
		}
	}
}

// FillBoundary sets the ghost cells of every owned patch to the values of
// the neighbouring patches that cover them, and to zero outside the domain.
// FillBoundary is collective over the communicator of f.
func (f *Field) FillBoundary(ctx context.Context) error {
	if f.nghost == 0 {
		return nil
	}
	if f.plan == nil {
		f.plan = newExchangePlan(f)
	}
	for _, p := range f.patches {
		p.zeroGhosts()
	}
	for _, c := range f.plan.local {
		src := f.patches[c.src]
		f.patches[c.dst].unpack(c.region, src.pack(c.region, nil))
	}

	out := make(map[int][]float64)
	for _, s := range f.plan.sends {
		out[s.rank] = f.patches[s.patch].pack(s.region, out[s.rank])
	}
	in, err := f.comm.Exchange(ctx, out)
	if err != nil {
		return err
	}
	for _, r := range f.plan.recvs {
		in[r.rank] = f.patches[r.patch].unpack(r.region, in[r.rank])
	}
	return nil
}

// exchangePlan lists the ghost regions of a field and where they come from.
// Sends and receives between a pair of ranks are both ordered by
// (destination box, source box), so the packed buffers need no headers.
type exchangePlan struct {
	local []localCopy
	sends []transfer
	recvs []transfer
}

type localCopy struct {
	dst, src int // Indices into Field.patches.
	region   Box
}

type transfer struct {
	rank   int // Peer rank.
	patch  int // Index into Field.patches.
	region Box
}

func newExchangePlan(f *Field) *exchangePlan {
	l := f.layout
	me := f.comm.Rank()
	plan := &exchangePlan{}

	// Ghost regions of boxes owned elsewhere that overlap our valid cells.
	for p, pb := range l.Boxes {
		if l.Owner[p] == me {
			continue
		}
		grown := pb.Grow(f.nghost)
		for _, q := range f.patches {
			if r, ok := grown.Intersect(q.Box); ok {
				plan.sends = append(plan.sends, transfer{rank: l.Owner[p], patch: f.local[q.Index], region: r})
			}
		}
	}

	// Our ghost regions, filled locally or by the owning rank.
	for dst, p := range f.patches {
		for q, qb := range l.Boxes {
			if q == p.Index {
				continue
			}
			r, ok := p.grown.Intersect(qb)
			if !ok {
				continue
			}
			if l.Owner[q] == me {
				plan.local = append(plan.local, localCopy{dst: dst, src: f.local[q], region: r})
				continue
			}
			plan.recvs = append(plan.recvs, transfer{rank: l.Owner[q], patch: dst, region: r})
		}
	}
	return plan
}
