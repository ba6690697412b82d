// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse provides small sparse matrices for building test operators.
package sparse

import (
	"cmp"
	"slices"
)

type index struct {
	row, col int
}

// Builder accumulates the entries of a matrix in coordinate form.
// Entries added more than once at the same position are summed.
type Builder struct {
	r, c int
	data map[index]float64
}

func NewBuilder(r, c int) *Builder {
	if r <= 0 || c <= 0 {
		panic("sparse: non-positive dimension")
	}
	return &Builder{
		r:    r,
		c:    c,
		data: make(map[index]float64),
	}
}

func (b *Builder) Dims() (r, c int) {
	return b.r, b.c
}

func (b *Builder) Add(i, j int, v float64) {
	if i < 0 || b.r <= i {
		panic("sparse: row index out of range")
	}
	if j < 0 || b.c <= j {
		panic("sparse: column index out of range")
	}
	b.data[index{i, j}] += v
}

// Compile returns the accumulated matrix in compressed sparse row form.
func (b *Builder) Compile() *CSR {
	idx := make([]index, 0, len(b.data))
	for ij := range b.data {
		idx = append(idx, ij)
	}
	slices.SortFunc(idx, func(x, y index) int {
		if c := cmp.Compare(x.row, y.row); c != 0 {
			return c
		}
		return cmp.Compare(x.col, y.col)
	})

	m := &CSR{
		r:      b.r,
		c:      b.c,
		indptr: make([]int, b.r+1),
		ind:    make([]int, len(idx)),
		val:    make([]float64, len(idx)),
	}
	for k, ij := range idx {
		m.indptr[ij.row+1]++
		m.ind[k] = ij.col
		m.val[k] = b.data[ij]
	}
	for i := 0; i < b.r; i++ {
		m.indptr[i+1] += m.indptr[i]
	}
	return m
}

// CSR is a matrix in compressed sparse row form.
type CSR struct {
	r, c   int
	indptr []int
	ind    []int
	val    []float64
}

func (m *CSR) Dims() (r, c int) {
	return m.r, m.c
}

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int {
	return len(m.val)
}

func (m *CSR) At(i, j int) float64 {
	if i < 0 || m.r <= i {
		panic("sparse: row index out of range")
	}
	if j < 0 || m.c <= j {
		panic("sparse: column index out of range")
	}
	cols := m.ind[m.indptr[i]:m.indptr[i+1]]
	if k, ok := slices.BinarySearch(cols, j); ok {
		return m.val[m.indptr[i]+k]
	}
	return 0
}

// MulVec computes dst = A*x.
func (m *CSR) MulVec(dst, x []float64) {
	if m.c != len(x) {
		panic("sparse: dimension mismatch")
	}
	if m.r != len(dst) {
		panic("sparse: dimension mismatch")
	}
	for i := range dst {
		var sum float64
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			sum += m.val[k] * x[m.ind[k]]
		}
		dst[i] = sum
	}
}

// MulTransVec computes dst = A^T*x.
func (m *CSR) MulTransVec(dst, x []float64) {
	if m.c != len(dst) {
		panic("sparse: dimension mismatch")
	}
	if m.r != len(x) {
		panic("sparse: dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	for i, xi := range x {
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			dst[m.ind[k]] += m.val[k] * xi
		}
	}
}
