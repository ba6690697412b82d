// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package field

// Layout is the decomposition of a rectangular domain into disjoint boxes
// and the assignment of every box to exactly one rank.
//
// A Layout is immutable after construction and may be shared by all ranks
// of a world.
type Layout struct {
	Domain Box
	Boxes  []Box
	Owner  []int // Owner[k] is the rank that owns Boxes[k].
	Ranks  int
}

// NewLayout chops domain into boxes of at most maxSize cells along each
// direction, in row-major order of boxes, and distributes contiguous runs
// of boxes over nranks ranks. Ranks beyond the number of boxes own nothing.
func NewLayout(domain Box, maxSize [2]int, nranks int) *Layout {
	switch {
	case domain.Empty():
		panic("field: empty domain")
	case maxSize[0] <= 0 || maxSize[1] <= 0:
		panic("field: non-positive maximum box size")
	case nranks <= 0:
		panic("field: non-positive number of ranks")
	}

	l := &Layout{Domain: domain, Ranks: nranks}
	for j := domain.Lo[1]; j < domain.Hi[1]; j += maxSize[1] {
		for i := domain.Lo[0]; i < domain.Hi[0]; i += maxSize[0] {
			l.Boxes = append(l.Boxes, Box{
				Lo: [2]int{i, j},
				Hi: [2]int{min(i+maxSize[0], domain.Hi[0]), min(j+maxSize[1], domain.Hi[1])},
			})
		}
	}
	nb := len(l.Boxes)
	l.Owner = make([]int, nb)
	for k := range l.Owner {
		l.Owner[k] = k * nranks / nb
	}
	return l
}

// Owned returns the indices of the boxes owned by rank, in increasing order.
func (l *Layout) Owned(rank int) []int {
	var idx []int
	for k, r := range l.Owner {
		if r == rank {
			idx = append(idx, k)
		}
	}
	return idx
}

// NumPts returns the number of cells in the domain.
func (l *Layout) NumPts() int {
	return l.Domain.NumPts()
}
