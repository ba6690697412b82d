// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package field

import "fmt"

// Box is a half-open rectangle of cell indices,
//  Lo[0] <= i < Hi[0], Lo[1] <= j < Hi[1].
type Box struct {
	Lo, Hi [2]int
}

// NewBox returns the box of nx×ny cells with lower corner (i0, j0).
func NewBox(i0, j0, nx, ny int) Box {
	return Box{Lo: [2]int{i0, j0}, Hi: [2]int{i0 + nx, j0 + ny}}
}

// Size returns the number of cells along each direction.
func (b Box) Size() (nx, ny int) {
	return b.Hi[0] - b.Lo[0], b.Hi[1] - b.Lo[1]
}

// Empty reports whether b contains no cells.
func (b Box) Empty() bool {
	return b.Hi[0] <= b.Lo[0] || b.Hi[1] <= b.Lo[1]
}

// NumPts returns the number of cells in b.
func (b Box) NumPts() int {
	if b.Empty() {
		return 0
	}
	nx, ny := b.Size()
	return nx * ny
}

// Grow returns b extended by n cells on every side.
func (b Box) Grow(n int) Box {
	return Box{
		Lo: [2]int{b.Lo[0] - n, b.Lo[1] - n},
		Hi: [2]int{b.Hi[0] + n, b.Hi[1] + n},
	}
}

// Intersect returns the common part of b and o and whether it is
// non-empty.
func (b Box) Intersect(o Box) (Box, bool) {
	r := Box{
		Lo: [2]int{max(b.Lo[0], o.Lo[0]), max(b.Lo[1], o.Lo[1])},
		Hi: [2]int{min(b.Hi[0], o.Hi[0]), min(b.Hi[1], o.Hi[1])},
	}
	return r, !r.Empty()
}

// Contains reports whether the cell (i, j) lies in b.
func (b Box) Contains(i, j int) bool {
	return b.Lo[0] <= i && i < b.Hi[0] && b.Lo[1] <= j && j < b.Hi[1]
}

func (b Box) String() string {
	return fmt.Sprintf("[(%d,%d)-(%d,%d))", b.Lo[0], b.Lo[1], b.Hi[0], b.Hi[1])
}
