// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package comm provides the collective communication used by distributed
// fields and the Krylov solvers: global reductions and sparse point-to-point
// exchange between the ranks of a single SPMD world.
//
// Every operation of a Communicator is collective. All ranks of the world
// must call the same operations in the same order; a rank that skips a call
// leaves the others blocked until their context is done.
package comm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrWorldSize is returned by Run for a non-positive number of ranks.
var ErrWorldSize = errors.New("comm: world size must be positive")

// Communicator connects one rank to the rest of its world.
type Communicator interface {
	// Rank returns the rank of the caller, 0 <= Rank < Size.
	Rank() int
	// Size returns the number of ranks in the world.
	Size() int

	// AllReduceSum replaces every element of v with its sum over all
	// ranks. Contributions are combined in rank order, so all ranks
	// observe identical results.
	AllReduceSum(ctx context.Context, v []float64) error
	// AllReduceMax replaces every element of v with its maximum over all
	// ranks. A NaN contribution makes the result NaN.
	AllReduceMax(ctx context.Context, v []float64) error

	// Exchange sends out[dst] to every rank dst and returns the messages
	// addressed to the caller, keyed by source rank. Ranks without a
	// message for the caller are absent from the result.
	Exchange(ctx context.Context, out map[int][]float64) (map[int][]float64, error)

	// Barrier blocks until every rank has entered it.
	Barrier(ctx context.Context) error
}

// Self returns the communicator of a world with a single rank.
func Self() Communicator { return self{} }

type self struct{}

func (self) Rank() int { return 0 }
func (self) Size() int { return 1 }

func (self) AllReduceSum(ctx context.Context, v []float64) error { return ctx.Err() }
func (self) AllReduceMax(ctx context.Context, v []float64) error { return ctx.Err() }

func (self) Exchange(ctx context.Context, out map[int][]float64) (map[int][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in := make(map[int][]float64)
	if buf, ok := out[0]; ok {
		in[0] = append([]float64(nil), buf...)
	}
	return in, nil
}

func (self) Barrier(ctx context.Context) error { return ctx.Err() }

// Run starts an in-process world of size ranks, each running fn on its own
// goroutine with its own Communicator. The first error returned by a rank
// cancels the context passed to the others and is returned by Run.
func Run(ctx context.Context, size int, fn func(ctx context.Context, c Communicator) error) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrWorldSize, size)
	}
	g := newGroup(size)
	eg, ctx := errgroup.WithContext(ctx)
	for r := 0; r < size; r++ {
		m := &member{g: g, rank: r}
		eg.Go(func() error {
			return fn(ctx, m)
		})
	}
	return eg.Wait()
}

// group is the state shared by the ranks of an in-process world.
type group struct {
	size int
	bar  *barrier

	vals [][]float64   // Reduction contributions, indexed by rank.
	mail [][][]float64 // Exchange buffers, mail[src][dst].
}

func newGroup(size int) *group {
	g := &group{
		size: size,
		bar:  newBarrier(size),
		vals: make([][]float64, size),
		mail: make([][][]float64, size),
	}
	for i := range g.mail {
		g.mail[i] = make([][]float64, size)
	}
	return g
}

type member struct {
	g    *group
	rank int
}

func (m *member) Rank() int { return m.rank }
func (m *member) Size() int { return m.g.size }

func (m *member) AllReduceSum(ctx context.Context, v []float64) error {
	return m.allReduce(ctx, v, func(a, b float64) float64 { return a + b })
}

func (m *member) AllReduceMax(ctx context.Context, v []float64) error {
	return m.allReduce(ctx, v, math.Max)
}

func (m *member) allReduce(ctx context.Context, v []float64, op func(a, b float64) float64) error {
	g := m.g
	g.vals[m.rank] = v
	if err := g.bar.wait(ctx); err != nil {
		return err
	}
	out := make([]float64, len(v))
	copy(out, g.vals[0])
	for r := 1; r < g.size; r++ {
		vr := g.vals[r]
		if len(vr) != len(out) {
			panic("comm: mismatched reduction length")
		}
		for i := range out {
			out[i] = op(out[i], vr[i])
		}
	}
	// Nobody may overwrite its contribution before everyone has read it.
	if err := g.bar.wait(ctx); err != nil {
		return err
	}
	copy(v, out)
	return nil
}

func (m *member) Exchange(ctx context.Context, out map[int][]float64) (map[int][]float64, error) {
	g := m.g
	box := g.mail[m.rank]
	for dst := range box {
		box[dst] = nil
	}
	for dst, buf := range out {
		if dst < 0 || g.size <= dst {
			panic("comm: destination rank out of range")
		}
		box[dst] = buf
	}
	if err := g.bar.wait(ctx); err != nil {
		return nil, err
	}
	in := make(map[int][]float64)
	for src := 0; src < g.size; src++ {
		if buf := g.mail[src][m.rank]; buf != nil {
			in[src] = append([]float64(nil), buf...)
		}
	}
	if err := g.bar.wait(ctx); err != nil {
		return nil, err
	}
	return in, nil
}

func (m *member) Barrier(ctx context.Context) error {
	return m.g.bar.wait(ctx)
}

// barrier is a reusable rendezvous point for a fixed number of goroutines.
// Once a waiter gives up because its context is done the barrier is broken
// and the world must be abandoned.
type barrier struct {
	mu    sync.Mutex
	n     int
	count int
	ch    chan struct{}
}

func newBarrier(n int) *barrier {
	return &barrier{n: n, ch: make(chan struct{})}
}

func (b *barrier) wait(ctx context.Context) error {
	b.mu.Lock()
	ch := b.ch
	b.count++
	if b.count == b.n {
		b.count = 0
		b.ch = make(chan struct{})
		close(ch)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
