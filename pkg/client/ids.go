package client

import "sync/atomic"

// Request ids start well clear of order ids so the two sequences are
// distinguishable in traffic captures.
const requestIDSeed = 9000

// idGenerator hands out a monotonically increasing id sequence. Generation
// is lock-free and never blocks on network I/O.
type idGenerator struct {
	next atomic.Int64
}

func newIDGenerator(start int) *idGenerator {
	g := &idGenerator{}
	g.next.Store(int64(start))
	return g
}

func (g *idGenerator) Next() int {
	return int(g.next.Add(1) - 1)
}

// Peek returns the next id without consuming it.
func (g *idGenerator) Peek() int {
	return int(g.next.Load())
}
