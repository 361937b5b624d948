package handle

import "sync/atomic"

// Generator hands out successive handles sharing the same major and minor parts.
//
// It is safe for concurrent use; Next never blocks.
type Generator struct {
	cur atomic.Uint32
}

// NewGenerator creates a generator whose first Next returns New(major, minor, 1).
func NewGenerator(major uint8, minor uint8) *Generator {
	g := &Generator{}
	g.cur.Store(New(major, minor, 0).Value())

	return g
}

// Next increments the identifier and returns the new handle.
func (g *Generator) Next() Handle {
	for {
		old := g.cur.Load()
		next := Handle(old).Increment()
		if g.cur.CompareAndSwap(old, next.Value()) {
			return next
		}
	}
}

// Current returns the last handle returned by Next.
func (g *Generator) Current() Handle {
	return Handle(g.cur.Load())
}
