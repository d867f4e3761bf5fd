package testfixtures

import (
	"fmt"
	"sync/atomic"
)

// IDGenerator yields "<prefix>-0001", "<prefix>-0002", ... The counter is
// zero padded so lexical order matches issue order, as it does for the ULIDs
// used in production history.
type IDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewIDGenerator returns a generator for prefix, defaulting to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.counter.Add(1))
}

// NextFunc returns Next for injection; a nil generator yields empty IDs.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued reports how many identifiers have been handed out.
func (g *IDGenerator) Issued() int {
	return int(g.counter.Load())
}
