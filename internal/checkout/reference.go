package checkout

import (
	"strconv"
	"sync/atomic"
	"time"
)

// referenceGenerator issues millisecond-timestamp references that never repeat
// within the process, even for sessions opened in the same millisecond.
type referenceGenerator struct {
	last atomic.Int64
	now  func() time.Time
}

func newReferenceGenerator(now func() time.Time) *referenceGenerator {
	if now == nil {
		now = time.Now
	}
	return &referenceGenerator{now: now}
}

func (g *referenceGenerator) next() string {
	for {
		candidate := g.now().UnixMilli()
		prev := g.last.Load()
		if candidate <= prev {
			candidate = prev + 1
		}
		if g.last.CompareAndSwap(prev, candidate) {
			return strconv.FormatInt(candidate, 10)
		}
	}
}
