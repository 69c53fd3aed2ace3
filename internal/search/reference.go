package search

import (
	"strconv"
	"sync"
	"time"
)

// ReferencePrefix prefixes every generated spend reference
const ReferencePrefix = "search_"

// ReferenceGenerator generates the references correlating a debit with its potential refund.
// References are derived from a millisecond clock reading and are strictly increasing within the generator, so two
// attempts never share one even if they start within the same millisecond.
type ReferenceGenerator struct {
	mtx  sync.Mutex
	last int64
	now  func() time.Time
}

// NewReferenceGenerator creates a new reference generator reading the wall clock
func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{now: time.Now}
}

// Next returns a fresh, never before returned reference
func (gen *ReferenceGenerator) Next() string {
	gen.mtx.Lock()
	defer gen.mtx.Unlock()

	now := gen.now
	if now == nil {
		now = time.Now
	}
	stamp := now().UnixMilli()
	if stamp <= gen.last {
		stamp = gen.last + 1
	}
	gen.last = stamp
	return ReferencePrefix + strconv.FormatInt(stamp, 10)
}
