package balance

import (
	"sync"
	"time"

	"github.com/milhasrod/gateway/internal/task"
)

type entry struct {
	balance   int64
	refreshed time.Time
}

// Cache holds the last balance read from the ledger per user.
// The ledger stays authoritative: values only ever come from a ledger refresh, the most recent refresh wins and
// entries older than the lifetime are treated as absent.
type Cache struct {
	mtx      sync.RWMutex
	entries  map[string]*entry
	lifetime time.Duration
	now      func() time.Time

	sweeper *task.RepeatingTask
}

// NewCache creates a new balance cache whose entries live for the given lifetime
func NewCache(lifetime time.Duration) *Cache {
	return &Cache{
		entries:  make(map[string]*entry),
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Store records a freshly refreshed balance for the given user
func (cache *Cache) Store(userID string, balance int64) {
	cache.mtx.Lock()
	defer cache.mtx.Unlock()
	cache.entries[userID] = &entry{
		balance:   balance,
		refreshed: cache.now(),
	}
}

// Lookup returns the cached balance of the given user and whether a non-expired one exists
func (cache *Cache) Lookup(userID string) (int64, bool) {
	cache.mtx.RLock()
	defer cache.mtx.RUnlock()
	cached, ok := cache.entries[userID]
	if !ok || cache.expired(cached) {
		return 0, false
	}
	return cached.balance, true
}

// Invalidate drops the cached balance of the given user
func (cache *Cache) Invalidate(userID string) {
	cache.mtx.Lock()
	defer cache.mtx.Unlock()
	delete(cache.entries, userID)
}

// Size returns the amount of cached (possibly expired) entries
func (cache *Cache) Size() int {
	cache.mtx.RLock()
	defer cache.mtx.RUnlock()
	return len(cache.entries)
}

// Sweep removes all expired entries and returns how many were removed
func (cache *Cache) Sweep() int {
	cache.mtx.Lock()
	defer cache.mtx.Unlock()
	removed := 0
	for userID, cached := range cache.entries {
		if cache.expired(cached) {
			delete(cache.entries, userID)
			removed++
		}
	}
	return removed
}

// ScheduleSweep schedules the task removing expired entries in a specific interval.
// StopSweep has to be called once the cache is no longer needed.
func (cache *Cache) ScheduleSweep(tick time.Duration) {
	if cache.sweeper != nil {
		return
	}
	cache.sweeper = task.NewRepeating("balance-cache-sweep", func() { cache.Sweep() }, tick)
	cache.sweeper.Start()
}

// StopSweep stops the sweeping task
func (cache *Cache) StopSweep() {
	if cache.sweeper == nil {
		return
	}
	cache.sweeper.Stop(false)
	cache.sweeper = nil
}

func (cache *Cache) expired(cached *entry) bool {
	return cache.lifetime > 0 && cache.now().Sub(cached.refreshed) > cache.lifetime
}
