package guard

import "sync"

// InFlight tracks keys (usually user IDs) that currently have a guarded search running.
// The controller itself does not exclude concurrent invocations; callers use InFlight to reject a second submit
// while the first one is still pending.
type InFlight struct {
	mtx  sync.Mutex
	keys map[string]struct{}
}

// NewInFlight creates a new empty in-flight set
func NewInFlight() *InFlight {
	return &InFlight{
		keys: make(map[string]struct{}),
	}
}

// Acquire marks the key as in flight.
// Returns false if the key is already in flight. Otherwise the returned function has to be called to release it;
// calling it more than once is a no-op.
func (inFlight *InFlight) Acquire(key string) (func(), bool) {
	inFlight.mtx.Lock()
	defer inFlight.mtx.Unlock()
	if _, ok := inFlight.keys[key]; ok {
		return nil, false
	}
	inFlight.keys[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			inFlight.mtx.Lock()
			delete(inFlight.keys, key)
			inFlight.mtx.Unlock()
		})
	}, true
}

// Size returns the amount of keys currently in flight
func (inFlight *InFlight) Size() int {
	inFlight.mtx.Lock()
	defer inFlight.mtx.Unlock()
	return len(inFlight.keys)
}
