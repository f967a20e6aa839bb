package mqttv5

import (
	"context"
	"errors"
	"sync"
)

// ErrPacketIDWaitCanceled indicates a caller suspended in acquireWait had
// its context canceled before an id became free.
var ErrPacketIDWaitCanceled = errors.New("packet id wait canceled")

// packetIDAllocator allocates MQTT packet identifiers (1-65535). acquire
// always returns the smallest currently unused id. When none are free,
// acquireWait enqueues the caller on a FIFO retry queue and suspends until
// release wakes the oldest waiter, or until ctx is canceled.
// MQTT v5.0 spec: Section 2.2.1
type packetIDAllocator struct {
	mu      sync.Mutex
	used    map[uint16]struct{}
	waiters []chan struct{}
}

func newPacketIDAllocator() *packetIDAllocator {
	return &packetIDAllocator{used: make(map[uint16]struct{})}
}

// acquire returns the smallest unused id, or ErrPacketIDExhausted.
func (a *packetIDAllocator) acquire() (uint16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquireLocked()
}

func (a *packetIDAllocator) acquireLocked() (uint16, error) {
	for id := uint16(1); id != 0; id++ {
		if _, ok := a.used[id]; !ok {
			a.used[id] = struct{}{}
			return id, nil
		}
		if id == 65535 {
			break
		}
	}
	return 0, ErrPacketIDExhausted
}

// acquireWait blocks until an id is free or ctx is done. On cancellation it
// removes itself from the wait queue and returns ErrPacketIDWaitCanceled.
func (a *packetIDAllocator) acquireWait(ctx context.Context) (uint16, error) {
	for {
		a.mu.Lock()
		id, err := a.acquireLocked()
		if err == nil {
			a.mu.Unlock()
			return id, nil
		}

		wake := make(chan struct{})
		a.waiters = append(a.waiters, wake)
		a.mu.Unlock()

		select {
		case <-wake:
			// Woken because an id was released. Another waiter may have
			// raced ahead and taken it; loop back and try again.
			continue
		case <-ctx.Done():
			a.removeWaiter(wake)
			return 0, ErrPacketIDWaitCanceled
		}
	}
}

func (a *packetIDAllocator) removeWaiter(wake chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, w := range a.waiters {
		if w == wake {
			a.waiters = append(a.waiters[:i], a.waiters[i+1:]...)
			return
		}
	}
}

// release frees id and wakes the oldest waiter, if any, in FIFO order.
func (a *packetIDAllocator) release(id uint16) {
	a.mu.Lock()
	delete(a.used, id)
	var wake chan struct{}
	if len(a.waiters) > 0 {
		wake = a.waiters[0]
		a.waiters = a.waiters[1:]
	}
	a.mu.Unlock()

	if wake != nil {
		close(wake)
	}
}

// inUse reports whether id is currently allocated.
func (a *packetIDAllocator) inUse(id uint16) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.used[id]
	return ok
}

// count returns the number of ids currently allocated.
func (a *packetIDAllocator) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.used)
}

// reset clears all allocations and wakes every waiter so they re-race for
// ids against the now-empty set. Used when a session is discarded, e.g. on
// a clean-start reconnect.
func (a *packetIDAllocator) reset() {
	a.mu.Lock()
	a.used = make(map[uint16]struct{})
	waiters := a.waiters
	a.waiters = nil
	a.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}
