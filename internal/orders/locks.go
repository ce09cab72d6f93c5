package orders

import "sync"

// keyedLocks serializes mutations per order id: two concurrent writes on the
// same order queue up, writes on different orders proceed independently.
// Lock entries are never reaped; order cardinality in one service instance
// stays far below where that matters.
type keyedLocks struct {
	m sync.Map // order id -> *sync.Mutex
}

func (k *keyedLocks) lock(id string) (unlock func()) {
	v, _ := k.m.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
