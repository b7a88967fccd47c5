package engine

import "sync"

// customerLocks serializes turns per customer identifier. Turns for the same
// customer run strictly in arrival order; different customers proceed in
// parallel. Locks live for the process lifetime, matching the session
// lifecycle (eviction is an external concern).
type customerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCustomerLocks() *customerLocks {
	return &customerLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (c *customerLocks) forCustomer(customerID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[customerID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[customerID] = l
	}
	return l
}
