package cache

// Aware holds an optional ItemPool. Embed it in components that can use a
// cache but must keep working without one.
type Aware struct {
	pool ItemPool
}

// SetPool sets or clears (nil) the pool.
func (a *Aware) SetPool(pool ItemPool) {
	a.pool = pool
}

// Pool returns the pool, which may be nil.
func (a *Aware) Pool() ItemPool {
	return a.pool
}

// HasPool reports whether a pool has been set.
func (a *Aware) HasPool() bool {
	return a.pool != nil
}
