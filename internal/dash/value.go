package dash

import "sync"

// Value is an observable holder. Set notifies subscribers synchronously,
// in subscription order, on the caller's goroutine; inside this package
// that is always the Loop. Readers may call Get from any goroutine.
// Subscribers must treat received values as read-only.
type Value[T any] struct {
	mu   sync.RWMutex
	v    T
	subs []subscriber[T]
	next int
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

// Set replaces the value and notifies subscribers.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	v.v = x
	subs := make([]subscriber[T], len(v.subs))
	copy(subs, v.subs)
	v.mu.Unlock()

	for _, s := range subs {
		s.fn(x)
	}
}

// Subscribe registers fn and returns a function that removes it.
func (v *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	v.mu.Lock()
	id := v.next
	v.next++
	v.subs = append(v.subs, subscriber[T]{id: id, fn: fn})
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		for i, s := range v.subs {
			if s.id == id {
				v.subs = append(v.subs[:i:i], v.subs[i+1:]...)
				return
			}
		}
	}
}
