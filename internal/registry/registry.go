// Package registry keeps the ordered, duplicate-free list of receiver chats.
package registry

import "errors"

var (
	ErrAlreadyRegistered = errors.New("receiver already registered")
	ErrNotRegistered     = errors.New("receiver not registered")
)

// Store is the durable backing list (config.Store satisfies it).
type Store interface {
	Receivers() []int64
	AppendReceiver(id int64) error
	RemoveReceiverAt(i int) error
}

// Registry is not safe for concurrent mutation; the station serializes it.
type Registry struct {
	store Store
}

func New(store Store) *Registry { return &Registry{store: store} }

// List returns a snapshot in subscription order.
func (r *Registry) List() []int64 { return r.store.Receivers() }

func (r *Registry) Contains(id int64) bool { return indexOf(r.store.Receivers(), id) >= 0 }

// Add appends id. A persist failure is returned as is; the receiver is
// registered in memory regardless.
func (r *Registry) Add(id int64) error {
	if r.Contains(id) {
		return ErrAlreadyRegistered
	}
	return r.store.AppendReceiver(id)
}

// Remove deletes id, preserving the order of the rest.
func (r *Registry) Remove(id int64) error {
	i := indexOf(r.store.Receivers(), id)
	if i < 0 {
		return ErrNotRegistered
	}
	return r.store.RemoveReceiverAt(i)
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
