package repositories

import (
	"encoding/json"
	"fmt"
	"sync"

	"configurator/internal/models"
)

// LocalOrdersKey is the fixed key the fallback order list is stored under.
const LocalOrdersKey = "mock_orders"

// LocalOrderStore keeps orders that could not reach the remote store as a
// JSON list, newest first, inside a KeyValueStore. Every read-modify-write
// holds the in-process mutex and the store's lock on the key, so processes
// sharing a directory do not overwrite each other.
type LocalOrderStore struct {
	kv  KeyValueStore
	key string
	mu  sync.Mutex
}

// NewLocalOrderStore creates a LocalOrderStore over kv.
func NewLocalOrderStore(kv KeyValueStore) *LocalOrderStore {
	return &LocalOrderStore{kv: kv, key: LocalOrdersKey}
}

// locked runs fn under both locks.
func (s *LocalOrderStore) locked(fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.kv.Lock(s.key)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("%w: failed to unlock %s: %w", ErrLocalStorageUnavailable, s.key, uerr)
		}
	}()
	return fn()
}

func (s *LocalOrderStore) load() ([]models.Order, error) {
	data, err := s.kv.Get(s.key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []models.Order{}, nil
	}
	var orders []models.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("%w: corrupt %s list: %w", ErrLocalStorageUnavailable, s.key, err)
	}
	return orders, nil
}

func (s *LocalOrderStore) save(orders []models.Order) error {
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("%w: failed to encode %s list: %w", ErrLocalStorageUnavailable, s.key, err)
	}
	return s.kv.Set(s.key, data)
}

// Prepend puts the order at the head of the list.
func (s *LocalOrderStore) Prepend(order models.Order) error {
	return s.locked(func() error {
		orders, err := s.load()
		if err != nil {
			return err
		}
		return s.save(append([]models.Order{order}, orders...))
	})
}

// List returns the stored orders in scope in list order, newest first.
func (s *LocalOrderStore) List(scope models.OrderScope) ([]models.Order, error) {
	var out []models.Order
	err := s.locked(func() error {
		orders, err := s.load()
		if err != nil {
			return err
		}
		out = make([]models.Order, 0, len(orders))
		for _, o := range orders {
			if scope.Matches(o) {
				out = append(out, o)
			}
		}
		return nil
	})
	return out, err
}

// Remove deletes the order with the given ID. It reports whether anything was removed.
func (s *LocalOrderStore) Remove(id string) (bool, error) {
	removed := false
	err := s.locked(func() error {
		orders, err := s.load()
		if err != nil {
			return err
		}
		for i, o := range orders {
			if o.ID == id {
				removed = true
				return s.save(append(orders[:i], orders[i+1:]...))
			}
		}
		return nil
	})
	return removed, err
}

// RemoveUnchanged deletes the stored copy of order only while its status
// still matches order.Status, the one field changed in place. When the status
// moved on, nothing is removed and the newer copy is returned. A nil order
// with a nil error means the record is gone.
func (s *LocalOrderStore) RemoveUnchanged(order models.Order) (*models.Order, error) {
	var current *models.Order
	err := s.locked(func() error {
		orders, err := s.load()
		if err != nil {
			return err
		}
		for i, o := range orders {
			if o.ID != order.ID {
				continue
			}
			if o.Status != order.Status {
				current = &o
				return nil
			}
			return s.save(append(orders[:i], orders[i+1:]...))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// UpdateStatus changes the status of a locally held order.
func (s *LocalOrderStore) UpdateStatus(id string, status models.OrderStatus) error {
	return s.locked(func() error {
		orders, err := s.load()
		if err != nil {
			return err
		}
		for i := range orders {
			if orders[i].ID == id {
				orders[i].Status = status
				return s.save(orders)
			}
		}
		return fmt.Errorf("order with ID %s not found in local store: %w", id, ErrNotFound)
	})
}
