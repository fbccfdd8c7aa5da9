package containers

import (
	"fmt"

	"github.com/spaghettifunk/swapper/engine/core"
)

// HandleStore is a growable, contiguous and indexable store of fixed-size
// records, typically GPU object handles. Capacity doubles when a push does
// not fit and halves when the count drops below half of it. A HandleStore is
// owned by a single goroutine.
type HandleStore[T any] struct {
	data      []T
	count     int
	destroyed bool
}

// NewHandleStore creates an empty store able to hold at least one record.
func NewHandleStore[T any](initialCapacity int) *HandleStore[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &HandleStore[T]{
		data: make([]T, initialCapacity),
	}
}

// NewHandleStoreFrom creates a store holding a copy of values.
func NewHandleStoreFrom[T any](values []T) *HandleStore[T] {
	hs := NewHandleStore[T](len(values))
	// cannot fail on a fresh store
	_ = hs.Extend(values...)
	return hs
}

func (hs *HandleStore[T]) Len() int {
	return hs.count
}

// Cap returns the capacity in records.
func (hs *HandleStore[T]) Cap() int {
	return len(hs.data)
}

func (hs *HandleStore[T]) Get(index int) (T, error) {
	var zero T
	if err := hs.checkIndex(index); err != nil {
		return zero, err
	}
	return hs.data[index], nil
}

// Ptr returns a pointer to the record at index. The pointer is only valid
// until the next call that changes the capacity.
func (hs *HandleStore[T]) Ptr(index int) (*T, error) {
	if err := hs.checkIndex(index); err != nil {
		return nil, err
	}
	return &hs.data[index], nil
}

func (hs *HandleStore[T]) Set(index int, value T) error {
	if err := hs.checkIndex(index); err != nil {
		return err
	}
	hs.data[index] = value
	return nil
}

func (hs *HandleStore[T]) Push(value T) error {
	return hs.Extend(value)
}

// Extend appends values, doubling the capacity as many times as needed.
func (hs *HandleStore[T]) Extend(values ...T) error {
	if hs.destroyed {
		return core.ErrDestroyed
	}
	desired := hs.count + len(values)
	if desired > len(hs.data) {
		newCap := len(hs.data) * 2
		for newCap < desired {
			newCap *= 2
		}
		hs.resize(newCap)
	}
	copy(hs.data[hs.count:], values)
	hs.count = desired
	return nil
}

// Pop removes and returns the last record. The capacity is halved once when
// the remaining count falls below half of it.
func (hs *HandleStore[T]) Pop() (T, error) {
	var zero T
	if hs.destroyed {
		return zero, core.ErrDestroyed
	}
	if hs.count == 0 {
		return zero, core.ErrEmpty
	}
	hs.count--
	value := hs.data[hs.count]
	hs.data[hs.count] = zero
	if hs.count < len(hs.data)/2 {
		hs.resize(len(hs.data) / 2)
	}
	return value, nil
}

// Clear drops every record and shrinks the store to a single record.
func (hs *HandleStore[T]) Clear() error {
	if hs.destroyed {
		return core.ErrDestroyed
	}
	hs.data = make([]T, 1)
	hs.count = 0
	return nil
}

// Destroy releases the backing storage. Any later call fails with
// core.ErrDestroyed.
func (hs *HandleStore[T]) Destroy() {
	hs.data = nil
	hs.count = 0
	hs.destroyed = true
}

func (hs *HandleStore[T]) IsDestroyed() bool {
	return hs.destroyed
}

// Slice returns the live records. The slice aliases the store, so it must not
// be retained across calls that change the capacity.
func (hs *HandleStore[T]) Slice() []T {
	return hs.data[:hs.count]
}

// All calls fn for every record in order, stopping at the first error.
func (hs *HandleStore[T]) All(fn func(index int, value T) error) error {
	if hs.destroyed {
		return core.ErrDestroyed
	}
	for i := 0; i < hs.count; i++ {
		if err := fn(i, hs.data[i]); err != nil {
			return err
		}
	}
	return nil
}

func (hs *HandleStore[T]) checkIndex(index int) error {
	if hs.destroyed {
		return core.ErrDestroyed
	}
	if index < 0 || index >= hs.count {
		return fmt.Errorf("%w: %d (count=%d)", core.ErrOutOfRange, index, hs.count)
	}
	return nil
}

func (hs *HandleStore[T]) resize(newCap int) {
	if newCap < 1 {
		newCap = 1
	}
	data := make([]T, newCap)
	copy(data, hs.data[:hs.count])
	hs.data = data
}
