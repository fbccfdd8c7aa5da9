package containers

import (
	"fmt"

	"github.com/spaghettifunk/swapper/engine/core"
)

// OptionalIndex is an index that may not be known yet, such as the result
// of a queue family search.
type OptionalIndex struct {
	value    uint32
	hasValue bool
}

func EmptyIndex() OptionalIndex {
	return OptionalIndex{}
}

func IndexOf(value uint32) OptionalIndex {
	return OptionalIndex{value: value, hasValue: true}
}

func (o OptionalIndex) HasValue() bool {
	return o.hasValue
}

// Value fails with core.ErrAbsentValue when nothing was set.
func (o OptionalIndex) Value() (uint32, error) {
	if !o.hasValue {
		return 0, core.ErrAbsentValue
	}
	return o.value, nil
}

// MustValue panics when nothing was set. Only use it after the index has been
// validated.
func (o OptionalIndex) MustValue() uint32 {
	v, err := o.Value()
	if err != nil {
		panic(err)
	}
	return v
}

func (o *OptionalIndex) Set(value uint32) {
	o.value = value
	o.hasValue = true
}

func (o *OptionalIndex) Reset() {
	o.value = 0
	o.hasValue = false
}

func (o OptionalIndex) String() string {
	if !o.hasValue {
		return "none"
	}
	return fmt.Sprintf("%d", o.value)
}
