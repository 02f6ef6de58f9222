package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SelectionValue holds a single chosen option key or a set of option keys for
// one product option group. JSON form is a bare string or a string array.
type SelectionValue struct {
	single string
	multi  []string
	isList bool
}

// SingleOption builds a value for a radio-style group.
func SingleOption(key string) SelectionValue {
	return SelectionValue{single: key}
}

// MultiOption builds a value for a check-style group.
func MultiOption(keys ...string) SelectionValue {
	copied := make([]string, len(keys))
	copy(copied, keys)
	return SelectionValue{multi: copied, isList: true}
}

// IsList reports whether the value carries multiple option keys.
func (v SelectionValue) IsList() bool {
	return v.isList
}

// Option returns the single option key for radio-style values.
func (v SelectionValue) Option() string {
	return v.single
}

// Options returns a copy of the option keys for check-style values.
func (v SelectionValue) Options() []string {
	copied := make([]string, len(v.multi))
	copy(copied, v.multi)
	return copied
}

// Sorted returns the value with list entries ordered, leaving single values
// untouched. Used to normalize cart keys.
func (v SelectionValue) Sorted() SelectionValue {
	if !v.isList {
		return v
	}
	sorted := v.Options()
	sort.Strings(sorted)
	return SelectionValue{multi: sorted, isList: true}
}

// Equal compares two values after normalization.
func (v SelectionValue) Equal(other SelectionValue) bool {
	if v.isList != other.isList {
		return false
	}
	if !v.isList {
		return v.single == other.single
	}
	a, b := v.Sorted().multi, other.Sorted().multi
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler.
func (v SelectionValue) MarshalJSON() ([]byte, error) {
	if v.isList {
		if v.multi == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.multi)
	}
	return json.Marshal(v.single)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *SelectionValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*v = SelectionValue{single: single}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(data, &multi); err == nil {
		*v = SelectionValue{multi: multi, isList: true}
		return nil
	}
	return fmt.Errorf("selection value must be a string or string array")
}

// CartSelection maps option-group keys to the chosen option key(s).
type CartSelection map[string]SelectionValue

// Sorted returns a copy with every list value ordered.
func (s CartSelection) Sorted() CartSelection {
	if s == nil {
		return nil
	}
	normalized := make(CartSelection, len(s))
	for key, value := range s {
		normalized[key] = value.Sorted()
	}
	return normalized
}

// Equal compares two selections after normalization.
func (s CartSelection) Equal(other CartSelection) bool {
	if len(s) != len(other) {
		return false
	}
	for key, value := range s {
		counterpart, ok := other[key]
		if !ok || !value.Equal(counterpart) {
			return false
		}
	}
	return true
}

// SortedKeys returns the group keys in lexicographic order.
func (s CartSelection) SortedKeys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
