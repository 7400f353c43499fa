package givmodbus

import (
	"encoding/json"
	"fmt"
)

// RegisterCache is a sparse map from register to last-seen raw value.
// Absence of a key is distinct from a zero value: a register that has
// never been read is simply missing, not 0.
type RegisterCache map[Register]uint16

// NewRegisterCache returns an empty cache ready for use.
func NewRegisterCache() RegisterCache {
	return make(RegisterCache)
}

// Update merges src into the cache, overwriting any existing values.
func (c RegisterCache) Update(src map[Register]uint16) {
	for k, v := range src {
		c[k] = v
	}
}

// Get returns the raw value and whether it was present.
func (c RegisterCache) Get(r Register) (uint16, bool) {
	v, ok := c[r]
	return v, ok
}

// MarshalJSON renders keys in "HR(17)"/"IR(17)" form, matching the
// original implementation's on-disk cache format.
func (c RegisterCache) MarshalJSON() ([]byte, error) {
	out := make(map[string]uint16, len(c))
	for k, v := range c {
		out[k.String()] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the "HR(17)"/"IR(17)" key form, silently discarding
// any key it cannot parse as a register reference.
func (c *RegisterCache) UnmarshalJSON(b []byte) error {
	var raw map[string]uint16
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(RegisterCache, len(raw))
	for k, v := range raw {
		reg, ok := ParseRegister(k)
		if !ok {
			continue
		}
		out[reg] = v
	}
	*c = out
	return nil
}

func (c RegisterCache) String() string {
	return fmt.Sprintf("RegisterCache(%d registers)", len(c))
}
