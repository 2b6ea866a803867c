package models

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the exchange as a [user, model] pair.
func (e Exchange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.User, e.Model})
}

// UnmarshalJSON decodes a [user, model] pair. A null model reply, which the page sends for an exchange
// whose stream never finished, is treated as an empty reply.
func (e *Exchange) UnmarshalJSON(data []byte) error {
	var pair []*string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("failed to unmarshal exchange: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("exchange must have 2 entries, got %d", len(pair))
	}

	*e = Exchange{}
	if pair[0] != nil {
		e.User = *pair[0]
	}
	if pair[1] != nil {
		e.Model = *pair[1]
	}
	return nil
}
