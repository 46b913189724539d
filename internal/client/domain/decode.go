package domain

import (
	"bytes"
	"encoding/json"
)

// createPayload shadows the storage-owned fields of Client so a create body can never set them.
type createPayload struct {
	*Client
	ID        json.RawMessage `json:"id"`
	StorageID json.RawMessage `json:"_id"`
	UpdatedAt json.RawMessage `json:"updated_at"`
}

// DecodeClient builds a validated Client from a JSON create payload. Defaults are applied for
// omitted fields; identifier and updated_at keys in the payload are ignored. Unknown keys are ignored.
func DecodeClient(payload []byte) (*Client, error) {
	c := NewClient("", "")
	if err := json.Unmarshal(payload, &createPayload{Client: c}); err != nil {
		return nil, decodeError(err)
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// UnmarshalJSON applies the contact preference defaults (email channel, marketing allowed)
// before decoding the supplied keys.
func (p *ContactPreferences) UnmarshalJSON(data []byte) error {
	type plain ContactPreferences
	v := plain{PreferredChannel: ChannelEmail, AllowMarketing: true}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = ContactPreferences(v)
	return nil
}

// Optional records whether a JSON key was present. Set with a nil Value means the key was an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON is only invoked for keys present in the payload, including explicit nulls.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a set Optional holding an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}
