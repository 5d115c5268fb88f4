/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvlru

import "encoding/json"

// Codec converts cached values to bytes and back.
type Codec[V any] interface {
	Marshal(value V) ([]byte, error)
	Unmarshal(data []byte, value *V) error
}

// JSONCodec is a Codec that uses encoding/json. It's used by default.
type JSONCodec[V any] struct{}

// Marshal implements Codec.
func (JSONCodec[V]) Marshal(value V) ([]byte, error) {
	return json.Marshal(value)
}

// Unmarshal implements Codec.
func (JSONCodec[V]) Unmarshal(data []byte, value *V) error {
	return json.Unmarshal(data, value)
}

// BytesCodec is a Codec for raw byte slice values, they are stored as is.
type BytesCodec struct{}

// Marshal implements Codec.
func (BytesCodec) Marshal(value []byte) ([]byte, error) {
	return value, nil
}

// Unmarshal implements Codec.
func (BytesCodec) Unmarshal(data []byte, value *[]byte) error {
	*value = append([]byte(nil), data...)
	return nil
}
