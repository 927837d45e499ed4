// Package codec encodes search requests and decodes search reply fragments.
//
// Payloads are opaque byte records on the transport. A reply payload is not
// trusted to be well formed: every decode failure is reported as a
// *DecodeError so the transaction engine can fail fast with a diagnostic.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxPayloadSize is the largest reply payload the decoder accepts (1 MiB).
const MaxPayloadSize = 1 << 20

// Codec names accepted by ByName.
const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

// Codec marshals values to and from transport payloads.
type Codec interface {
	// Name returns the codec name used in configuration.
	Name() string
	// Marshal encodes v.
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
	// isRecord reports whether data holds a single non-null map/object.
	isRecord(data []byte) error
}

// JSON is the default codec, compatible with Socket.IO responders.
var JSON Codec = jsonCodec{}

// Msgpack encodes payloads as MessagePack maps.
var Msgpack Codec = msgpackCodec{}

// ByName returns the codec registered under name. Empty means JSON.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case NameJSON, "":
		return JSON, nil
	case NameMsgpack:
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("invalid codec: %q (must be json or msgpack)", name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string                      { return NameJSON }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) isRecord(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty payload")
	}
	if !json.Valid(trimmed) {
		var probe any
		return json.Unmarshal(trimmed, &probe)
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("expected a JSON object, got %s", describeJSON(trimmed[0]))
	}
	return nil
}

func describeJSON(b byte) string {
	switch b {
	case '[':
		return "array"
	case '"':
		return "string"
	case 'n':
		return "null"
	case 't', 'f':
		return "boolean"
	default:
		return "number"
	}
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string                      { return NameMsgpack }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

func (msgpackCodec) isRecord(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty payload")
	}
	var probe map[string]any
	if err := msgpack.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe == nil {
		return errors.New("expected a msgpack map, got nil")
	}
	return nil
}
