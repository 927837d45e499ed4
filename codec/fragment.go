package codec

import (
	"fmt"

	"github.com/pithecene-io/holonet/types"
)

// DecodeFragment decodes one reply payload.
//
// Errors:
//   - *DecodeError with Kind=DecodeErrorTooLarge: payload exceeds MaxPayloadSize
//   - *DecodeError with Kind=DecodeErrorSyntax: not a single record
//   - *DecodeError with Kind=DecodeErrorShape: a field has the wrong type
//   - *DecodeError with Kind=DecodeErrorInvalid: error sentinel without a message
func DecodeFragment(c Codec, payload []byte) (*types.Fragment, error) {
	if len(payload) > MaxPayloadSize {
		return nil, &DecodeError{
			Kind:  DecodeErrorTooLarge,
			Codec: c.Name(),
			Msg:   fmt.Sprintf("reply size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	if err := c.isRecord(payload); err != nil {
		return nil, &DecodeError{
			Kind:  DecodeErrorSyntax,
			Codec: c.Name(),
			Msg:   "failed to decode search reply",
			Err:   err,
		}
	}

	var f types.Fragment
	if err := c.Unmarshal(payload, &f); err != nil {
		return nil, &DecodeError{
			Kind:  DecodeErrorShape,
			Codec: c.Name(),
			Msg:   "failed to decode search reply fields",
			Err:   err,
		}
	}

	if f.IsError() && f.Error == "" {
		return nil, &DecodeError{
			Kind:  DecodeErrorInvalid,
			Codec: c.Name(),
			Msg:   "search reply signals an error without a message",
		}
	}

	return &f, nil
}

// EncodeFragment encodes a reply fragment.
func EncodeFragment(c Codec, f *types.Fragment) ([]byte, error) {
	data, err := c.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode search reply: %w", err)
	}
	return data, nil
}

// EncodeQuery encodes a search request.
func EncodeQuery(c Codec, q *types.Query) ([]byte, error) {
	data, err := c.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}
	return data, nil
}

// DecodeQuery decodes a search request.
func DecodeQuery(c Codec, payload []byte) (*types.Query, error) {
	if err := c.isRecord(payload); err != nil {
		return nil, &DecodeError{
			Kind:  DecodeErrorSyntax,
			Codec: c.Name(),
			Msg:   "failed to decode search request",
			Err:   err,
		}
	}
	var q types.Query
	if err := c.Unmarshal(payload, &q); err != nil {
		return nil, &DecodeError{
			Kind:  DecodeErrorShape,
			Codec: c.Name(),
			Msg:   "failed to decode search request fields",
			Err:   err,
		}
	}
	return &q, nil
}
