package cache

import (
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns item values into the opaque blobs handed to a Storage and back.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type msgpackCodec struct{}

// MsgpackCodec is the default Codec. Nil values round-trip as a present nil.
//
// msgpack stores integers in the smallest width that fits, so the Go integer
// type is lost. When decoding into an untyped destination (*any), every integer,
// including those nested in slices and maps, comes back as int64. Unsigned
// values above math.MaxInt64 come back as uint64. Use GetAs or Item.Decode
// with a typed destination to get a specific type back.
var MsgpackCodec Codec = msgpackCodec{}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return err
	}
	if p, ok := v.(*any); ok {
		*p = widenInts(*p)
	}
	return nil
}

func widenInts(v any) any {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
		return n
	case []any:
		for i := range n {
			n[i] = widenInts(n[i])
		}
		return n
	case map[string]any:
		for k, e := range n {
			n[k] = widenInts(e)
		}
		return n
	case map[any]any:
		for k, e := range n {
			n[k] = widenInts(e)
		}
		return n
	}
	return v
}
