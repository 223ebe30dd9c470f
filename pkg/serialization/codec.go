package serialization

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns values into bytes and back
// PRINCIPLES:
// - ISP: Three methods, nothing else
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
	Name() string
}

type jsonCodec struct{}

func (jsonCodec) Encode(v interface{}) ([]byte, error)    { return json.Marshal(v) }
func (jsonCodec) Decode(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                            { return "json" }

// msgpackCodec is the compact default for stored snapshots. Nested maps decode
// as map[string]interface{}, integers keep their msgpack width.
type msgpackCodec struct{}

func (msgpackCodec) Encode(v interface{}) ([]byte, error)    { return msgpack.Marshal(v) }
func (msgpackCodec) Decode(data []byte, v interface{}) error { return msgpack.Unmarshal(data, v) }
func (msgpackCodec) Name() string                            { return "msgpack" }

// NewJSONCodec creates a JSON codec
func NewJSONCodec() Codec { return jsonCodec{} }

// NewMsgPackCodec creates a MessagePack codec
func NewMsgPackCodec() Codec { return msgpackCodec{} }

// CodecByName resolves "json" or "msgpack"
func CodecByName(name string) (Codec, error) {
	switch name {
	case "json":
		return NewJSONCodec(), nil
	case "msgpack", "":
		return NewMsgPackCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
