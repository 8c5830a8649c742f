package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// The catalog RPC carries JSON bodies (content-subtype "json"), so the domain
// read model travels as-is without generated protobuf types.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
