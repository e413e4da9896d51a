// Package codec encodes scene updates for transports.
//
// Viewers over SSE get JSON; the broker sinks (Redis, MQTT) default to
// MessagePack, which keeps point arrays and image bytes compact. Both codecs
// use the json struct tags of the domain types, so field names are identical
// on every transport.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec marshals transport messages.
type Codec interface {
	Name() string
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the text codec.
type JSON struct{}

func (JSON) Name() string        { return "json" }
func (JSON) ContentType() string { return "application/json" }

func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// MsgPack is the binary codec.
type MsgPack struct{}

func (MsgPack) Name() string        { return "msgpack" }
func (MsgPack) ContentType() string { return "application/msgpack" }

func (MsgPack) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgPack) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// ByName returns the codec registered under name.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON{}, nil
	case "msgpack", "messagepack":
		return MsgPack{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// Negotiate picks a codec from an HTTP Accept header, defaulting to JSON.
func Negotiate(accept string) Codec {
	if strings.Contains(accept, "msgpack") {
		return MsgPack{}
	}
	return JSON{}
}
