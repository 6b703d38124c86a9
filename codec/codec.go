// Package codec encodes values persisted by vecdb, such as ledger entries.
//
// Encode prefixes every payload with a one-byte tag naming its codec, so
// entries written with one codec stay readable after the configured codec
// changes.
package codec

import (
	"errors"
	"fmt"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Tags identifying the codec of an encoded payload.
const (
	tagJSON    byte = 'j'
	tagGoJSON  byte = 'g'
	tagMsgpack byte = 'm'
)

// ErrUnknownCodec is returned by Decode for payloads with an unknown tag.
var ErrUnknownCodec = errors.New("codec: unknown codec tag")

// Default is the codec used for persisted values.
var Default Codec = Msgpack{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "msgpack":
		return Msgpack{}, true
	default:
		return nil, false
	}
}

// Names lists the built-in codec names accepted by ByName.
func Names() []string {
	return []string{"json", "go-json", "msgpack"}
}

func tagOf(c Codec) (byte, bool) {
	switch c.Name() {
	case "json":
		return tagJSON, true
	case "go-json":
		return tagGoJSON, true
	case "msgpack":
		return tagMsgpack, true
	default:
		return 0, false
	}
}

func byTag(tag byte) (Codec, bool) {
	switch tag {
	case tagJSON:
		return JSON{}, true
	case tagGoJSON:
		return GoJSON{}, true
	case tagMsgpack:
		return Msgpack{}, true
	default:
		return nil, false
	}
}

// Encode marshals v with c and prefixes the codec tag. A nil c uses Default.
// Only built-in codecs can be tagged.
func Encode(c Codec, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}

	tag, ok := tagOf(c)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, c.Name())
	}

	payload, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(payload)+1)
	out = append(out, tag)

	return append(out, payload...), nil
}

// Decode unmarshals data produced by Encode into v, using whichever codec
// the tag names.
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrUnknownCodec)
	}

	c, ok := byTag(data[0])
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCodec, data[0])
	}

	return c.Unmarshal(data[1:], v)
}
