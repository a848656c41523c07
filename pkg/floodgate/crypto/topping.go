package crypto

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

// Splitter separates the encoded sections of a token.
const Splitter = '!'

// Topping turns the binary sections produced by the cipher into
// handshake safe text and back.
type Topping interface {
	Encode(sections [][]byte) []byte
	Decode(data []byte) ([][]byte, error)
}

// Base64Topping encodes every section with base64 and joins them with Splitter.
type Base64Topping struct{ enc *base64.Encoding }

var (
	// StdTopping is used by data version 1.
	StdTopping = Base64Topping{enc: base64.StdEncoding.Strict()}
	// URLTopping is used by data version 2.
	URLTopping = Base64Topping{enc: base64.URLEncoding.Strict()}
)

func (t Base64Topping) Encode(sections [][]byte) []byte {
	encoded := make([][]byte, len(sections))
	for i, s := range sections {
		encoded[i] = make([]byte, t.enc.EncodedLen(len(s)))
		t.enc.Encode(encoded[i], s)
	}
	return bytes.Join(encoded, []byte{Splitter})
}

// Decode splits data on Splitter and decodes every section.
// Line breaks are rejected since the decoder would silently skip them.
func (t Base64Topping) Decode(data []byte) ([][]byte, error) {
	if bytes.ContainsAny(data, "\r\n") {
		return nil, fmt.Errorf("%w: line break in encoded data", ErrMalformed)
	}
	parts := bytes.Split(data, []byte{Splitter})
	sections := make([][]byte, len(parts))
	for i, p := range parts {
		if len(p) == 0 {
			return nil, fmt.Errorf("%w: empty section %d", ErrMalformed, i)
		}
		dst := make([]byte, t.enc.DecodedLen(len(p)))
		n, err := t.enc.Decode(dst, p)
		if err != nil {
			return nil, fmt.Errorf("%w: section %d: %v", ErrMalformed, i, err)
		}
		sections[i] = dst[:n]
	}
	return sections, nil
}
