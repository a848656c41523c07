// Package bedrock encodes and decodes the Bedrock client data carried
// inside a Floodgate token.
package bedrock

import (
	"errors"
	"fmt"
	"strings"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/floodgate/crypto"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

const (
	// MaxFieldLength bounds every single field of the payload.
	MaxFieldLength = 4096
	// MaxDataLength bounds the whole decrypted payload.
	MaxDataLength = 16 * 1024
)

var (
	// ErrInvalidFormat is returned for payloads whose fields cannot be parsed.
	ErrInvalidFormat = errors.New("invalid bedrock data format")
	// ErrUnsupportedVersion is returned by CodecFor for unknown data versions.
	ErrUnsupportedVersion = errors.New("unsupported bedrock data version")
)

// DataLengthError is returned when the field count of a payload
// does not match the expected count of its data version.
type DataLengthError struct {
	Version  int
	Expected int
	Got      int
}

func (e *DataLengthError) Error() string {
	return fmt.Sprintf("invalid bedrock data length for version %d: expected %d fields, got %d",
		e.Version, e.Expected, e.Got)
}

// Data is the client information sent by Geyser for a Bedrock player.
type Data struct {
	Version      string // client version
	Username     string // Bedrock gamertag
	Xuid         string // Xbox user id, numeric
	DeviceOS     DeviceOS
	LanguageCode string
	UIProfile    UIProfile
	InputMode    InputMode
	IP           string // real client address
	// Identity is the Bedrock identity uuid of the client, only carried by version 2.
	Identity uuid.UUID
	// LinkedPlayer is only set when an upstream proxy already resolved the link.
	LinkedPlayer *floodgate.LinkedPlayer
	FromProxy    bool
	// FromProxy, SubscribeID and VerifyCode are only carried by version 1.
	// SubscribeID and VerifyCode belong to the skin upload channel
	// and are passed through untouched.
	SubscribeID int
	VerifyCode  string

	// DataVersion is the version the data was decoded from.
	DataVersion int
}

// JavaUUID returns the uuid derived from the xuid.
func (d *Data) JavaUUID() (uuid.UUID, error) {
	return floodgate.JavaUUID(d.Xuid)
}

// Codec encodes and decodes Data for one data version.
type Codec interface {
	Version() int
	// ExpectedLength is the exact number of fields of a payload.
	ExpectedLength() int
	Encode(*Data) ([]byte, error)
	Decode([]byte) (*Data, error)
}

var codecs = map[int]Codec{
	crypto.Version1: textCodec{},
	crypto.Version2: binaryCodec{},
}

// CodecFor returns the codec of the given data version.
func CodecFor(version int) (Codec, error) {
	c, ok := codecs[version]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return c, nil
}

// Decode decodes plaintext with the codec of the given data version.
func Decode(version int, plaintext []byte) (*Data, error) {
	c, err := CodecFor(version)
	if err != nil {
		return nil, err
	}
	if len(plaintext) > MaxDataLength {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrInvalidFormat, len(plaintext), MaxDataLength)
	}
	return c.Decode(plaintext)
}

// Encode encodes d with the codec of the given data version.
func Encode(version int, d *Data) ([]byte, error) {
	c, err := CodecFor(version)
	if err != nil {
		return nil, err
	}
	return c.Encode(d)
}

// linked player text form: javaUsername;javaUniqueId;bedrockId
const linkedPlayerSeparator = ";"

func formatLinkedPlayer(p *floodgate.LinkedPlayer) string {
	if p == nil {
		return "null"
	}
	return strings.Join([]string{p.JavaUsername, p.JavaUniqueID.String(), p.BedrockID.String()}, linkedPlayerSeparator)
}

func parseLinkedPlayer(s string) (*floodgate.LinkedPlayer, error) {
	if s == "null" || s == "" {
		return nil, nil
	}
	parts := strings.Split(s, linkedPlayerSeparator)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: linked player has %d parts", ErrInvalidFormat, len(parts))
	}
	javaID, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: linked player java uuid: %v", ErrInvalidFormat, err)
	}
	bedrockID, err := uuid.Parse(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: linked player bedrock uuid: %v", ErrInvalidFormat, err)
	}
	return floodgate.NewLinkedPlayer(parts[0], javaID, bedrockID), nil
}
