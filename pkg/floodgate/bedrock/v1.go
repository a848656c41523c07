package bedrock

import (
	"fmt"
	"strconv"
	"strings"

	"go.minekube.com/floodgate/pkg/floodgate/crypto"
)

// ExpectedLengthV1 is the field count of a version 1 payload.
const ExpectedLengthV1 = 12

const fieldSeparator = "\x00"

// textCodec is the version 1 format sent by Geyser: the fields as
// strings joined with a null byte in a fixed order.
type textCodec struct{}

func (textCodec) Version() int        { return crypto.Version1 }
func (textCodec) ExpectedLength() int { return ExpectedLengthV1 }

func (textCodec) Encode(d *Data) ([]byte, error) {
	fields := []string{
		d.Version,
		d.Username,
		d.Xuid,
		strconv.Itoa(int(d.DeviceOS)),
		d.LanguageCode,
		strconv.Itoa(int(d.UIProfile)),
		strconv.Itoa(int(d.InputMode)),
		d.IP,
		formatLinkedPlayer(d.LinkedPlayer),
		formatBool(d.FromProxy),
		strconv.Itoa(d.SubscribeID),
		d.VerifyCode,
	}
	for i, f := range fields {
		if strings.Contains(f, fieldSeparator) {
			return nil, fmt.Errorf("%w: field %d contains a null byte", ErrInvalidFormat, i)
		}
	}
	if _, err := strconv.ParseInt(d.Xuid, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: xuid %q is not numeric", ErrInvalidFormat, d.Xuid)
	}
	if p := d.LinkedPlayer; p != nil && strings.Contains(p.JavaUsername, linkedPlayerSeparator) {
		return nil, fmt.Errorf("%w: linked java username %q contains %q", ErrInvalidFormat, p.JavaUsername, linkedPlayerSeparator)
	}
	return []byte(strings.Join(fields, fieldSeparator)), nil
}

func (textCodec) Decode(b []byte) (*Data, error) {
	parts := strings.Split(string(b), fieldSeparator)
	if len(parts) != ExpectedLengthV1 {
		return nil, &DataLengthError{Version: crypto.Version1, Expected: ExpectedLengthV1, Got: len(parts)}
	}
	for i, p := range parts {
		if len(p) > MaxFieldLength {
			return nil, fmt.Errorf("%w: field %d is %d bytes long", ErrInvalidFormat, i, len(p))
		}
	}

	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return nil, fmt.Errorf("%w: xuid %q is not numeric", ErrInvalidFormat, parts[2])
	}
	ints := make([]int, 0, 4)
	for _, i := range []int{3, 5, 6, 10} {
		v, err := strconv.Atoi(parts[i])
		if err != nil {
			return nil, fmt.Errorf("%w: field %d %q is not numeric", ErrInvalidFormat, i, parts[i])
		}
		ints = append(ints, v)
	}
	linked, err := parseLinkedPlayer(parts[8])
	if err != nil {
		return nil, err
	}

	return &Data{
		Version:      parts[0],
		Username:     parts[1],
		Xuid:         parts[2],
		DeviceOS:     DeviceOSFromID(ints[0]),
		LanguageCode: parts[4],
		UIProfile:    UIProfileFromID(ints[1]),
		InputMode:    InputModeFromID(ints[2]),
		IP:           parts[7],
		LinkedPlayer: linked,
		FromProxy:    parts[9] == "1",
		SubscribeID:  ints[3],
		VerifyCode:   parts[11],
		DataVersion:  crypto.Version1,
	}, nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
