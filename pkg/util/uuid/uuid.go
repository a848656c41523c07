package uuid

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"

	guuid "github.com/google/uuid"
)

type UUID guuid.UUID

// Empty UUID, all zeros
var Nil = UUID(guuid.Nil)

// String returns the string form of uuid,
// xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx , or "" if uuid is invalid.
func (i UUID) String() string {
	return guuid.UUID(i).String()
}

// Undashed returns the undashed string form of the uuid.
func (i UUID) Undashed() string {
	return hex.EncodeToString(i[:])
}

// MostSignificantBits returns the upper 64 bits of the uuid
// interpreted as a signed big-endian integer.
func (i UUID) MostSignificantBits() int64 {
	return int64(binary.BigEndian.Uint64(i[:8]))
}

// LeastSignificantBits returns the lower 64 bits of the uuid
// interpreted as a signed big-endian integer.
// For Bedrock derived uuids this is the player's xuid.
func (i UUID) LeastSignificantBits() int64 {
	return int64(binary.BigEndian.Uint64(i[8:]))
}

func (i UUID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(i.String())), nil
}
func (i *UUID) UnmarshalJSON(b []byte) (err error) {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("expected quoted uuid, but got %s: %w", b, err)
	}
	*i, err = Parse(s)
	return
}

func (i UUID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (i *UUID) UnmarshalText(b []byte) (err error) {
	*i, err = ParseBytes(b)
	return
}

// Parse decodes s into a UUID or returns an error. Both the dashed and
// the undashed (raw hex) forms are accepted.
func Parse(s string) (UUID, error) {
	uuid, err := guuid.Parse(s)
	return UUID(uuid), err
}

// MustParse is like Parse but panics if s cannot be parsed.
func MustParse(s string) UUID { return UUID(guuid.MustParse(s)) }

// ParseBytes is like Parse, except it parses a byte slice instead of a string.
func ParseBytes(b []byte) (UUID, error) {
	uuid, err := guuid.ParseBytes(b)
	return UUID(uuid), err
}

// FromBytes creates a new UUID from a byte slice. Returns an error if the slice
// does not have a length of 16. The bytes are copied from the slice.
func FromBytes(b []byte) (UUID, error) {
	uuid, err := guuid.FromBytes(b)
	return UUID(uuid), err
}

// FromBits builds a uuid from its two 64 bit halves.
func FromBits(most, least int64) (id UUID) {
	binary.BigEndian.PutUint64(id[:8], uint64(most))
	binary.BigEndian.PutUint64(id[8:], uint64(least))
	return id
}

// New creates a new random UUID or panics.
func New() UUID { return UUID(guuid.New()) }
