package util

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"go.minekube.com/floodgate/pkg/util/uuid"
)

// DefaultMaxStringLength is the maximum number of characters a
// string read with ReadString may have.
const DefaultMaxStringLength = 32767

var ErrVarIntTooBig = errors.New("decode: VarInt is too big")

func ReadString(rd io.Reader) (string, error) {
	return ReadStringMax(rd, DefaultMaxStringLength)
}

// ReadStringMax reads a VarInt length-prefixed UTF-8 string of at most max characters.
// The length is checked before any allocation.
func ReadStringMax(rd io.Reader, max int) (string, error) {
	length, err := ReadVarInt(rd)
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", fmt.Errorf("decode, string length is < 0: %d", length)
	}
	if length > max*4 { // *4 since UTF8 character has up to 4 bytes
		return "", fmt.Errorf("bad string length (got %d, max. %d)", length, max)
	}
	str := make([]byte, length)
	if _, err = io.ReadFull(rd, str); err != nil {
		return "", err
	}
	return string(str), nil
}

// ReadBytesLen reads a VarInt length-prefixed byte slice of at most maxLength bytes.
func ReadBytesLen(rd io.Reader, maxLength int) ([]byte, error) {
	length, err := ReadVarInt(rd)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("decode, bytes length is < 0: %d", length)
	}
	if length > maxLength {
		return nil, fmt.Errorf("decode, bytes length %d is above given maximum: %d", length, maxLength)
	}
	b := make([]byte, length)
	_, err = io.ReadFull(rd, b)
	return b, err
}

// ReadVarInt reads a Minecraft VarInt (up to 5 bytes, two's complement int32).
func ReadVarInt(r io.Reader) (int, error) {
	var n uint32
	for i := 0; ; i++ {
		sec, err := ReadUint8(r)
		if err != nil {
			return 0, err
		}
		n |= uint32(sec&0x7F) << uint32(7*i)
		if sec&0x80 == 0 {
			break
		}
		if i >= 4 {
			return 0, ErrVarIntTooBig
		}
	}
	return int(int32(n)), nil
}

func ReadBool(rd io.Reader) (bool, error) {
	v, err := ReadUint8(rd)
	return v != 0, err
}

func ReadUint8(rd io.Reader) (uint8, error) {
	if br, ok := rd.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	_, err := io.ReadFull(rd, b[:])
	return b[0], err
}

func ReadUint16(rd io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(rd, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// ReadUUID reads a uuid encoded as two big-endian 64 bit integers.
func ReadUUID(rd io.Reader) (uuid.UUID, error) {
	var b [16]byte
	if _, err := io.ReadFull(rd, b[:]); err != nil {
		return uuid.Nil, err
	}
	return uuid.FromBytes(b[:])
}
