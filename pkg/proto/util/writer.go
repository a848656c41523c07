package util

import (
	"encoding/binary"
	"io"

	"go.minekube.com/floodgate/pkg/util/uuid"
)

func WriteString(wr io.Writer, val string) error {
	return WriteBytes(wr, []byte(val))
}

func WriteBytes(wr io.Writer, b []byte) error {
	if err := WriteVarInt(wr, len(b)); err != nil {
		return err
	}
	_, err := wr.Write(b)
	return err
}

func WriteVarInt(wr io.Writer, val int) error {
	uval := uint32(val)
	for uval >= 0x80 {
		if err := WriteUint8(wr, byte(uval)|0x80); err != nil {
			return err
		}
		uval >>= 7
	}
	return WriteUint8(wr, byte(uval))
}

// VarIntLen returns the number of bytes val takes as a VarInt.
func VarIntLen(val int) int {
	uval := uint32(val)
	n := 1
	for uval >= 0x80 {
		uval >>= 7
		n++
	}
	return n
}

func WriteBool(wr io.Writer, val bool) error {
	if val {
		return WriteUint8(wr, 1)
	}
	return WriteUint8(wr, 0)
}

func WriteUint8(wr io.Writer, val uint8) error {
	_, err := wr.Write([]byte{val})
	return err
}

func WriteUint16(wr io.Writer, val uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], val)
	_, err := wr.Write(b[:])
	return err
}

// WriteUUID writes id as the most significant
// 64 bits followed by the least significant 64 bits.
func WriteUUID(wr io.Writer, id uuid.UUID) error {
	_, err := wr.Write(id[:])
	return err
}
