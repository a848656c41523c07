// Package proto implements the small subset of the Minecraft Java edition
// protocol needed to inspect and rewrite a client handshake before
// forwarding the connection.
package proto

import (
	"bytes"
	"fmt"
	"io"

	"go.minekube.com/floodgate/pkg/proto/util"
)

// Packet should be implemented by any Minecraft protocol packet.
type Packet interface {
	Encode(wr io.Writer) error      // Encodes the packet into the writer
	Decode(rd io.Reader) (err error) // Decodes a packet by reading from the reader
}

// Frame is an uncompressed, length-prefixed packet frame.
type Frame struct {
	ID      int
	Payload []byte // packet data without the id
}

// ReadFrame reads one uncompressed frame of at most maxLen bytes.
// The length prefix is validated before the frame is allocated.
func ReadFrame(rd io.Reader, maxLen int) (*Frame, error) {
	length, err := util.ReadVarInt(rd)
	if err != nil {
		return nil, err
	}
	if length <= 0 || length > maxLen {
		return nil, fmt.Errorf("bad frame length %d (max. %d)", length, maxLen)
	}
	buf := make([]byte, length)
	if _, err = io.ReadFull(rd, buf); err != nil {
		return nil, err
	}
	r := bytes.NewReader(buf)
	id, err := util.ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("error reading packet id: %w", err)
	}
	return &Frame{ID: id, Payload: buf[len(buf)-r.Len():]}, nil
}

// Decode decodes the frame's payload into p.
func (f *Frame) Decode(p Packet) error {
	return p.Decode(bytes.NewReader(f.Payload))
}

// WriteFrame encodes p with the given packet id as an uncompressed frame.
func WriteFrame(wr io.Writer, id int, p Packet) error {
	body := new(bytes.Buffer)
	if err := util.WriteVarInt(body, id); err != nil {
		return err
	}
	if err := p.Encode(body); err != nil {
		return err
	}
	frame := new(bytes.Buffer)
	frame.Grow(util.VarIntLen(body.Len()) + body.Len())
	if err := util.WriteVarInt(frame, body.Len()); err != nil {
		return err
	}
	frame.Write(body.Bytes())
	_, err := wr.Write(frame.Bytes())
	return err
}
