package bedrock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strconv"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/floodgate/crypto"
	"go.minekube.com/floodgate/pkg/proto/util"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

// ExpectedLengthV2 is the field count of a version 2 payload.
const ExpectedLengthV2 = 10

// binaryCodec is the version 2 format of Floodgate 3. Fields are written
// back to back without a count:
//
//	version string, username string, identity uuid, xuid uint64,
//	device byte, language string, ui profile byte, input mode byte,
//	ip (length byte + 4 or 16 address bytes), linked bool
//	[bedrock uuid, java uuid, java username string]
//
// Strings are VarInt length prefixed, uuids and the xuid big endian.
// A payload ending before the last field is a length error.
type binaryCodec struct{}

func (binaryCodec) Version() int        { return crypto.Version2 }
func (binaryCodec) ExpectedLength() int { return ExpectedLengthV2 }

func (binaryCodec) Encode(d *Data) ([]byte, error) {
	xuid, err := strconv.ParseUint(d.Xuid, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: xuid %q is not numeric", ErrInvalidFormat, d.Xuid)
	}
	ip, err := netip.ParseAddr(d.IP)
	if err != nil {
		return nil, fmt.Errorf("%w: ip %q: %v", ErrInvalidFormat, d.IP, err)
	}
	if !fitsByte(int(d.DeviceOS)) || !fitsByte(int(d.UIProfile)) || !fitsByte(int(d.InputMode)) {
		return nil, fmt.Errorf("%w: enum id does not fit a byte", ErrInvalidFormat)
	}

	buf := new(bytes.Buffer)
	w := &writer{w: buf}
	w.string(d.Version)
	w.string(d.Username)
	w.uuid(d.Identity)
	w.uint64(xuid)
	w.byte(byte(d.DeviceOS))
	w.string(d.LanguageCode)
	w.byte(byte(d.UIProfile))
	w.byte(byte(d.InputMode))
	w.ip(ip)
	w.bool(d.LinkedPlayer != nil)
	if p := d.LinkedPlayer; p != nil {
		w.uuid(p.BedrockID)
		w.uuid(p.JavaUniqueID)
		w.string(p.JavaUsername)
	}
	if w.err != nil {
		return nil, w.err
	}
	return buf.Bytes(), nil
}

func (binaryCodec) Decode(b []byte) (*Data, error) {
	rd := bytes.NewReader(b)
	r := &reader{r: rd}
	d := &Data{DataVersion: crypto.Version2}
	var xuid uint64
	var ip netip.Addr
	r.field(func() { d.Version = r.string() })
	r.field(func() { d.Username = r.string() })
	r.field(func() { d.Identity = r.uuid() })
	r.field(func() { xuid = r.uint64() })
	r.field(func() { d.DeviceOS = DeviceOSFromID(int(r.byte())) })
	r.field(func() { d.LanguageCode = r.string() })
	r.field(func() { d.UIProfile = UIProfileFromID(int(r.byte())) })
	r.field(func() { d.InputMode = InputModeFromID(int(r.byte())) })
	r.field(func() { ip = r.ip() })
	r.field(func() {
		if r.bool() {
			bedrockID, javaID := r.uuid(), r.uuid()
			d.LinkedPlayer = floodgate.NewLinkedPlayer(r.string(), javaID, bedrockID)
		}
	})
	if r.err != nil {
		if errors.Is(r.err, io.EOF) || errors.Is(r.err, io.ErrUnexpectedEOF) {
			return nil, &DataLengthError{Version: crypto.Version2, Expected: ExpectedLengthV2, Got: r.fields}
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, r.err)
	}
	if rd.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidFormat, rd.Len())
	}
	d.Xuid = strconv.FormatUint(xuid, 10)
	d.IP = ip.String()
	return d, nil
}

func fitsByte(v int) bool { return v >= 0 && v <= 0xFF }

// reader and writer keep the first error so decoding reads linearly.

type reader struct {
	r      io.Reader
	err    error
	fields int // completely read fields
}

func (r *reader) field(read func()) {
	if r.err != nil {
		return
	}
	read()
	if r.err == nil {
		r.fields++
	}
}

func (r *reader) string() (s string) {
	if r.err == nil {
		s, r.err = util.ReadStringMax(r.r, MaxFieldLength/4)
	}
	return
}

func (r *reader) byte() (b byte) {
	if r.err == nil {
		b, r.err = util.ReadUint8(r.r)
	}
	return
}

func (r *reader) bool() bool {
	switch b := r.byte(); {
	case r.err != nil:
		return false
	case b > 1:
		r.err = fmt.Errorf("invalid bool byte %d", b)
		return false
	default:
		return b == 1
	}
}

func (r *reader) uint64() (v uint64) {
	if r.err == nil {
		r.err = binary.Read(r.r, binary.BigEndian, &v)
	}
	return
}

func (r *reader) uuid() (id uuid.UUID) {
	if r.err == nil {
		id, r.err = util.ReadUUID(r.r)
	}
	return
}

func (r *reader) ip() (ip netip.Addr) {
	n := r.byte()
	if r.err != nil {
		return
	}
	if n != 4 && n != 16 {
		r.err = fmt.Errorf("invalid ip length %d", n)
		return
	}
	b := make([]byte, n)
	if _, r.err = io.ReadFull(r.r, b); r.err != nil {
		return
	}
	ip, _ = netip.AddrFromSlice(b)
	return ip
}

type writer struct {
	w   io.Writer
	err error
}

func (w *writer) string(s string) {
	if w.err == nil {
		if len(s) > MaxFieldLength {
			w.err = fmt.Errorf("%w: field of %d bytes exceeds %d", ErrInvalidFormat, len(s), MaxFieldLength)
			return
		}
		w.err = util.WriteString(w.w, s)
	}
}

func (w *writer) byte(b byte) {
	if w.err == nil {
		w.err = util.WriteUint8(w.w, b)
	}
}

func (w *writer) bool(b bool) {
	if w.err == nil {
		w.err = util.WriteBool(w.w, b)
	}
}

func (w *writer) uint64(v uint64) {
	if w.err == nil {
		w.err = binary.Write(w.w, binary.BigEndian, v)
	}
}

func (w *writer) uuid(id uuid.UUID) {
	if w.err == nil {
		w.err = util.WriteUUID(w.w, id)
	}
}

func (w *writer) ip(ip netip.Addr) {
	b := ip.AsSlice()
	w.byte(byte(len(b)))
	if w.err == nil {
		_, w.err = w.w.Write(b)
	}
}
