package packet

import (
	"io"

	"go.minekube.com/floodgate/pkg/proto"
	"go.minekube.com/floodgate/pkg/proto/util"
)

// HandshakeID is the packet id of the serverbound handshake.
const HandshakeID = 0x00

// Next states a handshake can request.
const (
	StatusState   = 1
	LoginState    = 2
	TransferState = 3
)

// MaxServerAddressLength bounds the handshake hostname. Floodgate
// tokens make it much longer than the vanilla limit of 255.
const MaxServerAddressLength = 8192

// https://wiki.vg/Protocol#Handshaking
type Handshake struct {
	ProtocolVersion int
	ServerAddress   string
	Port            int
	NextStatus      int
}

func (h *Handshake) Encode(wr io.Writer) error {
	err := util.WriteVarInt(wr, h.ProtocolVersion)
	if err != nil {
		return err
	}
	err = util.WriteString(wr, h.ServerAddress)
	if err != nil {
		return err
	}
	err = util.WriteUint16(wr, uint16(h.Port))
	if err != nil {
		return err
	}
	return util.WriteVarInt(wr, h.NextStatus)
}

func (h *Handshake) Decode(rd io.Reader) (err error) {
	h.ProtocolVersion, err = util.ReadVarInt(rd)
	if err != nil {
		return err
	}
	h.ServerAddress, err = util.ReadStringMax(rd, MaxServerAddressLength)
	if err != nil {
		return err
	}
	port, err := util.ReadUint16(rd)
	if err != nil {
		return err
	}
	h.Port = int(port)
	h.NextStatus, err = util.ReadVarInt(rd)
	return err
}

// Login reports whether the client intends to log in.
func (h *Handshake) Login() bool {
	return h.NextStatus == LoginState || h.NextStatus == TransferState
}

var _ proto.Packet = (*Handshake)(nil)
