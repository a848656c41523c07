package packet

import (
	"errors"
	"io"
	"strings"

	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec"
	"go.minekube.com/common/minecraft/component/codec/legacy"

	"go.minekube.com/floodgate/pkg/proto"
	"go.minekube.com/floodgate/pkg/proto/util"
)

// LoginDisconnectID is the packet id of the clientbound disconnect in the login state.
const LoginDisconnectID = 0x00

type Disconnect struct {
	Reason string // JSON text component
}

func (d *Disconnect) Encode(wr io.Writer) error {
	if d.Reason == "" {
		return errors.New("missing reason for disconnect")
	}
	return util.WriteString(wr, d.Reason)
}

func (d *Disconnect) Decode(rd io.Reader) (err error) {
	d.Reason, err = util.ReadString(rd)
	return err
}

var _ proto.Packet = (*Disconnect)(nil)

// jsonCodec emits components readable by clients older than 1.16.
var jsonCodec = &codec.Json{}

// DisconnectWith creates a Disconnect packet from a plain or legacy formatted
// (e.g. "§cKicked") message. JSON components are passed through as is.
func DisconnectWith(message string) *Disconnect {
	if strings.HasPrefix(message, "{") {
		if _, err := jsonCodec.Unmarshal([]byte(message)); err == nil {
			return &Disconnect{Reason: message}
		}
	}
	var c component.Component = &component.Text{Content: message}
	if strings.ContainsAny(message, "§&") {
		if parsed, err := (&legacy.Legacy{Char: legacy.SectionChar}).Unmarshal([]byte(message)); err == nil {
			c = parsed
		}
	}
	b := new(strings.Builder)
	if err := jsonCodec.Marshal(b, c); err != nil {
		b.Reset()
		b.WriteString(`{"text":""}`)
	}
	return &Disconnect{Reason: b.String()}
}
