// Package connection holds the resolved identity of a Bedrock player
// that joined through Floodgate and a registry of live connections.
package connection

import (
	"fmt"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/floodgate/bedrock"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

// Connection is the Floodgate player of a single connection.
// It is immutable, a changed link state results in a new Connection.
type Connection struct {
	version         string
	bedrockUsername string
	xuid            string
	deviceOS        bedrock.DeviceOS
	languageCode    string
	uiProfile       bedrock.UIProfile
	inputMode       bedrock.InputMode
	ip              string
	identity        uuid.UUID
	javaUsername    string
	javaUUID        uuid.UUID
	linkedPlayer    *floodgate.LinkedPlayer
	fromProxy       bool
	subscribeID     int
	verifyCode      string
}

// Version is the Bedrock client version.
func (c *Connection) Version() string { return c.version }

// BedrockUsername is the Xbox gamertag of the player.
func (c *Connection) BedrockUsername() string { return c.bedrockUsername }

// XUID is the Xbox user id of the player.
func (c *Connection) XUID() string                          { return c.xuid }
func (c *Connection) DeviceOS() bedrock.DeviceOS            { return c.deviceOS }
func (c *Connection) LanguageCode() string                  { return c.languageCode }
func (c *Connection) UIProfile() bedrock.UIProfile          { return c.uiProfile }
func (c *Connection) InputMode() bedrock.InputMode          { return c.inputMode }
func (c *Connection) IP() string                            { return c.ip }
func (c *Connection) Identity() uuid.UUID                   { return c.identity }
func (c *Connection) FromProxy() bool                       { return c.fromProxy }
func (c *Connection) SubscribeID() int                      { return c.subscribeID }
func (c *Connection) VerifyCode() string                    { return c.verifyCode }
func (c *Connection) LinkedPlayer() *floodgate.LinkedPlayer { return c.linkedPlayer }

// IsLinked reports whether the Bedrock account is linked to a Java account.
func (c *Connection) IsLinked() bool { return c.linkedPlayer != nil }

// JavaUsername returns the effective Java username: the name of the
// linked Java account or else the formatted Bedrock username.
func (c *Connection) JavaUsername() string {
	if c.linkedPlayer != nil {
		return c.linkedPlayer.JavaUsername
	}
	return c.javaUsername
}

// JavaUUID returns the effective Java uuid: the uuid of the
// linked Java account or else the uuid derived from the xuid.
func (c *Connection) JavaUUID() uuid.UUID {
	if c.linkedPlayer != nil {
		return c.linkedPlayer.JavaUniqueID
	}
	return c.javaUUID
}

// BedrockUUID returns the uuid derived from the xuid regardless of any link.
func (c *Connection) BedrockUUID() uuid.UUID {
	id, _ := floodgate.JavaUUID(c.xuid)
	return id
}

// WithLinkedPlayer returns a copy of c with the given linked player.
func (c *Connection) WithLinkedPlayer(p *floodgate.LinkedPlayer) *Connection {
	cp := *c
	cp.linkedPlayer = p
	return &cp
}

// ToBedrockData returns the data to forward the connection to the next hop.
// The link is included so the next server does not have to look it up again.
func (c *Connection) ToBedrockData() *bedrock.Data {
	return &bedrock.Data{
		Version:      c.version,
		Username:     c.bedrockUsername,
		Xuid:         c.xuid,
		DeviceOS:     c.deviceOS,
		LanguageCode: c.languageCode,
		UIProfile:    c.uiProfile,
		InputMode:    c.inputMode,
		IP:           c.ip,
		Identity:     c.identity,
		LinkedPlayer: c.linkedPlayer,
		FromProxy:    true,
		SubscribeID:  c.subscribeID,
		VerifyCode:   c.verifyCode,
	}
}

func (c *Connection) String() string {
	return fmt.Sprintf("%s (%s, xuid %s)", c.JavaUsername(), c.JavaUUID(), c.xuid)
}

// Builder builds a Connection from decoded Bedrock data.
type Builder struct {
	Data         *bedrock.Data
	JavaUsername string
	JavaUUID     uuid.UUID
	LinkedPlayer *floodgate.LinkedPlayer
}

// NewBuilder returns a Builder with the identity derived from d.
func NewBuilder(d *bedrock.Data, formatter floodgate.UsernameFormatter) (*Builder, error) {
	id, err := d.JavaUUID()
	if err != nil {
		return nil, err
	}
	return &Builder{
		Data:         d,
		JavaUsername: formatter.Format(d.Username),
		JavaUUID:     id,
		LinkedPlayer: d.LinkedPlayer,
	}, nil
}

// Build returns the immutable Connection.
func (b *Builder) Build() *Connection {
	d := b.Data
	return &Connection{
		version:         d.Version,
		bedrockUsername: d.Username,
		xuid:            d.Xuid,
		deviceOS:        d.DeviceOS,
		languageCode:    d.LanguageCode,
		uiProfile:       d.UIProfile,
		inputMode:       d.InputMode,
		ip:              d.IP,
		identity:        d.Identity,
		javaUsername:    b.JavaUsername,
		javaUUID:        b.JavaUUID,
		linkedPlayer:    b.LinkedPlayer,
		fromProxy:       d.FromProxy,
		subscribeID:     d.SubscribeID,
		verifyCode:      d.VerifyCode,
	}
}
