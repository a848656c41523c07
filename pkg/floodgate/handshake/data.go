package handshake

import (
	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/floodgate/bedrock"
	"go.minekube.com/floodgate/pkg/floodgate/connection"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

// Data is the in-progress state of a handshake handed to hooks.
// Hooks may change the identity, the hostname and the disconnect
// reason but never the decoded Bedrock data.
//
// Data is not safe for concurrent use, hooks are called one after another.
type Data struct {
	channel          connection.Channel
	bedrock          *bedrock.Data // nil if not a Floodgate player
	javaUsername     string
	javaUUID         uuid.UUID
	linkedPlayer     *floodgate.LinkedPlayer
	hostname         string
	ip               string
	disconnectReason string
}

func newData(ch connection.Channel, hostname string) *Data {
	return &Data{channel: ch, hostname: hostname}
}

func (d *Data) Channel() connection.Channel { return d.channel }

// IsFloodgatePlayer reports whether the Bedrock data was decoded.
func (d *Data) IsFloodgatePlayer() bool { return d.bedrock != nil }

// BedrockData returns a copy of the decoded Bedrock data or nil.
func (d *Data) BedrockData() *bedrock.Data {
	if d.bedrock == nil {
		return nil
	}
	cp := *d.bedrock
	return &cp
}

// JavaUsername is the formatted Bedrock username, ignoring any link.
func (d *Data) JavaUsername() string { return d.javaUsername }

// JavaUniqueID is the uuid derived from the xuid, ignoring any link.
func (d *Data) JavaUniqueID() uuid.UUID { return d.javaUUID }

// CorrectUsername returns the username the player will join with.
func (d *Data) CorrectUsername() string {
	if d.linkedPlayer != nil {
		return d.linkedPlayer.JavaUsername
	}
	return d.javaUsername
}

// CorrectUniqueID returns the uuid the player will join with.
func (d *Data) CorrectUniqueID() uuid.UUID {
	if d.linkedPlayer != nil {
		return d.linkedPlayer.JavaUniqueID
	}
	return d.javaUUID
}

func (d *Data) LinkedPlayer() *floodgate.LinkedPlayer { return d.linkedPlayer }
func (d *Data) Hostname() string                      { return d.hostname }

// IP is the real address of the Bedrock client.
func (d *Data) IP() string { return d.ip }

func (d *Data) DisconnectReason() string { return d.disconnectReason }

// ShouldDisconnect reports whether a disconnect reason is set.
func (d *Data) ShouldDisconnect() bool { return d.disconnectReason != "" }

// SetDisconnectReason rejects the player with reason.
// An empty reason lets the player join again.
func (d *Data) SetDisconnectReason(reason string) { d.disconnectReason = reason }

// SetLinkedPlayer replaces the linked player, nil removes the link.
// It has no effect for non Floodgate players.
func (d *Data) SetLinkedPlayer(p *floodgate.LinkedPlayer) {
	if d.bedrock != nil {
		d.linkedPlayer = p
	}
}

// SetJavaUsername replaces the username of the unlinked player.
func (d *Data) SetJavaUsername(name string) {
	if d.bedrock != nil && name != "" {
		d.javaUsername = name
	}
}

// SetJavaUniqueID replaces the uuid of the unlinked player.
func (d *Data) SetJavaUniqueID(id uuid.UUID) {
	if d.bedrock != nil && id != uuid.Nil {
		d.javaUUID = id
	}
}

// SetHostname replaces the hostname the handshake continues with.
func (d *Data) SetHostname(hostname string) { d.hostname = hostname }

// SetIP replaces the client address.
func (d *Data) SetIP(ip string) {
	if d.bedrock != nil && ip != "" {
		d.ip = ip
	}
}
