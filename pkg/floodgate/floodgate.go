// Package floodgate holds the identity types shared by the Floodgate
// handshake pipeline and the account linking subsystem.
//
// Bedrock players reach a Java edition server through a protocol translator
// (Geyser) that embeds an encrypted token with the player's Bedrock identity
// in the handshake hostname. The sub packages decode that token (crypto,
// bedrock), resolve it into a connection (handshake, connection) and manage
// links between Bedrock and Java accounts (link, command).
package floodgate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.minekube.com/floodgate/pkg/util/uuid"
)

// MaxUsernameLength is the maximum length of a Java edition username.
const MaxUsernameLength = 16

// LinkedPlayer is a durable association between a Bedrock
// identity and a Java account. It is immutable.
type LinkedPlayer struct {
	JavaUsername string    `json:"javaUsername"`
	JavaUniqueID uuid.UUID `json:"javaUniqueId"`
	BedrockID    uuid.UUID `json:"bedrockId"`
}

// NewLinkedPlayer returns a new LinkedPlayer.
func NewLinkedPlayer(javaUsername string, javaUniqueID, bedrockID uuid.UUID) *LinkedPlayer {
	return &LinkedPlayer{
		JavaUsername: javaUsername,
		JavaUniqueID: javaUniqueID,
		BedrockID:    bedrockID,
	}
}

func (p *LinkedPlayer) String() string {
	if p == nil {
		return "<not linked>"
	}
	return fmt.Sprintf("%s (%s) <-> %s", p.JavaUsername, p.JavaUniqueID, p.BedrockID)
}

// LinkRequest is a pending, code protected offer of a Java
// player to link their account with a Bedrock player.
type LinkRequest struct {
	JavaUniqueID    uuid.UUID
	JavaUsername    string
	BedrockUsername string // the gamertag expected to verify the request
	LinkCode        string
	CreatedAt       time.Time
}

// IsExpired reports whether more than timeout passed since the request was created.
// The comparison is done on whole seconds.
func (r *LinkRequest) IsExpired(now time.Time, timeout time.Duration) bool {
	return now.Unix()-r.CreatedAt.Unix() > int64(timeout/time.Second)
}

// IsRequestedPlayer reports whether the given player may verify the request.
// The request matches the bedrock gamertag as well as the prefixed java name.
func (r *LinkRequest) IsRequestedPlayer(bedrockUsername, javaUsername string) bool {
	return r.BedrockUsername == bedrockUsername || r.BedrockUsername == javaUsername
}

// JavaUUID derives the deterministic Java uuid of an unlinked Bedrock player.
// The xuid becomes the least significant bits of an otherwise zero uuid.
func JavaUUID(xuid string) (uuid.UUID, error) {
	v, err := strconv.ParseInt(xuid, 10, 64)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid xuid %q: %w", xuid, err)
	}
	return uuid.FromBits(0, v), nil
}

// XUID returns the xuid encoded in a uuid created by JavaUUID.
func XUID(id uuid.UUID) string {
	return strconv.FormatInt(id.LeastSignificantBits(), 10)
}

// IsBedrockUUID reports whether id was derived from a xuid with JavaUUID.
func IsBedrockUUID(id uuid.UUID) bool {
	return id.MostSignificantBits() == 0
}

// UsernameFormatter builds the Java username of an unlinked Bedrock player.
type UsernameFormatter struct {
	Prefix        string
	ReplaceSpaces bool
}

// Format prefixes the Bedrock username and shortens it to fit into
// the Java edition limit of 16 characters. Spaces are replaced with underscores if enabled.
// A prefix that leaves no room for the username is replaced with ".".
func (f UsernameFormatter) Format(username string) string {
	prefix := f.Prefix
	if utf8.RuneCountInString(prefix) >= MaxUsernameLength {
		prefix = "."
	}
	if r, max := []rune(username), MaxUsernameLength-utf8.RuneCountInString(prefix); len(r) > max {
		username = string(r[:max])
	}
	name := prefix + username
	if f.ReplaceSpaces {
		name = strings.ReplaceAll(name, " ", "_")
	}
	return name
}
