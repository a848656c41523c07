// Package command implements the account linking commands independent
// of how players send commands.
package command

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/floodgate/connection"
	"go.minekube.com/floodgate/pkg/floodgate/link"
	"go.minekube.com/floodgate/pkg/internal/randstr"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

// Sender is a player running a command.
type Sender interface {
	Name() string
	UUID() uuid.UUID
	// Bedrock returns the Floodgate connection of a Bedrock
	// player or nil if the sender is a Java player.
	Bedrock() *connection.Connection
}

// Options configure a Linker.
type Options struct {
	// CodeLength is the length of generated link codes. Defaults to 6.
	CodeLength int
	// Timeout is how long a link request can be verified. Defaults to 5 minutes.
	Timeout time.Duration
	// AllowLinking enables linking through commands.
	AllowLinking bool
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Linker runs the link and unlink commands of players.
// It is safe for concurrent use.
type Linker struct {
	store link.Store
	opts  Options
}

// NewLinker returns a new Linker using store.
func NewLinker(store link.Store, opts Options) *Linker {
	if opts.CodeLength <= 0 {
		opts.CodeLength = 6
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Linker{store: store, opts: opts}
}

// LinkAccount runs /linkaccount.
//
// A Java player passes the gamertag of the Bedrock account to create
// a link request. The Bedrock player then passes the Java username
// and the code of the request to complete the link.
func (l *Linker) LinkAccount(ctx context.Context, sender Sender, args []string) Reply {
	if !l.opts.AllowLinking || !l.store.Enabled() {
		return reply(LinkRequestDisabled)
	}
	if conn := sender.Bedrock(); conn != nil {
		if len(args) != 2 {
			return reply(BedrockUsage)
		}
		if conn.IsLinked() {
			return reply(AlreadyLinked)
		}
		return l.verify(ctx, conn, args[0], args[1])
	}
	if len(args) != 1 {
		return reply(JavaUsage)
	}
	return l.request(ctx, sender, args[0])
}

// request creates a link request of a Java player for the gamertag.
func (l *Linker) request(ctx context.Context, sender Sender, gamertag string) Reply {
	log := logr.FromContextOrDiscard(ctx).WithValues("player", sender.Name())
	linked, err := l.store.IsLinked(ctx, sender.UUID())
	if err != nil {
		log.Error(err, "error checking whether player is linked")
		return reply(IsLinkedError)
	}
	if linked {
		return reply(AlreadyLinked)
	}

	code := randstr.String(l.opts.CodeLength)
	_, err = l.store.CreateLinkRequest(ctx, sender.UUID(), sender.Name(), gamertag, code)
	if err != nil {
		if errors.Is(err, link.ErrLocalDisabled) {
			return reply(GlobalLinkingNotice, LinkInfoURL)
		}
		log.Error(err, "error creating link request")
		return reply(LinkRequestError)
	}
	log.V(1).Info("created link request", "gamertag", gamertag)
	return reply(LinkRequestCreated, gamertag, sender.Name(), code)
}

// verify completes the link request of javaUsername for a Bedrock player.
// The request is consumed before it is checked so that every request
// can only be used once.
func (l *Linker) verify(ctx context.Context, conn *connection.Connection, javaUsername, code string) Reply {
	log := logr.FromContextOrDiscard(ctx).WithValues("player", conn.BedrockUsername(), "javaUsername", javaUsername)
	req, err := l.store.LinkRequest(ctx, javaUsername)
	if err != nil {
		if errors.Is(err, link.ErrLocalDisabled) {
			return reply(GlobalLinkingNotice, LinkInfoURL)
		}
		log.Error(err, "error getting link request")
		return reply(LinkRequestError)
	}
	// a request for another gamertag looks like no request at all
	if req == nil || !req.IsRequestedPlayer(conn.BedrockUsername(), conn.JavaUsername()) {
		return reply(NoLinkRequested)
	}

	if err = l.store.InvalidateLinkRequest(ctx, req); err != nil {
		if errors.Is(err, link.ErrLinkRequestNotFound) {
			return reply(NoLinkRequested)
		}
		log.Error(err, "error invalidating link request")
		return reply(LinkRequestError)
	}
	if req.IsExpired(l.opts.Now(), l.opts.Timeout) {
		return reply(LinkRequestExpired)
	}
	if req.LinkCode != code {
		return reply(InvalidCode)
	}

	p, err := l.store.AddLink(ctx, req.JavaUniqueID, req.JavaUsername, conn.BedrockUUID())
	if err != nil {
		if errors.Is(err, link.ErrDuplicateLink) {
			return reply(AlreadyLinked)
		}
		log.Error(err, "error adding link")
		return reply(LinkRequestError)
	}
	log.Info("linked accounts", "link", p)
	return Reply{Key: LinkRequestCompleted, Args: []any{req.JavaUsername}, Kick: true}
}

// UnlinkAccount runs /unlinkaccount for a Java or Bedrock player.
func (l *Linker) UnlinkAccount(ctx context.Context, sender Sender) Reply {
	if !l.store.Enabled() {
		return reply(LinkingNotEnabled)
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("player", sender.Name())
	id := sender.UUID()
	if conn := sender.Bedrock(); conn != nil {
		id = conn.BedrockUUID()
	}

	linked, err := l.store.IsLinked(ctx, id)
	if err != nil {
		log.Error(err, "error checking whether player is linked")
		return reply(IsLinkedError)
	}
	if !linked {
		return reply(NotLinked)
	}
	if err = l.store.Unlink(ctx, id); err != nil {
		if errors.Is(err, link.ErrLocalDisabled) {
			return reply(GlobalLinkingNotice, LinkInfoURL)
		}
		log.Error(err, "error unlinking player")
		return reply(UnlinkError)
	}
	log.Info("unlinked account", "id", id)
	return Reply{Key: UnlinkSuccess, Kick: true}
}

// Admin manages links on behalf of an operator.
type Admin struct {
	store link.Store
}

// NewAdmin returns a new Admin using store.
func NewAdmin(store link.Store) *Admin { return &Admin{store: store} }

// Info returns the link of the Bedrock or Java uuid, nil if not linked.
func (a *Admin) Info(ctx context.Context, id uuid.UUID) (*floodgate.LinkedPlayer, error) {
	return a.store.FetchLink(ctx, id)
}

// Link links the accounts without a link request.
func (a *Admin) Link(ctx context.Context, javaID uuid.UUID, javaUsername string, bedrockID uuid.UUID) (*floodgate.LinkedPlayer, error) {
	if !floodgate.IsBedrockUUID(bedrockID) {
		return nil, errors.New("bedrock uuid must be derived from a xuid")
	}
	if javaUsername == "" {
		return nil, errors.New("java username must not be empty")
	}
	return a.store.AddLink(ctx, javaID, javaUsername, bedrockID)
}

// Unlink removes the link of the Bedrock or Java uuid and reports whether there was one.
func (a *Admin) Unlink(ctx context.Context, id uuid.UUID) (bool, error) {
	linked, err := a.store.IsLinked(ctx, id)
	if err != nil || !linked {
		return false, err
	}
	return true, a.store.Unlink(ctx, id)
}
