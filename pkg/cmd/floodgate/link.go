package floodgate

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/urfave/cli/v2"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/floodgate/bedrock"
	"go.minekube.com/floodgate/pkg/floodgate/command"
	"go.minekube.com/floodgate/pkg/floodgate/config"
	"go.minekube.com/floodgate/pkg/floodgate/connection"
	"go.minekube.com/floodgate/pkg/floodgate/link"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

func linkCommand() *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "Manage linked accounts in the configured player link store",
		Description: `Ids are Java uuids, Bedrock uuids or numeric xuids.

The request and verify commands run the same flow as the in-game
/linkaccount command for a Java and a Bedrock player.`,
		Subcommands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Show the link of a player",
				ArgsUsage: "<id>",
				Action: withStore(1, func(c *cli.Context, s *storeCtx) error {
					id, err := parseID(c.Args().Get(0))
					if err != nil {
						return cli.Exit(err, 1)
					}
					p, err := command.NewAdmin(s.store).Info(c.Context, id)
					if err != nil {
						return cli.Exit(err, 1)
					}
					if p == nil {
						_, _ = fmt.Fprintf(c.App.Writer, "%s is not linked\n", id)
						return nil
					}
					_, _ = fmt.Fprintln(c.App.Writer, p)
					return nil
				}),
			},
			{
				Name:      "add",
				Usage:     "Link a Java account to a Bedrock account",
				ArgsUsage: "<java uuid> <java username> <bedrock id>",
				Action: withStore(3, func(c *cli.Context, s *storeCtx) error {
					javaID, err := uuid.Parse(c.Args().Get(0))
					if err != nil {
						return cli.Exit(fmt.Errorf("invalid java uuid: %w", err), 1)
					}
					bedrockID, err := parseID(c.Args().Get(2))
					if err != nil {
						return cli.Exit(err, 1)
					}
					p, err := command.NewAdmin(s.store).Link(c.Context, javaID, c.Args().Get(1), bedrockID)
					if err != nil {
						return cli.Exit(err, 1)
					}
					_, _ = fmt.Fprintf(c.App.Writer, "Linked %s\n", p)
					return nil
				}),
			},
			{
				Name:      "remove",
				Usage:     "Remove the link of a player",
				ArgsUsage: "<id>",
				Action: withStore(1, func(c *cli.Context, s *storeCtx) error {
					id, err := parseID(c.Args().Get(0))
					if err != nil {
						return cli.Exit(err, 1)
					}
					removed, err := command.NewAdmin(s.store).Unlink(c.Context, id)
					if err != nil {
						return cli.Exit(err, 1)
					}
					if !removed {
						_, _ = fmt.Fprintf(c.App.Writer, "%s is not linked\n", id)
						return nil
					}
					_, _ = fmt.Fprintf(c.App.Writer, "Unlinked %s\n", id)
					return nil
				}),
			},
			{
				Name:      "request",
				Usage:     "Create a link request as a Java player",
				ArgsUsage: "<java username> <java uuid> <gamertag>",
				Action: withStore(3, func(c *cli.Context, s *storeCtx) error {
					javaID, err := uuid.Parse(c.Args().Get(1))
					if err != nil {
						return cli.Exit(fmt.Errorf("invalid java uuid: %w", err), 1)
					}
					sender := &cliSender{name: c.Args().Get(0), id: javaID}
					return printReply(c, s.linker().LinkAccount(c.Context, sender, []string{c.Args().Get(2)}))
				}),
			},
			{
				Name:      "verify",
				Usage:     "Verify a link request as a Bedrock player",
				ArgsUsage: "<gamertag> <xuid> <java username> <code>",
				Action: withStore(4, func(c *cli.Context, s *storeCtx) error {
					sender, err := s.bedrockSender(c.Context, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return cli.Exit(err, 1)
					}
					return printReply(c, s.linker().LinkAccount(c.Context, sender,
						[]string{c.Args().Get(2), c.Args().Get(3)}))
				}),
			},
		},
	}
}

type storeCtx struct {
	cfg   *config.Config
	store link.Store
}

// withStore opens the configured store for the duration of action.
func withStore(nargs int, action func(*cli.Context, *storeCtx) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() != nargs {
			return cli.Exit(fmt.Sprintf("expected %d arguments: %s", nargs, c.Command.ArgsUsage), 1)
		}
		log, cfg, err := setup(c)
		if err != nil {
			return err
		}
		c.Context = logr.NewContext(c.Context, log)
		store, err := link.New(c.Context, cfg.PlayerLink)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer store.Close()
		if !store.Enabled() {
			return cli.Exit(link.ErrDisabled, 1)
		}
		return action(c, &storeCtx{cfg: cfg, store: store})
	}
}

func (s *storeCtx) linker() *command.Linker {
	return command.NewLinker(s.store, command.Options{
		Timeout:      s.cfg.PlayerLink.LinkCodeTimeout.D(),
		AllowLinking: s.cfg.PlayerLink.Allowed,
	})
}

// bedrockSender returns a sender for the Bedrock player as if they joined.
func (s *storeCtx) bedrockSender(ctx context.Context, gamertag, xuid string) (*cliSender, error) {
	b, err := connection.NewBuilder(&bedrock.Data{Username: gamertag, Xuid: xuid}, floodgate.UsernameFormatter{
		Prefix:        s.cfg.UsernamePrefix,
		ReplaceSpaces: s.cfg.ReplaceSpaces,
	})
	if err != nil {
		return nil, err
	}
	conn := b.Build()
	p, err := s.store.FetchLink(ctx, conn.BedrockUUID())
	if err != nil {
		return nil, err
	}
	if p != nil {
		conn = conn.WithLinkedPlayer(p)
	}
	return &cliSender{name: conn.JavaUsername(), id: conn.JavaUUID(), conn: conn}, nil
}

type cliSender struct {
	name string
	id   uuid.UUID
	conn *connection.Connection
}

func (s *cliSender) Name() string                    { return s.name }
func (s *cliSender) UUID() uuid.UUID                 { return s.id }
func (s *cliSender) Bedrock() *connection.Connection { return s.conn }

func printReply(c *cli.Context, r command.Reply) error {
	_, _ = fmt.Fprintln(c.App.Writer, r.String())
	return nil
}

// parseID parses a uuid or a numeric xuid.
func parseID(s string) (uuid.UUID, error) {
	if s != "" && strings.Trim(s, "0123456789") == "" {
		return floodgate.JavaUUID(s)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: expected a uuid or xuid", s)
	}
	return id, nil
}
