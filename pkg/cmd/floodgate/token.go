package floodgate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/floodgate/bedrock"
	"go.minekube.com/floodgate/pkg/floodgate/crypto"
	"go.minekube.com/floodgate/pkg/floodgate/handshake"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

var keyFlag = &cli.StringFlag{
	Name:    "key",
	Aliases: []string{"k"},
	Usage:   "key file path, defaults to keyFile of the config",
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Encode and decode Floodgate tokens for testing a setup",
		Subcommands: []*cli.Command{
			{
				Name:  "encode",
				Usage: "Encrypt Bedrock player data into a token",
				Flags: []cli.Flag{
					keyFlag,
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Value: "Steve", Usage: "Bedrock gamertag"},
					&cli.StringFlag{Name: "xuid", Aliases: []string{"x"}, Required: true, Usage: "Xbox user id"},
					&cli.StringFlag{Name: "ip", Value: "127.0.0.1", Usage: "client ip address"},
					&cli.StringFlag{Name: "client-version", Value: "1.21.0", Usage: "Bedrock client version"},
					&cli.StringFlag{Name: "language", Value: "en_US", Usage: "client language code"},
					&cli.IntFlag{Name: "device", Usage: "device os id"},
					&cli.StringFlag{Name: "identity", Usage: "Bedrock identity uuid of data version 2, random if empty"},
					&cli.IntFlag{Name: "data-version", Value: crypto.LatestVersion, Usage: "token data version"},
				},
				Action: func(c *cli.Context) error {
					cipher, err := cipherFromFlags(c)
					if err != nil {
						return err
					}
					d := &bedrock.Data{
						Version:      c.String("client-version"),
						Username:     c.String("username"),
						Xuid:         c.String("xuid"),
						DeviceOS:     bedrock.DeviceOSFromID(c.Int("device")),
						LanguageCode: c.String("language"),
						IP:           c.String("ip"),
					}
					if _, err = d.JavaUUID(); err != nil {
						return cli.Exit(err, 1)
					}
					version := c.Int("data-version")
					if version == crypto.Version2 {
						d.Identity = uuid.New()
						if s := c.String("identity"); s != "" {
							if d.Identity, err = uuid.Parse(s); err != nil {
								return cli.Exit(fmt.Errorf("invalid identity: %w", err), 1)
							}
						}
					}
					plaintext, err := bedrock.Encode(version, d)
					if err != nil {
						return cli.Exit(err, 1)
					}
					token, err := cipher.Encrypt(version, plaintext)
					if err != nil {
						return cli.Exit(err, 1)
					}
					_, _ = fmt.Fprintln(c.App.Writer, string(token))
					return nil
				},
			},
			{
				Name:      "decode",
				Usage:     "Decrypt a token or a handshake hostname carrying one",
				ArgsUsage: "<token>",
				Flags:     []cli.Flag{keyFlag},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("expected exactly one token argument", 1)
					}
					cipher, err := cipherFromFlags(c)
					if err != nil {
						return err
					}
					token := c.Args().First()
					if strings.Contains(token, handshake.HostnameSeparator) {
						token = handshake.Separate(token).Token
					}
					plaintext, version, err := cipher.Decrypt([]byte(token))
					if err != nil {
						return cli.Exit(err, 1)
					}
					d, err := bedrock.Decode(version, plaintext)
					if err != nil {
						return cli.Exit(err, 1)
					}
					b, err := json.MarshalIndent(newTokenView(d), "", "  ")
					if err != nil {
						return cli.Exit(err, 1)
					}
					_, _ = fmt.Fprintln(c.App.Writer, string(b))
					return nil
				},
			},
		},
	}
}

type tokenView struct {
	DataVersion   int                     `json:"dataVersion"`
	ClientVersion string                  `json:"clientVersion"`
	Username      string                  `json:"username"`
	Xuid          string                  `json:"xuid"`
	JavaUniqueID  string                  `json:"javaUniqueId"`
	DeviceOS      string                  `json:"deviceOs"`
	LanguageCode  string                  `json:"languageCode"`
	UIProfile     string                  `json:"uiProfile"`
	InputMode     string                  `json:"inputMode"`
	IP            string                  `json:"ip"`
	Identity      string                  `json:"identity,omitempty"`
	FromProxy     bool                    `json:"fromProxy"`
	LinkedPlayer  *floodgate.LinkedPlayer `json:"linkedPlayer,omitempty"`
}

func newTokenView(d *bedrock.Data) *tokenView {
	v := &tokenView{
		DataVersion:   d.DataVersion,
		ClientVersion: d.Version,
		Username:      d.Username,
		Xuid:          d.Xuid,
		DeviceOS:      d.DeviceOS.String(),
		LanguageCode:  d.LanguageCode,
		UIProfile:     d.UIProfile.String(),
		InputMode:     d.InputMode.String(),
		IP:            d.IP,
		FromProxy:     d.FromProxy,
		LinkedPlayer:  d.LinkedPlayer,
	}
	if d.DataVersion == crypto.Version2 {
		v.Identity = d.Identity.String()
	}
	if id, err := d.JavaUUID(); err == nil {
		v.JavaUniqueID = id.String()
	}
	return v
}

func cipherFromFlags(c *cli.Context) (*crypto.Cipher, error) {
	path, err := keyPath(c)
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.LoadCipher(path)
	if err != nil {
		return nil, cli.Exit(err, 1)
	}
	return cipher, nil
}
