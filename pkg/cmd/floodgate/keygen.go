package floodgate

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"go.minekube.com/floodgate/pkg/floodgate/crypto"
)

func keygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate the key shared with Geyser",
		Description: `Generate a new random key and write it to the key file of the config.
Copy the key file to the Geyser config folder afterwards.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "key",
				Aliases: []string{"k"},
				Usage:   "key file path, defaults to keyFile of the config",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "replace an existing key file",
			},
		},
		Action: func(c *cli.Context) error {
			path, err := keyPath(c)
			if err != nil {
				return err
			}
			if _, err = crypto.GenerateKeyToFile(path, c.Bool("force")); err != nil {
				return cli.Exit(err, 1)
			}
			_, _ = fmt.Fprintf(c.App.Writer, "Key written to %s\n", path)
			return nil
		},
	}
}

// keyPath returns the --key flag or the key file of the config.
func keyPath(c *cli.Context) (string, error) {
	if p := c.String("key"); p != "" {
		return p, nil
	}
	_, cfg, err := setup(c)
	if err != nil {
		return "", err
	}
	return cfg.KeyFile, nil
}
