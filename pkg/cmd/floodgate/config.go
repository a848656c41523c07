package floodgate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"go.minekube.com/floodgate/pkg/floodgate/config"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Output default configuration file",
		Description: `Output the default configuration file to stdout or a file.
You can redirect to a file or use the --write flag:

	floodgate config > config.yml
	floodgate config --write              # Writes to the --config path

Available formats:
  - yaml (default)
  - json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Config format: yaml or json",
				Value:   "yaml",
			},
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Write config to the --config path instead of stdout",
			},
		},
		Action: func(c *cli.Context) error {
			configType := c.String("type")
			configBytes, err := marshalConfig(&config.DefaultConfig, configType)
			if err != nil {
				return cli.Exit(err, 1)
			}

			if c.Bool("write") {
				outputFile := c.String("config")
				if _, err = os.Stat(outputFile); err == nil {
					return cli.Exit(fmt.Sprintf("config file %q already exists", outputFile), 1)
				}
				if err = os.WriteFile(outputFile, configBytes, 0o644); err != nil {
					return cli.Exit(fmt.Errorf("error writing config to %q: %w", outputFile, err), 1)
				}
				_, _ = fmt.Fprintf(c.App.Writer, "Configuration written to %s\n", outputFile)
				return nil
			}

			if _, err = c.App.Writer.Write(configBytes); err != nil {
				return cli.Exit(fmt.Errorf("error writing config: %w", err), 1)
			}
			return nil
		},
	}
}

func marshalConfig(cfg *config.Config, configType string) ([]byte, error) {
	switch configType {
	case "yaml", "yml":
		return yaml.Marshal(cfg)
	case "json":
		b, err := json.MarshalIndent(cfg, "", "  ")
		return append(b, '\n'), err
	default:
		return nil, fmt.Errorf("unknown config type: %s (valid types: yaml, json)", configType)
	}
}
