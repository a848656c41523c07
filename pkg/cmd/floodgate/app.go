// Package floodgate is the floodgate command line application.
package floodgate

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.minekube.com/floodgate/pkg/floodgate/config"
	"go.minekube.com/floodgate/pkg/version"
)

// Execute runs App and exits on error.
func Execute() {
	if err := App().Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// App returns the floodgate cli application.
func App() *cli.App {
	app := cli.NewApp()
	app.Name = "floodgate"
	app.Usage = "Floodgate lets Bedrock players joining through Geyser log in to Java edition servers."
	app.Description = `Floodgate verifies the encrypted Bedrock player data Geyser puts into the
handshake of a Java edition connection and forwards the resolved players
to a backend server.

Run without a command to start the gateway.`
	app.Version = version.String()
	app.EnableBashCompletion = true

	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file path",
			Value:   "config.yml",
			EnvVars: []string{config.EnvPrefix + "_CONFIG"},
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "enable debug mode and highest log verbosity",
			EnvVars: []string{config.EnvPrefix + "_DEBUG"},
		},
		&cli.IntFlag{
			Name:    "verbosity",
			Aliases: []string{"v"},
			Usage:   "the higher the verbosity the more logs are shown",
			EnvVars: []string{config.EnvPrefix + "_VERBOSITY"},
		},
	}
	app.Action = serveAction
	app.Commands = []*cli.Command{
		serveCommand(),
		keygenCommand(),
		configCommand(),
		tokenCommand(),
		linkCommand(),
	}
	return app
}

// loadConfig reads and validates the config file given by the global flags.
func loadConfig(c *cli.Context, log logr.Logger) (*config.Config, error) {
	v := viper.New()
	v.SetConfigFile(c.String("config"))
	cfg, err := config.LoadConfig(v)
	if err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		if _, statErr := os.Stat(used); statErr == nil {
			log.Info("using config file", "config", used)
		}
	}
	warns, errs := cfg.Validate()
	for _, w := range warns {
		log.Info("config validation warning", "warn", w.Error())
	}
	if len(errs) != 0 {
		return nil, fmt.Errorf("config validation error: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// newLogger returns the logger configured by the global flags.
func newLogger(c *cli.Context) (logr.Logger, error) {
	debug := c.Bool("debug")
	verbosity := c.Int("verbosity")
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		verbosity = 10
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = !debug

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("error initializing logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// setup returns the logger and the loaded config.
func setup(c *cli.Context) (logr.Logger, *config.Config, error) {
	log, err := newLogger(c)
	if err != nil {
		return log, nil, cli.Exit(err, 1)
	}
	cfg, err := loadConfig(c, log)
	if err != nil {
		return log, nil, cli.Exit(err, 1)
	}
	return log, cfg, nil
}
