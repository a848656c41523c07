package floodgate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"github.com/urfave/cli/v2"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/floodgate/config"
	"go.minekube.com/floodgate/pkg/floodgate/crypto"
	"go.minekube.com/floodgate/pkg/floodgate/gateway"
	"go.minekube.com/floodgate/pkg/floodgate/handshake"
	"go.minekube.com/floodgate/pkg/floodgate/link"
	"go.minekube.com/floodgate/pkg/internal/addrquota"
	"go.minekube.com/floodgate/pkg/util/interrupt"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the gateway in front of the backend server (default command)",
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	log, cfg, err := setup(c)
	if err != nil {
		return err
	}
	ctx, stop := interrupt.TerminationContext(c.Context)
	defer stop()
	ctx = logr.NewContext(ctx, log)

	if err = Serve(ctx, cfg); err != nil {
		log.Error(err, "floodgate stopped with error")
		return cli.Exit("", 1)
	}
	log.Info("floodgate stopped")
	return nil
}

// Serve runs the gateway with cfg until ctx is canceled.
func Serve(ctx context.Context, cfg *config.Config) error {
	log := logr.FromContextOrDiscard(ctx)

	cipher, err := loadOrGenerateCipher(log, cfg.KeyFile)
	if err != nil {
		return err
	}

	store, err := link.New(ctx, cfg.PlayerLink)
	if err != nil {
		return fmt.Errorf("error opening player link store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Error(closeErr, "error closing player link store")
		}
	}()

	eventMgr := event.New()
	event.Subscribe(eventMgr, 0, func(e *handshake.HandshakeEvent) {
		if d := e.Data(); d.IsFloodgatePlayer() {
			log.V(2).Info("floodgate handshake", "player", d.CorrectUsername(),
				"linked", d.LinkedPlayer() != nil, "remoteAddr", d.Channel().RemoteAddr())
		}
	})

	handler, err := handshake.NewHandler(handshake.Options{
		Cipher: cipher,
		Store:  store,
		Formatter: floodgate.UsernameFormatter{
			Prefix:        cfg.UsernamePrefix,
			ReplaceSpaces: cfg.ReplaceSpaces,
		},
		RequireLink: cfg.PlayerLink.Enabled && cfg.PlayerLink.RequireLink,
		Disconnect:  cfg.Disconnect,
		Workers:     cfg.Handshake.Workers,
		Timeout:     cfg.Handshake.Timeout.D(),
		Event:       eventMgr,
		Logger:      log.WithName("handshake"),
	})
	if err != nil {
		return err
	}

	var quota *addrquota.Quota
	if q := cfg.Gateway.Quota; q.Enabled {
		quota = addrquota.NewQuota(q.OPS, q.Burst, q.MaxEntries)
	}
	gw, err := gateway.New(gateway.Options{
		Bind:                 cfg.Gateway.Bind,
		Backend:              cfg.Gateway.Backend,
		Handler:              handler,
		Cipher:               cipher,
		ProxyProtocol:        cfg.Gateway.ProxyProtocol,
		BackendProxyProtocol: cfg.Gateway.BackendProxyProtocol,
		OnlyFloodgate:        cfg.Gateway.OnlyFloodgate,
		ReadTimeout:          cfg.Gateway.ReadTimeout.D(),
		DialTimeout:          cfg.Gateway.DialTimeout.D(),
		Quota:                quota,
		Logger:               log,
	})
	if err != nil {
		return err
	}
	return gw.ListenAndServe(ctx)
}

// loadOrGenerateCipher loads the key file and generates it on first start.
func loadOrGenerateCipher(log logr.Logger, keyFile string) (*crypto.Cipher, error) {
	cipher, err := crypto.LoadCipher(keyFile)
	if err == nil {
		return cipher, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	key, err := crypto.GenerateKeyToFile(keyFile, false)
	if err != nil {
		return nil, err
	}
	log.Info("generated new key, copy it to the Geyser config folder", "keyFile", keyFile)
	return crypto.NewCipher(key)
}
