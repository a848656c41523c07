package link

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"go.minekube.com/floodgate/pkg/floodgate/config"
)

// New returns the Store selected by the player link config:
//
//   - Disabled if linking is disabled or neither own nor global linking is enabled
//   - Local if own linking is enabled
//   - Global if global linking is enabled, with Local for writes if own linking is enabled too
func New(ctx context.Context, cfg config.PlayerLink) (Store, error) {
	log := logr.FromContextOrDiscard(ctx)
	if !cfg.Enabled || (!cfg.EnableOwnLinking && !cfg.EnableGlobalLinking) {
		log.Info("player linking is disabled")
		return Disabled{}, nil
	}

	var local Store
	if cfg.EnableOwnLinking {
		l, err := openLocal(ctx, cfg)
		if err != nil {
			return nil, err
		}
		local = l
	}
	if !cfg.EnableGlobalLinking {
		log.Info("using local player linking", "type", local.Name())
		return local, nil
	}

	g := NewGlobal(GlobalOptions{
		APIURL:    cfg.GlobalAPIURL,
		Local:     local,
		CacheTTL:  cfg.GlobalCacheTTL.D(),
		RateLimit: cfg.GlobalRateLimit,
	})
	log.Info("using global player linking", "store", g.Name(), "api", cfg.GlobalAPIURL)
	return g, nil
}

func openLocal(ctx context.Context, cfg config.PlayerLink) (l *Local, err error) {
	var opts []LocalOption
	if cfg.Redis.Enabled {
		// keep expired requests around so they can be reported as expired
		rs, rerr := NewRedisRequests(cfg.Redis.URL, 2*cfg.LinkCodeTimeout.D())
		if rerr != nil {
			return nil, fmt.Errorf("error connecting to redis: %w", rerr)
		}
		opts = append(opts, WithRequestStore(rs))
		defer func() {
			if err != nil {
				_ = rs.Close()
			}
		}()
	}
	switch cfg.Type {
	case config.TypeSqlite:
		return OpenSqlite(ctx, cfg.Database.Sqlite, opts...)
	case config.TypePostgres:
		return OpenPostgres(ctx, cfg.Database.Postgres, opts...)
	default:
		return nil, fmt.Errorf("unknown player link type %q", cfg.Type)
	}
}
