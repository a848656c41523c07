package config

import (
	"fmt"
	"os"
	"strings"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/util/validation"
)

// Validate validates the configuration.
func (c *Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...any) { warns = append(warns, fmt.Errorf(m, args...)) }
	if c == nil {
		e("config must not be nil")
		return
	}

	if c.KeyFile == "" {
		e("No key file specified")
	} else if _, err := os.Stat(c.KeyFile); os.IsNotExist(err) {
		w("Key file not found at %q, generate one with the keygen command", c.KeyFile)
	}

	if len([]rune(c.UsernamePrefix)) >= floodgate.MaxUsernameLength {
		w("Username prefix %q leaves no room for the username, \".\" is used instead", c.UsernamePrefix)
	}
	if c.UsernamePrefix == "" {
		w("Empty username prefix, Bedrock players may collide with Java players of the same name")
	}

	if n := strings.Count(c.Disconnect.InvalidArgumentsLength, "%d"); n != 2 {
		w("Disconnect message invalidArgumentsLength should contain 2 %%d placeholders, found %d", n)
	}

	warns2, errs2 := c.PlayerLink.Validate()
	warns = append(warns, warns2...)
	errs = append(errs, errs2...)

	if c.Handshake.Workers <= 0 {
		e("Handshake workers must be greater than 0, got %d", c.Handshake.Workers)
	}
	if c.Handshake.Timeout.D() <= 0 {
		e("Handshake timeout must be greater than 0")
	}

	if err := validation.ValidHostPort(c.Gateway.Bind); err != nil {
		e("Invalid gateway bind address %q: %v", c.Gateway.Bind, err)
	}
	if err := validation.ValidHostPort(c.Gateway.Backend); err != nil {
		e("Invalid gateway backend address %q: %v", c.Gateway.Backend, err)
	}
	if q := c.Gateway.Quota; q.Enabled && (q.OPS <= 0 || q.Burst <= 0) {
		w("Gateway quota is enabled but ops (%v) or burst (%d) is not positive, quota is ineffective", q.OPS, q.Burst)
	}
	return
}

// Validate validates the player link configuration.
func (p *PlayerLink) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...any) { warns = append(warns, fmt.Errorf(m, args...)) }
	if !p.Enabled {
		if p.RequireLink {
			w("playerLink.requireLink has no effect while player linking is disabled")
		}
		return
	}
	if !p.EnableOwnLinking && !p.EnableGlobalLinking {
		w("Player linking is enabled but neither own nor global linking is, linking is disabled")
	}
	if p.LinkCodeTimeout.D() <= 0 {
		e("playerLink.linkCodeTimeout must be greater than 0")
	}
	if p.EnableOwnLinking {
		switch p.Type {
		case TypeSqlite:
			if p.Database.Sqlite == "" {
				e("playerLink.database.sqlite must be set for the sqlite type")
			}
		case TypePostgres:
			if p.Database.Postgres == "" {
				e("playerLink.database.postgres must be set for the postgres type")
			}
		default:
			e("Unknown playerLink.type %q, must be %q or %q", p.Type, TypeSqlite, TypePostgres)
		}
		if p.Redis.Enabled && p.Redis.URL == "" {
			e("playerLink.redis.url must be set when redis is enabled")
		}
	}
	if p.EnableGlobalLinking {
		if err := validation.ValidHTTPURL(p.GlobalAPIURL); err != nil {
			e("Invalid playerLink.globalApiUrl %q: %v", p.GlobalAPIURL, err)
		}
		if ttl := p.GlobalCacheTTL.D(); ttl < 0 {
			e("playerLink.globalCacheTtl must not be negative, got %s", ttl)
		} else if ttl == 0 {
			w("playerLink.globalCacheTtl is zero, global api results are not cached")
		}
		if p.GlobalRateLimit <= 0 {
			w("playerLink.globalRateLimit is not positive, global api requests are not rate limited")
		}
	}
	return
}
