// Package config is the Floodgate configuration read in with Viper.
package config

import (
	"time"

	"go.minekube.com/floodgate/pkg/util/configutil"
)

// Link store types.
const (
	TypeSqlite   = "sqlite"
	TypePostgres = "postgres"
)

// DefaultGlobalAPIURL is the GeyserMC global linking api.
const DefaultGlobalAPIURL = "https://api.geysermc.org"

// DefaultConfig is a default Config.
var DefaultConfig = Config{
	KeyFile:        "key.pem",
	UsernamePrefix: ".",
	ReplaceSpaces:  true,
	Disconnect: Disconnect{
		InvalidKey:             "Please connect through the official Geyser",
		InvalidArgumentsLength: "Expected %d arguments, got %d. Is Geyser up-to-date?",
		NotLinked:              "You need to link your Bedrock account to a Java account to join this server. Visit https://link.geysermc.org/ to link.",
	},
	PlayerLink: PlayerLink{
		Enabled:             true,
		RequireLink:         false,
		EnableOwnLinking:    false,
		Allowed:             true,
		LinkCodeTimeout:     configutil.Duration(300 * time.Second),
		Type:                TypeSqlite,
		Database:            Database{Sqlite: "linked-players.db"},
		EnableGlobalLinking: true,
		GlobalAPIURL:        DefaultGlobalAPIURL,
		GlobalCacheTTL:      configutil.Duration(time.Minute),
		GlobalRateLimit:     10,
	},
	Handshake: Handshake{
		Workers: 32,
		Timeout: configutil.Duration(10 * time.Second),
	},
	Gateway: Gateway{
		Bind:          "0.0.0.0:25565",
		Backend:       "localhost:25566",
		ReadTimeout:   configutil.Duration(30 * time.Second),
		DialTimeout:   configutil.Duration(5 * time.Second),
		ProxyProtocol: false,
		Quota: Quota{
			Enabled:    true,
			OPS:        5,
			Burst:      10,
			MaxEntries: 1000,
		},
	},
}

// Config is the root configuration of Floodgate.
type Config struct {
	// KeyFile is the path of the key shared with Geyser.
	KeyFile string `yaml:"keyFile" json:"keyFile"`
	// UsernamePrefix is prepended to the Java name of unlinked Bedrock players.
	UsernamePrefix string `yaml:"usernamePrefix" json:"usernamePrefix"`
	ReplaceSpaces  bool   `yaml:"replaceSpaces" json:"replaceSpaces"`

	Disconnect Disconnect `yaml:"disconnect" json:"disconnect"`
	PlayerLink PlayerLink `yaml:"playerLink" json:"playerLink"`
	Handshake  Handshake  `yaml:"handshake" json:"handshake"`
	Gateway    Gateway    `yaml:"gateway" json:"gateway"`
}

// Disconnect messages sent to rejected players.
type Disconnect struct {
	InvalidKey string `yaml:"invalidKey" json:"invalidKey"`
	// InvalidArgumentsLength is formatted with the expected and the actual field count.
	InvalidArgumentsLength string `yaml:"invalidArgumentsLength" json:"invalidArgumentsLength"`
	NotLinked              string `yaml:"notLinked" json:"notLinked"`
}

// PlayerLink configures account linking.
type PlayerLink struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// RequireLink rejects Bedrock players without a linked Java account.
	RequireLink bool `yaml:"requireLink" json:"requireLink"`
	// EnableOwnLinking uses the local database for links.
	EnableOwnLinking bool `yaml:"enableOwnLinking" json:"enableOwnLinking"`
	// Allowed lets players link through the link commands.
	Allowed         bool                `yaml:"allowed" json:"allowed"`
	LinkCodeTimeout configutil.Duration `yaml:"linkCodeTimeout" json:"linkCodeTimeout"`
	Type            string              `yaml:"type" json:"type"`
	Database        Database            `yaml:"database" json:"database"`
	Redis           Redis               `yaml:"redis" json:"redis"`

	EnableGlobalLinking bool                `yaml:"enableGlobalLinking" json:"enableGlobalLinking"`
	GlobalAPIURL        string              `yaml:"globalApiUrl" json:"globalApiUrl"`
	GlobalCacheTTL      configutil.Duration `yaml:"globalCacheTtl" json:"globalCacheTtl"`
	// GlobalRateLimit is the max requests per second to the global api.
	GlobalRateLimit float64 `yaml:"globalRateLimit" json:"globalRateLimit"`
}

// Database of the local link store.
type Database struct {
	// Sqlite is the database file used with the sqlite type.
	Sqlite string `yaml:"sqlite" json:"sqlite"`
	// Postgres is the connection url used with the postgres type.
	Postgres string `yaml:"postgres" json:"postgres"`
}

// Redis keeps pending link requests in Redis instead of the database
// so that multiple instances share them.
type Redis struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url" json:"url"`
}

// Handshake configures the handshake pipeline.
type Handshake struct {
	// Workers bounds the number of concurrently processed handshakes.
	Workers int                 `yaml:"workers" json:"workers"`
	Timeout configutil.Duration `yaml:"timeout" json:"timeout"`
}

// Gateway is the Java edition listener that resolves Floodgate
// players in front of a backend server.
type Gateway struct {
	Bind    string `yaml:"bind" json:"bind"`
	Backend string `yaml:"backend" json:"backend"`
	// ProxyProtocol reads a PROXY protocol header from every client.
	ProxyProtocol bool `yaml:"proxyProtocol" json:"proxyProtocol"`
	// BackendProxyProtocol sends a PROXY protocol header with the
	// real client address to the backend.
	BackendProxyProtocol bool `yaml:"backendProxyProtocol" json:"backendProxyProtocol"`
	// OnlyFloodgate rejects connections without Floodgate data.
	OnlyFloodgate bool                `yaml:"onlyFloodgate" json:"onlyFloodgate"`
	ReadTimeout   configutil.Duration `yaml:"readTimeout" json:"readTimeout"`
	DialTimeout   configutil.Duration `yaml:"dialTimeout" json:"dialTimeout"`
	Quota         Quota               `yaml:"quota" json:"quota"`
}

// Quota limits new connections per client ip block.
type Quota struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	OPS        float32 `yaml:"ops" json:"ops"` // allowed operations/events per second, per IP block
	Burst      int     `yaml:"burst" json:"burst"`
	MaxEntries int     `yaml:"maxEntries" json:"maxEntries"` // maximum number of IP blocks to keep track of in cache
}

// SetDefaults sets Config defaults to use with Viper.
// Every key is registered so environment variables can override it.
func SetDefaults(i configutil.SetDefault) {
	d := DefaultConfig
	i.SetDefault("keyFile", d.KeyFile)
	i.SetDefault("usernamePrefix", d.UsernamePrefix)
	i.SetDefault("replaceSpaces", d.ReplaceSpaces)

	i.SetDefault("disconnect.invalidKey", d.Disconnect.InvalidKey)
	i.SetDefault("disconnect.invalidArgumentsLength", d.Disconnect.InvalidArgumentsLength)
	i.SetDefault("disconnect.notLinked", d.Disconnect.NotLinked)

	p := d.PlayerLink
	i.SetDefault("playerLink.enabled", p.Enabled)
	i.SetDefault("playerLink.requireLink", p.RequireLink)
	i.SetDefault("playerLink.enableOwnLinking", p.EnableOwnLinking)
	i.SetDefault("playerLink.allowed", p.Allowed)
	i.SetDefault("playerLink.linkCodeTimeout", p.LinkCodeTimeout.String())
	i.SetDefault("playerLink.type", p.Type)
	i.SetDefault("playerLink.database.sqlite", p.Database.Sqlite)
	i.SetDefault("playerLink.database.postgres", p.Database.Postgres)
	i.SetDefault("playerLink.redis.enabled", p.Redis.Enabled)
	i.SetDefault("playerLink.redis.url", p.Redis.URL)
	i.SetDefault("playerLink.enableGlobalLinking", p.EnableGlobalLinking)
	i.SetDefault("playerLink.globalApiUrl", p.GlobalAPIURL)
	i.SetDefault("playerLink.globalCacheTtl", p.GlobalCacheTTL.String())
	i.SetDefault("playerLink.globalRateLimit", p.GlobalRateLimit)

	i.SetDefault("handshake.workers", d.Handshake.Workers)
	i.SetDefault("handshake.timeout", d.Handshake.Timeout.String())

	g := d.Gateway
	i.SetDefault("gateway.bind", g.Bind)
	i.SetDefault("gateway.backend", g.Backend)
	i.SetDefault("gateway.proxyProtocol", g.ProxyProtocol)
	i.SetDefault("gateway.backendProxyProtocol", g.BackendProxyProtocol)
	i.SetDefault("gateway.onlyFloodgate", g.OnlyFloodgate)
	i.SetDefault("gateway.readTimeout", g.ReadTimeout.String())
	i.SetDefault("gateway.dialTimeout", g.DialTimeout.String())
	i.SetDefault("gateway.quota.enabled", g.Quota.Enabled)
	i.SetDefault("gateway.quota.ops", g.Quota.OPS)
	i.SetDefault("gateway.quota.burst", g.Quota.Burst)
	i.SetDefault("gateway.quota.maxEntries", g.Quota.MaxEntries)
}
