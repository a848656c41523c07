package link

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/internal/cachutil"
	"go.minekube.com/floodgate/pkg/util/uuid"
	"go.minekube.com/floodgate/pkg/version"
)

// Global reads links from the GeyserMC global linking api.
// Links are first looked up in the optional local store.
// Writes go to the local store or fail with ErrLocalDisabled without one.
type Global struct {
	local   Store // may be nil
	apiURL  string
	client  *http.Client
	limiter *rate.Limiter
	cache   *cachutil.SuppressedLoader[*floodgate.LinkedPlayer]

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*Global)(nil)

// GlobalOptions configures a Global store.
type GlobalOptions struct {
	APIURL string
	// Local is the store for own links and all writes, may be nil.
	Local  Store
	Client *http.Client
	// CacheTTL is how long api results are cached, not linked results are cached a quarter of it.
	CacheTTL time.Duration
	// RateLimit is the max api requests per second, <= 0 disables limiting.
	RateLimit float64
}

// NewGlobal returns a new Global store.
func NewGlobal(opts GlobalOptions) *Global {
	g := &Global{
		local:   opts.Local,
		apiURL:  strings.TrimSuffix(opts.APIURL, "/"),
		client:  opts.Client,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.RateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}
	missTTL := opts.CacheTTL / 4
	g.cache = cachutil.NewSuppressedLoader(opts.CacheTTL, 10_000,
		func(ctx context.Context, xuid string) (*floodgate.LinkedPlayer, time.Duration, error) {
			p, err := g.fetchRemote(ctx, xuid)
			if err != nil {
				return nil, 0, err
			}
			if p == nil && missTTL > 0 {
				return nil, missTTL, nil
			}
			return p, 0, nil
		})
	go g.cache.Start()
	return g
}

func (g *Global) Name() string {
	if g.local != nil {
		return "global+" + g.local.Name()
	}
	return "global"
}

func (g *Global) Enabled() bool { return true }

func (g *Global) Close() error {
	g.closeOnce.Do(func() {
		g.cache.Stop()
		if g.local != nil {
			g.closeErr = g.local.Close()
		}
	})
	return g.closeErr
}

func (g *Global) FetchLink(ctx context.Context, id uuid.UUID) (*floodgate.LinkedPlayer, error) {
	if g.local != nil {
		p, err := g.local.FetchLink(ctx, id)
		if err != nil {
			logr.FromContextOrDiscard(ctx).Error(err, "local link lookup failed, asking global api", "id", id)
		} else if p != nil {
			return p, nil
		}
	}
	// the global api only knows Bedrock uuids
	if !floodgate.IsBedrockUUID(id) {
		return nil, nil
	}
	return g.cache.Get(ctx, floodgate.XUID(id))
}

func (g *Global) IsLinked(ctx context.Context, id uuid.UUID) (bool, error) {
	p, err := g.FetchLink(ctx, id)
	return p != nil, err
}

func (g *Global) AddLink(ctx context.Context, javaID uuid.UUID, javaUsername string, bedrockID uuid.UUID) (*floodgate.LinkedPlayer, error) {
	if g.local == nil {
		return nil, ErrLocalDisabled
	}
	p, err := g.local.AddLink(ctx, javaID, javaUsername, bedrockID)
	if err == nil {
		g.cache.Invalidate(floodgate.XUID(bedrockID))
	}
	return p, err
}

func (g *Global) Unlink(ctx context.Context, id uuid.UUID) error {
	if g.local == nil {
		return ErrLocalDisabled
	}
	err := g.local.Unlink(ctx, id)
	if err == nil && floodgate.IsBedrockUUID(id) {
		g.cache.Invalidate(floodgate.XUID(id))
	}
	return err
}

func (g *Global) CreateLinkRequest(ctx context.Context, javaID uuid.UUID, javaUsername, bedrockUsername, code string) (*floodgate.LinkRequest, error) {
	if g.local == nil {
		return nil, ErrLocalDisabled
	}
	return g.local.CreateLinkRequest(ctx, javaID, javaUsername, bedrockUsername, code)
}

func (g *Global) LinkRequest(ctx context.Context, javaUsername string) (*floodgate.LinkRequest, error) {
	if g.local == nil {
		return nil, ErrLocalDisabled
	}
	return g.local.LinkRequest(ctx, javaUsername)
}

func (g *Global) InvalidateLinkRequest(ctx context.Context, req *floodgate.LinkRequest) error {
	if g.local == nil {
		return ErrLocalDisabled
	}
	return g.local.InvalidateLinkRequest(ctx, req)
}

// globalResponse is the envelope of all global api responses.
type globalResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// globalLink is the data of a linked account, empty if not linked.
type globalLink struct {
	BedrockID      int64     `json:"bedrock_id"`
	JavaID         uuid.UUID `json:"java_id"`
	JavaName       string    `json:"java_name"`
	LastNameUpdate int64     `json:"last_name_update"`
}

func (g *Global) fetchRemote(ctx context.Context, xuid string) (*floodgate.LinkedPlayer, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, storeErr("global api", "rate limit", err)
	}
	link, err := g.get(ctx, "/v2/link/bedrock/"+xuid)
	if err != nil {
		return nil, storeErr("global api", "fetch link", err)
	}
	if link == nil || link.JavaID == uuid.Nil {
		return nil, nil
	}
	bedrockID, err := floodgate.JavaUUID(xuid)
	if err != nil {
		return nil, storeErr("global api", "fetch link", err)
	}
	return floodgate.NewLinkedPlayer(link.JavaName, link.JavaID, bedrockID), nil
}

func (g *Global) get(ctx context.Context, path string) (*globalLink, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = version.UserAgentHeader()
	req.Header.Set("Accept", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer res.Body.Close()

	var body globalResponse
	if err = json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK || !body.Success {
		return nil, fmt.Errorf("global api returned status code %d: %s", res.StatusCode, body.Message)
	}
	if len(body.Data) == 0 || string(body.Data) == "null" {
		return nil, nil
	}
	var link globalLink
	if err = json.Unmarshal(body.Data, &link); err != nil {
		return nil, fmt.Errorf("failed to decode link data: %w", err)
	}
	return &link, nil
}
