// Package handshake resolves the Floodgate token carried in the hostname
// of a Java edition handshake into a registered Floodgate connection.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"github.com/rs/xid"
	"golang.org/x/sync/semaphore"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/floodgate/bedrock"
	"go.minekube.com/floodgate/pkg/floodgate/config"
	"go.minekube.com/floodgate/pkg/floodgate/connection"
	"go.minekube.com/floodgate/pkg/floodgate/crypto"
	"go.minekube.com/floodgate/pkg/floodgate/link"
	"go.minekube.com/floodgate/pkg/internal/future"
)

// Options are the options of a Handler.
type Options struct {
	Cipher *crypto.Cipher // required
	// Store looks up links of players that joined without one.
	// Defaults to link.Disabled.
	Store link.Store
	// Manager registers successful connections. Defaults to a new Manager.
	Manager   *connection.Manager
	Formatter floodgate.UsernameFormatter
	// RequireLink rejects players without linked Java account.
	RequireLink bool
	Disconnect  config.Disconnect
	// Workers bounds concurrently processed handshakes.
	// Defaults to the number of CPUs.
	Workers int
	// Timeout bounds a single handshake, zero disables it.
	Timeout time.Duration
	// Event receives a HandshakeEvent for every handshake, optional.
	Event  event.Manager
	Logger logr.Logger
}

// Handler runs the Floodgate handshake pipeline.
// It is safe for concurrent use.
type Handler struct {
	cipher      *crypto.Cipher
	store       link.Store
	manager     *connection.Manager
	formatter   floodgate.UsernameFormatter
	requireLink bool
	disconnect  config.Disconnect
	timeout     time.Duration
	event       event.Manager
	log         logr.Logger

	sem   *semaphore.Weighted
	hooks Hooks
}

// NewHandler returns a new Handler.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Cipher == nil {
		return nil, errors.New("handshake handler requires a cipher")
	}
	if opts.Store == nil {
		opts.Store = link.Disabled{}
	}
	if opts.Manager == nil {
		opts.Manager = connection.NewManager()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Handler{
		cipher:      opts.Cipher,
		store:       opts.Store,
		manager:     opts.Manager,
		formatter:   opts.Formatter,
		requireLink: opts.RequireLink,
		disconnect:  opts.Disconnect,
		timeout:     opts.Timeout,
		event:       opts.Event,
		log:         opts.Logger,
		sem:         semaphore.NewWeighted(int64(opts.Workers)),
	}, nil
}

// Hooks returns the hook registry called for every handshake.
func (h *Handler) Hooks() *Hooks { return &h.hooks }

// Manager returns the registry of resolved connections.
func (h *Handler) Manager() *connection.Manager { return h.manager }

// HandleHostname separates the token from hostname and handles it.
func (h *Handler) HandleHostname(ctx context.Context, ch connection.Channel, hostname string) *future.Chan[*Result] {
	s := Separate(hostname)
	return h.Handle(ctx, ch, s.Token, s.Hostname)
}

// Handle resolves token on the worker pool and registers the resulting
// connection for ch. An empty token results in ResultNotFloodgateData.
// hostname is the handshake hostname without the token.
//
// The returned future always completes, failures are reported by the Result type.
func (h *Handler) Handle(ctx context.Context, ch connection.Channel, token, hostname string) *future.Chan[*Result] {
	f := future.NewChan[*Result]()
	go func() {
		log := h.log.WithValues("handshake", xid.New().String(), "remoteAddr", ch.RemoteAddr())
		ctx := logr.NewContext(ctx, log)
		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}
		if err := h.sem.Acquire(ctx, 1); err != nil {
			f.Complete(h.failure(ctx, ResultException, newData(ch, hostname),
				fmt.Errorf("waiting for handshake worker: %w", err)))
			return
		}
		defer h.sem.Release(1)
		f.Complete(h.handle(ctx, ch, token, hostname))
	}()
	return f
}

func (h *Handler) handle(ctx context.Context, ch connection.Channel, token, hostname string) (res *Result) {
	data := newData(ch, hostname)
	defer func() {
		if r := recover(); r != nil {
			res = h.failure(ctx, ResultException, newData(ch, hostname), fmt.Errorf("panic: %v", r))
		}
	}()
	log := logr.FromContextOrDiscard(ctx)

	if token == "" {
		return h.failure(ctx, ResultNotFloodgateData, data, nil)
	}

	plaintext, version, err := h.cipher.Decrypt([]byte(token))
	if err != nil {
		if errors.Is(err, crypto.ErrInvalidHeader) {
			return h.failure(ctx, ResultNotFloodgateData, data, nil)
		}
		log.Info("received invalid floodgate data", "error", err.Error())
		data.SetDisconnectReason(h.disconnect.InvalidKey)
		return h.failure(ctx, ResultDecryptError, data, err)
	}

	d, err := bedrock.Decode(version, plaintext)
	if err != nil {
		var lenErr *bedrock.DataLengthError
		if errors.As(err, &lenErr) {
			log.Info("received floodgate data of unexpected length", "error", err.Error())
			data.SetDisconnectReason(fmt.Sprintf(h.disconnect.InvalidArgumentsLength, lenErr.Expected, lenErr.Got))
			return h.failure(ctx, ResultInvalidDataLength, data, err)
		}
		log.Info("received undecodable floodgate data", "error", err.Error())
		data.SetDisconnectReason(h.disconnect.InvalidKey)
		return h.failure(ctx, ResultInvalidData, data, err)
	}

	b, err := connection.NewBuilder(d, h.formatter)
	if err != nil {
		log.Info("received floodgate data with invalid xuid", "error", err.Error())
		data.SetDisconnectReason(h.disconnect.InvalidKey)
		return h.failure(ctx, ResultInvalidData, data, err)
	}

	data.bedrock = d
	data.javaUsername = b.JavaUsername
	data.javaUUID = b.JavaUUID
	data.ip = d.IP
	data.linkedPlayer = h.fetchLink(ctx, b)
	if h.requireLink && data.linkedPlayer == nil {
		data.SetDisconnectReason(h.disconnect.NotLinked)
	}

	h.callHooks(ctx, data)

	// hooks cannot alter the decoded data, only the resolved identity
	cp := *d
	cp.IP = data.ip
	b.Data = &cp
	b.JavaUsername = data.javaUsername
	b.JavaUUID = data.javaUUID
	b.LinkedPlayer = data.linkedPlayer
	conn := b.Build()

	data.hostname = correctHostname(data.hostname, conn.IP(), conn.JavaUUID().String())

	res = &Result{Type: ResultSuccess, Data: data}
	if !ch.Active() {
		log.V(1).Info("connection closed during floodgate handshake, not registering player")
		return res
	}
	h.manager.Register(ch, conn)
	res.Connection = conn
	log.V(1).Info("floodgate player resolved", "player", conn, "linked", conn.IsLinked(),
		"disconnect", data.ShouldDisconnect())
	return res
}

// fetchLink returns the link sent along the data by a proxy or looks it up.
// Store failures are logged and the player continues unlinked.
func (h *Handler) fetchLink(ctx context.Context, b *connection.Builder) *floodgate.LinkedPlayer {
	if b.LinkedPlayer != nil || !h.store.Enabled() {
		return b.LinkedPlayer
	}
	p, err := h.store.FetchLink(ctx, b.JavaUUID)
	if err != nil {
		logr.FromContextOrDiscard(ctx).Error(err, "player link lookup failed, continuing unlinked",
			"store", h.store.Name(), "xuid", b.Data.Xuid)
		return nil
	}
	return p
}

func (h *Handler) callHooks(ctx context.Context, data *Data) {
	h.hooks.call(ctx, data)
	if h.event != nil {
		h.event.Fire(&HandshakeEvent{ctx: ctx, data: data})
	}
}

// failure calls the hooks with the partial data and returns a failed result.
func (h *Handler) failure(ctx context.Context, t ResultType, data *Data, err error) *Result {
	h.callHooks(ctx, data)
	return &Result{Type: t, Data: data, Err: err}
}
