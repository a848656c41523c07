// Package gateway is a Java edition listener in front of a single backend
// server. It resolves the Floodgate token of every client handshake,
// rejects the players the handshake pipeline refuses and forwards all
// other connections with a re-encrypted token to the backend.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/pires/go-proxyproto"

	"go.minekube.com/floodgate/pkg/floodgate/bedrock"
	"go.minekube.com/floodgate/pkg/floodgate/crypto"
	"go.minekube.com/floodgate/pkg/floodgate/handshake"
	"go.minekube.com/floodgate/pkg/internal/addrquota"
	"go.minekube.com/floodgate/pkg/internal/connwrap"
	"go.minekube.com/floodgate/pkg/proto"
	"go.minekube.com/floodgate/pkg/proto/packet"
	"go.minekube.com/floodgate/pkg/util/errs"
	"go.minekube.com/floodgate/pkg/util/netutil"
)

// maxHandshakeFrameLength fits a handshake with the longest allowed hostname.
const maxHandshakeFrameLength = 4 * packet.MaxServerAddressLength

// Messages of connections rejected by the gateway itself.
const (
	OnlyFloodgateMessage = "This server only accepts Bedrock players joining through Geyser."
	ExceptionMessage     = "An internal error occurred while verifying your Floodgate data."
)

// Options are the options of a Gateway.
type Options struct {
	// Bind is the address ListenAndServe listens on.
	Bind string
	// Backend is the address of the server connections are forwarded to.
	Backend string
	// Handler resolves the Floodgate tokens. Required.
	Handler *handshake.Handler
	// Cipher re-encrypts the token forwarded to the backend. Required.
	Cipher *crypto.Cipher

	ProxyProtocol        bool // read a PROXY protocol header from clients
	BackendProxyProtocol bool // send a PROXY protocol header to the backend
	OnlyFloodgate        bool // reject clients without Floodgate data

	ReadTimeout time.Duration
	DialTimeout time.Duration
	// Quota limits new connections per client ip block, optional.
	Quota  *addrquota.Quota
	Logger logr.Logger
}

// Gateway accepts Java edition clients and forwards them to the backend.
type Gateway struct {
	opts Options
	log  logr.Logger
}

// New returns a new Gateway.
func New(opts Options) (*Gateway, error) {
	if opts.Handler == nil {
		return nil, errors.New("gateway requires a handshake handler")
	}
	if opts.Cipher == nil {
		return nil, errors.New("gateway requires a cipher")
	}
	if opts.Backend == "" {
		return nil, errors.New("gateway requires a backend address")
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &Gateway{opts: opts, log: opts.Logger.WithName("gateway")}, nil
}

// ListenAndServe listens on the bind address and serves until ctx is canceled.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.opts.Bind)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", g.opts.Bind, err)
	}
	return g.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
// It closes ln and waits for all connections to end before returning.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { <-ctx.Done(); _ = ln.Close() }()

	g.log.Info("listening for java edition connections",
		"addr", ln.Addr(), "backend", g.opts.Backend, "proxyProtocol", g.opts.ProxyProtocol)

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("error accepting connection: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.handleConn(ctx, conn)
		}()
	}
}

func (g *Gateway) handleConn(ctx context.Context, raw net.Conn) {
	conn := raw
	if g.opts.ProxyProtocol {
		conn = proxyproto.NewConn(raw)
	}
	client := connwrap.New(conn)
	defer client.Close()
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	// the remote address of a proxyproto conn is only known after reading the header
	_ = client.SetReadDeadline(time.Now().Add(g.opts.ReadTimeout))
	log := g.log.WithValues("remoteAddr", client.RemoteAddr())
	if g.opts.Quota.Blocked(client.RemoteAddr()) {
		log.V(1).Info("connection exceeded rate limit, closing")
		return
	}

	hs, err := readHandshake(client)
	if err != nil {
		errs.V(log, err).Info("error reading handshake", "error", err)
		return
	}

	res, err := g.opts.Handler.HandleHostname(ctx, client, hs.ServerAddress).Await(ctx)
	if err != nil {
		return
	}
	defer g.opts.Handler.Manager().Remove(client)
	log = log.WithValues("result", res.Type)

	if res.Type == handshake.ResultNotFloodgateData && g.opts.OnlyFloodgate {
		log.V(1).Info("rejecting connection without floodgate data")
		g.disconnect(log, client, hs, OnlyFloodgateMessage)
		return
	}
	if res.ShouldDisconnect() {
		reason := res.DisconnectReason()
		if reason == "" {
			reason = ExceptionMessage
		}
		if res.Err != nil {
			log.V(1).Info("rejecting floodgate handshake", "error", res.Err.Error())
		}
		g.disconnect(log, client, hs, reason)
		return
	}
	if res.Type == handshake.ResultSuccess && res.Connection == nil {
		// closed while the handshake was handled
		return
	}

	if hs.ServerAddress, err = g.forwardAddress(res); err != nil {
		log.Error(err, "error encrypting floodgate data for backend")
		g.disconnect(log, client, hs, ExceptionMessage)
		return
	}

	backend, err := g.dial(ctx, client, res, hs)
	if err != nil {
		errs.V(log, err).Info("error connecting to backend", "error", err)
		return
	}
	if res.Connection != nil {
		log = log.WithValues("player", res.Connection.JavaUsername())
	}
	log.V(1).Info("forwarding connection", "backend", g.opts.Backend)
	pipe(log, client, backend)
}

func readHandshake(rd io.Reader) (*packet.Handshake, error) {
	frame, err := proto.ReadFrame(rd, maxHandshakeFrameLength)
	if err != nil {
		return nil, err
	}
	if frame.ID != packet.HandshakeID {
		return nil, errs.NewSilentErr("expected handshake packet, got id 0x%02x", frame.ID)
	}
	hs := new(packet.Handshake)
	if err = frame.Decode(hs); err != nil {
		return nil, errs.WrapSilent(fmt.Errorf("error decoding handshake: %w", err))
	}
	return hs, nil
}

// disconnect tells a logging in client the reason it was rejected.
// Status requests have no disconnect packet and are closed silently.
func (g *Gateway) disconnect(log logr.Logger, client net.Conn, hs *packet.Handshake, reason string) {
	if !hs.Login() {
		return
	}
	if err := proto.WriteFrame(client, packet.LoginDisconnectID, packet.DisconnectWith(reason)); err != nil {
		errs.V(log, err).Info("error sending disconnect", "error", err)
	}
}

// forwardAddress returns the handshake hostname sent to the backend.
// Floodgate players get their resolved data re-encrypted in the version 1
// format and appended, it is the one carrying the proxy flag and the link.
// Other hostnames are cut at the first separator so clients cannot
// pose as a forwarding proxy.
func (g *Gateway) forwardAddress(res *handshake.Result) (string, error) {
	if res.Connection == nil {
		return clientHostname(res.Hostname()), nil
	}
	plaintext, err := bedrock.Encode(crypto.Version1, res.Connection.ToBedrockData())
	if err != nil {
		return "", err
	}
	token, err := g.opts.Cipher.Encrypt(crypto.Version1, plaintext)
	if err != nil {
		return "", err
	}
	return res.Hostname() + handshake.HostnameSeparator + string(token), nil
}

// clientHostname keeps the host and Forge markers of a hostname.
func clientHostname(hostname string) string {
	host, rest, found := strings.Cut(hostname, handshake.HostnameSeparator)
	if !found {
		return hostname
	}
	segments := []string{host}
	for _, s := range strings.Split(rest, handshake.HostnameSeparator) {
		if strings.HasPrefix(s, "FML") {
			segments = append(segments, s)
		}
	}
	if len(segments) > 1 {
		// forge clients end the hostname with a separator
		segments = append(segments, "")
	}
	return strings.Join(segments, handshake.HostnameSeparator)
}

func (g *Gateway) dial(ctx context.Context, client net.Conn, res *handshake.Result, hs *packet.Handshake) (dst net.Conn, err error) {
	dialCtx, cancel := context.WithTimeout(ctx, g.opts.DialTimeout)
	defer cancel()

	var dialer net.Dialer
	dst, err = dialer.DialContext(dialCtx, "tcp", g.opts.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to backend %s: %w", g.opts.Backend, err)
	}
	defer func() {
		if err != nil {
			_ = dst.Close()
		}
	}()

	if g.opts.BackendProxyProtocol {
		src := client.RemoteAddr()
		if res.Connection != nil && res.Connection.IP() != "" {
			if addr, ipErr := netutil.WithIP(src, res.Connection.IP()); ipErr == nil {
				src = addr
			}
		}
		header, err := netutil.ProxyHeader(src, dst.RemoteAddr())
		if err != nil {
			return nil, fmt.Errorf("failed to build proxy protocol header: %w", err)
		}
		if _, err = header.WriteTo(dst); err != nil {
			return nil, fmt.Errorf("failed to write proxy protocol header to backend: %w", err)
		}
	}

	if err = proto.WriteFrame(dst, packet.HandshakeID, hs); err != nil {
		return nil, fmt.Errorf("failed to write handshake to backend: %w", err)
	}
	return dst, nil
}

// pipe copies between both connections until one side is done and closes both.
func pipe(log logr.Logger, src, dst net.Conn) {
	// disable deadlines
	var zero time.Time
	_ = src.SetDeadline(zero)
	_ = dst.SetDeadline(zero)

	done := make(chan struct{}, 2)
	go func() {
		i, err := io.Copy(src, dst)
		log.V(1).Info("done copying backend -> client", "bytes", i, "error", err)
		done <- struct{}{}
	}()
	go func() {
		i, err := io.Copy(dst, src)
		log.V(1).Info("done copying client -> backend", "bytes", i, "error", err)
		done <- struct{}{}
	}()
	<-done

	_ = src.Close()
	_ = dst.Close()
}
