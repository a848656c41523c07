package handshake

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/floodgate/bedrock"
	"go.minekube.com/floodgate/pkg/floodgate/config"
	"go.minekube.com/floodgate/pkg/floodgate/crypto"
	"go.minekube.com/floodgate/pkg/floodgate/link"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

type testChannel struct {
	port   int
	active bool
}

func (c *testChannel) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: c.port}
}
func (c *testChannel) Active() bool { return c.active }

// fakeStore is a link store with a fixed answer.
type fakeStore struct {
	link.Disabled
	player *floodgate.LinkedPlayer
	err    error
	calls  int
	mu     sync.Mutex
}

func (s *fakeStore) Enabled() bool { return true }
func (s *fakeStore) Name() string  { return "fake" }
func (s *fakeStore) FetchLink(context.Context, uuid.UUID) (*floodgate.LinkedPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.player, s.err
}

var steveUUID = uuid.FromBits(0, 123456789)

func steve() *bedrock.Data {
	return &bedrock.Data{
		Version:      "1.20.80",
		Username:     "Steve",
		Xuid:         "123456789",
		DeviceOS:     bedrock.DeviceAndroid,
		LanguageCode: "en_US",
		IP:           "1.2.3.4",
	}
}

func newTestCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	c, err := crypto.NewCipher(key)
	require.NoError(t, err)
	return c
}

func newTestHandler(t *testing.T, c *crypto.Cipher, modify func(o *Options)) *Handler {
	t.Helper()
	opts := Options{
		Cipher:     c,
		Formatter:  floodgate.UsernameFormatter{Prefix: ".", ReplaceSpaces: true},
		Disconnect: config.DefaultConfig.Disconnect,
		Workers:    4,
		Timeout:    5 * time.Second,
	}
	if modify != nil {
		modify(&opts)
	}
	h, err := NewHandler(opts)
	require.NoError(t, err)
	return h
}

func token(t *testing.T, c *crypto.Cipher, version int, d *bedrock.Data) string {
	t.Helper()
	plain, err := bedrock.Encode(version, d)
	require.NoError(t, err)
	return rawToken(t, c, version, plain)
}

func rawToken(t *testing.T, c *crypto.Cipher, version int, plain []byte) string {
	t.Helper()
	tok, err := c.Encrypt(version, plain)
	require.NoError(t, err)
	return string(tok)
}

func handle(t *testing.T, h *Handler, ch *testChannel, hostname string) *Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := h.HandleHostname(ctx, ch, hostname).Await(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotNil(t, res.Data)
	return res
}

func TestHandleSuccess(t *testing.T) {
	for _, version := range []int{crypto.Version1, crypto.Version2} {
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			c := newTestCipher(t)
			h := newTestHandler(t, c, nil)
			ch := &testChannel{port: 1, active: true}

			res := handle(t, h, ch, "play.example.com\x00"+token(t, c, version, steve()))
			require.Equal(t, ResultSuccess, res.Type, res.Err)
			require.True(t, res.Accepted())
			require.False(t, res.ShouldDisconnect())
			require.Equal(t, "play.example.com", res.Hostname())

			conn := res.Connection
			require.NotNil(t, conn)
			assert.Equal(t, ".Steve", conn.JavaUsername())
			assert.Equal(t, "00000000-0000-0000-0000-0000075bcd15", conn.JavaUUID().String())
			assert.Equal(t, "Steve", conn.BedrockUsername())
			assert.Equal(t, "1.2.3.4", conn.IP())
			assert.False(t, conn.IsLinked())

			require.Same(t, conn, h.Manager().Get(ch))
			require.Same(t, conn, h.Manager().ByUUID(steveUUID))
		})
	}
}

func TestHandleNotFloodgateData(t *testing.T) {
	h := newTestHandler(t, newTestCipher(t), nil)
	var called bool
	h.Hooks().Register(HookFunc(func(_ context.Context, d *Data) {
		called = true
		assert.False(t, d.IsFloodgatePlayer())
	}))

	hostname := "play.example.com\x00FML2\x00"
	res := handle(t, h, &testChannel{active: true}, hostname)
	require.Equal(t, ResultNotFloodgateData, res.Type)
	require.Equal(t, hostname, res.Hostname())
	require.Nil(t, res.Connection)
	require.NoError(t, res.Err)
	require.False(t, res.ShouldDisconnect())
	require.True(t, called)
	require.Zero(t, h.Manager().Len())
}

func TestHandleDecryptError(t *testing.T) {
	other := newTestCipher(t)
	h := newTestHandler(t, newTestCipher(t), nil)

	res := handle(t, h, &testChannel{active: true}, "host\x00"+token(t, other, crypto.Version1, steve()))
	require.Equal(t, ResultDecryptError, res.Type)
	var decryptErr *crypto.DecryptError
	require.ErrorAs(t, res.Err, &decryptErr)
	require.True(t, res.ShouldDisconnect())
	require.Equal(t, config.DefaultConfig.Disconnect.InvalidKey, res.DisconnectReason())
	require.Zero(t, h.Manager().Len())
}

func TestHandleTamperedToken(t *testing.T) {
	c := newTestCipher(t)
	h := newTestHandler(t, c, nil)
	tok := []byte(token(t, c, crypto.Version2, steve()))
	tok[len(tok)-2] ^= 1

	res := handle(t, h, &testChannel{active: true}, string(tok))
	require.Equal(t, ResultDecryptError, res.Type)
}

func TestHandleInvalidDataLength(t *testing.T) {
	c := newTestCipher(t)
	h := newTestHandler(t, c, nil)

	plain, err := bedrock.Encode(crypto.Version1, steve())
	require.NoError(t, err)
	fields := strings.Split(string(plain), "\x00")
	short := strings.Join(fields[:len(fields)-1], "\x00")

	res := handle(t, h, &testChannel{active: true}, "host\x00"+rawToken(t, c, crypto.Version1, []byte(short)))
	require.Equal(t, ResultInvalidDataLength, res.Type)
	var lenErr *bedrock.DataLengthError
	require.ErrorAs(t, res.Err, &lenErr)
	require.Equal(t, 12, lenErr.Expected)
	require.Equal(t, 11, lenErr.Got)
	require.Equal(t, "Expected 12 arguments, got 11. Is Geyser up-to-date?", res.DisconnectReason())
	require.Zero(t, h.Manager().Len())
}

func TestHandleInvalidDataLengthV2(t *testing.T) {
	c := newTestCipher(t)
	h := newTestHandler(t, c, nil)

	plain, err := bedrock.Encode(crypto.Version2, steve())
	require.NoError(t, err)

	// drop the linked flag, the last field
	res := handle(t, h, &testChannel{active: true}, rawToken(t, c, crypto.Version2, plain[:len(plain)-1]))
	require.Equal(t, ResultInvalidDataLength, res.Type)
	require.Equal(t, "Expected 10 arguments, got 9. Is Geyser up-to-date?", res.DisconnectReason())
	require.Zero(t, h.Manager().Len())
}

func TestHandleInvalidData(t *testing.T) {
	c := newTestCipher(t)
	h := newTestHandler(t, c, nil)

	plain, err := bedrock.Encode(crypto.Version1, steve())
	require.NoError(t, err)
	fields := strings.Split(string(plain), "\x00")
	fields[3] = "android" // device os must be numeric

	res := handle(t, h, &testChannel{active: true}, rawToken(t, c, crypto.Version1, []byte(strings.Join(fields, "\x00"))))
	require.Equal(t, ResultInvalidData, res.Type)
	require.ErrorIs(t, res.Err, bedrock.ErrInvalidFormat)
	require.True(t, res.ShouldDisconnect())
}

func TestHandleLinked(t *testing.T) {
	c := newTestCipher(t)
	javaID := uuid.New()
	store := &fakeStore{player: floodgate.NewLinkedPlayer("Notch", javaID, steveUUID)}
	h := newTestHandler(t, c, func(o *Options) { o.Store = store })

	res := handle(t, h, &testChannel{active: true}, "host\x00"+token(t, c, crypto.Version1, steve()))
	require.Equal(t, ResultSuccess, res.Type)
	conn := res.Connection
	require.True(t, conn.IsLinked())
	assert.Equal(t, "Notch", conn.JavaUsername())
	assert.Equal(t, javaID, conn.JavaUUID())
	assert.Equal(t, steveUUID, conn.BedrockUUID())
	assert.Equal(t, 1, store.calls)
	require.Same(t, conn, h.Manager().ByUUID(javaID))
}

func TestHandleLinkFromProxy(t *testing.T) {
	c := newTestCipher(t)
	store := &fakeStore{err: errors.New("must not be called")}
	h := newTestHandler(t, c, func(o *Options) { o.Store = store })

	d := steve()
	d.FromProxy = true
	d.LinkedPlayer = floodgate.NewLinkedPlayer("Notch", uuid.New(), steveUUID)
	res := handle(t, h, &testChannel{active: true}, token(t, c, crypto.Version1, d))
	require.Equal(t, ResultSuccess, res.Type)
	require.Equal(t, "Notch", res.Connection.JavaUsername())
	require.True(t, res.Connection.FromProxy())
	require.Zero(t, store.calls)
}

func TestHandleStoreError(t *testing.T) {
	c := newTestCipher(t)
	store := &fakeStore{err: errors.New("database down")}
	h := newTestHandler(t, c, func(o *Options) { o.Store = store })

	res := handle(t, h, &testChannel{active: true}, token(t, c, crypto.Version1, steve()))
	require.Equal(t, ResultSuccess, res.Type)
	require.False(t, res.Connection.IsLinked())
	require.Equal(t, ".Steve", res.Connection.JavaUsername())
	require.True(t, res.Accepted())
}

func TestHandleRequireLink(t *testing.T) {
	c := newTestCipher(t)
	h := newTestHandler(t, c, func(o *Options) {
		o.Store = &fakeStore{}
		o.RequireLink = true
	})

	res := handle(t, h, &testChannel{active: true}, token(t, c, crypto.Version1, steve()))
	require.Equal(t, ResultSuccess, res.Type)
	require.NotNil(t, res.Connection)
	require.False(t, res.Accepted())
	require.True(t, res.ShouldDisconnect())
	require.Equal(t, config.DefaultConfig.Disconnect.NotLinked, res.DisconnectReason())
}

func TestHandleHooks(t *testing.T) {
	c := newTestCipher(t)
	mgr := event.New()
	h := newTestHandler(t, c, func(o *Options) { o.Event = mgr })

	var order []string
	h.Hooks().Register(HookFunc(func(_ context.Context, d *Data) {
		order = append(order, "first")
		assert.True(t, d.IsFloodgatePlayer())
		assert.Equal(t, "Steve", d.BedrockData().Username)
		d.BedrockData().Username = "Alex" // copies only
		d.SetJavaUsername("Steve_BE")
	}))
	h.Hooks().Register(HookFunc(func(context.Context, *Data) {
		order = append(order, "panic")
		panic("hook failure")
	}))
	remove := h.Hooks().Register(HookFunc(func(context.Context, *Data) {
		order = append(order, "removed")
	}))
	remove()
	require.Equal(t, 2, h.Hooks().Len())

	event.Subscribe(mgr, 0, func(e *HandshakeEvent) {
		order = append(order, "event")
		assert.Equal(t, "Steve_BE", e.Data().CorrectUsername())
		e.Data().SetDisconnectReason("maintenance")
	})

	res := handle(t, h, &testChannel{active: true}, token(t, c, crypto.Version1, steve()))
	require.Equal(t, []string{"first", "panic", "event"}, order)
	require.Equal(t, ResultSuccess, res.Type)
	require.Equal(t, "Steve_BE", res.Connection.JavaUsername())
	require.Equal(t, "Steve", res.Connection.BedrockUsername())
	require.Equal(t, "maintenance", res.DisconnectReason())
	require.False(t, res.Accepted())
}

func TestHandleHookOnFailure(t *testing.T) {
	h := newTestHandler(t, newTestCipher(t), nil)
	h.Hooks().Register(HookFunc(func(_ context.Context, d *Data) {
		// link changes are ignored without bedrock data
		d.SetLinkedPlayer(floodgate.NewLinkedPlayer("Notch", uuid.New(), steveUUID))
		d.SetDisconnectReason("custom")
	}))

	res := handle(t, h, &testChannel{active: true}, crypto.Header(crypto.Version1)+"garbage")
	require.Equal(t, ResultDecryptError, res.Type)
	require.Nil(t, res.Data.LinkedPlayer())
	require.Equal(t, "custom", res.DisconnectReason())
}

func TestHandleHostnameCorrection(t *testing.T) {
	c := newTestCipher(t)
	h := newTestHandler(t, c, nil)

	hostname := "play.example.com\x00127.0.0.1\x00placeholder\x00" + token(t, c, crypto.Version1, steve())
	res := handle(t, h, &testChannel{active: true}, hostname)
	require.Equal(t, ResultSuccess, res.Type)
	require.Equal(t, "play.example.com\x001.2.3.4\x00"+steveUUID.String(), res.Hostname())
}

func TestHandleClosedChannel(t *testing.T) {
	c := newTestCipher(t)
	h := newTestHandler(t, c, nil)

	res := handle(t, h, &testChannel{active: false}, token(t, c, crypto.Version1, steve()))
	require.Equal(t, ResultSuccess, res.Type)
	require.Nil(t, res.Connection)
	require.Zero(t, h.Manager().Len())
}

func TestHandleConcurrent(t *testing.T) {
	c := newTestCipher(t)
	h := newTestHandler(t, c, func(o *Options) { o.Workers = 2 })

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := steve()
			d.Xuid = fmt.Sprint(1000 + i)
			d.Username = fmt.Sprintf("Player%d", i)
			plain, err := bedrock.Encode(crypto.Version2, d)
			if !assert.NoError(t, err) {
				return
			}
			tok, err := c.Encrypt(crypto.Version2, plain)
			if !assert.NoError(t, err) {
				return
			}
			res := h.HandleHostname(context.Background(), &testChannel{port: i, active: true}, string(tok)).Get()
			if assert.Equal(t, ResultSuccess, res.Type) {
				assert.Equal(t, fmt.Sprintf(".Player%d", i), res.Connection.JavaUsername())
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, n, h.Manager().Len())
}

func TestNewHandlerRequiresCipher(t *testing.T) {
	_, err := NewHandler(Options{})
	require.Error(t, err)
}

func TestResultTypeString(t *testing.T) {
	assert.Equal(t, "SUCCESS", ResultSuccess.String())
	assert.Equal(t, "INVALID_DATA_LENGTH", ResultInvalidDataLength.String())
	assert.Equal(t, "ResultType(42)", ResultType(42).String())
}
