package command

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/floodgate/bedrock"
	"go.minekube.com/floodgate/pkg/floodgate/connection"
	"go.minekube.com/floodgate/pkg/floodgate/link"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

type javaPlayer struct {
	name string
	id   uuid.UUID
}

func (p *javaPlayer) Name() string                    { return p.name }
func (p *javaPlayer) UUID() uuid.UUID                 { return p.id }
func (p *javaPlayer) Bedrock() *connection.Connection { return nil }

type bedrockPlayer struct{ conn *connection.Connection }

func (p *bedrockPlayer) Name() string                    { return p.conn.JavaUsername() }
func (p *bedrockPlayer) UUID() uuid.UUID                 { return p.conn.JavaUUID() }
func (p *bedrockPlayer) Bedrock() *connection.Connection { return p.conn }

func newBedrockPlayer(t *testing.T, gamertag, xuid string) *bedrockPlayer {
	t.Helper()
	b, err := connection.NewBuilder(&bedrock.Data{Username: gamertag, Xuid: xuid},
		floodgate.UsernameFormatter{Prefix: ".", ReplaceSpaces: true})
	require.NoError(t, err)
	return &bedrockPlayer{conn: b.Build()}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openStore(t *testing.T) *link.Local {
	t.Helper()
	s, err := link.OpenSqlite(context.Background(), filepath.Join(t.TempDir(), "links.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestLinker(t *testing.T, store link.Store) (*Linker, *clock) {
	c := &clock{now: time.Now()}
	return NewLinker(store, Options{
		AllowLinking: true,
		Timeout:      5 * time.Minute,
		Now:          c.Now,
	}), c
}

var notch = &javaPlayer{name: "Notch", id: uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")}

// requestCode creates a link request of notch for Steve and returns the code.
func requestCode(t *testing.T, l *Linker) string {
	t.Helper()
	r := l.LinkAccount(context.Background(), notch, []string{"Steve"})
	require.Equal(t, LinkRequestCreated, r.Key)
	require.Len(t, r.Args, 3)
	assert.Equal(t, "Steve", r.Args[0])
	assert.Equal(t, "Notch", r.Args[1])
	code := r.Args[2].(string)
	require.Len(t, code, 6)
	return code
}

func TestLinkAccount(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	l, _ := newTestLinker(t, store)
	steve := newBedrockPlayer(t, "Steve", "123456789")

	code := requestCode(t, l)
	r := l.LinkAccount(ctx, steve, []string{"Notch", code})
	require.Equal(t, LinkRequestCompleted, r.Key)
	require.True(t, r.Kick)
	require.Equal(t, "You are successfully linked to Notch! You will be kicked so you can join with your linked account.", r.String())

	p, err := store.FetchLink(ctx, steve.conn.BedrockUUID())
	require.NoError(t, err)
	require.Equal(t, floodgate.NewLinkedPlayer("Notch", notch.id, steve.conn.BedrockUUID()), p)

	// the request was consumed
	r = l.LinkAccount(ctx, steve, []string{"Notch", code})
	require.Equal(t, NoLinkRequested, r.Key)

	// java side is linked now
	r = l.LinkAccount(ctx, notch, []string{"Steve"})
	require.Equal(t, AlreadyLinked, r.Key)
}

func TestLinkAccountVerifyFailures(t *testing.T) {
	ctx := context.Background()
	steve := newBedrockPlayer(t, "Steve", "123456789")

	t.Run("no request", func(t *testing.T) {
		l, _ := newTestLinker(t, openStore(t))
		r := l.LinkAccount(ctx, steve, []string{"Notch", "ABCDEF"})
		require.Equal(t, NoLinkRequested, r.Key)
	})
	t.Run("other gamertag", func(t *testing.T) {
		l, _ := newTestLinker(t, openStore(t))
		code := requestCode(t, l)
		alex := newBedrockPlayer(t, "Alex", "987654321")
		require.Equal(t, NoLinkRequested, l.LinkAccount(ctx, alex, []string{"Notch", code}).Key)
		// not consumed by the wrong player
		require.Equal(t, LinkRequestCompleted, l.LinkAccount(ctx, steve, []string{"Notch", code}).Key)
	})
	t.Run("prefixed java name", func(t *testing.T) {
		l, _ := newTestLinker(t, openStore(t))
		r := l.LinkAccount(ctx, notch, []string{".Steve"})
		require.Equal(t, LinkRequestCreated, r.Key)
		code := r.Args[2].(string)
		require.Equal(t, LinkRequestCompleted, l.LinkAccount(ctx, steve, []string{"Notch", code}).Key)
	})
	t.Run("expired", func(t *testing.T) {
		l, c := newTestLinker(t, openStore(t))
		code := requestCode(t, l)
		c.Add(5*time.Minute + 2*time.Second)
		require.Equal(t, LinkRequestExpired, l.LinkAccount(ctx, steve, []string{"Notch", code}).Key)
		require.Equal(t, NoLinkRequested, l.LinkAccount(ctx, steve, []string{"Notch", code}).Key)
	})
	t.Run("wrong code", func(t *testing.T) {
		l, _ := newTestLinker(t, openStore(t))
		code := requestCode(t, l)
		require.Equal(t, InvalidCode, l.LinkAccount(ctx, steve, []string{"Notch", code + "x"}).Key)
		// single use even on failure
		require.Equal(t, NoLinkRequested, l.LinkAccount(ctx, steve, []string{"Notch", code}).Key)
	})
	t.Run("bedrock account already linked", func(t *testing.T) {
		store := openStore(t)
		l, _ := newTestLinker(t, store)
		_, err := store.AddLink(ctx, uuid.New(), "Jeb", steve.conn.BedrockUUID())
		require.NoError(t, err)
		code := requestCode(t, l)
		require.Equal(t, AlreadyLinked, l.LinkAccount(ctx, steve, []string{"Notch", code}).Key)
	})
	t.Run("linked connection", func(t *testing.T) {
		l, _ := newTestLinker(t, openStore(t))
		linked := &bedrockPlayer{conn: steve.conn.WithLinkedPlayer(
			floodgate.NewLinkedPlayer("Jeb", uuid.New(), steve.conn.BedrockUUID()))}
		require.Equal(t, AlreadyLinked, l.LinkAccount(ctx, linked, []string{"Notch", "ABCDEF"}).Key)
	})
}

func TestLinkAccountConcurrentVerify(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLinker(t, openStore(t))
	steve := newBedrockPlayer(t, "Steve", "123456789")
	code := requestCode(t, l)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		replies = map[Message]int{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := l.LinkAccount(ctx, steve, []string{"Notch", code})
			mu.Lock()
			replies[r.Key]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, replies[LinkRequestCompleted])
	require.Equal(t, 7, replies[NoLinkRequested])
}

func TestLinkAccountUsage(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLinker(t, openStore(t))
	steve := newBedrockPlayer(t, "Steve", "123456789")

	require.Equal(t, JavaUsage, l.LinkAccount(ctx, notch, nil).Key)
	require.Equal(t, JavaUsage, l.LinkAccount(ctx, notch, []string{"Steve", "code"}).Key)
	require.Equal(t, BedrockUsage, l.LinkAccount(ctx, steve, []string{"Notch"}).Key)
	require.Equal(t, "Usage: /linkaccount <gamertag>", l.LinkAccount(ctx, notch, nil).String())
}

func TestLinkAccountDisabled(t *testing.T) {
	ctx := context.Background()
	l := NewLinker(link.Disabled{}, Options{AllowLinking: true})
	require.Equal(t, LinkRequestDisabled, l.LinkAccount(ctx, notch, []string{"Steve"}).Key)
	require.Equal(t, LinkingNotEnabled, l.UnlinkAccount(ctx, notch).Key)

	l = NewLinker(openStore(t), Options{AllowLinking: false})
	require.Equal(t, LinkRequestDisabled, l.LinkAccount(ctx, notch, []string{"Steve"}).Key)
}

func TestLinkAccountGlobalOnly(t *testing.T) {
	ctx := context.Background()
	g := link.NewGlobal(link.GlobalOptions{APIURL: "http://127.0.0.1:0", CacheTTL: time.Minute})
	t.Cleanup(func() { _ = g.Close() })
	l := NewLinker(g, Options{AllowLinking: true})

	r := l.LinkAccount(ctx, notch, []string{"Steve"})
	require.Equal(t, GlobalLinkingNotice, r.Key)
	require.Equal(t, "This server uses global linking. Visit https://link.geysermc.org/ to link your accounts.", r.String())
}

func TestUnlinkAccount(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	l, _ := newTestLinker(t, store)
	steve := newBedrockPlayer(t, "Steve", "123456789")

	require.Equal(t, NotLinked, l.UnlinkAccount(ctx, notch).Key)

	_, err := store.AddLink(ctx, notch.id, notch.name, steve.conn.BedrockUUID())
	require.NoError(t, err)
	r := l.UnlinkAccount(ctx, steve)
	require.Equal(t, UnlinkSuccess, r.Key)
	require.True(t, r.Kick)
	require.Equal(t, NotLinked, l.UnlinkAccount(ctx, notch).Key)
}

// failingStore fails every lookup.
type failingStore struct{ link.Disabled }

func (failingStore) Enabled() bool { return true }
func (failingStore) IsLinked(context.Context, uuid.UUID) (bool, error) {
	return false, errors.New("database down")
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	l := NewLinker(failingStore{}, Options{AllowLinking: true})
	require.Equal(t, IsLinkedError, l.LinkAccount(ctx, notch, []string{"Steve"}).Key)
	require.Equal(t, IsLinkedError, l.UnlinkAccount(ctx, notch).Key)
}

func TestAdmin(t *testing.T) {
	ctx := context.Background()
	a := NewAdmin(openStore(t))
	bedrockID := uuid.FromBits(0, 42)

	p, err := a.Info(ctx, bedrockID)
	require.NoError(t, err)
	require.Nil(t, p)

	_, err = a.Link(ctx, notch.id, "Notch", notch.id)
	require.Error(t, err)
	_, err = a.Link(ctx, notch.id, "", bedrockID)
	require.Error(t, err)

	p, err = a.Link(ctx, notch.id, "Notch", bedrockID)
	require.NoError(t, err)
	_, err = a.Link(ctx, notch.id, "Notch", bedrockID)
	require.ErrorIs(t, err, link.ErrDuplicateLink)

	got, err := a.Info(ctx, notch.id)
	require.NoError(t, err)
	require.Equal(t, p, got)

	removed, err := a.Unlink(ctx, bedrockID)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = a.Unlink(ctx, bedrockID)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestReplyString(t *testing.T) {
	r := reply(LinkRequestCreated, "Steve", "Notch", "ABCDEF")
	require.Contains(t, r.String(), "Log in as Steve on Bedrock and run /linkaccount Notch ABCDEF")
	require.Equal(t, "custom.key", Reply{Key: "custom.key"}.String())
	require.Equal(t, "custom.key [1 2]", Reply{Key: "custom.key", Args: []any{1, 2}}.String())
}
