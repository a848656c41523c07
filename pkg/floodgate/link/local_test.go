package link

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

func openTestSqlite(t *testing.T, opts ...LocalOption) *Local {
	t.Helper()
	l, err := OpenSqlite(context.Background(), filepath.Join(t.TempDir(), "links.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLocalLinks(t *testing.T) {
	ctx := context.Background()
	l := openTestSqlite(t)
	require.True(t, l.Enabled())
	require.Equal(t, "sqlite", l.Name())

	javaID := uuid.New()
	bedrockID := uuid.FromBits(0, 123456789)

	p, err := l.FetchLink(ctx, bedrockID)
	require.NoError(t, err)
	require.Nil(t, p)

	p, err = l.AddLink(ctx, javaID, "Notch", bedrockID)
	require.NoError(t, err)
	require.Equal(t, floodgate.NewLinkedPlayer("Notch", javaID, bedrockID), p)

	// found by both ids
	for _, id := range []uuid.UUID{javaID, bedrockID} {
		got, err := l.FetchLink(ctx, id)
		require.NoError(t, err)
		require.Equal(t, p, got)
		linked, err := l.IsLinked(ctx, id)
		require.NoError(t, err)
		require.True(t, linked)
	}

	require.NoError(t, l.Unlink(ctx, javaID))
	linked, err := l.IsLinked(ctx, bedrockID)
	require.NoError(t, err)
	require.False(t, linked)

	// unlinking twice is a no-op
	require.NoError(t, l.Unlink(ctx, javaID))
}

func TestLocalAddLinkDuplicate(t *testing.T) {
	ctx := context.Background()
	l := openTestSqlite(t)
	bedrockID := uuid.FromBits(0, 42)
	javaID := uuid.New()

	_, err := l.AddLink(ctx, javaID, "Notch", bedrockID)
	require.NoError(t, err)

	_, err = l.AddLink(ctx, uuid.New(), "Jeb", bedrockID)
	require.ErrorIs(t, err, ErrDuplicateLink, "same bedrock id")

	_, err = l.AddLink(ctx, javaID, "Notch", uuid.FromBits(0, 43))
	require.ErrorIs(t, err, ErrDuplicateLink, "same java id")

	var count int
	count, err = l.db.NewSelect().Model((*linkedPlayerModel)(nil)).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestLocalAddLinkConcurrent(t *testing.T) {
	ctx := context.Background()
	l := openTestSqlite(t)
	bedrockID := uuid.FromBits(0, 7)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.AddLink(ctx, uuid.New(), "Player", bedrockID)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrDuplicateLink)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, succeeded)
}

func TestLocalLinkRequests(t *testing.T) {
	testRequestLifecycle(t, openTestSqlite(t))
}

// testRequestLifecycle runs the request store contract against s.
func testRequestLifecycle(t *testing.T, s Store) {
	ctx := context.Background()
	javaID := uuid.New()

	req, err := s.LinkRequest(ctx, "Notch")
	require.NoError(t, err)
	require.Nil(t, req)

	first, err := s.CreateLinkRequest(ctx, javaID, "Notch", "Steve", "AAAAAA")
	require.NoError(t, err)

	// a new request replaces the pending one
	second, err := s.CreateLinkRequest(ctx, javaID, "Notch", "Steve", "BBBBBB")
	require.NoError(t, err)

	got, err := s.LinkRequest(ctx, "Notch")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "BBBBBB", got.LinkCode)
	assert.Equal(t, "Steve", got.BedrockUsername)
	assert.Equal(t, javaID, got.JavaUniqueID)
	assert.True(t, second.CreatedAt.Equal(got.CreatedAt))

	// the replaced request cannot be invalidated anymore
	require.ErrorIs(t, s.InvalidateLinkRequest(ctx, first), ErrLinkRequestNotFound)

	require.NoError(t, s.InvalidateLinkRequest(ctx, got))
	require.ErrorIs(t, s.InvalidateLinkRequest(ctx, got), ErrLinkRequestNotFound)

	got, err = s.LinkRequest(ctx, "Notch")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLocalInvalidateLinkRequestOnce(t *testing.T) {
	ctx := context.Background()
	l := openTestSqlite(t)
	req, err := l.CreateLinkRequest(ctx, uuid.New(), "Notch", "Steve", "CODE12")
	require.NoError(t, err)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.InvalidateLinkRequest(ctx, req) == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, won)
}

func TestLocalRequestCreatedAt(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 6_789_000, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	l := openTestSqlite(t)
	req, err := l.CreateLinkRequest(context.Background(), uuid.New(), "Notch", "Steve", "CODE12")
	require.NoError(t, err)
	require.True(t, req.CreatedAt.Equal(fixed.Truncate(time.Millisecond)))

	got, err := l.LinkRequest(context.Background(), "Notch")
	require.NoError(t, err)
	require.True(t, got.CreatedAt.Equal(req.CreatedAt))
}

func TestLocalCloseTwice(t *testing.T) {
	l, err := OpenSqlite(context.Background(), filepath.Join(t.TempDir(), "links.db"))
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	var s Store = Disabled{}
	require.False(t, s.Enabled())

	_, err := s.FetchLink(ctx, uuid.New())
	require.ErrorIs(t, err, ErrDisabled)
	_, err = s.IsLinked(ctx, uuid.New())
	require.ErrorIs(t, err, ErrDisabled)
	_, err = s.AddLink(ctx, uuid.New(), "Notch", uuid.New())
	require.ErrorIs(t, err, ErrDisabled)
	require.ErrorIs(t, s.Unlink(ctx, uuid.New()), ErrDisabled)
	_, err = s.CreateLinkRequest(ctx, uuid.New(), "Notch", "Steve", "code")
	require.ErrorIs(t, err, ErrDisabled)
	_, err = s.LinkRequest(ctx, "Notch")
	require.ErrorIs(t, err, ErrDisabled)
	require.ErrorIs(t, s.InvalidateLinkRequest(ctx, &floodgate.LinkRequest{}), ErrDisabled)
	require.EqualError(t, ErrDisabled, "cannot perform this action when player linking is disabled")
}
