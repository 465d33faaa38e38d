//go:build integration

package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/bissquit/statusboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	container, err := testutil.NewRedisContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	first, err := NewRedisLocker(ctx, container.URL, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	second, err := NewRedisLocker(ctx, container.URL, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	unlock, ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "lock must be exclusive across clients")

	require.NoError(t, unlock(ctx))

	unlock2, ok, err := second.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_Expires(t *testing.T) {
	ctx := context.Background()

	container, err := testutil.NewRedisContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	locker, err := NewRedisLocker(ctx, container.URL, 200*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = locker.Close() })

	stale, ok, err := locker.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok, err := locker.TryLock(ctx)
		return err == nil && ok
	}, 5*time.Second, 50*time.Millisecond)

	// releasing with an outdated token leaves the new holder alone
	require.NoError(t, stale(ctx))
	_, ok, err = locker.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
