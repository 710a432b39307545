package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/errors"
)

func TestLocalIsExclusive(t *testing.T) {
	key := "test-" + uuid.NewString()
	a := NewLocal(key)
	b := NewLocal(key)
	assert.Same(t, a, b)

	unlock, err := a.TryLock(context.Background())
	require.NoError(t, err)

	_, err = b.TryLock(context.Background())
	assert.True(t, errors.IsBusy(err))

	unlock()
	unlock() // second call is a no-op

	unlock, err = b.TryLock(context.Background())
	require.NoError(t, err)
	unlock()
}

func TestLocalKeysAreIndependent(t *testing.T) {
	a := NewLocal("test-" + uuid.NewString())
	b := NewLocal("test-" + uuid.NewString())

	ua, err := a.TryLock(context.Background())
	require.NoError(t, err)
	defer ua()

	ub, err := b.TryLock(context.Background())
	require.NoError(t, err)
	ub()
}

// TestRedisLock runs against a real server when CATALOGSYNC_TEST_REDIS is set.
func TestRedisLock(t *testing.T) {
	addr := os.Getenv("CATALOGSYNC_TEST_REDIS")
	if addr == "" {
		t.Skip("CATALOGSYNC_TEST_REDIS not set")
	}

	ctx := context.Background()
	key := "catalogsync:test:" + uuid.NewString()

	first, closeFirst, err := Dial(ctx, addr, key, 2*time.Second)
	require.NoError(t, err)
	defer func() { _ = closeFirst() }()

	second, closeSecond, err := Dial(ctx, addr, key, 2*time.Second)
	require.NoError(t, err)
	defer func() { _ = closeSecond() }()

	unlock, err := first.TryLock(ctx)
	require.NoError(t, err)

	_, err = second.TryLock(ctx)
	assert.True(t, errors.IsBusy(err))

	unlock()

	unlock, err = second.TryLock(ctx)
	require.NoError(t, err)
	unlock()
}

func TestDialUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err := Dial(ctx, "127.0.0.1:1", "k", time.Second)
	require.Error(t, err)
	assert.Equal(t, "TransportFailure", errors.Kind(err))
}
