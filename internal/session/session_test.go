// ABOUTME: Tests for the session Store drivers and factory
// ABOUTME: Covers absence semantics, round trips, TTL expiry, and deletion

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydesk/payday-bot/internal/config"
)

func TestMemoryStore_GetAbsent(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	sess, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, sess, "absent session should be (nil, nil)")
}

func TestMemoryStore_SetGetRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	in := &Session{
		UserID: 42,
		Stage:  StageAwaitingDate,
	}
	require.NoError(t, store.Set(ctx, in))

	// Set stamps timestamps
	assert.False(t, in.CreatedAt.IsZero(), "Set should stamp CreatedAt")
	assert.False(t, in.UpdatedAt.IsZero(), "Set should stamp UpdatedAt")

	out, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, int64(42), out.UserID)
	assert.Equal(t, StageAwaitingDate, out.Stage)
	assert.Empty(t, out.Date)
}

func TestMemoryStore_SetOverwrites(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, &Session{UserID: 42, Stage: StageAwaitingDate}))

	// Advance the dialogue to the identifier step
	require.NoError(t, store.Set(ctx, &Session{
		UserID: 42,
		Stage:  StageAwaitingIdentifier,
		Date:   "01.09.2025",
	}))

	out, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, StageAwaitingIdentifier, out.Stage)
	assert.Equal(t, "01.09.2025", out.Date)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, &Session{UserID: 42, Stage: StageAwaitingDate}))
	require.NoError(t, store.Delete(ctx, 42))

	out, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, out, "deleted session should be absent")
}

func TestMemoryStore_DeleteAbsent(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	// Deleting a session that never existed is not an error
	assert.NoError(t, store.Delete(context.Background(), 999))
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, &Session{UserID: 42, Stage: StageAwaitingDate}))

	// Present before expiry
	out, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.NotNil(t, out)

	time.Sleep(20 * time.Millisecond)

	// Absent after expiry
	out, err = store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, out, "expired session should be absent")
}

func TestMemoryStore_UsersAreIsolated(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, &Session{UserID: 1, Stage: StageAwaitingDate}))
	require.NoError(t, store.Set(ctx, &Session{
		UserID: 2,
		Stage:  StageAwaitingIdentifier,
		Date:   "15.03.2025",
	}))

	first, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, StageAwaitingDate, first.Stage)

	second, err := store.Get(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, StageAwaitingIdentifier, second.Stage)

	// Deleting one user leaves the other untouched
	require.NoError(t, store.Delete(ctx, 1))

	gone, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, gone)

	still, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, &Session{UserID: 42, Stage: StageAwaitingDate}))

	out, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, out)

	// Mutating the returned session must not leak into the store
	out.Stage = StageAwaitingIdentifier
	out.Date = "mutated"

	fresh, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, StageAwaitingDate, fresh.Stage)
	assert.Empty(t, fresh.Date)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int64) {
			defer wg.Done()
			_ = store.Set(ctx, &Session{UserID: id, Stage: StageAwaitingDate})
			_, _ = store.Get(ctx, id)
			_ = store.Delete(ctx, id)
		}(int64(i))
	}

	wg.Wait()

	// Store is still functional afterwards
	require.NoError(t, store.Set(ctx, &Session{UserID: 1000, Stage: StageAwaitingDate}))
	out, err := store.Get(ctx, 1000)
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestMemoryStore_Ping(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	assert.NoError(t, store.Ping(context.Background()))
}

func TestStage_Valid(t *testing.T) {
	assert.True(t, StageAwaitingDate.Valid())
	assert.True(t, StageAwaitingIdentifier.Valid())
	assert.False(t, Stage("").Valid())
	assert.False(t, Stage("done").Valid())
}

func TestNew_MemoryDriver(t *testing.T) {
	store, err := New(config.SessionConfig{Driver: config.DriverMemory, TTL: time.Hour})
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*MemoryStore)
	assert.True(t, ok, "memory driver should produce a MemoryStore")
}

func TestNew_RedisDriver(t *testing.T) {
	// Construction does not dial; connectivity is checked via Ping at startup
	store, err := New(config.SessionConfig{
		Driver: config.DriverRedis,
		TTL:    time.Hour,
		Redis:  config.RedisConfig{Addr: "localhost:6379"},
	})
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*RedisStore)
	assert.True(t, ok, "redis driver should produce a RedisStore")
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(config.SessionConfig{Driver: "etcd"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDriver)
}
