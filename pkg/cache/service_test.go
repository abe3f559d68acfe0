package cache

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(client), mr
}

func TestGetSet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var out map[string]int
	assert.ErrorIs(t, svc.Get(ctx, "missing", &out), ErrCacheMiss)

	require.NoError(t, svc.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	require.NoError(t, svc.Get(ctx, "k", &out))
	assert.Equal(t, 1, out["a"])

	require.NoError(t, svc.Delete(ctx, "k"))
	assert.ErrorIs(t, svc.Get(ctx, "k", &out), ErrCacheMiss)
}

func TestGetOrSetCallsFetcherOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]string{"status": "available"}, nil
	}

	var first, second map[string]string
	require.NoError(t, svc.GetOrSet(ctx, "slot", time.Minute, fetch, &first))
	require.NoError(t, svc.GetOrSet(ctx, "slot", time.Minute, fetch, &second))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestGetOrSetPropagatesFetcherError(t *testing.T) {
	svc, _ := newTestService(t)
	boom := errors.New("not found")

	var out map[string]string
	err := svc.GetOrSet(context.Background(), "slot", time.Minute, func() (interface{}, error) { return nil, boom }, &out)

	assert.ErrorIs(t, err, boom)
}

func TestIdempotency(t *testing.T) {
	svc, mr := newTestService(t)
	idem := NewIdempotency(svc, 30*time.Second, time.Hour)
	ctx := context.Background()

	t.Run("Given a new key When Begin Then it is claimed", func(t *testing.T) {
		stored, err := idem.Begin(ctx, "k1")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("Given a claimed key When Begin again Then in flight", func(t *testing.T) {
		_, err := idem.Begin(ctx, "k1")
		assert.ErrorIs(t, err, ErrRequestInFlight)
	})

	t.Run("Given a completed key When Begin Then the response is replayed", func(t *testing.T) {
		require.NoError(t, idem.Complete(ctx, "k1", http.StatusCreated, map[string]string{"id": "b1"}))
		stored, err := idem.Begin(ctx, "k1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, http.StatusCreated, stored.Status)
		assert.JSONEq(t, `{"id":"b1"}`, string(stored.Body))
	})

	t.Run("Given an abandoned key When Begin Then it can be claimed again", func(t *testing.T) {
		_, err := idem.Begin(ctx, "k2")
		require.NoError(t, err)
		require.NoError(t, idem.Abandon(ctx, "k2"))
		stored, err := idem.Begin(ctx, "k2")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("Given the in-flight marker expired When Begin Then it is claimed", func(t *testing.T) {
		_, err := idem.Begin(ctx, "k3")
		require.NoError(t, err)
		mr.FastForward(31 * time.Second)
		stored, err := idem.Begin(ctx, "k3")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}
