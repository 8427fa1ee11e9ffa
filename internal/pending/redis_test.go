package pending

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) PendingIntentKey(ref string) string { return "co:pending:" + ref }

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := newFakeRedis()
	store, err := NewRedisStore(backend, 2*time.Hour)
	require.NoError(t, err)

	intent := sampleIntent("1700000000000")
	intent.ShippingFee = decimal.RequireFromString("2.5")
	require.NoError(t, store.Put(ctx, intent.ReferenceID, intent))
	assert.Equal(t, 2*time.Hour, backend.ttls["co:pending:1700000000000"])

	got, err := store.Get(ctx, intent.ReferenceID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.ShippingFee.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, "hi", got.GiftCard.Note)

	require.NoError(t, store.Delete(ctx, intent.ReferenceID))
	got, err = store.Get(ctx, intent.ReferenceID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreCreateRefusesTakenReference(t *testing.T) {
	ctx := context.Background()
	backend := newFakeRedis()
	store, err := NewRedisStore(backend, time.Hour)
	require.NoError(t, err)

	first := sampleIntent("1700000000000")
	first.Email = "first@example.com"
	second := sampleIntent("1700000000000")
	second.Email = "second@example.com"

	require.NoError(t, store.Create(ctx, first.ReferenceID, first))
	assert.Equal(t, time.Hour, backend.ttls["co:pending:1700000000000"])
	assert.ErrorIs(t, store.Create(ctx, second.ReferenceID, second), ErrExists)

	got, err := store.Get(ctx, first.ReferenceID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first@example.com", got.Email)

	require.NoError(t, store.Put(ctx, second.ReferenceID, second), "put still overwrites")
	got, err = store.Get(ctx, second.ReferenceID)
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", got.Email)
}

func TestRedisStoreSurfacesBackendErrors(t *testing.T) {
	backend := newFakeRedis()
	backend.getErr = errors.New("connection reset")
	store, err := NewRedisStore(backend, time.Hour)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "ref")
	assert.Error(t, err)

	_, err = NewRedisStore(nil, time.Hour)
	assert.Error(t, err)
}
