package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapBackend mimics the four Redis commands the store issues.
type mapBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapBackend() *mapBackend { return &mapBackend{data: map[string]string{}} }

func (m *mapBackend) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (m *mapBackend) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mapBackend) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (m *mapBackend) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestBeginCompleteReplay(t *testing.T) {
	s := New(newMapBackend(), time.Hour)
	ctx := context.Background()

	prev, err := s.Begin(ctx, "u1:abc")
	require.NoError(t, err)
	assert.Nil(t, prev)

	_, err = s.Begin(ctx, "u1:abc")
	assert.ErrorIs(t, err, ErrInFlight)

	require.NoError(t, s.Complete(ctx, "u1:abc", Result{Status: 201, Body: []byte(`{"id":1}`)}))
	prev, err = s.Begin(ctx, "u1:abc")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, 201, prev.Status)
	assert.JSONEq(t, `{"id":1}`, string(prev.Body))
}

func TestAbortReleasesKey(t *testing.T) {
	s := New(newMapBackend(), time.Hour)
	ctx := context.Background()
	_, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, s.Abort(ctx, "k"))
	prev, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, prev)
}

func TestNilBackendIsDisabled(t *testing.T) {
	assert.False(t, New(nil, 0).Enabled())
	var s *Store
	assert.False(t, s.Enabled())
}
