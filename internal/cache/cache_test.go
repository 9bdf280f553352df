package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "https://acme.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "https://acme.com", []byte(`{"text":"v1"}`)))
	e, err := s.Get(ctx, "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, `{"text":"v1"}`, string(e.Value))
	assert.WithinDuration(t, time.Now(), e.StoredAt, time.Minute)

	require.NoError(t, s.Put(ctx, "https://acme.com", []byte(`{"text":"v2"}`)))
	e, err = s.Get(ctx, "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, `{"text":"v2"}`, string(e.Value))

	require.NoError(t, s.Delete(ctx, "https://acme.com"))
	_, err = s.Get(ctx, "https://acme.com")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Put(context.Background(), "k", buf))
	buf[0] = 'z'

	e, err := m.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(e.Value))
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			_ = m.Put(context.Background(), key, []byte(key))
			_, _ = m.Get(context.Background(), key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, m.Len())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	s, err := NewSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)
	assert.Equal(t, path, s.Path())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = NewSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	e, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(e.Value))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "memory://")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, "redis://localhost")
	assert.Error(t, err)
}

func TestPostgres_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)
}

func TestEntry_Age(t *testing.T) {
	now := time.Now()
	e := &Entry{StoredAt: now.Add(-time.Hour)}
	assert.Equal(t, time.Hour, e.Age(now))
}
