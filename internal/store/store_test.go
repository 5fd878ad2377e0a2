package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown/internal/config"
	"countdown/internal/holiday"
)

var sample = []Holiday{
	{Date: "2025-12-24", Label: "Christmas Eve"},
	{Date: "2025-12-31"},
}

// exerciseStore runs the same round trip against any driver.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.Save(ctx, sample))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample, got)

	require.NoError(t, s.Save(ctx, sample[:1]))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample[:1], got, "save replaces the whole list")

	require.NoError(t, s.Save(ctx, nil))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "holidays.json")
	s := NewFile(path)
	exerciseStore(t, s)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.json")
	s := NewFile(path)

	for _, body := range []string{"not json", `{"date":"2025-12-24"}`, `"x"`} {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		got, err := s.Load(context.Background())
		require.NoError(t, err, body)
		assert.Empty(t, got, body)
	}

	require.NoError(t, os.WriteFile(path, []byte(`[{"date":"2025-12-24"},{"date":"24/12/2025"}]`), 0o600))
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Holiday{{Date: "2025-12-24"}}, got)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisClient(client, "")
	defer s.Close()

	exerciseStore(t, s)

	require.NoError(t, s.Save(context.Background(), sample))
	raw, err := mr.Get("customHolidays")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2025-12-24","label":"Christmas Eve"},{"date":"2025-12-31"}]`, raw)

	mr.Set("customHolidays", "{broken")
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedis(context.Background(), "redis://"+mr.Addr()+"/0", "holidays")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Save(context.Background(), sample))
	assert.True(t, mr.Exists("holidays"))

	_, err = NewRedis(context.Background(), "://bad", "k")
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), config.StoreConfig{Driver: "file", Path: filepath.Join(t.TempDir(), "h.json")})
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	s, err = New(context.Background(), config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = New(context.Background(), config.StoreConfig{Driver: "etcd"})
	assert.Error(t, err)
}

func TestAddRemove(t *testing.T) {
	list, err := Add(nil, Holiday{Date: " 2025-12-24 ", Label: " Eve "})
	require.NoError(t, err)
	assert.Equal(t, []Holiday{{Date: "2025-12-24", Label: "Eve"}}, list)

	_, err = Add(list, Holiday{Date: "2025/12/01"})
	assert.ErrorIs(t, err, ErrInvalidHoliday)

	list, err = Add(list, Holiday{Date: "2025-12-24", Label: "Other"})
	require.NoError(t, err)

	assert.Equal(t, []Holiday{{Date: "2025-12-24", Label: "Other"}}, Remove(list, "2025-12-24", "Eve"))
	assert.Len(t, Remove(list, "2025-12-24", "nope"), 2, "label must match too")
}

func TestToEntries(t *testing.T) {
	entries := ToEntries([]Holiday{{Date: "2025-12-24", Label: "Eve"}, {Date: "bad"}})
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-12-24", entries[0].Key())
	assert.Equal(t, holiday.SourceUser, entries[0].Source)
}
