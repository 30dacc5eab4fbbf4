package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/pendlewatch/internal/config"
)

func TestFileStore_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "known_markets.json"))

	known, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, known.Cardinality())
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "state", "known_markets.json"))

	original := NewSet("0xccc", "0xaaa", "0xbbb")
	require.NoError(t, s.Save(ctx, original))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, original.Equal(loaded))

	// Saving what was loaded changes nothing
	require.NoError(t, s.Save(ctx, loaded))
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, original.Equal(again))
}

func TestFileStore_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_markets.json")
	s := NewFileStore(path)

	require.NoError(t, s.Save(context.Background(), NewSet("b", "a<&>", "ёж")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"a<&>\",\n  \"b\",\n  \"ёж\"\n]", string(data))
}

func TestFileStore_EmptySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_markets.json")
	s := NewFileStore(path)

	require.NoError(t, s.Save(context.Background(), NewSet()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestFileStore_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"object instead of list", `{}`},
		{"not json", `not json at all`},
		{"truncated", `["0xaaa", "0xb`},
		{"string", `"0xaaa"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "known_markets.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			known, err := NewFileStore(path).Load(context.Background())
			require.Error(t, err)

			var corrupt *CorruptStateError
			assert.True(t, errors.As(err, &corrupt))
			assert.Equal(t, path, corrupt.Location)
			require.NotNil(t, known)
			assert.Equal(t, 0, known.Cardinality())
		})
	}
}

func TestFileStore_IgnoresNonStringElements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_markets.json")
	require.NoError(t, os.WriteFile(path, []byte(`["0xaaa", 7, null, {"a": 1}, "0xbbb"]`), 0o644))

	known, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0xaaa", "0xbbb"}, known.ToSlice())
}

func TestFileStore_RemovesStaleTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_markets.json")
	require.NoError(t, os.WriteFile(path+".tmp", []byte(`["half`), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	known, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, known.Cardinality())

	require.NoError(t, s.Save(ctx, NewSet("0xaaa", "0xbbb")))
	require.NoError(t, s.Save(ctx, NewSet("0xbbb", "0xccc")))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaaa", "0xbbb", "0xccc"}, Sorted(loaded))
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "known.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, NewSet("0xaaa")))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.Contains("0xaaa"))
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	key := "pendlewatch:test:" + t.Name()
	s, err := NewRedisStore(ctx, redisURL, key)
	require.NoError(t, err)
	defer s.Close()
	defer s.rdb.Del(ctx, key)

	require.NoError(t, s.Save(ctx, NewSet("0xaaa", "0xbbb")))
	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaaa", "0xbbb"}, Sorted(loaded))
}

func TestRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url", "k")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, config.StorageConfig{Backend: config.BackendJSON, StateFile: filepath.Join(dir, "a.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, config.StorageConfig{Backend: config.BackendSQLite, StateFile: filepath.Join(dir, "a.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StorageConfig{Backend: "etcd"})
	assert.Error(t, err)
}
