package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores_RoundTrip(t *testing.T) {
	backends := []string{BackendFile, BackendBadger, BackendMemory}
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			s, err := Open(backend, t.TempDir())
			require.NoError(t, err)
			defer s.Close()
			ctx := context.Background()

			_, err = s.Get(ctx, "session/anonymous@api.opensubtitles.org")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "session/anonymous@api.opensubtitles.org", []byte(`{"token":"abc"}`), 0))
			got, err := s.Get(ctx, "session/anonymous@api.opensubtitles.org")
			require.NoError(t, err)
			assert.JSONEq(t, `{"token":"abc"}`, string(got))

			require.NoError(t, s.Set(ctx, "session/anonymous@api.opensubtitles.org", []byte(`{"token":"def"}`), time.Hour))
			got, err = s.Get(ctx, "session/anonymous@api.opensubtitles.org")
			require.NoError(t, err)
			assert.JSONEq(t, `{"token":"def"}`, string(got))

			require.NoError(t, s.Delete(ctx, "session/anonymous@api.opensubtitles.org"))
			_, err = s.Get(ctx, "session/anonymous@api.opensubtitles.org")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("redis", t.TempDir())
	assert.Error(t, err)
}

func TestFileStore_Expiry(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "lookup/abc", []byte("{}"), time.Hour))
	_, err = s.Get(ctx, "lookup/abc")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = s.Get(ctx, "lookup/abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_CorruptFile(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.path("session/x"), []byte("not json"), 0o600))
	_, err = s.Get(context.Background(), "session/x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFileStore_KeyIsSanitized(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	path := s.path("session/user@http://api.opensubtitles.org/xml-rpc")
	assert.Equal(t, s.Dir(), filepath.Dir(path))
	assert.Equal(t, "session_user@http___api.opensubtitles.org_xml-rpc.json", filepath.Base(path))
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	now = now.Add(2 * time.Minute)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
