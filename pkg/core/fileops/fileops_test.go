package fileops

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestHashFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	big := writeFile(t, "big.mkv", patternBytes(500000))
	same := writeFile(t, "copy.mkv", patternBytes(500000))
	small := writeFile(t, "small.mkv", make([]byte, 1000))
	missing := filepath.Join(t.TempDir(), "missing.mkv")

	got := HashFiles(context.Background(), []string{big, small, missing, same}, 2, quietLogger())

	assert.Len(t, got, 2)
	assert.Equal(t, "4a5b788c9ab34a9e", got[big].String())
	assert.Equal(t, got[big], got[same])
	assert.NotContains(t, got, small)
	assert.NotContains(t, got, missing)
}

func TestHashFiles_OrderIndependent(t *testing.T) {
	paths := []string{
		writeFile(t, "a.mkv", patternBytes(MinFileSize)),
		writeFile(t, "b.mkv", patternBytes(300000)),
		writeFile(t, "c.mkv", patternBytes(500000)),
	}
	reversed := []string{paths[2], paths[1], paths[0]}

	assert.Equal(t,
		HashFiles(context.Background(), paths, 1, quietLogger()),
		HashFiles(context.Background(), reversed, 3, quietLogger()),
	)
}

func TestHashFiles_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := HashFiles(ctx, []string{writeFile(t, "a.mkv", patternBytes(MinFileSize))}, 0, nil)
	assert.Empty(t, got)
}

func TestNFOPath(t *testing.T) {
	assert.Equal(t, filepath.Join("movies", "The.Matrix.1999.nfo"), NFOPath(filepath.Join("movies", "The.Matrix.1999.mkv")))
}

func TestReadNFO(t *testing.T) {
	path := writeFile(t, "movie.nfo", []byte("Title: The Matrix\nIMDb: https://www.imdb.com/title/tt0133093/\nOther: tt7654321\n"))
	id, err := ReadNFO(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "tt0133093", id)

	path = writeFile(t, "empty.nfo", []byte("no ids in here\n"))
	id, err = ReadNFO(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, id)

	_, err = ReadNFO(context.Background(), filepath.Join(t.TempDir(), "missing.nfo"))
	assert.True(t, os.IsNotExist(err))
}
