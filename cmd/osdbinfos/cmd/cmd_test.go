package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	coreErrors "github.com/MeetLima/osdbinfos/pkg/core/errors"
	"github.com/MeetLima/osdbinfos/pkg/core/opensubtitles"
	"github.com/MeetLima/osdbinfos/pkg/core/session"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockService is a mock implementation of Service.
type MockService struct {
	mock.Mock
}

func (m *MockService) LookupFiles(ctx context.Context, paths []string) (map[string]*opensubtitles.MediaRecord, error) {
	args := m.Called(ctx, paths)
	var records map[string]*opensubtitles.MediaRecord
	if r := args.Get(0); r != nil {
		records = r.(map[string]*opensubtitles.MediaRecord)
	}
	return records, args.Error(1)
}

func (m *MockService) InsertHashes(ctx context.Context, records []opensubtitles.InsertHashRecord) (*opensubtitles.InsertAck, error) {
	args := m.Called(ctx, records)
	var ack *opensubtitles.InsertAck
	if r := args.Get(0); r != nil {
		ack = r.(*opensubtitles.InsertAck)
	}
	return ack, args.Error(1)
}

func (m *MockService) Session() session.Session {
	return m.Called().Get(0).(session.Session)
}

func (m *MockService) SessionValid() bool {
	return m.Called().Bool(0)
}

func (m *MockService) Close() error {
	return m.Called().Error(0)
}

// executeCommand runs the root command with svc standing in for the real service.
func executeCommand(t *testing.T, svc Service, args ...string) (string, string, error) {
	t.Helper()

	original := NewServiceFunc
	NewServiceFunc = func(logger *log.Logger) (Service, error) {
		require.NotNil(t, logger)
		return svc, nil
	}
	t.Cleanup(func() {
		NewServiceFunc = original
		lookupFormat, lookupGuess, lookupRecursive = "json", false, false
		insertIMDbID, insertFPS, insertRecursive = "", 0, false
	})

	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	RootCmd.SetOut(outBuf)
	RootCmd.SetErr(errBuf)
	RootCmd.SetArgs(args)
	defer RootCmd.SetArgs([]string{})

	err := RootCmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func matrixRecord() *opensubtitles.MediaRecord {
	return &opensubtitles.MediaRecord{
		MovieHash: "8e245d9679d31e12",
		Matched:   true,
		IMDbID:    "tt0133093",
		Kind:      opensubtitles.KindMovie,
		MovieName: "The Matrix",
		MovieYear: "1999",
	}
}

func TestLookupCommand_JSON(t *testing.T) {
	svc := new(MockService)
	svc.On("LookupFiles", mock.Anything, []string{"a.mkv", "b.mkv"}).Return(map[string]*opensubtitles.MediaRecord{
		"a.mkv": matrixRecord(),
		"b.mkv": nil,
	}, nil)
	svc.On("Close").Return(nil)

	out, _, err := executeCommand(t, svc, "lookup", "a.mkv", "b.mkv")
	require.NoError(t, err)

	var got map[string]*opensubtitles.MediaRecord
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, matrixRecord(), got["a.mkv"])
	assert.Contains(t, got, "b.mkv")
	assert.Nil(t, got["b.mkv"])
	svc.AssertExpectations(t)
}

func TestLookupCommand_Table(t *testing.T) {
	season, episode := 1, 2
	svc := new(MockService)
	svc.On("LookupFiles", mock.Anything, mock.Anything).Return(map[string]*opensubtitles.MediaRecord{
		"a.mkv": matrixRecord(),
		"b.mkv": {
			MovieHash:     "1111111111111111",
			Matched:       true,
			Kind:          opensubtitles.KindEpisode,
			SeriesTitle:   "Game of Thrones",
			EpisodeTitle:  "The Kingsroad",
			SeasonNumber:  &season,
			EpisodeNumber: &episode,
		},
		"c.mkv": {MovieHash: "2222222222222222"},
	}, nil)
	svc.On("Close").Return(nil)

	out, _, err := executeCommand(t, svc, "lookup", "--format", "table", "a.mkv", "b.mkv", "c.mkv")
	require.NoError(t, err)

	assert.Contains(t, out, "The Matrix")
	assert.Contains(t, out, "Game of Thrones - The Kingsroad")
	assert.Contains(t, out, "S01E02")
	assert.Contains(t, out, "(no match)")
}

func TestLookupCommand_Guess(t *testing.T) {
	svc := new(MockService)
	svc.On("LookupFiles", mock.Anything, mock.Anything).Return(map[string]*opensubtitles.MediaRecord{
		"a.mkv":                     matrixRecord(),
		"Some.Show.S02E03.720p.mkv": nil,
	}, nil)
	svc.On("Close").Return(nil)

	out, _, err := executeCommand(t, svc, "lookup", "--guess", "a.mkv", "Some.Show.S02E03.720p.mkv")
	require.NoError(t, err)

	var got map[string]lookupEntry
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Nil(t, got["a.mkv"].Guess, "matched files get no guess")
	require.NotNil(t, got["Some.Show.S02E03.720p.mkv"].Guess)
	assert.Equal(t, 2, got["Some.Show.S02E03.720p.mkv"].Guess.Season)
	assert.Equal(t, 3, got["Some.Show.S02E03.720p.mkv"].Guess.Episode)
}

func TestLookupCommand_Errors(t *testing.T) {
	svc := new(MockService)
	svc.On("LookupFiles", mock.Anything, mock.Anything).Return(nil, coreErrors.ErrServiceUnavailable)
	svc.On("Close").Return(nil)

	_, _, err := executeCommand(t, svc, "lookup", "a.mkv")
	assert.ErrorIs(t, err, coreErrors.ErrServiceUnavailable)

	usage, _, err := executeCommand(t, svc, "lookup")
	assert.ErrorContains(t, err, "at least one PATH is required")
	assert.Contains(t, usage, "Usage:")

	_, _, err = executeCommand(t, svc, "lookup", "--format", "xml", "a.mkv")
	assert.ErrorContains(t, err, "invalid --format")
}

func TestLookupCommand_ServiceError(t *testing.T) {
	original := NewServiceFunc
	defer func() { NewServiceFunc = original }()
	NewServiceFunc = func(*log.Logger) (Service, error) { return nil, errors.New("no state dir") }

	RootCmd.SetArgs([]string{"lookup", "a.mkv"})
	defer RootCmd.SetArgs([]string{})
	err := RootCmd.Execute()
	assert.ErrorContains(t, err, "no state dir")
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	data := make([]byte, 500000)
	for i := range data {
		data[i] = byte((i*7 + 3) % 251)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestInsertCommand(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mkv")

	svc := new(MockService)
	svc.On("InsertHashes", mock.Anything, []opensubtitles.InsertHashRecord{{
		IMDbID:        "tt0133093",
		MovieHash:     "4a5b788c9ab34a9e",
		MovieByteSize: 500000,
		MovieFilename: "movie.mkv",
	}}).Return(&opensubtitles.InsertAck{Accepted: []string{"4a5b788c9ab34a9e"}}, nil)
	svc.On("Close").Return(nil)

	out, _, err := executeCommand(t, svc, "insert", "--imdb", "tt0133093", video)
	require.NoError(t, err)
	assert.Contains(t, out, "4a5b788c9ab34a9e")
	svc.AssertExpectations(t)
}

func TestInsertCommand_IMDbFromNFO(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mkv")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.nfo"), []byte("imdb: tt0133093\n"), 0o644))

	svc := new(MockService)
	svc.On("InsertHashes", mock.Anything, mock.MatchedBy(func(records []opensubtitles.InsertHashRecord) bool {
		return len(records) == 1 && records[0].IMDbID == "tt0133093"
	})).Return(&opensubtitles.InsertAck{}, nil)
	svc.On("Close").Return(nil)

	_, _, err := executeCommand(t, svc, "insert", video)
	require.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestInsertCommand_FileTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.mkv")
	require.NoError(t, os.WriteFile(path, []byte("tiny"), 0o644))

	svc := new(MockService)
	_, _, err := executeCommand(t, svc, "insert", "--imdb", "tt0133093", path)
	assert.ErrorIs(t, err, coreErrors.ErrTooSmall)
	svc.AssertNotCalled(t, "InsertHashes", mock.Anything, mock.Anything)
}

func TestSessionCommand(t *testing.T) {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := new(MockService)
	svc.On("SessionValid").Return(true)
	svc.On("Session").Return(session.Session{Token: "tok", IssuedAt: issued})
	svc.On("Close").Return(nil)

	out, _, err := executeCommand(t, svc, "session")
	require.NoError(t, err)

	var got sessionStatus
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Valid)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, issued.Add(session.TokenLifetime).Equal(*got.ExpiresAt))
	assert.NotContains(t, out, "tok", "the token is never printed")
}

func TestSessionCommand_NoSession(t *testing.T) {
	svc := new(MockService)
	svc.On("SessionValid").Return(false)
	svc.On("Session").Return(session.Session{})
	svc.On("Close").Return(nil)

	out, _, err := executeCommand(t, svc, "session")
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid": false}`, out)
}

func TestLookupCommand_Directory(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mkv")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.srt"), []byte("1"), 0o644))

	svc := new(MockService)
	svc.On("LookupFiles", mock.Anything, []string{video}).Return(map[string]*opensubtitles.MediaRecord{video: nil}, nil)
	svc.On("Close").Return(nil)

	_, _, err := executeCommand(t, svc, "lookup", dir)
	require.NoError(t, err)
	svc.AssertExpectations(t)

	_, _, err = executeCommand(t, new(MockService), "lookup", t.TempDir())
	assert.ErrorContains(t, err, "no video files found")
}
