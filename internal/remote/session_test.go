package remote

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/coachboard/internal/model"
)

func TestFileSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	fs := FileSessions{Path: path}

	got, err := fs.Load()
	require.NoError(t, err)
	require.Nil(t, got)

	s := model.Session{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second)}
	require.NoError(t, fs.Save(s))

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}

	got, err = fs.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "tok", got.AccessToken)
	require.True(t, s.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, fs.Clear())
	require.NoError(t, fs.Clear())
	got, err = fs.Load()
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFileSessions_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := FileSessions{Path: path}.Load()
	require.Error(t, err)
}

func TestMemorySessions_ReturnsCopy(t *testing.T) {
	var ms MemorySessions
	require.NoError(t, ms.Save(model.Session{AccessToken: "a"}))
	got, err := ms.Load()
	require.NoError(t, err)
	got.AccessToken = "b"
	again, _ := ms.Load()
	require.Equal(t, "a", again.AccessToken)
	require.NoError(t, ms.Clear())
	again, _ = ms.Load()
	require.Nil(t, again)
}
