package media

import (
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetch_DownloadsIntoTmpDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/posts/77_abc.jpg", r.URL.Path)
		_, _ = w.Write([]byte("imagedata"))
	}))
	t.Cleanup(srv.Close)

	tmp := t.TempDir()
	fetcher := NewFetcher(tmp)
	path, err := fetcher.Fetch(context.Background(), srv.URL+"/data/posts/77_abc.jpg", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "77_abc.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "imagedata", string(data))
}

func TestFetch_ReusesExistingPath(t *testing.T) {
	existing := filepath.Join(t.TempDir(), "upload.jpg")
	require.NoError(t, os.WriteFile(existing, []byte("tiny"), 0o644))

	fetcher := NewFetcher(t.TempDir())
	path, err := fetcher.Fetch(context.Background(), "http://unreachable.invalid/x.jpg", existing)
	require.NoError(t, err)
	require.Equal(t, existing, path)
}

func TestFetch_FailsOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	fetcher := NewFetcher(t.TempDir())
	_, err := fetcher.Fetch(context.Background(), srv.URL+"/gone.jpg", "")
	require.ErrorContains(t, err, "404")
}

func TestCleanup_IgnoresMissingFile(t *testing.T) {
	fetcher := NewFetcher(t.TempDir())
	path := filepath.Join(t.TempDir(), "gone.jpg")
	require.NoError(t, fetcher.Cleanup(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, fetcher.Cleanup(path))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestShrink_LeavesFilesUnderLimitAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.bin")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	require.NoError(t, Shrink(path, 1000))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "not an image", string(data))
}

func TestShrink_ScalesAndReencodesOversizedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, image.NewRGBA(image.Rect(0, 0, 3000, 1000))))
	require.NoError(t, file.Close())

	require.NoError(t, Shrink(path, 100))

	reopened, err := os.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	cfg, format, err := image.DecodeConfig(reopened)
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	require.Equal(t, 2048, cfg.Width)
	require.Equal(t, 682, cfg.Height)
}
