package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lzyats/im-antidelete/internal/antidelete"
)

func newMediaServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadAndRelease(t *testing.T) {
	srv := newMediaServer(t, "JPEGDATA")
	dir := t.TempDir()
	d, err := New(Options{Dir: dir}, nil)
	require.NoError(t, err)

	path, err := d.DownloadMedia(context.Background(), antidelete.KindImage, antidelete.Media{
		URL:      srv.URL + "/img",
		Mimetype: "image/jpeg",
	})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "image-"))
	assert.Equal(t, ".jpg", filepath.Ext(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "JPEGDATA", string(b))

	require.NoError(t, d.Release(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, d.Release(path), "releasing twice is fine")
}

func TestDownloadUsesBaseURLForDirectPath(t *testing.T) {
	srv := newMediaServer(t, "OGG")
	d, err := New(Options{Dir: t.TempDir(), BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, err)

	path, err := d.DownloadMedia(context.Background(), antidelete.KindAudio, antidelete.Media{
		DirectPath: "/v/t62/voice",
		Mimetype:   "audio/ogg; codecs=opus",
	})
	require.NoError(t, err)
	assert.Equal(t, ".ogg", filepath.Ext(path))
}

func TestDownloadErrors(t *testing.T) {
	srv := newMediaServer(t, strings.Repeat("x", 100))
	dir := t.TempDir()
	d, err := New(Options{Dir: dir, MaxBytes: 10}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = d.DownloadMedia(ctx, antidelete.KindVideo, antidelete.Media{})
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = d.DownloadMedia(ctx, antidelete.KindVideo, antidelete.Media{URL: srv.URL + "/v", FileLength: 1000})
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = d.DownloadMedia(ctx, antidelete.KindVideo, antidelete.Media{URL: srv.URL + "/v"})
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = d.DownloadMedia(ctx, antidelete.KindVideo, antidelete.Media{URL: srv.URL + "/missing"})
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed downloads leave no files behind")
}

func TestReleaseRefusesForeignPaths(t *testing.T) {
	d, err := New(Options{Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.Error(t, d.Release("/etc/passwd"))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", extension(antidelete.KindImage, "image/png"))
	assert.Equal(t, ".webp", extension(antidelete.KindSticker, ""))
	assert.Equal(t, ".mp4", extension(antidelete.KindVideo, "video/unknown"))
	assert.Equal(t, ".bin", extension(antidelete.KindOther, ""))
}

func TestDownloadRateLimitHonoursContext(t *testing.T) {
	srv := newMediaServer(t, "x")
	d, err := New(Options{Dir: t.TempDir(), RatePerSec: 0.001, Burst: 1}, nil)
	require.NoError(t, err)

	_, err = d.DownloadMedia(context.Background(), antidelete.KindImage, antidelete.Media{URL: srv.URL + "/a"})
	require.NoError(t, err, "burst admits the first download")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = d.DownloadMedia(ctx, antidelete.KindImage, antidelete.Media{URL: srv.URL + "/b"})
	assert.Error(t, err, "second download would wait far past the deadline")
}
