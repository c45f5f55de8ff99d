package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lzyats/im-antidelete/internal/antidelete"
	"github.com/lzyats/im-antidelete/internal/metrics"
)

var (
	ErrTooLarge = errors.New("media: file exceeds size limit")
	ErrNoSource = errors.New("media: no url or direct path")
)

var extByMime = map[string]string{
	"image/jpeg":               ".jpg",
	"image/png":                ".png",
	"image/webp":               ".webp",
	"image/gif":                ".gif",
	"video/mp4":                ".mp4",
	"video/3gpp":               ".3gp",
	"audio/ogg":                ".ogg",
	"audio/ogg; codecs=opus":   ".ogg",
	"audio/mpeg":               ".mp3",
	"audio/mp4":                ".m4a",
	"audio/aac":                ".aac",
	"application/octet-stream": ".bin",
}

var extByKind = map[antidelete.Kind]string{
	antidelete.KindImage:   ".jpg",
	antidelete.KindVideo:   ".mp4",
	antidelete.KindAudio:   ".ogg",
	antidelete.KindSticker: ".webp",
}

type Options struct {
	Dir      string
	BaseURL  string // joined with a media direct path when no full url is known
	MaxBytes int64  // <= 0 means unlimited
	Timeout  time.Duration

	// RatePerSec caps download starts per second; <= 0 disables the cap.
	RatePerSec float64
	Burst      int
}

// Downloader fetches media over HTTP into Dir. Files are named
// "<kind>-<uuid><ext>" and removed again by Release.
type Downloader struct {
	Client *http.Client
	opt    Options
	log    *zap.Logger
	lim    *rate.Limiter
}

func New(opt Options, log *zap.Logger) (*Downloader, error) {
	if opt.Dir == "" {
		opt.Dir = os.TempDir()
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 20 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(opt.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("media: create dir: %w", err)
	}
	d := &Downloader{Client: &http.Client{Timeout: opt.Timeout}, opt: opt, log: log}
	if opt.RatePerSec > 0 {
		if opt.Burst <= 0 {
			opt.Burst = 1
		}
		d.lim = rate.NewLimiter(rate.Limit(opt.RatePerSec), opt.Burst)
	}
	return d, nil
}

func (d *Downloader) source(m antidelete.Media) (string, error) {
	if m.URL != "" {
		return m.URL, nil
	}
	if m.DirectPath != "" && d.opt.BaseURL != "" {
		return strings.TrimRight(d.opt.BaseURL, "/") + "/" + strings.TrimLeft(m.DirectPath, "/"), nil
	}
	return "", ErrNoSource
}

func extension(kind antidelete.Kind, mimetype string) string {
	if ext, ok := extByMime[strings.ToLower(strings.TrimSpace(mimetype))]; ok {
		return ext
	}
	if base, _, ok := strings.Cut(mimetype, ";"); ok {
		if ext, ok := extByMime[strings.ToLower(strings.TrimSpace(base))]; ok {
			return ext
		}
	}
	if ext, ok := extByKind[kind]; ok {
		return ext
	}
	return ".bin"
}

// DownloadMedia saves the media to a new local file and returns its path.
func (d *Downloader) DownloadMedia(ctx context.Context, kind antidelete.Kind, m antidelete.Media) (string, error) {
	src, err := d.source(m)
	if err != nil {
		return "", err
	}
	if d.opt.MaxBytes > 0 && m.FileLength > uint64(d.opt.MaxBytes) {
		return "", fmt.Errorf("%w: %s > %s", ErrTooLarge, humanize.Bytes(m.FileLength), humanize.Bytes(uint64(d.opt.MaxBytes)))
	}
	if d.lim != nil {
		if err := d.lim.Wait(ctx); err != nil {
			return "", fmt.Errorf("media: rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("media: fetch status=%d", resp.StatusCode)
	}

	name := fmt.Sprintf("%s-%s%s", kind, uuid.NewString(), extension(kind, m.Mimetype))
	path := filepath.Join(d.opt.Dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", err
	}

	var body io.Reader = resp.Body
	if d.opt.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, d.opt.MaxBytes+1)
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && d.opt.MaxBytes > 0 && n > d.opt.MaxBytes {
		err = fmt.Errorf("%w: more than %s", ErrTooLarge, humanize.Bytes(uint64(d.opt.MaxBytes)))
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}

	metrics.MediaDownloaded.Inc()
	metrics.MediaBytes.Add(float64(n))
	d.log.Debug("media downloaded",
		zap.String("kind", string(kind)),
		zap.String("file", path),
		zap.String("size", humanize.Bytes(uint64(n))),
	)
	return path, nil
}

// Release removes a file previously returned by DownloadMedia. Paths outside
// the download directory are refused.
func (d *Downloader) Release(localPath string) error {
	rel, err := filepath.Rel(d.opt.Dir, localPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("media: refusing to remove %q outside %q", localPath, d.opt.Dir)
	}
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
