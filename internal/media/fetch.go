package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Reverse search rejects uploads above ~2MB, so anything larger gets shrunk
// after download.
const maxFileBytes = 2000000

// Fetcher downloads post media into a temp directory.
type Fetcher struct {
	tmpDir string
}

func NewFetcher(tmpDir string) *Fetcher {
	return &Fetcher{tmpDir: tmpDir}
}

// Fetch makes the post's media available as a local file and returns its
// path. A non-empty existing path skips the download but still goes through
// the size cap.
func (f *Fetcher) Fetch(ctx context.Context, contentURL string, existing string) (string, error) {
	target := existing
	if target == "" {
		var err error
		target, err = f.download(ctx, contentURL)
		if err != nil {
			return "", err
		}
	}
	if err := Shrink(target, maxFileBytes); err != nil {
		return "", fmt.Errorf("shrink %s: %w", target, err)
	}
	return target, nil
}

func (f *Fetcher) download(ctx context.Context, contentURL string) (string, error) {
	if err := os.MkdirAll(f.tmpDir, 0o755); err != nil {
		return "", err
	}
	name, err := fileNameFromURL(contentURL)
	if err != nil {
		return "", err
	}
	target := filepath.Join(f.tmpDir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("download media failed: %s: %s", contentURL, resp.Status)
	}
	out, err := os.Create(target)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	logutil.GetLogger(ctx).Debug("media downloaded",
		zap.String("url", contentURL), zap.String("file", target))
	return target, nil
}

// Cleanup removes a downloaded temp file. A file already gone is fine.
func (f *Fetcher) Cleanup(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func fileNameFromURL(contentURL string) (string, error) {
	parsed, err := url.Parse(contentURL)
	if err != nil {
		return "", fmt.Errorf("parse content url: %w", err)
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("content url has no file name: %s", contentURL)
	}
	return name, nil
}
