package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fetcher downloads provider-hosted attachments into a local directory so
// they survive the provider's short retention window and can be served
// back under our own URL.
type Fetcher struct {
	dir      string
	baseURL  string
	username string
	password string
	client   *http.Client
	logger   *slog.Logger
}

// New creates a fetcher writing into dir and mapping files to
// baseURL/media/<name>. username/password are the provider API credentials
// used to authenticate media downloads.
func New(dir, baseURL, username, password string, logger *slog.Logger) (*Fetcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Fetcher{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger.With("component", "media"),
	}, nil
}

// Dir returns the local storage directory, for mounting a file server.
func (f *Fetcher) Dir() string {
	return f.dir
}

// Fetch downloads remoteURL and returns the locally served URL.
func (f *Fetcher) Fetch(ctx context.Context, remoteURL, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", fmt.Errorf("build media request: %w", err)
	}
	if f.username != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download media: unexpected status %d", resp.StatusCode)
	}

	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}
	name := uuid.NewString() + extensionFor(contentType)
	path := filepath.Join(f.dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close media file: %w", err)
	}

	f.logger.Info("stored media attachment", "file", name, "content_type", contentType)
	return f.baseURL + "/media/" + name, nil
}

// Remove deletes a locally stored file previously returned by Fetch.
// URLs outside our media prefix are ignored.
func (f *Fetcher) Remove(localURL string) error {
	idx := strings.LastIndex(localURL, "/media/")
	if idx < 0 {
		return nil
	}
	name := filepath.Base(localURL[idx+len("/media/"):])
	if name == "" || name == "." {
		return nil
	}
	err := os.Remove(filepath.Join(f.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
