// Package fetch retrieves remote documents (countdown config, themes, ICS
// holiday feeds) with HTTP caching (ETag / Last-Modified) and a disk-backed
// copy of the last good body, so a flaky network degrades to stale data
// instead of no data.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "countdown/internal/log"
)

// maxBodyBytes bounds a single document; config and ICS files are small.
const maxBodyBytes = 8 << 20

// maxParallel bounds concurrent fetches in FetchAll.
const maxParallel = 4

// Source is a single document to fetch.
type Source struct {
	// ID is an internal identifier used for logging.
	ID string
	// URL is http(s)://, file://, or a bare filesystem path.
	URL string
}

// Result is the outcome of fetching one source.
type Result struct {
	Source    Source
	Body      []byte
	FromCache bool // true if the cached body was reused (304 or fallback)
}

// cacheEntry holds HTTP cache metadata for a single URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher fetches sources with conditional requests and a disk cache.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// New creates a Fetcher caching under cacheDir. An empty cacheDir falls
// back to a relative directory so development runs need no root.
func New(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
	}
}

// WithClient swaps the HTTP client (tests, custom transports).
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// FetchAll fetches every source concurrently, keeping source order. Failures are logged and returned; the
// results slice only holds sources that produced a body.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]Result, []error) {
	fetched := make([]Result, len(sources))
	failed := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, src := range sources {
		g.Go(func() error {
			res, err := f.Fetch(ctx, src)
			if err != nil {
				failed[i] = err
				appLog.Error("fetch failed", err, "id", src.ID, "url", RedactURL(src.URL))
				return nil
			}
			fetched[i] = res
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, 0, len(sources))
	errs := make([]error, 0)
	for i := range sources {
		if failed[i] != nil {
			errs = append(errs, failed[i])
			continue
		}
		results = append(results, fetched[i])
	}
	return results, errs
}

// Fetch retrieves a single source. Local sources are read directly; HTTP
// sources honor ETag/Last-Modified and fall back to the cached body on
// network errors and non-OK statuses.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Result, error) {
	if src.URL == "" {
		return Result{}, errors.New("fetch: source URL is empty")
	}

	if path, ok := localPath(src.URL); ok {
		body, err := os.ReadFile(path)
		if err != nil {
			return Result{}, fmt.Errorf("fetch: read %s: %w", path, err)
		}
		return Result{Source: src, Body: body}, nil
	}

	cachePath, err := f.cachePathForURL(src.URL)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return Result{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return Result{}, err
	}
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("fetch start", "id", src.ID, "url", RedactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Warn("fetch network error, using cached body", "id", src.ID, "url", RedactURL(src.URL), "err", err)
			return Result{Source: src, Body: cachedBody, FromCache: true}, nil
		}
		return Result{}, fmt.Errorf("fetch: %s: %w", src.ID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return Result{}, readErr
		}

		newMeta := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("fetch cache save failed", err, "id", src.ID, "url", RedactURL(src.URL))
		}

		appLog.Info("fetch success", "id", src.ID, "url", RedactURL(src.URL), "bytes", len(body))
		return Result{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return Result{}, errors.New("fetch: received 304 Not Modified but no cached body available")
		}
		appLog.Debug("fetch not modified; using cache", "id", src.ID, "url", RedactURL(src.URL))
		return Result{Source: src, Body: cachedBody, FromCache: true}, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Warn("fetch non-OK, using cached body", "id", src.ID, "url", RedactURL(src.URL), "status", resp.StatusCode)
			return Result{Source: src, Body: cachedBody, FromCache: true}, nil
		}
		return Result{}, fmt.Errorf("fetch: %s: %s", src.ID, resp.Status)
	}
}

// localPath reports whether raw names a local file and returns its path.
func localPath(raw string) (string, bool) {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return "", false
	}
	if strings.HasPrefix(raw, "file://") {
		u, err := url.Parse(raw)
		if err != nil {
			return strings.TrimPrefix(raw, "file://"), true
		}
		return u.Path, true
	}
	return raw, true
}

func (f *Fetcher) cachePathForURL(u string) (string, error) {
	if u == "" {
		return "", errors.New("fetch: empty url")
	}
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8])), nil
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// RedactURL keeps scheme and host and hides path and query, which often
// carry private calendar tokens.
func RedactURL(raw string) string {
	const redactedSuffix = "/...(redacted)"

	if _, ok := localPath(raw); ok {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "url://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + redactedSuffix
}
