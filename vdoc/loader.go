package vdoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader resolves a document URL to a decoded document. Load may be called
// from any goroutine.
type Loader interface {
	Load(ctx context.Context, url string) (*Document, error)
}

// FetchFunc returns the raw bytes for a document URL.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// FileFetcher reads documents from the file system. Relative URLs are
// resolved against root.
func FileFetcher(root string) FetchFunc {
	return func(_ context.Context, url string) ([]byte, error) {
		path := strings.TrimPrefix(url, "file://")
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, filepath.FromSlash(path))
		}
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		return data, err
	}
}

// HTTPFetcher fetches documents over HTTP. A nil client uses
// http.DefaultClient.
func HTTPFetcher(client *http.Client) FetchFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, url string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("vdoc: fetch %s: %s", url, resp.Status)
		}
		return io.ReadAll(resp.Body)
	}
}

// SchemeFetcher dispatches http(s) URLs to web and everything else to file.
func SchemeFetcher(web, file FetchFunc) FetchFunc {
	return func(ctx context.Context, url string) ([]byte, error) {
		if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
			return web(ctx, url)
		}
		return file(ctx, url)
	}
}

// CachingLoader decodes fetched documents and keeps them for its lifetime.
// Concurrent loads of the same URL share one fetch.
type CachingLoader struct {
	fetch FetchFunc
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]*Document
}

// NewCachingLoader creates a loader over fetch.
func NewCachingLoader(fetch FetchFunc) *CachingLoader {
	return &CachingLoader{fetch: fetch, cache: make(map[string]*Document)}
}

// Load returns the cached document for url, fetching and decoding it once.
func (l *CachingLoader) Load(ctx context.Context, url string) (*Document, error) {
	l.mu.Lock()
	doc, ok := l.cache[url]
	l.mu.Unlock()
	if ok {
		return doc, nil
	}

	v, err, _ := l.group.Do(url, func() (any, error) {
		data, err := l.fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		doc, err := Decode(bytes.NewReader(data), url)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[url] = doc
		l.mu.Unlock()
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

// Forget drops url from the cache so the next Load fetches it again.
func (l *CachingLoader) Forget(url string) {
	l.mu.Lock()
	delete(l.cache, url)
	l.mu.Unlock()
	l.group.Forget(url)
}

// MapLoader serves documents from memory, keyed by URL.
type MapLoader map[string]*Document

// Load implements Loader.
func (m MapLoader) Load(_ context.Context, url string) (*Document, error) {
	if doc, ok := m[url]; ok {
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
}
