// Package fetch abstracts retrieval of corpus resources. A corpus may live in
// a directory, inside a zip archive or behind an HTTP server; rendering code
// only sees relative paths.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Fetcher retrieves a resource by its path relative to the corpus root.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Error describes a failed fetch. Status carries the HTTP status code when
// the failure came from a response, zero otherwise.
type Error struct {
	Path   string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.Path, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports whether the error represents a missing resource rather
// than a transport or permission problem.
func NotFound(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	if fe.Status == http.StatusNotFound {
		return true
	}
	return os.IsNotExist(fe.Err)
}

// New selects a backend for the source specification: an http(s) URL, a path
// to a zip archive or a directory.
func New(source string, log *zap.Logger) (Fetcher, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewHTTP(source, nil, log)
	}
	fi, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("unable to access corpus source: %w", err)
	}
	if fi.Mode().IsRegular() {
		return NewArchive(source, log)
	}
	if fi.IsDir() {
		return NewDir(source, log), nil
	}
	return nil, fmt.Errorf("corpus source was not recognized (%s)", source)
}

// Cache memoizes successfully fetched JSON resources by path for the session
// lifetime. Failures are never cached. Non-JSON fetches pass through.
type Cache struct {
	src  Fetcher
	memo *cache.Cache
	log  *zap.Logger
}

func NewCache(src Fetcher, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		src:  src,
		memo: cache.New(cache.NoExpiration, 0),
		log:  log.Named("fetch"),
	}
}

func (c *Cache) Fetch(ctx context.Context, path string) ([]byte, error) {
	return c.src.Fetch(ctx, path)
}

// FetchJSON retrieves and decodes a JSON resource, remembering the raw bytes
// so the same path is never fetched twice.
func (c *Cache) FetchJSON(ctx context.Context, path string, v any) error {
	if cached, ok := c.memo.Get(path); ok {
		return decodeJSON(path, cached.([]byte), v)
	}
	data, err := c.src.Fetch(ctx, path)
	if err != nil {
		return err
	}
	if err := decodeJSON(path, data, v); err != nil {
		return err
	}
	c.memo.Set(path, data, cache.NoExpiration)
	c.log.Debug("Cached JSON resource", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

func decodeJSON(path string, data []byte, v any) error {
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unable to decode %s: %w", path, err)
	}
	return nil
}

