package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const lockRetryDelay = 250 * time.Millisecond

// Entry describes one cached band file.
type Entry struct {
	Role   string
	Path   string
	Cached bool
	Bytes  int64
}

// Cache stores each band role as <Dir>/<role>.<Ext>. A file that exists is
// considered fetched and is never retrieved again.
type Cache struct {
	Dir     string
	Ext     string
	Fetcher Fetcher
	logger  *zap.Logger
}

func NewCache(dir, ext string, fetcher Fetcher, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		Dir:     dir,
		Ext:     strings.TrimPrefix(ext, "."),
		Fetcher: fetcher,
		logger:  logger,
	}
}

func (c *Cache) Path(role string) string {
	return filepath.Join(c.Dir, role+"."+c.Ext)
}

// Get returns the cached file for role, retrieving locator first when the
// file is missing. Concurrent callers for the same role are serialised by
// a lock file next to the cached file.
func (c *Cache) Get(ctx context.Context, role, locator string) (*Entry, error) {
	if strings.ContainsAny(role, `/\`) || role == "" || role == "." || role == ".." {
		return nil, fmt.Errorf("invalid band role %q", role)
	}

	path := c.Path(role)
	if exists(path) {
		c.logger.Debug("cache hit", zap.String("role", role), zap.String("path", path))
		return &Entry{Role: role, Path: path, Cached: true}, nil
	}

	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", c.Dir, err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("locking cache entry %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("locking cache entry %s: lock not acquired", path)
	}
	defer lock.Unlock()

	// another process may have filled the entry while we waited
	if exists(path) {
		return &Entry{Role: role, Path: path, Cached: true}, nil
	}

	start := time.Now()
	n, err := c.download(ctx, path, locator)
	if err != nil {
		return nil, err
	}

	c.logger.Info("fetched band",
		zap.String("role", role),
		zap.String("locator", locator),
		zap.String("size", humanize.Bytes(uint64(n))),
		zap.Duration("duration", time.Since(start)),
	)
	return &Entry{Role: role, Path: path, Bytes: n}, nil
}

func (c *Cache) download(ctx context.Context, path, locator string) (int64, error) {
	rc, err := c.Fetcher.Fetch(ctx, locator)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(c.Dir, "."+filepath.Base(path)+"-*.part")
	if err != nil {
		return 0, fmt.Errorf("creating cache temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, rc)
	if err != nil {
		tmp.Close()
		return 0, &RetrievalError{Locator: locator, Err: err}
	}
	if n == 0 {
		tmp.Close()
		return 0, &RetrievalError{Locator: locator, Err: fmt.Errorf("empty response")}
	}
	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing cache temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("committing cache entry %s: %w", path, err)
	}
	committed = true
	return n, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
