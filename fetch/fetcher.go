// Package fetch retrieves raw scene files from where they are published and
// keeps a per-role copy of them on local disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/context/ctxhttp"
)

var ErrRetrieval = errors.New("retrieval failed")

// RetrievalError reports a source that could not be reached or that
// answered with something other than raster content.
type RetrievalError struct {
	Locator string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieving %s: %v", e.Locator, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func (e *RetrievalError) Is(target error) bool { return target == ErrRetrieval }

// Fetcher opens the raw bytes behind a locator. Callers close the reader.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (io.ReadCloser, error)
}

type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := ctxhttp.Get(ctx, client, locator)
	if err != nil {
		return nil, &RetrievalError{Locator: locator, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &RetrievalError{Locator: locator, Err: fmt.Errorf("unexpected HTTP status %s", resp.Status)}
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil && (strings.HasPrefix(mediaType, "text/") || mediaType == "application/json" || mediaType == "application/xml") {
			resp.Body.Close()
			return nil, &RetrievalError{Locator: locator, Err: fmt.Errorf("non-raster content type %s", mediaType)}
		}
	}
	return resp.Body, nil
}

// FileFetcher opens local paths and file:// URLs.
type FileFetcher struct{}

func (FileFetcher) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	path, ok := LocalPath(locator)
	if !ok {
		return nil, &RetrievalError{Locator: locator, Err: fmt.Errorf("not a local locator")}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &RetrievalError{Locator: locator, Err: err}
	}
	return f, nil
}

// SchemeFetcher dispatches on the locator URL scheme. Locators without a
// scheme are local paths.
type SchemeFetcher map[string]Fetcher

func NewDefaultFetcher(client *http.Client) SchemeFetcher {
	httpFetcher := &HTTPFetcher{Client: client}
	return SchemeFetcher{
		"http":  httpFetcher,
		"https": httpFetcher,
		"file":  FileFetcher{},
		"":      FileFetcher{},
	}
}

func (sf SchemeFetcher) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	scheme := ""
	if _, ok := LocalPath(locator); !ok {
		u, err := url.Parse(locator)
		if err != nil {
			return nil, &RetrievalError{Locator: locator, Err: err}
		}
		scheme = strings.ToLower(u.Scheme)
	}

	f, found := sf[scheme]
	if !found {
		return nil, &RetrievalError{Locator: locator, Err: fmt.Errorf("unsupported scheme %q", scheme)}
	}
	return f.Fetch(ctx, locator)
}

// LocalPath returns the filesystem path of a plain path or file:// URL.
func LocalPath(locator string) (string, bool) {
	if strings.HasPrefix(locator, "file://") {
		u, err := url.Parse(locator)
		if err != nil {
			return "", false
		}
		return u.Path, true
	}
	if strings.Contains(locator, "://") {
		return "", false
	}
	return locator, true
}
