package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/band.TIF", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/tiff")
		w.Write([]byte("II*\x00raster"))
	})
	mux.HandleFunc("/error.TIF", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>access denied</html>"))
	})
	mux.HandleFunc("/slow.TIF", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	return httptest.NewServer(mux)
}

func TestHTTPFetcher(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()
	f := &HTTPFetcher{Client: ts.Client()}

	rc, err := f.Fetch(context.Background(), ts.URL+"/band.TIF")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	body, err := io.ReadAll(rc)
	rc.Close()
	if err != nil || string(body) != "II*\x00raster" {
		t.Errorf("body expecting raster bytes, actual %q (%v)", body, err)
	}

	for _, path := range []string{"/missing.TIF", "/error.TIF"} {
		_, err = f.Fetch(context.Background(), ts.URL+path)
		if !errors.Is(err, ErrRetrieval) {
			t.Errorf("%s expecting ErrRetrieval, actual %v", path, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, ts.URL+"/slow.TIF")
	if !errors.Is(err, ErrRetrieval) {
		t.Errorf("timed out fetch expecting ErrRetrieval, actual %v", err)
	}
}

func TestSchemeFetcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "band.tif")
	if err := os.WriteFile(path, []byte("local"), 0644); err != nil {
		t.Fatal(err)
	}

	f := NewDefaultFetcher(nil)
	for _, locator := range []string{path, "file://" + path} {
		rc, err := f.Fetch(context.Background(), locator)
		if err != nil {
			t.Errorf("%s: Fetch failed: %v", locator, err)
			continue
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if string(body) != "local" {
			t.Errorf("%s: body expecting local, actual %q", locator, body)
		}
	}

	_, err := f.Fetch(context.Background(), "s3://landsat-pds/c1/L8/band.TIF")
	if !errors.Is(err, ErrRetrieval) {
		t.Errorf("unsupported scheme expecting ErrRetrieval, actual %v", err)
	}
	_, err = f.Fetch(context.Background(), filepath.Join(dir, "missing.tif"))
	if !errors.Is(err, ErrRetrieval) {
		t.Errorf("missing file expecting ErrRetrieval, actual %v", err)
	}
}

func TestLocalPath(t *testing.T) {
	cases := map[string]string{
		"data/red.tif":           "data/red.tif",
		"/scenes/red.tif":        "/scenes/red.tif",
		"file:///scenes/red.tif": "/scenes/red.tif",
	}
	for locator, expected := range cases {
		path, ok := LocalPath(locator)
		if !ok || path != expected {
			t.Errorf("%s expecting (%s, true), actual (%s, %v)", locator, expected, path, ok)
		}
	}
	if _, ok := LocalPath("https://landsat-pds.s3.amazonaws.com/red.TIF"); ok {
		t.Errorf("https locator expecting remote")
	}
}
