// Package pagehost serves component HTML on a loopback port so a headless
// browser can render it.
package pagehost

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Host serves one directory over HTTP on 127.0.0.1.
type Host struct {
	listener net.Listener
	server   *http.Server
	dir      string
	entry    string
	owned    bool // dir is a temp dir removed on Stop
}

// Start writes content to a temp dir as filename and serves it.
func Start(content []byte, filename string) (*Host, error) {
	dir, err := os.MkdirTemp("", "visualgate-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, filename), content, 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	h, err := listen(dir, filename)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	h.owned = true
	return h, nil
}

// ServeFile serves the directory containing path, so relative stylesheets
// and images next to the page resolve.
func ServeFile(path string) (*Host, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return listen(filepath.Dir(abs), filepath.Base(abs))
}

func listen(dir, entry string) (*Host, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to find port: %w", err)
	}

	h := &Host{
		listener: listener,
		dir:      dir,
		entry:    entry,
		server: &http.Server{
			Handler:           http.FileServer(http.Dir(dir)),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	go func() {
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "pagehost: %v\n", err)
		}
	}()

	return h, nil
}

// URL returns the address of filename under the served directory.
func (h *Host) URL(filename string) string {
	return fmt.Sprintf("http://%s/%s", h.listener.Addr().String(), filepath.ToSlash(filename))
}

// EntryURL returns the address of the page the host was started for.
func (h *Host) EntryURL() string {
	return h.URL(h.entry)
}

// Stop shuts down the server and removes any temp dir it created.
func (h *Host) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = h.server.Shutdown(ctx)
	if h.owned {
		os.RemoveAll(h.dir)
	}
}
