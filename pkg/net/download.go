package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirMode = 0700

	schemeFile = "file"
)

var ErrorURLNotFound = errors.New("URL not found")

// StageURL joins a stage location and a file name.
func StageURL(stage, name string) string {
	return strings.TrimRight(stage, "/") + "/" + strings.TrimLeft(name, "/")
}

// Download copies the content at src into the file at dst, creating its
// directory as needed. src is either an http(s) URL fetched with client or a
// file:// URL copied from the local file system.
func Download(ctx context.Context, client *http.Client, src, dst string) (retErr error) {
	u, err := url.Parse(src)
	if err != nil {
		return fmt.Errorf("invalid source URL %s: %w", src, err)
	}

	body, err := open(ctx, client, u)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), dirMode); err != nil {
		return fmt.Errorf("error creating dir for %s: %w", dst, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("error creating file %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	if _, err = io.Copy(out, body); err != nil {
		return fmt.Errorf("error saving downloaded content to file: %w", err)
	}

	return nil
}

func open(ctx context.Context, client *http.Client, u *url.URL) (io.ReadCloser, error) {
	switch u.Scheme {
	case schemeFile:
		f, err := os.Open(filepath.FromSlash(u.Path))
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrorURLNotFound, u)
		}
		if err != nil {
			return nil, fmt.Errorf("error opening %s: %w", u, err)
		}
		return f, nil
	case "http", "https":
		return get(ctx, client, u.String())
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q: %s", u.Scheme, u)
	}
}

func get(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	if client == nil {
		client = GetHTTPClient()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}
	req.Header.Set("User-Agent", clientAgent)

	resp, err := client.Do(req) //nolint:gosec // stage URL comes from local config
	if err != nil {
		return nil, fmt.Errorf("error executing HTTP Get request: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrorURLNotFound, url)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	return resp.Body, nil
}
