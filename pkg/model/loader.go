package model

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/mchmarny/riskview/pkg/metrics"
	"github.com/mchmarny/riskview/pkg/net"
)

const dirMode = 0700

// Loader fetches the model artifact from its stage into a scratch directory
// and decodes it. Every Load fetches again unless caching is enabled.
type Loader struct {
	client     *http.Client
	stage      string
	name       string
	scratchDir string
	cache      bool

	mu     sync.Mutex
	cached *Artifact
}

type LoaderOption func(*Loader)

// WithCache keeps the first successfully loaded artifact for the life of the loader.
func WithCache(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.cache = enabled
	}
}

// WithHTTPClient sets the client used for http(s) stages.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		l.client = c
	}
}

func NewLoader(stage, name, scratchDir string, opts ...LoaderOption) *Loader {
	l := &Loader{
		stage:      stage,
		name:       name,
		scratchDir: scratchDir,
	}
	for _, o := range opts {
		o(l)
	}
	if l.client == nil {
		l.client = net.GetHTTPClient()
	}
	return l
}

// URL returns the stage location of the artifact.
func (l *Loader) URL() string {
	return net.StageURL(l.stage, l.name)
}

// Load returns the decoded artifact.
func (l *Loader) Load(ctx context.Context) (*Artifact, error) {
	if l.cache {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.cached != nil {
			metrics.ArtifactFetches.WithLabelValues("cache").Inc()
			return l.cached, nil
		}
	}

	a, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if l.cache {
		l.cached = a
	}
	return a, nil
}

func (l *Loader) fetch(ctx context.Context) (*Artifact, error) {
	if err := os.MkdirAll(l.scratchDir, dirMode); err != nil {
		return nil, fmt.Errorf("error creating scratch dir %s: %w", l.scratchDir, err)
	}

	// one directory per fetch so concurrent renders never share a file
	dir, err := os.MkdirTemp(l.scratchDir, "fetch-")
	if err != nil {
		return nil, fmt.Errorf("error creating fetch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := l.URL()
	dst := filepath.Join(dir, filepath.Base(l.name))

	slog.Debug("fetching model artifact", "url", src, "path", dst)
	metrics.ArtifactFetches.WithLabelValues("stage").Inc()

	if err := net.Download(ctx, l.client, src, dst); err != nil {
		return nil, fmt.Errorf("error fetching model artifact %s: %w", src, err)
	}

	a, err := ReadFile(dst)
	if err != nil {
		return nil, fmt.Errorf("error loading model artifact %s: %w", src, err)
	}

	slog.Debug("model artifact loaded", "algorithm", a.Algorithm, "features", len(a.FeatureImportances))
	return a, nil
}
