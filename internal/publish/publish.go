package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/tasks"
)

// Publisher uploads result files of one run.
type Publisher struct {
	Store  Store
	Target config.Publish
}

// New returns a Publisher for cfg's publish target, or nil when publishing is
// not configured.
func New(cfg config.RunConfig) (*Publisher, error) {
	p := cfg.Publish()
	if p == nil {
		return nil, nil
	}
	store, err := NewMinioStore(*p)
	if err != nil {
		return nil, err
	}
	return &Publisher{Store: store, Target: *p}, nil
}

// Results lists the files a finished run publishes: the mapping summary,
// count tables, differential expression tables and the manifest. Missing
// files are left out.
func Results(cfg config.RunConfig) ([]string, error) {
	patterns := []string{
		cfg.MapSummaryPath(),
		cfg.ManifestPath(),
		cfg.UpdatedGFF(),
		filepath.Join(cfg.FeatureCountDir(), "*.tsv"),
		filepath.Join(cfg.DGEDir(tasks.MethodEdgeR), "*.tsv"),
		filepath.Join(cfg.DGEDir(tasks.MethodDESeq2), "*.tsv"),
		filepath.Join(cfg.DGEDir(tasks.MethodBallgown), "*.tsv"),
	}
	var out []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(pat)
		if err != nil {
			return nil, fmt.Errorf("bad result pattern %q: %w", pat, err)
		}
		for _, m := range matches {
			if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Key returns the object key of file for runID.
func (p *Publisher) Key(workdir, runID, file string) (string, error) {
	rel, err := filepath.Rel(workdir, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside the work directory", file)
	}
	return path.Join(p.Target.Prefix, runID, filepath.ToSlash(rel)), nil
}

// Publish ensures the bucket exists and uploads every result of cfg.
// It returns the uploaded keys.
func (p *Publisher) Publish(ctx context.Context, cfg config.RunConfig, runID string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := Results(cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Store.EnsureBucket(ctx, p.Target.Bucket, p.Target.Region); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket %s: %w", p.Target.Bucket, err)
	}

	var keys []string
	for _, f := range files {
		key, err := p.Key(cfg.Workdir(), runID, f)
		if err != nil {
			return keys, err
		}
		if err := p.Store.PutFile(ctx, p.Target.Bucket, key, f, contentType(f)); err != nil {
			return keys, fmt.Errorf("failed to upload %s: %w", f, err)
		}
		logger.Debug("Uploaded result.", "bucket", p.Target.Bucket, "key", key)
		keys = append(keys, key)
	}
	logger.Info("✅ Results published.", "bucket", p.Target.Bucket, "objects", len(keys))
	return keys, nil
}

func contentType(file string) string {
	switch filepath.Ext(file) {
	case ".tsv":
		return "text/tab-separated-values"
	case ".yaml":
		return "application/yaml"
	}
	return "text/plain"
}
