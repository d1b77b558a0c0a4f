package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/go-cflow/internal/config"
	"github.com/l3aro/go-cflow/internal/log"
	"github.com/l3aro/go-cflow/pkg/cache"
	"github.com/l3aro/go-cflow/pkg/cfg"
	"github.com/l3aro/go-cflow/pkg/cparse"
	"github.com/l3aro/go-cflow/pkg/report"
)

// ErrUnitsFailed is returned after the report is written when at least one
// unit of the file could not be lowered.
var ErrUnitsFailed = errors.New("one or more units failed to lower")

// ErrNoSuchFunction is returned when --func names no function of the file.
var ErrNoSuchFunction = errors.New("no such function")

// forestVersion salts cache keys; bump it when the forest encoding changes.
const forestVersion = "forest/v1"

// analyzer parses and lowers files, serving repeated sources from the cache.
type analyzer struct {
	conf   *config.Config
	logger log.Logger
	cache  *cache.ForestCache

	// function restricts reports to one function unit when set.
	function string
}

func newAnalyzer(conf *config.Config, logger log.Logger) (*analyzer, error) {
	c, err := cache.New(cache.Options{
		MaxEntries: conf.CacheSize,
		Dir:        conf.CacheDir,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return &analyzer{conf: conf, logger: logger, cache: c}, nil
}

// forest returns the lowered forest of a C file. Lowering failures are kept
// in the forest; only I/O and parser failures are returned as errors.
func (a *analyzer) forest(ctx context.Context, path string) (*cfg.Forest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	key := cache.Key(src, forestVersion)
	if forest, err := a.cache.Get(key); err == nil {
		return a.selectFunction(path, forest)
	}

	tu, err := cparse.Parse(ctx, src, cparse.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	forest := cfg.Build(tu, cfg.WithWorkers(a.conf.Workers))
	a.logger.Debug("built forest", "file", path, "units", len(forest.Units), "failed", len(forest.Failed()))

	if err := a.cache.Put(key, forest); err != nil {
		a.logger.Warn("caching forest", "file", path, "error", err)
	}
	return a.selectFunction(path, forest)
}

// selectFunction narrows forest to the function named by a.function. The
// cached forest is left untouched.
func (a *analyzer) selectFunction(path string, forest *cfg.Forest) (*cfg.Forest, error) {
	if a.function == "" {
		return forest, nil
	}
	if u := forest.Function(a.function); u != nil {
		return &cfg.Forest{Units: []*cfg.Unit{u}}, nil
	}
	var names []string
	for _, u := range forest.Functions() {
		names = append(names, u.Name)
	}
	return nil, fmt.Errorf("%s: %w %q (functions: %s)", path, ErrNoSuchFunction, a.function, strings.Join(names, ", "))
}

// writeReport writes the report of one file in the given format.
func (a *analyzer) writeReport(ctx context.Context, w io.Writer, path string, format config.Format, opts report.Options) error {
	forest, err := a.forest(ctx, path)
	if err != nil {
		return err
	}

	switch format {
	case config.FormatText:
		err = report.WriteText(w, forest, opts)
	case config.FormatJSON:
		err = report.WriteJSON(w, report.NewDocument(path, forest))
	case config.FormatMsgpack:
		err = report.WriteMsgpack(w, report.NewDocument(path, forest))
	case config.FormatDOT:
		err = report.WriteDOT(w, baseName(path), forest)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return a.failures(path, forest)
}

// writePaths writes only the def-use paths of one file.
func (a *analyzer) writePaths(ctx context.Context, w io.Writer, path, variable string) error {
	forest, err := a.forest(ctx, path)
	if err != nil {
		return err
	}
	if err := report.WritePaths(w, forest, variable); err != nil {
		return fmt.Errorf("writing paths: %w", err)
	}
	return a.failures(path, forest)
}

// writeDOT writes <outDir>/<file>.dot and returns its path.
func (a *analyzer) writeDOT(ctx context.Context, path, outDir string) (string, error) {
	forest, err := a.forest(ctx, path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", outDir, err)
	}

	name := baseName(path)
	out := filepath.Join(outDir, name+".dot")
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", out, err)
	}
	if err := report.WriteDOT(f, name, forest); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", out, err)
	}
	return out, a.failures(path, forest)
}

// clearCache removes the cached forests of paths, or the whole cache when
// paths is empty, and returns how many entries were dropped.
func (a *analyzer) clearCache(paths []string) (int, error) {
	if len(paths) == 0 {
		return a.cache.Clear()
	}
	for i, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return i, fmt.Errorf("reading file %s: %w", path, err)
		}
		if err := a.cache.Delete(cache.Key(src, forestVersion)); err != nil {
			return i, err
		}
	}
	return len(paths), nil
}

// failures logs every failed unit and reports whether there were any.
func (a *analyzer) failures(path string, forest *cfg.Forest) error {
	failed := forest.Failed()
	for _, u := range failed {
		name := u.Name
		if name == "" {
			name = string(u.Kind)
		}
		a.logger.Warn("unit failed to lower", "file", path, "unit", name, "line", u.Line, "error", u.Error)
	}
	stats := a.cache.Stats()
	a.logger.Debug("cache stats", "entries", stats.Entries, "hits", stats.Hits, "disk_hits", stats.DiskHits, "misses", stats.Misses)

	if len(failed) > 0 {
		return fmt.Errorf("%s: %d of %d units: %w", path, len(failed), len(forest.Units), ErrUnitsFailed)
	}
	return nil
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
