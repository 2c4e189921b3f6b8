// Package climate builds and memoizes per-scenario climate rasters clipped
// to a watershed batch.
//
// A cache entry is keyed by (watershed batch, scenario, data type) and lives
// at <batch>/climate_cache/<t|p>_<scenario>_clip.tif. Temperature rasters
// are averaged pixel-wise, precipitation rasters are summed, and the result
// is clipped to the watershed extent.
package climate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/batch"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/observability"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain"
)

// CacheDir is the cache directory inside a watershed batch.
const CacheDir = "climate_cache"

// DataType selects the climate variable.
type DataType string

const (
	Temperature   DataType = "t"
	Precipitation DataType = "p"
)

// String returns the variable name.
func (d DataType) String() string {
	switch d {
	case Temperature:
		return "temperature"
	case Precipitation:
		return "precipitation"
	default:
		return "unknown"
	}
}

func (d DataType) valid() bool {
	return d == Temperature || d == Precipitation
}

// ClipPath returns the cache entry path.
func ClipPath(wsBatch, scenario string, dt DataType) string {
	return filepath.Join(wsBatch, CacheDir, fmt.Sprintf("%s_%s_clip.tif", string(dt), scenario))
}

func combinedPath(wsBatch, scenario string, dt DataType) string {
	return filepath.Join(wsBatch, CacheDir, fmt.Sprintf("%s_%s_all.tif", string(dt), scenario))
}

// Cache is the climate cache manager.
type Cache struct {
	terrain    terrain.Service
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	invalidate bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithMetrics sets the metrics recorder used for hit/miss counts.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithInvalidateOnSourceChange makes Build treat an entry older than any of
// its source rasters as a miss.
func WithInvalidateOnSourceChange(enabled bool) Option {
	return func(c *Cache) { c.invalidate = enabled }
}

// New returns a Cache that builds entries with svc.
func New(svc terrain.Service, opts ...Option) *Cache {
	c := &Cache{terrain: svc, metrics: observability.NoopMetrics{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cache entry for (scenario, dt) if one exists.
func (c *Cache) Lookup(wsBatch, scenario string, dt DataType) (string, bool, error) {
	path := ClipPath(wsBatch, scenario, dt)
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return path, true, nil
	case os.IsNotExist(err):
		return "", false, nil
	default:
		return "", false, &errors.IOError{Op: "stat cache entry", Path: path, Err: err}
	}
}

// Build returns the cache entry for (scenario, dt), building it from the
// rasters in sourceDir when absent. extent is the raster the result is
// clipped to. The cache directory is locked for the duration.
func (c *Cache) Build(ctx context.Context, wsBatch, scenario string, dt DataType, sourceDir, extent string) (string, error) {
	if !dt.valid() {
		return "", fmt.Errorf("climate: unknown data type %q", dt)
	}

	dir := filepath.Join(wsBatch, CacheDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &errors.IOError{Op: "create cache dir", Path: dir, Err: err}
	}
	unlock, err := batch.Lock(dir)
	if err != nil {
		return "", err
	}
	defer unlock.Unlock()

	path, hit, err := c.Lookup(wsBatch, scenario, dt)
	if err != nil {
		return "", err
	}

	var sources []string
	if !hit || c.invalidate {
		if sources, err = rasters(sourceDir); err != nil {
			return "", err
		}
	}
	if hit && c.invalidate {
		stale, err := olderThanAny(path, sources)
		if err != nil {
			return "", err
		}
		if stale && c.logger != nil {
			c.logger.Info("climate cache entry is stale",
				slog.String("path", path),
				slog.String("source_dir", sourceDir),
			)
		}
		hit = !stale
	}

	c.metrics.RecordCacheLookup(ctx, dt.String(), hit)
	if hit {
		observability.LogCacheLookup(c.logger, scenario, dt.String(), true, path)
		return path, nil
	}
	path = ClipPath(wsBatch, scenario, dt)
	observability.LogCacheLookup(c.logger, scenario, dt.String(), false, path)

	combined := combinedPath(wsBatch, scenario, dt)
	if dt == Temperature {
		_, err = c.terrain.AverageRasters(ctx, sources, combined)
	} else {
		_, err = c.terrain.SumRasters(ctx, sources, combined)
	}
	if err != nil {
		return "", fmt.Errorf("combine %s rasters: %w", dt, err)
	}

	out, err := c.terrain.Clip(ctx, combined, extent, path)
	if err != nil {
		return "", fmt.Errorf("clip %s raster: %w", dt, err)
	}
	if filepath.Clean(out) != filepath.Clean(path) {
		return "", fmt.Errorf("clip %s raster: written to %s, cache entry is %s", dt, out, path)
	}
	return path, nil
}

// rasters lists the .tif files of dir in name order.
func rasters(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &errors.IOError{Op: "read climate dir", Path: dir, Err: err}
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".tif") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	if len(out) == 0 {
		return nil, &errors.DataError{Dataset: dir, Message: "no .tif rasters"}
	}
	sort.Strings(out)
	return out, nil
}

func olderThanAny(path string, sources []string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, &errors.IOError{Op: "stat cache entry", Path: path, Err: err}
	}
	built := info.ModTime()

	var newest time.Time
	for _, src := range sources {
		si, err := os.Stat(src)
		if err != nil {
			return false, &errors.IOError{Op: "stat source raster", Path: src, Err: err}
		}
		if si.ModTime().After(newest) {
			newest = si.ModTime()
		}
	}
	return newest.After(built), nil
}
