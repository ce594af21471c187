// Command gendem writes a synthetic hills-and-valleys DEM for exercising the
// workflow without real elevation data. The same flags always produce the
// same raster.
//
// Usage:
//
//	go run ./cmd/gendem -out data_processed/raster/dem_clipped.asc \
//	  [-rows 400 -cols 500 -cell-size 10 -seed 42]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/fire-risk-etl/internal/adapter/raster"
	"github.com/couchcryptid/fire-risk-etl/internal/domain"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("gendem failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("gendem", flag.ContinueOnError)
	out := fs.String("out", "", "output path ending in .asc or .asc.gz")
	rows := fs.Int("rows", 400, "grid rows")
	cols := fs.Int("cols", 500, "grid columns")
	cellSize := fs.Float64("cell-size", 10, "cell size in map units")
	seed := fs.Uint64("seed", 42, "noise seed")
	xll := fs.Float64("xll", 0, "x of the lower-left corner")
	yll := fs.Float64("yll", 0, "y of the lower-left corner")
	projection := fs.String("projection", "EPSG:2229", "CRS written to the .prj sidecar; empty for none")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir, name, compress, err := splitOutput(*out)
	if err != nil {
		fs.Usage()
		return err
	}

	ref := domain.Georef{XLL: *xll, YLL: *yll, CellSize: *cellSize, Projection: *projection}
	if err := ref.Validate(); err != nil {
		return err
	}

	opts := domain.DefaultSyntheticOptions()
	opts.Seed = *seed
	dem, err := domain.SyntheticElevation(*rows, *cols, opts)
	if err != nil {
		return fmt.Errorf("generate terrain: %w", err)
	}

	path, err := raster.NewStore(dir, compress).WriteGrid(name, dem, ref)
	if err != nil {
		return err
	}

	s := domain.Summarize(dem)
	slog.Info("synthetic DEM written",
		"path", path,
		"rows", *rows,
		"cols", *cols,
		"cell_size", *cellSize,
		"min", s.Min,
		"max", s.Max,
	)
	slog.Warn("this DEM is synthetic and only suitable for testing")
	return nil
}

// splitOutput turns dir/name.asc[.gz] into its store directory and raster name.
func splitOutput(out string) (dir, name string, compress bool, err error) {
	if out == "" {
		return "", "", false, errors.New("-out is required")
	}
	base := filepath.Base(out)
	compress = strings.HasSuffix(base, ".asc.gz")
	name = strings.TrimSuffix(strings.TrimSuffix(base, ".gz"), ".asc")
	if name == base || name == "" {
		return "", "", false, fmt.Errorf("-out %q must end in .asc or .asc.gz", out)
	}
	return filepath.Dir(out), name, compress, nil
}
