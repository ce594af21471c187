package raster

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/fire-risk-etl/internal/domain"
)

const (
	ext   = ".asc"
	gzExt = ".gz"
)

// Store reads rasters from any path and writes named rasters into one
// output directory.
type Store struct {
	dir      string
	compress bool
}

// NewStore returns a store writing under dir. With compress set, outputs are
// gzip-compressed and named <name>.asc.gz.
func NewStore(dir string, compress bool) *Store {
	return &Store{dir: dir, compress: compress}
}

// Path returns the file an output named name is written to.
func (s *Store) Path(name string) string {
	p := filepath.Join(s.dir, name+ext)
	if s.compress {
		p += gzExt
	}
	return p
}

// ReadGrid loads the raster at path. Missing files yield an error wrapping
// fs.ErrNotExist. A sibling .prj file, if present, fills Georef.Projection.
func (s *Store) ReadGrid(path string) (*domain.Grid, domain.Georef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.Georef{}, fmt.Errorf("open raster: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, gzExt) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, domain.Georef{}, fmt.Errorf("open gzip raster %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	g, h, err := Decode(r)
	if err != nil {
		return nil, domain.Georef{}, fmt.Errorf("decode %s: %w", path, err)
	}

	ref := h.Georef()
	prj, err := os.ReadFile(prjPath(path))
	switch {
	case err == nil:
		ref.Projection = strings.TrimSpace(string(prj))
	case !os.IsNotExist(err):
		return nil, domain.Georef{}, fmt.Errorf("read projection: %w", err)
	}
	return g, ref, nil
}

// ReadRiskGrid loads a raster of risk codes.
func (s *Store) ReadRiskGrid(path string) (*domain.RiskGrid, domain.Georef, error) {
	g, ref, err := s.ReadGrid(path)
	if err != nil {
		return nil, domain.Georef{}, err
	}
	risk, err := domain.RiskGridFromGrid(g)
	if err != nil {
		return nil, domain.Georef{}, fmt.Errorf("%s: %w", path, err)
	}
	return risk, ref, nil
}

// WriteGrid stores a floating-point layer and returns its path.
func (s *Store) WriteGrid(name string, g *domain.Grid, ref domain.Georef) (string, error) {
	return s.write(name, ref, func(w io.Writer) error {
		return Encode(w, g, ref, FloatNoData)
	})
}

// WriteRiskGrid stores a risk layer with NoData 0 and returns its path.
func (s *Store) WriteRiskGrid(name string, g *domain.RiskGrid, ref domain.Georef) (string, error) {
	return s.write(name, ref, func(w io.Writer) error {
		return EncodeRisk(w, g, ref)
	})
}

// write goes through a temp file so readers never see a partial raster.
func (s *Store) write(name string, ref domain.Georef, encode func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := s.Path(name)
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp raster: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encodeTo(tmp, s.compress, encode); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}

	if ref.Projection != "" {
		if err := os.WriteFile(prjPath(path), []byte(ref.Projection+"\n"), 0o644); err != nil {
			return "", fmt.Errorf("write projection: %w", err)
		}
	}
	return path, nil
}

func encodeTo(w io.Writer, compress bool, encode func(io.Writer) error) error {
	if !compress {
		return encode(w)
	}
	zw := gzip.NewWriter(w)
	if err := encode(zw); err != nil {
		return err
	}
	return zw.Close()
}

// prjPath maps dem.asc and dem.asc.gz to dem.prj.
func prjPath(path string) string {
	base := strings.TrimSuffix(path, gzExt)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".prj"
}
