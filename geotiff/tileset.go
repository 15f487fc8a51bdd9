package geotiff

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/twpayne/go-peaks"
	"github.com/twpayne/go-peaks/georef"
)

var (
	missingTileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geotiff_missing_tile_cache_hits_total",
		Help: "The total number of hits on the missing tile cache",
	})
	missingTileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geotiff_missing_tile_cache_misses_total",
		Help: "The total number of misses on the missing tile cache",
	})
	fileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geotiff_file_cache_hits_total",
		Help: "The total number of hits on the open file cache",
	})
	fileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geotiff_file_cache_misses_total",
		Help: "The total number of misses on the open file cache",
	})
	fileCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geotiff_file_cache_evictions_total",
		Help: "The total number of evictions from the open file cache",
	})
)

// A TileCoord is the coordinate of a file in a tiled dataset.
type TileCoord struct {
	C int
	R int
}

// A TileCoordFunc returns the coordinate of the tile containing the world
// coordinates (x, y).
type TileCoordFunc func(x, y float64) (TileCoord, bool)

// A TileFilenameFunc returns the filename of a tile.
type TileFilenameFunc func(TileCoord) string

// A TileSet is a dataset split into GeoTIFF files on a regular grid.
type TileSet struct {
	mutex            sync.Mutex
	fsys             fs.FS
	crs              georef.CRS
	resolution       georef.Resolution
	tileCoordFunc    TileCoordFunc
	tileFilenameFunc TileFilenameFunc
	missingTiles     sync.Map
	fileOptions      []FileOption
	cacheSize        int
	fileCache        *lru.Cache[TileCoord, *File]
}

// A TileSetOption sets an option on a TileSet.
type TileSetOption func(*TileSet)

// NewTileSet returns a new TileSet with the given options.
func NewTileSet(options ...TileSetOption) (*TileSet, error) {
	s := &TileSet{
		cacheSize: 32,
	}
	for _, option := range options {
		option(s)
	}
	if s.tileCoordFunc == nil || s.tileFilenameFunc == nil {
		return nil, fmt.Errorf("%w: tile set without tile layout", peaks.ErrInvalidInput)
	}
	if !(s.resolution.X > 0 && s.resolution.Y > 0) {
		return nil, fmt.Errorf("%w: tile set resolution %v", peaks.ErrInvalidInput, s.resolution)
	}

	var err error
	s.fileCache, err = lru.NewWithEvict(s.cacheSize, func(key TileCoord, value *File) {
		_ = value.Close()
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func WithCacheSize(cacheSize int) TileSetOption {
	return func(s *TileSet) {
		s.cacheSize = cacheSize
	}
}

func WithFS(fsys fs.FS) TileSetOption {
	return func(s *TileSet) {
		s.fsys = fsys
	}
}

func WithFileOptions(fileOptions ...FileOption) TileSetOption {
	return func(s *TileSet) {
		s.fileOptions = fileOptions
	}
}

func WithTileCoordFunc(tileCoordFunc TileCoordFunc) TileSetOption {
	return func(s *TileSet) {
		s.tileCoordFunc = tileCoordFunc
	}
}

func WithTileCRS(crs georef.CRS) TileSetOption {
	return func(s *TileSet) {
		s.crs = crs
	}
}

func WithResolution(resolution georef.Resolution) TileSetOption {
	return func(s *TileSet) {
		s.resolution = resolution
	}
}

func WithTileFilenameFunc(tileFilenameFunc TileFilenameFunc) TileSetOption {
	return func(s *TileSet) {
		s.tileFilenameFunc = tileFilenameFunc
	}
}

// CRS returns s's coordinate reference system.
func (s *TileSet) CRS() georef.CRS {
	return s.crs
}

// Resolution returns s's resolution.
func (s *TileSet) Resolution() georef.Resolution {
	return s.resolution
}

// Close closes all files opened by s.
func (s *TileSet) Close() {
	s.fileCache.Purge()
}

// Window returns a raster covering bounds at s's resolution. Pixels in
// missing tiles are NaN.
func (s *TileSet) Window(ctx context.Context, bounds georef.Bounds) (*Raster, error) {
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty window %v", peaks.ErrInvalidInput, bounds)
	}
	width := int(math.Ceil((bounds.MaxX - bounds.MinX) / s.resolution.X))
	height := int(math.Ceil((bounds.MaxY - bounds.MinY) / s.resolution.Y))
	transform := georef.NewTransform(bounds.MinX, bounds.MaxY, s.resolution)

	samples := make([]float64, width*height)
	for i := range samples {
		samples[i] = math.NaN()
	}

	// Group indexes by tile coord.
	indexesByTileCoord := make(map[TileCoord][]int)
	for row := range height {
		for col := range width {
			x, y := transform.PixelCenter(col, row)
			tileCoord, ok := s.tileCoordFunc(x, y)
			if !ok {
				continue
			}
			index := col + row*width
			indexesByTileCoord[tileCoord] = append(indexesByTileCoord[tileCoord], index)
		}
	}

	// Populate samples one tile at a time.
	for tileCoord, indexes := range indexesByTileCoord {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := s.getFileCached(tileCoord)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		if err := s.copyTile(ctx, samples, width, transform, f, indexes); err != nil {
			return nil, err
		}
	}

	grid, err := peaks.NewGrid(width, height, samples)
	if err != nil {
		return nil, err
	}
	return &Raster{
		Grid:       grid,
		CRS:        s.crs,
		Transform:  transform,
		Resolution: s.resolution,
	}, nil
}

// copyTile copies the samples of f at indexes into samples, which has width
// columns and transform.
func (s *TileSet) copyTile(ctx context.Context, samples []float64, width int, transform georef.Transform, f *File, indexes []int) error {
	points := make([]image.Point, len(indexes))
	var rect image.Rectangle
	for i, index := range indexes {
		x, y := transform.PixelCenter(index%width, index/width)
		col, row, err := f.Transform().Invert(x, y)
		if err != nil {
			return err
		}
		points[i] = image.Pt(int(math.Floor(col)), int(math.Floor(row)))
		pointRect := image.Rectangle{Min: points[i], Max: points[i].Add(image.Pt(1, 1))}
		if i == 0 {
			rect = pointRect
		} else {
			rect = rect.Union(pointRect)
		}
	}

	raster, err := f.Window(ctx, rect)
	if err != nil {
		return err
	}
	for i, index := range indexes {
		samples[index] = raster.Grid.At(peaks.Coord{
			X: points[i].X - rect.Min.X,
			Y: points[i].Y - rect.Min.Y,
		})
	}
	return nil
}

// getFile returns the file at the given tile coordinate.
func (s *TileSet) getFile(tileCoord TileCoord) (*File, error) {
	filename := s.tileFilenameFunc(tileCoord)
	fileOptions := s.fileOptions
	if s.crs != (georef.CRS{}) {
		fileOptions = append([]FileOption{WithCRS(s.crs)}, fileOptions...)
	}
	switch f, err := Open(s.fsys, filename, fileOptions...); {
	case errors.Is(err, fs.ErrNotExist):
		s.missingTiles.Store(tileCoord, struct{}{})
		missingTileCacheMisses.Inc()
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return f, nil
	}
}

// getFileCached returns the file at the given tile coordinate, using the
// cache if possible.
func (s *TileSet) getFileCached(tileCoord TileCoord) (*File, error) {
	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if f, ok := s.fileCache.Get(tileCoord); ok {
		fileCacheHits.Inc()
		return f, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if f, ok := s.fileCache.Get(tileCoord); ok {
		fileCacheHits.Inc()
		return f, nil
	}

	fileCacheMisses.Inc()

	f, err := s.getFile(tileCoord)
	if err != nil || f == nil {
		return nil, err
	}

	if eviction := s.fileCache.Add(tileCoord, f); eviction {
		fileCacheEvictions.Inc()
	}

	return f, nil
}
