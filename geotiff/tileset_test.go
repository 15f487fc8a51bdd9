package geotiff

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"testing"
	"testing/fstest"

	"github.com/alecthomas/assert/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/twpayne/go-peaks"
	"github.com/twpayne/go-peaks/georef"
)

// newTestTileSet returns a TileSet of 4x4 tiles with a resolution of 10. The
// tile with coordinate (C, 0) has sample 1000*C+10*row+col. Only the tiles
// with R == 0 exist.
func newTestTileSet(t *testing.T, columns int) *TileSet {
	t.Helper()
	fsys := fstest.MapFS{}
	for c := range columns {
		var samples []uint16
		for row := range 4 {
			for col := range 4 {
				samples = append(samples, uint16(1000*c+10*row+col))
			}
		}
		data := encodeTIFF(t, [][]byte{encodeSamples(t, samples)}, tagStripOffsets, tagStripByteCounts, map[uint16]any{
			tagImageWidth:      uint32(4),
			tagImageLength:     uint32(4),
			tagBitsPerSample:   uint16(16),
			tagRowsPerStrip:    uint32(4),
			tagModelPixelScale: []float64{10, 10, 0},
			tagModelTiepoint:   []float64{0, 0, 0, float64(40 * c), 40, 0},
		})
		fsys[fmt.Sprintf("tile_%d_0.tif", c)] = &fstest.MapFile{Data: data}
	}
	tileSet, err := NewTileSet(
		WithFS(fsys),
		WithTileCRS(georef.CRS{EPSG: 32632, Kind: georef.KindProjected}),
		WithResolution(georef.Resolution{X: 10, Y: 10}),
		WithCacheSize(1),
		WithTileCoordFunc(func(x, y float64) (TileCoord, bool) {
			return TileCoord{
				C: int(math.Floor(x / 40)),
				R: int(math.Floor(y / 40)),
			}, true
		}),
		WithTileFilenameFunc(func(tileCoord TileCoord) string {
			return fmt.Sprintf("tile_%d_%d.tif", tileCoord.C, tileCoord.R)
		}),
	)
	assert.NoError(t, err)
	t.Cleanup(tileSet.Close)
	return tileSet
}

func TestTileSetWindow(t *testing.T) {
	tileSet := newTestTileSet(t, 2)
	nan := math.NaN()

	missingTileCacheHitsBefore := testutil.ToFloat64(missingTileCacheHits)
	bounds := georef.Bounds{MinX: 20, MinY: 30, MaxX: 60, MaxY: 50}
	raster, err := tileSet.Window(t.Context(), bounds)
	assert.NoError(t, err)
	assert.Equal(t, 4, raster.Grid.Width)
	assert.Equal(t, 2, raster.Grid.Height)
	assert.Equal(t, []float64{
		nan, nan, nan, nan,
		2, 3, 1000, 1001,
	}, raster.Grid.Samples)
	assert.Equal(t, georef.NewTransform(20, 50, georef.Resolution{X: 10, Y: 10}), raster.Transform)
	assert.Equal(t, tileSet.CRS(), raster.CRS)

	// The second window reuses the missing tile and reopens evicted files.
	raster, err = tileSet.Window(t.Context(), bounds)
	assert.NoError(t, err)
	assert.Equal(t, 1001.0, raster.Grid.At(peaks.Coord{X: 3, Y: 1}))
	assert.True(t, testutil.ToFloat64(missingTileCacheHits) > missingTileCacheHitsBefore)
}

func TestTileSetWindowEmpty(t *testing.T) {
	tileSet := newTestTileSet(t, 1)
	_, err := tileSet.Window(t.Context(), georef.Bounds{MinX: 10, MinY: 10, MaxX: 10, MaxY: 20})
	assert.IsError(t, err, peaks.ErrInvalidInput)
}

func TestNewTileSetInvalid(t *testing.T) {
	_, err := NewTileSet(WithResolution(georef.Resolution{X: 10, Y: 10}))
	assert.IsError(t, err, peaks.ErrInvalidInput)
}

func TestEUDEMWindow(t *testing.T) {
	if _, err := os.Stat("testdata/eu_dem/eu_dem_v11_E00N20.TIF"); errors.Is(err, fs.ErrNotExist) {
		t.Skip("missing eu_dem test data")
	}

	euDEM, err := NewEUDEM(os.DirFS("testdata/eu_dem"))
	assert.NoError(t, err)
	defer euDEM.Close()

	raster, err := euDEM.Window(t.Context(), georef.Bounds{MinX: 970700, MinY: 2789750, MaxX: 970725, MaxY: 2789775})
	assert.NoError(t, err)
	assert.Equal(t, EUDEMCRS, raster.CRS)
	assert.Equal(t, []float64{517}, raster.Grid.Samples)
}
