package geotiff

import (
	"fmt"
	"io/fs"
	"slices"

	"github.com/twpayne/go-peaks/georef"
)

// EUDEMCRS is the coordinate reference system of EU-DEM, ETRS89-LAEA.
var EUDEMCRS = georef.CRS{EPSG: 3035, Kind: georef.KindProjected}

// NewEUDEM returns a TileSet reading EU-DEM v1.1 tiles from fsys.
func NewEUDEM(fsys fs.FS, options ...TileSetOption) (*TileSet, error) {
	return NewTileSet(slices.Concat(
		[]TileSetOption{
			WithFS(fsys),
			WithTileCRS(EUDEMCRS),
			WithResolution(georef.Resolution{X: 25, Y: 25}),
			WithTileCoordFunc(func(x, y float64) (TileCoord, bool) {
				if x < 0 || y < 0 {
					return TileCoord{}, false
				}
				return TileCoord{
					C: 10 * (int(x) / 1000000),
					R: 10 * (int(y) / 1000000),
				}, true
			}),
			WithTileFilenameFunc(func(tileCoord TileCoord) string {
				return fmt.Sprintf("eu_dem_v11_E%02dN%02d.TIF", tileCoord.C, tileCoord.R)
			}),
		},
		options,
	)...)
}
