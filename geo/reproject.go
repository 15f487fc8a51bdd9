// Package geo converts between raster coordinate reference systems and the
// ground.
package geo

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-proj/v10"

	"github.com/twpayne/go-peaks/georef"
)

// ErrUnsupportedCRS is returned for coordinate reference systems that cannot
// be converted, for example user-defined systems without an EPSG code.
var ErrUnsupportedCRS = errors.New("unsupported CRS")

// A Reprojector converts coordinates from a CRS to WGS 84 longitudes and
// latitudes. Coordinates are always in x, y order, whatever the axis order of
// the CRS's definition.
type Reprojector struct {
	crs georef.CRS
	pj  *proj.PJ
}

// NewReprojector returns a new Reprojector from crs.
func NewReprojector(crs georef.CRS) (*Reprojector, error) {
	if crs.EPSG == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCRS, crs)
	}
	r := &Reprojector{
		crs: crs,
	}
	if crs.EPSG == georef.WGS84.EPSG {
		return r, nil
	}

	pj, err := proj.NewCRSToCRS(crs.String(), georef.WGS84.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", crs, ErrUnsupportedCRS, err)
	}
	defer pj.Destroy()
	r.pj, err = pj.NormalizeForVisualization()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", crs, err)
	}
	return r, nil
}

// CRS returns r's source CRS.
func (r *Reprojector) CRS() georef.CRS {
	return r.crs
}

// ToWGS84 returns the longitude and latitude of (x, y).
func (r *Reprojector) ToWGS84(x, y float64) (float64, float64, error) {
	if r.pj == nil {
		return x, y, nil
	}
	coord, err := r.pj.Forward(proj.NewCoord(x, y, 0, 0))
	if err != nil {
		return 0, 0, err
	}
	return coord[0], coord[1], nil
}

// ToWGS84Coords converts coords in place.
func (r *Reprojector) ToWGS84Coords(coords [][]float64) error {
	if r.pj == nil || len(coords) == 0 {
		return nil
	}
	return r.pj.ForwardFloat64Slices(coords)
}

// Close releases r's resources.
func (r *Reprojector) Close() {
	if r.pj != nil {
		r.pj.Destroy()
	}
}
