package geo

import (
	"fmt"
	"math"
	"sync"

	"github.com/twpayne/go-proj/v10"

	"github.com/twpayne/go-peaks/georef"
)

var wgs84Ellipsoid = sync.OnceValues(func() (*proj.PJ, error) {
	return proj.New("+proj=longlat +ellps=WGS84")
})

// GroundScale returns the ground size in meters of a pixel with resolution
// at (x, y). For geographic systems the size is the geodesic distance on the
// WGS 84 ellipsoid to the neighboring pixel in each direction. For projected
// systems the resolution is assumed to be in meters.
func GroundScale(crs georef.CRS, resolution georef.Resolution, x, y float64) (float64, float64, error) {
	switch crs.Kind {
	case georef.KindProjected:
		return resolution.X, resolution.Y, nil
	case georef.KindGeographic:
		pj, err := wgs84Ellipsoid()
		if err != nil {
			return 0, 0, err
		}
		origin := radians(x, y)
		mx, _, _ := pj.Geod(origin, radians(x+resolution.X, y))
		my, _, _ := pj.Geod(origin, radians(x, y+resolution.Y))
		if math.IsNaN(mx) || math.IsNaN(my) || mx == 0 || my == 0 {
			return 0, 0, fmt.Errorf("%w: no ground scale at (%g, %g)", ErrUnsupportedCRS, x, y)
		}
		return mx, my, nil
	default:
		return 0, 0, fmt.Errorf("%w: %s kind %s", ErrUnsupportedCRS, crs, crs.Kind)
	}
}

func radians(lon, lat float64) proj.Coord {
	return proj.NewCoord(lon*math.Pi/180, lat*math.Pi/180, 0, 0)
}
