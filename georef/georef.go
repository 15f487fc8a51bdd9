// Package georef contains the types that tie a raster to the world: its
// coordinate reference system and its pixel to world transform.
package georef

import (
	"errors"
	"fmt"
	"math"
)

// ErrSingularTransform is returned when a Transform cannot be inverted.
var ErrSingularTransform = errors.New("singular transform")

// A Kind is the kind of a coordinate reference system.
type Kind int

const (
	KindUnknown Kind = iota
	KindGeographic
	KindProjected
)

func (k Kind) String() string {
	switch k {
	case KindGeographic:
		return "geographic"
	case KindProjected:
		return "projected"
	default:
		return "unknown"
	}
}

// A CRS identifies a coordinate reference system by its EPSG code.
type CRS struct {
	EPSG int
	Kind Kind
}

// WGS84 is longitude and latitude on the WGS 84 ellipsoid.
var WGS84 = CRS{EPSG: 4326, Kind: KindGeographic}

// String returns c in the form accepted by PROJ, for example "EPSG:3035".
func (c CRS) String() string {
	if c.EPSG == 0 {
		return "unknown"
	}
	return fmt.Sprintf("EPSG:%d", c.EPSG)
}

// A Resolution is the size of a pixel in CRS units.
type Resolution struct {
	X float64
	Y float64
}

// A Bounds is an axis-aligned rectangle in CRS units.
type Bounds struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Empty returns whether b contains no area.
func (b Bounds) Empty() bool {
	return !(b.MinX < b.MaxX && b.MinY < b.MaxY)
}

// Intersect returns the intersection of b and other.
func (b Bounds) Intersect(other Bounds) Bounds {
	return Bounds{
		MinX: max(b.MinX, other.MinX),
		MinY: max(b.MinY, other.MinY),
		MaxX: min(b.MaxX, other.MaxX),
		MaxY: min(b.MaxY, other.MaxY),
	}
}

// A Transform is an affine map from pixel coordinates to world coordinates
// with the same coefficient order as GDAL:
//
//	x = t[0] + col*t[1] + row*t[2]
//	y = t[3] + col*t[4] + row*t[5]
//
// Pixel (0, 0) is the top left corner of the top left pixel.
type Transform [6]float64

// NewTransform returns the Transform of a north-up raster whose top left
// corner is at (originX, originY).
func NewTransform(originX, originY float64, resolution Resolution) Transform {
	return Transform{originX, resolution.X, 0, originY, 0, -resolution.Y}
}

// Apply returns the world coordinates of the pixel coordinates (col, row).
func (t Transform) Apply(col, row float64) (float64, float64) {
	return t[0] + col*t[1] + row*t[2], t[3] + col*t[4] + row*t[5]
}

// PixelCenter returns the world coordinates of the center of pixel (col, row).
func (t Transform) PixelCenter(col, row int) (float64, float64) {
	return t.Apply(float64(col)+0.5, float64(row)+0.5)
}

// Invert returns the pixel coordinates of the world coordinates (x, y).
func (t Transform) Invert(x, y float64) (float64, float64, error) {
	det := t[1]*t[5] - t[2]*t[4]
	if det == 0 || math.IsNaN(det) {
		return math.NaN(), math.NaN(), ErrSingularTransform
	}
	dx, dy := x-t[0], y-t[3]
	col := (dx*t[5] - dy*t[2]) / det
	row := (dy*t[1] - dx*t[4]) / det
	return col, row, nil
}

// Resolution returns the size of a pixel of t.
func (t Transform) Resolution() Resolution {
	return Resolution{
		X: math.Hypot(t[1], t[4]),
		Y: math.Hypot(t[2], t[5]),
	}
}

// Bounds returns the world bounds of a width x height raster.
func (t Transform) Bounds(width, height int) Bounds {
	b := Bounds{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
	for _, corner := range [4][2]float64{
		{0, 0},
		{float64(width), 0},
		{0, float64(height)},
		{float64(width), float64(height)},
	} {
		x, y := t.Apply(corner[0], corner[1])
		b.MinX, b.MaxX = min(b.MinX, x), max(b.MaxX, x)
		b.MinY, b.MaxY = min(b.MinY, y), max(b.MaxY, y)
	}
	return b
}
