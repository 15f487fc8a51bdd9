package geotiff

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-peaks/georef"
)

var errParse = errors.New("parse error")

// A GeoKey is a key in a GeoTIFF GeoKey directory.
type GeoKey uint16

const (
	GeoKeyGTModelType  GeoKey = 1024
	GeoKeyGTRasterType GeoKey = 1025
	GeoKeyGTCitation   GeoKey = 1026

	GeoKeyGeodeticCRS            GeoKey = 2048
	GeoKeyGeogCitation           GeoKey = 2049
	GeoKeyGeodeticDatum          GeoKey = 2050
	GeoKeyPrimeMeridian          GeoKey = 2051
	GeoKeyAngularUnits           GeoKey = 2054
	GeoKeyGeogAngularUnitSize    GeoKey = 2055
	GeoKeyEllipsoid              GeoKey = 2056
	GeoKeyEllipsoidSemiMajorAxis GeoKey = 2057
	GeoKeyEllipsoidInvFlattening GeoKey = 2059
	GeoKeyPrimeMeridianLongitude GeoKey = 2061

	GeoKeyProjectedCRS    GeoKey = 3072
	GeoKeyPCSCitation     GeoKey = 3073
	GeoKeyProjection      GeoKey = 3074
	GeoKeyProjMethod      GeoKey = 3075
	GeoKeyProjLinearUnits GeoKey = 3076
	GeoKeyFalseEasting    GeoKey = 3082
	GeoKeyFalseNorthing   GeoKey = 3083
	GeoKeyCenterLongitude GeoKey = 3088
	GeoKeyCenterLatitude  GeoKey = 3089

	GeoKeyVertical GeoKey = 4096
)

// Values of GeoKeyGTModelType and GeoKeyGTRasterType.
const (
	modelTypeProjected  = 1
	modelTypeGeographic = 2

	rasterTypePixelIsPoint = 2

	userDefined = 32767
)

// GeoKeys are the parsed contents of a GeoKey directory.
type GeoKeys struct {
	Params       map[GeoKey]int
	DoubleParams map[GeoKey]float64
	ASCIIParams  map[GeoKey]string
}

// ParseGeoKeys parses a GeoKey directory and the double and ASCII parameters
// that it refers to.
func ParseGeoKeys(directory []uint16, doubleParams []float64, asciiParams string) (*GeoKeys, error) {
	if len(directory) < 4 {
		return nil, fmt.Errorf("%w: short GeoKey directory", errParse)
	}
	if keyDirectoryVersion := directory[0]; keyDirectoryVersion != 1 {
		return nil, fmt.Errorf("%w: GeoKey directory version %d", errParse, keyDirectoryVersion)
	}
	if keyRevision := directory[1]; keyRevision != 1 {
		return nil, fmt.Errorf("%w: GeoKey revision %d", errParse, keyRevision)
	}
	if minorRevision := directory[2]; minorRevision > 1 {
		return nil, fmt.Errorf("%w: GeoKey minor revision %d", errParse, minorRevision)
	}
	numberOfKeys := int(directory[3])
	if len(directory) != 4+4*numberOfKeys {
		return nil, fmt.Errorf("%w: GeoKey directory has %d entries, expected %d", errParse, len(directory), 4+4*numberOfKeys)
	}

	geoKeys := &GeoKeys{
		Params:       make(map[GeoKey]int),
		DoubleParams: make(map[GeoKey]float64),
		ASCIIParams:  make(map[GeoKey]string),
	}
	for i := range numberOfKeys {
		entry := directory[4+4*i : 4+4*(i+1)]
		key := GeoKey(entry[0])
		location := entry[1]
		count := int(entry[2])
		valueOffset := int(entry[3])
		switch location {
		case 0:
			if count != 1 {
				return nil, fmt.Errorf("%w: GeoKey %d has %d inline values", errParse, key, count)
			}
			geoKeys.Params[key] = valueOffset
		case tagGeoDoubleParams:
			if count != 1 {
				return nil, fmt.Errorf("GeoKey %d has %d double values: %w", key, count, errors.ErrUnsupported)
			}
			if valueOffset >= len(doubleParams) {
				return nil, fmt.Errorf("%w: GeoKey %d double index %d out of range", errParse, key, valueOffset)
			}
			geoKeys.DoubleParams[key] = doubleParams[valueOffset]
		case tagGeoASCIIParams:
			if valueOffset+count > len(asciiParams) {
				return nil, fmt.Errorf("%w: GeoKey %d ASCII range out of range", errParse, key)
			}
			geoKeys.ASCIIParams[key] = asciiParams[valueOffset : valueOffset+count]
		default:
			return nil, fmt.Errorf("GeoKey %d stored in tag %d: %w", key, location, errors.ErrUnsupported)
		}
	}
	return geoKeys, nil
}

// CRS returns the coordinate reference system described by k. User-defined
// systems have a zero EPSG code.
func (k *GeoKeys) CRS() georef.CRS {
	var crs georef.CRS
	switch k.Params[GeoKeyGTModelType] {
	case modelTypeProjected:
		crs.Kind = georef.KindProjected
		crs.EPSG = k.Params[GeoKeyProjectedCRS]
	case modelTypeGeographic:
		crs.Kind = georef.KindGeographic
		crs.EPSG = k.Params[GeoKeyGeodeticCRS]
	}
	if crs.EPSG == userDefined {
		crs.EPSG = 0
	}
	return crs
}

// PixelIsPoint returns whether the raster's tie points refer to pixel
// centers rather than pixel corners.
func (k *GeoKeys) PixelIsPoint() bool {
	return k.Params[GeoKeyGTRasterType] == rasterTypePixelIsPoint
}
