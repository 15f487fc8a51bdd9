// Package geotiff reads digital elevation models stored as GeoTIFF files.
package geotiff

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"github.com/maypok86/otter/v2"
	"golang.org/x/image/tiff/lzw"

	"github.com/twpayne/go-peaks"
	"github.com/twpayne/go-peaks/georef"
)

const (
	tagGeoDoubleParams = 34736
	tagGeoASCIIParams  = 34737
)

const (
	compressionNone         = 1
	compressionLZW          = 5
	compressionDeflate      = 8
	compressionAdobeDeflate = 32946

	predictorNone       = 1
	predictorHorizontal = 2

	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

var errShortRead = errors.New("short read")

// A Raster is an elevation grid with its georeferencing.
type Raster struct {
	Grid       *peaks.Grid
	CRS        georef.CRS
	Transform  georef.Transform
	Resolution georef.Resolution
}

// A File is an open GeoTIFF file containing a single band of elevations.
type File struct {
	file                   fs.File
	readerAt               io.ReaderAt
	byteOrder              binary.ByteOrder
	width                  int
	height                 int
	tiled                  bool
	chunkWidth             int
	chunkHeight            int
	chunksAcross           int
	chunksDown             int
	chunkOffsets           []uint64
	chunkByteCounts        []uint64
	smallestChunkByteCount uint64
	compression            int
	predictor              int
	sampleFormat           int
	bitsPerSample          int
	noData                 float64
	hasNoData              bool
	chunkCacheSizeBytes    int
	chunkCache             *otter.Cache[int, []float64]
	emptyChunkMutex        sync.Mutex
	emptyChunkBytes        []byte
	crs                    georef.CRS
	transform              georef.Transform
}

// A FileOption sets an option on a File.
type FileOption func(*File)

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD.
type geoTIFFIFD struct {
	ImageWidth             uint32    `tiff:"field,tag=256"`
	ImageLength            uint32    `tiff:"field,tag=257"`
	BitsPerSample          uint16    `tiff:"field,tag=258"`
	Compression            uint16    `tiff:"field,tag=259"`
	StripOffsets           []uint64  `tiff:"field,tag=273"`
	SamplesPerPixel        uint16    `tiff:"field,tag=277"`
	RowsPerStrip           uint32    `tiff:"field,tag=278"`
	StripByteCounts        []uint64  `tiff:"field,tag=279"`
	Predictor              uint16    `tiff:"field,tag=317"`
	TileWidth              uint32    `tiff:"field,tag=322"`
	TileLength             uint32    `tiff:"field,tag=323"`
	TileOffsets            []uint64  `tiff:"field,tag=324"`
	TileByteCounts         []uint64  `tiff:"field,tag=325"`
	SampleFormat           uint16    `tiff:"field,tag=339"`
	ModelPixelScaleTag     []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag       []float64 `tiff:"field,tag=33922"`
	ModelTransformationTag []float64 `tiff:"field,tag=34264"`
	GeoKeyDirectoryTag     []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag     []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag      string    `tiff:"field,tag=34737"`
	GDALNoData             string    `tiff:"field,tag=42113"`
}

// A readAtSeeker is the subset of *os.File that github.com/google/tiff needs.
type readAtSeeker interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// Open opens the GeoTIFF file name in fsys.
func Open(fsys fs.FS, name string, options ...FileOption) (*File, error) {
	var err error
	ok := false

	f := &File{
		chunkCacheSizeBytes: 128 << 20, // 128MB.
		noData:              math.NaN(),
	}
	for _, option := range options {
		option(f)
	}

	f.file, err = fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if !ok {
			_ = f.file.Close()
		}
	}()
	r, isReadAtSeeker := f.file.(readAtSeeker)
	if !isReadAtSeeker {
		return nil, fmt.Errorf("%s: random access: %w", name, errors.ErrUnsupported)
	}
	f.readerAt = r

	f.byteOrder, err = readByteOrder(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	tiffTIFF, err := tiff.Parse(r, tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(tiffTIFF.IFDs()) == 0 {
		return nil, fmt.Errorf("%s: no IFDs", name)
	}

	// Only the first IFD is read. Any others are overviews or masks.
	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := f.setLayout(&ifd); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := f.setGeoreferencing(&ifd); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	chunkByteCountUncompressed := f.chunkWidth * f.chunkHeight * f.bitsPerSample / 8
	chunkCacheCount := max(f.chunkCacheSizeBytes/chunkByteCountUncompressed, 1)
	f.chunkCache, err = otter.New(&otter.Options[int, []float64]{
		MaximumSize: chunkCacheCount,
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return f, nil
}

// WithChunkCacheSize sets the size in bytes of the cache of decoded strips
// or tiles.
func WithChunkCacheSize(chunkCacheSize int) FileOption {
	return func(f *File) {
		f.chunkCacheSizeBytes = chunkCacheSize
	}
}

// WithCRS overrides the coordinate reference system read from the file.
func WithCRS(crs georef.CRS) FileOption {
	return func(f *File) {
		f.crs = crs
	}
}

// setLayout checks that f can be decoded and records how its samples are
// split into strips or tiles.
func (f *File) setLayout(ifd *geoTIFFIFD) error {
	if ifd.SamplesPerPixel > 1 {
		return fmt.Errorf("%d samples per pixel: %w", ifd.SamplesPerPixel, errors.ErrUnsupported)
	}

	f.width = int(ifd.ImageWidth)
	f.height = int(ifd.ImageLength)
	if f.width == 0 || f.height == 0 {
		return fmt.Errorf("%w: empty image", errParse)
	}

	f.bitsPerSample = int(ifd.BitsPerSample)
	f.sampleFormat = int(ifd.SampleFormat)
	if f.sampleFormat == 0 {
		f.sampleFormat = sampleFormatUint
	}
	switch {
	case f.sampleFormat == sampleFormatFloat && (f.bitsPerSample == 32 || f.bitsPerSample == 64):
	case (f.sampleFormat == sampleFormatUint || f.sampleFormat == sampleFormatInt) &&
		(f.bitsPerSample == 8 || f.bitsPerSample == 16 || f.bitsPerSample == 32 || f.bitsPerSample == 64):
	default:
		return fmt.Errorf("sample format %d with %d bits per sample: %w", f.sampleFormat, f.bitsPerSample, errors.ErrUnsupported)
	}

	f.compression = int(ifd.Compression)
	switch f.compression {
	case 0:
		f.compression = compressionNone
	case compressionNone, compressionLZW, compressionDeflate, compressionAdobeDeflate:
	default:
		return fmt.Errorf("compression %d: %w", f.compression, errors.ErrUnsupported)
	}

	f.predictor = int(ifd.Predictor)
	switch f.predictor {
	case 0:
		f.predictor = predictorNone
	case predictorNone:
	case predictorHorizontal:
		if f.sampleFormat == sampleFormatFloat {
			return fmt.Errorf("horizontal predictor with floating point samples: %w", errors.ErrUnsupported)
		}
	default:
		return fmt.Errorf("predictor %d: %w", f.predictor, errors.ErrUnsupported)
	}

	switch {
	case ifd.TileWidth != 0 && ifd.TileLength != 0:
		f.tiled = true
		f.chunkWidth = int(ifd.TileWidth)
		f.chunkHeight = int(ifd.TileLength)
		f.chunkOffsets = ifd.TileOffsets
		f.chunkByteCounts = ifd.TileByteCounts
	case len(ifd.StripOffsets) != 0:
		f.chunkWidth = f.width
		f.chunkHeight = int(ifd.RowsPerStrip)
		if f.chunkHeight == 0 || f.chunkHeight > f.height {
			f.chunkHeight = f.height
		}
		f.chunkOffsets = ifd.StripOffsets
		f.chunkByteCounts = ifd.StripByteCounts
	default:
		return fmt.Errorf("%w: no strips or tiles", errParse)
	}
	f.chunksAcross = (f.width + f.chunkWidth - 1) / f.chunkWidth
	f.chunksDown = (f.height + f.chunkHeight - 1) / f.chunkHeight
	chunksPerImage := f.chunksAcross * f.chunksDown
	if len(f.chunkOffsets) != chunksPerImage || len(f.chunkByteCounts) != chunksPerImage {
		return fmt.Errorf("%w: %d offsets and %d byte counts for %d chunks", errParse, len(f.chunkOffsets), len(f.chunkByteCounts), chunksPerImage)
	}
	f.smallestChunkByteCount = f.chunkByteCounts[0]
	for _, chunkByteCount := range f.chunkByteCounts[1:] {
		f.smallestChunkByteCount = min(f.smallestChunkByteCount, chunkByteCount)
	}

	if noData := strings.TrimRight(strings.TrimSpace(ifd.GDALNoData), "\x00"); noData != "" {
		value, err := strconv.ParseFloat(noData, 64)
		if err != nil {
			return fmt.Errorf("%w: GDAL_NODATA %q", errParse, noData)
		}
		if f.sampleFormat == sampleFormatFloat && f.bitsPerSample == 32 {
			value = float64(float32(value))
		}
		f.noData = value
		f.hasNoData = true
	}

	return nil
}

// setGeoreferencing sets f's transform and, unless overridden, its CRS.
func (f *File) setGeoreferencing(ifd *geoTIFFIFD) error {
	var geoKeys *GeoKeys
	if len(ifd.GeoKeyDirectoryTag) != 0 {
		var err error
		geoKeys, err = ParseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, ifd.GeoASCIIParamsTag)
		if err != nil {
			return err
		}
		if f.crs == (georef.CRS{}) {
			f.crs = geoKeys.CRS()
		}
	}

	switch scale, tiepoint, m := ifd.ModelPixelScaleTag, ifd.ModelTiepointTag, ifd.ModelTransformationTag; {
	case len(m) == 16:
		f.transform = georef.Transform{m[3], m[0], m[1], m[7], m[4], m[5]}
	case len(scale) >= 2 && len(tiepoint) >= 6:
		i, j := tiepoint[0], tiepoint[1]
		x, y := tiepoint[3], tiepoint[4]
		f.transform = georef.Transform{x - i*scale[0], scale[0], 0, y + j*scale[1], 0, -scale[1]}
	default:
		f.transform = georef.Transform{0, 1, 0, 0, 0, 1}
		return nil
	}

	if geoKeys != nil && geoKeys.PixelIsPoint() {
		t := f.transform
		f.transform[0] = t[0] - 0.5*t[1] - 0.5*t[2]
		f.transform[3] = t[3] - 0.5*t[4] - 0.5*t[5]
	}
	return nil
}

// Close closes f.
func (f *File) Close() error {
	return f.file.Close()
}

// Bounds returns the pixel bounds of f.
func (f *File) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.width, f.height)
}

// CRS returns f's coordinate reference system.
func (f *File) CRS() georef.CRS {
	return f.crs
}

// Transform returns f's pixel to world transform.
func (f *File) Transform() georef.Transform {
	return f.transform
}

// Read returns every sample in f.
func (f *File) Read(ctx context.Context) (*Raster, error) {
	return f.Window(ctx, f.Bounds())
}

// Window returns the samples in the pixel rectangle r. Samples outside f and
// missing samples are NaN.
func (f *File) Window(ctx context.Context, r image.Rectangle) (*Raster, error) {
	r = r.Canon()
	samples := make([]float64, r.Dx()*r.Dy())
	for i := range samples {
		samples[i] = math.NaN()
	}

	inside := r.Intersect(f.Bounds())
	if !inside.Empty() {
		c0, r0 := inside.Min.X/f.chunkWidth, inside.Min.Y/f.chunkHeight
		c1, r1 := (inside.Max.X-1)/f.chunkWidth, (inside.Max.Y-1)/f.chunkHeight
		for chunkRow := r0; chunkRow <= r1; chunkRow++ {
			for chunkColumn := c0; chunkColumn <= c1; chunkColumn++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				chunkIndex := chunkColumn + chunkRow*f.chunksAcross
				switch chunkSamples, err := f.getChunkSamplesCached(ctx, chunkIndex); {
				case errors.Is(err, otter.ErrNotFound):
					continue
				case err != nil:
					return nil, err
				default:
					f.copyChunk(samples, r, inside, chunkColumn, chunkRow, chunkSamples)
				}
			}
		}
	}

	grid, err := peaks.NewGrid(r.Dx(), r.Dy(), samples)
	if err != nil {
		return nil, err
	}
	x0, y0 := f.transform.Apply(float64(r.Min.X), float64(r.Min.Y))
	transform := f.transform
	transform[0], transform[3] = x0, y0
	return &Raster{
		Grid:       grid,
		CRS:        f.crs,
		Transform:  transform,
		Resolution: transform.Resolution(),
	}, nil
}

// copyChunk copies the samples of a chunk that lie in inside into dst, which
// covers r.
func (f *File) copyChunk(dst []float64, r, inside image.Rectangle, chunkColumn, chunkRow int, chunkSamples []float64) {
	chunkBounds := image.Rect(
		chunkColumn*f.chunkWidth,
		chunkRow*f.chunkHeight,
		(chunkColumn+1)*f.chunkWidth,
		(chunkRow+1)*f.chunkHeight,
	).Intersect(inside)
	for y := chunkBounds.Min.Y; y < chunkBounds.Max.Y; y++ {
		srcStart := chunkBounds.Min.X - chunkColumn*f.chunkWidth + (y-chunkRow*f.chunkHeight)*f.chunkWidth
		dstStart := chunkBounds.Min.X - r.Min.X + (y-r.Min.Y)*r.Dx()
		copy(dst[dstStart:dstStart+chunkBounds.Dx()], chunkSamples[srcStart:srcStart+chunkBounds.Dx()])
	}
}

// chunkSampleCount returns the number of samples stored in chunkIndex. The
// last strip of an image may be shorter than the others.
func (f *File) chunkSampleCount(chunkIndex int) int {
	rows := f.chunkHeight
	if !f.tiled {
		rows = min(rows, f.height-chunkIndex*f.chunkHeight)
	}
	return f.chunkWidth * rows
}

// getCompressedChunkData returns the compressed data of chunkIndex. If the
// chunk is known to be empty, it returns the error otter.ErrNotFound.
func (f *File) getCompressedChunkData(chunkIndex int) ([]byte, error) {
	chunkByteCount := f.chunkByteCounts[chunkIndex]
	if chunkByteCount == 0 {
		return nil, otter.ErrNotFound
	}
	compressedData := make([]byte, chunkByteCount)
	switch n, err := f.readerAt.ReadAt(compressedData, int64(f.chunkOffsets[chunkIndex])); {
	case n != int(chunkByteCount) && err == nil:
		return nil, errShortRead
	case n != int(chunkByteCount):
		return nil, err
	}
	f.emptyChunkMutex.Lock()
	defer f.emptyChunkMutex.Unlock()
	if f.emptyChunkBytes != nil && bytes.Equal(compressedData, f.emptyChunkBytes) {
		return nil, otter.ErrNotFound
	}
	return compressedData, nil
}

// decompressChunkData decompresses compressedData into n bytes.
func (f *File) decompressChunkData(compressedData []byte, n int) ([]byte, error) {
	var r io.Reader
	switch f.compression {
	case compressionNone:
		r = bytes.NewReader(compressedData)
	case compressionLZW:
		lzwReader := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
		defer lzwReader.Close()
		r = lzwReader
	case compressionDeflate, compressionAdobeDeflate:
		zlibReader, err := zlib.NewReader(bytes.NewReader(compressedData))
		if err != nil {
			return nil, err
		}
		defer zlibReader.Close()
		r = zlibReader
	}
	chunkData := make([]byte, n)
	if _, err := io.ReadFull(r, chunkData); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, errShortRead
		}
		return nil, err
	}
	return chunkData, nil
}

// decodeChunkData decodes chunkData into elevations. Missing samples are
// NaN.
func (f *File) decodeChunkData(chunkData []byte, sampleCount int) []float64 {
	bytesPerSample := f.bitsPerSample / 8
	raw := make([]uint64, sampleCount)
	for i := range raw {
		b := chunkData[i*bytesPerSample : (i+1)*bytesPerSample]
		switch bytesPerSample {
		case 1:
			raw[i] = uint64(b[0])
		case 2:
			raw[i] = uint64(f.byteOrder.Uint16(b))
		case 4:
			raw[i] = uint64(f.byteOrder.Uint32(b))
		case 8:
			raw[i] = f.byteOrder.Uint64(b)
		}
	}

	if f.predictor == predictorHorizontal {
		mask := uint64(math.MaxUint64) >> (64 - f.bitsPerSample)
		for start := 0; start < sampleCount; start += f.chunkWidth {
			for i := start + 1; i < start+f.chunkWidth; i++ {
				raw[i] = (raw[i] + raw[i-1]) & mask
			}
		}
	}

	samples := make([]float64, sampleCount)
	for i, bits := range raw {
		var sample float64
		switch f.sampleFormat {
		case sampleFormatUint:
			sample = float64(bits)
		case sampleFormatInt:
			shift := 64 - f.bitsPerSample
			sample = float64(int64(bits<<shift) >> shift)
		case sampleFormatFloat:
			if f.bitsPerSample == 32 {
				sample = float64(math.Float32frombits(uint32(bits)))
			} else {
				sample = math.Float64frombits(bits)
			}
		}
		if f.hasNoData && sample == f.noData {
			sample = math.NaN()
		}
		samples[i] = sample
	}
	return samples
}

// getChunkSamples returns the samples of chunkIndex.
func (f *File) getChunkSamples(ctx context.Context, chunkIndex int) ([]float64, error) {
	compressedChunkData, err := f.getCompressedChunkData(chunkIndex)
	if err != nil {
		return nil, err
	}

	sampleCount := f.chunkSampleCount(chunkIndex)
	chunkData, err := f.decompressChunkData(compressedChunkData, sampleCount*f.bitsPerSample/8)
	if err != nil {
		return nil, err
	}
	chunkSamples := f.decodeChunkData(chunkData, sampleCount)

	// Remember what the smallest chunk looks like when it contains no data,
	// so that identical chunks can be skipped before they are decompressed.
	if len(compressedChunkData) == int(f.smallestChunkByteCount) {
		isEmptyChunk := true
		for _, sample := range chunkSamples {
			if !math.IsNaN(sample) {
				isEmptyChunk = false
				break
			}
		}
		if isEmptyChunk {
			f.emptyChunkMutex.Lock()
			if f.emptyChunkBytes == nil {
				f.emptyChunkBytes = compressedChunkData
			}
			f.emptyChunkMutex.Unlock()
			return nil, otter.ErrNotFound
		}
	}

	return chunkSamples, nil
}

// getChunkSamplesCached returns the samples of chunkIndex using f's cache.
func (f *File) getChunkSamplesCached(ctx context.Context, chunkIndex int) ([]float64, error) {
	return f.chunkCache.Get(ctx, chunkIndex, otter.LoaderFunc[int, []float64](f.getChunkSamples))
}

// readByteOrder returns the byte order declared in a TIFF header.
func readByteOrder(r io.ReaderAt) (binary.ByteOrder, error) {
	header := make([]byte, 2)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, err
	}
	switch string(header) {
	case "II":
		return binary.LittleEndian, nil
	case "MM":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("%w: byte order %q", errParse, header)
	}
}
