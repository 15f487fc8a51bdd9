package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/twpayne/go-peaks"
	"github.com/twpayne/go-peaks/geo"
	"github.com/twpayne/go-peaks/georef"
	"github.com/twpayne/go-peaks/geotiff"
	"github.com/twpayne/go-peaks/internal/config"
	"github.com/twpayne/go-peaks/internal/report"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// configKeys maps flags to the configuration keys that they override.
var configKeys = map[string]string{
	"preset":               "preset",
	"prominence":           "prominence",
	"dominance":            "dominance",
	"orographic-dominance": "orographic_dominance",
	"min-height":           "min_height",
	"border-width":         "border_width",
	"exact":                "exact",
	"concurrency":          "concurrency",
	"saddle-timeout":       "saddle_timeout",
	"crs":                  "crs",
	"log-level":            "log_level",
	"format":               "format",
	"metrics-addr":         "metrics_addr",
}

func run() error {
	defaults := config.New()
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.String("preset", defaults.Preset, "threshold preset: himalaya, uiaa, cartographic, or custom")
	flag.Float64("prominence", defaults.Prominence, "minimum prominence in meters")
	flag.Float64("dominance", defaults.Dominance, "minimum dominance in meters")
	flag.Float64("orographic-dominance", defaults.OrographicDominance, "minimum orographic dominance in percent")
	flag.Float64("min-height", defaults.MinHeight, "minimum height in meters")
	flag.Int("border-width", defaults.BorderWidth, "width in pixels of the excluded border")
	flag.Bool("exact", defaults.Exact, "compute exact prominences")
	flag.Int("concurrency", defaults.Concurrency, "number of concurrent saddle searches")
	flag.Duration("saddle-timeout", defaults.SaddleTimeout, "timeout for each saddle search, zero for none")
	flag.Int("crs", defaults.CRS, "EPSG code overriding the raster's CRS")
	flag.String("log-level", defaults.LogLevel, "log level")
	flag.String("format", defaults.Format, "output format: table or csv")
	flag.String("metrics-addr", defaults.MetricsAddr, "address to serve Prometheus metrics on")
	euDEM := flag.String("eu_dem-path", os.Getenv("EU_DEM_PATH"), "path to EU DEM data")
	bounds := flag.String("bounds", "", "EU DEM window as minx,miny,maxx,maxy in EPSG:3035")
	output := flag.String("output", "", "output file, default stdout")
	flag.Parse()

	overrides := make(map[string]any)
	flag.Visit(func(f *flag.Flag) {
		if key, ok := configKeys[f.Name]; ok {
			overrides[key] = f.Value.(flag.Getter).Get()
		}
	})
	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(cfg.Level()).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		server := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: readHeaderTimeout,
		}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	var raster *geotiff.Raster
	switch {
	case *bounds != "":
		raster, err = readEUDEM(ctx, *euDEM, *bounds)
	case flag.NArg() == 1:
		raster, err = readGeoTIFF(ctx, flag.Arg(0))
	default:
		return errors.New("syntax: peakfinder [flags] file.tif | peakfinder [flags] -bounds minx,miny,maxx,maxy")
	}
	if err != nil {
		return err
	}
	if cfg.CRS != 0 {
		raster.CRS = overrideCRS(raster.CRS, cfg.CRS)
	}
	logger.Info().
		Int("width", raster.Grid.Width).
		Int("height", raster.Grid.Height).
		Stringer("crs", raster.CRS).
		Float64("resolution_x", raster.Resolution.X).
		Float64("resolution_y", raster.Resolution.Y).
		Msg("read raster")

	// Dominance is measured in pixels, so convert the ground threshold with
	// the size of a pixel at the center of the raster.
	centerX, centerY := raster.Transform.Apply(float64(raster.Grid.Width)/2, float64(raster.Grid.Height)/2)
	metersPerPixel := math.NaN()
	dominancePixels := cfg.Dominance
	switch _, my, err := geo.GroundScale(raster.CRS, raster.Resolution, centerX, centerY); {
	case err != nil:
		logger.Warn().Err(err).Msg("unknown ground scale, dominance threshold used as pixels")
	default:
		metersPerPixel = my
		dominancePixels = cfg.Dominance / my
		logger.Info().
			Float64("dominance_m", cfg.Dominance).
			Float64("dominance_px", dominancePixels).
			Msg("converted dominance threshold")
	}

	start := time.Now()
	result, err := peaks.FindPeaks(ctx, raster.Grid,
		peaks.WithProminenceThreshold(cfg.Prominence),
		peaks.WithDominanceThreshold(dominancePixels),
		peaks.WithOrographicDominanceThreshold(cfg.OrographicDominance),
		peaks.WithMinHeight(cfg.MinHeight),
		peaks.WithBorderWidth(min(cfg.BorderWidth, raster.Grid.Width, raster.Grid.Height)),
		peaks.WithExactRefinement(cfg.Exact),
		peaks.WithConcurrency(cfg.Concurrency),
		peaks.WithSaddleTimeout(cfg.SaddleTimeout),
		peaks.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	logger.Info().
		Int("candidates", result.Candidates).
		Int("peaks", len(result.Peaks)).
		Int("anomalies", len(result.Anomalies)).
		Dur("elapsed", time.Since(start)).
		Msg("found peaks")

	rows := newRows(logger, raster, result.Peaks, metersPerPixel)

	if *output == "" {
		return report.Write(os.Stdout, cfg.Format, rows)
	}
	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	return writeAndClose(f, cfg.Format, rows)
}

// writeAndClose writes rows to wc and closes it.
func writeAndClose(wc io.WriteCloser, format string, rows []report.Row) (err error) {
	defer func() {
		if closeErr := wc.Close(); err == nil {
			err = closeErr
		}
	}()
	return report.Write(wc, format, rows)
}

// readGeoTIFF reads the whole of the GeoTIFF file at path.
func readGeoTIFF(ctx context.Context, path string) (*geotiff.Raster, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := geotiff.Open(os.DirFS(dir), name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Read(ctx)
}

// readEUDEM reads a window from the EU-DEM tiles in path.
func readEUDEM(ctx context.Context, path, bounds string) (*geotiff.Raster, error) {
	if path == "" {
		return nil, errors.New("missing EU DEM path")
	}
	fields := strings.Split(bounds, ",")
	if len(fields) != 4 {
		return nil, fmt.Errorf("%s: invalid bounds", bounds)
	}
	var values [4]float64
	for i, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid bounds: %w", bounds, err)
		}
		values[i] = value
	}
	euDEM, err := geotiff.NewEUDEM(os.DirFS(path))
	if err != nil {
		return nil, err
	}
	defer euDEM.Close()
	return euDEM.Window(ctx, georef.Bounds{
		MinX: values[0],
		MinY: values[1],
		MaxX: values[2],
		MaxY: values[3],
	})
}

// overrideCRS replaces crs's EPSG code, keeping its kind if it is known.
func overrideCRS(crs georef.CRS, epsg int) georef.CRS {
	crs.EPSG = epsg
	switch {
	case epsg == georef.WGS84.EPSG:
		crs.Kind = georef.KindGeographic
	case crs.Kind == georef.KindUnknown:
		crs.Kind = georef.KindProjected
	}
	return crs
}

// newRows returns the report rows for foundPeaks.
func newRows(logger zerolog.Logger, raster *geotiff.Raster, foundPeaks []peaks.Peak, metersPerPixel float64) []report.Row {
	coords := make([][]float64, len(foundPeaks))
	for i, peak := range foundPeaks {
		x, y := raster.Transform.PixelCenter(peak.Coord.X, peak.Coord.Y)
		coords[i] = []float64{x, y}
	}
	if err := toWGS84(raster.CRS, coords); err != nil {
		logger.Warn().Err(err).Msg("cannot convert peaks to WGS 84")
		for _, coord := range coords {
			coord[0], coord[1] = math.NaN(), math.NaN()
		}
	}

	rows := make([]report.Row, len(foundPeaks))
	for i, peak := range foundPeaks {
		rows[i] = report.Row{
			Number:              i + 1,
			X:                   peak.Coord.X,
			Y:                   peak.Coord.Y,
			Longitude:           coords[i][0],
			Latitude:            coords[i][1],
			Height:              peak.Height,
			Prominence:          peak.Prominence,
			Dominance:           peak.Dominance * metersPerPixel,
			OrographicDominance: peak.OrographicDominance(),
			Approximate:         peak.Approximate,
		}
	}
	return rows
}

func toWGS84(crs georef.CRS, coords [][]float64) error {
	reprojector, err := geo.NewReprojector(crs)
	if err != nil {
		return err
	}
	defer reprojector.Close()
	return reprojector.ToWGS84Coords(coords)
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
