package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/twpayne/go-peaks/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load("", nil)

			convey.Convey("Then it should use the himalaya preset", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Preset, convey.ShouldEqual, "himalaya")
				convey.So(cfg.Prominence, convey.ShouldEqual, 500.0)
				convey.So(cfg.Dominance, convey.ShouldEqual, 2000.0)
				convey.So(cfg.BorderWidth, convey.ShouldEqual, 50)
				convey.So(cfg.Exact, convey.ShouldBeTrue)
				convey.So(cfg.Concurrency, convey.ShouldEqual, runtime.GOMAXPROCS(0))
				convey.So(cfg.Format, convey.ShouldEqual, config.FormatTable)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PEAKFINDER_PRESET", "uiaa")
			_ = os.Setenv("PEAKFINDER_BORDER_WIDTH", "10")
			_ = os.Setenv("PEAKFINDER_SADDLE_TIMEOUT", "2s")
			_ = os.Setenv("PEAKFINDER_EXACT", "false")

			cfg, err := config.Load("", nil)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Prominence, convey.ShouldEqual, 30.0)
				convey.So(cfg.Dominance, convey.ShouldEqual, 100.0)
				convey.So(cfg.BorderWidth, convey.ShouldEqual, 10)
				convey.So(cfg.SaddleTimeout, convey.ShouldEqual, 2*time.Second)
				convey.So(cfg.Exact, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := filepath.Join(t.TempDir(), "peakfinder.yaml")
			yamlContent := `
preset: cartographic
dominance: 750
crs: 25832
format: csv
`
			convey.So(os.WriteFile(path, []byte(yamlContent), 0o600), convey.ShouldBeNil)
			_ = os.Setenv(config.EnvConfig, path)

			cfg, err := config.Load("", nil)

			convey.Convey("Then explicit values should override the preset", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Prominence, convey.ShouldEqual, 200.0)
				convey.So(cfg.Dominance, convey.ShouldEqual, 750.0)
				convey.So(cfg.CRS, convey.ShouldEqual, 25832)
				convey.So(cfg.Format, convey.ShouldEqual, config.FormatCSV)
			})

			convey.Convey("Then overrides should take precedence", func() {
				cfg, err := config.Load(path, map[string]any{
					"prominence": 42.0,
					"format":     config.FormatTable,
				})
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Prominence, convey.ShouldEqual, 42.0)
				convey.So(cfg.Dominance, convey.ShouldEqual, 750.0)
				convey.So(cfg.Format, convey.ShouldEqual, config.FormatTable)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)

			convey.Convey("Then it should fail to load", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config is invalid", func() {
			for _, overrides := range []map[string]any{
				{"preset": "everest"},
				{"prominence": -1.0},
				{"orographic_dominance": 101.0},
				{"concurrency": 0},
				{"format": "xml"},
				{"log_level": "loud"},
			} {
				_, err := config.Load("", overrides)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		config.EnvConfig,
		"PEAKFINDER_PRESET",
		"PEAKFINDER_BORDER_WIDTH",
		"PEAKFINDER_SADDLE_TIMEOUT",
		"PEAKFINDER_EXACT",
	} {
		_ = os.Unsetenv(key)
	}
}
