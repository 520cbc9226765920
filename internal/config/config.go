// Package config loads server and pipeline settings with viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ironsheep/stamp-tools-mcp/internal/detection"
	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
	"github.com/ironsheep/stamp-tools-mcp/internal/stamp"
)

// EnvPrefix prefixes every environment override, e.g.
// STAMP_MCP_STAMP_HUE_TOLERANCE.
const EnvPrefix = "STAMP_MCP"

// Config is the full configuration file.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Upload UploadConfig `mapstructure:"upload"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Stamp  StampConfig  `mapstructure:"stamp"`
}

// ServerConfig configures the HTTP server and logging.
type ServerConfig struct {
	Mode         string        `mapstructure:"mode"` // debug or release
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	LogLevel     string        `mapstructure:"log_level"`
}

// UploadConfig limits HTTP uploads.
type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// RedisConfig configures the optional result cache.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StampConfig mirrors stamp.Options in flat, file-friendly form.
type StampConfig struct {
	DefaultColor string `mapstructure:"default_color"`
	FillColor    string `mapstructure:"fill_color"`
	Strategy     string `mapstructure:"strategy"`
	Mode         string `mapstructure:"mode"`

	ClassifyMode   string  `mapstructure:"classify_mode"`
	HueTolerance   int     `mapstructure:"hue_tolerance"`
	SaturationMin  int     `mapstructure:"saturation_min"`
	SaturationMax  int     `mapstructure:"saturation_max"`
	ValueMin       int     `mapstructure:"value_min"`
	ValueMax       int     `mapstructure:"value_max"`
	RedFloor       int     `mapstructure:"red_floor"`
	RatioThreshold float64 `mapstructure:"ratio_threshold"`
	DiffThreshold  int     `mapstructure:"diff_threshold"`

	MinRadiusFraction    float64 `mapstructure:"min_radius_fraction"`
	MaxRadiusFraction    float64 `mapstructure:"max_radius_fraction"`
	MinDistFraction      float64 `mapstructure:"min_dist_fraction"`
	EdgeThreshold        float64 `mapstructure:"edge_threshold"`
	AccumulatorThreshold int     `mapstructure:"accumulator_threshold"`
	MaxResults           int     `mapstructure:"max_results"`
	BlurSigma            float64 `mapstructure:"blur_sigma"`

	CropScale     float64 `mapstructure:"crop_scale"`
	CropMargin    int     `mapstructure:"crop_margin"`
	EdgeTolerance float64 `mapstructure:"edge_tolerance"`
}

// Load reads the YAML file at path over the defaults and applies
// STAMP_MCP_* environment overrides. An empty path or a missing file yields
// the defaults; a file that exists but does not parse is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.log_level", "")

	v.SetDefault("upload.max_size", 5*1024*1024)
	v.SetDefault("upload.allowed_types", []string{
		"image/png", "image/jpeg", "image/gif", "image/bmp", "image/tiff", "image/webp",
	})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	classify := imaging.DefaultClassifyOptions()
	hough := detection.DefaultHoughParams()

	v.SetDefault("stamp.default_color", "#ff0000")
	v.SetDefault("stamp.fill_color", "")
	v.SetDefault("stamp.strategy", string(stamp.StrategyMultiCircle))
	v.SetDefault("stamp.mode", string(stamp.ModeFlatFill))

	v.SetDefault("stamp.classify_mode", string(classify.Mode))
	v.SetDefault("stamp.hue_tolerance", classify.HueTolerance)
	v.SetDefault("stamp.saturation_min", classify.SaturationRange.Min)
	v.SetDefault("stamp.saturation_max", classify.SaturationRange.Max)
	v.SetDefault("stamp.value_min", classify.ValueRange.Min)
	v.SetDefault("stamp.value_max", classify.ValueRange.Max)
	v.SetDefault("stamp.red_floor", classify.RGB.Floor)
	v.SetDefault("stamp.ratio_threshold", classify.RGB.Ratio)
	v.SetDefault("stamp.diff_threshold", classify.RGB.Diff)

	v.SetDefault("stamp.min_radius_fraction", hough.MinRadiusFraction)
	v.SetDefault("stamp.max_radius_fraction", hough.MaxRadiusFraction)
	v.SetDefault("stamp.min_dist_fraction", hough.MinDistFraction)
	v.SetDefault("stamp.edge_threshold", hough.EdgeThreshold)
	v.SetDefault("stamp.accumulator_threshold", hough.AccumulatorThreshold)
	v.SetDefault("stamp.max_results", hough.MaxResults)
	v.SetDefault("stamp.blur_sigma", imaging.DefaultBlurSigma)

	v.SetDefault("stamp.crop_scale", imaging.DefaultCropScale)
	v.SetDefault("stamp.crop_margin", detection.DefaultBlobMargin)
	v.SetDefault("stamp.edge_tolerance", 0.0)
}

// Options converts the section into pipeline options and validates them.
func (s StampConfig) Options() (stamp.Options, error) {
	opts := stamp.Options{
		Strategy: stamp.Strategy(s.Strategy),
		Mode:     imaging.CompositeMode(s.Mode),
		Classify: imaging.ClassifyOptions{
			Mode:            imaging.ClassifyMode(strings.ToLower(s.ClassifyMode)),
			HueTolerance:    s.HueTolerance,
			SaturationRange: imaging.Range{Min: s.SaturationMin, Max: s.SaturationMax},
			ValueRange:      imaging.Range{Min: s.ValueMin, Max: s.ValueMax},
			RGB: imaging.RGBThresholds{
				Floor: s.RedFloor,
				Ratio: s.RatioThreshold,
				Diff:  s.DiffThreshold,
			},
		},
		Hough: detection.HoughParams{
			MinRadiusFraction:    s.MinRadiusFraction,
			MaxRadiusFraction:    s.MaxRadiusFraction,
			MinDistFraction:      s.MinDistFraction,
			EdgeThreshold:        s.EdgeThreshold,
			AccumulatorThreshold: s.AccumulatorThreshold,
			MaxResults:           s.MaxResults,
		},
		BlurSigma:     s.BlurSigma,
		CropScale:     s.CropScale,
		CropMargin:    s.CropMargin,
		EdgeTolerance: s.EdgeTolerance,
	}

	if s.FillColor != "" {
		fill, err := imaging.ParseHexColor(s.FillColor)
		if err != nil {
			return stamp.Options{}, fmt.Errorf("fill_color: %w", err)
		}
		opts.FillColor = &fill
	}

	if err := opts.Validate(); err != nil {
		return stamp.Options{}, err
	}
	return opts, nil
}

// TargetColor parses DefaultColor.
func (s StampConfig) TargetColor() (imaging.ColorSpec, error) {
	c, err := imaging.ParseHexColor(s.DefaultColor)
	if err != nil {
		return imaging.ColorSpec{}, fmt.Errorf("default_color: %w", err)
	}
	return c, nil
}
