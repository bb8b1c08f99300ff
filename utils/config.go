package utils

import (
	"fmt"
	"io/ioutil"
	"math"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultMethod       = "percentile-rescale"
	DefaultPercentile   = 2.0
	DefaultClipLimit    = 0.03
	DefaultCacheDir     = "data"
	DefaultCacheExt     = "tif"
	DefaultOutput       = "rgb.tif"
	DefaultOutputExt    = "tif"
	DefaultFillMask     = "qa == 1"
	DefaultBaseURL      = "https://landsat-pds.s3.amazonaws.com"
	DefaultFetchTimeout = 10 * time.Minute
)

// RequiredRoles are the band roles every composite needs. "qa" is optional.
var RequiredRoles = []string{"red", "green", "blue"}

// NormalizationConfig selects and parameterises the per-band intensity
// normalization. Parameters of the method not selected are ignored.
type NormalizationConfig struct {
	Method     string  `yaml:"method"`
	Percentile float64 `yaml:"percentile"`
	ClipLimit  float64 `yaml:"clip_limit"`
	KernelSize int     `yaml:"kernel_size"`
	NBins      int     `yaml:"nbins"`
}

// SceneConfig locates the bands of one scene, either explicitly per role
// or through a Landsat-8 Collection-1 product ID.
type SceneConfig struct {
	SceneID string            `yaml:"scene_id"`
	BaseURL string            `yaml:"base_url"`
	Roles   []string          `yaml:"roles"`
	Bands   map[string]string `yaml:"bands"`
}

// Config is the configuration of one composer run.
type Config struct {
	Scene         SceneConfig         `yaml:"scene"`
	CacheDir      string              `yaml:"cache_dir"`
	CacheExt      string              `yaml:"cache_ext"`
	Output        string              `yaml:"output"`
	OutputExt     string              `yaml:"output_ext"`
	Quicklook     string              `yaml:"quicklook"`
	SourceVRT     string              `yaml:"source_vrt"`
	FillMask      string              `yaml:"fill_mask"`
	Normalization NormalizationConfig `yaml:"normalization"`
	MetricsLog    string              `yaml:"metrics_log"`
	FetchTimeout  time.Duration       `yaml:"fetch_timeout"`
	Verbose       bool                `yaml:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		Scene: SceneConfig{
			BaseURL: DefaultBaseURL,
			Roles:   []string{"red", "green", "blue", "qa"},
		},
		CacheDir:  DefaultCacheDir,
		CacheExt:  DefaultCacheExt,
		Output:    DefaultOutput,
		OutputExt: DefaultOutputExt,
		FillMask:  DefaultFillMask,
		Normalization: NormalizationConfig{
			Method:     DefaultMethod,
			Percentile: DefaultPercentile,
			ClipLimit:  DefaultClipLimit,
		},
		FetchTimeout: DefaultFetchTimeout,
	}
}

// LoadConfigFile reads a YAML document over the defaults, so keys absent
// from the file keep their default value and explicit zeros are kept.
func (config *Config) LoadConfigFile(configFile string) error {
	*config = DefaultConfig()
	cfg, err := ioutil.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("Error while reading config file: %s. Error: %w", configFile, err)
	}

	err = yaml.UnmarshalStrict(cfg, config)
	if err != nil {
		return fmt.Errorf("Error at YAML parsing config document: %s. Error: %w", configFile, err)
	}
	return nil
}

// OutputPath is Output with OutputExt appended when Output has no extension.
func (config *Config) OutputPath() string {
	if filepath.Ext(config.Output) != "" || config.OutputExt == "" {
		return config.Output
	}
	return config.Output + "." + strings.TrimPrefix(config.OutputExt, ".")
}

// Validate checks the parts of the configuration that do not depend on the
// normalization method; method parameters are checked where the method is
// built.
func (config *Config) Validate() error {
	if strings.TrimSpace(config.Scene.SceneID) == "" && len(config.Scene.Bands) == 0 {
		return &ConfigError{Field: "scene", Value: "{}", Reason: "either scene_id or bands must be set"}
	}
	if len(config.Scene.Bands) > 0 {
		for _, role := range RequiredRoles {
			if strings.TrimSpace(config.Scene.Bands[role]) == "" {
				return &ConfigError{Field: "scene.bands", Value: role, Reason: "required band role is missing"}
			}
		}
	}
	if strings.TrimSpace(config.Output) == "" {
		return &ConfigError{Field: "output", Value: `""`, Reason: "output path is required"}
	}
	if _, err := DriverForPath(config.OutputPath()); err != nil {
		return err
	}
	if strings.ContainsAny(config.CacheExt, `/\`) || strings.TrimPrefix(config.CacheExt, ".") == "" {
		return &ConfigError{Field: "cache_ext", Value: fmt.Sprintf("%q", config.CacheExt), Reason: "must be a plain file extension"}
	}
	if config.FetchTimeout < 0 {
		return &ConfigError{Field: "fetch_timeout", Value: config.FetchTimeout, Reason: "must not be negative"}
	}
	if math.IsNaN(config.Normalization.Percentile) || math.IsNaN(config.Normalization.ClipLimit) {
		return &ConfigError{Field: "normalization", Value: "NaN", Reason: "parameters must be numbers"}
	}
	return nil
}
