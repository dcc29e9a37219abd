// Package config loads the classifier configuration: the server, logging and
// engine settings plus the screen variant (image size, threshold, resources,
// copy text).
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
)

// EnvPrefix is the prefix of environment overrides, e.g. BREED_VARIANT_THRESHOLD.
const EnvPrefix = "BREED_"

// Layouts understood by the preprocessing pipeline.
const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig `koanf:"server"`
	Log     LogConfig    `koanf:"log"`
	Engine  EngineConfig `koanf:"engine"`
	Camera  CameraConfig `koanf:"camera"`
	Variant Variant      `koanf:"variant"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	MaxUploadBytes  int64         `koanf:"maxuploadbytes"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout"`
}

// LogConfig configures logrus and, when File is set, lumberjack rotation.
type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"maxsizemb"`
	MaxBackups int    `koanf:"maxbackups"`
	MaxAgeDays int    `koanf:"maxagedays"`
	Compress   bool   `koanf:"compress"`
}

// EngineConfig configures the ONNX runtime.
type EngineConfig struct {
	// Library is the path of the onnxruntime shared library. Empty uses the
	// runtime's default lookup.
	Library string `koanf:"library"`
	// Threads sets intra-op threads. Zero keeps the default execution options.
	Threads int `koanf:"threads"`
}

// CameraConfig configures the external capture command.
type CameraConfig struct {
	Command []string      `koanf:"command"`
	Timeout time.Duration `koanf:"timeout"`
}

// Variant parameterizes the single classification screen.
type Variant struct {
	Name       string `koanf:"name"`
	ImageSize  int    `koanf:"imagesize"`
	NumClasses int    `koanf:"numclasses"`
	// Threshold is nil for variants that accept every arg-max.
	Threshold   *float32 `koanf:"threshold"`
	Model       string   `koanf:"model"`
	Labels      string   `koanf:"labels"`
	Layout      string   `koanf:"layout"`
	InputName   string   `koanf:"inputname"`
	OutputName  string   `koanf:"outputname"`
	MaxInFlight int      `koanf:"maxinflight"`
	Copy        Copy     `koanf:"copy"`
}

// Copy is the user-facing text of a variant.
type Copy struct {
	Title        string `koanf:"title"`
	InitError    string `koanf:"initerror"`
	Unknown      string `koanf:"unknown"`
	UnknownLabel string `koanf:"unknownlabel"`
	Gallery      string `koanf:"gallery"`
	Camera       string `koanf:"camera"`
	Classify     string `koanf:"classify"`
}

var defaults = map[string]interface{}{
	"server.port":               8080,
	"server.maxuploadbytes":     10 << 20,
	"server.shutdowntimeout":    "10s",
	"log.level":                 "info",
	"log.format":                "text",
	"log.maxsizemb":             10,
	"log.maxbackups":            2,
	"log.maxagedays":            28,
	"log.compress":              true,
	"camera.timeout":            "30s",
	"variant.imagesize":         224,
	"variant.model":             "assets/model.onnx",
	"variant.labels":            "assets/labels.txt",
	"variant.layout":            LayoutNHWC,
	"variant.inputname":         "input",
	"variant.outputname":        "output",
	"variant.copy.title":        "Dog Breed Classifier",
	"variant.copy.initerror":    "Initialization error!",
	"variant.copy.unknownlabel": "-",
	"variant.copy.gallery":      "Gallery",
	"variant.copy.camera":       "Camera",
	"variant.copy.classify":     "Classify",
}

// Load builds the configuration from the preset defaults, the optional YAML
// file at path, BREED_* environment variables and overrides (flattened keys
// such as "variant.name"), each layer winning over the previous one.
func Load(path string, overrides map[string]interface{}) (*Config, error) {
	user := koanf.New(".")
	if path != "" {
		if err := user.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load config file %s", path)
		}
	}
	if err := user.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}
	if len(overrides) > 0 {
		if err := user.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, "load overrides")
		}
	}

	name := user.String("variant.name")
	if name == "" {
		name = DefaultVariant
	}
	preset, ok := presets[name]
	if !ok {
		return nil, errors.Errorf("unknown variant %q", name)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}
	if err := k.Load(confmap.Provider(preset, "."), nil); err != nil {
		return nil, errors.Wrapf(err, "load variant %s", name)
	}
	if err := k.Merge(user); err != nil {
		return nil, errors.Wrap(err, "merge config")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.Variant.Name = name

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps BREED_VARIANT_THRESHOLD to variant.threshold. Values are kept
// as strings; list fields are split on commas when decoded.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

// Validate checks the fields the screen and engine depend on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("invalid server port %d", c.Server.Port)
	}
	return c.Variant.Validate()
}

// Validate checks a variant on its own.
func (v *Variant) Validate() error {
	if v.ImageSize <= 0 {
		return errors.Errorf("variant %s: image size must be positive, got %d", v.Name, v.ImageSize)
	}
	if v.NumClasses < 0 {
		return errors.Errorf("variant %s: negative class count %d", v.Name, v.NumClasses)
	}
	if v.Threshold != nil && (*v.Threshold < 0 || *v.Threshold >= 1) {
		return errors.Errorf("variant %s: threshold %v outside [0,1)", v.Name, *v.Threshold)
	}
	if v.Layout != LayoutNHWC && v.Layout != LayoutNCHW {
		return errors.Errorf("variant %s: unknown layout %q", v.Name, v.Layout)
	}
	if v.Model == "" || v.Labels == "" {
		return errors.Errorf("variant %s: model and labels paths are required", v.Name)
	}
	if v.MaxInFlight < 0 {
		return errors.Errorf("variant %s: negative max in-flight %d", v.Name, v.MaxInFlight)
	}
	return nil
}

// HasThreshold reports whether low-confidence results become unknown.
func (v *Variant) HasThreshold() bool {
	return v.Threshold != nil
}
