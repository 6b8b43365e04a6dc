// Package config loads application level settings, watermarking and class
// weight overrides, from an optional config file and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Watermark holds the text watermark settings for output frames
type Watermark struct {
	Enabled   bool    `mapstructure:"enabled"`
	Text      string  `mapstructure:"text"`
	Position  string  `mapstructure:"position" validate:"oneof=top-left top-right bottom-left bottom-right center"`
	Opacity   float64 `mapstructure:"opacity" validate:"gte=0,lte=1"`
	FontScale float64 `mapstructure:"font_scale" validate:"gt=0"`
	Thickness int     `mapstructure:"thickness" validate:"gt=0"`
	Margin    int     `mapstructure:"margin" validate:"gte=0"`
}

// Config is the application configuration.  Engine tuning is passed on the
// command line, this file covers the settings that rarely change per run.
type Config struct {
	// FFmpegPath overrides the ffmpeg binary location
	FFmpegPath string `mapstructure:"ffmpeg_path"`
	// OnnxLibrary overrides the ONNX Runtime shared library location
	OnnxLibrary string `mapstructure:"onnx_library"`
	// ClassWeights overrides individual entries of the default class
	// weight mapping
	ClassWeights map[string]float64 `mapstructure:"class_weights"`
	// Watermark settings for output frames
	Watermark Watermark `mapstructure:"watermark"`
}

// Load reads the configuration from the given file, or from reframer.yaml
// in the working directory when path is empty.  A missing file yields the
// defaults.
func Load(path string) (*Config, error) {

	v := viper.New()

	v.SetDefault("watermark.enabled", false)
	v.SetDefault("watermark.text", "BETA")
	v.SetDefault("watermark.position", "bottom-right")
	v.SetDefault("watermark.opacity", 0.3)
	v.SetDefault("watermark.font_scale", 1.0)
	v.SetDefault("watermark.thickness", 2)
	v.SetDefault("watermark.margin", 20)

	v.SetEnvPrefix("REFRAMER")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reframer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError

		// only an explicitly named file is required to exist
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		slog.Info("loaded configuration", "file", v.ConfigFileUsed())
	}

	cfg := Config{}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
