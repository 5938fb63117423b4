// Package config loads the frameloop settings from TOML or YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"presenter/src/platform/window"
	"presenter/src/render"
	"presenter/src/render/vkdevice"
)

var ErrUnknownFormat = errors.New("config: unknown file format")

type Config struct {
	Window window.Config   `toml:"window" yaml:"window"`
	Device vkdevice.Config `toml:"device" yaml:"device"`
	Render render.Config   `toml:"render" yaml:"render"`
	Log    Log             `toml:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		Window: window.DefaultConfig(),
		Device: vkdevice.DefaultConfig(),
		Render: render.DefaultConfig(),
		Log:    DefaultLog(),
	}
}

func (c *Config) Validate() error {
	return errors.Join(
		c.Window.Validate(),
		c.Render.Validate(),
		c.Log.Validate(),
	)
}

// Load reads path over the defaults. The decoder is picked by extension:
// .toml, .yaml or .yml. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Decode(bytes.NewReader(data), filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses r in the format named by ext and validates the result.
func Decode(r io.Reader, ext string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, err
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) EncodeTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func (c Config) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
