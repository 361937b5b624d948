// Package config loads device definitions from YAML or TOML files.
//
// A file lists devices by name together with their connection settings and named points:
//
//	log:
//	  level: info
//	  console: true
//	devices:
//	  - name: press
//	    vendor: fatek
//	    host: 192.168.1.10
//	    station: 1
//	    response_timeout: 500ms
//	    points:
//	      - name: running
//	        address: M0
//	        type: bool
//
// The same structure is accepted in TOML with [[devices]] tables.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-plc/device"
	"github.com/arloliu/go-plc/logger"
	"github.com/arloliu/go-plc/plc"
)

// Format is the encoding of a configuration file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf selects the format from the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: unknown config extension %q", plc.ErrInvalidParameter, filepath.Ext(path))
	}
}

// File is a configuration file.
type File struct {
	Log     LogConfig      `yaml:"log" toml:"log"`
	Devices []DeviceConfig `yaml:"devices" toml:"devices"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level   string `yaml:"level" toml:"level"`
	Console bool   `yaml:"console" toml:"console"`
	Source  bool   `yaml:"source" toml:"source"`
}

// DeviceConfig describes one PLC.
type DeviceConfig struct {
	Name    string `yaml:"name" toml:"name"`
	Vendor  string `yaml:"vendor" toml:"vendor"`
	Host    string `yaml:"host" toml:"host"`
	Port    int    `yaml:"port,omitempty" toml:"port,omitempty"`
	Station *uint8 `yaml:"station,omitempty" toml:"station,omitempty"`
	Slot    uint8  `yaml:"slot,omitempty" toml:"slot,omitempty"`

	MaxConnectors   int      `yaml:"max_connectors,omitempty" toml:"max_connectors,omitempty"`
	AcquireTimeout  Duration `yaml:"acquire_timeout,omitempty" toml:"acquire_timeout,omitempty"`
	ResponseTimeout Duration `yaml:"response_timeout,omitempty" toml:"response_timeout,omitempty"`
	DialTimeout     Duration `yaml:"dial_timeout,omitempty" toml:"dial_timeout,omitempty"`
	IdleTimeout     Duration `yaml:"idle_timeout,omitempty" toml:"idle_timeout,omitempty"`

	Points []PointConfig `yaml:"points,omitempty" toml:"points,omitempty"`
}

// PointConfig names an address of a device.
type PointConfig struct {
	Name    string    `yaml:"name" toml:"name"`
	Address string    `yaml:"address" toml:"address"`
	Type    PointType `yaml:"type" toml:"type"`
	// Count is the number of points, words or tag elements; zero means one.
	Count int `yaml:"count,omitempty" toml:"count,omitempty"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	return f, nil
}

// Parse decodes and validates a configuration.
func Parse(data []byte, format Format) (*File, error) {
	var f File

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w", plc.ErrInvalidParameter, err)
		}
	case FormatTOML:
		meta, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", plc.ErrInvalidParameter, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown keys %v", plc.ErrInvalidParameter, undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: unknown config format %q", plc.ErrInvalidParameter, format)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &f, nil
}

// Validate checks every device definition.
func (f *File) Validate() error {
	if _, err := logger.ParseLevel(f.Log.Level); err != nil {
		return fmt.Errorf("%w: log: %w", plc.ErrInvalidParameter, err)
	}

	names := make(map[string]struct{}, len(f.Devices))
	for i := range f.Devices {
		d := &f.Devices[i]
		if err := d.Validate(); err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
		if _, ok := names[d.Name]; ok {
			return fmt.Errorf("%w: devices[%d]: duplicate name %q", plc.ErrInvalidParameter, i, d.Name)
		}
		names[d.Name] = struct{}{}
	}

	return nil
}

// Device returns the device named name.
func (f *File) Device(name string) (DeviceConfig, error) {
	for _, d := range f.Devices {
		if d.Name == name {
			return d, nil
		}
	}

	return DeviceConfig{}, fmt.Errorf("%w: no device named %q", plc.ErrInvalidParameter, name)
}

// Logger builds the logger selected by the log section.
func (c LogConfig) Logger() logger.Logger {
	level, err := logger.ParseLevel(c.Level)
	if err != nil {
		level = logger.InfoLevel
	}

	return logger.NewSlog(level, c.Source, logger.WithConsole(c.Console))
}

// Validate checks the device definition.
func (d *DeviceConfig) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: device name is required", plc.ErrInvalidParameter)
	}
	if _, err := plc.ParseVendor(d.Vendor); err != nil {
		return fmt.Errorf("device %s: %w", d.Name, err)
	}
	if strings.TrimSpace(d.Host) == "" {
		return fmt.Errorf("%w: device %s: host is required", plc.ErrInvalidParameter, d.Name)
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("%w: device %s: port %d", plc.ErrInvalidParameter, d.Name, d.Port)
	}
	if d.MaxConnectors < 0 {
		return fmt.Errorf("%w: device %s: max_connectors %d", plc.ErrInvalidParameter, d.Name, d.MaxConnectors)
	}
	for _, t := range []Duration{d.AcquireTimeout, d.ResponseTimeout, d.DialTimeout, d.IdleTimeout} {
		if t < 0 {
			return fmt.Errorf("%w: device %s: negative timeout %s", plc.ErrInvalidParameter, d.Name, t)
		}
	}

	points := make(map[string]struct{}, len(d.Points))
	for i, p := range d.Points {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("device %s: points[%d]: %w", d.Name, i, err)
		}
		if _, ok := points[p.Name]; ok {
			return fmt.Errorf("%w: device %s: duplicate point %q", plc.ErrInvalidParameter, d.Name, p.Name)
		}
		points[p.Name] = struct{}{}
	}

	return nil
}

// VendorID returns the parsed vendor.
func (d DeviceConfig) VendorID() plc.Vendor {
	v, _ := plc.ParseVendor(d.Vendor)
	return v
}

// Options converts the settings into device options. Unset values keep the device defaults.
func (d DeviceConfig) Options() []device.Option {
	var opts []device.Option
	if d.Station != nil {
		opts = append(opts, device.WithStation(*d.Station))
	}
	if d.Slot != 0 {
		opts = append(opts, device.WithSlot(d.Slot))
	}
	if d.MaxConnectors > 0 {
		opts = append(opts, device.WithMaxConnectors(d.MaxConnectors))
	}
	if d.AcquireTimeout > 0 {
		opts = append(opts, device.WithAcquireTimeout(d.AcquireTimeout.Std()))
	}
	if d.ResponseTimeout > 0 {
		opts = append(opts, device.WithResponseTimeout(d.ResponseTimeout.Std()))
	}
	if d.DialTimeout > 0 {
		opts = append(opts, device.WithDialTimeout(d.DialTimeout.Std()))
	}
	if d.IdleTimeout > 0 {
		opts = append(opts, device.WithIdleTimeout(d.IdleTimeout.Std()))
	}

	return opts
}

// Open creates the device client. Extra options are applied after the configured ones.
func (d DeviceConfig) Open(ctx context.Context, extra ...device.Option) (*device.Device, error) {
	opts := append(d.Options(), extra...)
	return device.New(ctx, d.VendorID(), d.Host, d.Port, opts...)
}

// Point returns the point named name.
func (d DeviceConfig) Point(name string) (PointConfig, error) {
	for _, p := range d.Points {
		if p.Name == name {
			return p, nil
		}
	}

	return PointConfig{}, fmt.Errorf("%w: device %s has no point %q", plc.ErrInvalidParameter, d.Name, name)
}
