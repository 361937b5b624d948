package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-plc/config"
	"github.com/arloliu/go-plc/device"
	"github.com/arloliu/go-plc/logger"
	"github.com/arloliu/go-plc/plc"
)

// targetFlags select the device an operation talks to.
type targetFlags struct {
	configPath string
	deviceName string

	vendor  string
	host    string
	port    int
	station uint8
	slot    uint8
	timeout time.Duration

	logLevel string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Configuration file (.yaml, .yml or .toml)")
	pf.StringVarP(&f.deviceName, "device", "d", "", "Device name in the configuration file")
	pf.StringVar(&f.vendor, "vendor", "", "Vendor: fatek, panasonic, ab or modbus")
	pf.StringVar(&f.host, "host", "", "Device host name or IP address")
	pf.IntVar(&f.port, "port", 0, "Device TCP port (0 selects the vendor default)")
	pf.Uint8Var(&f.station, "station", 1, "Station number or Modbus unit id")
	pf.Uint8Var(&f.slot, "slot", 0, "Allen-Bradley controller slot")
	pf.DurationVar(&f.timeout, "timeout", 3*time.Second, "Response timeout")
	pf.StringVar(&f.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
}

// target is an opened device together with the configured points, if any.
type target struct {
	dev    *device.Device
	points config.DeviceConfig
}

func (f *targetFlags) open(ctx context.Context, stderr io.Writer) (*target, error) {
	level, err := logger.ParseLevel(f.logLevel)
	if err != nil {
		return nil, err
	}
	l := logger.NewSlog(level, false, logger.WithConsole(true), logger.WithOutput(stderr))

	if f.configPath != "" {
		return f.openConfigured(ctx, l)
	}

	if f.vendor == "" {
		return nil, errors.New("required flag --vendor or --config not set")
	}
	if f.host == "" {
		return nil, errors.New("required flag --host not set")
	}
	vendor, err := plc.ParseVendor(f.vendor)
	if err != nil {
		return nil, err
	}

	dev, err := device.New(ctx, vendor, f.host, f.port,
		device.WithStation(f.station),
		device.WithSlot(f.slot),
		device.WithMaxConnectors(1),
		device.WithResponseTimeout(f.timeout),
		device.WithLogger(l),
	)
	if err != nil {
		return nil, err
	}

	return &target{dev: dev}, nil
}

func (f *targetFlags) openConfigured(ctx context.Context, l logger.Logger) (*target, error) {
	file, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	name := f.deviceName
	if name == "" {
		if len(file.Devices) != 1 {
			return nil, errors.New("required flag --device not set")
		}
		name = file.Devices[0].Name
	}

	dc, err := file.Device(name)
	if err != nil {
		return nil, err
	}

	dev, err := dc.Open(ctx, device.WithLogger(l))
	if err != nil {
		return nil, err
	}

	return &target{dev: dev, points: dc}, nil
}

// resolve returns the address, type and count of a configured point, or of name itself when
// it is not a point. An empty type or a zero count falls back to the point definition.
func (t *target) resolve(name string, typ config.PointType, count int) (string, config.PointType, int) {
	address := name
	if p, err := t.points.Point(name); err == nil {
		address = p.Address
		if typ == "" {
			typ = p.Kind()
		}
		if count == 0 {
			count = p.Elements()
		}
	}
	if typ == "" {
		typ = config.PointUint16
	}

	return address, typ, max(count, 1)
}
