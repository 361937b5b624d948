package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/go-plc/cip"
	"github.com/arloliu/go-plc/config"
	"github.com/arloliu/go-plc/device"
	"github.com/arloliu/go-plc/plc"
)

// pointTag reads or writes an Allen-Bradley tag with its own type code.
const pointTag config.PointType = "tag"

func parseType(s string) (config.PointType, error) {
	if s == "" {
		return "", nil
	}
	if strings.EqualFold(s, string(pointTag)) {
		return pointTag, nil
	}

	var t config.PointType
	if err := t.UnmarshalText([]byte(s)); err != nil {
		return "", err
	}

	return t, nil
}

// readValues reads count values of typ at address and formats them.
func readValues(ctx context.Context, dev *device.Device, address string, typ config.PointType, count int) ([]string, error) {
	switch typ {
	case config.PointBool:
		values, err := dev.ReadBool(ctx, address, count).Unwrap()
		if err != nil {
			return nil, err
		}
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = strconv.FormatBool(v)
		}

		return out, nil

	case pointTag:
		v, err := dev.ReadTag(ctx, address, count).Unwrap()
		if err != nil {
			return nil, err
		}

		return []string{fmt.Sprintf("%s % X", cip.TypeName(v.Type), v.Data)}, nil
	}

	// tags are read by element, everything else by word
	n := count * typ.Words()
	if dev.Vendor() == plc.VendorAllenBradley {
		n = count
	}
	data, err := dev.Read(ctx, address, n).Unwrap()
	if err != nil {
		return nil, err
	}

	return formatWords(data, typ), nil
}

func formatWords(data []byte, typ config.PointType) []string {
	size := 2 * typ.Words()

	var out []string
	for i := 0; i+size <= len(data); i += size {
		p := data[i : i+size]
		switch typ {
		case config.PointUint16:
			out = append(out, strconv.FormatUint(uint64(binary.LittleEndian.Uint16(p)), 10))
		case config.PointInt16:
			out = append(out, strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(p))), 10))
		case config.PointUint32:
			out = append(out, strconv.FormatUint(uint64(binary.LittleEndian.Uint32(p)), 10))
		case config.PointInt32:
			out = append(out, strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(p))), 10))
		case config.PointFloat32:
			out = append(out, strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(p))), 'g', -1, 32))
		default:
			out = append(out, fmt.Sprintf("0x%04X", binary.LittleEndian.Uint16(p)))
		}
	}

	return out
}

// writeValues parses args as values of typ and writes them at address.
func writeValues(ctx context.Context, dev *device.Device, address string, typ config.PointType, args []string) error {
	switch typ {
	case config.PointBool:
		values := make([]bool, len(args))
		for i, a := range args {
			v, err := strconv.ParseBool(a)
			if err != nil {
				return fmt.Errorf("value %q: %w", a, err)
			}
			values[i] = v
		}

		return dev.WriteBool(ctx, address, values).Err()

	case pointTag:
		return errors.New("tag writes need a typed value such as --type int32")
	}

	data, err := encodeWords(args, typ)
	if err != nil {
		return err
	}

	return dev.Write(ctx, address, data).Err()
}

func encodeWords(args []string, typ config.PointType) ([]byte, error) {
	var out []byte
	for _, a := range args {
		switch typ {
		case config.PointUint16, config.PointWords:
			v, err := strconv.ParseUint(a, 0, 16)
			if err != nil {
				return nil, fmt.Errorf("value %q: %w", a, err)
			}
			out = binary.LittleEndian.AppendUint16(out, uint16(v))
		case config.PointInt16:
			v, err := strconv.ParseInt(a, 0, 16)
			if err != nil {
				return nil, fmt.Errorf("value %q: %w", a, err)
			}
			out = binary.LittleEndian.AppendUint16(out, uint16(v))
		case config.PointUint32:
			v, err := strconv.ParseUint(a, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("value %q: %w", a, err)
			}
			out = binary.LittleEndian.AppendUint32(out, uint32(v))
		case config.PointInt32:
			v, err := strconv.ParseInt(a, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("value %q: %w", a, err)
			}
			out = binary.LittleEndian.AppendUint32(out, uint32(v))
		case config.PointFloat32:
			v, err := strconv.ParseFloat(a, 32)
			if err != nil {
				return nil, fmt.Errorf("value %q: %w", a, err)
			}
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(v)))
		default:
			return nil, fmt.Errorf("cannot write %s values", typ)
		}
	}

	return out, nil
}
