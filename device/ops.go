package device

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-plc/fatek"
	"github.com/arloliu/go-plc/mewtocol"
	"github.com/arloliu/go-plc/modbus"
	"github.com/arloliu/go-plc/plc"
)

// ReadBool reads count consecutive discrete points starting at address.
func (d *Device) ReadBool(ctx context.Context, address string, count int) plc.Result[[]bool] {
	var (
		values []bool
		err    error
	)

	switch d.vendor {
	case plc.VendorFatek:
		values, err = d.fatekReadBool(ctx, address, count)
	case plc.VendorPanasonic:
		values, err = d.mewtocolReadBool(ctx, address, count)
	case plc.VendorModbus:
		values, err = d.modbusReadBool(ctx, address, count)
	case plc.VendorAllenBradley:
		values, err = d.tagReadBool(ctx, address, count)
	default:
		err = fmt.Errorf("%w: vendor %s", plc.ErrUnsupported, d.vendor)
	}
	if err != nil {
		return fail[[]bool](d, "ReadBool", address, err)
	}

	return plc.OK(values)
}

// Read reads words consecutive 16-bit words starting at address and returns them as
// little-endian bytes. For Allen-Bradley tags words is the element count and the raw
// value bytes of the tag are returned.
func (d *Device) Read(ctx context.Context, address string, words int) plc.Result[[]byte] {
	var (
		data []byte
		err  error
	)

	switch d.vendor {
	case plc.VendorFatek:
		data, err = d.fatekRead(ctx, address, words)
	case plc.VendorPanasonic:
		data, err = d.mewtocolRead(ctx, address, words)
	case plc.VendorModbus:
		data, err = d.modbusRead(ctx, address, words)
	case plc.VendorAllenBradley:
		var v TagValue
		v, err = d.readTag(ctx, address, words)
		data = v.Data
	default:
		err = fmt.Errorf("%w: vendor %s", plc.ErrUnsupported, d.vendor)
	}
	if err != nil {
		return fail[[]byte](d, "Read", address, err)
	}

	return plc.OK(data)
}

// ReadUint16 reads one word at address.
func (d *Device) ReadUint16(ctx context.Context, address string) plc.Result[uint16] {
	r := d.Read(ctx, address, 1)
	if !r.Success {
		return plc.Convert[uint16](r)
	}
	if len(r.Content) < 2 {
		return fail[uint16](d, "ReadUint16", address, fmt.Errorf("%w: %d bytes for one word", plc.ErrMalformedFrame, len(r.Content)))
	}

	return plc.OK(binary.LittleEndian.Uint16(r.Content))
}

// WriteBool writes values to consecutive discrete points starting at address.
func (d *Device) WriteBool(ctx context.Context, address string, values []bool) plc.Result[struct{}] {
	var err error

	switch d.vendor {
	case plc.VendorFatek:
		err = d.fatekWriteBool(ctx, address, values)
	case plc.VendorPanasonic:
		err = d.mewtocolWriteBool(ctx, address, values)
	case plc.VendorModbus:
		err = d.modbusWriteBool(ctx, address, values)
	case plc.VendorAllenBradley:
		err = d.tagWriteBool(ctx, address, values)
	default:
		err = fmt.Errorf("%w: vendor %s", plc.ErrUnsupported, d.vendor)
	}
	if err != nil {
		return fail[struct{}](d, "WriteBool", address, err)
	}

	return plc.OK(struct{}{})
}

// Write writes little-endian words starting at address. For Allen-Bradley tags the type
// is inferred from the length of data: 1 byte SINT, 2 bytes INT, 4 bytes DINT, 8 bytes LINT.
func (d *Device) Write(ctx context.Context, address string, data []byte) plc.Result[struct{}] {
	var err error

	switch d.vendor {
	case plc.VendorFatek:
		err = d.fatekWrite(ctx, address, data)
	case plc.VendorPanasonic:
		err = d.mewtocolWrite(ctx, address, data)
	case plc.VendorModbus:
		err = d.modbusWrite(ctx, address, data)
	case plc.VendorAllenBradley:
		err = d.tagWriteInferred(ctx, address, data)
	default:
		err = fmt.Errorf("%w: vendor %s", plc.ErrUnsupported, d.vendor)
	}
	if err != nil {
		return fail[struct{}](d, "Write", address, err)
	}

	return plc.OK(struct{}{})
}

// WriteUint16 writes one word at address.
func (d *Device) WriteUint16(ctx context.Context, address string, value uint16) plc.Result[struct{}] {
	return d.Write(ctx, address, binary.LittleEndian.AppendUint16(nil, value))
}

func (d *Device) fatekExchange(ctx context.Context, req []byte, dataChars int) ([]byte, error) {
	frame, err := d.send(ctx, req, fatek.NewResponseFramer(dataChars))
	if err != nil {
		return nil, err
	}

	resp, err := fatek.DecodeResponse(frame)
	if err != nil {
		return nil, err
	}
	if resp.Station != d.cfg.station {
		return nil, fmt.Errorf("%w: response from station %d", plc.ErrMalformedFrame, resp.Station)
	}
	if len(resp.Data) != dataChars {
		return nil, fmt.Errorf("%w: %d data characters, expected %d", plc.ErrMalformedFrame, len(resp.Data), dataChars)
	}

	return resp.Data, nil
}

func (d *Device) fatekReadBool(ctx context.Context, address string, count int) ([]bool, error) {
	req, err := fatek.EncodeRead(d.cfg.station, address, count, true)
	if err != nil {
		return nil, err
	}

	data, err := d.fatekExchange(ctx, req, fatek.ReadDataChars(count, true))
	if err != nil {
		return nil, err
	}

	return fatek.ParseBools(data)
}

func (d *Device) fatekRead(ctx context.Context, address string, words int) ([]byte, error) {
	req, err := fatek.EncodeRead(d.cfg.station, address, words, false)
	if err != nil {
		return nil, err
	}

	data, err := d.fatekExchange(ctx, req, fatek.ReadDataChars(words, false))
	if err != nil {
		return nil, err
	}

	return fatek.ParseWords(data)
}

func (d *Device) fatekWriteBool(ctx context.Context, address string, values []bool) error {
	req, err := fatek.EncodeWriteBool(d.cfg.station, address, values)
	if err != nil {
		return err
	}
	_, err = d.fatekExchange(ctx, req, 0)

	return err
}

func (d *Device) fatekWrite(ctx context.Context, address string, data []byte) error {
	req, err := fatek.EncodeWriteBytes(d.cfg.station, address, data)
	if err != nil {
		return err
	}
	_, err = d.fatekExchange(ctx, req, 0)

	return err
}

func (d *Device) mewtocolExchange(ctx context.Context, req []byte, dataChars int) ([]byte, error) {
	frame, err := d.send(ctx, req, mewtocol.NewResponseFramer(dataChars))
	if err != nil {
		return nil, err
	}

	resp, err := mewtocol.DecodeResponse(frame)
	if err != nil {
		return nil, err
	}
	if resp.Station != d.cfg.station {
		return nil, fmt.Errorf("%w: response from station %d", plc.ErrMalformedFrame, resp.Station)
	}
	if len(resp.Data) != dataChars {
		return nil, fmt.Errorf("%w: %d data characters, expected %d", plc.ErrMalformedFrame, len(resp.Data), dataChars)
	}

	return resp.Data, nil
}

func (d *Device) mewtocolReadBool(ctx context.Context, address string, count int) ([]bool, error) {
	var (
		req []byte
		err error
	)
	if count == 1 {
		req, err = mewtocol.EncodeReadBool(d.cfg.station, address)
	} else {
		req, err = mewtocol.EncodeReadBools(d.cfg.station, address, count)
	}
	if err != nil {
		return nil, err
	}

	data, err := d.mewtocolExchange(ctx, req, count)
	if err != nil {
		return nil, err
	}

	return mewtocol.ParseBools(data)
}

func (d *Device) mewtocolRead(ctx context.Context, address string, words int) ([]byte, error) {
	req, err := mewtocol.EncodeRead(d.cfg.station, address, words)
	if err != nil {
		return nil, err
	}

	data, err := d.mewtocolExchange(ctx, req, 4*words)
	if err != nil {
		return nil, err
	}

	return mewtocol.ParseWords(data)
}

func (d *Device) mewtocolWriteBool(ctx context.Context, address string, values []bool) error {
	var (
		req []byte
		err error
	)
	if len(values) == 1 {
		req, err = mewtocol.EncodeWriteBool(d.cfg.station, address, values[0])
	} else {
		req, err = mewtocol.EncodeWriteBools(d.cfg.station, address, values)
	}
	if err != nil {
		return err
	}
	_, err = d.mewtocolExchange(ctx, req, 0)

	return err
}

func (d *Device) mewtocolWrite(ctx context.Context, address string, data []byte) error {
	req, err := mewtocol.EncodeWrite(d.cfg.station, address, data)
	if err != nil {
		return err
	}
	_, err = d.mewtocolExchange(ctx, req, 0)

	return err
}

func (d *Device) modbusExchange(ctx context.Context, req modbus.Request) (modbus.Response, error) {
	frame, err := d.send(ctx, req.Encode(), modbus.Framer{})
	if err != nil {
		return modbus.Response{}, err
	}

	return d.modbus.Check(req, frame)
}

func (d *Device) modbusReadBool(ctx context.Context, address string, count int) ([]bool, error) {
	req, err := d.modbus.Read(address, count, true)
	if err != nil {
		return nil, err
	}

	resp, err := d.modbusExchange(ctx, req)
	if err != nil {
		return nil, err
	}

	return modbus.ParseBits(resp.Data, count)
}

func (d *Device) modbusRead(ctx context.Context, address string, words int) ([]byte, error) {
	req, err := d.modbus.Read(address, words, false)
	if err != nil {
		return nil, err
	}

	resp, err := d.modbusExchange(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := modbus.ParseRegisters(resp.Data)
	if err != nil {
		return nil, err
	}
	if len(data) != 2*words {
		return nil, fmt.Errorf("%w: %d register bytes, expected %d", plc.ErrMalformedFrame, len(data), 2*words)
	}

	return data, nil
}

func (d *Device) modbusWriteBool(ctx context.Context, address string, values []bool) error {
	req, err := d.modbus.WriteBools(address, values)
	if err != nil {
		return err
	}
	_, err = d.modbusExchange(ctx, req)

	return err
}

func (d *Device) modbusWrite(ctx context.Context, address string, data []byte) error {
	req, err := d.modbus.WriteBytes(address, data)
	if err != nil {
		return err
	}
	_, err = d.modbusExchange(ctx, req)

	return err
}
