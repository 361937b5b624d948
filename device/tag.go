package device

import (
	"context"
	"fmt"

	"github.com/arloliu/go-plc/cip"
	"github.com/arloliu/go-plc/plc"
	"github.com/arloliu/go-plc/transport"
)

// TagValue is the value of an Allen-Bradley tag.
type TagValue struct {
	// Type is the CIP data type code, such as cip.TypeDINT.
	Type uint16
	// Data holds the little-endian value bytes of all elements.
	Data []byte
}

// ReadTag reads elements elements of an Allen-Bradley tag.
func (d *Device) ReadTag(ctx context.Context, tag string, elements int) plc.Result[TagValue] {
	v, err := d.readTag(ctx, tag, elements)
	if err != nil {
		return fail[TagValue](d, "ReadTag", tag, err)
	}

	return plc.OK(v)
}

// WriteTag writes elements elements of type typeCode to an Allen-Bradley tag.
func (d *Device) WriteTag(ctx context.Context, tag string, typeCode uint16, elements int, data []byte) plc.Result[struct{}] {
	if err := d.writeTag(ctx, tag, typeCode, elements, data); err != nil {
		return fail[struct{}](d, "WriteTag", tag, err)
	}

	return plc.OK(struct{}{})
}

func (d *Device) requireTags() error {
	if d.vendor != plc.VendorAllenBradley {
		return fmt.Errorf("%w: tag access on %s", plc.ErrUnsupported, d.vendor)
	}

	return nil
}

func elementCount(elements int) (uint16, error) {
	if elements < 1 || elements > 0xFFFF {
		return 0, fmt.Errorf("%w: element count %d out of range [1, 65535]", plc.ErrInvalidParameter, elements)
	}

	return uint16(elements), nil
}

func (d *Device) readTag(ctx context.Context, tag string, elements int) (TagValue, error) {
	if err := d.requireTags(); err != nil {
		return TagValue{}, err
	}
	n, err := elementCount(elements)
	if err != nil {
		return TagValue{}, err
	}
	msg, err := cip.EncodeReadTag(tag, n)
	if err != nil {
		return TagValue{}, err
	}

	reply, err := d.cipExchange(ctx, msg)
	if err != nil {
		return TagValue{}, err
	}
	if reply.Service != cip.ServiceReadTag {
		return TagValue{}, fmt.Errorf("%w: service 0x%02X answering Read Tag", plc.ErrMalformedFrame, reply.Service)
	}
	if reply.PartialTransfer {
		return TagValue{}, fmt.Errorf("%w: %d elements of %s exceed one reply", plc.ErrInvalidParameter, elements, tag)
	}

	typeCode, data, err := cip.ParseReadData(reply.Data)
	if err != nil {
		return TagValue{}, err
	}

	return TagValue{Type: typeCode, Data: data}, nil
}

func (d *Device) writeTag(ctx context.Context, tag string, typeCode uint16, elements int, data []byte) error {
	if err := d.requireTags(); err != nil {
		return err
	}
	n, err := elementCount(elements)
	if err != nil {
		return err
	}
	msg, err := cip.EncodeWriteTag(tag, typeCode, n, data)
	if err != nil {
		return err
	}

	reply, err := d.cipExchange(ctx, msg)
	if err != nil {
		return err
	}
	if reply.Service != cip.ServiceWriteTag {
		return fmt.Errorf("%w: service 0x%02X answering Write Tag", plc.ErrMalformedFrame, reply.Service)
	}

	return nil
}

func (d *Device) tagReadBool(ctx context.Context, tag string, count int) ([]bool, error) {
	v, err := d.readTag(ctx, tag, count)
	if err != nil {
		return nil, err
	}
	if v.Type != cip.TypeBOOL {
		return nil, fmt.Errorf("%w: tag %s is %s, not BOOL", plc.ErrInvalidParameter, tag, cip.TypeName(v.Type))
	}

	values := make([]bool, len(v.Data))
	for i, b := range v.Data {
		values[i] = b != 0
	}

	return values, nil
}

func (d *Device) tagWriteBool(ctx context.Context, tag string, values []bool) error {
	data := make([]byte, len(values))
	for i, v := range values {
		if v {
			data[i] = 0x01
		}
	}

	return d.writeTag(ctx, tag, cip.TypeBOOL, len(values), data)
}

func (d *Device) tagWriteInferred(ctx context.Context, tag string, data []byte) error {
	var typeCode uint16
	switch len(data) {
	case 1:
		typeCode = cip.TypeSINT
	case 2:
		typeCode = cip.TypeINT
	case 4:
		typeCode = cip.TypeDINT
	case 8:
		typeCode = cip.TypeLINT
	default:
		return fmt.Errorf("%w: cannot infer a tag type from %d bytes, use WriteTag", plc.ErrInvalidParameter, len(data))
	}

	return d.writeTag(ctx, tag, typeCode, 1, data)
}

// cipExchange sends msg to the controller slot through the session of the borrowed connection.
func (d *Device) cipExchange(ctx context.Context, msg []byte) (cip.Reply, error) {
	wrapped := cip.WrapUnconnectedSend(msg, d.cfg.slot)
	frame, err := d.exchange(ctx, func(c *transport.Conn) []byte {
		return cip.EncodeSendRRData(c.Session(), d.senderCtx, wrapped)
	}, cip.EncapsulationFramer{})
	if err != nil {
		return cip.Reply{}, err
	}

	reply, err := cip.DecodeSendRRData(frame)
	if err != nil {
		return cip.Reply{}, err
	}

	return cip.DecodeReply(reply)
}

// registerSession is the connection handshake of EtherNet/IP.
func (d *Device) registerSession(ctx context.Context, c *transport.Conn) error {
	frame, err := c.Exchange(ctx, cip.EncodeRegisterSession(d.senderCtx), cip.EncapsulationFramer{})
	if err != nil {
		return err
	}

	session, err := cip.DecodeRegisterSession(frame)
	if err != nil {
		return err
	}
	c.SetSession(session)
	d.logger.Debug("session registered", "addr", c.Addr(), "session", session)

	return nil
}
