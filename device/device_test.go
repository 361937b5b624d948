package device

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-plc/binding"
	"github.com/arloliu/go-plc/cip"
	"github.com/arloliu/go-plc/fatek"
	"github.com/arloliu/go-plc/logger"
	"github.com/arloliu/go-plc/mewtocol"
	"github.com/arloliu/go-plc/plc"
)

func newDevice(t *testing.T, vendor plc.Vendor, port int, opts ...Option) *Device {
	t.Helper()

	opts = append([]Option{WithLogger(logger.NewMockLogger().AllowAll())}, opts...)
	dev, err := New(context.Background(), vendor, "127.0.0.1", port, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })

	return dev
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, plc.VendorUnknown, "127.0.0.1", 0)
	require.ErrorIs(t, err, plc.ErrUnsupported)

	_, err = New(ctx, plc.VendorFatek, "", 0)
	require.ErrorIs(t, err, plc.ErrInvalidParameter)

	_, err = New(ctx, plc.VendorFatek, "127.0.0.1", 0, WithMaxConnectors(0))
	require.ErrorIs(t, err, plc.ErrInvalidParameter)

	_, err = New(ctx, plc.VendorFatek, "127.0.0.1", 0, WithLogger(nil))
	require.ErrorIs(t, err, plc.ErrInvalidParameter)

	dev, err := New(ctx, plc.VendorAllenBradley, "127.0.0.1", 0, WithSlot(2))
	require.NoError(t, err)
	defer dev.Close()

	assert.Equal(t, 44818, dev.port)
	assert.Equal(t, uint8(2), dev.Config().Slot())
	assert.Equal(t, uint8(1), dev.Config().Station())
	assert.Equal(t, plc.VendorAllenBradley, dev.Vendor())
}

func TestFatek_ReadWrite(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	fake := newFakeDevice(t, serveFatek)
	dev := newDevice(t, plc.VendorFatek, fake.port())

	bools := dev.ReadBool(ctx, "X50", 6)
	require.True(bools.Success, bools.Message)
	require.Equal([]bool{true, false, true, false, true, false}, bools.Content)

	words := dev.Read(ctx, "R100", 2)
	require.True(words.Success, words.Message)
	require.Equal([]byte{0x34, 0x12, 0x35, 0x12}, words.Content)

	u16 := dev.ReadUint16(ctx, "D0")
	require.True(u16.Success, u16.Message)
	require.Equal(uint16(0x1234), u16.Content)

	w := dev.WriteUint16(ctx, "R100", 0xABCD)
	require.True(w.Success, w.Message)
	want, err := fatek.EncodeWriteBytes(1, "R100", []byte{0xCD, 0xAB})
	require.NoError(err)
	require.Equal(want, fake.last())

	w = dev.WriteBool(ctx, "Y0", []bool{true, false})
	require.True(w.Success, w.Message)
	want, err = fatek.EncodeWriteBool(1, "Y0", []bool{true, false})
	require.NoError(err)
	require.Equal(want, fake.last())

	// sequential operations share one connection
	require.Equal(int32(1), fake.accepted.Load())
}

func TestFatek_StationMismatch(t *testing.T) {
	fake := newFakeDevice(t, func(nc net.Conn, f *fakeDevice) {
		// answer every request as station 2
		buf := make([]byte, 64)
		for {
			if _, err := nc.Read(buf); err != nil {
				return
			}
			resp := []byte("\x0202460123400\x03")
			var sum byte
			for _, b := range resp[:10] {
				sum += b
			}
			resp[10] = "0123456789ABCDEF"[sum>>4]
			resp[11] = "0123456789ABCDEF"[sum&0x0F]
			if _, err := nc.Write(resp); err != nil {
				return
			}
		}
	})
	dev := newDevice(t, plc.VendorFatek, fake.port(), WithStation(1))

	r := dev.ReadUint16(context.Background(), "R0")
	require.False(t, r.Success)
	assert.Equal(t, plc.KindMalformedFrame, r.Kind)
}

func TestMewtocol_ReadWrite(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	fake := newFakeDevice(t, serveMewtocol)
	dev := newDevice(t, plc.VendorPanasonic, fake.port())

	one := dev.ReadBool(ctx, "X12", 1)
	require.True(one.Success, one.Message)
	require.Equal([]bool{true}, one.Content)

	many := dev.ReadBool(ctx, "X10", 3)
	require.True(many.Success, many.Message)
	require.Equal([]bool{true, false, true}, many.Content)

	words := dev.Read(ctx, "D0", 2)
	require.True(words.Success, words.Message)
	require.Equal([]byte{0x34, 0x12, 0x35, 0x12}, words.Content)

	contacts := dev.ReadUint16(ctx, "X1")
	require.True(contacts.Success, contacts.Message)
	require.Equal(uint16(0x1234), contacts.Content)

	w := dev.Write(ctx, "D100", []byte{0x34, 0x12})
	require.True(w.Success, w.Message)
	want, err := mewtocol.EncodeWrite(1, "D100", []byte{0x34, 0x12})
	require.NoError(err)
	require.Equal(want, fake.last())

	w = dev.WriteBool(ctx, "Y1", []bool{true})
	require.True(w.Success, w.Message)
	want, err = mewtocol.EncodeWriteBool(1, "Y1", true)
	require.NoError(err)
	require.Equal(want, fake.last())

	w = dev.WriteBool(ctx, "Y1", []bool{true, false, true})
	require.True(w.Success, w.Message)
	want, err = mewtocol.EncodeWriteBools(1, "Y1", []bool{true, false, true})
	require.NoError(err)
	require.Equal(want, fake.last())
}

func TestModbus_ReadWrite(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	fake := newFakeDevice(t, serveModbus)
	dev := newDevice(t, plc.VendorModbus, fake.port(), WithStation(7))

	bits := dev.ReadBool(ctx, "0", 8)
	require.True(bits.Success, bits.Message)
	require.Equal([]bool{true, false, true, false, true, false, true, false}, bits.Content)

	regs := dev.Read(ctx, "100", 2)
	require.True(regs.Success, regs.Message)
	require.Equal([]byte{0x00, 0x01, 0x01, 0x01}, regs.Content)

	inputs := dev.ReadUint16(ctx, "x=4;100")
	require.True(inputs.Success, inputs.Message)
	require.Equal(uint16(0x0100), inputs.Content)
	require.Equal(byte(0x04), fake.last()[7])

	w := dev.WriteUint16(ctx, "s=3;5", 0x1234)
	require.True(w.Success, w.Message)
	require.Equal(byte(3), fake.last()[6])

	w = dev.WriteBool(ctx, "10", []bool{true, true, false})
	require.True(w.Success, w.Message)
	require.Equal(byte(7), fake.last()[6])
}

func TestAllenBradley_Tags(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	fake := newFakeDevice(t, serveEtherNetIP)
	dev := newDevice(t, plc.VendorAllenBradley, fake.port())

	tag := dev.ReadTag(ctx, "Program:Main.Counter", 2)
	require.True(tag.Success, tag.Message)
	require.Equal(cip.TypeDINT, tag.Content.Type)
	require.Equal([]byte{42, 0, 0, 0, 42, 0, 0, 0}, tag.Content.Data)

	u16 := dev.ReadUint16(ctx, "Counter")
	require.True(u16.Success, u16.Message)
	require.Equal(uint16(42), u16.Content)

	flags := dev.ReadBool(ctx, "Flag", 3)
	require.True(flags.Success, flags.Message)
	require.Equal([]bool{true, true, true}, flags.Content)

	notBool := dev.ReadBool(ctx, "Counter", 1)
	require.False(notBool.Success)
	require.Equal(plc.KindInvalidParameter, notBool.Kind)

	data := binary.LittleEndian.AppendUint32(nil, 1000)
	w := dev.Write(ctx, "Counter", data)
	require.True(w.Success, w.Message)
	msg, err := cip.EncodeWriteTag("Counter", cip.TypeDINT, 1, data)
	require.NoError(err)
	require.Equal(cip.WrapUnconnectedSend(msg, 0), fake.last())

	w = dev.WriteTag(ctx, "Setpoint", cip.TypeREAL, 1, []byte{0, 0, 0x80, 0x3F})
	require.True(w.Success, w.Message)

	w = dev.Write(ctx, "Counter", []byte{1, 2, 3})
	require.False(w.Success)
	require.Equal(plc.KindInvalidParameter, w.Kind)

	missing := dev.ReadTag(ctx, "Missing", 1)
	require.False(missing.Success)
	require.Equal(plc.KindDeviceError, missing.Kind)
	require.ErrorIs(missing.Err(), plc.ErrDeviceError)

	// one registered session serves every request
	require.Equal(int32(1), fake.accepted.Load())
}

func TestTags_UnsupportedVendor(t *testing.T) {
	fake := newFakeDevice(t, serveFatek)
	dev := newDevice(t, plc.VendorFatek, fake.port())

	r := dev.ReadTag(context.Background(), "Counter", 1)
	require.False(t, r.Success)
	assert.Equal(t, plc.KindUnsupported, r.Kind)

	w := dev.WriteTag(context.Background(), "Counter", cip.TypeDINT, 1, []byte{1, 0, 0, 0})
	require.False(t, w.Success)
	assert.Equal(t, plc.KindUnsupported, w.Kind)
	assert.Equal(t, int32(0), fake.accepted.Load())
}

func TestValidationBeforeIO(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		vendor plc.Vendor
		op     func(d *Device) plc.ErrorKind
		kind   plc.ErrorKind
	}{
		{"fatek address", plc.VendorFatek, func(d *Device) plc.ErrorKind { return d.Read(ctx, "Q1", 1).Kind }, plc.KindAddressFormat},
		{"fatek count", plc.VendorFatek, func(d *Device) plc.ErrorKind { return d.ReadBool(ctx, "X0", 0).Kind }, plc.KindInvalidParameter},
		{"fatek word area bool", plc.VendorFatek, func(d *Device) plc.ErrorKind { return d.ReadBool(ctx, "R0", 1).Kind }, plc.KindInvalidParameter},
		{"mewtocol contacts", plc.VendorPanasonic, func(d *Device) plc.ErrorKind { return d.ReadBool(ctx, "X0", 9).Kind }, plc.KindInvalidParameter},
		{"mewtocol address", plc.VendorPanasonic, func(d *Device) plc.ErrorKind { return d.Read(ctx, "Z1", 1).Kind }, plc.KindAddressFormat},
		{"mewtocol odd write", plc.VendorPanasonic, func(d *Device) plc.ErrorKind { return d.Write(ctx, "D0", []byte{1}).Kind }, plc.KindInvalidParameter},
		{"modbus address", plc.VendorModbus, func(d *Device) plc.ErrorKind { return d.Read(ctx, "s=x;1", 1).Kind }, plc.KindAddressFormat},
		{"tag elements", plc.VendorAllenBradley, func(d *Device) plc.ErrorKind { return d.ReadTag(ctx, "Counter", 0).Kind }, plc.KindInvalidParameter},
		{"tag name", plc.VendorAllenBradley, func(d *Device) plc.ErrorKind { return d.ReadTag(ctx, "", 1).Kind }, plc.KindAddressFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeDevice(t, func(nc net.Conn, _ *fakeDevice) { _, _ = io.Copy(io.Discard, nc) })
			dev := newDevice(t, tt.vendor, fake.port())

			assert.Equal(t, tt.kind, tt.op(dev))
			assert.Equal(t, int32(0), fake.accepted.Load())
			assert.Equal(t, 0, dev.Pool().Stats().Open)
		})
	}
}

func TestDevice_ResponseTimeout(t *testing.T) {
	fake := newFakeDevice(t, func(nc net.Conn, _ *fakeDevice) { _, _ = io.Copy(io.Discard, nc) })
	dev := newDevice(t, plc.VendorFatek, fake.port(), WithResponseTimeout(50*time.Millisecond))

	r := dev.ReadUint16(context.Background(), "R0")
	require.False(t, r.Success)
	assert.Equal(t, plc.KindTimeout, r.Kind)
	assert.Zero(t, r.Content)
	assert.Equal(t, 0, dev.Pool().Stats().Open)

	// the timed out connection is not reused
	r = dev.ReadUint16(context.Background(), "R0")
	require.False(t, r.Success)
	assert.Eventually(t, func() bool { return fake.accepted.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func TestDevice_PeerCloseEvicts(t *testing.T) {
	var once sync.Once
	fake := newFakeDevice(t, func(nc net.Conn, f *fakeDevice) {
		first := false
		once.Do(func() { first = true })
		if first {
			// the first connection dies right after one answer
			serveFatekOnce(nc, f)
			return
		}
		serveFatek(nc, f)
	})
	dev := newDevice(t, plc.VendorFatek, fake.port())
	ctx := context.Background()

	r := dev.ReadUint16(ctx, "R0")
	require.True(t, r.Success, r.Message)
	require.Eventually(t, func() bool { return dev.Pool().Stats().Open == 0 }, time.Second, 10*time.Millisecond)

	r = dev.ReadUint16(ctx, "R0")
	require.True(t, r.Success, r.Message)
	assert.Equal(t, int32(2), fake.accepted.Load())
}

// serveFatekOnce answers a single request and returns.
func serveFatekOnce(nc net.Conn, f *fakeDevice) {
	served := make(chan struct{})
	wrapped := &onceConn{Conn: nc, served: served}
	go func() {
		<-served
		_ = nc.Close()
	}()
	serveFatek(wrapped, f)
}

type onceConn struct {
	net.Conn
	served chan struct{}
	once   sync.Once
}

func (c *onceConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	c.once.Do(func() { close(c.served) })

	return n, err
}

func TestDevice_ConcurrentCapacity(t *testing.T) {
	fake := newFakeDevice(t, serveFatek)
	dev := newDevice(t, plc.VendorFatek, fake.port(), WithMaxConnectors(2))
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := dev.ReadUint16(ctx, "R0")
			assert.True(t, r.Success, r.Message)
			assert.LessOrEqual(t, dev.Pool().Stats().Open, 2)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, fake.accepted.Load(), int32(2))
}

func TestDevice_Closed(t *testing.T) {
	fake := newFakeDevice(t, serveFatek)
	dev := newDevice(t, plc.VendorFatek, fake.port())

	require.NoError(t, dev.Close())

	r := dev.ReadUint16(context.Background(), "R0")
	require.False(t, r.Success)
	assert.Equal(t, plc.KindClosed, r.Kind)
}

func TestDevice_Messages(t *testing.T) {
	fake := newFakeDevice(t, serveFatek)
	dev := newDevice(t, plc.VendorFatek, fake.port(), WithMessages(plc.Messages{
		plc.KindAddressFormat: "adresse ungültig",
	}))

	r := dev.Read(context.Background(), "Q1", 1)
	require.False(t, r.Success)
	assert.Contains(t, r.Message, "adresse ungültig: ")

	r = dev.Read(context.Background(), "R0", 0)
	require.False(t, r.Success)
	assert.Contains(t, r.Message, plc.DefaultMessages[plc.KindInvalidParameter])
}

type machine struct {
	Running bool
	Speed   uint16
	Total   uint32
}

func TestReadInto(t *testing.T) {
	fake := newFakeDevice(t, serveFatek)
	dev := newDevice(t, plc.VendorFatek, fake.port())

	table := binding.NewTable[machine](1)
	_, err := table.Bind("Running", "M0", binding.Bool(func(m *machine) *bool { return &m.Running }))
	require.NoError(t, err)
	_, err = table.Bind("Speed", "R10", binding.Uint16(func(m *machine) *uint16 { return &m.Speed }, binary.LittleEndian))
	require.NoError(t, err)
	_, err = table.Bind("Total", "R20", binding.Uint32(func(m *machine) *uint32 { return &m.Total }, binary.LittleEndian))
	require.NoError(t, err)

	var m machine
	r := ReadInto(context.Background(), dev, table, &m)
	require.True(t, r.Success, r.Message)
	assert.Same(t, &m, r.Content)
	assert.Equal(t, machine{Running: true, Speed: 0x1234, Total: 0x12351234}, m)

	_, err = table.Bind("Broken", "Q9", binding.Uint16(func(m *machine) *uint16 { return &m.Speed }, binary.LittleEndian))
	require.NoError(t, err)

	r = ReadInto(context.Background(), dev, table, &m)
	require.False(t, r.Success)
	assert.Equal(t, plc.KindAddressFormat, r.Kind)
	assert.Nil(t, r.Content)
}
