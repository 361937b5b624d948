package device

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-plc/cip"
)

// fakeDevice accepts connections and serves each with serve until the peer disconnects.
type fakeDevice struct {
	ln       net.Listener
	serve    func(nc net.Conn, f *fakeDevice)
	accepted atomic.Int32

	mu       sync.Mutex
	requests [][]byte

	wg sync.WaitGroup
}

func newFakeDevice(t *testing.T, serve func(nc net.Conn, f *fakeDevice)) *fakeDevice {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeDevice{ln: ln, serve: serve}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			f.accepted.Add(1)
			f.wg.Add(1)
			go func() {
				defer f.wg.Done()
				defer nc.Close()
				f.serve(nc, f)
			}()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		f.wg.Wait()
	})

	return f
}

func (f *fakeDevice) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeDevice) record(req []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, append([]byte(nil), req...))
}

func (f *fakeDevice) last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}

	return f.requests[len(f.requests)-1]
}

func hexField(p []byte) int {
	v, err := strconv.ParseUint(string(p), 16, 32)
	if err != nil {
		panic(err)
	}

	return int(v)
}

func decField(p []byte) int {
	v, err := strconv.Atoi(string(p))
	if err != nil {
		panic(err)
	}

	return v
}

// serveFatek answers discrete reads with alternating points starting with ON, register
// reads with 0x1234, 0x1235, ... and acknowledges writes.
func serveFatek(nc net.Conn, f *fakeDevice) {
	r := bufio.NewReader(nc)
	for {
		req, err := r.ReadBytes(0x03)
		if err != nil {
			return
		}
		f.record(req)

		fn := req[3:5]
		count := hexField(req[5:7])

		var data []byte
		switch string(fn) {
		case "44":
			for i := range count {
				data = append(data, "10"[i%2])
			}
		case "46":
			for i := range count {
				data = fmt.Appendf(data, "%04X", 0x1234+i)
			}
		}

		resp := append([]byte{0x02}, req[1:3]...)
		resp = append(resp, fn...)
		resp = append(resp, '0')
		resp = append(resp, data...)
		var sum byte
		for _, b := range resp {
			sum += b
		}
		resp = fmt.Appendf(resp, "%02X", sum)
		resp = append(resp, 0x03)

		if _, err := nc.Write(resp); err != nil {
			return
		}
	}
}

// serveMewtocol answers contact reads with alternating contacts starting with ON, word
// reads with 0x1234, 0x1235, ... (low byte first) and acknowledges writes.
func serveMewtocol(nc net.Conn, f *fakeDevice) {
	r := bufio.NewReader(nc)
	for {
		req, err := r.ReadBytes('\r')
		if err != nil {
			return
		}
		f.record(req)

		var body []byte
		switch cmd := string(req[4:7]); cmd {
		case "RCS":
			body = []byte("RC1")
		case "RCP":
			body = []byte("RC")
			for i := range decField(req[7:8]) {
				body = append(body, "10"[i%2])
			}
		case "RCC", "RDD":
			start, end := decField(req[8:12]), decField(req[12:16])
			if cmd == "RDD" {
				start, end = decField(req[7:12]), decField(req[12:17])
			}
			body = []byte(cmd[:2])
			for i := range end - start + 1 {
				w := 0x1234 + i
				body = fmt.Appendf(body, "%02X%02X", w&0xFF, w>>8)
			}
		default:
			body = []byte(cmd[:2])
		}

		resp := append([]byte{'%'}, req[1:3]...)
		resp = append(resp, '$')
		resp = append(resp, body...)
		var x byte
		for _, b := range resp {
			x ^= b
		}
		resp = fmt.Appendf(resp, "%02X\r", x)

		if _, err := nc.Write(resp); err != nil {
			return
		}
	}
}

// serveModbus answers bit reads with 0x55 patterns, register reads with 0x0100, 0x0101, ...
// and echoes write requests.
func serveModbus(nc net.Conn, f *fakeDevice) {
	header := make([]byte, 7)
	for {
		if _, err := io.ReadFull(nc, header); err != nil {
			return
		}
		pdu := make([]byte, int(binary.BigEndian.Uint16(header[4:6]))-1)
		if _, err := io.ReadFull(nc, pdu); err != nil {
			return
		}
		f.record(append(append([]byte(nil), header...), pdu...))

		qty := int(binary.BigEndian.Uint16(pdu[3:5]))
		var out []byte
		switch fn := pdu[0]; fn {
		case 0x01, 0x02:
			n := (qty + 7) / 8
			out = append([]byte{fn, byte(n)}, bytes.Repeat([]byte{0x55}, n)...)
		case 0x03, 0x04:
			out = []byte{fn, byte(2 * qty)}
			for i := range qty {
				out = binary.BigEndian.AppendUint16(out, uint16(0x0100+i))
			}
		default:
			out = pdu[:5]
		}

		resp := append([]byte(nil), header[:4]...)
		resp = binary.BigEndian.AppendUint16(resp, uint16(len(out)+1))
		resp = append(resp, header[6])
		resp = append(resp, out...)
		if _, err := nc.Write(resp); err != nil {
			return
		}
	}
}

const fakeSession uint32 = 0x11223344

// serveEtherNetIP registers a session and answers Read Tag with DINT 42 per element, or
// BOOL true for tags named Flag. Unknown tags named Missing fail with path destination
// unknown. Write Tag is acknowledged.
func serveEtherNetIP(nc net.Conn, f *fakeDevice) {
	header := make([]byte, cip.HeaderSize)
	for {
		if _, err := io.ReadFull(nc, header); err != nil {
			return
		}
		data := make([]byte, binary.LittleEndian.Uint16(header[2:4]))
		if _, err := io.ReadFull(nc, data); err != nil {
			return
		}
		req, err := cip.DecodeEncapsulation(append(append([]byte(nil), header...), data...))
		if err != nil {
			return
		}

		resp := cip.Encapsulation{Command: req.Command, Session: req.Session, Context: req.Context}
		switch req.Command {
		case cip.CommandRegisterSession:
			resp.Session = fakeSession
			resp.Data = req.Data
		case cip.CommandSendRRData:
			if req.Session != fakeSession {
				// invalid session handle
				resp.Status = 0x64
				break
			}
			// unconnected data item, then the embedded message of the Unconnected Send
			msg := req.Data[16:]
			f.record(msg)
			embedded := msg[10 : 10+binary.LittleEndian.Uint16(msg[8:10])]
			reply := tagReply(embedded)

			resp.Data = []byte{0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0xB2, 0}
			resp.Data = binary.LittleEndian.AppendUint16(resp.Data, uint16(len(reply)))
			resp.Data = append(resp.Data, reply...)
		default:
			return
		}

		if _, err := nc.Write(resp.Encode()); err != nil {
			return
		}
	}
}

func tagReply(msg []byte) []byte {
	service := msg[0]
	path := msg[2 : 2+int(msg[1])*2]

	switch {
	case bytes.Contains(path, []byte("Missing")):
		return []byte{service | 0x80, 0, 0x05, 0}
	case service == cip.ServiceWriteTag:
		return []byte{service | 0x80, 0, 0, 0}
	}

	elements := int(binary.LittleEndian.Uint16(msg[2+len(path):]))
	if bytes.Contains(path, []byte("Flag")) {
		out := []byte{service | 0x80, 0, 0, 0, 0xC1, 0}
		for range elements {
			out = append(out, 0x01)
		}

		return out
	}

	out := []byte{service | 0x80, 0, 0, 0, 0xC4, 0}
	for range elements {
		out = binary.LittleEndian.AppendUint32(out, 42)
	}

	return out
}
