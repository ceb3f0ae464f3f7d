package protocol

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// MaxPacketPayload is 2^24-1, the fragmentation boundary of spec.md §4.1.
const MaxPacketPayload = 1<<24 - 1

// Conn is the minimal byte-stream contract PacketCodec needs; it is
// satisfied by internal/transport.Transport and by a plain net.Conn in
// tests.
type Conn interface {
	io.Reader
	io.Writer
}

// PacketCodec frames MySQL packets (3-byte little-endian length + 1-byte
// sequence + payload) over a byte stream, splitting and reassembling
// payloads at MaxPacketPayload per spec.md §4.1.
type PacketCodec struct {
	r    *bufio.Reader
	w    *bufio.Writer
	conn Conn

	seq byte
}

// NewPacketCodec wraps conn with buffered framing. bufSize controls the
// read/write buffer size; 0 selects bufio's default.
func NewPacketCodec(conn Conn, bufSize int) *PacketCodec {
	pc := &PacketCodec{conn: conn}
	if bufSize > 0 {
		pc.r = bufio.NewReaderSize(conn, bufSize)
		pc.w = bufio.NewWriterSize(conn, bufSize)
	} else {
		pc.r = bufio.NewReader(conn)
		pc.w = bufio.NewWriter(conn)
	}
	return pc
}

// ResetSequence resets the client sequence counter to 0, as every new
// command must per spec.md §3's Packet invariant.
func (p *PacketCodec) ResetSequence() { p.seq = 0 }

// Sequence returns the next sequence number that will be used.
func (p *PacketCodec) Sequence() byte { return p.seq }

// SetSequence forces the sequence counter, used when resuming a
// multi-packet exchange (e.g. after an AuthSwitchRequest).
func (p *PacketCodec) SetSequence(seq byte) { p.seq = seq }

// ReadPacket reads one logical packet, reassembling fragments per the
// MaxPacketPayload rule, and returns its payload. The sequence counter is
// advanced past the frames read; a gap between the expected and observed
// sequence number is a fatal protocol error (spec.md §4.1).
func (p *PacketCodec) ReadPacket() ([]byte, error) {
	var payload []byte
	for {
		header := make([]byte, 4)
		if _, err := io.ReadFull(p.r, header); err != nil {
			return nil, errors.Wrap(err, "protocol: read packet header")
		}
		length := int(ReadUint24(header[:3]))
		seq := header[3]
		if seq != p.seq {
			return nil, errors.Errorf("protocol: sequence mismatch: want %d, got %d", p.seq, seq)
		}
		p.seq++

		chunk := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(p.r, chunk); err != nil {
				return nil, errors.Wrap(err, "protocol: read packet payload")
			}
		}
		payload = append(payload, chunk...)

		if length < MaxPacketPayload {
			return payload, nil
		}
		// length == MaxPacketPayload: more fragments follow, possibly
		// terminated by an empty packet.
	}
}

// WritePacket writes payload as one or more fragments, continuing the
// current sequence counter. Use WriteCommand to start a new command.
func (p *PacketCodec) WritePacket(payload []byte) error {
	for {
		chunkLen := len(payload)
		if chunkLen > MaxPacketPayload {
			chunkLen = MaxPacketPayload
		}
		if err := p.writeFrame(payload[:chunkLen]); err != nil {
			return err
		}
		payload = payload[chunkLen:]
		if chunkLen < MaxPacketPayload {
			return p.w.Flush()
		}
		if len(payload) == 0 {
			// Exactly a multiple of MaxPacketPayload: terminate with an
			// empty packet so the reader knows fragmentation ended.
			if err := p.writeFrame(nil); err != nil {
				return err
			}
			return p.w.Flush()
		}
	}
}

func (p *PacketCodec) writeFrame(payload []byte) error {
	header := make([]byte, 4)
	header[0], header[1], header[2] = byte(len(payload)), byte(len(payload)>>8), byte(len(payload)>>16)
	header[3] = p.seq
	p.seq++
	if _, err := p.w.Write(header); err != nil {
		return errors.Wrap(err, "protocol: write packet header")
	}
	if len(payload) > 0 {
		if _, err := p.w.Write(payload); err != nil {
			return errors.Wrap(err, "protocol: write packet payload")
		}
	}
	return nil
}

// WriteCommand resets the sequence counter to 0 and writes a command
// packet whose payload is cmd followed by body, per spec.md §4.1.
func (p *PacketCodec) WriteCommand(cmd Command, body []byte) error {
	p.ResetSequence()
	payload := make([]byte, 0, 1+len(body))
	payload = append(payload, byte(cmd))
	payload = append(payload, body...)
	return p.WritePacket(payload)
}
