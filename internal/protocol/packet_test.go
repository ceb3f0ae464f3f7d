package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback is an in-memory Conn backed by a single buffer, letting a
// PacketCodec's writes be read back by a second codec over the same
// bytes — the shape the teacher's own protocol tests use to avoid a real
// socket.
type loopback struct {
	buf *bytes.Buffer
}

func (l loopback) Read(p []byte) (int, error)  { return l.buf.Read(p) }
func (l loopback) Write(p []byte) (int, error) { return l.buf.Write(p) }

func TestPacketCodec_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"small", 16},
		{"just under boundary", MaxPacketPayload - 1},
		{"exactly boundary", MaxPacketPayload},
		{"over boundary", MaxPacketPayload + 100},
		{"exact multiple of boundary", MaxPacketPayload * 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			link := loopback{buf: buf}
			writer := NewPacketCodec(link, 0)
			reader := NewPacketCodec(link, 0)

			payload := make([]byte, tc.size)
			for i := range payload {
				payload[i] = byte(i)
			}

			require.NoError(t, writer.WritePacket(payload))
			got, err := reader.ReadPacket()
			require.NoError(t, err)
			assert.Equal(t, payload, got, "write->read must reproduce the payload exactly")
		})
	}
}

func TestPacketCodec_ExactBoundaryEmitsTwoFrames(t *testing.T) {
	buf := &bytes.Buffer{}
	link := loopback{buf: buf}
	writer := NewPacketCodec(link, 0)

	payload := make([]byte, MaxPacketPayload)
	require.NoError(t, writer.WritePacket(payload))

	// Frame 1: 3-byte length (0xFFFFFF) + 1-byte seq + MaxPacketPayload bytes.
	// Frame 2: 3-byte length (0x000000) + 1-byte seq + 0 bytes.
	wantLen := 4 + MaxPacketPayload + 4
	assert.Equal(t, wantLen, buf.Len(), "a boundary-sized payload must be followed by an empty terminator frame")
}

func TestPacketCodec_SequenceMismatchIsFatal(t *testing.T) {
	buf := &bytes.Buffer{}
	link := loopback{buf: buf}
	writer := NewPacketCodec(link, 0)
	reader := NewPacketCodec(link, 0)

	require.NoError(t, writer.WritePacket([]byte("first")))
	reader.SetSequence(5) // desync the reader's expected sequence

	_, err := reader.ReadPacket()
	assert.Error(t, err)
}

func TestPacketCodec_WriteCommandResetsSequence(t *testing.T) {
	buf := &bytes.Buffer{}
	link := loopback{buf: buf}
	writer := NewPacketCodec(link, 0)

	require.NoError(t, writer.WritePacket([]byte("a")))
	require.NoError(t, writer.WritePacket([]byte("b")))
	assert.Equal(t, byte(2), writer.Sequence())

	require.NoError(t, writer.WriteCommand(ComQuery, []byte("SELECT 1")))
	assert.Equal(t, byte(1), writer.Sequence(), "WriteCommand must reset sequence to 0 before writing")
}
