package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEOF_DeprecateEOFDisambiguation(t *testing.T) {
	t.Run("short 0xFE packet is EOF whether or not DEPRECATE_EOF is negotiated", func(t *testing.T) {
		short := EncodeEOF(&EOFPacket{Warnings: 1, StatusFlags: StatusAutocommit})
		assert.True(t, IsEOF(short, true))
		assert.True(t, IsEOF(short, false))
	})

	t.Run("long 0xFE-prefixed OK packet is not EOF when DEPRECATE_EOF is negotiated", func(t *testing.T) {
		ok := EncodeOK(&OKPacket{AffectedRows: 1 << 30, Info: "padding to push past 9 bytes of body"})
		ok[0] = packetEOF // simulate the server's large-affected-row OK using the 0xFE marker
		assert.False(t, IsEOF(ok, true), "a long 0xFE payload must be treated as OK under DEPRECATE_EOF")
		assert.True(t, IsEOF(ok, false), "without DEPRECATE_EOF, any 0xFE-prefixed payload is EOF-shaped")
	})
}

func TestParseOK_RoundTrip(t *testing.T) {
	want := &OKPacket{
		AffectedRows: 42,
		LastInsertID: 7,
		StatusFlags:  StatusAutocommit,
		Warnings:     3,
		Info:         "Rows matched: 42",
	}
	got, err := ParseOK(EncodeOK(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseERR_RoundTrip(t *testing.T) {
	want := &ERRPacket{Code: 1045, SQLState: "28000", Message: "Access denied for user 'ldbc'@'localhost'"}
	got, err := ParseERR(EncodeERR(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseERR_DefaultsSQLStateWhenAbsent(t *testing.T) {
	// A server that predates CLIENT_PROTOCOL_41-style SQLSTATE tagging
	// sends the message with no '#' marker at all.
	payload := append([]byte{packetERR}, AppendUint16(nil, 2013)...)
	payload = append(payload, []byte("Lost connection to MySQL server")...)

	got, err := ParseERR(payload)
	require.NoError(t, err)
	assert.Equal(t, DefaultSQLState, got.SQLState)
	assert.Equal(t, uint16(2013), got.Code)
}

func TestParseEOF_RoundTrip(t *testing.T) {
	want := &EOFPacket{Warnings: 2, StatusFlags: StatusAutocommit | StatusInTrans}
	got, err := ParseEOF(EncodeEOF(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
