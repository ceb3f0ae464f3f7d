package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/takapi327/ldbc-sub016/internal/protocol"
)

func TestDecodeString_UTF8PassesThrough(t *testing.T) {
	s, warn := DecodeString([]byte("héllo"), protocol.CharsetUTF8General)
	assert.Equal(t, "héllo", s)
	assert.False(t, warn)
}

func TestDecodeString_BinaryPassesThroughRaw(t *testing.T) {
	raw := []byte{0x00, 0xFF, 0x10}
	s, warn := DecodeString(raw, protocol.CharsetBinary)
	assert.Equal(t, string(raw), s)
	assert.False(t, warn)
}

func TestDecodeString_InvalidUTF8UnderUTF8CharsetWarns(t *testing.T) {
	invalid := []byte{0xFF, 0xFE, 0x41}
	s, warn := DecodeString(invalid, protocol.CharsetUTF8General)
	assert.True(t, warn, "invalid utf8 bytes under a utf8 charset must surface a warning")
	assert.NotEmpty(t, s)
}

func TestDecodeString_UnknownCharsetFallsBackLossyWithWarning(t *testing.T) {
	// An unrecognized collation id still has to decode to something usable
	// rather than erroring, per the lossy-fallback-with-warning contract.
	s, warn := DecodeString([]byte("plain ascii"), 999)
	assert.Equal(t, "plain ascii", s)
	assert.True(t, warn)
}
