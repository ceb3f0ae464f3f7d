package auth

import (
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativePassword_EmptyPasswordYieldsEmptyResponse(t *testing.T) {
	scramble := make([]byte, 20)
	for i := range scramble {
		scramble[i] = byte(i + 1)
	}

	resp, err := nativePassword{}.Respond("", scramble, false)
	require.NoError(t, err)
	assert.Empty(t, resp, "an empty password must produce an empty auth-response per spec.md boundary behaviour")
}

func TestNativePassword_RoundTripAgainstReferenceComputation(t *testing.T) {
	scramble := []byte("01234567890123456789")
	password := "s3cr3t"

	resp, err := nativePassword{}.Respond(password, scramble, false)
	require.NoError(t, err)

	stage1 := sha1Sum([]byte(password))
	stage2 := sha1Sum(stage1)
	want := xorBytes(stage1, sha1Sum(append(append([]byte{}, scramble...), stage2...)))
	assert.Equal(t, want, resp)
	assert.Len(t, resp, sha1.Size)
}

func TestNativePassword_RejectsNonstandardScrambleLength(t *testing.T) {
	_, err := nativePassword{}.Respond("s3cr3t", []byte("tooshort"), false)
	assert.Error(t, err)
}
