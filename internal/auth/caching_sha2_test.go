package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingSHA2Password_FastAuthSuccessNeedsNoReply(t *testing.T) {
	p := cachingSHA2Password{padding: rsaOAEP}
	reply, done, err := p.ContinueAuthMoreData("pw", nil, []byte{cachingSHA2FastAuthSuccess}, false)
	require.NoError(t, err)
	assert.Nil(t, reply)
	assert.True(t, done)
}

func TestCachingSHA2Password_FullAuthOverTLSSendsCleartext(t *testing.T) {
	p := cachingSHA2Password{padding: rsaOAEP}
	reply, done, err := p.ContinueAuthMoreData("s3cr3t", nil, []byte{cachingSHA2FullAuthRequired}, true)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, append([]byte("s3cr3t"), 0), reply)
}

// TestCachingSHA2Password_FullAuthWithoutTLSUsesPublicKeyEncryption covers
// spec.md's boundary behaviour: "caching_sha2_password fast-path path with
// TLS off still succeeds via public-key encryption" — i.e. the non-TLS
// full-auth path must still complete without a TLS channel, by requesting
// and then using the server's RSA public key.
func TestCachingSHA2Password_FullAuthWithoutTLSUsesPublicKeyEncryption(t *testing.T) {
	p := cachingSHA2Password{padding: rsaOAEP}

	reply, done, err := p.ContinueAuthMoreData("s3cr3t", nil, []byte{cachingSHA2FullAuthRequired}, false)
	require.NoError(t, err)
	assert.False(t, done, "requesting the public key is not the end of the exchange")
	assert.Equal(t, []byte{0x02}, reply)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	scramble := []byte("01234567890123456789")
	encrypted, done, err := p.ContinueAuthMoreData("s3cr3t", scramble, pemBytes, false)
	require.NoError(t, err)
	assert.True(t, done)
	assert.NotEmpty(t, encrypted)

	decrypted, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, key, encrypted, nil)
	require.NoError(t, err)
	want := xorWithRepeatingScramble(append([]byte("s3cr3t"), 0), scramble)
	assert.Equal(t, want, decrypted)
}
