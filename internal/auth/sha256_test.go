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

func TestSHA256Password_RespondOverTLSSendsCleartext(t *testing.T) {
	p := sha256Password{padding: rsaOAEP}
	resp, err := p.Respond("s3cr3t", []byte("01234567890123456789"), true)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("s3cr3t"), 0), resp)
}

func TestSHA256Password_RespondWithoutTLSRequestsPublicKey(t *testing.T) {
	p := sha256Password{padding: rsaOAEP}
	resp, err := p.Respond("s3cr3t", []byte("01234567890123456789"), false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, resp)
}

func TestSHA256Password_ContinueAuthMoreDataEncryptsWithServerKey(t *testing.T) {
	p := sha256Password{padding: rsaOAEP}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	scramble := []byte("01234567890123456789")
	encrypted, done, err := p.ContinueAuthMoreData("s3cr3t", scramble, pemBytes, false)
	require.NoError(t, err)
	assert.True(t, done)

	decrypted, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, key, encrypted, nil)
	require.NoError(t, err)
	want := xorWithRepeatingScramble(append([]byte("s3cr3t"), 0), scramble)
	assert.Equal(t, want, decrypted)
}

func TestSHA256Password_ContinueAuthMoreDataOverTLSSkipsEncryption(t *testing.T) {
	p := sha256Password{padding: rsaOAEP}
	reply, done, err := p.ContinueAuthMoreData("s3cr3t", nil, nil, true)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, append([]byte("s3cr3t"), 0), reply)
}

func TestPaddingForServerVersion_ThresholdAt8_0_5(t *testing.T) {
	assert.Equal(t, rsaPKCS1v15, paddingForServerVersion("8.0.4-xmysql-server"))
	assert.Equal(t, rsaOAEP, paddingForServerVersion("8.0.5"))
	assert.Equal(t, rsaOAEP, paddingForServerVersion("8.0.11"))
	assert.Equal(t, rsaPKCS1v15, paddingForServerVersion("5.7.30"))
}
