package auth

import (
	"crypto/sha256"

	"github.com/pkg/errors"
)

// cachingSHA2Password implements caching_sha2_password, spec.md §4.3:
// SHA256(pw) XOR SHA256(SHA256(SHA256(pw)) ++ scramble) for the initial
// response; AuthMoreData 0x03 means the server's cache already has a fast
// hit (next packet is OK), 0x04 means full auth is required, which
// reuses the sha256_password RSA path.
type cachingSHA2Password struct {
	padding rsaPaddingScheme
}

func (cachingSHA2Password) Name() string { return "caching_sha2_password" }

func (cachingSHA2Password) Respond(password string, scramble []byte, _ bool) ([]byte, error) {
	return computeCachingSHA2Response(password, scramble)
}

func computeCachingSHA2Response(password string, scramble []byte) ([]byte, error) {
	if password == "" {
		return []byte{}, nil
	}
	if len(scramble) != 20 {
		return nil, errors.Errorf("auth: caching_sha2_password scramble must be 20 bytes, got %d", len(scramble))
	}
	stage1 := sha256Sum([]byte(password))
	stage2 := sha256Sum(stage1)
	challengeHash := sha256Sum(append(append([]byte{}, stage2...), scramble...))
	return xorBytes(stage1, challengeHash), nil
}

// AuthMoreData sub-status bytes for caching_sha2_password.
const (
	cachingSHA2FastAuthSuccess  = 0x03
	cachingSHA2FullAuthRequired = 0x04
)

func (p cachingSHA2Password) ContinueAuthMoreData(password string, scramble []byte, data []byte, tlsActive bool) ([]byte, bool, error) {
	if len(data) == 1 {
		switch data[0] {
		case cachingSHA2FastAuthSuccess:
			// Server will send OK next; nothing further to send.
			return nil, true, nil
		case cachingSHA2FullAuthRequired:
			if tlsActive {
				return append([]byte(password), 0), true, nil
			}
			return []byte{0x02}, false, nil // ask for the server's RSA public key
		}
	}
	// Otherwise data is the public key PEM itself, sent in response to
	// the 0x02 request byte above — same RSA exchange as sha256_password.
	encrypted, err := encryptPasswordWithPublicKeyPEM(password, scramble, data, p.padding)
	if err != nil {
		return nil, false, err
	}
	return encrypted, true, nil
}

func sha256Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
