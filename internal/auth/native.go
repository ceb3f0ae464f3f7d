package auth

import (
	"crypto/sha1"

	"github.com/pkg/errors"
)

// nativePassword implements mysql_native_password, spec.md §4.3:
// SHA1(pw) XOR SHA1(scramble ++ SHA1(SHA1(pw))); an empty password yields
// an empty response, matching the teacher's
// MySQLNativePasswordValidator.calculateAuthResponse logic mirrored from
// the server side.
type nativePassword struct{}

func (nativePassword) Name() string { return "mysql_native_password" }

func (nativePassword) Respond(password string, scramble []byte, _ bool) ([]byte, error) {
	return computeNativeResponse(password, scramble)
}

func computeNativeResponse(password string, scramble []byte) ([]byte, error) {
	if password == "" {
		return []byte{}, nil
	}
	if len(scramble) != 20 {
		return nil, errors.Errorf("auth: mysql_native_password scramble must be 20 bytes, got %d", len(scramble))
	}
	stage1 := sha1Sum([]byte(password))
	stage2 := sha1Sum(stage1)
	challengeHash := sha1Sum(append(append([]byte{}, scramble...), stage2...))
	return xorBytes(stage1, challengeHash), nil
}

func (nativePassword) ContinueAuthMoreData(password string, scramble []byte, _ []byte, _ bool) ([]byte, bool, error) {
	return nil, true, errors.New("auth: mysql_native_password does not use AuthMoreData")
}

func sha1Sum(data []byte) []byte {
	sum := sha1.Sum(data)
	return sum[:]
}

func xorBytes(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}
