// Package auth drives the MySQL authentication sub-protocol (C3): plugin
// selection, challenge-response computation, and the RSA side-channel
// sha256_password/caching_sha2_password need when TLS isn't active.
package auth

import "github.com/pkg/errors"

// Plugin is the closed-variant extension point of spec.md Design Notes §9:
// a small callback accepting the scramble and returning the auth response,
// rather than an open class hierarchy.
type Plugin interface {
	// Name is the plugin name as the server advertises it.
	Name() string

	// Respond computes the auth-response bytes for the initial
	// handshake or an AuthSwitchRequest challenge. tlsActive lets
	// sha256-family plugins pick the cleartext fast path.
	Respond(password string, scramble []byte, tlsActive bool) ([]byte, error)

	// ContinueAuthMoreData handles an AuthMoreData (0x01) sub-exchange.
	// It returns the bytes to send back as the next packet (nil means
	// nothing further to send — wait for the server's OK/ERR) and
	// whether the plugin now expects the exchange to conclude rather
	// than loop through another AuthMoreData round.
	ContinueAuthMoreData(password string, scramble []byte, data []byte, tlsActive bool) (response []byte, done bool, err error)
}

// ErrUnknownPlugin is wrapped into an AuthorizationFailure by the caller
// per spec.md §4.3.
var ErrUnknownPlugin = errors.New("unknown authentication plugin")

// Lookup resolves a plugin by the name the server advertised. serverVersion
// is the HandshakeV10 version string, used by the sha256-family plugins to
// pick an RSA padding scheme (SPEC_FULL.md OPEN QUESTION DECISIONS).
func Lookup(name string, serverVersion string) (Plugin, error) {
	switch name {
	case "", "mysql_native_password":
		return nativePassword{}, nil
	case "sha256_password":
		return sha256Password{padding: paddingForServerVersion(serverVersion)}, nil
	case "caching_sha2_password":
		return cachingSHA2Password{padding: paddingForServerVersion(serverVersion)}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownPlugin, "%s", name)
	}
}
