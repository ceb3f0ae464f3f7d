package auth

import (
	"context"
	"runtime"

	"github.com/pkg/errors"

	"github.com/takapi327/ldbc-sub016/internal/protocol"
	"github.com/takapi327/ldbc-sub016/internal/transport"
)

// Credentials are the identity the client authenticates with.
type Credentials struct {
	Username     string
	Password     string
	Database     string
	Charset      byte
	ConnectAttrs map[string]string
}

// Result is what a successful handshake establishes for the session.
type Result struct {
	ConnectionID  uint32
	Capabilities  protocol.Capability
	StatusFlags   protocol.ServerStatus
	ServerVersion string
	Warnings      uint16
	TLSActive     bool
	// Scramble is the original handshake challenge, retained so
	// COM_CHANGE_USER (which the server answers without issuing a fresh
	// AuthSwitchRequest for mysql_native_password) can recompute the
	// auth response against it.
	Scramble []byte
}

// wantedCapabilities is what this client always asks for; spec.md §6 lists
// the required subset, the rest are requested opportunistically and
// dropped by Negotiate if the server doesn't have them.
const wantedCapabilities = protocol.RequiredCapabilities |
	protocol.ClientDeprecateEOF |
	protocol.ClientConnectAttrs |
	protocol.ClientPluginAuthLenencClientData |
	protocol.ClientSecureConnection |
	protocol.ClientFoundRows |
	protocol.ClientMultiStatements |
	protocol.ClientPSMultiResults

// Authenticate drives the full handshake state machine of spec.md §4.3
// over pc/xport: read HandshakeV10, negotiate capabilities and TLS,
// perform the plugin challenge-response loop (including AuthSwitchRequest
// and AuthMoreData sub-exchanges), and return once the server sends OK.
func Authenticate(ctx context.Context, pc *protocol.PacketCodec, xport *transport.Transport, host string, tlsMode transport.TLSMode, creds Credentials) (*Result, error) {
	first, err := pc.ReadPacket()
	if err != nil {
		return nil, errors.Wrap(err, "auth: read initial handshake")
	}
	hs, err := protocol.ParseHandshakeV10(first)
	if err != nil {
		return nil, errors.Wrap(err, "auth: parse initial handshake")
	}

	effective := protocol.Negotiate(wantedCapabilities, hs.Capabilities)
	if !effective.Has(protocol.RequiredCapabilities) {
		return nil, errors.New("auth: server does not support required capabilities (PROTOCOL_41/SECURE_CONNECTION/PLUGIN_AUTH/MULTI_RESULTS/TRANSACTIONS/LONG_FLAG/LONG_PASSWORD)")
	}
	if creds.Database != "" {
		effective |= protocol.ClientConnectWithDB & hs.Capabilities
	}

	tlsActive := false
	if tlsMode.Enabled() && hs.Capabilities.Has(protocol.ClientSSL) {
		effective |= protocol.ClientSSL
		sslReq := &protocol.SSLRequest{Capabilities: effective, MaxPacketSize: 1<<32 - 1, CharacterSet: creds.Charset}
		if err := pc.WritePacket(sslReq.Encode()); err != nil {
			return nil, errors.Wrap(err, "auth: write SSL request")
		}
		tlsCfg, err := tlsMode.BuildConfig(host)
		if err != nil {
			return nil, errors.Wrap(err, "auth: build TLS config")
		}
		if err := xport.UpgradeTLS(ctx, tlsCfg); err != nil {
			return nil, errors.Wrap(err, "auth: TLS upgrade")
		}
		tlsActive = true
	}

	plugin, err := Lookup(hs.AuthPluginName, hs.ServerVersion)
	if err != nil {
		return nil, errors.Wrapf(err, "auth: %s", hs.AuthPluginName)
	}
	scramble := hs.AuthPluginData

	authResponse, err := plugin.Respond(creds.Password, scramble, tlsActive)
	if err != nil {
		return nil, errors.Wrap(err, "auth: compute auth response")
	}

	resp := &protocol.HandshakeResponse41{
		Capabilities:   effective,
		MaxPacketSize:  1<<32 - 1,
		CharacterSet:   creds.Charset,
		Username:       creds.Username,
		AuthResponse:   authResponse,
		Database:       creds.Database,
		AuthPluginName: plugin.Name(),
		ConnectAttrs:   connectAttrs(creds.ConnectAttrs),
	}
	if err := pc.WritePacket(resp.Encode()); err != nil {
		return nil, errors.Wrap(err, "auth: write handshake response")
	}

	for {
		payload, err := pc.ReadPacket()
		if err != nil {
			return nil, errors.Wrap(err, "auth: read handshake reply")
		}
		switch {
		case protocol.IsOK(payload):
			ok, err := protocol.ParseOK(payload)
			if err != nil {
				return nil, err
			}
			return &Result{
				ConnectionID:  hs.ConnectionID,
				Capabilities:  effective,
				StatusFlags:   ok.StatusFlags,
				ServerVersion: hs.ServerVersion,
				Warnings:      ok.Warnings,
				TLSActive:     tlsActive,
				Scramble:      scramble,
			}, nil

		case protocol.IsERR(payload):
			e, err := protocol.ParseERR(payload)
			if err != nil {
				return nil, err
			}
			return nil, &authError{e}

		case payload[0] == 0xFE: // AuthSwitchRequest
			switchReq, err := protocol.ParseAuthSwitchRequest(payload)
			if err != nil {
				return nil, err
			}
			plugin, err = Lookup(switchReq.PluginName, hs.ServerVersion)
			if err != nil {
				return nil, errors.Wrapf(err, "auth: %s", switchReq.PluginName)
			}
			scramble = switchReq.PluginData
			reply, err := plugin.Respond(creds.Password, scramble, tlsActive)
			if err != nil {
				return nil, errors.Wrap(err, "auth: compute switched auth response")
			}
			if err := pc.WritePacket(reply); err != nil {
				return nil, errors.Wrap(err, "auth: write auth switch response")
			}

		case payload[0] == 0x01: // AuthMoreData
			reply, done, err := plugin.ContinueAuthMoreData(creds.Password, scramble, payload[1:], tlsActive)
			if err != nil {
				return nil, errors.Wrap(err, "auth: AuthMoreData sub-exchange")
			}
			if reply != nil {
				if err := pc.WritePacket(reply); err != nil {
					return nil, errors.Wrap(err, "auth: write AuthMoreData response")
				}
			}
			_ = done // next loop iteration reads the server's next packet regardless

		default:
			return nil, errors.Errorf("auth: unexpected packet type 0x%02x during handshake", payload[0])
		}
	}
}

func connectAttrs(extra map[string]string) map[string]string {
	attrs := map[string]string{
		"_client_name":    "ldbc-sub016",
		"_client_version": "1.0.0",
		"_os":             runtime.GOOS,
		"_platform":       runtime.GOARCH,
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return attrs
}

// authError adapts a protocol.ERRPacket encountered during authentication
// into the AuthorizationFailure taxonomy; the root package wraps this into
// its exported *Error type so callers never see protocol internals.
type authError struct {
	Err *protocol.ERRPacket
}

func (e *authError) Error() string { return e.Err.Message }

func (e *authError) SQLState() string   { return e.Err.SQLState }
func (e *authError) VendorCode() uint16 { return e.Err.Code }

// AsAuthError extracts the underlying ERR packet fields from an error
// returned by Authenticate, if it represents a server-rejected login.
func AsAuthError(err error) (sqlState string, vendorCode uint16, ok bool) {
	var ae *authError
	if errors.As(err, &ae) {
		return ae.SQLState(), ae.VendorCode(), true
	}
	return "", 0, false
}
