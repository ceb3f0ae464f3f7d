package protocol

import (
	"github.com/pkg/errors"
)

// HandshakeV10 is the server's initial greeting, spec.md §3.
type HandshakeV10 struct {
	ProtocolVersion  byte
	ServerVersion    string
	ConnectionID     uint32
	AuthPluginData   []byte // 20 bytes, part1 (8) ++ part2 (12), NUL-stripped
	Capabilities     Capability
	CharacterSet     byte
	StatusFlags      ServerStatus
	AuthPluginName   string
}

// ParseHandshakeV10 decodes the payload of the server's first packet.
func ParseHandshakeV10(payload []byte) (*HandshakeV10, error) {
	if len(payload) < 1 || payload[0] != 10 {
		return nil, errors.New("protocol: unsupported handshake protocol version")
	}
	hs := &HandshakeV10{ProtocolVersion: payload[0]}
	off := 1

	serverVersion, n, err := ReadNullTerminatedString(payload[off:])
	if err != nil {
		return nil, errors.Wrap(err, "protocol: handshake server version")
	}
	hs.ServerVersion = string(serverVersion)
	off += n

	if len(payload) < off+4 {
		return nil, errors.New("protocol: truncated handshake: connection id")
	}
	hs.ConnectionID = ReadUint32(payload[off:])
	off += 4

	if len(payload) < off+8+1 {
		return nil, errors.New("protocol: truncated handshake: auth plugin data part1")
	}
	authData := append([]byte{}, payload[off:off+8]...)
	off += 8
	off++ // filler

	if len(payload) < off+2 {
		return nil, errors.New("protocol: truncated handshake: capability flags (low)")
	}
	capLow := ReadUint16(payload[off:])
	off += 2

	var charset byte
	var status ServerStatus
	var capHigh uint16
	var authDataLen byte
	if len(payload) > off {
		charset = payload[off]
		off++
		status = ServerStatus(ReadUint16(payload[off:]))
		off += 2
		capHigh = ReadUint16(payload[off:])
		off += 2
		authDataLen = payload[off]
		off++
		off += 10 // reserved

		capabilities := Capability(uint32(capLow) | uint32(capHigh)<<16)
		hs.Capabilities = capabilities

		if capabilities.Has(ClientSecureConnection) {
			part2Len := int(authDataLen) - 8
			if part2Len < 13 {
				part2Len = 13 // MySQL always sends at least 12 bytes + NUL here
			}
			if len(payload) < off+part2Len {
				return nil, errors.New("protocol: truncated handshake: auth plugin data part2")
			}
			part2 := payload[off : off+part2Len-1] // drop trailing NUL
			authData = append(authData, part2...)
			off += part2Len
		}

		if capabilities.Has(ClientPluginAuth) {
			name, _, err := ReadNullTerminatedString(payload[off:])
			if err == nil {
				hs.AuthPluginName = string(name)
			}
		}
	} else {
		hs.Capabilities = Capability(capLow)
	}

	hs.AuthPluginData = authData
	hs.CharacterSet = charset
	hs.StatusFlags = status
	if hs.AuthPluginName == "" {
		hs.AuthPluginName = "mysql_native_password"
	}
	return hs, nil
}

// HandshakeResponse41 is what the client sends back, spec.md §4.3 step 2.
type HandshakeResponse41 struct {
	Capabilities     Capability
	MaxPacketSize    uint32
	CharacterSet     byte
	Username         string
	AuthResponse     []byte
	Database         string
	AuthPluginName   string
	ConnectAttrs     map[string]string
}

// Encode renders the HandshakeResponse41 payload.
func (r *HandshakeResponse41) Encode() []byte {
	buf := make([]byte, 0, 64+len(r.Username)+len(r.AuthResponse)+len(r.Database))
	buf = AppendUint32(buf, uint32(r.Capabilities))
	buf = AppendUint32(buf, r.MaxPacketSize)
	buf = append(buf, r.CharacterSet)
	buf = append(buf, make([]byte, 23)...) // reserved

	buf = append(buf, []byte(r.Username)...)
	buf = append(buf, 0)

	if r.Capabilities.Has(ClientPluginAuthLenencClientData) {
		buf = AppendLengthEncodedString(buf, r.AuthResponse)
	} else if r.Capabilities.Has(ClientSecureConnection) {
		buf = append(buf, byte(len(r.AuthResponse)))
		buf = append(buf, r.AuthResponse...)
	} else {
		buf = append(buf, r.AuthResponse...)
		buf = append(buf, 0)
	}

	if r.Capabilities.Has(ClientConnectWithDB) {
		buf = append(buf, []byte(r.Database)...)
		buf = append(buf, 0)
	}

	if r.Capabilities.Has(ClientPluginAuth) {
		buf = append(buf, []byte(r.AuthPluginName)...)
		buf = append(buf, 0)
	}

	if r.Capabilities.Has(ClientConnectAttrs) {
		var attrs []byte
		for k, v := range r.ConnectAttrs {
			attrs = AppendLengthEncodedString(attrs, []byte(k))
			attrs = AppendLengthEncodedString(attrs, []byte(v))
		}
		buf = AppendLengthEncodedInt(buf, uint64(len(attrs)))
		buf = append(buf, attrs...)
	}

	return buf
}

// SSLRequest is the truncated handshake response sent before a TLS upgrade,
// spec.md §4.3 step 1.
type SSLRequest struct {
	Capabilities  Capability
	MaxPacketSize uint32
	CharacterSet  byte
}

func (s *SSLRequest) Encode() []byte {
	buf := make([]byte, 0, 32)
	buf = AppendUint32(buf, uint32(s.Capabilities))
	buf = AppendUint32(buf, s.MaxPacketSize)
	buf = append(buf, s.CharacterSet)
	buf = append(buf, make([]byte, 23)...)
	return buf
}

// AuthSwitchRequest is sent by the server (0xFE) to select a different
// auth plugin mid-handshake.
type AuthSwitchRequest struct {
	PluginName string
	PluginData []byte
}

func ParseAuthSwitchRequest(payload []byte) (*AuthSwitchRequest, error) {
	if len(payload) == 0 || payload[0] != 0xFE {
		return nil, errors.New("protocol: not an AuthSwitchRequest packet")
	}
	off := 1
	name, n, err := ReadNullTerminatedString(payload[off:])
	if err != nil {
		return nil, errors.Wrap(err, "protocol: auth switch plugin name")
	}
	off += n
	data := payload[off:]
	// Trailing NUL is conventional but not guaranteed; strip if present.
	if len(data) > 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	return &AuthSwitchRequest{PluginName: string(name), PluginData: data}, nil
}
