package protocol

import "github.com/pkg/errors"

// OKPacket is the server's generic success reply.
type OKPacket struct {
	AffectedRows uint64
	LastInsertID uint64
	StatusFlags  ServerStatus
	Warnings     uint16
	Info         string
}

// ERRPacket is the server's generic failure reply, spec.md §3/§7.
type ERRPacket struct {
	Code     uint16
	SQLState string
	Message  string
}

func (e *ERRPacket) Error() string { return e.Message }

// EOFPacket marks the end of a column/row stream when DEPRECATE_EOF is not
// negotiated.
type EOFPacket struct {
	Warnings    uint16
	StatusFlags ServerStatus
}

// IsOK reports whether payload is an OK packet. When deprecateEOF is set,
// a short (<9 byte) packet starting with 0xFE is also an OK packet per
// spec.md §4.4's tie-break; IsOK alone cannot disambiguate that case from
// an EOF-shaped packet without deprecateEOF, callers should check
// IsEOF first when !deprecateEOF.
func IsOK(payload []byte) bool {
	return len(payload) > 0 && payload[0] == packetOK
}

// IsERR reports whether payload is an ERR packet.
func IsERR(payload []byte) bool {
	return len(payload) > 0 && payload[0] == packetERR
}

// IsEOF reports whether payload is an EOF-shaped packet: first byte 0xFE
// and, when deprecateEOF is negotiated, shorter than 9 bytes (otherwise a
// 0xFE-prefixed payload is a legitimate OK packet carrying a large
// affected-row count, per spec.md §4.4).
func IsEOF(payload []byte, deprecateEOF bool) bool {
	if len(payload) == 0 || payload[0] != packetEOF {
		return false
	}
	if deprecateEOF {
		return len(payload) < 9
	}
	return true
}

// IsLocalInfileRequest reports whether payload requests LOCAL INFILE.
func IsLocalInfileRequest(payload []byte) bool {
	return len(payload) > 0 && payload[0] == packetInfile
}

// ParseOK decodes an OK (or DEPRECATE_EOF-shaped OK) packet body.
func ParseOK(payload []byte) (*OKPacket, error) {
	if len(payload) == 0 {
		return nil, errors.New("protocol: empty OK packet")
	}
	off := 1 // skip 0x00 / 0xFE marker
	affected, _, n, err := ReadLengthEncodedInt(payload[off:])
	if err != nil {
		return nil, errors.Wrap(err, "protocol: OK affected rows")
	}
	off += n
	lastInsert, _, n, err := ReadLengthEncodedInt(payload[off:])
	if err != nil {
		return nil, errors.Wrap(err, "protocol: OK last insert id")
	}
	off += n

	ok := &OKPacket{AffectedRows: affected, LastInsertID: lastInsert}
	if len(payload) >= off+2 {
		ok.StatusFlags = ServerStatus(ReadUint16(payload[off:]))
		off += 2
	}
	if len(payload) >= off+2 {
		ok.Warnings = ReadUint16(payload[off:])
		off += 2
	}
	if off < len(payload) {
		ok.Info = string(payload[off:])
	}
	return ok, nil
}

// EncodeOK builds an OK packet body; tests use it to build server
// fixtures.
func EncodeOK(ok *OKPacket) []byte {
	buf := []byte{packetOK}
	buf = AppendLengthEncodedInt(buf, ok.AffectedRows)
	buf = AppendLengthEncodedInt(buf, ok.LastInsertID)
	buf = AppendUint16(buf, uint16(ok.StatusFlags))
	buf = AppendUint16(buf, ok.Warnings)
	buf = append(buf, []byte(ok.Info)...)
	return buf
}

// ParseERR decodes an ERR packet body into the SQL-visible shape of
// spec.md §7 (sqlstate + vendor code + message).
func ParseERR(payload []byte) (*ERRPacket, error) {
	if len(payload) < 3 || payload[0] != packetERR {
		return nil, errors.New("protocol: not an ERR packet")
	}
	code := ReadUint16(payload[1:3])
	off := 3
	sqlState := DefaultSQLState
	if len(payload) > off && payload[off] == '#' {
		if len(payload) < off+6 {
			return nil, errors.New("protocol: truncated ERR sqlstate")
		}
		sqlState = string(payload[off+1 : off+6])
		off += 6
	}
	return &ERRPacket{Code: code, SQLState: sqlState, Message: string(payload[off:])}, nil
}

// EncodeERR is used by tests and by internal/auth plugin test doubles.
func EncodeERR(e *ERRPacket) []byte {
	buf := []byte{packetERR}
	buf = AppendUint16(buf, e.Code)
	buf = append(buf, '#')
	state := e.SQLState
	if state == "" {
		state = DefaultSQLState
	}
	buf = append(buf, []byte(state)...)
	buf = append(buf, []byte(e.Message)...)
	return buf
}

// ParseEOF decodes an EOF packet body.
func ParseEOF(payload []byte) (*EOFPacket, error) {
	if len(payload) < 5 || payload[0] != packetEOF {
		return nil, errors.New("protocol: not an EOF packet")
	}
	return &EOFPacket{
		Warnings:    ReadUint16(payload[1:3]),
		StatusFlags: ServerStatus(ReadUint16(payload[3:5])),
	}, nil
}

// EncodeEOF is used by tests.
func EncodeEOF(e *EOFPacket) []byte {
	buf := []byte{packetEOF}
	buf = AppendUint16(buf, e.Warnings)
	buf = AppendUint16(buf, uint16(e.StatusFlags))
	return buf
}
