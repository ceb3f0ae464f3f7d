package protocol

import "github.com/pkg/errors"

// ResultSetHeader is the first packet of a COM_QUERY/COM_STMT_EXECUTE
// result set: the column count, per spec.md §4.4's ResultSet grammar.
type ResultSetHeader struct {
	ColumnCount uint64
}

// ParseResultSetHeader decodes the lenenc column count.
func ParseResultSetHeader(payload []byte) (*ResultSetHeader, error) {
	count, isNull, _, err := ReadLengthEncodedInt(payload)
	if err != nil || isNull {
		return nil, errors.New("protocol: malformed result set header")
	}
	return &ResultSetHeader{ColumnCount: count}, nil
}

// ReadColumnDefinitions reads columnCount ColumnDefinition41 packets
// followed by a trailing EOF when !deprecateEOF, using next to pull
// packets from the wire (normally PacketCodec.ReadPacket).
func ReadColumnDefinitions(next func() ([]byte, error), columnCount uint64, deprecateEOF bool) ([]*ColumnDefinition41, error) {
	cols := make([]*ColumnDefinition41, 0, columnCount)
	for i := uint64(0); i < columnCount; i++ {
		payload, err := next()
		if err != nil {
			return nil, errors.Wrap(err, "protocol: read column definition")
		}
		col, err := ParseColumnDefinition41(payload)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if !deprecateEOF {
		payload, err := next()
		if err != nil {
			return nil, errors.Wrap(err, "protocol: read column definitions terminator")
		}
		if !IsEOF(payload, false) {
			return nil, errors.New("protocol: expected EOF after column definitions")
		}
	}
	return cols, nil
}

// RowTerminator describes how a row stream ended: a plain EOF/OK, or an OK
// carrying SERVER_MORE_RESULTS_EXISTS (spec.md §4.4), in which case the
// caller should loop back to ParseResultSetHeader for the next result set.
type RowTerminator struct {
	MoreResultsExist bool
	Warnings         uint16
	StatusFlags      ServerStatus
}

// ParseRowTerminator interprets the OK/EOF packet that ends a row stream.
func ParseRowTerminator(payload []byte, deprecateEOF bool) (*RowTerminator, error) {
	if IsOK(payload) || (deprecateEOF && IsEOF(payload, true)) {
		ok, err := ParseOK(payload)
		if err != nil {
			return nil, err
		}
		return &RowTerminator{
			MoreResultsExist: ok.StatusFlags&StatusMoreResultsExists != 0,
			Warnings:         ok.Warnings,
			StatusFlags:      ok.StatusFlags,
		}, nil
	}
	eof, err := ParseEOF(payload)
	if err != nil {
		return nil, err
	}
	return &RowTerminator{
		MoreResultsExist: eof.StatusFlags&StatusMoreResultsExists != 0,
		Warnings:         eof.Warnings,
		StatusFlags:      eof.StatusFlags,
	}, nil
}
