package session

import (
	"github.com/pkg/errors"

	"github.com/takapi327/ldbc-sub016/internal/codec"
	"github.com/takapi327/ldbc-sub016/internal/protocol"
)

// Rows is the session-level cursor over one result set: column metadata
// plus on-demand row decoding, shared by the text (Statement) and binary
// (PreparedStatement) execution paths of spec.md §4.4/§4.5. The public
// ldbc.ResultSet wraps this with the get_<type>/was_null surface of
// spec.md §6.
type Rows struct {
	sess        *Session
	columns     []*protocol.ColumnDefinition41
	codecCols   []codec.Column
	binary      bool
	deprecateEOF bool

	current    []codec.Value
	nullFlags  []bool
	warnings   uint16
	statusFlags protocol.ServerStatus
	done       bool
	affected   uint64 // set for OK-terminated result sets with no rows
	lastInsert uint64

	// release returns the session's command-phase state to Idle once this
	// result set is fully drained or closed; nil for Rows that never
	// claimed a state-machine slot (e.g. a bare OK response).
	release func()
}

func newRows(sess *Session, columns []*protocol.ColumnDefinition41, binary bool) *Rows {
	codecCols := make([]codec.Column, len(columns))
	for i, c := range columns {
		codecCols[i] = codec.FromDefinition(c)
	}
	return &Rows{
		sess:         sess,
		columns:      columns,
		codecCols:    codecCols,
		binary:       binary,
		deprecateEOF: sess.caps.Has(protocol.ClientDeprecateEOF),
	}
}

// Columns exposes the result set's column metadata for label-based lookup.
func (r *Rows) Columns() []*protocol.ColumnDefinition41 { return r.columns }

// Next advances to the next row, decoding it into r.current. It returns
// false when the result set is exhausted (including when
// SERVER_MORE_RESULTS_EXISTS was set — callers use NextResultSet to
// continue, per spec.md's multi-result supplemented feature).
func (r *Rows) Next() (bool, error) {
	if r.done {
		return false, nil
	}
	payload, err := r.sess.pc.ReadPacket()
	if err != nil {
		r.done = true
		return false, errors.Wrap(err, "session: read row packet")
	}

	if r.binary {
		// Binary rows start with a 0x00 header, so only the 0xFE
		// terminator ends the stream.
		if protocol.IsEOF(payload, r.deprecateEOF) {
			return false, r.terminate(payload)
		}
		row, err := protocol.ParseBinaryRow(payload, r.columns)
		if err != nil {
			return false, errors.Wrap(err, "session: parse binary row")
		}
		return true, r.decodeBinary(row)
	}

	if !protocol.IsRowPacket(payload, r.deprecateEOF) {
		return false, r.terminate(payload)
	}
	row, err := protocol.ParseTextRow(payload, len(r.columns))
	if err != nil {
		return false, errors.Wrap(err, "session: parse text row")
	}
	return true, r.decodeText(row)
}

func (r *Rows) terminate(payload []byte) error {
	r.done = true
	if r.release != nil {
		r.release()
		r.release = nil
	}
	if protocol.IsOK(payload) {
		ok, err := protocol.ParseOK(payload)
		if err != nil {
			return err
		}
		r.warnings = ok.Warnings
		r.statusFlags = ok.StatusFlags
		r.affected = ok.AffectedRows
		r.lastInsert = ok.LastInsertID
		return nil
	}
	eof, err := protocol.ParseEOF(payload)
	if err != nil {
		return err
	}
	r.warnings = eof.Warnings
	r.statusFlags = eof.StatusFlags
	return nil
}

func (r *Rows) decodeText(row *protocol.TextRow) error {
	r.current = make([]codec.Value, len(row.Values))
	r.nullFlags = make([]bool, len(row.Values))
	for i, raw := range row.Values {
		if raw == nil {
			r.nullFlags[i] = true
			continue
		}
		v, warn, err := codec.DecodeTextValue(raw, r.codecCols[i])
		if err != nil {
			return errors.Wrapf(err, "session: decode column %d", i)
		}
		if warn {
			r.sess.log.Warnf("session: lossy charset decode for column %s", r.columns[i].Name)
		}
		r.current[i] = v
	}
	return nil
}

func (r *Rows) decodeBinary(row *protocol.BinaryRow) error {
	r.current = make([]codec.Value, len(row.Values))
	r.nullFlags = make([]bool, len(row.Values))
	for i, raw := range row.Values {
		if raw == nil {
			r.nullFlags[i] = true
			continue
		}
		v, warn, err := codec.DecodeBinaryValue(raw, r.codecCols[i])
		if err != nil {
			return errors.Wrapf(err, "session: decode column %d", i)
		}
		if warn {
			r.sess.log.Warnf("session: lossy charset decode for column %s", r.columns[i].Name)
		}
		r.current[i] = v
	}
	return nil
}

// Value returns the decoded value at a 0-based column index and whether
// it was SQL NULL.
func (r *Rows) Value(index int) (codec.Value, bool) {
	if index < 0 || index >= len(r.current) {
		return nil, true
	}
	return r.current[index], r.nullFlags[index]
}

// IndexOf resolves a column label to its 0-based index, for label-based
// get_<type> lookups.
func (r *Rows) IndexOf(label string) (int, bool) {
	for i, c := range r.columns {
		if c.Name == label {
			return i, true
		}
	}
	return 0, false
}

// HasMoreResults reports whether the terminating OK/EOF carried
// SERVER_MORE_RESULTS_EXISTS, per spec.md §4.4.
func (r *Rows) HasMoreResults() bool {
	return r.statusFlags&protocol.StatusMoreResultsExists != 0
}

func (r *Rows) Warnings() uint16       { return r.warnings }
func (r *Rows) AffectedRows() uint64   { return r.affected }
func (r *Rows) LastInsertID() uint64   { return r.lastInsert }

// Drain reads and discards any remaining rows, leaving the session able
// to issue the next command; used by Close and by NextResultSet before
// reading the next result set's header.
func (r *Rows) Drain() error {
	for !r.done {
		if _, err := r.Next(); err != nil {
			return err
		}
	}
	return nil
}

// Close drains any unread rows and releases the session's command slot.
func (r *Rows) Close() error {
	return r.Drain()
}
