package ldbc

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/takapi327/ldbc-sub016/internal/codec"
	"github.com/takapi327/ldbc-sub016/internal/session"
)

// ResultSet is the cursor spec.md §6 names: next/get_<type>/was_null/
// close, plus the NextResultSet extension SPEC_FULL.md adds for
// multi-statement/stored-procedure result sets.
type ResultSet struct {
	rows     *session.Rows
	lastNull bool
	conn     *Connection
}

func newResultSet(conn *Connection, rows *session.Rows) *ResultSet {
	return &ResultSet{conn: conn, rows: rows}
}

// Next advances to the next row. It returns false once the current
// result set is exhausted; call NextResultSet to continue into a
// following result set produced by a multi-statement COM_QUERY or a
// stored-procedure call.
func (r *ResultSet) Next() (bool, error) {
	ok, err := r.rows.Next()
	if err != nil {
		return false, NewProtocolError(err, "ResultSet.Next")
	}
	return ok, nil
}

// HasMoreResults reports whether another result set follows this one.
func (r *ResultSet) HasMoreResults() bool { return r.rows.HasMoreResults() }

// NextResultSet drains any unread rows of the current result set and
// reports whether a following one exists; spec.md §4.4's multi-result
// iteration exposed at the public surface, per SPEC_FULL.md's
// supplemented feature #3.
func (r *ResultSet) NextResultSet() (bool, error) {
	if err := r.rows.Drain(); err != nil {
		return false, NewProtocolError(err, "ResultSet.NextResultSet")
	}
	return r.rows.HasMoreResults(), nil
}

// Warnings returns the warning count carried by the terminating OK/EOF
// packet.
func (r *ResultSet) Warnings() uint16 { return r.rows.Warnings() }

// AffectedRows returns the affected-row count for a result set that
// turned out to be an OK-shaped response with no rows.
func (r *ResultSet) AffectedRows() uint64 { return r.rows.AffectedRows() }

// LastInsertID returns the last-insert-id carried by the terminating OK
// packet, when present.
func (r *ResultSet) LastInsertID() uint64 { return r.rows.LastInsertID() }

// WasNull reports whether the value most recently fetched by a
// get_<type> call was SQL NULL.
func (r *ResultSet) WasNull() bool { return r.lastNull }

// Close drains any unread rows and releases the session's command slot.
func (r *ResultSet) Close() error {
	if err := r.rows.Close(); err != nil {
		return NewProtocolError(err, "ResultSet.Close")
	}
	return nil
}

func (r *ResultSet) resolve(col interface{}) (int, error) {
	switch v := col.(type) {
	case int:
		return v - 1, nil
	case string:
		idx, ok := r.rows.IndexOf(v)
		if !ok {
			return 0, NewClientStateError("ResultSet: no such column %q", v)
		}
		return idx, nil
	default:
		return 0, NewClientStateError("ResultSet: column selector must be an int index or string label")
	}
}

func (r *ResultSet) value(col interface{}) (codec.Value, error) {
	idx, err := r.resolve(col)
	if err != nil {
		return nil, err
	}
	v, isNull := r.rows.Value(idx)
	r.lastNull = isNull
	return v, nil
}

// GetInt64 returns column col (1-based index or label) as an int64.
func (r *ResultSet) GetInt64(col interface{}) (int64, error) {
	v, err := r.value(col)
	if err != nil || r.lastNull {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	default:
		return 0, NewClientStateError("ResultSet: column is not an integer type (%T)", v)
	}
}

// GetUint64 returns column col as a uint64, for UNSIGNED columns.
func (r *ResultSet) GetUint64(col interface{}) (uint64, error) {
	v, err := r.value(col)
	if err != nil || r.lastNull {
		return 0, err
	}
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		return uint64(n), nil
	default:
		return 0, NewClientStateError("ResultSet: column is not an integer type (%T)", v)
	}
}

// GetString returns column col as a string.
func (r *ResultSet) GetString(col interface{}) (string, error) {
	v, err := r.value(col)
	if err != nil || r.lastNull {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", NewClientStateError("ResultSet: column is not a string type (%T)", v)
	}
}

// GetBytes returns column col as a raw byte slice, for BLOB/BINARY
// columns.
func (r *ResultSet) GetBytes(col interface{}) ([]byte, error) {
	v, err := r.value(col)
	if err != nil || r.lastNull {
		return nil, err
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case codec.Bit:
		return []byte(b), nil
	default:
		return nil, NewClientStateError("ResultSet: column is not a byte-shaped type (%T)", v)
	}
}

// GetFloat64 returns column col as a float64.
func (r *ResultSet) GetFloat64(col interface{}) (float64, error) {
	v, err := r.value(col)
	if err != nil || r.lastNull {
		return 0, err
	}
	switch f := v.(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	case decimal.Decimal:
		out, _ := f.Float64()
		return out, nil
	default:
		return 0, NewClientStateError("ResultSet: column is not a floating-point type (%T)", v)
	}
}

// GetDecimal returns column col as an arbitrary-precision decimal.Decimal.
func (r *ResultSet) GetDecimal(col interface{}) (decimal.Decimal, error) {
	v, err := r.value(col)
	if err != nil || r.lastNull {
		return decimal.Zero, err
	}
	d, ok := v.(decimal.Decimal)
	if !ok {
		return decimal.Zero, NewClientStateError("ResultSet: column is not DECIMAL (%T)", v)
	}
	return d, nil
}

// GetBool returns column col interpreted as a boolean (MySQL has no
// dedicated BOOLEAN wire type; it is conventionally a TINYINT(1)).
func (r *ResultSet) GetBool(col interface{}) (bool, error) {
	n, err := r.GetInt64(col)
	if err != nil || r.lastNull {
		return false, err
	}
	return n != 0, nil
}

// GetTime returns column col as a time.Time, for DATE/DATETIME/TIMESTAMP
// columns.
func (r *ResultSet) GetTime(col interface{}) (time.Time, error) {
	v, err := r.value(col)
	if err != nil || r.lastNull {
		return time.Time{}, err
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, NewClientStateError("ResultSet: column is not a temporal type (%T)", v)
	}
	return t, nil
}

// GetDuration returns column col as a codec.Duration, for TIME columns
// (which may exceed 24 hours and carry a sign, unlike time.Duration).
func (r *ResultSet) GetDuration(col interface{}) (codec.Duration, error) {
	v, err := r.value(col)
	if err != nil || r.lastNull {
		return codec.Duration{}, err
	}
	d, ok := v.(codec.Duration)
	if !ok {
		return codec.Duration{}, NewClientStateError("ResultSet: column is not a TIME type (%T)", v)
	}
	return d, nil
}

// Columns returns the column labels in result-set order, for callers that
// want to iterate generically rather than call get_<type> by name.
func (r *ResultSet) Columns() []string {
	defs := r.rows.Columns()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}
