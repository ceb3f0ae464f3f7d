package ldbc

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/takapi327/ldbc-sub016/internal/codec"
	"github.com/takapi327/ldbc-sub016/internal/session"
)

// Statement is the text-protocol handle of spec.md §6:
// execute_query/execute_update/execute over COM_QUERY.
type Statement struct {
	conn *Connection
	inner *session.Statement
}

// ExecuteQuery issues sql and returns a ResultSet cursor over its rows.
func (s *Statement) ExecuteQuery(ctx context.Context, sql string) (*ResultSet, error) {
	start := time.Now()
	rows, err := s.inner.ExecuteQuery(ctx, sql)
	s.conn.logExec(sql, start, err)
	if err != nil {
		return nil, s.conn.translateErr(err)
	}
	return newResultSet(s.conn, rows), nil
}

// ExecuteUpdate issues sql and returns its affected-row count.
func (s *Statement) ExecuteUpdate(ctx context.Context, sql string) (uint64, error) {
	start := time.Now()
	n, err := s.inner.ExecuteUpdate(ctx, sql)
	s.conn.logExec(sql, start, err)
	if err != nil {
		return 0, s.conn.translateErr(err)
	}
	return n, nil
}

// Execute runs sql and reports whether it produced a result set.
func (s *Statement) Execute(ctx context.Context, sql string) (bool, error) {
	start := time.Now()
	hasResultSet, err := s.inner.Execute(ctx, sql)
	s.conn.logExec(sql, start, err)
	if err != nil {
		return false, s.conn.translateErr(err)
	}
	return hasResultSet, nil
}

// PreparedStatement is the binary-protocol handle of spec.md §6:
// set_<type>(index, value), execute_query/execute_update, add_batch/
// execute_batch, close.
type PreparedStatement struct {
	conn  *Connection
	inner *session.PreparedStatement
	sql   string
}

// SetInt64 binds a 1-based parameter index to an integer value.
func (p *PreparedStatement) SetInt64(index int, v int64) error { return p.set(index, v) }

// SetUint64 binds a 1-based parameter index to an unsigned integer value.
func (p *PreparedStatement) SetUint64(index int, v uint64) error { return p.set(index, v) }

// SetString binds a 1-based parameter index to a string value.
func (p *PreparedStatement) SetString(index int, v string) error { return p.set(index, v) }

// SetBytes binds a 1-based parameter index to a raw byte slice (BLOB/
// BINARY).
func (p *PreparedStatement) SetBytes(index int, v []byte) error { return p.set(index, v) }

// SetFloat64 binds a 1-based parameter index to a floating-point value.
func (p *PreparedStatement) SetFloat64(index int, v float64) error { return p.set(index, v) }

// SetBool binds a 1-based parameter index to a boolean value, sent as
// TINYINT(1).
func (p *PreparedStatement) SetBool(index int, v bool) error { return p.set(index, v) }

// SetDecimal binds a 1-based parameter index to an arbitrary-precision
// decimal value.
func (p *PreparedStatement) SetDecimal(index int, v decimal.Decimal) error { return p.set(index, v) }

// SetTime binds a 1-based parameter index to a DATE/DATETIME/TIMESTAMP
// value.
func (p *PreparedStatement) SetTime(index int, v time.Time) error { return p.set(index, v) }

// SetDuration binds a 1-based parameter index to a TIME value.
func (p *PreparedStatement) SetDuration(index int, v codec.Duration) error { return p.set(index, v) }

// SetNull binds a 1-based parameter index to SQL NULL.
func (p *PreparedStatement) SetNull(index int) error { return p.set(index, nil) }

func (p *PreparedStatement) set(index int, v codec.Value) error {
	if err := p.inner.SetParam(index, v); err != nil {
		return NewClientStateError("%v", err)
	}
	return nil
}

// ExecuteQuery runs the statement with its currently bound parameters and
// returns a ResultSet cursor.
func (p *PreparedStatement) ExecuteQuery(ctx context.Context) (*ResultSet, error) {
	start := time.Now()
	rows, err := p.inner.ExecuteQuery(ctx)
	p.conn.logExec(p.sql, start, err)
	if err != nil {
		return nil, p.conn.translateErr(err)
	}
	return newResultSet(p.conn, rows), nil
}

// ExecuteUpdate runs the statement and returns its affected-row count.
func (p *PreparedStatement) ExecuteUpdate(ctx context.Context) (uint64, error) {
	start := time.Now()
	n, err := p.inner.ExecuteUpdate(ctx)
	p.conn.logExec(p.sql, start, err)
	if err != nil {
		return 0, p.conn.translateErr(err)
	}
	return n, nil
}

// AddBatch snapshots the currently bound parameters as one batch row.
func (p *PreparedStatement) AddBatch() error {
	if err := p.inner.AddBatch(); err != nil {
		return NewClientStateError("%v", err)
	}
	return nil
}

// ExecuteBatch runs every batched row and returns each row's affected-row
// count.
func (p *PreparedStatement) ExecuteBatch(ctx context.Context) ([]uint64, error) {
	start := time.Now()
	results, err := p.inner.ExecuteBatch(ctx)
	p.conn.logExec(p.sql, start, err)
	if err != nil {
		return results, p.conn.translateErr(err)
	}
	return results, nil
}

// Close issues COM_STMT_CLOSE, releasing the server-side statement handle.
func (p *PreparedStatement) Close(ctx context.Context) error {
	if err := p.inner.Close(ctx); err != nil {
		return NewProtocolError(err, "PreparedStatement.Close")
	}
	return nil
}
