package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/takapi327/ldbc-sub016/internal/protocol"
)

// Statement is the text-protocol handle of spec.md §6:
// execute_query/execute_update/execute over COM_QUERY.
type Statement struct {
	sess *Session
}

// ExecuteQuery issues sql via COM_QUERY and returns a row cursor.
func (st *Statement) ExecuteQuery(ctx context.Context, sql string) (*Rows, error) {
	if err := st.sess.state.begin(StateInQuery); err != nil {
		return nil, err
	}
	if err := st.sess.pc.WriteCommand(protocol.ComQuery, protocol.BuildComQuery(sql)); err != nil {
		st.sess.state.end()
		return nil, errors.Wrap(err, "session: write COM_QUERY")
	}

	header, err := st.sess.pc.ReadPacket()
	if err != nil {
		st.sess.state.end()
		return nil, errors.Wrap(err, "session: read query response")
	}
	if protocol.IsLocalInfileRequest(header) {
		// LOCAL INFILE is refused: an empty packet tells the server no file
		// data follows, and its OK or ERR reply is handled below.
		if err := st.sess.pc.WritePacket(nil); err != nil {
			st.sess.state.end()
			return nil, errors.Wrap(err, "session: refuse LOCAL INFILE")
		}
		if header, err = st.sess.pc.ReadPacket(); err != nil {
			st.sess.state.end()
			return nil, errors.Wrap(err, "session: read LOCAL INFILE refusal response")
		}
	}
	if protocol.IsERR(header) {
		st.sess.state.end()
		e, _ := protocol.ParseERR(header)
		return nil, errServerError(e)
	}
	if protocol.IsOK(header) {
		st.sess.state.end()
		ok, err := protocol.ParseOK(header)
		if err != nil {
			return nil, err
		}
		return &Rows{sess: st.sess, done: true, affected: ok.AffectedRows, lastInsert: ok.LastInsertID, warnings: ok.Warnings}, nil
	}

	rsHeader, err := protocol.ParseResultSetHeader(header)
	if err != nil {
		st.sess.state.end()
		return nil, err
	}
	columns, err := st.sess.readColumnList(int(rsHeader.ColumnCount))
	if err != nil {
		st.sess.state.end()
		return nil, err
	}
	rows := newRows(st.sess, columns, false)
	// state returns to Idle only once the caller finishes draining rows;
	// Rows.Drain/Close calls back into the session to release it.
	rows.release = st.sess.state.end
	return rows, nil
}

// ExecuteUpdate issues sql via COM_QUERY and returns the affected-row
// count, for statements that produce no result set.
func (st *Statement) ExecuteUpdate(ctx context.Context, sql string) (uint64, error) {
	rows, err := st.ExecuteQuery(ctx, sql)
	if err != nil {
		return 0, err
	}
	if err := rows.Drain(); err != nil {
		return 0, err
	}
	return rows.AffectedRows(), nil
}

// Execute runs sql and reports whether it produced a result set, per
// spec.md §6's execute(sql) → bool.
func (st *Statement) Execute(ctx context.Context, sql string) (bool, error) {
	rows, err := st.ExecuteQuery(ctx, sql)
	if err != nil {
		return false, err
	}
	hasResultSet := len(rows.columns) > 0
	if !hasResultSet {
		if err := rows.Drain(); err != nil {
			return false, err
		}
	}
	return hasResultSet, nil
}
