package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/takapi327/ldbc-sub016/internal/codec"
	"github.com/takapi327/ldbc-sub016/internal/protocol"
)

// PreparedStatement is the binary-protocol handle of spec.md §4.6:
// exclusively owned by the session that prepared it, closed via
// COM_STMT_CLOSE before the session returns to idle unless the pool
// caches it (internal/session.Session.stmtCache does, bounded by LRU).
type PreparedStatement struct {
	sess   *Session
	stmtID uint32

	paramColumns  []*protocol.ColumnDefinition41
	resultColumns []*protocol.ColumnDefinition41

	params []codec.Value
	bound  []bool

	batch [][]codec.Value
	sentTypes bool
}

// NumParams reports how many parameters this statement expects.
func (ps *PreparedStatement) NumParams() int { return len(ps.params) }

// SetParam binds a 1-based parameter index to value, per spec.md §6's
// set_<type>(index, value) family collapsed to one typed entry point —
// codec.Value already carries its own type tag.
func (ps *PreparedStatement) SetParam(index int, value codec.Value) error {
	i := index - 1
	if i < 0 || i >= len(ps.params) {
		return errors.Errorf("session: parameter index %d out of range [1,%d]", index, len(ps.params))
	}
	ps.params[i] = value
	ps.bound[i] = true
	return nil
}

// AddBatch snapshots the currently bound parameters as one batch row and
// clears the binding for the next row.
func (ps *PreparedStatement) AddBatch() error {
	for i, b := range ps.bound {
		if !b {
			return errors.Errorf("session: parameter %d not bound before add_batch", i+1)
		}
	}
	row := make([]codec.Value, len(ps.params))
	copy(row, ps.params)
	ps.batch = append(ps.batch, row)
	for i := range ps.bound {
		ps.bound[i] = false
	}
	return nil
}

// ExecuteBatch runs every batched row via COM_STMT_EXECUTE in turn and
// returns each row's affected-row count, per spec.md §6.
func (ps *PreparedStatement) ExecuteBatch(ctx context.Context) ([]uint64, error) {
	results := make([]uint64, 0, len(ps.batch))
	saved, savedBound := ps.params, ps.bound
	// AddBatch only accepts fully bound rows, so every batched row counts
	// as bound while it executes.
	ps.bound = make([]bool, len(savedBound))
	for i := range ps.bound {
		ps.bound[i] = true
	}
	for _, row := range ps.batch {
		ps.params = row
		n, err := ps.ExecuteUpdate(ctx)
		if err != nil {
			ps.params, ps.bound = saved, savedBound
			return results, err
		}
		results = append(results, n)
	}
	ps.params, ps.bound = saved, savedBound
	ps.batch = nil
	return results, nil
}

func (ps *PreparedStatement) buildBoundParams() ([]protocol.BoundParam, error) {
	out := make([]protocol.BoundParam, len(ps.params))
	for i, v := range ps.params {
		bp, err := codec.EncodeParam(v)
		if err != nil {
			return nil, errors.Wrapf(err, "session: encode parameter %d", i+1)
		}
		out[i] = bp
	}
	return out, nil
}

// ExecuteQuery runs the statement via COM_STMT_EXECUTE and returns a
// binary-protocol row cursor.
func (ps *PreparedStatement) ExecuteQuery(ctx context.Context) (*Rows, error) {
	if err := ps.sess.state.begin(StateInExecute); err != nil {
		return nil, err
	}
	if len(ps.params) > 0 {
		for i, b := range ps.bound {
			if !b {
				ps.sess.state.end()
				return nil, errors.Errorf("session: parameter %d not bound", i+1)
			}
		}
	}

	bound, err := ps.buildBoundParams()
	if err != nil {
		ps.sess.state.end()
		return nil, err
	}
	sendTypes := !ps.sentTypes
	body := protocol.BuildComStmtExecute(ps.stmtID, bound, sendTypes)
	if err := ps.sess.pc.WriteCommand(protocol.ComStmtExecute, body); err != nil {
		ps.sess.state.end()
		return nil, errors.Wrap(err, "session: write COM_STMT_EXECUTE")
	}
	ps.sentTypes = true

	header, err := ps.sess.pc.ReadPacket()
	if err != nil {
		ps.sess.state.end()
		return nil, errors.Wrap(err, "session: read execute response")
	}
	if protocol.IsERR(header) {
		ps.sess.state.end()
		e, _ := protocol.ParseERR(header)
		return nil, errServerError(e)
	}
	if protocol.IsOK(header) {
		ps.sess.state.end()
		ok, err := protocol.ParseOK(header)
		if err != nil {
			return nil, err
		}
		return &Rows{sess: ps.sess, done: true, affected: ok.AffectedRows, lastInsert: ok.LastInsertID, warnings: ok.Warnings}, nil
	}

	rsHeader, err := protocol.ParseResultSetHeader(header)
	if err != nil {
		ps.sess.state.end()
		return nil, err
	}
	columns, err := ps.sess.readColumnList(int(rsHeader.ColumnCount))
	if err != nil {
		ps.sess.state.end()
		return nil, err
	}
	rows := newRows(ps.sess, columns, true)
	rows.release = ps.sess.state.end
	return rows, nil
}

// ExecuteUpdate runs the statement and returns its affected-row count.
func (ps *PreparedStatement) ExecuteUpdate(ctx context.Context) (uint64, error) {
	rows, err := ps.ExecuteQuery(ctx)
	if err != nil {
		return 0, err
	}
	if err := rows.Drain(); err != nil {
		return 0, err
	}
	return rows.AffectedRows(), nil
}

// Close issues COM_STMT_CLOSE and evicts the statement from the session's
// cache. The server sends no reply to this command.
func (ps *PreparedStatement) Close(ctx context.Context) error {
	ps.sess.stmtCache.Remove(ps.stmtID)
	return ps.sess.pc.WriteCommand(protocol.ComStmtClose, protocol.BuildComStmtClose(ps.stmtID))
}

// Reset issues COM_STMT_RESET, clearing any long-data buffers and cursor
// state while keeping the statement prepared.
func (ps *PreparedStatement) Reset(ctx context.Context) error {
	if err := ps.sess.pc.WriteCommand(protocol.ComStmtReset, protocol.BuildComStmtReset(ps.stmtID)); err != nil {
		return errors.Wrap(err, "session: write COM_STMT_RESET")
	}
	reply, err := ps.sess.pc.ReadPacket()
	if err != nil {
		return errors.Wrap(err, "session: read COM_STMT_RESET response")
	}
	if protocol.IsERR(reply) {
		e, _ := protocol.ParseERR(reply)
		return errServerError(e)
	}
	for i := range ps.bound {
		ps.bound[i] = false
	}
	return nil
}
