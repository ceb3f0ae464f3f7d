package ldbc

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/takapi327/ldbc-sub016/internal/auth"
	"github.com/takapi327/ldbc-sub016/internal/pool"
	"github.com/takapi327/ldbc-sub016/internal/session"
)

// Connection is a scoped handle on one leased session, per spec.md §6:
// "DataSource.get_connection() → scoped Connection. A scoped connection
// release returns to the pool." Closing it releases the lease rather than
// tearing down the physical connection.
type Connection struct {
	ds    *DataSource
	lease pool.Lease
	sess  *session.Session

	mu       sync.Mutex
	released bool
}

func newConnection(ds *DataSource, lease pool.Lease) *Connection {
	return &Connection{ds: ds, lease: lease, sess: lease.Resource.(*session.Session)}
}

// sqlStater is satisfied by the unexported error kinds internal/session
// and internal/auth use to carry SQLSTATE/vendor-code pairs across the
// package boundary without exporting their concrete types.
type sqlStater interface {
	error
	SQLState() string
	VendorCode() uint16
}

// translateErr maps an internal-package error into the exported taxonomy
// of errors.go, per spec.md §7.
func (c *Connection) translateErr(err error) error {
	return translateErr(err)
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var ss sqlStater
	if stderrors.As(err, &ss) {
		var am authMarker
		if stderrors.As(err, &am) {
			return NewAuthorizationError(ss.SQLState(), ss.VendorCode(), "%s", ss.Error())
		}
		return NewServerError(ss.SQLState(), ss.VendorCode(), ss.Error())
	}
	var timeout *pool.TimeoutError
	if stderrors.As(err, &timeout) {
		return NewTransientNetworkError(err, "connection pool exhausted")
	}
	if stderrors.Is(err, pool.ErrClosed) {
		return NewClientStateError("data source is closed")
	}
	return NewProtocolError(err, "connection")
}

// authMarker is satisfied by internal/session's authorizationFailure,
// distinguishing it from a plain serverError across the package boundary.
type authMarker interface {
	AuthorizationFailure() bool
}

func (c *Connection) logExec(sql string, start time.Time, err error) {
	kind := LogSuccess
	if err != nil {
		kind = LogExecFailure
	}
	emitLogEvent(c.ds.log, c.ds.cfg.LogHandler, LogEvent{
		Kind:         kind,
		SQL:          sql,
		ConnectionID: c.sess.ConnectionID(),
		Duration:     time.Since(start),
		Err:          err,
	})
}

// CreateStatement returns a text-protocol Statement handle.
func (c *Connection) CreateStatement() *Statement {
	return &Statement{conn: c, inner: c.sess.CreateStatement()}
}

// PrepareStatement issues COM_STMT_PREPARE and returns an owning handle.
func (c *Connection) PrepareStatement(ctx context.Context, sql string) (*PreparedStatement, error) {
	inner, err := c.sess.PrepareStatement(ctx, sql)
	if err != nil {
		return nil, c.translateErr(err)
	}
	return &PreparedStatement{conn: c, inner: inner, sql: sql}, nil
}

// SetAutoCommit issues SET autocommit=… and tracks it in session state.
func (c *Connection) SetAutoCommit(ctx context.Context, on bool) error {
	return c.translateErr(c.sess.SetAutoCommit(ctx, on))
}

// AutoCommit reports the session's current autocommit setting.
func (c *Connection) AutoCommit() bool { return c.sess.AutoCommit() }

// SetTransactionIsolation issues SET TRANSACTION ISOLATION LEVEL …
func (c *Connection) SetTransactionIsolation(ctx context.Context, level session.IsolationLevel) error {
	return c.translateErr(c.sess.SetTransactionIsolation(ctx, level))
}

// TransactionIsolation reports the session's current isolation level.
func (c *Connection) TransactionIsolation() session.IsolationLevel {
	return c.sess.TransactionIsolation()
}

// SetReadOnly issues SET TRANSACTION READ ONLY|READ WRITE.
func (c *Connection) SetReadOnly(ctx context.Context, readOnly bool) error {
	return c.translateErr(c.sess.SetReadOnly(ctx, readOnly))
}

// ReadOnly reports the session's current read-only setting.
func (c *Connection) ReadOnly() bool { return c.sess.ReadOnly() }

// Begin starts a transaction.
func (c *Connection) Begin(ctx context.Context) error {
	return c.translateErr(c.sess.Begin(ctx))
}

// Commit commits the open transaction.
func (c *Connection) Commit(ctx context.Context) error {
	return c.translateErr(c.sess.Commit(ctx))
}

// Rollback rolls back the open transaction. Idempotent: rolling back an
// already-rolled-back transaction is a no-op returning success.
func (c *Connection) Rollback(ctx context.Context) error {
	return c.translateErr(c.sess.Rollback(ctx))
}

// InTransaction reports whether a transaction is currently open.
func (c *Connection) InTransaction() bool { return c.sess.InTransaction() }

// SetSavepoint issues SAVEPOINT name, generating a name when none is
// supplied.
func (c *Connection) SetSavepoint(ctx context.Context, name string) (Savepoint, error) {
	n, err := c.sess.SetSavepoint(ctx, name)
	if err != nil {
		return Savepoint{}, c.translateErr(err)
	}
	return Savepoint{name: n}, nil
}

// RollbackToSavepoint issues ROLLBACK TO SAVEPOINT sp.Name().
func (c *Connection) RollbackToSavepoint(ctx context.Context, sp Savepoint) error {
	return c.translateErr(c.sess.RollbackToSavepoint(ctx, sp.name))
}

// ReleaseSavepoint issues RELEASE SAVEPOINT sp.Name().
func (c *Connection) ReleaseSavepoint(ctx context.Context, sp Savepoint) error {
	return c.translateErr(c.sess.ReleaseSavepoint(ctx, sp.name))
}

// ChangeUser executes COM_CHANGE_USER and re-runs the auth sub-protocol
// on the open socket, resetting session state.
func (c *Connection) ChangeUser(ctx context.Context, username, password string, database string) error {
	creds := auth.Credentials{
		Username:     username,
		Password:     password,
		Database:     database,
		Charset:      c.ds.cfg.Charset(),
		ConnectAttrs: c.ds.cfg.ConnectAttrs,
	}
	return c.translateErr(c.sess.ChangeUser(ctx, creds))
}

// IsValid issues COM_PING under timeout.
func (c *Connection) IsValid(ctx context.Context, timeout time.Duration) bool {
	return c.sess.IsValid(ctx, timeout)
}

// ConnectionID is the server-assigned thread id.
func (c *Connection) ConnectionID() uint32 { return c.sess.ConnectionID() }

// CancelInFlight opens a short-lived auxiliary connection authenticated
// with the same credentials and issues KILL QUERY <connection_id>, per
// spec.md §5's optional administrative side-channel. Once the side channel
// is open, the original session is closed regardless of the kill's outcome: the
// in-flight command's response bytes may still be on the wire and cannot
// be unambiguously discarded.
func (c *Connection) CancelInFlight(ctx context.Context) error {
	aux, err := session.Dial(ctx, c.ds.cfg.Addr(), c.ds.cfg.Host, c.ds.cfg.TLSMode, c.ds.credentials(), c.ds.log, 0)
	if err != nil {
		return NewTransientNetworkError(err, "CancelInFlight: open side-channel")
	}
	defer aux.Close()

	stmt := aux.CreateStatement()
	sql := fmt.Sprintf("KILL QUERY %d", c.sess.ConnectionID())
	if _, err := stmt.ExecuteUpdate(ctx, sql); err != nil {
		_ = c.sess.Close()
		return c.translateErr(err)
	}
	_ = c.sess.Close()
	return nil
}

// Close releases the lease back to the pool; the physical connection is
// reset and reused rather than torn down, unless Reset itself fails.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil
	}
	c.released = true
	c.mu.Unlock()

	if err := c.ds.pool.Release(context.Background(), c.lease); err != nil {
		return NewProtocolError(err, "Connection.Close")
	}
	return nil
}
