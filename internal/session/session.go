// Package session implements the Connection contract and transaction /
// prepared-statement state of spec.md §4.6 (C6): everything a single
// physical, authenticated connection owns between acquisition and
// release.
package session

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/takapi327/ldbc-sub016/internal/auth"
	"github.com/takapi327/ldbc-sub016/internal/codec"
	"github.com/takapi327/ldbc-sub016/internal/logging"
	"github.com/takapi327/ldbc-sub016/internal/protocol"
	"github.com/takapi327/ldbc-sub016/internal/transport"
)

// IsolationLevel is the closed set spec.md §4.6 names for
// set_transaction_isolation.
type IsolationLevel string

const (
	ReadUncommitted IsolationLevel = "READ UNCOMMITTED"
	ReadCommitted   IsolationLevel = "READ COMMITTED"
	RepeatableRead  IsolationLevel = "REPEATABLE READ"
	Serializable    IsolationLevel = "SERIALIZABLE"
)

// Session is one physical, authenticated connection and its session-level
// state: autocommit, isolation, read-only, open transaction/savepoints,
// and a bounded cache of server-side prepared statements.
type Session struct {
	xport *transport.Transport
	pc    *protocol.PacketCodec
	log   logging.Logger

	caps          protocol.Capability
	connectionID  uint32
	serverVersion string
	scramble      []byte
	host          string
	tlsMode       transport.TLSMode
	creds         auth.Credentials

	state stateMachine

	autocommit     bool
	isolation      IsolationLevel
	readOnly       bool
	inTransaction  bool
	savepointSeq   int

	stmtCache *lru.Cache[uint32, *PreparedStatement]
}

// Dial opens a TCP connection, negotiates TLS and authentication, and
// returns a ready Session — the pool.Factory this module plugs into
// internal/pool.
func Dial(ctx context.Context, addr, host string, tlsMode transport.TLSMode, creds auth.Credentials, log logging.Logger, stmtCacheSize int) (*Session, error) {
	if log == nil {
		log = logging.Noop()
	}
	xport, err := transport.Dial(ctx, addr)
	if err != nil {
		return nil, errors.Wrap(err, "session: dial")
	}
	pc := protocol.NewPacketCodec(xport, 4096)

	result, err := auth.Authenticate(ctx, pc, xport, host, tlsMode, creds)
	if err != nil {
		_ = xport.Close()
		if sqlState, vendorCode, ok := auth.AsAuthError(err); ok {
			return nil, &authorizationFailure{sqlState: sqlState, vendorCode: vendorCode, cause: err}
		}
		if errors.Is(err, auth.ErrUnknownPlugin) {
			return nil, &authorizationFailure{sqlState: "28000", cause: err}
		}
		return nil, err
	}

	if stmtCacheSize <= 0 {
		stmtCacheSize = 32
	}
	cache, _ := lru.New[uint32, *PreparedStatement](stmtCacheSize)

	s := &Session{
		xport:         xport,
		pc:            pc,
		log:           log,
		caps:          result.Capabilities,
		connectionID:  result.ConnectionID,
		serverVersion: result.ServerVersion,
		scramble:      result.Scramble,
		host:          host,
		tlsMode:       tlsMode,
		creds:         creds,
		autocommit:    true,
		stmtCache:     cache,
	}
	return s, nil
}

// authorizationFailure adapts an auth-phase server rejection, or a server
// request for an authentication plugin this client does not know; the root
// package maps this onto its exported AuthorizationFailure kind.
type authorizationFailure struct {
	sqlState   string
	vendorCode uint16
	cause      error
}

func (e *authorizationFailure) Error() string { return e.cause.Error() }
func (e *authorizationFailure) Unwrap() error { return e.cause }
func (e *authorizationFailure) SQLState() string   { return e.sqlState }
func (e *authorizationFailure) VendorCode() uint16 { return e.vendorCode }

// AuthorizationFailure marks this error as belonging to spec.md §7's
// AuthorizationFailure kind, letting the root package distinguish it from
// a serverError across the package boundary without a type-name check.
func (e *authorizationFailure) AuthorizationFailure() bool { return true }

// ConnectionID is the server-assigned thread id, used to build KILL QUERY
// for CancelInFlight.
func (s *Session) ConnectionID() uint32 { return s.connectionID }

// State reports the current command-phase state.
func (s *Session) State() ConnState { return s.state.current() }

// CreateStatement returns a text-protocol Statement handle.
func (s *Session) CreateStatement() *Statement {
	return &Statement{sess: s}
}

// PrepareStatement issues COM_STMT_PREPARE and returns an owning handle,
// per spec.md §4.6.
func (s *Session) PrepareStatement(ctx context.Context, sql string) (*PreparedStatement, error) {
	if err := s.state.begin(StateInPrepare); err != nil {
		return nil, err
	}
	defer s.state.end()

	if err := s.pc.WriteCommand(protocol.ComStmtPrepare, []byte(sql)); err != nil {
		return nil, errors.Wrap(err, "session: write COM_STMT_PREPARE")
	}
	header, err := s.pc.ReadPacket()
	if err != nil {
		return nil, errors.Wrap(err, "session: read prepare response")
	}
	if protocol.IsERR(header) {
		e, _ := protocol.ParseERR(header)
		return nil, errServerError(e)
	}
	if len(header) < 9 || header[0] != 0x00 {
		return nil, errors.New("session: malformed COM_STMT_PREPARE_OK")
	}
	stmtID := protocol.ReadUint32(header[1:5])
	numCols := int(protocol.ReadUint16(header[5:7]))
	numParams := int(protocol.ReadUint16(header[7:9]))

	paramCols, err := s.readColumnList(numParams)
	if err != nil {
		return nil, err
	}
	resultCols, err := s.readColumnList(numCols)
	if err != nil {
		return nil, err
	}

	ps := &PreparedStatement{
		sess:          s,
		stmtID:        stmtID,
		paramColumns:  paramCols,
		resultColumns: resultCols,
		params:        make([]codec.Value, numParams),
		bound:         make([]bool, numParams),
	}
	s.stmtCache.Add(stmtID, ps)
	return ps, nil
}

func (s *Session) readColumnList(n int) ([]*protocol.ColumnDefinition41, error) {
	if n == 0 {
		return nil, nil
	}
	cols, err := protocol.ReadColumnDefinitions(s.pc.ReadPacket, uint64(n), s.caps.Has(protocol.ClientDeprecateEOF))
	if err != nil {
		return nil, errors.Wrap(err, "session: read column definitions")
	}
	return cols, nil
}

// SetAutoCommit issues SET autocommit=… and tracks it in session state.
func (s *Session) SetAutoCommit(ctx context.Context, on bool) error {
	val := "0"
	if on {
		val = "1"
	}
	if err := s.execAdmin(ctx, "SET autocommit="+val); err != nil {
		return err
	}
	s.autocommit = on
	return nil
}

func (s *Session) AutoCommit() bool { return s.autocommit }

// SetTransactionIsolation issues SET TRANSACTION ISOLATION LEVEL …
func (s *Session) SetTransactionIsolation(ctx context.Context, level IsolationLevel) error {
	switch level {
	case ReadUncommitted, ReadCommitted, RepeatableRead, Serializable:
	default:
		return errors.Errorf("session: invalid isolation level %q", level)
	}
	if err := s.execAdmin(ctx, "SET TRANSACTION ISOLATION LEVEL "+string(level)); err != nil {
		return err
	}
	s.isolation = level
	return nil
}

func (s *Session) TransactionIsolation() IsolationLevel { return s.isolation }

// SetReadOnly issues SET TRANSACTION READ ONLY|READ WRITE.
func (s *Session) SetReadOnly(ctx context.Context, readOnly bool) error {
	stmt := "SET TRANSACTION READ WRITE"
	if readOnly {
		stmt = "SET TRANSACTION READ ONLY"
	}
	if err := s.execAdmin(ctx, stmt); err != nil {
		return err
	}
	s.readOnly = readOnly
	return nil
}

func (s *Session) ReadOnly() bool { return s.readOnly }

func (s *Session) Begin(ctx context.Context) error {
	if err := s.execAdmin(ctx, "START TRANSACTION"); err != nil {
		return err
	}
	s.inTransaction = true
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	if err := s.execAdmin(ctx, "COMMIT"); err != nil {
		return err
	}
	s.inTransaction = false
	return nil
}

// Rollback is idempotent: rolling back an already-rolled-back transaction
// is a no-op returning success, per spec.md §8.
func (s *Session) Rollback(ctx context.Context) error {
	if !s.inTransaction {
		return nil
	}
	if err := s.execAdmin(ctx, "ROLLBACK"); err != nil {
		return err
	}
	s.inTransaction = false
	return nil
}

func (s *Session) InTransaction() bool { return s.inTransaction }

// SetSavepoint generates a name when none is supplied — the MySQL
// protocol does not support unnamed savepoints, per spec.md §4.6/§9.
func (s *Session) SetSavepoint(ctx context.Context, name string) (string, error) {
	if name == "" {
		s.savepointSeq++
		name = fmt.Sprintf("ldbc_sp_%d_%d", s.connectionID, s.savepointSeq)
	}
	if err := s.execAdmin(ctx, "SAVEPOINT "+quoteIdent(name)); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Session) RollbackToSavepoint(ctx context.Context, name string) error {
	return s.execAdmin(ctx, "ROLLBACK TO SAVEPOINT "+quoteIdent(name))
}

func (s *Session) ReleaseSavepoint(ctx context.Context, name string) error {
	return s.execAdmin(ctx, "RELEASE SAVEPOINT "+quoteIdent(name))
}

func quoteIdent(name string) string {
	return "`" + name + "`"
}

// ChangeUser executes COM_CHANGE_USER and re-runs the auth sub-protocol on
// the open socket, resetting session state per spec.md §4.6.
func (s *Session) ChangeUser(ctx context.Context, creds auth.Credentials) error {
	if err := s.state.begin(StateInExecute); err != nil {
		return err
	}
	defer s.state.end()

	plugin, err := auth.Lookup("mysql_native_password", s.serverVersion)
	if err != nil {
		return err
	}
	resp, err := plugin.Respond(creds.Password, s.scramble, s.tlsActive())
	if err != nil {
		return err
	}
	body := protocol.BuildComChangeUser(creds.Username, resp, creds.Database, protocol.CharsetUTF8General, plugin.Name(), nil)
	s.pc.ResetSequence()
	if err := s.pc.WriteCommand(protocol.ComChangeUser, body); err != nil {
		return errors.Wrap(err, "session: write COM_CHANGE_USER")
	}
	reply, err := s.pc.ReadPacket()
	if err != nil {
		return errors.Wrap(err, "session: read COM_CHANGE_USER response")
	}
	if protocol.IsERR(reply) {
		e, _ := protocol.ParseERR(reply)
		return errServerError(e)
	}
	s.creds = creds
	s.autocommit = true
	s.inTransaction = false
	s.stmtCache.Purge()
	return nil
}

func (s *Session) tlsActive() bool { return s.caps.Has(protocol.ClientSSL) }

// IsValid issues COM_PING under timeout. The pool's connection_test_query
// goes through RunTestQuery instead.
func (s *Session) IsValid(ctx context.Context, timeout time.Duration) bool {
	return s.Ping(ctx, timeout) == nil
}

// Ping implements pool.Resource.
func (s *Session) Ping(ctx context.Context, timeout time.Duration) error {
	if s.state.current() == StateClosed {
		return errors.New("session: closed")
	}
	if err := s.state.begin(StateInQuery); err != nil {
		return err
	}
	defer s.state.end()

	s.xport.SetTimeouts(timeout, timeout)
	if err := s.pc.WriteCommand(protocol.ComPing, nil); err != nil {
		return errors.Wrap(err, "session: write COM_PING")
	}
	reply, err := s.pc.ReadPacket()
	if err != nil {
		return errors.Wrap(err, "session: read COM_PING response")
	}
	if protocol.IsERR(reply) {
		e, _ := protocol.ParseERR(reply)
		return errServerError(e)
	}
	return nil
}

// RunTestQuery implements pool.Resource: validates liveness by running a
// caller-supplied query over the text protocol rather than COM_PING, per
// spec.md §4.6's connection_test_query option.
func (s *Session) RunTestQuery(ctx context.Context, query string, timeout time.Duration) error {
	if s.state.current() == StateClosed {
		return errors.New("session: closed")
	}
	s.xport.SetTimeouts(timeout, timeout)
	rows, err := s.CreateStatement().ExecuteQuery(ctx, query)
	if err != nil {
		return err
	}
	return rows.Drain()
}

// Reset implements pool.Resource: roll back any open transaction, restore
// autocommit, and clear prepared statements before the session rejoins
// idle, per spec.md §4.6 "Session reset on return".
func (s *Session) Reset(ctx context.Context) error {
	if err := s.Rollback(ctx); err != nil {
		return err
	}
	if !s.autocommit {
		if err := s.SetAutoCommit(ctx, true); err != nil {
			return err
		}
	}
	for _, id := range s.stmtCache.Keys() {
		if ps, ok := s.stmtCache.Get(id); ok {
			_ = ps.Close(ctx)
		}
	}
	s.stmtCache.Purge()
	return nil
}

// Close sends COM_QUIT and closes the transport, per spec.md §4.6.
func (s *Session) Close() error {
	s.state.close()
	_ = s.pc.WriteCommand(protocol.ComQuit, nil)
	return s.xport.Close()
}

// execAdmin runs a text-protocol statement that is not expected to return
// a result set (SET/START TRANSACTION/COMMIT/...), consuming exactly the
// OK or ERR reply.
func (s *Session) execAdmin(ctx context.Context, sql string) error {
	if err := s.state.begin(StateInQuery); err != nil {
		return err
	}
	defer s.state.end()

	if err := s.pc.WriteCommand(protocol.ComQuery, protocol.BuildComQuery(sql)); err != nil {
		return errors.Wrap(err, "session: write admin statement")
	}
	reply, err := s.pc.ReadPacket()
	if err != nil {
		return errors.Wrap(err, "session: read admin statement response")
	}
	if protocol.IsERR(reply) {
		e, _ := protocol.ParseERR(reply)
		return errServerError(e)
	}
	return nil
}

func errServerError(e *protocol.ERRPacket) error {
	return &serverError{pkt: e}
}

// serverError adapts an ERR packet into the ServerError taxonomy kind of
// spec.md §7; the root package wraps it into the exported *Error type.
type serverError struct {
	pkt *protocol.ERRPacket
}

func (e *serverError) Error() string      { return e.pkt.Message }
func (e *serverError) SQLState() string   { return e.pkt.SQLState }
func (e *serverError) VendorCode() uint16 { return e.pkt.Code }
