// Package ldbc implements a native MySQL/MariaDB wire-protocol client: it
// speaks the handshake, authentication, and command protocols directly
// over TCP/TLS rather than delegating to cgo or a system client library.
package ldbc

import (
	"context"

	"github.com/takapi327/ldbc-sub016/internal/auth"
	"github.com/takapi327/ldbc-sub016/internal/logging"
	"github.com/takapi327/ldbc-sub016/internal/pool"
	"github.com/takapi327/ldbc-sub016/internal/session"
)

// DataSource is the root handle spec.md §6 names: get_connection() hands
// out a scoped Connection backed by the pool; closing the DataSource
// drains the pool.
type DataSource struct {
	cfg  Config
	log  logging.Logger
	pool *pool.Pool
}

// Open validates cfg, builds the logging and pool layers, and starts the
// pool's maintainer loop. Open itself does not connect: when
// cfg.MinConnections > 0, the maintainer tops up to that bound on each
// tick, the first one KeepAliveInterval after Open.
func Open(ctx context.Context, cfg Config) (*DataSource, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel})

	ds := &DataSource{cfg: cfg, log: log}

	poolCfg := pool.Config{
		MinConnections:         cfg.MinConnections,
		MaxConnections:         cfg.MaxConnections,
		ConnectionTimeout:      cfg.ConnectionTimeout,
		IdleTimeout:            cfg.IdleTimeout,
		MaxLifetime:            cfg.MaxLifetime,
		LeakDetectionThreshold: cfg.LeakDetectionThreshold,
		ValidationTimeout:      cfg.ValidationTimeout,
		ConnectionInitSQL:      cfg.ConnectionInitSQL,
		ConnectionTestQuery:    cfg.ConnectionTestQuery,
		KeepAliveInterval:      cfg.KeepAliveInterval,
	}
	ds.pool = pool.New(poolCfg, ds.dialFactory, log)
	ds.pool.Start(ctx)
	return ds, nil
}

func (ds *DataSource) credentials() auth.Credentials {
	return auth.Credentials{
		Username:     ds.cfg.User,
		Password:     ds.cfg.Password,
		Database:     ds.cfg.Database,
		Charset:      ds.cfg.Charset(),
		ConnectAttrs: ds.cfg.ConnectAttrs,
	}
}

// dialFactory is the pool.Factory: dial, authenticate, and run
// connection_init_sql once before the entry ever reaches idle.
func (ds *DataSource) dialFactory(ctx context.Context) (pool.Resource, error) {
	sess, err := session.Dial(ctx, ds.cfg.Addr(), ds.cfg.Host, ds.cfg.TLSMode, ds.credentials(), ds.log, ds.cfg.PreparedStatementCacheSize)
	if err != nil {
		return nil, err
	}
	if ds.cfg.ConnectionInitSQL != "" {
		stmt := sess.CreateStatement()
		if _, err := stmt.ExecuteUpdate(ctx, ds.cfg.ConnectionInitSQL); err != nil {
			_ = sess.Close()
			return nil, err
		}
	}
	return sess, nil
}

// GetConnection acquires a lease from the pool and returns a scoped
// Connection; Connection.Close releases it back to the pool.
func (ds *DataSource) GetConnection(ctx context.Context) (*Connection, error) {
	lease, err := ds.pool.Acquire(ctx)
	if err != nil {
		return nil, translateErr(err)
	}
	return newConnection(ds, lease), nil
}

// Stats reports a point-in-time snapshot of pool occupancy.
func (ds *DataSource) Stats() pool.Stats { return ds.pool.Stats() }

// Close drains the pool: in-flight leases are closed as they're released,
// idle entries are closed immediately, and the maintainer loop stops.
func (ds *DataSource) Close() {
	ds.pool.Close()
}
