package ldbc

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml"

	"github.com/takapi327/ldbc-sub016/internal/protocol"
	"github.com/takapi327/ldbc-sub016/internal/transport"
)

// Config is the full set of options a DataSource needs: connection
// identity, TLS posture, character set, connection attributes, and pool
// tuning, per spec.md §6's connection URI shape and §4.6's pool table.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string

	TLSMode      transport.TLSMode
	CharacterSet string

	ConnectAttrs map[string]string

	// AllowLocalInfile and LocalInfileHandler are carried in Config but not
	// read by the session layer: every LOCAL INFILE request is refused.
	AllowLocalInfile   bool
	LocalInfileHandler func(filename string) (data []byte, err error)

	MinConnections         int
	MaxConnections         int
	ConnectionTimeout      time.Duration
	IdleTimeout            time.Duration
	MaxLifetime            time.Duration
	LeakDetectionThreshold time.Duration
	ValidationTimeout      time.Duration
	ConnectionInitSQL      string
	ConnectionTestQuery    string
	KeepAliveInterval      time.Duration

	PreparedStatementCacheSize int

	LogHandler LogHandler
	LogLevel   string
}

// charsetByName resolves a handful of common MySQL character set names to
// their collation id; utf8mb4_general_ci (protocol.CharsetUTF8MB4General)
// is used when CharacterSet is empty or unrecognized.
func charsetByName(name string) byte {
	switch strings.ToLower(name) {
	case "", "utf8mb4":
		return protocol.CharsetUTF8MB4General
	case "utf8", "utf8mb3":
		return protocol.CharsetUTF8General
	case "binary":
		return protocol.CharsetBinary
	case "latin1":
		return protocol.CharsetLatin1
	default:
		return protocol.CharsetUTF8MB4General
	}
}

// Charset resolves Config.CharacterSet to its collation byte.
func (c Config) Charset() byte { return charsetByName(c.CharacterSet) }

// Addr is the host:port dial target.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// ParseDSN parses the logical URI shape of spec.md §6:
// user:password@tcp(host:port)/db?ssl=mode&character_set=name&connection_attributes=k=v;k2=v2
//
// This is intentionally narrower than the full go-sql-driver/mysql DSN
// grammar — only the fields spec.md names are recognized — grounded on
// the teacher's own preference for small, explicit parsers over adopting
// a parsing library for a one-shot format (see DESIGN.md).
func ParseDSN(dsn string) (Config, error) {
	cfg := Config{
		TLSMode:                    transport.TLSMode{Kind: transport.TLSNone},
		MinConnections:             0,
		MaxConnections:             10,
		ConnectionTimeout:          30 * time.Second,
		ValidationTimeout:          5 * time.Second,
		PreparedStatementCacheSize: 32,
	}

	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return Config{}, NewConfigurationError("ParseDSN: missing '@' separating credentials from address: %q", dsn)
	}
	userinfo, rest := dsn[:at], dsn[at+1:]

	if userinfo != "" {
		parts := strings.SplitN(userinfo, ":", 2)
		cfg.User = parts[0]
		if len(parts) == 2 {
			cfg.Password = parts[1]
		}
	}

	if !strings.HasPrefix(rest, "tcp(") {
		return Config{}, NewConfigurationError("ParseDSN: expected 'tcp(host:port)', got %q", rest)
	}
	rest = rest[len("tcp("):]
	closeParen := strings.IndexByte(rest, ')')
	if closeParen < 0 {
		return Config{}, NewConfigurationError("ParseDSN: unterminated 'tcp(...)' in %q", dsn)
	}
	hostport := rest[:closeParen]
	rest = rest[closeParen+1:]

	host, portStr, err := splitHostPort(hostport)
	if err != nil {
		return Config{}, NewConfigurationError("ParseDSN: %v", err)
	}
	cfg.Host = host
	if portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, NewConfigurationError("ParseDSN: invalid port %q", portStr)
		}
		cfg.Port = port
	} else {
		cfg.Port = 3306
	}

	if !strings.HasPrefix(rest, "/") {
		return Config{}, NewConfigurationError("ParseDSN: expected '/' before database name in %q", dsn)
	}
	rest = rest[1:]

	path, query, _ := strings.Cut(rest, "?")
	cfg.Database = path

	if query != "" {
		// connection_attributes separates its pairs with ';', which
		// url.ParseQuery rejects, so escape it before parsing.
		values, err := url.ParseQuery(strings.ReplaceAll(query, ";", "%3B"))
		if err != nil {
			return Config{}, NewConfigurationError("ParseDSN: invalid query string: %v", err)
		}
		if ssl := values.Get("ssl"); ssl != "" {
			mode, err := parseTLSModeName(ssl)
			if err != nil {
				return Config{}, err
			}
			cfg.TLSMode = mode
		}
		if cs := values.Get("character_set"); cs != "" {
			cfg.CharacterSet = cs
		}
		if attrs := values.Get("connection_attributes"); attrs != "" {
			cfg.ConnectAttrs = parseConnectAttrs(attrs)
		}
	}

	return cfg, nil
}

func splitHostPort(hostport string) (host, port string, err error) {
	idx := strings.LastIndex(hostport, ":")
	if idx < 0 {
		return hostport, "", nil
	}
	return hostport[:idx], hostport[idx+1:], nil
}

func parseTLSModeName(name string) (transport.TLSMode, error) {
	switch strings.ToLower(name) {
	case "false", "disabled", "none":
		return transport.TLSMode{Kind: transport.TLSNone}, nil
	case "true", "trusted", "required":
		return transport.TLSMode{Kind: transport.TLSTrusted}, nil
	case "system", "truststore":
		return transport.TLSMode{Kind: transport.TLSFromTrustStore}, nil
	default:
		return transport.TLSMode{}, NewConfigurationError("ParseDSN: unrecognized ssl mode %q", name)
	}
}

func parseConnectAttrs(raw string) map[string]string {
	attrs := make(map[string]string)
	for _, pair := range strings.Split(raw, ";") {
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		attrs[k] = v
	}
	return attrs
}

// poolProfile is the shape LoadConfigFile reads from a TOML document: a
// pool/connection tuning profile kept separate from credentials, which
// stay in a DSN or environment variable.
type poolProfile struct {
	MinConnections         int    `toml:"min_connections"`
	MaxConnections         int    `toml:"max_connections"`
	ConnectionTimeoutMS    int    `toml:"connection_timeout_ms"`
	IdleTimeoutMS          int    `toml:"idle_timeout_ms"`
	MaxLifetimeMS          int    `toml:"max_lifetime_ms"`
	LeakDetectionMS        int    `toml:"leak_detection_threshold_ms"`
	ValidationTimeoutMS    int    `toml:"validation_timeout_ms"`
	ConnectionInitSQL      string `toml:"connection_init_sql"`
	ConnectionTestQuery    string `toml:"connection_test_query"`
	KeepAliveIntervalMS    int    `toml:"keep_alive_interval_ms"`
	PreparedStatementCache int    `toml:"prepared_statement_cache_size"`
	LogLevel               string `toml:"log_level"`
}

// LoadConfigFile reads a TOML pool/connection profile from path and
// applies it on top of base, so operators can keep tuning out of DSNs and
// source code.
func LoadConfigFile(path string, base Config) (Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return Config{}, NewConfigurationError("LoadConfigFile: %v", err)
	}
	var profile poolProfile
	if err := tree.Unmarshal(&profile); err != nil {
		return Config{}, NewConfigurationError("LoadConfigFile: %v", err)
	}

	cfg := base
	if profile.MinConnections != 0 {
		cfg.MinConnections = profile.MinConnections
	}
	if profile.MaxConnections != 0 {
		cfg.MaxConnections = profile.MaxConnections
	}
	if profile.ConnectionTimeoutMS != 0 {
		cfg.ConnectionTimeout = time.Duration(profile.ConnectionTimeoutMS) * time.Millisecond
	}
	if profile.IdleTimeoutMS != 0 {
		cfg.IdleTimeout = time.Duration(profile.IdleTimeoutMS) * time.Millisecond
	}
	if profile.MaxLifetimeMS != 0 {
		cfg.MaxLifetime = time.Duration(profile.MaxLifetimeMS) * time.Millisecond
	}
	if profile.LeakDetectionMS != 0 {
		cfg.LeakDetectionThreshold = time.Duration(profile.LeakDetectionMS) * time.Millisecond
	}
	if profile.ValidationTimeoutMS != 0 {
		cfg.ValidationTimeout = time.Duration(profile.ValidationTimeoutMS) * time.Millisecond
	}
	if profile.ConnectionInitSQL != "" {
		cfg.ConnectionInitSQL = profile.ConnectionInitSQL
	}
	if profile.ConnectionTestQuery != "" {
		cfg.ConnectionTestQuery = profile.ConnectionTestQuery
	}
	if profile.KeepAliveIntervalMS != 0 {
		cfg.KeepAliveInterval = time.Duration(profile.KeepAliveIntervalMS) * time.Millisecond
	}
	if profile.PreparedStatementCache != 0 {
		cfg.PreparedStatementCacheSize = profile.PreparedStatementCache
	}
	if profile.LogLevel != "" {
		cfg.LogLevel = profile.LogLevel
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Host == "" {
		return NewConfigurationError("Config: Host is required")
	}
	if c.MaxConnections < 0 {
		return NewConfigurationError("Config: MaxConnections must be >= 0")
	}
	if c.MinConnections < 0 || c.MinConnections > c.MaxConnections && c.MaxConnections > 0 {
		return NewConfigurationError("Config: MinConnections must be between 0 and MaxConnections")
	}
	return nil
}
