package transport

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// TLSModeKind is the closed variant of spec.md §4.2's TLS configuration
// options.
type TLSModeKind int

const (
	TLSNone TLSModeKind = iota
	TLSTrusted
	TLSFromTrustStore
	TLSFromContext
	TLSCustom
)

// TLSMode configures whether and how a connection upgrades to TLS.
type TLSMode struct {
	Kind TLSModeKind

	// ServerName sets SNI; defaults to the dialed host when empty.
	ServerName string

	// FromTrustStore fields, used when Kind == TLSFromTrustStore.
	CAPath     string
	CertPath   string
	KeyPath    string
	Passphrase string

	// FromContext, used when Kind == TLSFromContext.
	Context *tls.Config

	// Custom, used when Kind == TLSCustom: the caller builds the final
	// *tls.Config itself, given the negotiated server name.
	Custom func(serverName string) (*tls.Config, error)
}

// Enabled reports whether this mode requests a TLS upgrade at all.
func (m TLSMode) Enabled() bool { return m.Kind != TLSNone }

// BuildConfig materializes a *tls.Config for host, applying m.ServerName
// as SNI when set.
func (m TLSMode) BuildConfig(host string) (*tls.Config, error) {
	serverName := m.ServerName
	if serverName == "" {
		serverName = host
	}

	switch m.Kind {
	case TLSNone:
		return nil, errors.New("transport: TLSNone has no config")
	case TLSTrusted:
		return &tls.Config{ServerName: serverName}, nil
	case TLSFromTrustStore:
		pool := x509.NewCertPool()
		if m.CAPath != "" {
			pem, err := os.ReadFile(m.CAPath)
			if err != nil {
				return nil, errors.Wrap(err, "transport: read CA file")
			}
			if !pool.AppendCertsFromPEM(pem) {
				return nil, errors.New("transport: no certificates found in CA file")
			}
		}
		cfg := &tls.Config{ServerName: serverName, RootCAs: pool}
		if m.CertPath != "" && m.KeyPath != "" {
			cert, err := tls.LoadX509KeyPair(m.CertPath, m.KeyPath)
			if err != nil {
				return nil, errors.Wrap(err, "transport: load client certificate")
			}
			cfg.Certificates = []tls.Certificate{cert}
		}
		return cfg, nil
	case TLSFromContext:
		if m.Context == nil {
			return nil, errors.New("transport: TLSFromContext requires a Context")
		}
		cfg := m.Context.Clone()
		cfg.ServerName = serverName
		return cfg, nil
	case TLSCustom:
		if m.Custom == nil {
			return nil, errors.New("transport: TLSCustom requires a builder function")
		}
		return m.Custom(serverName)
	default:
		return nil, errors.Errorf("transport: unknown TLS mode %d", m.Kind)
	}
}
