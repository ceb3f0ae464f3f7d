package transport

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTLSMode_Enabled(t *testing.T) {
	assert.False(t, TLSMode{Kind: TLSNone}.Enabled())
	assert.True(t, TLSMode{Kind: TLSTrusted}.Enabled())
}

func TestTLSMode_BuildConfig_Trusted_DefaultsServerNameToHost(t *testing.T) {
	cfg, err := TLSMode{Kind: TLSTrusted}.BuildConfig("db.example.com")
	require.NoError(t, err)
	assert.Equal(t, "db.example.com", cfg.ServerName)
}

func TestTLSMode_BuildConfig_TrustedHonorsExplicitServerName(t *testing.T) {
	cfg, err := TLSMode{Kind: TLSTrusted, ServerName: "override.example.com"}.BuildConfig("db.example.com")
	require.NoError(t, err)
	assert.Equal(t, "override.example.com", cfg.ServerName)
}

func TestTLSMode_BuildConfig_NoneErrors(t *testing.T) {
	_, err := TLSMode{Kind: TLSNone}.BuildConfig("db.example.com")
	assert.Error(t, err)
}

func TestTLSMode_BuildConfig_FromContextRequiresContext(t *testing.T) {
	_, err := TLSMode{Kind: TLSFromContext}.BuildConfig("db.example.com")
	assert.Error(t, err)
}

func TestTLSMode_BuildConfig_FromContextClonesAndSetsServerName(t *testing.T) {
	base := &tls.Config{MinVersion: tls.VersionTLS12}
	cfg, err := TLSMode{Kind: TLSFromContext, Context: base}.BuildConfig("db.example.com")
	require.NoError(t, err)
	assert.Equal(t, "db.example.com", cfg.ServerName)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.NotSame(t, base, cfg, "BuildConfig must clone the supplied context, not mutate the caller's copy")
}

func TestTLSMode_BuildConfig_CustomRequiresBuilder(t *testing.T) {
	_, err := TLSMode{Kind: TLSCustom}.BuildConfig("db.example.com")
	assert.Error(t, err)
}

func TestTLSMode_BuildConfig_CustomDelegatesToBuilder(t *testing.T) {
	called := false
	mode := TLSMode{
		Kind: TLSCustom,
		Custom: func(serverName string) (*tls.Config, error) {
			called = true
			return &tls.Config{ServerName: serverName}, nil
		},
	}
	cfg, err := mode.BuildConfig("db.example.com")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "db.example.com", cfg.ServerName)
}

func TestTLSMode_BuildConfig_FromTrustStoreWithoutCAStillProducesEmptyPool(t *testing.T) {
	cfg, err := TLSMode{Kind: TLSFromTrustStore}.BuildConfig("db.example.com")
	require.NoError(t, err)
	assert.NotNil(t, cfg.RootCAs)
}
