package ldbc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takapi327/ldbc-sub016/internal/protocol"
	"github.com/takapi327/ldbc-sub016/internal/transport"
)

func TestParseDSN_FullySpecified(t *testing.T) {
	cfg, err := ParseDSN("root:s3cr3t@tcp(db.internal:3307)/appdb?ssl=required&character_set=utf8mb4&connection_attributes=app=ldbc;env=prod")
	require.NoError(t, err)

	assert.Equal(t, "root", cfg.User)
	assert.Equal(t, "s3cr3t", cfg.Password)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 3307, cfg.Port)
	assert.Equal(t, "appdb", cfg.Database)
	assert.Equal(t, transport.TLSTrusted, cfg.TLSMode.Kind)
	assert.Equal(t, "utf8mb4", cfg.CharacterSet)
	assert.Equal(t, map[string]string{"app": "ldbc", "env": "prod"}, cfg.ConnectAttrs)
	assert.Equal(t, "db.internal:3307", cfg.Addr())
}

func TestParseDSN_DefaultsPortWhenOmitted(t *testing.T) {
	cfg, err := ParseDSN("root:@tcp(localhost)/appdb")
	require.NoError(t, err)
	assert.Equal(t, 3306, cfg.Port)
	assert.Equal(t, "localhost:3306", cfg.Addr())
}

func TestParseDSN_NoPasswordNoQuery(t *testing.T) {
	cfg, err := ParseDSN("root@tcp(localhost:3306)/appdb")
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.User)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, transport.TLSNone, cfg.TLSMode.Kind)
}

func TestParseDSN_MissingAtSeparatorIsConfigurationError(t *testing.T) {
	_, err := ParseDSN("tcp(localhost:3306)/appdb")
	assert.Error(t, err)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, KindConfigurationError, cfgErr.Kind)
}

func TestParseDSN_MissingTCPPrefixErrors(t *testing.T) {
	_, err := ParseDSN("root:pw@localhost:3306/appdb")
	assert.Error(t, err)
}

func TestParseDSN_UnterminatedTCPParenErrors(t *testing.T) {
	_, err := ParseDSN("root:pw@tcp(localhost:3306/appdb")
	assert.Error(t, err)
}

func TestParseDSN_MissingDatabaseSlashErrors(t *testing.T) {
	_, err := ParseDSN("root:pw@tcp(localhost:3306)appdb")
	assert.Error(t, err)
}

func TestParseDSN_InvalidPortErrors(t *testing.T) {
	_, err := ParseDSN("root:pw@tcp(localhost:notaport)/appdb")
	assert.Error(t, err)
}

func TestParseDSN_UnrecognizedSSLModeErrors(t *testing.T) {
	_, err := ParseDSN("root:pw@tcp(localhost:3306)/appdb?ssl=bogus")
	assert.Error(t, err)
}

func TestConfig_CharsetDefaultsToUTF8MB4(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, protocol.CharsetUTF8MB4General, cfg.Charset())
}

func TestConfig_CharsetRecognizesKnownNames(t *testing.T) {
	assert.Equal(t, protocol.CharsetUTF8General, Config{CharacterSet: "utf8"}.Charset())
	assert.Equal(t, protocol.CharsetBinary, Config{CharacterSet: "binary"}.Charset())
	assert.Equal(t, protocol.CharsetLatin1, Config{CharacterSet: "latin1"}.Charset())
}

func TestConfig_Validate_RequiresHost(t *testing.T) {
	err := Config{}.validate()
	assert.Error(t, err)
}

func TestConfig_Validate_RejectsMinExceedingMax(t *testing.T) {
	err := Config{Host: "localhost", MinConnections: 5, MaxConnections: 2}.validate()
	assert.Error(t, err)
}

func TestConfig_Validate_AcceptsSaneDefaults(t *testing.T) {
	err := Config{Host: "localhost", MinConnections: 0, MaxConnections: 10}.validate()
	assert.NoError(t, err)
}
