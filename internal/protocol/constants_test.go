package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegotiate_NeverWantsWhatServerLacks(t *testing.T) {
	cases := []struct {
		name        string
		clientWants Capability
		serverHas   Capability
	}{
		{"disjoint", ClientCompress | ClientSSL, ClientProtocol41 | ClientTransactions},
		{"full overlap", RequiredCapabilities, RequiredCapabilities | ClientDeprecateEOF},
		{"server offers nothing", RequiredCapabilities, 0},
		{"server offers everything", RequiredCapabilities | ClientSSL, ^Capability(0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			effective := Negotiate(tc.clientWants, tc.serverHas)
			// Invariant 3: (client_wants ∧ ¬server_has) = 0 once negotiated —
			// the negotiated set is a subset of both inputs.
			assert.Zero(t, effective&^tc.serverHas, "negotiated set must never exceed what the server advertised")
			assert.Zero(t, effective&^tc.clientWants, "negotiated set must never exceed what the client asked for")
		})
	}
}

func TestNegotiate_RequiredCapabilitiesDetectedWhenMissing(t *testing.T) {
	effective := Negotiate(RequiredCapabilities, RequiredCapabilities&^ClientTransactions)
	assert.False(t, effective.Has(RequiredCapabilities), "a server missing one required flag must fail the Has check")
}
