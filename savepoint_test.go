package ldbc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSavepoint_Name(t *testing.T) {
	sp := Savepoint{name: "sp1"}
	assert.Equal(t, "sp1", sp.Name())
}

func TestSavepoint_ID_AlwaysFails(t *testing.T) {
	sp := Savepoint{name: "sp1"}
	_, err := sp.ID()
	assert.Error(t, err)
	assert.True(t, IsKind(err, KindClientState))
}
