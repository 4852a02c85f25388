package utilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowflakeIDWithNode_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 5000)
	for i := 0; i < 5000; i++ {
		id := NewSnowflakeIDWithNode(3)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewSnowflakeIDWithNode_InvalidNodeFallsBackToKSUID(t *testing.T) {
	// snowflake nodes are limited to 10 bits
	id := NewSnowflakeIDWithNode(5000)
	assert.Len(t, id, 27)
}

func TestNewSnowflakeID_BadEnvUsesDefaultNode(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "not-a-number")
	assert.NotEmpty(t, NewSnowflakeID())
}

func TestTokenHint(t *testing.T) {
	assert.Equal(t, "***", TokenHint("abc"))
	assert.Equal(t, "abcdef...", TokenHint("abcdefghijkl"))
}
