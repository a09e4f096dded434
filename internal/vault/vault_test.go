package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	path, key, err := ParseRef("vault:secret/tenancy/db#password")
	require.NoError(t, err)
	assert.Equal(t, "secret/tenancy/db", path)
	assert.Equal(t, "password", key)

	for _, bad := range []string{"secret/x#y", "vault:secret/x", "vault:#k", "vault:secret/x#"} {
		_, _, err := ParseRef(bad)
		assert.ErrorIs(t, err, ErrBadRef, bad)
	}
}

func TestResolve_PlainValuePassesThrough(t *testing.T) {
	c := &Client{}
	got, err := c.Resolve(context.Background(), "plain-secret")
	require.NoError(t, err)
	assert.Equal(t, "plain-secret", got)
}

func TestSplitMount(t *testing.T) {
	m, rel := splitMount("secret/tenancy/db")
	assert.Equal(t, "secret", m)
	assert.Equal(t, "tenancy/db", rel)
}
