package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTier(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := NewTierCommand()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func TestTierCommand(t *testing.T) {
	out, err := runTier(t)
	require.NoError(t, err)
	assert.Contains(t, out, "bronze  200")
	assert.Contains(t, out, "gold    1000")

	out, err = runTier(t, "640")
	require.NoError(t, err)
	assert.Equal(t, "score 640: silver tier, up to 10 batches\n", out)

	out, err = runTier(t, "150")
	require.NoError(t, err)
	assert.Contains(t, out, "no purchase allowed")

	_, err = runTier(t, "-1")
	assert.Error(t, err)
	_, err = runTier(t, "abc")
	assert.Error(t, err)
}
