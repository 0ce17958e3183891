package chat

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatCommand(t *testing.T) {
	cmd := NewChatCommand()

	require.NotNil(t, cmd)

	assert.Equal(t, "chat", cmd.Use)
	assert.Equal(t, "Open a support chat with a tenant", cmd.Short)
	assert.Contains(t, cmd.Aliases, "c")

	assert.Nil(t, cmd.Run)
	assert.NotNil(t, cmd.RunE)

	assert.True(t, cmd.HasFlags())
	assert.NotNil(t, cmd.Flags().Lookup("tenant"))
	assert.NotNil(t, cmd.Flags().Lookup("user"))
	assert.NotNil(t, cmd.Flags().Lookup("host"))
	assert.NotNil(t, cmd.Flags().Lookup("debug"))
}

func TestNewChatCommand_TenantRequired(t *testing.T) {
	cmd := NewChatCommand()

	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant")
}
