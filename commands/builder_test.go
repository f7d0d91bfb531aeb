package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"guildwarden/guild"
)

func TestGenerateCommands(t *testing.T) {
	cmds := GenerateCommands()

	names := make(map[string]bool)
	for _, c := range cmds {
		assert.False(t, names[c.Name], "duplicate command %s", c.Name)
		names[c.Name] = true
		assert.NotEmpty(t, c.Description, c.Name)
	}
	for _, want := range []string{"ticket", "unban", "block", "unblock", "unmute", "config", "modlogs"} {
		assert.True(t, names[want], want)
	}

	config := configCommand()
	assert.Len(t, config.Options[0].Options[0].Choices, len(guild.ConfigOptions()))
}
