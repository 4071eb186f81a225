package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCommandsSingle(t *testing.T) {
	text, commands := ExtractCommands(`Done.|||{"action": "pause"}|||`)

	assert.Equal(t, "Done.", text)
	require.Len(t, commands, 1)
	assert.JSONEq(t, `{"action": "pause"}`, string(commands[0]))
}

func TestExtractCommandsArray(t *testing.T) {
	text, commands := ExtractCommands(`Movie mode.|||[{"action": "pause"}, {"action": "volume", "value": 1}]|||`)

	assert.Equal(t, "Movie mode.", text)
	require.Len(t, commands, 2)
	assert.JSONEq(t, `{"action": "volume", "value": 1}`, string(commands[1]))
}

func TestExtractCommandsNoBlock(t *testing.T) {
	text, commands := ExtractCommands("  The Eiffel Tower is 330 meters tall.  ")

	assert.Equal(t, "The Eiffel Tower is 330 meters tall.", text)
	assert.Nil(t, commands)
}

func TestExtractCommandsMalformedBlockKeepsText(t *testing.T) {
	reply := `Done.|||not json|||`
	text, commands := ExtractCommands(reply)

	assert.Equal(t, reply, text)
	assert.Nil(t, commands)
}
