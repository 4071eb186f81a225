package assistant

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Command blocks are appended to the reply text as |||{...}||| for a single
// command or |||[{...}, {...}]||| for several.
var commandBlockRe = regexp.MustCompile(`\|\|\|(.*)\|\|\|`)

// ExtractCommands splits a model reply into the visible text and the
// embedded command objects. A block that fails to parse as JSON is left in
// the text untouched rather than silently dropped.
func ExtractCommands(reply string) (string, []json.RawMessage) {
	match := commandBlockRe.FindStringSubmatch(reply)
	if match == nil {
		return strings.TrimSpace(reply), nil
	}

	payload := strings.TrimSpace(match[1])

	var commands []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &commands); err != nil {
		var single json.RawMessage
		if err := json.Unmarshal([]byte(payload), &single); err != nil || !strings.HasPrefix(strings.TrimSpace(string(single)), "{") {
			return strings.TrimSpace(reply), nil
		}
		commands = []json.RawMessage{single}
	}

	text := strings.TrimSpace(strings.Replace(reply, match[0], "", 1))

	return text, commands
}
