package config

import (
	"fmt"
	"strings"
)

// Admin notice keys.
const (
	MsgChatLobbyUnresolved = "msg.chat.lobby.unresolved"
	MsgChatLobbyConnect    = "msg.chat.lobby.connect"
)

const messagePrefix = "messages."

var defaultMessages = map[string]string{
	MsgChatLobbyUnresolved: "Unable to resolve chat server address %s.",
	MsgChatLobbyConnect:    "Connecting to chat server...",
}

// Message renders the catalog entry for key with fmt verbs filled from args.
// Entries live under `messages` in YAML, nested by the dots of the key.
// Unknown keys render as the key followed by the arguments.
func (c *Config) Message(key string, args ...any) string {
	var tmpl string
	if c.v != nil {
		tmpl = c.v.GetString(messagePrefix + key)
	}
	if tmpl == "" {
		tmpl = defaultMessages[key]
	}
	if tmpl == "" {
		if len(args) == 0 {
			return key
		}
		parts := make([]string, 0, len(args)+1)
		parts = append(parts, key)
		for _, a := range args {
			parts = append(parts, fmt.Sprint(a))
		}
		return strings.Join(parts, " ")
	}
	if strings.Contains(tmpl, "%") {
		return fmt.Sprintf(tmpl, args...)
	}
	return tmpl
}
