package config

// SettingsConfig mirrors the `settings` tree shared with the game client.
type SettingsConfig struct {
	Online SettingsOnline `mapstructure:"online"`
}

// SettingsOnline holds the chat lobby location.
// Example YAML:
// settings:
//   online:
//     chat: "lobby.example.com:11886"
type SettingsOnline struct {
	Chat string `mapstructure:"chat"`
}

// OnlineConfig controls message encoding.
type OnlineConfig struct {
	// Format: cbor, json or proto
	Format string `mapstructure:"format"`
}

// NetConfig contains local socket options.
type NetConfig struct {
	Listen           string `mapstructure:"listen"`
	ResolveTimeoutMS int    `mapstructure:"resolve_timeout_ms"`
}

// ProfileConfig is the local player used by the CLI peer.
type ProfileConfig struct {
	Name     string `mapstructure:"name"`
	Password string `mapstructure:"password"`
}

// LobbyConfig configures the lobby relay binary.
type LobbyConfig struct {
	Listen string `mapstructure:"listen"`
	// IdleTimeoutMS drops players silent for this long; 0 keeps them.
	IdleTimeoutMS int `mapstructure:"idle_timeout_ms"`
}
