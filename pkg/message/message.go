// Package message holds the application messages exchanged over gamelink
// links and the Transporter that turns them into queued payloads.
package message

import "gamelink/pkg/transport"

// Kind tags what a Message carries.
type Kind string

const (
	KindChat      Kind = "chat"
	KindChatAdmin Kind = "chat-admin"
	KindChatHello Kind = "chat-hello"
	KindGame      Kind = "game"
)

// Queue categories. The transport carries them in the frame header so the
// receiving side can route a payload without decoding it.
const (
	CategoryHello transport.Category = 1
	CategoryChat  transport.Category = 2
	CategoryGame  transport.Category = 3
)

// CategoryFor returns the queue category a message of kind k travels under.
func CategoryFor(k Kind) transport.Category {
	switch k {
	case KindChatHello:
		return CategoryHello
	case KindChat, KindChatAdmin:
		return CategoryChat
	default:
		return CategoryGame
	}
}

// Auth is the credential block of a hello message.
type Auth struct {
	PlayerName string `json:"player_name" cbor:"player_name"`
	LicenseKey string `json:"license_key,omitempty" cbor:"license_key,omitempty"`
	Password   string `json:"password,omitempty" cbor:"password,omitempty"`
}

// Message is one application message.
type Message struct {
	Kind       Kind   `json:"kind" cbor:"kind"`
	PlayerName string `json:"player_name,omitempty" cbor:"player_name,omitempty"`
	Chat       string `json:"chat,omitempty" cbor:"chat,omitempty"`

	// Key and Params identify an admin notice so the receiver can render it.
	Key    string   `json:"key,omitempty" cbor:"key,omitempty"`
	Params []string `json:"params,omitempty" cbor:"params,omitempty"`

	Auth *Auth `json:"auth,omitempty" cbor:"auth,omitempty"`

	// Event and Attrs carry game events.
	Event string            `json:"event,omitempty" cbor:"event,omitempty"`
	Attrs map[string]string `json:"attrs,omitempty" cbor:"attrs,omitempty"`
}

// NewChat builds a chat line from player.
func NewChat(player, text string) *Message {
	return &Message{Kind: KindChat, PlayerName: player, Chat: text}
}

// NewHello wraps auth in a hello message.
func NewHello(auth Auth) *Message {
	return &Message{Kind: KindChatHello, PlayerName: auth.PlayerName, Auth: &auth}
}

// NewAdminNotice builds a locally rendered admin notice. text may be empty
// when no message catalog is available.
func NewAdminNotice(key, text string, params ...string) *Message {
	return &Message{Kind: KindChatAdmin, Key: key, Chat: text, Params: params}
}

// NewGameEvent builds a game event message.
func NewGameEvent(event string, attrs map[string]string) *Message {
	return &Message{Kind: KindGame, Event: event, Attrs: attrs}
}
