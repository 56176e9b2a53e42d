package server

import (
	"net/netip"

	"gamelink/pkg/config"
	"gamelink/pkg/message"
	"gamelink/pkg/transport"
)

// LinkManager hands out links. It never blocks on I/O.
type LinkManager interface {
	// LinkForAddr returns the live link to addr, creating one if absent.
	LinkForAddr(addr netip.AddrPort) Link
	LinkByID(id transport.LinkID) (Link, bool)
	// AddLinkToSend flags l for asynchronous flush.
	AddLinkToSend(l Link)
	// IsBound reports whether the local socket exists.
	IsBound() bool
}

// Link is one transport channel to a remote endpoint.
type Link interface {
	Queue(payload []byte, c transport.Category)
	Connect()
	Close()
	IsDone() bool
	SetName(name string)
	Name() string
	Addr() netip.AddrPort
	ID() transport.LinkID
	State() transport.State
}

// closeNotifier is implemented by link managers that report terminated links.
type closeNotifier interface {
	OnLinkClosed(fn func(Link))
}

var (
	_ Properties    = (*config.Config)(nil)
	_ MessageSource = (*config.Config)(nil)
)

// Properties supplies required configuration values.
type Properties interface {
	RequiredString(key string) (string, error)
}

// MessageSource renders admin notice text. Properties may implement it.
type MessageSource interface {
	Message(key string, args ...any) string
}

// Session is the game layer owning the server.
type Session interface {
	NotifyTimeout()
	// ChatLobbyHandler may return nil.
	ChatLobbyHandler() ChatHandler
	LicenseKey() string
	PlayerForConnection(c Connection) string
}

// ChatHandler displays chat messages. It runs on the caller of SendChat.
type ChatHandler interface {
	ChatReceived(m *message.Message)
}

// Connection is a remote game peer.
type Connection interface {
	UDPID() transport.LinkID
}

// Profile is the local player.
type Profile struct {
	Name     string
	Password string
}
