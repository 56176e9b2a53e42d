package main

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"gamelink/pkg/message"
	"gamelink/pkg/server"
)

// console prints chat lines and admin notices.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *console) ChatReceived(m *message.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch m.Kind {
	case message.KindChatAdmin:
		text := m.Chat
		if text == "" {
			text = m.Key
		}
		fmt.Fprintf(c.out, "* %s\n", text)
	default:
		fmt.Fprintf(c.out, "<%s> %s\n", m.PlayerName, m.Chat)
	}
}

// session is the node's view of the game it takes part in.
type session struct {
	license string
	console *console
}

func (s *session) NotifyTimeout() {
	zap.L().Warn("socket not bound yet, chat not sent")
}

func (s *session) ChatLobbyHandler() server.ChatHandler { return s.console }
func (s *session) LicenseKey() string                   { return s.license }

// PlayerForConnection has no peer roster yet; the id is all the node knows.
func (s *session) PlayerForConnection(c server.Connection) string {
	return c.UDPID().String()
}
