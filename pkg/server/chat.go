package server

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"gamelink/pkg/config"
	"gamelink/pkg/message"
)

// ChatLinkName names the chat lobby link in diagnostics.
const ChatLinkName = "Chat Server"

// chatChannel owns the single chat link.
// absent -> connecting -> connected -> closed -> absent
type chatChannel struct {
	s *Server

	mu   sync.Mutex
	link Link
}

// send ensures the chat link and queues text on it. Empty text only flushes.
func (c *chatChannel) send(ctx context.Context, p Profile, text string) bool {
	if !c.s.links.IsBound() {
		c.s.session.NotifyTimeout()
		return false
	}
	if !c.ensureConnected(ctx, p) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.link == nil {
		// cleared by a close callback since ensureConnected
		return false
	}
	if text != "" {
		c.queue(c.link, message.NewChat(p.Name, text))
	}
	c.s.links.AddLinkToSend(c.link)
	return true
}

// ensureConnected resolves the lobby and encodes the hello without holding
// c.mu, so close callbacks never wait on a lookup. A link is only created
// once its hello is ready to queue.
func (c *chatChannel) ensureConnected(ctx context.Context, p Profile) bool {
	if l := c.current(); l != nil && !l.IsDone() {
		return true
	}

	addr, err := c.s.resolver.Resolve(ctx)
	if err != nil {
		c.s.log.Error("chat server address", zap.Error(err))
		return false
	}
	if addr.IsUnresolved() {
		c.notice(config.MsgChatLobbyUnresolved, addr.HostName())
		return false
	}

	hello, err := c.s.NewMessage(message.NewHello(message.Auth{
		PlayerName: p.Name,
		LicenseKey: c.s.session.LicenseKey(),
		Password:   p.Password,
	})).Data()
	if err != nil {
		c.s.log.Error("encode chat hello", zap.String("player", p.Name), zap.Error(err))
		return false
	}
	c.notice(config.MsgChatLobbyConnect)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.link != nil && !c.link.IsDone() {
		return true
	}
	l := c.s.links.LinkForAddr(addr.Addr)
	l.SetName(ChatLinkName)
	l.Connect()
	l.Queue(hello, message.CategoryHello)
	c.link = l
	c.s.log.Info("chat link connecting", zap.Stringer("addr", addr.Addr), zap.Stringer("link", l.ID()))
	return true
}

// queue drops m if it cannot be encoded; the flush still happens.
func (c *chatChannel) queue(l Link, m *message.Message) {
	data, err := c.s.NewMessage(m).Data()
	if err != nil {
		c.s.log.Error("encode chat message", zap.String("kind", string(m.Kind)), zap.Error(err))
		return
	}
	l.Queue(data, message.CategoryFor(m.Kind))
}

func (c *chatChannel) notice(key string, params ...string) {
	h := c.s.session.ChatLobbyHandler()
	if h == nil {
		return
	}
	var text string
	if c.s.msgs != nil {
		args := make([]any, len(params))
		for i, p := range params {
			args[i] = p
		}
		text = c.s.msgs.Message(key, args...)
	}
	h.ChatReceived(message.NewAdminNotice(key, text, params...))
}

func (c *chatChannel) current() Link {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link
}

// take clears the reference and returns what it held.
func (c *chatChannel) take() Link {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.link
	c.link = nil
	return l
}

// forget clears the reference only if it still points at l.
func (c *chatChannel) forget(l Link) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.link == l {
		c.link = nil
	}
}
