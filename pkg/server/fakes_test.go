package server

import (
	"net/netip"
	"sync"

	"gamelink/pkg/config"
	"gamelink/pkg/message"
	"gamelink/pkg/transport"
)

type queued struct {
	payload  []byte
	category transport.Category
}

type fakeLink struct {
	id    transport.LinkID
	addr  netip.AddrPort
	name  string
	state transport.State

	queued   []queued
	connects int
	closes   int
	onClose  func(Link)
}

func newFakeLink(addr netip.AddrPort) *fakeLink {
	return &fakeLink{id: transport.NewLinkID(), addr: addr}
}

func (l *fakeLink) Queue(p []byte, c transport.Category) {
	l.queued = append(l.queued, queued{payload: p, category: c})
}

func (l *fakeLink) Connect() {
	l.connects++
	l.state = transport.StateConnecting
}

func (l *fakeLink) Close() {
	if l.state == transport.StateClosed {
		return
	}
	l.closes++
	l.state = transport.StateClosed
	if l.onClose != nil {
		l.onClose(l)
	}
}

func (l *fakeLink) IsDone() bool           { return l.state == transport.StateClosed }
func (l *fakeLink) SetName(n string)       { l.name = n }
func (l *fakeLink) Name() string           { return l.name }
func (l *fakeLink) Addr() netip.AddrPort   { return l.addr }
func (l *fakeLink) ID() transport.LinkID   { return l.id }
func (l *fakeLink) State() transport.State { return l.state }

type fakeLinks struct {
	bound   bool
	byAddr  map[netip.AddrPort]*fakeLink
	byID    map[transport.LinkID]*fakeLink
	created int
	flushed []Link
	lookups int
	onClose []func(Link)
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{
		bound:  true,
		byAddr: make(map[netip.AddrPort]*fakeLink),
		byID:   make(map[transport.LinkID]*fakeLink),
	}
}

func (m *fakeLinks) LinkForAddr(addr netip.AddrPort) Link {
	if l := m.byAddr[addr]; l != nil && !l.IsDone() {
		return l
	}
	l := newFakeLink(addr)
	l.onClose = func(Link) {
		for _, fn := range m.onClose {
			fn(l)
		}
	}
	m.created++
	m.byAddr[addr] = l
	m.byID[l.id] = l
	return l
}

func (m *fakeLinks) LinkByID(id transport.LinkID) (Link, bool) {
	m.lookups++
	l, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return l, true
}

func (m *fakeLinks) AddLinkToSend(l Link)       { m.flushed = append(m.flushed, l) }
func (m *fakeLinks) IsBound() bool              { return m.bound }
func (m *fakeLinks) OnLinkClosed(fn func(Link)) { m.onClose = append(m.onClose, fn) }

type recordingHandler struct {
	mu  sync.Mutex
	got []*message.Message
}

func (h *recordingHandler) ChatReceived(m *message.Message) {
	h.mu.Lock()
	h.got = append(h.got, m)
	h.mu.Unlock()
}

type fakeSession struct {
	timeouts int
	handler  ChatHandler
	players  map[transport.LinkID]string
}

func (s *fakeSession) NotifyTimeout()                { s.timeouts++ }
func (s *fakeSession) ChatLobbyHandler() ChatHandler { return s.handler }
func (s *fakeSession) LicenseKey() string            { return "LIC-1" }
func (s *fakeSession) PlayerForConnection(c Connection) string {
	return s.players[c.UDPID()]
}

type conn transport.LinkID

func (c conn) UDPID() transport.LinkID { return transport.LinkID(c) }

// props maps keys to values; a missing key is a configuration error.
type props map[string]string

func (p props) RequiredString(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == "" {
		return "", config.ErrConfiguration
	}
	return v, nil
}
