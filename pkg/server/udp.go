package server

import (
	"net/netip"

	"gamelink/pkg/transport"
)

// UDPLinks adapts a transport.Manager to LinkManager.
func UDPLinks(m *transport.Manager) LinkManager { return udpLinks{m: m} }

type udpLinks struct{ m *transport.Manager }

func (u udpLinks) LinkForAddr(addr netip.AddrPort) Link { return u.m.LinkForAddr(addr) }

func (u udpLinks) LinkByID(id transport.LinkID) (Link, bool) {
	l, ok := u.m.LinkByID(id)
	if !ok {
		return nil, false
	}
	return l, true
}

func (u udpLinks) AddLinkToSend(l Link) {
	if tl, ok := l.(*transport.Link); ok {
		u.m.AddLinkToSend(tl)
	}
}

func (u udpLinks) IsBound() bool { return u.m.IsBound() }

func (u udpLinks) OnLinkClosed(fn func(Link)) {
	u.m.OnLinkClosed(func(l *transport.Link) { fn(l) })
}
