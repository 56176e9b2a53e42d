package transport

import (
	"net"
	"net/netip"

	"go.uber.org/zap"

	"gamelink/pkg/protocol"
)

func (m *Manager) readLoop(c *net.UDPConn) {
	defer m.wg.Done()
	buf := make([]byte, 64*1024)
	for {
		n, raddr, err := c.ReadFromUDPAddrPort(buf)
		if err != nil {
			if m.isClosed() || isClosedConn(err) {
				return
			}
			m.log.Warn("read", zap.Error(err))
			continue
		}
		var f protocol.Frame
		if err := f.Decode(buf[:n]); err != nil {
			m.log.Debug("dropping datagram", zap.Stringer("from", raddr), zap.Int("bytes", n), zap.Error(err))
			continue
		}
		m.handleFrame(normalize(raddr), &f, n)
	}
}

func (m *Manager) handleFrame(from netip.AddrPort, f *protocol.Frame, n int) {
	remote := LinkID(f.Header.Sender)
	switch f.Header.Type {
	case protocol.FrameConnect:
		l, accepted := m.acceptLink(from)
		l.touchIn(n)
		l.markConnected(remote)
		ack := protocol.Frame{Header: protocol.Header{Type: protocol.FrameConnectAck, Sender: [16]byte(l.id)}}
		if err := m.writeFrame(from, &ack); err != nil {
			m.log.Warn("connect ack not sent", zap.Stringer("to", from), zap.Error(err))
		}
		if accepted {
			m.log.Info("link accepted", zap.Stringer("addr", from), zap.Stringer("remote_id", remote))
			m.notifyAccept(l)
		}
	case protocol.FrameConnectAck:
		if l := m.linkAt(from); l != nil {
			l.touchIn(n)
			l.markConnected(remote)
		}
	case protocol.FrameData:
		l := m.linkAt(from)
		if l == nil {
			m.log.Debug("data from unknown peer", zap.Stringer("from", from), zap.Int("bytes", n))
			return
		}
		l.touchIn(n)
		m.cbMu.RLock()
		fn := m.onRecv
		m.cbMu.RUnlock()
		if fn != nil {
			fn(l, Category(f.Header.Category), f.Payload)
		}
	case protocol.FrameClose:
		if l := m.linkAt(from); l != nil {
			l.closeRemote()
		}
	default:
		m.log.Debug("unknown frame type", zap.Stringer("type", f.Header.Type), zap.Stringer("from", from))
	}
}

// acceptLink returns the live link for a connecting peer, creating a
// connected one when the peer is new.
func (m *Manager) acceptLink(from netip.AddrPort) (*Link, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l := m.byAddr[from]; l != nil && !l.IsDone() {
		return l, false
	}
	l := newLink(m, from, StateConnected)
	m.register(l)
	return l, true
}

func (m *Manager) flushLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.closeCh:
			return
		case <-m.wake:
		}
		if !m.IsBound() {
			continue
		}
		for _, l := range m.takeQueued() {
			m.flush(l)
		}
	}
}

func (m *Manager) takeQueued() []*Link {
	m.pendMu.Lock()
	q := m.queued
	m.queued = nil
	m.pendMu.Unlock()
	for _, l := range q {
		l.pending.Store(false)
	}
	return q
}

// flush writes the link's queued frames in order. A failed write drops the
// frame; retransmission belongs to the peers.
func (m *Manager) flush(l *Link) {
	if l.IsDone() {
		l.drain()
		return
	}
	for _, f := range l.drain() {
		if err := m.writeFrame(l.addr, &f); err != nil {
			m.log.Warn("send failed", zap.String("link", l.Name()), zap.Stringer("type", f.Header.Type), zap.Uint32("seq", f.Header.Seq), zap.Error(err))
			continue
		}
		l.touchOut(protocol.HeaderSize + len(f.Payload))
	}
}
