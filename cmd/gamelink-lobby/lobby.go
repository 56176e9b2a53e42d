package main

import (
	"time"

	"go.uber.org/zap"

	"gamelink/pkg/message"
	"gamelink/pkg/roster"
	"gamelink/pkg/transport"
)

// lobby relays chat between links and tracks who is behind each one.
type lobby struct {
	mgr     *transport.Manager
	log     *zap.Logger
	codec   *message.Codec
	players *roster.Roster
}

func newLobby(mgr *transport.Manager, log *zap.Logger, idle time.Duration) *lobby {
	lb := &lobby{
		mgr:   mgr,
		log:   log.Named("lobby"),
		codec: message.NewCodec(0),
	}
	lb.players = roster.New(roster.Options{IdleTTL: idle, OnExpire: lb.expired})
	return lb
}

func (lb *lobby) Close() { lb.players.Close() }

func (lb *lobby) accepted(l *transport.Link) {
	lb.log.Info("peer joined", zap.Stringer("addr", l.Addr()))
}

func (lb *lobby) left(l *transport.Link) {
	p, _ := lb.players.Leave(l.ID())
	lb.log.Info("peer left", zap.String("player", p.Name), zap.Stringer("addr", l.Addr()), zap.Uint64("chats", p.Chats))
}

// expired runs on the roster goroutine; closing the link also notifies the peer.
func (lb *lobby) expired(p roster.Player) {
	lb.log.Info("player idle, dropping", zap.String("player", p.Name), zap.Time("last_seen", p.LastSeen))
	if l, ok := lb.mgr.LinkByID(p.Link); ok {
		l.Close()
	}
}

func (lb *lobby) received(from *transport.Link, c transport.Category, payload []byte) {
	switch c {
	case message.CategoryHello:
		m, err := lb.codec.Decode(payload)
		if err != nil || m.Auth == nil {
			lb.log.Warn("bad hello", zap.Stringer("addr", from.Addr()), zap.Error(err))
			return
		}
		lb.players.Join(from.ID(), m.Auth.PlayerName, m.Auth.LicenseKey != "")
		from.SetName(m.Auth.PlayerName)
		lb.log.Info("hello", zap.String("player", m.Auth.PlayerName), zap.Bool("licensed", m.Auth.LicenseKey != ""))
	case message.CategoryChat:
		if _, ok := lb.players.Touch(from.ID(), true); !ok {
			lb.log.Warn("chat before hello", zap.Stringer("addr", from.Addr()))
			return
		}
		n := lb.relay(from, c, payload)
		lb.log.Debug("chat relayed", zap.String("from", lb.players.Name(from.ID())), zap.Int("to", n))
	default:
		lb.players.Touch(from.ID(), false)
		lb.log.Debug("ignored payload", zap.Uint8("category", uint8(c)), zap.Stringer("addr", from.Addr()))
	}
}

// relay queues payload on every other connected player link.
func (lb *lobby) relay(from *transport.Link, c transport.Category, payload []byte) int {
	n := 0
	for _, l := range lb.mgr.Links() {
		if l == from || l.State() != transport.StateConnected {
			continue
		}
		if _, ok := lb.players.Get(l.ID()); !ok {
			continue
		}
		l.Queue(payload, c)
		lb.mgr.AddLinkToSend(l)
		n++
	}
	return n
}
