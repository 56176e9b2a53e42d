package server

import (
	"go.uber.org/zap"

	"gamelink/pkg/message"
)

// Send queues t on the link of conn and returns the payload length. A peer
// without a live link is dropped with a warning.
func (s *Server) Send(conn Connection, t *message.Transporter) int {
	if conn == nil || t == nil {
		return 0
	}
	l, ok := s.links.LinkByID(conn.UDPID())
	if !ok || l == nil {
		s.log.Warn("no link for connection, message dropped",
			zap.String("player", s.session.PlayerForConnection(conn)),
			zap.Stringer("udp_id", conn.UDPID()))
		return 0
	}
	data, err := t.Data()
	if err != nil {
		s.log.Error("encode message", zap.Stringer("link", l.ID()), zap.Error(err))
		return 0
	}
	l.Queue(data, message.CategoryGame)
	s.links.AddLinkToSend(l)
	return len(data)
}

// CloseConnection closes the link of conn if there is one.
func (s *Server) CloseConnection(conn Connection) {
	if conn == nil {
		return
	}
	if l, ok := s.links.LinkByID(conn.UDPID()); ok && l != nil {
		l.Close()
	}
}

// NewMessage wraps raw for sending with the server's body format.
func (s *Server) NewMessage(raw *message.Message) *message.Transporter {
	return message.NewTransporter(raw, s.codec)
}
