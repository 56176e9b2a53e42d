// Package server is the session dispatch core: it owns the chat lobby link,
// sends game messages to peer links and resolves the chat server address.
//
// All public methods may be called from the game loop; link termination
// callbacks from the transport may arrive on other goroutines.
package server

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gamelink/pkg/message"
	"gamelink/pkg/protocol"
)

type options struct {
	log     *zap.Logger
	format  protocol.Format
	lookup  LookupFunc
	timeout time.Duration
}

// Option configures a Server.
type Option func(*options)

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithFormat selects the body format of outgoing messages.
func WithFormat(f protocol.Format) Option { return func(o *options) { o.format = f } }

// WithLookup replaces the DNS lookup used for the chat server host.
func WithLookup(fn LookupFunc) Option { return func(o *options) { o.lookup = fn } }

func WithResolveTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// Server composes the chat channel and the peer dispatcher.
type Server struct {
	links    LinkManager
	session  Session
	msgs     MessageSource
	log      *zap.Logger
	codec    *message.Codec
	resolver *Resolver
	chat     *chatChannel
}

// New validates the chat server property and wires the server to links.
// A missing or malformed property is returned as config.ErrConfiguration.
func New(links LinkManager, session Session, props Properties, opts ...Option) (*Server, error) {
	if links == nil {
		return nil, errors.New("server: nil link manager")
	}
	if session == nil {
		return nil, errors.New("server: nil session")
	}
	o := options{format: protocol.FormatCBOR}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = zap.L()
	}
	log := o.log.Named("server")

	s := &Server{
		links:    links,
		session:  session,
		log:      log,
		codec:    message.NewCodec(o.format),
		resolver: NewResolver(props, o.lookup, o.timeout, log),
	}
	if ms, ok := props.(MessageSource); ok {
		s.msgs = ms
	}
	if err := s.resolver.Validate(); err != nil {
		return nil, err
	}
	s.chat = &chatChannel{s: s}
	if n, ok := links.(closeNotifier); ok {
		n.OnLinkClosed(s.chat.forget)
	}
	return s, nil
}

// SendChat queues text on the chat lobby link, connecting first if needed.
// Empty text only connects and flushes. It reports whether the link was
// usable. The first call may wait up to the resolve timeout on DNS; the chat
// lock is not held meanwhile.
func (s *Server) SendChat(ctx context.Context, p Profile, text string) bool {
	return s.chat.send(ctx, p, text)
}

// ChatServerAddress returns the cached address or resolves it.
func (s *Server) ChatServerAddress(ctx context.Context) (ChatServerAddress, error) {
	if a, ok := s.resolver.Cached(); ok {
		return a, nil
	}
	return s.resolver.Resolve(ctx)
}

// ChatLink returns the current chat link or nil.
func (s *Server) ChatLink() Link { return s.chat.current() }

// CloseChatLink closes and forgets the chat link. Safe when there is none.
func (s *Server) CloseChatLink() {
	if l := s.chat.take(); l != nil {
		l.Close()
	}
}

// ClearChatLinkReference forgets the chat link without closing it.
func (s *Server) ClearChatLinkReference() { s.chat.take() }

// Codec is the body codec used for outgoing messages.
func (s *Server) Codec() *message.Codec { return s.codec }
