package server

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gamelink/pkg/config"
	"gamelink/pkg/message"
	"gamelink/pkg/protocol"
	"gamelink/pkg/transport"
)

const lobbyURL = "chat://lobby.example.com:9999/"

var lobbyIP = netip.MustParseAddr("203.0.113.7")

func staticLookup(ctx context.Context, host string) ([]netip.Addr, error) {
	return []netip.Addr{lobbyIP}, nil
}

func failingLookup(ctx context.Context, host string) ([]netip.Addr, error) {
	return nil, errors.New("no such host")
}

type harness struct {
	srv     *Server
	links   *fakeLinks
	session *fakeSession
	handler *recordingHandler
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T, lookup LookupFunc, opts ...Option) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{links: newFakeLinks(), handler: &recordingHandler{}, logs: logs}
	h.session = &fakeSession{handler: h.handler, players: map[transport.LinkID]string{}}
	opts = append([]Option{WithLogger(zap.New(core)), WithLookup(lookup)}, opts...)
	srv, err := New(h.links, h.session, props{config.KeyChatServer: lobbyURL}, opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	h.srv = srv
	return h
}

func decode(t *testing.T, srv *Server, q queued) *message.Message {
	t.Helper()
	m, err := srv.Codec().Decode(q.payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

var alice = Profile{Name: "alice", Password: "pw"}

func TestNewRejectsBadConfiguration(t *testing.T) {
	cases := []props{
		{},
		{config.KeyChatServer: "chat://lobby.example.com/"},
		{config.KeyChatServer: "chat://:9999/"},
		{config.KeyChatServer: "chat://lobby.example.com:0/"},
		{config.KeyChatServer: "lobby.example.com:70000"},
		{config.KeyChatServer: "chat://lobby.example.com:port/"},
	}
	for _, p := range cases {
		if _, err := New(newFakeLinks(), &fakeSession{}, p); !errors.Is(err, config.ErrConfiguration) {
			t.Fatalf("%v: want ErrConfiguration, got %v", p, err)
		}
	}
}

func TestSendChatNotBound(t *testing.T) {
	h := newHarness(t, staticLookup)
	h.links.bound = false

	if h.srv.SendChat(context.Background(), alice, "hi") {
		t.Fatalf("send chat reported success while unbound")
	}
	if h.session.timeouts != 1 {
		t.Fatalf("timeouts = %d, want 1", h.session.timeouts)
	}
	if h.links.created != 0 || len(h.links.flushed) != 0 || h.srv.ChatLink() != nil {
		t.Fatalf("side effects while unbound: created=%d flushed=%d", h.links.created, len(h.links.flushed))
	}
	if len(h.handler.got) != 0 {
		t.Fatalf("unexpected notices: %v", h.handler.got)
	}
}

func TestSendChatHelloBeforeChat(t *testing.T) {
	h := newHarness(t, staticLookup)

	if !h.srv.SendChat(context.Background(), alice, "hi") {
		t.Fatalf("send chat failed")
	}
	l, ok := h.srv.ChatLink().(*fakeLink)
	if !ok {
		t.Fatalf("no chat link")
	}
	if l.addr != netip.AddrPortFrom(lobbyIP, 9999) || l.name != ChatLinkName || l.connects != 1 {
		t.Fatalf("unexpected link %+v", l)
	}
	if len(l.queued) != 2 {
		t.Fatalf("queued %d payloads, want 2", len(l.queued))
	}
	hello, chat := decode(t, h.srv, l.queued[0]), decode(t, h.srv, l.queued[1])
	if hello.Kind != message.KindChatHello || l.queued[0].category != message.CategoryHello {
		t.Fatalf("first payload = %+v", hello)
	}
	if hello.Auth == nil || *hello.Auth != (message.Auth{PlayerName: "alice", LicenseKey: "LIC-1", Password: "pw"}) {
		t.Fatalf("auth = %+v", hello.Auth)
	}
	if chat.Kind != message.KindChat || chat.Chat != "hi" || chat.PlayerName != "alice" || l.queued[1].category != message.CategoryChat {
		t.Fatalf("second payload = %+v", chat)
	}
	if len(h.links.flushed) != 1 || h.links.flushed[0] != Link(l) {
		t.Fatalf("flushed %d times, want 1", len(h.links.flushed))
	}
	if len(h.handler.got) != 1 || h.handler.got[0].Key != config.MsgChatLobbyConnect {
		t.Fatalf("notices = %v", h.handler.got)
	}
}

func TestSendChatReusesLink(t *testing.T) {
	h := newHarness(t, staticLookup)
	ctx := context.Background()

	h.srv.SendChat(ctx, alice, "one")
	h.srv.SendChat(ctx, alice, "two")

	l := h.srv.ChatLink().(*fakeLink)
	if l.connects != 1 || h.links.created != 1 {
		t.Fatalf("connects=%d created=%d, want 1/1", l.connects, h.links.created)
	}
	hellos := 0
	for _, q := range l.queued {
		if q.category == message.CategoryHello {
			hellos++
		}
	}
	if hellos != 1 || len(l.queued) != 3 {
		t.Fatalf("hellos=%d queued=%d", hellos, len(l.queued))
	}
	if len(h.links.flushed) != 2 {
		t.Fatalf("flushed %d, want 2", len(h.links.flushed))
	}
}

func TestSendChatEmptyTextOnlyFlushes(t *testing.T) {
	h := newHarness(t, staticLookup)
	if !h.srv.SendChat(context.Background(), alice, "") {
		t.Fatalf("send chat failed")
	}
	l := h.srv.ChatLink().(*fakeLink)
	if len(l.queued) != 1 || l.queued[0].category != message.CategoryHello || len(h.links.flushed) != 1 {
		t.Fatalf("queued=%d flushed=%d", len(l.queued), len(h.links.flushed))
	}
}

func TestSendChatUnresolved(t *testing.T) {
	h := newHarness(t, failingLookup)

	if h.srv.SendChat(context.Background(), alice, "hi") {
		t.Fatalf("send chat succeeded with unresolved server")
	}
	if h.links.created != 0 || len(h.links.flushed) != 0 || h.srv.ChatLink() != nil {
		t.Fatalf("link created for unresolved server")
	}
	if len(h.handler.got) != 1 {
		t.Fatalf("notices = %d, want 1", len(h.handler.got))
	}
	n := h.handler.got[0]
	if n.Kind != message.KindChatAdmin || n.Key != config.MsgChatLobbyUnresolved || len(n.Params) != 1 || n.Params[0] != "lobby.example.com" {
		t.Fatalf("notice = %+v", n)
	}
}

func TestUnresolvedRetriesLookup(t *testing.T) {
	calls := 0
	lookup := func(ctx context.Context, host string) ([]netip.Addr, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("timeout")
		}
		return []netip.Addr{lobbyIP}, nil
	}
	h := newHarness(t, lookup)
	ctx := context.Background()

	if h.srv.SendChat(ctx, alice, "hi") {
		t.Fatalf("first send should fail")
	}
	if a, ok := h.srv.resolver.Cached(); !ok || !a.IsUnresolved() {
		t.Fatalf("cached = %v, %v", a, ok)
	}
	if !h.srv.SendChat(ctx, alice, "hi") {
		t.Fatalf("second send should succeed")
	}
	h.srv.SendChat(ctx, alice, "again")
	if calls != 2 {
		t.Fatalf("lookups = %d, want 2", calls)
	}
}

func TestNilHandlerIsNotAnError(t *testing.T) {
	h := newHarness(t, staticLookup)
	h.session.handler = nil
	if !h.srv.SendChat(context.Background(), alice, "hi") {
		t.Fatalf("send chat failed without handler")
	}
}

func TestChatServerAddress(t *testing.T) {
	h := newHarness(t, staticLookup)
	a, err := h.srv.ChatServerAddress(context.Background())
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	if a.HostName() != "lobby.example.com" || a.Port != 9999 || a.IsUnresolved() {
		t.Fatalf("address = %+v", a)
	}
}

func TestCloseChatLinkIdempotent(t *testing.T) {
	h := newHarness(t, staticLookup)
	h.srv.SendChat(context.Background(), alice, "hi")
	l := h.srv.ChatLink().(*fakeLink)

	h.srv.CloseChatLink()
	h.srv.CloseChatLink()
	if h.srv.ChatLink() != nil {
		t.Fatalf("chat link still set")
	}
	if l.closes != 1 {
		t.Fatalf("closes = %d, want 1", l.closes)
	}
}

func TestClearChatLinkReference(t *testing.T) {
	h := newHarness(t, staticLookup)
	ctx := context.Background()
	h.srv.SendChat(ctx, alice, "hi")
	l := h.srv.ChatLink().(*fakeLink)

	h.srv.ClearChatLinkReference()
	if h.srv.ChatLink() != nil || l.closes != 0 {
		t.Fatalf("clear closed the link or kept the reference")
	}
}

func TestClosedLinkTriggersNewHandshake(t *testing.T) {
	h := newHarness(t, staticLookup)
	ctx := context.Background()
	h.srv.SendChat(ctx, alice, "hi")
	first := h.srv.ChatLink().(*fakeLink)

	// remote termination reported through the manager callback
	first.Close()
	if h.srv.ChatLink() != nil {
		t.Fatalf("closed link not cleared")
	}
	h.srv.SendChat(ctx, alice, "back")
	second := h.srv.ChatLink().(*fakeLink)
	if second == first || second.connects != 1 || h.links.created != 2 {
		t.Fatalf("no fresh handshake: created=%d", h.links.created)
	}
}

func TestSendNilConnection(t *testing.T) {
	h := newHarness(t, staticLookup)
	if n := h.srv.Send(nil, h.srv.NewMessage(message.NewGameEvent("move", nil))); n != 0 {
		t.Fatalf("send(nil) = %d", n)
	}
	h.srv.CloseConnection(nil)
	if h.links.lookups != 0 || len(h.links.flushed) != 0 {
		t.Fatalf("nil connection touched the link manager")
	}
}

func TestSendMissingLinkDrops(t *testing.T) {
	h := newHarness(t, staticLookup)
	c := conn(transport.NewLinkID())
	h.session.players[c.UDPID()] = "bob"

	if n := h.srv.Send(c, h.srv.NewMessage(message.NewGameEvent("move", nil))); n != 0 {
		t.Fatalf("send = %d, want 0", n)
	}
	if len(h.links.flushed) != 0 {
		t.Fatalf("flushed a missing link")
	}
	warns := h.logs.FilterLevelExact(zapcore.WarnLevel).FilterField(zap.String("player", "bob")).All()
	if len(warns) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warns))
	}
	h.srv.CloseConnection(c)
}

func TestSendQueuesGamePayload(t *testing.T) {
	h := newHarness(t, staticLookup)
	l := h.links.LinkForAddr(netip.MustParseAddrPort("198.51.100.2:4000")).(*fakeLink)

	tr := h.srv.NewMessage(message.NewGameEvent("move", map[string]string{"x": "1"}))
	n := h.srv.Send(conn(l.id), tr)
	data, _ := tr.Data()
	if n == 0 || n != len(data) {
		t.Fatalf("send = %d, payload %d", n, len(data))
	}
	if len(l.queued) != 1 || l.queued[0].category != message.CategoryGame {
		t.Fatalf("queued = %+v", l.queued)
	}
	if got := decode(t, h.srv, l.queued[0]); got.Event != "move" || got.Attrs["x"] != "1" {
		t.Fatalf("payload = %+v", got)
	}
	if len(h.links.flushed) != 1 {
		t.Fatalf("flushed %d", len(h.links.flushed))
	}

	h.srv.CloseConnection(conn(l.id))
	h.srv.CloseConnection(conn(l.id))
	if l.closes != 1 {
		t.Fatalf("closes = %d", l.closes)
	}
}

func TestHelloEncodeFailureCreatesNoLink(t *testing.T) {
	h := newHarness(t, staticLookup, WithFormat(protocol.FormatProto))
	ctx := context.Background()
	bad := Profile{Name: "alice", Password: "p\xffw"}

	for i := 0; i < 2; i++ {
		if h.srv.SendChat(ctx, bad, "hi") {
			t.Fatalf("send %d succeeded with an unencodable hello", i)
		}
	}
	if h.links.created != 0 || len(h.links.flushed) != 0 || h.srv.ChatLink() != nil {
		t.Fatalf("link left behind: created=%d flushed=%d", h.links.created, len(h.links.flushed))
	}
	errs := h.logs.FilterMessage("encode chat hello").All()
	if len(errs) != 2 {
		t.Fatalf("hello errors logged = %d, want 2", len(errs))
	}

	if !h.srv.SendChat(ctx, alice, "hi") {
		t.Fatalf("send with a valid profile failed")
	}
	l := h.srv.ChatLink().(*fakeLink)
	if l.connects != 1 || len(l.queued) != 2 || l.queued[0].category != message.CategoryHello {
		t.Fatalf("handshake not fresh: connects=%d queued=%+v", l.connects, l.queued)
	}
}

func TestLookupDoesNotHoldChatLock(t *testing.T) {
	entered, release := make(chan struct{}), make(chan struct{})
	lookup := func(ctx context.Context, host string) ([]netip.Addr, error) {
		close(entered)
		<-release
		return []netip.Addr{lobbyIP}, nil
	}
	h := newHarness(t, lookup)

	done := make(chan bool, 1)
	go func() { done <- h.srv.SendChat(context.Background(), alice, "hi") }()
	<-entered

	cleared := make(chan struct{})
	go func() {
		h.srv.ClearChatLinkReference()
		close(cleared)
	}()
	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatalf("clearing the chat link waited on the lookup")
	}

	close(release)
	if !<-done {
		t.Fatalf("send chat failed after lookup")
	}
	if h.srv.ChatLink() == nil {
		t.Fatalf("no chat link after lookup")
	}
}
