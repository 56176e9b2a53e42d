package transport

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sort"
	"sync"

	"go.uber.org/zap"

	"gamelink/pkg/protocol"
)

// Options tunes a Manager.
type Options struct {
	// Logger defaults to zap.L().
	Logger *zap.Logger
	// ReadBuffer sets SO_RCVBUF on the socket when positive.
	ReadBuffer int
}

// Manager owns the local UDP socket and keeps at most one live Link per
// remote address.
type Manager struct {
	log  *zap.Logger
	opts Options

	mu     sync.RWMutex
	conn   *net.UDPConn
	byAddr map[netip.AddrPort]*Link
	byID   map[LinkID]*Link

	cbMu     sync.RWMutex
	onClosed []func(*Link)
	onAccept []func(*Link)
	onRecv   func(*Link, Category, []byte)

	pendMu sync.Mutex
	queued []*Link
	wake   chan struct{}

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	return &Manager{
		log:     log.Named("transport"),
		opts:    opts,
		byAddr:  make(map[netip.AddrPort]*Link),
		byID:    make(map[LinkID]*Link),
		wake:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
}

// Bind opens the local socket on address (host:port, ":0" for any port) and
// starts the read and flush workers. They stop when ctx is done or the
// manager is closed.
func (m *Manager) Bind(ctx context.Context, address string) error {
	m.mu.Lock()
	if m.isClosed() {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.conn != nil {
		m.mu.Unlock()
		return ErrAlreadyBound
	}
	laddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	c, err := net.ListenUDP("udp", laddr)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if m.opts.ReadBuffer > 0 {
		_ = c.SetReadBuffer(m.opts.ReadBuffer)
	}
	m.conn = c
	m.mu.Unlock()

	m.log.Info("bound", zap.Stringer("addr", c.LocalAddr()))
	m.wg.Add(2)
	go m.readLoop(c)
	go m.flushLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = m.Close()
		case <-m.closeCh:
		}
	}()
	// links flagged before the socket existed
	m.signal()
	return nil
}

// IsBound reports whether the local socket is open.
func (m *Manager) IsBound() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn != nil && !m.isClosed()
}

// LocalAddr returns the bound address, or the zero value when not bound.
func (m *Manager) LocalAddr() netip.AddrPort {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return netip.AddrPort{}
	}
	return m.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// LinkForAddr returns the live link to addr, creating an unconnected one if
// none exists.
func (m *Manager) LinkForAddr(addr netip.AddrPort) *Link {
	addr = normalize(addr)
	m.mu.Lock()
	defer m.mu.Unlock()
	if l := m.byAddr[addr]; l != nil && !l.IsDone() {
		return l
	}
	l := newLink(m, addr, StateUnconnected)
	m.register(l)
	return l
}

// LinkByID returns the live link with id.
func (m *Manager) LinkByID(id LinkID) (*Link, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.byID[id]
	return l, ok
}

// Links returns a snapshot of live links ordered by address.
func (m *Manager) Links() []*Link {
	m.mu.RLock()
	out := make([]*Link, 0, len(m.byID))
	for _, l := range m.byID {
		out = append(out, l)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].addr.String() < out[j].addr.String() })
	return out
}

// OnLinkClosed registers fn to run after any link closes, locally or by the
// remote side. fn runs on the goroutine that observed the close.
func (m *Manager) OnLinkClosed(fn func(*Link)) {
	m.cbMu.Lock()
	m.onClosed = append(m.onClosed, fn)
	m.cbMu.Unlock()
}

// OnAccept registers fn to run when a remote peer opens a new link.
func (m *Manager) OnAccept(fn func(*Link)) {
	m.cbMu.Lock()
	m.onAccept = append(m.onAccept, fn)
	m.cbMu.Unlock()
}

// OnReceive sets the handler for inbound data frames. It runs on the read
// goroutine and must not block.
func (m *Manager) OnReceive(fn func(l *Link, c Category, payload []byte)) {
	m.cbMu.Lock()
	m.onRecv = fn
	m.cbMu.Unlock()
}

// AddLinkToSend flags l for the flush worker. It never blocks; a link
// flagged several times before the worker runs is flushed once.
func (m *Manager) AddLinkToSend(l *Link) {
	if l == nil {
		return
	}
	if l.pending.CompareAndSwap(false, true) {
		m.pendMu.Lock()
		m.queued = append(m.queued, l)
		m.pendMu.Unlock()
	}
	m.signal()
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Close closes every link, the socket and waits for the workers.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		for _, l := range m.Links() {
			l.Close()
		}
		m.mu.Lock()
		close(m.closeCh)
		c := m.conn
		m.mu.Unlock()
		if c != nil {
			err = c.Close()
		}
		m.wg.Wait()
		m.log.Info("closed")
	})
	return err
}

func (m *Manager) isClosed() bool {
	select {
	case <-m.closeCh:
		return true
	default:
		return false
	}
}

func (m *Manager) register(l *Link) {
	m.byAddr[l.addr] = l
	m.byID[l.id] = l
}

func (m *Manager) forget(l *Link) {
	m.mu.Lock()
	if m.byAddr[l.addr] == l {
		delete(m.byAddr, l.addr)
	}
	delete(m.byID, l.id)
	m.mu.Unlock()
}

func (m *Manager) linkAt(addr netip.AddrPort) *Link {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l := m.byAddr[addr]; l != nil && !l.IsDone() {
		return l
	}
	return nil
}

func (m *Manager) notifyClosed(l *Link) {
	m.cbMu.RLock()
	fns := append([](func(*Link))(nil), m.onClosed...)
	m.cbMu.RUnlock()
	for _, fn := range fns {
		fn(l)
	}
}

func (m *Manager) notifyAccept(l *Link) {
	m.cbMu.RLock()
	fns := append([](func(*Link))(nil), m.onAccept...)
	m.cbMu.RUnlock()
	for _, fn := range fns {
		fn(l)
	}
}

func (m *Manager) writeFrame(addr netip.AddrPort, f *protocol.Frame) error {
	m.mu.RLock()
	c := m.conn
	closed := m.isClosed()
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if c == nil {
		return ErrNotBound
	}
	b, err := f.Encode()
	if err != nil {
		return err
	}
	_, err = c.WriteToUDPAddrPort(b, addr)
	return err
}

func normalize(a netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(a.Addr().Unmap(), a.Port())
}

// isClosedConn reports read errors caused by closing the socket.
func isClosedConn(err error) bool { return errors.Is(err, net.ErrClosed) }
