package transport

import (
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"gamelink/pkg/protocol"
)

// Link is a channel to one remote endpoint. Links are created by a Manager
// and stay registered with it until closed.
type Link struct {
	id   LinkID
	addr netip.AddrPort
	mgr  *Manager

	state   atomic.Int32
	pending atomic.Bool // flagged for the flush worker

	mu            sync.Mutex
	name          string
	remoteID      LinkID
	queue         []protocol.Frame
	seq           uint32
	establishedAt time.Time
	lastSeen      time.Time

	framesIn, framesOut atomic.Uint64
	bytesIn, bytesOut   atomic.Uint64
}

func newLink(m *Manager, addr netip.AddrPort, st State) *Link {
	l := &Link{id: NewLinkID(), addr: addr, mgr: m, name: addr.String()}
	l.state.Store(int32(st))
	if st == StateConnected {
		l.establishedAt = time.Now()
	}
	return l
}

func (l *Link) ID() LinkID           { return l.id }
func (l *Link) Addr() netip.AddrPort { return l.addr }
func (l *Link) State() State         { return State(l.state.Load()) }

// IsDone reports whether the link is closed.
func (l *Link) IsDone() bool { return l.State() == StateClosed }

func (l *Link) Name() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.name
}

// SetName sets a human-readable name used in logs.
func (l *Link) SetName(name string) {
	l.mu.Lock()
	l.name = name
	l.mu.Unlock()
}

// RemoteID is the id the remote side announced, or NilLinkID before the
// first connect/ack frame.
func (l *Link) RemoteID() LinkID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remoteID
}

func (l *Link) String() string {
	return fmt.Sprintf("%s[%s %s]", l.Name(), l.addr, l.State())
}

// Connect starts the handshake by queueing a connect frame. It only acts on
// an unconnected link; the frame leaves with the next flush.
func (l *Link) Connect() {
	if !l.state.CompareAndSwap(int32(StateUnconnected), int32(StateConnecting)) {
		return
	}
	l.enqueue(protocol.FrameConnect, 0, nil)
	l.mgr.log.Debug("link connecting", zap.String("link", l.Name()), zap.Stringer("addr", l.addr))
}

// Queue appends payload to the outbound queue under category c. Payloads
// queued on a closed link are dropped.
func (l *Link) Queue(payload []byte, c Category) {
	if l.IsDone() {
		l.mgr.log.Debug("queue on closed link dropped", zap.String("link", l.Name()), zap.Int("bytes", len(payload)))
		return
	}
	l.enqueue(protocol.FrameData, c, payload)
}

func (l *Link) enqueue(t protocol.FrameType, c Category, payload []byte) {
	l.mu.Lock()
	l.seq++
	l.queue = append(l.queue, protocol.Frame{
		Header:  protocol.Header{Type: t, Category: uint8(c), Seq: l.seq, Sender: [16]byte(l.id)},
		Payload: payload,
	})
	l.mu.Unlock()
}

// Pending returns the number of queued frames.
func (l *Link) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Link) drain() []protocol.Frame {
	l.mu.Lock()
	q := l.queue
	l.queue = nil
	l.mu.Unlock()
	return q
}

// Close closes the link and unregisters it. A close frame is sent when the
// remote side may know about the link. Closing twice is a no-op.
func (l *Link) Close() {
	prev := State(l.state.Swap(int32(StateClosed)))
	if prev == StateClosed {
		return
	}
	if prev != StateUnconnected {
		f := protocol.Frame{Header: protocol.Header{Type: protocol.FrameClose, Sender: [16]byte(l.id)}}
		if err := l.mgr.writeFrame(l.addr, &f); err != nil {
			l.mgr.log.Debug("close frame not sent", zap.String("link", l.Name()), zap.Error(err))
		}
	}
	l.finish("local")
}

// closeRemote handles a close frame from the peer.
func (l *Link) closeRemote() {
	if State(l.state.Swap(int32(StateClosed))) == StateClosed {
		return
	}
	l.finish("remote")
}

func (l *Link) finish(by string) {
	l.drain()
	l.mgr.forget(l)
	l.mgr.log.Info("link closed", zap.String("link", l.Name()), zap.Stringer("addr", l.addr), zap.String("by", by))
	l.mgr.notifyClosed(l)
}

// markConnected records a handshake completion from the remote side.
func (l *Link) markConnected(remote LinkID) {
	l.mu.Lock()
	l.remoteID = remote
	if l.establishedAt.IsZero() {
		l.establishedAt = time.Now()
	}
	l.mu.Unlock()
	if l.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected)) ||
		l.state.CompareAndSwap(int32(StateUnconnected), int32(StateConnected)) {
		l.mgr.log.Info("link connected", zap.String("link", l.Name()), zap.Stringer("addr", l.addr))
	}
}

func (l *Link) touchIn(n int) {
	l.framesIn.Add(1)
	l.bytesIn.Add(uint64(n))
	l.mu.Lock()
	l.lastSeen = time.Now()
	l.mu.Unlock()
}

func (l *Link) touchOut(n int) {
	l.framesOut.Add(1)
	l.bytesOut.Add(uint64(n))
}

// Stats returns a snapshot of the link counters.
func (l *Link) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		FramesIn:      l.framesIn.Load(),
		FramesOut:     l.framesOut.Load(),
		BytesIn:       l.bytesIn.Load(),
		BytesOut:      l.bytesOut.Load(),
		EstablishedAt: l.establishedAt,
		LastSeen:      l.lastSeen,
	}
}
