// Package roster keeps the players behind live links, with idle expiry.
package roster

import (
	"container/heap"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gamelink/pkg/transport"
)

// Player is what the lobby knows about one link.
type Player struct {
	Link     transport.LinkID
	Name     string
	Licensed bool
	JoinedAt time.Time
	LastSeen time.Time
	Chats    uint64
}

type Options struct {
	// IdleTTL expires players not seen for this long. 0 disables expiry.
	IdleTTL time.Duration
	// OnExpire runs on the expiry goroutine for every expired player.
	OnExpire func(Player)
}

// Roster maps link ids to players.
type Roster struct {
	opts  Options
	nowFn func() time.Time

	mu      sync.RWMutex
	players map[transport.LinkID]*entry

	qmu  sync.Mutex
	expq expQueue
	wake chan struct{}

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup

	mJoins   atomic.Uint64
	mLeaves  atomic.Uint64
	mExpired atomic.Uint64
}

type entry struct {
	p        Player
	expireAt int64 // unix nano; 0 = no expiry
}

func New(opts Options) *Roster {
	return newRoster(opts, time.Now)
}

func newRoster(opts Options, now func() time.Time) *Roster {
	r := &Roster{
		opts:    opts,
		nowFn:   now,
		players: make(map[transport.LinkID]*entry),
		wake:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
	heap.Init(&r.expq)
	if opts.IdleTTL > 0 {
		r.wg.Add(1)
		go r.expirer()
	}
	return r
}

// Close stops the expiry goroutine.
func (r *Roster) Close() {
	r.closeOnce.Do(func() { close(r.closeCh) })
	r.wg.Wait()
}

// Join records name behind link. It returns true if the link was new.
func (r *Roster) Join(link transport.LinkID, name string, licensed bool) bool {
	now := r.nowFn()
	r.mu.Lock()
	e, existed := r.players[link]
	if !existed {
		e = &entry{p: Player{Link: link, JoinedAt: now}}
		r.players[link] = e
		r.mJoins.Add(1)
	}
	e.p.Name = name
	e.p.Licensed = licensed
	e.p.LastSeen = now
	exp := r.refresh(e, now)
	r.mu.Unlock()
	r.enqueue(link, exp)
	return !existed
}

// Touch marks link as seen and counts a chat line when chat is set.
func (r *Roster) Touch(link transport.LinkID, chat bool) (Player, bool) {
	now := r.nowFn()
	r.mu.Lock()
	e, ok := r.players[link]
	if !ok {
		r.mu.Unlock()
		return Player{}, false
	}
	e.p.LastSeen = now
	if chat {
		e.p.Chats++
	}
	p := e.p
	exp := r.refresh(e, now)
	r.mu.Unlock()
	r.enqueue(link, exp)
	return p, true
}

// Leave drops link and returns the player that was behind it.
func (r *Roster) Leave(link transport.LinkID) (Player, bool) {
	r.mu.Lock()
	e, ok := r.players[link]
	if ok {
		delete(r.players, link)
	}
	r.mu.Unlock()
	if !ok {
		return Player{}, false
	}
	r.mLeaves.Add(1)
	return e.p, true
}

func (r *Roster) Get(link transport.LinkID) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.players[link]
	if !ok {
		return Player{}, false
	}
	return e.p, true
}

// Name returns the player name behind link, or "".
func (r *Roster) Name(link transport.LinkID) string {
	p, _ := r.Get(link)
	return p.Name
}

// List returns players ordered by join time.
func (r *Roster) List() []Player {
	r.mu.RLock()
	out := make([]Player, 0, len(r.players))
	for _, e := range r.players {
		out = append(out, e.p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Stats is a snapshot of roster counters.
type Stats struct {
	Players int
	Joins   uint64
	Leaves  uint64
	Expired uint64
}

func (r *Roster) Stats() Stats {
	return Stats{
		Players: r.Len(),
		Joins:   r.mJoins.Load(),
		Leaves:  r.mLeaves.Load(),
		Expired: r.mExpired.Load(),
	}
}

// refresh runs with r.mu held.
func (r *Roster) refresh(e *entry, now time.Time) int64 {
	if r.opts.IdleTTL <= 0 {
		return 0
	}
	e.expireAt = now.Add(r.opts.IdleTTL).UnixNano()
	return e.expireAt
}

// expireDue removes every player whose deadline passed and returns the next
// deadline, or 0 when the queue is empty.
func (r *Roster) expireDue() int64 {
	for {
		now := r.nowFn().UnixNano()
		r.qmu.Lock()
		if r.expq.Len() == 0 {
			r.qmu.Unlock()
			return 0
		}
		it := r.expq[0]
		if it.when > now {
			r.qmu.Unlock()
			return it.when
		}
		heap.Pop(&r.expq)
		r.qmu.Unlock()

		// stale items are left in the queue when a player is touched
		r.mu.Lock()
		e := r.players[it.link]
		expired := e != nil && e.expireAt != 0 && e.expireAt <= now
		if expired {
			delete(r.players, it.link)
		}
		r.mu.Unlock()
		if expired {
			r.mExpired.Add(1)
			if r.opts.OnExpire != nil {
				r.opts.OnExpire(e.p)
			}
		}
	}
}

func (r *Roster) expirer() {
	defer r.wg.Done()
	for {
		next := r.expireDue()
		var (
			t     *time.Timer
			fired <-chan time.Time
		)
		if next != 0 {
			t = time.NewTimer(time.Duration(next - r.nowFn().UnixNano()))
			fired = t.C
		}
		select {
		case <-fired:
		case <-r.wake:
		case <-r.closeCh:
			if t != nil {
				t.Stop()
			}
			return
		}
		if t != nil {
			t.Stop()
		}
	}
}

func (r *Roster) enqueue(link transport.LinkID, when int64) {
	if when == 0 {
		return
	}
	r.qmu.Lock()
	heap.Push(&r.expq, &expItem{when: when, link: link})
	r.qmu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

type expItem struct {
	when int64
	link transport.LinkID
}

type expQueue []*expItem

func (q expQueue) Len() int           { return len(q) }
func (q expQueue) Less(i, j int) bool { return q[i].when < q[j].when }
func (q expQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *expQueue) Push(x any)        { *q = append(*q, x.(*expItem)) }
func (q *expQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}
