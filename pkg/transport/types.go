package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotBound     = errors.New("transport: manager not bound")
	ErrAlreadyBound = errors.New("transport: manager already bound")
	ErrClosed       = errors.New("transport: manager closed")
)

// LinkID identifies a link. Peers exchange their ids in the frame header.
type LinkID uuid.UUID

// NilLinkID is the zero id.
var NilLinkID LinkID

// NewLinkID returns a random id.
func NewLinkID() LinkID { return LinkID(uuid.New()) }

// ParseLinkID parses the canonical uuid form.
func ParseLinkID(s string) (LinkID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilLinkID, err
	}
	return LinkID(u), nil
}

func (id LinkID) String() string { return uuid.UUID(id).String() }

// State is the lifecycle of a Link.
type State int32

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Category tags a data frame for the receiving application.
type Category uint8

// Stats is a snapshot of link counters.
type Stats struct {
	FramesIn      uint64
	FramesOut     uint64
	BytesIn       uint64
	BytesOut      uint64
	EstablishedAt time.Time
	LastSeen      time.Time
}
