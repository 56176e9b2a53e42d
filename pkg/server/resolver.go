package server

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gamelink/pkg/config"
)

// DefaultResolveTimeout bounds one host lookup.
const DefaultResolveTimeout = 2 * time.Second

// LookupFunc resolves host to addresses.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

func defaultLookup(ctx context.Context, host string) ([]netip.Addr, error) {
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

// ChatServerAddress is the chat lobby endpoint. Addr is invalid while the
// host is unresolved.
type ChatServerAddress struct {
	Host string
	Port uint16
	Addr netip.AddrPort
}

func (a ChatServerAddress) IsUnresolved() bool { return !a.Addr.IsValid() }
func (a ChatServerAddress) HostName() string   { return a.Host }

func (a ChatServerAddress) String() string {
	if a.IsUnresolved() {
		return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port))) + " (unresolved)"
	}
	return fmt.Sprintf("%s/%s", a.Host, a.Addr)
}

type resolveState uint8

const (
	stateUnset resolveState = iota
	stateUnresolved
	stateResolved
)

// Resolver turns the settings.online.chat property into a socket address.
// The parsed value is cached; while unresolved only the lookup is retried.
type Resolver struct {
	props   Properties
	lookup  LookupFunc
	timeout time.Duration
	log     *zap.Logger

	mu    sync.Mutex
	state resolveState
	addr  ChatServerAddress
}

func NewResolver(props Properties, lookup LookupFunc, timeout time.Duration, log *zap.Logger) *Resolver {
	if lookup == nil {
		lookup = defaultLookup
	}
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	if log == nil {
		log = zap.L()
	}
	return &Resolver{props: props, lookup: lookup, timeout: timeout, log: log}
}

// Validate parses the property without looking the host up.
func (r *Resolver) Validate() error {
	_, err := r.parse()
	return err
}

// Cached returns the cached address, if any, without a lookup.
func (r *Resolver) Cached() (ChatServerAddress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addr, r.state != stateUnset
}

// Resolve returns the chat server address. An unresolved result is not an
// error; callers check IsUnresolved.
func (r *Resolver) Resolve(ctx context.Context) (ChatServerAddress, error) {
	r.mu.Lock()
	state, addr := r.state, r.addr
	r.mu.Unlock()

	switch state {
	case stateResolved:
		return addr, nil
	case stateUnset:
		parsed, err := r.parse()
		if err != nil {
			return ChatServerAddress{}, err
		}
		addr = parsed
	}

	addr.Addr = r.lookupAddr(ctx, addr.Host, addr.Port)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateResolved {
		// another caller won
		return r.addr, nil
	}
	r.addr = addr
	if addr.IsUnresolved() {
		r.state = stateUnresolved
	} else {
		r.state = stateResolved
	}
	return r.addr, nil
}

func (r *Resolver) lookupAddr(ctx context.Context, host string, port uint16) netip.AddrPort {
	if ip, err := netip.ParseAddr(host); err == nil {
		return netip.AddrPortFrom(ip.Unmap(), port)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	ips, err := r.lookup(ctx, host)
	if err != nil || len(ips) == 0 {
		r.log.Warn("chat server unresolved", zap.String("host", host), zap.Error(err))
		return netip.AddrPort{}
	}
	ip := ips[0]
	for _, c := range ips {
		if c.Unmap().Is4() {
			ip = c
			break
		}
	}
	return netip.AddrPortFrom(ip.Unmap(), port)
}

func (r *Resolver) parse() (ChatServerAddress, error) {
	if r.props == nil {
		return ChatServerAddress{}, errors.Wrap(config.ErrConfiguration, "no properties")
	}
	raw, err := r.props.RequiredString(config.KeyChatServer)
	if err != nil {
		if errors.Is(err, config.ErrConfiguration) {
			return ChatServerAddress{}, err
		}
		return ChatServerAddress{}, errors.Wrapf(config.ErrConfiguration, "%s: %v", config.KeyChatServer, err)
	}
	return ParseChatServer(raw)
}

// ParseChatServer parses scheme://host:port. A bare host:port is read as
// chat://host:port/.
func ParseChatServer(raw string) (ChatServerAddress, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ChatServerAddress{}, errors.Wrapf(config.ErrConfiguration, "%s is empty", config.KeyChatServer)
	}
	if !strings.Contains(s, "://") {
		s = "chat://" + s + "/"
	}
	u, err := url.Parse(s)
	if err != nil {
		return ChatServerAddress{}, errors.Wrapf(config.ErrConfiguration, "%s %q: %v", config.KeyChatServer, raw, err)
	}
	host, ps := u.Hostname(), u.Port()
	if host == "" {
		return ChatServerAddress{}, errors.Wrapf(config.ErrConfiguration, "%s %q: missing host", config.KeyChatServer, raw)
	}
	if ps == "" {
		return ChatServerAddress{}, errors.Wrapf(config.ErrConfiguration, "%s %q: missing port", config.KeyChatServer, raw)
	}
	port, err := strconv.ParseUint(ps, 10, 16)
	if err != nil || port == 0 {
		return ChatServerAddress{}, errors.Wrapf(config.ErrConfiguration, "%s %q: bad port %q", config.KeyChatServer, raw, ps)
	}
	return ChatServerAddress{Host: host, Port: uint16(port)}, nil
}
