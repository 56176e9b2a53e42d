package main

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"gamelink/pkg/message"
	"gamelink/pkg/transport"
)

func bound(t *testing.T) *transport.Manager {
	t.Helper()
	m := transport.NewManager(transport.Options{Logger: zap.NewNop()})
	if err := m.Bind(context.Background(), "127.0.0.1:0"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestLobbyRelaysChat(t *testing.T) {
	hub := bound(t)
	lb := newLobby(hub, zap.NewNop(), 0)
	t.Cleanup(lb.Close)
	hub.OnLinkClosed(lb.left)
	hub.OnReceive(lb.received)

	alice, bob := bound(t), bound(t)
	got := make(chan string, 4)
	bob.OnReceive(func(_ *transport.Link, c transport.Category, p []byte) {
		m, err := lb.codec.Decode(p)
		if err == nil && c == message.CategoryChat {
			got <- m.Chat
		}
	})

	codec := message.NewCodec(0)
	join := func(m *transport.Manager, name string) *transport.Link {
		l := m.LinkForAddr(hub.LocalAddr())
		l.Connect()
		hello, _ := codec.Encode(message.NewHello(message.Auth{PlayerName: name}))
		l.Queue(hello, message.CategoryHello)
		m.AddLinkToSend(l)
		return l
	}
	al := join(alice, "alice")
	join(bob, "bob")

	deadline := time.Now().Add(2 * time.Second)
	for {
		n := lb.players.Len()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("lobby saw %d hellos", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	chat, _ := codec.Encode(message.NewChat("alice", "hello bob"))
	al.Queue(chat, message.CategoryChat)
	alice.AddLinkToSend(al)

	select {
	case text := <-got:
		if text != "hello bob" {
			t.Fatalf("relayed %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("chat not relayed")
	}
}
