package user_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-test/deep"

	"onionnet/internal/domain"
	"onionnet/internal/protocol/onion"
	"onionnet/internal/services/registry"
	"onionnet/internal/services/router"
	"onionnet/internal/services/user"
)

var ports = domain.Ports{
	Registry:   8080,
	BaseRouter: 4000,
	BaseUser:   3000,
	Fallback:   4001,
}

// switchboard is an in-process transport that dispatches by port.
type switchboard struct {
	mtx     sync.Mutex
	routers map[int]*router.Service
	users   map[int]*user.Service
	hops    []int
}

func (sb *switchboard) Deliver(ctx context.Context, port int, message string) error {
	sb.mtx.Lock()
	sb.hops = append(sb.hops, port)
	r, isRouter := sb.routers[port]
	u, isUser := sb.users[port]
	sb.mtx.Unlock()

	switch {
	case isRouter:
		_, err := r.HandleLayer(ctx, message)
		return err
	case isUser:
		u.ReceiveMessage(message)
		return nil
	}
	return fmt.Errorf("%w: nothing listening on %d", domain.ErrTransport, port)
}

func (sb *switchboard) route() []int {
	sb.mtx.Lock()
	defer sb.mtx.Unlock()
	return append([]int(nil), sb.hops...)
}

type network struct {
	dir     *registry.Service
	sb      *switchboard
	routers []*router.Service
	users   []*user.Service
}

func newNetwork(t *testing.T, nbRouters, nbUsers int) *network {
	t.Helper()
	ctx := context.Background()
	n := &network{
		dir: registry.New(),
		sb: &switchboard{
			routers: make(map[int]*router.Service),
			users:   make(map[int]*user.Service),
		},
	}
	for i := 0; i < nbRouters; i++ {
		r, err := router.New(domain.NodeID(i), ports.Fallback, n.sb, nil)
		if err != nil {
			t.Fatalf("router.New: %v", err)
		}
		if err := n.dir.RegisterNode(ctx, r.Node()); err != nil {
			t.Fatalf("RegisterNode: %v", err)
		}
		n.sb.routers[ports.Router(r.ID())] = r
		n.routers = append(n.routers, r)
	}
	for i := 0; i < nbUsers; i++ {
		u := user.New(user.Config{ID: domain.UserID(i), Ports: ports}, n.dir, n.sb, nil)
		n.sb.users[ports.User(u.ID())] = u
		n.users = append(n.users, u)
	}
	return n
}

func TestSendMessage_ThroughThreeRouters(t *testing.T) {
	n := newNetwork(t, 3, 8)
	sender, recipient := n.users[0], n.users[7]

	if err := sender.SendMessage(context.Background(), "hello", recipient.ID()); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if got := recipient.LastReceivedMessage(); got == nil || *got != "hello" {
		t.Fatalf("recipient got %v", got)
	}
	if got := sender.LastSentMessage(); got == nil || *got != "hello" {
		t.Fatalf("last sent %v", got)
	}

	c := sender.LastCircuit()
	if len(c) != 3 {
		t.Fatalf("circuit %v", c)
	}
	want := []int{ports.Router(c[0]), ports.Router(c[1]), ports.Router(c[2]), ports.User(7)}
	if diff := deep.Equal(n.sb.route(), want); diff != nil {
		t.Fatalf("route: %v", diff)
	}

	// Each router's observation slots point at the next hop.
	for i, id := range c {
		r := n.routers[id]
		dest := r.LastMessageDestination()
		if dest == nil || *dest != want[i+1] {
			t.Fatalf("router %v destination %v, want %d", id, dest, want[i+1])
		}
		if r.LastReceivedEncryptedMessage() == nil {
			t.Fatalf("router %v has no encrypted slot", id)
		}
	}
	exit := n.routers[c[2]]
	if got := exit.LastReceivedDecryptedMessage(); got == nil || *got != "hello" {
		t.Fatalf("exit decrypted %v", got)
	}
}

func TestSendMessage_SingleRouterNetwork(t *testing.T) {
	n := newNetwork(t, 1, 2)
	if err := n.users[0].SendMessage(context.Background(), "", 1); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got := n.users[1].LastReceivedMessage(); got == nil || *got != "" {
		t.Fatalf("recipient got %v", got)
	}
	if diff := deep.Equal(n.users[0].LastCircuit(), []domain.NodeID{0, 0, 0}); diff != nil {
		t.Fatalf("circuit: %v", diff)
	}
}

func TestSendMessage_EmptyDirectory(t *testing.T) {
	n := newNetwork(t, 0, 1)
	err := n.users[0].SendMessage(context.Background(), "hi", 0)
	if !errors.Is(err, domain.ErrEmptyDirectory) {
		t.Fatalf("want ErrEmptyDirectory, got %v", err)
	}
	if n.users[0].LastCircuit() != nil || n.users[0].LastSentMessage() != nil {
		t.Fatal("send state recorded for failed selection")
	}
}

func TestSendMessage_UnknownRecipient_TransportError(t *testing.T) {
	n := newNetwork(t, 3, 1)
	err := n.users[0].SendMessage(context.Background(), "hi", 42)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("want ErrTransport, got %v", err)
	}
}

func TestSendMessage_TruncatesLongMessages(t *testing.T) {
	n := newNetwork(t, 3, 2)
	long := strings.Repeat("z", onion.DefaultMaxMessageLength+10)
	if err := n.users[0].SendMessage(context.Background(), long, 1); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	got := n.users[1].LastReceivedMessage()
	if got == nil || len(*got) != onion.DefaultMaxMessageLength {
		t.Fatalf("received %d chars", len(*got))
	}
	if sent := n.users[0].LastSentMessage(); len(*sent) != len(long) {
		t.Fatal("last sent message should be untruncated")
	}
}

func TestSendMessage_UsageSpreadsLoad(t *testing.T) {
	n := newNetwork(t, 5, 2)
	for i := 0; i < 10; i++ {
		if err := n.users[0].SendMessage(context.Background(), "m", 1); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}
	var total uint64
	for id, c := range n.users[0].Usage().Snapshot() {
		if c == 0 {
			t.Fatalf("node %v never used", id)
		}
		total += c
	}
	if total != 30 {
		t.Fatalf("total selections %d, want 30", total)
	}
}
