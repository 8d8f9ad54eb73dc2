package router_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"onionnet/internal/crypto"
	"onionnet/internal/domain"
	"onionnet/internal/metrics"
	"onionnet/internal/protocol/onion"
	"onionnet/internal/services/router"
)

const fallbackPort = 4001

type delivery struct {
	port    int
	message string
}

type recordingTransport struct {
	mtx  sync.Mutex
	sent []delivery
	err  error
}

func (rt *recordingTransport) Deliver(_ context.Context, port int, message string) error {
	rt.mtx.Lock()
	defer rt.mtx.Unlock()
	rt.sent = append(rt.sent, delivery{port: port, message: message})
	return rt.err
}

func newRouter(t *testing.T, rt *recordingTransport) *router.Service {
	t.Helper()
	r, err := router.New(2, fallbackPort, rt, metrics.New())
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	return r
}

func TestHandleLayer_Forward(t *testing.T) {
	rt := &recordingTransport{}
	r := newRouter(t, rt)

	layer, err := onion.BuildOnion("hello", []onion.Hop{{Port: 4002, PublicKey: r.Node().PubKey}}, 3007)
	if err != nil {
		t.Fatalf("BuildOnion: %v", err)
	}
	res, err := r.HandleLayer(context.Background(), layer)
	if err != nil {
		t.Fatalf("HandleLayer: %v", err)
	}
	if res.State != onion.StateForwarded {
		t.Fatalf("state %v", res.State)
	}
	if len(rt.sent) != 1 || rt.sent[0] != (delivery{port: 3007, message: "hello"}) {
		t.Fatalf("deliveries %+v", rt.sent)
	}
	if got := r.LastReceivedEncryptedMessage(); got == nil || *got != layer {
		t.Fatal("encrypted slot not recorded")
	}
	if got := r.LastReceivedDecryptedMessage(); got == nil || *got != "hello" {
		t.Fatalf("decrypted slot %v", got)
	}
	if got := r.LastMessageDestination(); got == nil || *got != 3007 {
		t.Fatalf("destination slot %v", got)
	}
}

func TestHandleLayer_Malformed_RoutesToFallback(t *testing.T) {
	rt := &recordingTransport{}
	r := newRouter(t, rt)

	res, err := r.HandleLayer(context.Background(), "too short")
	if err != nil {
		t.Fatalf("HandleLayer: %v", err)
	}
	if !res.Degraded() {
		t.Fatalf("want degraded, got %v", res.State)
	}
	if len(rt.sent) != 1 || rt.sent[0] != (delivery{port: fallbackPort}) {
		t.Fatalf("deliveries %+v", rt.sent)
	}
	if got := r.LastReceivedDecryptedMessage(); got == nil || *got != "" {
		t.Fatalf("decrypted slot %v", got)
	}
	if got := r.LastMessageDestination(); got == nil || *got != fallbackPort {
		t.Fatalf("destination slot %v", got)
	}
}

func TestHandleLayer_FallbackDeliveryFailure_Accepted(t *testing.T) {
	rt := &recordingTransport{err: domain.ErrTransport}
	r := newRouter(t, rt)

	res, err := r.HandleLayer(context.Background(), "garbage")
	if err != nil {
		t.Fatalf("degraded layer should be accepted, got %v", err)
	}
	if !res.Degraded() {
		t.Fatalf("state %v", res.State)
	}
}

func TestHandleLayer_EmptyLayer_Dropped(t *testing.T) {
	rt := &recordingTransport{}
	r := newRouter(t, rt)

	res, err := r.HandleLayer(context.Background(), "")
	if err != nil {
		t.Fatalf("HandleLayer: %v", err)
	}
	if !res.Degraded() {
		t.Fatalf("state %v", res.State)
	}
	if len(rt.sent) != 0 {
		t.Fatalf("empty layer forwarded: %+v", rt.sent)
	}
	if got := r.LastMessageDestination(); got == nil || *got != fallbackPort {
		t.Fatalf("destination slot %v", got)
	}
}

func TestHandleLayer_ForwardFailure_Error(t *testing.T) {
	rt := &recordingTransport{err: domain.ErrTransport}
	r := newRouter(t, rt)

	layer, err := onion.BuildOnion("hello", []onion.Hop{{Port: 4002, PublicKey: r.Node().PubKey}}, 3007)
	if err != nil {
		t.Fatalf("BuildOnion: %v", err)
	}
	res, err := r.HandleLayer(context.Background(), layer)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("want ErrTransport, got %v", err)
	}
	if res.State != onion.StateHeaderParsed {
		t.Fatalf("state %v", res.State)
	}
}

func TestHandleLayer_ConcurrentObservationsConsistent(t *testing.T) {
	r := newRouter(t, &recordingTransport{})

	type sent struct {
		plaintext string
		dest      int
	}
	want := make(map[string]sent)
	var layers []string
	for i := 0; i < 6; i++ {
		msg, dest := fmt.Sprintf("message %d", i), 3000+i
		layer, err := onion.BuildOnion(msg, []onion.Hop{{Port: 4002, PublicKey: r.Node().PubKey}}, dest)
		if err != nil {
			t.Fatalf("BuildOnion: %v", err)
		}
		layers = append(layers, layer)
		want[layer] = sent{plaintext: msg, dest: dest}
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for _, layer := range layers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 4; i++ {
				if _, err := r.HandleLayer(ctx, layer); err != nil {
					t.Errorf("HandleLayer: %v", err)
				}
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	check := func() {
		obs := r.Last()
		if obs.Encrypted == nil {
			return
		}
		w, ok := want[*obs.Encrypted]
		if !ok {
			t.Fatal("unknown layer recorded")
		}
		if obs.Decrypted == nil || *obs.Decrypted != w.plaintext ||
			obs.Destination == nil || *obs.Destination != w.dest {
			t.Fatalf("layer for %q recorded with %v -> %v", w.plaintext, obs.Decrypted, obs.Destination)
		}
	}
	for {
		select {
		case <-done:
			check()
			return
		default:
			check()
		}
	}
}

func TestSlots_NilBeforeTraffic(t *testing.T) {
	r := newRouter(t, &recordingTransport{})
	if r.LastReceivedEncryptedMessage() != nil ||
		r.LastReceivedDecryptedMessage() != nil ||
		r.LastMessageDestination() != nil {
		t.Fatal("slots should start empty")
	}
	if obs := r.Last(); obs != (router.Observation{}) {
		t.Fatalf("observation %+v", obs)
	}
}

func TestPrivateKey_MatchesNode(t *testing.T) {
	r := newRouter(t, &recordingTransport{})
	exported, err := r.PrivateKey()
	if err != nil {
		t.Fatalf("PrivateKey: %v", err)
	}
	priv, err := crypto.ImportPrivateKey(exported)
	if err != nil {
		t.Fatalf("ImportPrivateKey: %v", err)
	}
	pub, err := crypto.ImportPublicKey(r.Node().PubKey)
	if err != nil {
		t.Fatalf("ImportPublicKey: %v", err)
	}
	ct, err := crypto.AsymmetricEncrypt(crypto.B64([]byte("x")), pub)
	if err != nil {
		t.Fatalf("AsymmetricEncrypt: %v", err)
	}
	if _, err := crypto.AsymmetricDecrypt(ct, priv); err != nil {
		t.Fatalf("private key does not match announced public key: %v", err)
	}
}
