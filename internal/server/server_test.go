package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/phayes/freeport"

	"onionnet/internal/domain"
	"onionnet/internal/metrics"
	"onionnet/internal/protocol/onion"
	"onionnet/internal/server"
	"onionnet/internal/services/registry"
	"onionnet/internal/services/router"
	"onionnet/internal/services/user"
)

var ports = domain.Ports{Registry: 8080, BaseRouter: 4000, BaseUser: 3000, Fallback: 4001}

type recordingTransport struct {
	mtx   sync.Mutex
	ports []int
	msgs  []string
	err   error
}

func (rt *recordingTransport) Deliver(_ context.Context, port int, message string) error {
	rt.mtx.Lock()
	defer rt.mtx.Unlock()
	rt.ports = append(rt.ports, port)
	rt.msgs = append(rt.msgs, message)
	return rt.err
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

func TestRegistry_Routes(t *testing.T) {
	h := server.NewRegistry("", registry.New(), metrics.New()).Handler()

	if code, body := do(t, h, http.MethodGet, "/status", ""); code != http.StatusOK || body != "live" {
		t.Fatalf("status: %d %q", code, body)
	}
	if _, body := do(t, h, http.MethodGet, "/getNodeRegistry", ""); strings.TrimSpace(body) != `{"nodes":[]}` {
		t.Fatalf("empty registry: %s", body)
	}
	if code, _ := do(t, h, http.MethodPost, "/registerNode", `{"nodeId":1,"pubKey":"k1"}`); code != http.StatusOK {
		t.Fatalf("register: %d", code)
	}
	if code, _ := do(t, h, http.MethodPost, "/registerNode", `{"nodeId":1,"pubKey":""}`); code != http.StatusBadRequest {
		t.Fatalf("register empty key: %d", code)
	}
	if code, _ := do(t, h, http.MethodPost, "/registerNode", `not json`); code != http.StatusBadRequest {
		t.Fatalf("register garbage: %d", code)
	}

	_, body := do(t, h, http.MethodGet, "/getNodeRegistry", "")
	var got domain.NodeRegistryResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := deep.Equal(got.Nodes, []domain.Node{{NodeID: 1, PubKey: "k1"}}); diff != nil {
		t.Fatalf("nodes: %v", diff)
	}
}

func TestRouter_Routes(t *testing.T) {
	rt := &recordingTransport{}
	svc, err := router.New(3, ports.Fallback, rt, nil)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	h := server.NewRouter(server.RouterConfig{}, svc, registry.New()).Handler()

	for _, path := range []string{
		"/getLastReceivedEncryptedMessage",
		"/getLastReceivedDecryptedMessage",
		"/getLastMessageDestination",
	} {
		if _, body := do(t, h, http.MethodGet, path, ""); strings.TrimSpace(body) != `{"result":null}` {
			t.Fatalf("%v before traffic: %s", path, body)
		}
	}

	layer, err := onion.BuildOnion("hi", []onion.Hop{{Port: ports.Router(3), PublicKey: svc.Node().PubKey}}, ports.User(1))
	if err != nil {
		t.Fatalf("BuildOnion: %v", err)
	}
	req, _ := json.Marshal(domain.MessageRequest{Message: layer})
	if code, body := do(t, h, http.MethodPost, "/message", string(req)); code != http.StatusOK {
		t.Fatalf("message: %d %s", code, body)
	}
	if diff := deep.Equal(rt.ports, []int{ports.User(1)}); diff != nil {
		t.Fatalf("forwarded: %v", diff)
	}

	if _, body := do(t, h, http.MethodGet, "/getLastMessageDestination", ""); strings.TrimSpace(body) != `{"result":3001}` {
		t.Fatalf("destination: %s", body)
	}
	if _, body := do(t, h, http.MethodGet, "/getLastReceivedDecryptedMessage", ""); strings.TrimSpace(body) != `{"result":"hi"}` {
		t.Fatalf("decrypted: %s", body)
	}

	_, body := do(t, h, http.MethodGet, "/getPrivateKey", "")
	var key domain.ResultResponse[string]
	if err := json.Unmarshal([]byte(body), &key); err != nil || key.Result == nil || *key.Result == "" {
		t.Fatalf("private key: %s %v", body, err)
	}
}

func TestRouter_Message_ForwardFailure(t *testing.T) {
	rt := &recordingTransport{err: domain.ErrTransport}
	svc, err := router.New(3, ports.Fallback, rt, nil)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	h := server.NewRouter(server.RouterConfig{}, svc, registry.New()).Handler()

	// A malformed layer is accepted even though the fallback is down.
	if code, _ := do(t, h, http.MethodPost, "/message", `{"message":"garbage"}`); code != http.StatusOK {
		t.Fatalf("degraded: %d", code)
	}

	layer, err := onion.BuildOnion("hi", []onion.Hop{{Port: ports.Router(3), PublicKey: svc.Node().PubKey}}, ports.User(1))
	if err != nil {
		t.Fatalf("BuildOnion: %v", err)
	}
	req, _ := json.Marshal(domain.MessageRequest{Message: layer})
	if code, _ := do(t, h, http.MethodPost, "/message", string(req)); code != http.StatusBadGateway {
		t.Fatalf("forward failure: %d", code)
	}
}

func TestUser_Routes(t *testing.T) {
	dir := registry.New()
	rt := &recordingTransport{}
	r, err := router.New(0, ports.Fallback, rt, nil)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	if err := dir.RegisterNode(context.Background(), r.Node()); err != nil {
		t.Fatalf("RegisterNode: %v", err)
	}
	svc := user.New(user.Config{ID: 2, Ports: ports}, dir, rt, nil)
	h := server.NewUser("", svc).Handler()

	for _, path := range []string{"/getLastReceivedMessage", "/getLastSentMessage", "/getLastCircuit"} {
		if _, body := do(t, h, http.MethodGet, path, ""); strings.TrimSpace(body) != `{"result":null}` {
			t.Fatalf("%v before traffic: %s", path, body)
		}
	}

	if code, body := do(t, h, http.MethodPost, "/message", `{"message":"incoming"}`); code != http.StatusOK || body != "success" {
		t.Fatalf("message: %d %q", code, body)
	}
	if _, body := do(t, h, http.MethodGet, "/getLastReceivedMessage", ""); strings.TrimSpace(body) != `{"result":"incoming"}` {
		t.Fatalf("received: %s", body)
	}

	code, body := do(t, h, http.MethodPost, "/sendMessage", `{"message":"out","destinationUserId":5}`)
	if code != http.StatusOK {
		t.Fatalf("sendMessage: %d %s", code, body)
	}
	if _, body := do(t, h, http.MethodGet, "/getLastSentMessage", ""); strings.TrimSpace(body) != `{"result":"out"}` {
		t.Fatalf("sent: %s", body)
	}
	if _, body := do(t, h, http.MethodGet, "/getLastCircuit", ""); strings.TrimSpace(body) != `{"result":[0,0,0]}` {
		t.Fatalf("circuit: %s", body)
	}
	if len(rt.ports) != 1 || rt.ports[0] != ports.Router(0) {
		t.Fatalf("entry delivery: %v", rt.ports)
	}
}

func TestUser_SendMessage_EmptyDirectory(t *testing.T) {
	svc := user.New(user.Config{ID: 0, Ports: ports}, registry.New(), &recordingTransport{}, nil)
	h := server.NewUser("", svc).Handler()
	if code, _ := do(t, h, http.MethodPost, "/sendMessage", `{"message":"x","destinationUserId":1}`); code != http.StatusInternalServerError {
		t.Fatalf("code %d", code)
	}
}

type failingDirectory struct{}

func (failingDirectory) RegisterNode(context.Context, domain.Node) error {
	return domain.ErrTransport
}

func (failingDirectory) ListNodes(context.Context) ([]domain.Node, error) {
	return nil, domain.ErrTransport
}

func listenAddress(t *testing.T) string {
	t.Helper()
	port, err := freeport.GetFreePort()
	if err != nil {
		t.Fatalf("GetFreePort: %v", err)
	}
	return net.JoinHostPort("localhost", strconv.Itoa(port))
}

func TestRouter_Run_RegistrationFailureStops(t *testing.T) {
	svc, err := router.New(1, ports.Fallback, &recordingTransport{}, nil)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	s := server.NewRouter(server.RouterConfig{
		ListenAddress:    listenAddress(t),
		RegisterAttempts: 3,
		RegisterInterval: time.Millisecond,
	}, svc, failingDirectory{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Run(ctx); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("want ErrTransport, got %v", err)
	}
}

func TestRouter_Run_Registers(t *testing.T) {
	svc, err := router.New(1, ports.Fallback, &recordingTransport{}, nil)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	dir := registry.New()
	s := server.NewRouter(server.RouterConfig{ListenAddress: listenAddress(t)}, svc, dir)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	select {
	case <-s.Ready():
	case err := <-errCh:
		t.Fatalf("Run: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("router never became ready")
	}
	if dir.Len() != 1 {
		t.Fatalf("registry has %d nodes", dir.Len())
	}

	// Running twice is refused.
	if err := s.Run(ctx); err == nil {
		t.Fatal("second Run succeeded")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run exit: %v", err)
	}
}
