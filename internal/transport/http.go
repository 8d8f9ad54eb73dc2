package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/juju/loggo/v2"

	"onionnet/internal/domain"
)

var log = loggo.GetLogger("onionnet.transport")

// HTTP delivers layers and queries the registry over plain HTTP.
type HTTP struct {
	Host         string
	RegistryPort int
	HTTP         *http.Client
}

// NewHTTP returns a client for participants on host whose registry listens
// on registryPort.
func NewHTTP(host string, registryPort int) *HTTP {
	return &HTTP{Host: host, RegistryPort: registryPort, HTTP: http.DefaultClient}
}

func (c *HTTP) url(port int, path string) string {
	return "http://" + c.Host + ":" + strconv.Itoa(port) + path
}

// Deliver posts message to the participant listening on port.
func (c *HTTP) Deliver(ctx context.Context, port int, message string) error {
	log.Debugf("deliver %v to %v", humanize.Bytes(uint64(len(message))), port)
	return c.post(ctx, port, "/message", domain.MessageRequest{Message: message})
}

// RegisterNode announces n to the registry.
func (c *HTTP) RegisterNode(ctx context.Context, n domain.Node) error {
	return c.post(ctx, c.RegistryPort, "/registerNode",
		domain.RegisterNodeRequest{NodeID: n.NodeID, PubKey: n.PubKey})
}

// ListNodes fetches the registry snapshot.
func (c *HTTP) ListNodes(ctx context.Context) ([]domain.Node, error) {
	var out domain.NodeRegistryResponse
	if err := c.getJSON(ctx, c.RegistryPort, "/getNodeRegistry", &out); err != nil {
		return nil, err
	}
	return out.Nodes, nil
}

// SendMessage asks the user listening on port to send message to user to.
func (c *HTTP) SendMessage(ctx context.Context, port int, message string, to domain.UserID) error {
	return c.post(ctx, port, "/sendMessage",
		domain.SendMessageRequest{Message: message, DestinationUserID: to})
}

// Status returns the body of GET /status, "live" for a running participant.
func (c *HTTP) Status(ctx context.Context, port int) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, port, "/status", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read status: %v", domain.ErrTransport, err)
	}
	return string(b), nil
}

// GetResult decodes the {"result": ...} envelope served at path. A JSON null
// result yields nil.
func GetResult[T any](ctx context.Context, c *HTTP, port int, path string) (*T, error) {
	var out domain.ResultResponse[T]
	if err := c.getJSON(ctx, port, path, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (c *HTTP) do(ctx context.Context, method string, port int, path string, body io.Reader) (*http.Response, error) {
	u := c.url(port, path)
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s: %s: %s", domain.ErrTransport,
			method, u, resp.Status, bytes.TrimSpace(msg))
	}
	return resp, nil
}

func (c *HTTP) post(ctx context.Context, port int, path string, in any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrTransport, path, err)
	}
	resp, err := c.do(ctx, http.MethodPost, port, path, buf)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *HTTP) getJSON(ctx context.Context, port int, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, port, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrTransport, path, err)
	}
	return nil
}

var (
	_ domain.Transport = (*HTTP)(nil)
	_ domain.Directory = (*HTTP)(nil)
)
