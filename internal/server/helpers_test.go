package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/blackjack"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

type testServer struct {
	*httptest.Server
	server  *Server
	service *GameService
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := testLogger()
	srv := NewServer(logger)
	service := NewGameService(srv, logger, quartz.NewReal(), ServiceOptions{Seed: 42})
	srv.SetGameService(service)

	ts := &testServer{
		Server:  httptest.NewServer(srv.Handler()),
		server:  srv,
		service: service,
	}
	t.Cleanup(func() {
		_ = srv.Stop()
		service.Close()
		ts.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := WaitForHealthy(ctx, ts.URL); err != nil {
		t.Fatalf("server not healthy: %v", err)
	}
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

// dial connects and consumes the connected greeting.
func (ts *testServer) dial(t *testing.T) *wsClient {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL(), nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	c := &wsClient{t: t, conn: conn}

	var hello ConnectedData
	c.decode(c.expect(MessageTypeConnected), &hello)
	if hello.ConnectionID == "" {
		t.Fatal("connected message carried no connection id")
	}
	c.id = hello.ConnectionID
	return c
}

func (c *wsClient) send(msgType MessageType, data interface{}) {
	c.t.Helper()
	msg, err := NewMessage(msgType, data)
	if err != nil {
		c.t.Fatalf("failed to build message: %v", err)
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.t.Fatalf("failed to send %s: %v", msgType, err)
	}
}

func (c *wsClient) read() *Message {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var msg Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		c.t.Fatalf("failed to read message: %v", err)
	}
	return &msg
}

func (c *wsClient) expect(msgType MessageType) *Message {
	c.t.Helper()
	msg := c.read()
	if msg.Type != msgType {
		c.t.Fatalf("expected %s, got %s: %s", msgType, msg.Type, msg.Data)
	}
	return msg
}

func (c *wsClient) decode(msg *Message, v interface{}) {
	c.t.Helper()
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.t.Fatalf("failed to decode %s: %v", msg.Type, err)
	}
}

func (c *wsClient) expectState() blackjack.State {
	c.t.Helper()
	var state blackjack.State
	c.decode(c.expect(MessageTypeGameUpdated), &state)
	return state
}

// waitForState reads game updates until one satisfies match.
func (c *wsClient) waitForState(match func(blackjack.State) bool) blackjack.State {
	c.t.Helper()
	for i := 0; i < 50; i++ {
		msg := c.read()
		if msg.Type != MessageTypeGameUpdated {
			continue
		}
		var state blackjack.State
		c.decode(msg, &state)
		if match(state) {
			return state
		}
	}
	c.t.Fatal("no matching game update")
	return blackjack.State{}
}

func (c *wsClient) expectError(code string) ErrorData {
	c.t.Helper()
	var data ErrorData
	c.decode(c.expect(MessageTypeError), &data)
	if data.Code != code {
		c.t.Fatalf("expected error code %s, got %s (%s)", code, data.Code, data.Message)
	}
	return data
}

// recordingBroadcaster captures messages per connection.
type recordingBroadcaster struct {
	mu   sync.Mutex
	sent map[string][]*Message
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{sent: make(map[string][]*Message)}
}

func (b *recordingBroadcaster) SendToConnection(connID string, msg *Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent[connID] = append(b.sent[connID], msg)
	return nil
}

func (b *recordingBroadcaster) messages(connID string) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Message(nil), b.sent[connID]...)
}
