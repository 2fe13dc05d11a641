package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type testServer struct {
	*httptest.Server
	requests chan *http.Request
	conns    chan *websocket.Conn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	upgrader := websocket.Upgrader{}
	s := &testServer{
		requests: make(chan *http.Request, 1),
		conns:    make(chan *websocket.Conn, 1),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests <- r
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *testServer) acceptedConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for websocket connection")
		return nil
	}
}

func TestRealtimeURLForOpenAI(t *testing.T) {
	target, err := realtimeURL(ConnectParams{Endpoint: "https://api.openai.com", Deployment: "gpt-4o-realtime-preview"}, DefaultAzureAPIVersion)
	if err != nil {
		t.Fatalf("expected url to build, got %v", err)
	}
	if got, want := target.String(), "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview"; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestRealtimeURLForAzure(t *testing.T) {
	target, err := realtimeURL(ConnectParams{Endpoint: "https://example.openai.azure.com/", Deployment: "rt", Azure: true}, DefaultAzureAPIVersion)
	if err != nil {
		t.Fatalf("expected url to build, got %v", err)
	}
	if target.Scheme != "wss" || target.Host != "example.openai.azure.com" || target.Path != "/openai/realtime" {
		t.Fatalf("unexpected azure url %s", target)
	}
	if target.Query().Get("deployment") != "rt" || target.Query().Get("api-version") != DefaultAzureAPIVersion {
		t.Fatalf("unexpected azure query %s", target.RawQuery)
	}
}

func TestRealtimeURLRejectsBadEndpoints(t *testing.T) {
	for _, endpoint := range []string{"ftp://example.com", "https://"} {
		if _, err := realtimeURL(ConnectParams{Endpoint: endpoint, Deployment: "m"}, DefaultAzureAPIVersion); err == nil {
			t.Fatalf("expected %q to be rejected", endpoint)
		}
	}
}

func TestDialSendsProviderCredentials(t *testing.T) {
	server := newTestServer(t)

	testCases := []struct {
		name   string
		params ConnectParams
		check  func(t *testing.T, r *http.Request)
	}{
		{
			name:   "openai",
			params: ConnectParams{Endpoint: server.URL, Credential: "sk-test", Deployment: "model-x"},
			check: func(t *testing.T, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer sk-test" || r.Header.Get("OpenAI-Beta") != "realtime=v1" {
					t.Fatalf("unexpected openai headers %v", r.Header)
				}
				if r.URL.Path != "/v1/realtime" || r.URL.Query().Get("model") != "model-x" {
					t.Fatalf("unexpected openai request %s", r.URL)
				}
			},
		},
		{
			name:   "azure",
			params: ConnectParams{Endpoint: server.URL, Credential: "azure-key", Deployment: "dep", Azure: true},
			check: func(t *testing.T, r *http.Request) {
				if r.Header.Get("api-key") != "azure-key" || r.Header.Get("Authorization") != "" {
					t.Fatalf("unexpected azure headers %v", r.Header)
				}
				if r.URL.Path != "/openai/realtime" || r.URL.Query().Get("deployment") != "dep" {
					t.Fatalf("unexpected azure request %s", r.URL)
				}
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			conn, err := NewWebsocketDialer().Dial(context.Background(), testCase.params)
			if err != nil {
				t.Fatalf("expected dial to succeed, got %v", err)
			}
			defer conn.Close()
			server.acceptedConn(t)

			testCase.check(t, <-server.requests)
		})
	}
}

func TestDialFailsWhenServerRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewWebsocketDialer().Dial(context.Background(), ConnectParams{Endpoint: server.URL, Credential: "x", Deployment: "m"})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected dial to fail with status, got %v", err)
	}
}

func TestConnSendAndReceive(t *testing.T) {
	server := newTestServer(t)

	conn, err := NewWebsocketDialer().Dial(context.Background(), ConnectParams{Endpoint: server.URL, Credential: "k", Deployment: "m"})
	if err != nil {
		t.Fatalf("expected dial to succeed, got %v", err)
	}
	defer conn.Close()
	remote := server.acceptedConn(t)

	if err := conn.Send(context.Background(), map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}
	var received map[string]string
	if err := remote.ReadJSON(&received); err != nil || received["type"] != "ping" {
		t.Fatalf("expected server to read ping, got %v (%v)", received, err)
	}

	remote.WriteMessage(websocket.BinaryMessage, []byte{1, 2})
	remote.WriteMessage(websocket.TextMessage, []byte(`{"type":"first"}`))
	remote.WriteMessage(websocket.TextMessage, []byte(`{"type":"second"}`))
	remote.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	var messages []string
	for msg, err := range conn.Messages() {
		if err != nil {
			t.Fatalf("expected normal closure to end without error, got %v", err)
		}
		messages = append(messages, string(msg))
	}

	if len(messages) != 2 || messages[0] != `{"type":"first"}` || messages[1] != `{"type":"second"}` {
		t.Fatalf("expected text messages in order, got %v", messages)
	}
}

func TestConnMessagesReportsAbruptClosure(t *testing.T) {
	server := newTestServer(t)

	conn, err := NewWebsocketDialer().Dial(context.Background(), ConnectParams{Endpoint: server.URL, Credential: "k", Deployment: "m"})
	if err != nil {
		t.Fatalf("expected dial to succeed, got %v", err)
	}
	defer conn.Close()
	server.acceptedConn(t).UnderlyingConn().Close()

	var gotErr error
	for _, err := range conn.Messages() {
		gotErr = err
	}
	if !errors.Is(gotErr, ErrClosedUnexpectedly) {
		t.Fatalf("expected unexpected closure error, got %v", gotErr)
	}
}

func TestConnLocalCloseEndsMessagesQuietly(t *testing.T) {
	server := newTestServer(t)

	conn, err := NewWebsocketDialer().Dial(context.Background(), ConnectParams{Endpoint: server.URL, Credential: "k", Deployment: "m"})
	if err != nil {
		t.Fatalf("expected dial to succeed, got %v", err)
	}
	server.acceptedConn(t)

	done := make(chan error, 1)
	go func() {
		var gotErr error
		for _, err := range conn.Messages() {
			gotErr = err
		}
		done <- gotErr
	}()

	if err := conn.Close(); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("expected repeated close to succeed, got %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected local close to end quietly, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for messages to end")
	}

	if err := conn.Send(context.Background(), "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected send after close to fail with ErrClosed, got %v", err)
	}
}
