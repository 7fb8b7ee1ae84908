package push

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsync/internal/domain"
)

var upgrader = websocket.Upgrader{}

// testServer upgrades every request and hands the connection to serve.
func testServer(t *testing.T, serve func(ws *websocket.Conn, r *http.Request)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		serve(ws, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testSettings() *Settings {
	return &Settings{
		HandshakeTimeout: time.Second,
		PingInterval:     50 * time.Millisecond,
		ReadTimeout:      time.Second,
		WriteTimeout:     time.Second,
		BufferSize:       4,
	}
}

// drainUntilClosed blocks the server side until the client goes away.
func drainUntilClosed(ws *websocket.Conn) {
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func receive(t *testing.T, ch <-chan domain.Message) domain.Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "stream closed early")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return domain.Message{}
}

func TestChannel_DeliversInOrderAndDropsBadFrames(t *testing.T) {
	url := testServer(t, func(ws *websocket.Conn, r *http.Request) {
		frames := []string{
			`{"type":"eventCreated","data":{"_id":"1","title":"Kickoff"}}`,
			`garbage`,
			`{"type":"typing","data":{}}`,
			`{"type":"eventCreated","data":{"title":"missing id"}}`,
			`{"type":"attendeeUpdated","data":{"_id":"1","attendees":[{"_id":"u9","name":"Ann"}]}}`,
			`{"type":"eventUpdated","data":{"_id":"1","title":"Kickoff v2"}}`,
			`{"type":"eventDeleted","data":"1"}`,
		}
		for _, f := range frames {
			_ = ws.WriteMessage(websocket.TextMessage, []byte(f))
		}
		drainUntilClosed(ws)
	})

	ch := NewChannel(url, nil, testSettings(), nil)
	stream, err := ch.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelConnected, ch.State())

	var kinds []domain.MessageKind
	for i := 0; i < 4; i++ {
		kinds = append(kinds, receive(t, stream).Kind)
	}
	assert.Equal(t, []domain.MessageKind{
		domain.MessageCreated,
		domain.MessageAttendeesChanged,
		domain.MessageUpdated,
		domain.MessageDeleted,
	}, kinds)

	require.NoError(t, ch.Close())
	assert.Equal(t, domain.ChannelDisconnected, ch.State())
	_, ok := <-stream
	assert.False(t, ok, "stream must be closed after Close returns")
}

func TestChannel_OpenTwiceFailsFast(t *testing.T) {
	url := testServer(t, func(ws *websocket.Conn, r *http.Request) { drainUntilClosed(ws) })

	ch := NewChannel(url, nil, testSettings(), nil)
	_, err := ch.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	_, err = ch.Open(context.Background())
	assert.True(t, errors.Is(err, domain.ErrChannelActive))
}

func TestChannel_ReopenAfterClose(t *testing.T) {
	url := testServer(t, func(ws *websocket.Conn, r *http.Request) { drainUntilClosed(ws) })

	ch := NewChannel(url, nil, testSettings(), nil)
	_, err := ch.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	_, err = ch.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, ch.Close())
}

func TestChannel_SendsHandshakeHeaders(t *testing.T) {
	got := make(chan http.Header, 1)
	url := testServer(t, func(ws *websocket.Conn, r *http.Request) {
		got <- r.Header.Clone()
		drainUntilClosed(ws)
	})

	header := http.Header{}
	header.Set("Authorization", "Bearer tok")
	header.Set("X-Client-ID", "client-1")
	ch := NewChannel(url, header, testSettings(), nil)
	_, err := ch.Open(context.Background())
	require.NoError(t, err)
	defer ch.Close()

	select {
	case h := <-got:
		assert.Equal(t, "Bearer tok", h.Get("Authorization"))
		assert.Equal(t, "client-1", h.Get("X-Client-ID"))
	case <-time.After(2 * time.Second):
		t.Fatal("no handshake")
	}
}

func TestChannel_ServerDropDisconnects(t *testing.T) {
	url := testServer(t, func(ws *websocket.Conn, r *http.Request) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"eventDeleted","data":"1"}`))
		// returning closes the socket
	})

	ch := NewChannel(url, nil, testSettings(), nil)
	stream, err := ch.Open(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.MessageDeleted, receive(t, stream).Kind)
	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after server drop")
	}
	require.Eventually(t, func() bool { return ch.State() == domain.ChannelDisconnected }, 2*time.Second, 10*time.Millisecond)
}

func TestChannel_KeepsAliveWithPings(t *testing.T) {
	url := testServer(t, func(ws *websocket.Conn, r *http.Request) { drainUntilClosed(ws) })

	settings := testSettings()
	settings.ReadTimeout = 200 * time.Millisecond
	ch := NewChannel(url, nil, settings, nil)
	_, err := ch.Open(context.Background())
	require.NoError(t, err)
	defer ch.Close()

	// pongs (answered by the server's default ping handler) keep the read deadline moving
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, domain.ChannelConnected, ch.State())
}

func TestChannel_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	ch := NewChannel("ws"+strings.TrimPrefix(srv.URL, "http"), nil, testSettings(), nil)
	_, err := ch.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, domain.ChannelDisconnected, ch.State())
}
