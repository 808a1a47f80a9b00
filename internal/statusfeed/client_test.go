package statusfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedServer accepts websocket connections and hands them to the test.
type feedServer struct {
	srv    *httptest.Server
	mu     sync.Mutex
	dials  int
	connCh chan *websocket.Conn
}

func newFeedServer(t *testing.T) *feedServer {
	fs := &feedServer{connCh: make(chan *websocket.Conn, 4)}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow() //nolint:errcheck

		fs.mu.Lock()
		fs.dials++
		fs.mu.Unlock()
		fs.connCh <- conn

		// Hold the handler open until the socket dies so httptest can
		// drain cleanly.
		conn.Read(context.Background()) //nolint:errcheck
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *feedServer) dialCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.dials
}

func (fs *feedServer) nextConn(t *testing.T) *websocket.Conn {
	select {
	case conn := <-fs.connCh:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed connection")
		return nil
	}
}

func TestClient_ReconnectsExactlyOnceAfterAbruptClosure(t *testing.T) {
	fs := newFeedServer(t)
	const delay = 200 * time.Millisecond

	client := NewClient(fs.srv.URL, delay, zerolog.Nop())
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))
	require.True(t, client.IsConnected())
	first := fs.nextConn(t)

	// Abrupt closure flips the observable state to disconnected.
	first.CloseNow() //nolint:errcheck
	require.Eventually(t, func() bool { return !client.IsConnected() }, time.Second, 10*time.Millisecond)
	assert.Error(t, client.LastErr())

	// No attempt before the fixed delay has elapsed.
	time.Sleep(delay / 2)
	assert.Equal(t, 1, fs.dialCount())

	// Exactly one attempt after it.
	fs.nextConn(t)
	require.Eventually(t, func() bool { return client.IsConnected() }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, fs.dialCount())
}

func TestClient_DeliversFramesAndDropsMalformed(t *testing.T) {
	fs := newFeedServer(t)

	client := NewClient(fs.srv.URL, time.Second, zerolog.Nop())
	defer client.Close()
	require.NoError(t, client.Connect(context.Background()))
	conn := fs.nextConn(t)

	ctx := context.Background()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{malformed")))
	require.NoError(t, wsjson.Write(ctx, conn, Frame{Type: FrameSystemUpdate}))

	select {
	case frame := <-client.Frames():
		assert.Equal(t, FrameSystemUpdate, frame.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("expected the well-formed frame to be delivered")
	}
	assert.Len(t, client.Frames(), 0, "malformed frame must be dropped silently")
}

func TestClient_ManualConnectClosesExistingSocket(t *testing.T) {
	fs := newFeedServer(t)

	client := NewClient(fs.srv.URL, time.Second, zerolog.Nop())
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))
	first := fs.nextConn(t)

	require.NoError(t, client.Connect(context.Background()))
	fs.nextConn(t)
	assert.Equal(t, 2, fs.dialCount())
	assert.True(t, client.IsConnected())

	// The first socket must be dead: a read fails once the client has
	// replaced it.
	_, _, err := first.Read(context.Background())
	assert.Error(t, err)
}

func TestClient_CloseCancelsPendingReconnect(t *testing.T) {
	fs := newFeedServer(t)
	const delay = 150 * time.Millisecond

	client := NewClient(fs.srv.URL, delay, zerolog.Nop())
	require.NoError(t, client.Connect(context.Background()))
	conn := fs.nextConn(t)

	conn.CloseNow() //nolint:errcheck
	require.Eventually(t, func() bool { return !client.IsConnected() }, time.Second, 10*time.Millisecond)

	// Closing while the reconnect timer is pending clears it.
	client.Close()
	time.Sleep(2 * delay)
	assert.Equal(t, 1, fs.dialCount())
	assert.Equal(t, StateDisconnected, client.State())
}
