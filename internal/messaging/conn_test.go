package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func newTestServer(t *testing.T, callbacksFor func() Callbacks) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		Accept(ws, callbacksFor())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConnectSendRoundTrip(t *testing.T) {
	received := make(chan string, 1)

	srv := newTestServer(t, func() Callbacks {
		return Callbacks{
			OnMessage: func(c *Conn, raw []byte) {
				received <- string(raw)
			},
		}
	})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, wsURL, TLSUndefined, Callbacks{})
	require.NoError(t, err)
	defer client.Close()

	req := NewTransJobReq(1, "en", "de", false, 5, []string{"hello .", "how are you ?"})
	require.NoError(t, client.Send(req))

	select {
	case raw := <-received:
		require.Contains(t, raw, `"job_id":1`)
		require.Contains(t, raw, `"trans_job_req"`)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSendOnClosedConnReturnsErrClosed(t *testing.T) {
	srv := newTestServer(t, func() Callbacks { return Callbacks{} })

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, wsURL, TLSUndefined, Callbacks{})
	require.NoError(t, err)

	require.NoError(t, client.Close())
	err = client.Send(NewTransJobReq(1, "en", "de", false, 0, nil))
	require.ErrorIs(t, err, ErrClosed)
}

func TestConnectSchemeTLSMismatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Connect(ctx, "wss://example.invalid/", TLSUndefined, Callbacks{})
	require.ErrorIs(t, err, ErrConfigMismatch)

	_, err = Connect(ctx, "ws://example.invalid/", TLSMozillaModern, Callbacks{})
	require.ErrorIs(t, err, ErrConfigMismatch)
}

// TestOnCloseInvokedOnPeerDisconnect proves the close-hook race is fixed
// structurally: OnClose is installed before Connect returns, so the server
// can tear the connection down immediately with no synchronization hack
// needed to let the client "catch up".
func TestOnCloseInvokedOnPeerDisconnect(t *testing.T) {
	closed := make(chan struct{})

	srv := newTestServer(t, func() Callbacks {
		return Callbacks{
			OnOpen: func(c *Conn) { c.Close() },
		}
	})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Connect(ctx, wsURL, TLSUndefined, Callbacks{
		OnClose: func(c *Conn) { close(closed) },
	})
	require.NoError(t, err)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose was not invoked")
	}
}
