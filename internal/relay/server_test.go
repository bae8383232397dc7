package relay

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestRelay(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New()
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func waitCount(t *testing.T, s *Server, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Count() == n }, 2*time.Second, 5*time.Millisecond)
}

func read(t *testing.T, ws *websocket.Conn) string {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestRelay_ForwardsToOthersOnly(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	s, ts := newTestRelay(t)

	a := dial(t, ts)
	b := dial(t, ts)
	waitCount(t, s, 2)

	offer := `{"type":"offer","sdp":"v=0"}`
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(offer)))
	assert.Equal(t, offer, read(t, b))

	answer := `{"type":"answer","sdp":"v=0"}`
	require.NoError(t, b.WriteMessage(websocket.TextMessage, []byte(answer)))
	assert.Equal(t, answer, read(t, a), "sender never receives its own message")

	s.Close()
	ts.Close()
}

func TestRelay_BroadcastsToEveryPeer(t *testing.T) {
	s, ts := newTestRelay(t)

	a := dial(t, ts)
	b := dial(t, ts)
	c := dial(t, ts)
	waitCount(t, s, 3)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("hello")))
	assert.Equal(t, "hello", read(t, b))
	assert.Equal(t, "hello", read(t, c))
}

func TestRelay_AnnouncesDisconnect(t *testing.T) {
	s, ts := newTestRelay(t)

	a := dial(t, ts)
	b := dial(t, ts)
	waitCount(t, s, 2)

	require.NoError(t, a.Close())

	assert.JSONEq(t, `{"type":"disconnect"}`, read(t, b))
	waitCount(t, s, 1)
}

func TestRelay_IgnoresBinaryMessages(t *testing.T) {
	s, ts := newTestRelay(t)

	a := dial(t, ts)
	b := dial(t, ts)
	waitCount(t, s, 2)

	require.NoError(t, a.WriteMessage(websocket.BinaryMessage, []byte{0x01}))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("text")))
	assert.Equal(t, "text", read(t, b))
}

func TestRelay_CloseDropsConnectionsAndRefusesNew(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	s := New()
	ts := httptest.NewServer(s)
	defer ts.Close()

	a := dial(t, ts)
	waitCount(t, s, 1)

	s.Close()
	assert.Zero(t, s.Count())

	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := a.ReadMessage()
	assert.Error(t, err)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
	resp.Body.Close()

	a.Close()
	ts.Close()
}
