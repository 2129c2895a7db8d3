package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/config"
	"github.com/ChrisKp1710/gamecall/internal/imtypes"
)

type hubFixture struct {
	registry *Registry
	server   *httptest.Server
	runErrs  chan error
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		WriteWaitSeconds:    5,
		MaxMessageSizeBytes: 64 * 1024,
		SendBufferSize:      32,
	}
}

// newHubFixture serves sessions whose identity is taken from the "uid" query parameter.
func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	f := &hubFixture{
		registry: NewRegistry(zap.NewNop()),
		runErrs:  make(chan error, 16),
	}
	ctx, cancel := context.WithCancel(context.Background())
	upgrader := NewUpgrader()

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("uid"))
		if err != nil {
			http.Error(w, "bad uid", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s := NewSession(userID, conn, f.registry, testWSConfig(), zap.NewNop())
		f.runErrs <- s.Run(ctx)
		// a finished session cannot be started again
		f.runErrs <- s.Run(ctx)
	}))
	t.Cleanup(func() {
		cancel()
		f.server.Close()
	})
	return f
}

func (f *hubFixture) dial(t *testing.T, user uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?uid=" + user.String()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	// the session announces itself to everyone, including its own connection
	expectEvent(t, conn, imtypes.UserOnline{UserID: user})
	return conn
}

// nextEvent reads one frame and decodes it.
func nextEvent(t *testing.T, conn *websocket.Conn) imtypes.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)
	ev, err := imtypes.Decode(data)
	require.NoError(t, err, string(data))
	return ev
}

// expectEvent skips frames until want arrives.
func expectEvent(t *testing.T, conn *websocket.Conn, want imtypes.Event) {
	t.Helper()
	for i := 0; i < 20; i++ {
		if ev := nextEvent(t, conn); assert.ObjectsAreEqual(want, ev) {
			return
		}
	}
	t.Fatalf("did not receive %#v", want)
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func TestSession_PingPong(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, uuid.New())

	send(t, conn, `{"type":"ping"}`)
	assert.Equal(t, imtypes.Pong{}, nextEvent(t, conn))
}

func TestSession_IgnoresBadFrames(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, uuid.New())

	send(t, conn, `not json`)
	send(t, conn, `{"type":"teleport","x":1}`)
	send(t, conn, `{"type":"user_online","user_id":"`+uuid.NewString()+`"}`)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x1, 0x2}))
	send(t, conn, `{"type":"ping"}`)

	assert.Equal(t, imtypes.Pong{}, nextEvent(t, conn), "session keeps serving after ignored frames")
}

func TestSession_PresenceLifecycle(t *testing.T) {
	f := newHubFixture(t)
	alice, bob := uuid.New(), uuid.New()
	aliceConn := f.dial(t, alice)
	bobConn := f.dial(t, bob)

	expectEvent(t, aliceConn, imtypes.UserOnline{UserID: bob})
	assert.True(t, f.registry.IsOnline(bob))

	require.NoError(t, bobConn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))

	assert.Equal(t, imtypes.UserOffline{UserID: bob}, nextEvent(t, aliceConn))
	assert.NoError(t, <-f.runErrs)
	assert.ErrorIs(t, <-f.runErrs, ErrSessionStarted)
	assert.False(t, f.registry.IsOnline(bob))

	// exactly one offline event per lifecycle
	send(t, aliceConn, `{"type":"ping"}`)
	assert.Equal(t, imtypes.Pong{}, nextEvent(t, aliceConn))
}

func TestSession_RelaysSignalWithServerSender(t *testing.T) {
	f := newHubFixture(t)
	alice, bob := uuid.New(), uuid.New()
	aliceConn := f.dial(t, alice)
	bobConn := f.dial(t, bob)

	send(t, aliceConn, `{"type":"webrtc_signal","from_user_id":"`+uuid.NewString()+`","to_user_id":"`+bob.String()+`","signal":{"type":"offer","sdp":"v=0"}}`)

	var got imtypes.WebRTCSignal
	for i := 0; i < 5; i++ {
		if sig, ok := nextEvent(t, bobConn).(imtypes.WebRTCSignal); ok {
			got = sig
			break
		}
	}
	assert.Equal(t, alice, got.FromUserID)
	assert.Equal(t, bob, got.ToUserID)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(got.Signal))
}

func TestSession_SignalToOfflineUserIsDropped(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, uuid.New())

	send(t, conn, `{"type":"webrtc_signal","to_user_id":"`+uuid.NewString()+`","signal":{}}`)
	send(t, conn, `{"type":"ping"}`)
	assert.Equal(t, imtypes.Pong{}, nextEvent(t, conn))
}

func TestSession_SecondConnectionSupersedesFirst(t *testing.T) {
	f := newHubFixture(t)
	alice, bob := uuid.New(), uuid.New()
	bobConn := f.dial(t, bob)

	first := f.dial(t, alice)
	expectEvent(t, bobConn, imtypes.UserOnline{UserID: alice})

	second := f.dial(t, alice)

	// the first connection is closed by the server
	require.NoError(t, first.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	expectEvent(t, bobConn, imtypes.UserOffline{UserID: alice})
	assert.NoError(t, <-f.runErrs)
	assert.True(t, f.registry.IsOnline(alice), "successor stays registered")

	send(t, second, `{"type":"ping"}`)
	expectEvent(t, second, imtypes.Pong{})
}

func TestSession_ContextCancelEndsSession(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	user := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := NewUpgrader().Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s := NewSession(user, conn, registry, testWSConfig(), zap.NewNop())
		_ = s.Run(ctx)
		assert.Equal(t, StateClosed, s.State())
		close(done)
	}))
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer conn.Close()
	expectEvent(t, conn, imtypes.UserOnline{UserID: user})

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("session did not stop after cancellation")
	}
	assert.False(t, registry.IsOnline(user))
}
