package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ChrisKp1710/gamecall/internal/config"
	"github.com/ChrisKp1710/gamecall/internal/imtypes"
	"github.com/ChrisKp1710/gamecall/internal/metrics"
)

// State is a session lifecycle stage.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrSessionStarted is returned when Run is called on a session that already ran.
var ErrSessionStarted = errors.New("websocket session already started")

// PresenceFunc observes a user becoming reachable (online=true) or losing its current
// connection (online=false). A superseded session does not report offline.
type PresenceFunc func(ctx context.Context, user uuid.UUID, online bool)

// Session 是一个已认证用户的 WebSocket 连接。
type Session struct {
	userID     uuid.UUID
	conn       *websocket.Conn
	registry   *Registry
	cfg        config.WebSocketConfig
	logger     *zap.Logger
	limiter    *rate.Limiter
	onPresence PresenceFunc

	state        atomic.Int32
	outbox       *Outbox
	teardownOnce sync.Once
}

// NewSession wraps an upgraded connection owned by userID. The identity must already be verified.
func NewSession(userID uuid.UUID, conn *websocket.Conn, registry *Registry, cfg config.WebSocketConfig, logger *zap.Logger) *Session {
	s := &Session{
		userID:   userID,
		conn:     conn,
		registry: registry,
		cfg:      cfg,
		logger:   logger.Named("session").With(zap.Stringer("user_id", userID)),
	}
	if cfg.InboundRatePerSecond > 0 {
		burst := cfg.InboundBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.InboundRatePerSecond), burst)
	}
	s.state.Store(int32(StateAuthenticated))
	return s
}

// OnPresence sets the presence observer. It must be called before Run.
func (s *Session) OnPresence(fn PresenceFunc) {
	s.onPresence = fn
}

func (s *Session) UserID() uuid.UUID { return s.userID }

func (s *Session) State() State { return State(s.state.Load()) }

// Run serves the connection until the client leaves, a write fails, the session is
// superseded, or ctx is cancelled. It always closes the connection before returning.
func (s *Session) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateAuthenticated), int32(StateActive)) {
		return ErrSessionStarted
	}

	s.outbox = NewOutbox(s.cfg.SendBufferSize)
	s.registry.Register(s.userID, s.outbox)
	if s.onPresence != nil {
		s.onPresence(ctx, s.userID, true)
	}
	s.registry.Broadcast(imtypes.UserOnline{UserID: s.userID})
	s.logger.Info("session active")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		s.writeLoop(runCtx)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		s.readLoop()
	}()

	<-runCtx.Done()
	// unblocks a reader parked in ReadMessage
	_ = s.conn.Close()
	wg.Wait()

	s.teardown(context.WithoutCancel(ctx))
	return nil
}

func (s *Session) teardown(ctx context.Context) {
	s.teardownOnce.Do(func() {
		s.state.Store(int32(StateClosing))

		current := s.registry.Unregister(s.userID, s.outbox)
		s.outbox.Close()
		s.registry.Broadcast(imtypes.UserOffline{UserID: s.userID})

		outcome := "superseded"
		if current {
			outcome = "closed"
			if s.onPresence != nil {
				s.onPresence(ctx, s.userID, false)
			}
		}
		metrics.SessionsTotal.WithLabelValues(outcome).Inc()

		s.state.Store(int32(StateClosed))
		s.logger.Info("session closed", zap.String("outcome", outcome))
	})
}

func (s *Session) readLoop() {
	if s.cfg.MaxMessageSizeBytes > 0 {
		s.conn.SetReadLimit(int64(s.cfg.MaxMessageSizeBytes))
	}
	if pongWait := s.cfg.PongWait(); pongWait > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Debug("read ended", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			metrics.InboundFrames.WithLabelValues("binary").Inc()
			continue
		}
		if s.limiter != nil && !s.limiter.Allow() {
			metrics.InboundFrames.WithLabelValues("rate_limited").Inc()
			continue
		}
		s.handleFrame(data)
	}
}

func (s *Session) handleFrame(data []byte) {
	ev, err := imtypes.Decode(data)
	if err != nil {
		metrics.InboundFrames.WithLabelValues("malformed").Inc()
		s.logger.Debug("ignoring malformed frame", zap.Error(err))
		return
	}

	switch cmd := ev.(type) {
	case imtypes.Ping:
		metrics.InboundFrames.WithLabelValues(string(imtypes.TypePing)).Inc()
		s.registry.SendTo(s.userID, imtypes.Pong{})
	case imtypes.WebRTCSignal:
		metrics.InboundFrames.WithLabelValues(string(imtypes.TypeWebRTCSignal)).Inc()
		s.relaySignal(cmd)
	case imtypes.Unknown:
		metrics.InboundFrames.WithLabelValues("unknown").Inc()
		s.logger.Debug("ignoring unknown command", zap.String("type", string(cmd.Type)))
	default:
		// server-to-client events sent back by a client
		metrics.InboundFrames.WithLabelValues("ignored").Inc()
	}
}

// relaySignal forwards a signaling payload with the sender set to the session owner.
// Delivery is best effort and requires no friendship.
func (s *Session) relaySignal(sig imtypes.WebRTCSignal) {
	sig.FromUserID = s.userID
	s.registry.SendTo(sig.ToUserID, sig)
}

func (s *Session) writeLoop(ctx context.Context) {
	var ping <-chan time.Time
	if period := s.cfg.PingPeriod(); period > 0 {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.outbox.Done():
			s.writeClose(websocket.CloseNormalClosure, "session replaced by a newer connection")
			return
		case data := <-s.outbox.C():
			s.setWriteDeadline()
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ping:
			s.setWriteDeadline()
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Session) setWriteDeadline() {
	var deadline time.Time
	if wait := s.cfg.WriteWait(); wait > 0 {
		deadline = time.Now().Add(wait)
	}
	_ = s.conn.SetWriteDeadline(deadline)
}

func (s *Session) writeClose(code int, text string) {
	wait := s.cfg.WriteWait()
	if wait <= 0 {
		wait = time.Second
	}
	msg := websocket.FormatCloseMessage(code, text)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wait))
}
