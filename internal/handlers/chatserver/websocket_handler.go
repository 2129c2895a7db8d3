package chatserver

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/auth"
	"github.com/ChrisKp1710/gamecall/internal/config"
	"github.com/ChrisKp1710/gamecall/internal/middleware"
	"github.com/ChrisKp1710/gamecall/internal/services"
	ws "github.com/ChrisKp1710/gamecall/internal/websocket"
)

const presenceWriteTimeout = 5 * time.Second

// WebSocketHandler 负责处理 WebSocket 连接请求。
type WebSocketHandler struct {
	ctx           context.Context
	registry      *ws.Registry
	authenticator *auth.Authenticator
	userService   services.UserService
	cfg           config.WebSocketConfig
	upgrader      *gorillaws.Upgrader
	logger        *zap.Logger
}

// NewWebSocketHandler creates the /ws handler. Sessions it starts end when ctx is cancelled.
// userService may be nil, in which case the stored presence column is not maintained.
func NewWebSocketHandler(
	ctx context.Context,
	registry *ws.Registry,
	authenticator *auth.Authenticator,
	userService services.UserService,
	cfg config.WebSocketConfig,
	logger *zap.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		ctx:           ctx,
		registry:      registry,
		authenticator: authenticator,
		userService:   userService,
		cfg:           cfg,
		upgrader:      ws.NewUpgrader(),
		logger:        logger.Named("ws"),
	}
}

// ServeWS 认证请求，将其升级为 WebSocket 连接并运行会话直到连接结束。
// The token may come from the "token" query parameter or a Bearer header.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.BearerToken(r)
	}

	claims, err := h.authenticator.Authenticate(r.Context(), token)
	if err != nil {
		h.logger.Debug("websocket authentication failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	session := ws.NewSession(claims.UserID, conn, h.registry, h.cfg, h.logger)
	if h.userService != nil {
		session.OnPresence(h.storePresence)
	}
	if err := session.Run(h.ctx); err != nil {
		h.logger.Warn("session run", zap.Error(err))
	}
}

func (h *WebSocketHandler) storePresence(ctx context.Context, user uuid.UUID, online bool) {
	ctx, cancel := context.WithTimeout(ctx, presenceWriteTimeout)
	defer cancel()
	if err := h.userService.SetPresence(ctx, user, online); err != nil {
		h.logger.Warn("store presence", zap.Stringer("user_id", user), zap.Bool("online", online), zap.Error(err))
	}
}
