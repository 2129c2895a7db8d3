package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/auth"
	"github.com/ChrisKp1710/gamecall/internal/middleware"
)

// Routes bundles what NewRouter mounts. WebSocket and Metrics may be nil.
type Routes struct {
	Auth          *AuthHandler
	Friends       *FriendHandler
	Messages      *MessageHandler
	Authenticator *auth.Authenticator
	WebSocket     http.Handler
	WebSocketPath string
	Metrics       http.Handler
	Logger        *zap.Logger
}

// NewRouter 注册全部 REST 路由以及 WebSocket 升级入口。
func NewRouter(rt Routes) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestMetrics(rt.Logger))

	// 公开路由
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	if rt.Metrics != nil {
		r.Handle("/metrics", rt.Metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/auth/register", rt.Auth.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", rt.Auth.Login).Methods(http.MethodPost)

	// /ws 自行校验 token（支持 query 参数），不经过 AuthMiddleware
	if rt.WebSocket != nil {
		path := rt.WebSocketPath
		if path == "" {
			path = "/ws"
		}
		r.Handle(path, rt.WebSocket).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(middleware.AuthMiddleware(rt.Authenticator))

	api.HandleFunc("/auth/me", rt.Auth.Me).Methods(http.MethodGet)
	api.HandleFunc("/auth/logout", rt.Auth.Logout).Methods(http.MethodPost)

	api.HandleFunc("/friends", rt.Friends.ListFriends).Methods(http.MethodGet)
	api.HandleFunc("/friends/add", rt.Friends.AddFriend).Methods(http.MethodPost)
	api.HandleFunc("/friends/requests", rt.Friends.ListRequests).Methods(http.MethodGet)
	api.HandleFunc("/friends/accept", rt.Friends.Accept).Methods(http.MethodPost)
	api.HandleFunc("/friends/accept/{userID}", rt.Friends.Accept).Methods(http.MethodPost)
	api.HandleFunc("/friends/reject", rt.Friends.Reject).Methods(http.MethodPost)
	api.HandleFunc("/friends/reject/{userID}", rt.Friends.Reject).Methods(http.MethodPost)
	api.HandleFunc("/friends/remove", rt.Friends.Remove).Methods(http.MethodPost)
	api.HandleFunc("/friends/remove/{userID}", rt.Friends.Remove).Methods(http.MethodPost)

	api.HandleFunc("/messages", rt.Messages.Send).Methods(http.MethodPost)
	api.HandleFunc("/messages", rt.Messages.List).Methods(http.MethodGet)
	api.HandleFunc("/messages/read/{contactID}", rt.Messages.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/messages/unread", rt.Messages.Unread).Methods(http.MethodGet)

	return r
}
