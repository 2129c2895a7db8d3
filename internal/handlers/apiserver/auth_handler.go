package apiserver

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/auth"
	"github.com/ChrisKp1710/gamecall/internal/middleware"
	"github.com/ChrisKp1710/gamecall/internal/models"
	"github.com/ChrisKp1710/gamecall/internal/services"
)

// AuthHandler 封装了认证相关的 HTTP 处理器方法。
type AuthHandler struct {
	authService   services.AuthService
	userService   services.UserService
	authenticator *auth.Authenticator
	logger        *zap.Logger
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(authService services.AuthService, userService services.UserService, authenticator *auth.Authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		userService:   userService,
		authenticator: authenticator,
		logger:        logger,
	}
}

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse 是注册或登录成功后返回的结构体。
type AuthResponse struct {
	Token string                `json:"token"`
	User  *models.UserBasicInfo `json:"user"`
}

// Register 处理用户注册请求。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, user, err := h.authService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, AuthResponse{Token: token, User: user.BasicInfo()})
}

// Login 处理用户登录请求。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeJSONError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	token, user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeJSONError(w, err.Error(), http.StatusUnauthorized)
			return
		}
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, AuthResponse{Token: token, User: user.BasicInfo()})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	user, err := h.userService.GetUserProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user.BasicInfo())
}

// Logout 将当前 Token 加入黑名单。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	if err := h.authenticator.Revoke(r.Context(), claims); err != nil {
		if errors.Is(err, auth.ErrRevocationUnavailable) {
			writeJSONError(w, err.Error(), http.StatusNotImplemented)
			return
		}
		h.logger.Error("revoke token", zap.Error(err))
		writeJSONError(w, "logout failed", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}
