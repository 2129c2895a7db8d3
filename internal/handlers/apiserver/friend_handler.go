package apiserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/services"
)

// FriendHandler 封装了好友关系相关的 HTTP 处理器方法。
type FriendHandler struct {
	friendships services.FriendshipService
	logger      *zap.Logger
}

// NewFriendHandler 创建一个新的 FriendHandler 实例。
func NewFriendHandler(friendships services.FriendshipService, logger *zap.Logger) *FriendHandler {
	return &FriendHandler{friendships: friendships, logger: logger}
}

// AddFriendRequest identifies the target by friend code or by user id.
type AddFriendRequest struct {
	FriendCode string `json:"friend_code"`
	UserID     string `json:"user_id"`
}

// FriendActionRequest names the other party of an accept, reject or remove.
type FriendActionRequest struct {
	FriendshipID string `json:"friendship_id"`
}

// ListFriends 返回当前用户的好友列表。
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	friends, err := h.friendships.ListAccepted(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, friends)
}

// ListRequests 返回发给当前用户的待处理好友请求。
func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	pending, err := h.friendships.ListIncomingPending(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, pending)
}

// AddFriend sends a friend request.
func (h *FriendHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req AddFriendRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.FriendCode))
	switch {
	case code != "":
		target, err := h.friendships.RequestByFriendCode(r.Context(), userID, code)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		info := target.BasicInfo()
		writeJSONResponse(w, http.StatusCreated, info)
	case req.UserID != "":
		target, err := uuid.Parse(req.UserID)
		if err != nil {
			writeJSONError(w, "invalid user_id", http.StatusBadRequest)
			return
		}
		if err := h.friendships.Request(r.Context(), userID, target); err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSONResponse(w, http.StatusCreated, map[string]string{"id": target.String()})
	default:
		writeJSONError(w, "friend_code or user_id is required", http.StatusBadRequest)
	}
}

// Accept 接受来自 {userID} 的好友请求。
func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.withCounterpart(w, r, h.friendships.Accept)
}

// Reject 拒绝来自 {userID} 的好友请求。
func (h *FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.withCounterpart(w, r, h.friendships.Reject)
}

// Remove 删除与 {userID} 的好友关系。
func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.withCounterpart(w, r, h.friendships.Remove)
}

// withCounterpart resolves the other user from the path, or from the body on the bare route,
// and applies op(current, other).
func (h *FriendHandler) withCounterpart(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, self, other uuid.UUID) error) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	raw, fromPath := mux.Vars(r)["userID"]
	if !fromPath {
		var req FriendActionRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		raw = req.FriendshipID
	}
	other, err := uuid.Parse(raw)
	if err != nil {
		writeJSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}

	if err := op(r.Context(), userID, other); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
