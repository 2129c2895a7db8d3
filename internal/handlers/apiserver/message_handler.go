package apiserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/services"
)

// MessageHandler 封装了私聊消息相关的 HTTP 处理器方法。
type MessageHandler struct {
	router *services.MessageRouter
	logger *zap.Logger
}

// NewMessageHandler 创建一个新的 MessageHandler 实例。
func NewMessageHandler(router *services.MessageRouter, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{router: router, logger: logger}
}

// SendMessageRequest 是发送消息的请求体。
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// Send 处理发送消息请求。
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	receiver, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		writeJSONError(w, "invalid receiver_id", http.StatusBadRequest)
		return
	}

	msg, err := h.router.SendMessage(r.Context(), userID, receiver, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, msg)
}

// List 返回与 contact_id 的消息历史，按时间倒序。
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()

	contact, err := uuid.Parse(query.Get("contact_id"))
	if err != nil {
		writeJSONError(w, "invalid contact_id", http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			writeJSONError(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}

	var before *time.Time
	if raw := query.Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeJSONError(w, "before must be an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}
		before = &t
	}

	messages, err := h.router.GetMessages(r.Context(), userID, contact, limit, before)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, messages)
}

// MarkRead 将来自 {contactID} 的未读消息标记为已读。
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	contact, ok := pathUUID(w, r, "contactID")
	if !ok {
		return
	}
	n, err := h.router.MarkAsRead(r.Context(), userID, contact)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]int64{"updated": n})
}

// Unread returns unread counts keyed by sender id.
func (h *MessageHandler) Unread(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	counts, err := h.router.GetUnreadCounts(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	out := make(map[string]int64, len(counts))
	for sender, n := range counts {
		out[sender.String()] = n
	}
	writeJSONResponse(w, http.StatusOK, out)
}
