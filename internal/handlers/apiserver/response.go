package apiserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/middleware"
	"github.com/ChrisKp1710/gamecall/internal/services"
)

// ErrorResponse 是 API 错误响应的通用结构体。
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSONResponse 是一个辅助函数，用于将数据编码为 JSON 并写入响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeJSONError 是一个辅助函数，用于写入 JSON 格式的错误响应。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// writeServiceError maps an error kind to its HTTP status. Storage details are logged, not returned.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrForbidden):
		writeJSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrConflict):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	default:
		logger.Error("request failed", zap.Error(err))
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes the request body into dst. An empty body leaves dst untouched.
func decodeJSONBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// currentUserID 从请求上下文中读取已认证的用户 ID。
func currentUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unauthenticated", http.StatusUnauthorized)
	}
	return userID, ok
}

// pathUUID parses the named path variable as a UUID, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeJSONError(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
