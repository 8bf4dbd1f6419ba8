package httpapi

import (
	"errors"
	"net/http"

	"examseat/internal/domain"

	"go.uber.org/zap"
)

// 业务错误码：每种错误类型对应唯一的 HTTP 状态 + code
const (
	CodeValidation       = 4001
	CodeDatasetNotFound  = 4041
	CodeRecordNotFound   = 4042
	CodeOccupantNotFound = 4043
	CodeNoRoomsAvailable = 4091
	CodePersistence      = 5001
)

// errorStatus 返回错误对应的 HTTP 状态和业务码；未归类错误按 500 处理
func errorStatus(err error) (int, int) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, domain.ErrNoRoomsAvailable):
		return http.StatusConflict, CodeNoRoomsAvailable
	case errors.Is(err, domain.ErrDatasetNotFound):
		return http.StatusNotFound, CodeDatasetNotFound
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, CodeRecordNotFound
	case errors.Is(err, domain.ErrOccupantNotFound):
		return http.StatusNotFound, CodeOccupantNotFound
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, CodePersistence
	default:
		return http.StatusInternalServerError, ResultError
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Int("code", code), zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.Int("code", code), zap.Error(err))
	}
	writeJSON(w, status, FailCode(code, err.Error()))
}
