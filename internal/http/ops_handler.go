package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	"examseat/internal/notify"

	"go.uber.org/zap"
)

// HealthCheck 依赖检查（数据库 ping、redis ping 等）
type HealthCheck func(ctx context.Context) error

// EventHistory 最近的名单事件，由 notify.RedisStreamPublisher 实现
type EventHistory interface {
	Recent(ctx context.Context, limit int) ([]notify.Event, error)
}

// OpsHandler 运维接口
type OpsHandler struct {
	checks  map[string]HealthCheck
	history EventHistory
	logger  *zap.Logger
}

// NewOpsHandler history 为 nil 时事件接口返回空列表
func NewOpsHandler(checks map[string]HealthCheck, history EventHistory, logger *zap.Logger) *OpsHandler {
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &OpsHandler{checks: checks, history: history, logger: logger}
}

// Health 所有检查通过返回 200，否则 503
func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	components := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	writeJSON(w, status, Ok(map[string]any{"status": state, "components": components}))
}

// Events 最近的名单变更事件（limit 默认 50，最大 500）
func (h *OpsHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if h.history == nil {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"items": []notify.Event{}, "total": 0}))
		return
	}
	events, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to read roster events", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to read events"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": events, "total": len(events)}))
}
