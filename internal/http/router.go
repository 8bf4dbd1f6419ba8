package httpapi

import (
	"net/http"
	"time"

	"examseat/internal/metrics"

	"go.uber.org/zap"
)

// APIPrefix 所有业务接口的前缀
const APIPrefix = "/api/v1"

// Router 使用标准库 http.ServeMux（方法 + 路径参数模式）
type Router struct {
	mux     *http.ServeMux
	logger  *zap.Logger
	metrics metrics.Collector
}

func NewRouter(logger *zap.Logger, m metrics.Collector) *Router {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		metrics: m,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	r.mux.ServeHTTP(rec, req)

	// mux 会把匹配到的模式写回 req.Pattern，用它做 label 避免路径参数导致基数膨胀
	route := req.Pattern
	if route == "" {
		route = "unmatched"
	}
	r.metrics.RecordHTTPRequest(req.Method, route, rec.status, time.Since(start).Seconds())
}

// RegisterAllocationRoutes 分配与名单接口
func (r *Router) RegisterAllocationRoutes(h *AllocationHandler) {
	r.Handle("POST "+APIPrefix+"/allocations", h.Upload)
	r.Handle("GET "+APIPrefix+"/allocations", h.Results)
	r.Handle("GET "+APIPrefix+"/datasets", h.ListDatasets)
	r.Handle("GET "+APIPrefix+"/allocations/{subject}", h.GetDataset)
	r.Handle("DELETE "+APIPrefix+"/allocations/{subject}", h.Drop)
	r.Handle("GET "+APIPrefix+"/allocations/{subject}/export", h.Export)
	r.Handle("GET "+APIPrefix+"/allocations/{subject}/rooms/{roomId}", h.GetRecord)
	r.Handle("PUT "+APIPrefix+"/allocations/{subject}/rooms/{roomId}/occupants", h.ReplaceOccupants)
	r.Handle("DELETE "+APIPrefix+"/allocations/{subject}/rooms/{roomId}/occupants/{identifier}", h.RemoveOccupant)
}

// RegisterRoomRoutes 考场目录接口
func (r *Router) RegisterRoomRoutes(h *RoomHandler) {
	r.Handle("GET "+APIPrefix+"/rooms", h.ListRooms)
	r.Handle("POST "+APIPrefix+"/rooms", h.UpsertRoom)
	r.Handle("DELETE "+APIPrefix+"/rooms/{roomId}", h.DeleteRoom)
}

// RegisterOpsRoutes 健康检查、事件历史与 Prometheus 指标
func (r *Router) RegisterOpsRoutes(h *OpsHandler, metricsHandler http.Handler) {
	r.Handle("GET /healthz", h.Health)
	r.Handle("GET "+APIPrefix+"/events", h.Events)
	if metricsHandler != nil {
		r.HandleHandler("GET /metrics", metricsHandler)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
