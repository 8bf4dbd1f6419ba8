package httpapi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"examseat/internal/domain"
	"examseat/internal/metrics"
	"examseat/internal/notify"
	"examseat/internal/repository"
	"examseat/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type stubHistory struct{ events []notify.Event }

func (s stubHistory) Recent(_ context.Context, limit int) ([]notify.Event, error) {
	if len(s.events) > limit {
		return s.events[len(s.events)-limit:], nil
	}
	return s.events, nil
}

func newTestServer(t *testing.T, rooms ...domain.Room) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg, "")

	roster := service.NewRosterStore(repository.NewMemoryAllocationsRepo(), logger, service.WithMetrics(m))
	roomsRepo := repository.NewMemoryRoomsRepo(rooms...)

	router := NewRouter(logger, m)
	router.RegisterAllocationRoutes(NewAllocationHandler(
		service.NewAllocationService(roomsRepo, roster, m, logger),
		roster,
		service.NewResultsService(roster, nil, m, logger),
		logger,
	))
	router.RegisterRoomRoutes(NewRoomHandler(service.NewRoomService(roomsRepo, logger), logger))
	router.RegisterOpsRoutes(NewOpsHandler(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
	}, stubHistory{events: []notify.Event{{Type: notify.EventAllocated, Dataset: "allocation_math"}}}, logger),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return router
}

func uploadRequest(t *testing.T, subject, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if subject != "" {
		require.NoError(t, mw.WriteField("subject", subject))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/allocations", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func mathRooms() []domain.Room {
	return []domain.Room{{RoomID: "A", Capacity: 2, Position: 1}, {RoomID: "B", Capacity: 3, Position: 2}}
}

func TestUploadAndRosterLifecycle(t *testing.T) {
	h := newTestServer(t, mathRooms()...)

	rec, body := do(t, h, uploadRequest(t, "Math", "roster.csv", "RollNo,Name\ns1,a\ns2,b\ns3,c\ns4,d\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(ResultSuccess), body["code"])
	result := body["result"].(map[string]any)
	assert.Equal(t, float64(4), result["summary"].(map[string]any)["seated"])

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/allocations/Math/rooms/B", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	record := body["result"].(map[string]any)
	assert.Equal(t, "allocation_math", record["dataset"])
	assert.Equal(t, []any{"s3", "s4"}, record["occupants"])
	assert.Equal(t, float64(2), record["occupant_count"])

	rec, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/v1/allocations/Math/rooms/A/occupants/s2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/v1/allocations/Math/rooms/A/occupants/s2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, float64(CodeOccupantNotFound), body["code"])

	rec, body = do(t, h, httptest.NewRequest(http.MethodPut, "/api/v1/allocations/Math/rooms/A/occupants",
		strings.NewReader(`{"rollNumbers":["s1","s7"]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"s1", "s7"}, body["result"].(map[string]any)["occupants"])

	rec, body = do(t, h, httptest.NewRequest(http.MethodPut, "/api/v1/allocations/Math/rooms/A/occupants",
		strings.NewReader(`{"occupants":["1","2","3"]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(CodeValidation), body["code"])

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/allocations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	all := body["result"].(map[string]any)
	require.Contains(t, all, "allocation_math")
	assert.Len(t, all["allocation_math"], 2)

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["result"].(map[string]any)["total"])

	rec, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/v1/allocations/Math", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/v1/allocations/Math", nil))
	require.Equal(t, http.StatusOK, rec.Code, "drop is idempotent")

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/allocations/Math/rooms/A", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, float64(CodeDatasetNotFound), body["code"])
}

func TestErrorStatusMapping(t *testing.T) {
	h := newTestServer(t)

	rec, body := do(t, h, uploadRequest(t, "Math", "roster.csv", "RollNo\ns1\n"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, float64(CodeNoRoomsAvailable), body["code"])

	rec, body = do(t, h, uploadRequest(t, "Math", "roster.csv", "Name\nann\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(CodeValidation), body["code"])

	rec, _ = do(t, h, uploadRequest(t, "Math", "", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, uploadRequest(t, "", "roster.csv", "RollNo\ns1\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/allocations/bad;name", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(CodeValidation), body["code"])
}

func TestErrorStatus_DistinctPerKind(t *testing.T) {
	seen := map[int]error{}
	for _, kind := range []error{
		domain.ErrValidation, domain.ErrNoRoomsAvailable, domain.ErrDatasetNotFound,
		domain.ErrRecordNotFound, domain.ErrOccupantNotFound, domain.ErrPersistence,
	} {
		_, code := errorStatus(domain.NewError(kind, "x"))
		_, dup := seen[code]
		assert.False(t, dup, "code %d reused", code)
		seen[code] = kind
	}
	status, code := errorStatus(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ResultError, code)
}

func TestRecordNotFoundWithinExistingDataset(t *testing.T) {
	h := newTestServer(t, mathRooms()...)
	rec, _ := do(t, h, uploadRequest(t, "Math", "roster.csv", "RollNo\ns1\n"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/allocations/Math/rooms/Z", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, float64(CodeRecordNotFound), body["code"])
}

func TestExport(t *testing.T) {
	h := newTestServer(t, mathRooms()...)
	rec, _ := do(t, h, uploadRequest(t, "Data Structures", "roster.csv", "roll_no\ns1\ns2\ns3\n"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/allocations/Data%20Structures/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "allocation_data_structures.csv")
	rows, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Room", "Capacity", "Count", "Roll Numbers"}, rows[0])
	assert.Equal(t, []string{"A", "2", "2", "s1, s2"}, rows[1])
	assert.Equal(t, []string{"B", "3", "1", "s3"}, rows[2])

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/allocations/data_structures/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	seats, err := f.GetRows("Seats")
	require.NoError(t, err)
	require.Len(t, seats, 4)
	assert.Equal(t, []string{"B", "1", "s3"}, seats[3])

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/allocations/data_structures/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(CodeValidation), body["code"])

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/allocations/Math/export", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomRoutes(t *testing.T) {
	h := newTestServer(t)

	rec, _ := do(t, h, httptest.NewRequest(http.MethodPost, "/api/v1/rooms", strings.NewReader(`{"room_id":"A","capacity":30}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, h, httptest.NewRequest(http.MethodPost, "/api/v1/rooms", strings.NewReader(`{"room_id":"B","capacity":-1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(CodeValidation), body["code"])

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(30), body["result"].(map[string]any)["total_capacity"])

	rec, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/v1/rooms/A", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/v1/rooms/A", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpsRoutes(t *testing.T) {
	h := newTestServer(t, mathRooms()...)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["result"].(map[string]any)["status"])

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["result"].(map[string]any)["total"])

	do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/allocations", nil))
	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `examseat_http_requests_total{method="GET",route="GET /api/v1/allocations",status="200"}`)
}

func TestHealthDegraded(t *testing.T) {
	router := NewRouter(zap.NewNop(), nil)
	router.RegisterOpsRoutes(NewOpsHandler(map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}, nil, zap.NewNop()), nil)

	rec, body := do(t, router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	components := body["result"].(map[string]any)["components"].(map[string]any)
	assert.Equal(t, "connection refused", components["redis"])

	rec, body = do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["result"].(map[string]any)["total"])
}
